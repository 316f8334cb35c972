package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hygiapro/bookings/internal/domain"
	circuit "github.com/rubyist/circuitbreaker"
)

// Paystack talks to the Paystack transaction API.
type Paystack struct {
	secretKey string
	baseURL   string
	client    *circuit.HTTPClient
}

// NewPaystack trips its breaker after five consecutive transport failures.
func NewPaystack(secretKey, baseURL string, timeout time.Duration) *Paystack {
	return &Paystack{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    circuit.NewHTTPClient(timeout, 5, &http.Client{Timeout: timeout}),
	}
}

func (p *Paystack) Provider() domain.PaymentProvider { return domain.ProviderPaystack }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Reference string          `json:"reference"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	body := map[string]any{
		"email":        req.Email,
		"amount":       req.AmountMinor,
		"currency":     req.Currency,
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
		"metadata":     req.Metadata,
	}
	var data paystackInitData
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize: empty authorization url")
	}
	return &InitResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// Statuses Paystack reports while a charge is still being worked on.
var paystackInFlight = map[string]bool{
	"ongoing":    true,
	"pending":    true,
	"processing": true,
	"queued":     true,
}

func (p *Paystack) Verify(ctx context.Context, tx Transaction) (*VerifyResult, error) {
	var data paystackVerifyData
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(tx.Reference), nil, &data); err != nil {
		return nil, err
	}
	if paystackInFlight[data.Status] {
		return nil, fmt.Errorf("paystack %s is %s: %w", tx.Reference, data.Status, ErrPaymentInFlight)
	}
	return &VerifyResult{
		Success:     data.Status == "success",
		Status:      data.Status,
		AmountMinor: data.Amount,
		Reference:   data.Reference,
		Metadata:    flattenMetadata(data.Metadata),
	}, nil
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// ParseWebhook checks the x-paystack-signature HMAC and extracts the reference.
// The event body is not trusted beyond that; callers re-verify.
func (p *Paystack) ParseWebhook(payload []byte, signature string) (string, error) {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || !hmac.Equal(expected, got) {
		return "", ErrInvalidSignature
	}

	var ev paystackEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", fmt.Errorf("decode webhook: %w", err)
	}
	if ev.Data.Reference == "" {
		return "", fmt.Errorf("webhook %q carries no reference", ev.Event)
	}
	return ev.Data.Reference, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("paystack encode: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paystack read: %w", err)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("paystack decode (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode == http.StatusNotFound ||
		(resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(env.Message), "not found")) {
		return fmt.Errorf("paystack %s: %w: %s", path, ErrTransactionNotFound, env.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return fmt.Errorf("paystack %s: http %d: %s", path, resp.StatusCode, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("paystack decode data: %w", err)
		}
	}
	return nil
}

// flattenMetadata accepts Paystack's metadata, which may be an object or an
// empty string, and renders scalar values as strings.
func flattenMetadata(raw json.RawMessage) map[string]string {
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			if b, err := json.Marshal(t); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}
