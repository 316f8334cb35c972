package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hygiapro/bookings/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("hygiapro-bookings"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(newMessage(msg.Subject, msg.Data))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(newMessage(msg.Subject, msg.Data))
	})
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

// LocalEventBus delivers events to in-process subscribers. It is used when
// no NATS URL is configured and in tests. Handlers run on their own goroutine.
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(msg *Message)
	wg       sync.WaitGroup
}

func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{handlers: make(map[string][]func(msg *Message))}
}

func (l *LocalEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing local event", "subject", subject)

	l.mu.RLock()
	hs := append([]func(*Message){}, l.handlers[subject]...)
	l.mu.RUnlock()

	for _, h := range hs {
		l.wg.Add(1)
		go func(h func(*Message)) {
			defer l.wg.Done()
			h(newMessage(subject, payload))
		}(h)
	}
	return nil
}

func (l *LocalEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[subject] = append(l.handlers[subject], handler)
	return nil
}

// QueueSubscribe behaves like Subscribe; there is only one process to balance across.
func (l *LocalEventBus) QueueSubscribe(subject, _ string, handler func(msg *Message)) error {
	return l.Subscribe(subject, handler)
}

// Wait blocks until every in-flight handler has returned.
func (l *LocalEventBus) Wait() {
	l.wg.Wait()
}

func (l *LocalEventBus) Close() error {
	l.wg.Wait()
	return nil
}

func newMessage(subject string, data []byte) *Message {
	return &Message{
		Subject:   subject,
		Data:      data,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
}

// Event subjects
const (
	BookingCreated = "booking.created"
	PaymentPaid    = "payment.paid"
	PaymentFailed  = "payment.failed"
)

type BookingCreatedEvent struct {
	BookingID     int64     `json:"booking_id"`
	Reference     string    `json:"reference"`
	CustomerEmail string    `json:"customer_email"`
	BookingDate   string    `json:"booking_date"`
	BookingTime   string    `json:"booking_time"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentSettledEvent struct {
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Provider  string    `json:"provider"`
	Amount    float64   `json:"amount"`
	SettledAt time.Time `json:"settled_at"`
}
