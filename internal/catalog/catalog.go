package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

var ErrServiceNotFound = errors.New("service not found")

type PricingTier struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type CityPricing struct {
	City  string        `json:"city"`
	Unit  string        `json:"unit"`
	Tiers []PricingTier `json:"tiers"`
	Note  string        `json:"note,omitempty"`
}

type Service struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	ShortDescription string        `json:"short_description"`
	Description      string        `json:"description"`
	Includes         []string      `json:"includes"`
	StartingPrice    float64       `json:"starting_price"`
	PriceUnit        string        `json:"price_unit"`
	Category         string        `json:"category"`
	Pricing          []CityPricing `json:"pricing"`
}

// PricingSelection is a customer's choice of a city tier for a service.
type PricingSelection struct {
	City  string  `json:"city"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// Tier finds the tier with the given label in city.
func (s Service) Tier(city, label string) (PricingTier, bool) {
	for _, cp := range s.Pricing {
		if cp.City != city {
			continue
		}
		for _, t := range cp.Tiers {
			if t.Label == label {
				return t, true
			}
		}
	}
	return PricingTier{}, false
}

// Provider is the read-only source of service definitions.
type Provider interface {
	List(ctx context.Context) ([]Service, error)
	Get(ctx context.Context, id string) (*Service, error)
}

// FileProvider serves services decoded from a JSON file. The file is read on
// first use and cached.
type FileProvider struct {
	path string

	once     sync.Once
	services []Service
	byID     map[string]int
	err      error
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// NewStaticProvider serves a fixed list, mostly for tests.
func NewStaticProvider(services []Service) *FileProvider {
	p := &FileProvider{}
	p.once.Do(func() { p.index(services) })
	return p
}

func (p *FileProvider) load() error {
	p.once.Do(func() {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			p.err = fmt.Errorf("read catalog %s: %w", p.path, err)
			return
		}
		var services []Service
		if err := json.Unmarshal(raw, &services); err != nil {
			p.err = fmt.Errorf("decode catalog %s: %w", p.path, err)
			return
		}
		p.index(services)
	})
	return p.err
}

func (p *FileProvider) index(services []Service) {
	p.services = services
	p.byID = make(map[string]int, len(services))
	for i, s := range services {
		p.byID[s.ID] = i
	}
}

func (p *FileProvider) List(ctx context.Context) ([]Service, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	out := make([]Service, len(p.services))
	copy(out, p.services)
	return out, nil
}

func (p *FileProvider) Get(ctx context.Context, id string) (*Service, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	i, ok := p.byID[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	s := p.services[i]
	return &s, nil
}
