// Package session holds the checkout aggregate a client builds up across the
// schedule, details and payment steps. A Session is owned by one caller and
// is not safe for concurrent use; persistence goes through Encode and Decode.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/hygiapro/bookings/internal/domain"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNoSlot          = errors.New("no time slot selected")
	ErrNoCustomer      = errors.New("customer details missing")
	ErrUnknownLine     = errors.New("cart line not found")
	ErrUnsupportedData = errors.New("unsupported session version")
	ErrInvalidPrice    = errors.New("selected price is outside the service tier")
)

const version = 1

type Line struct {
	ServiceID string                    `json:"service_id"`
	Name      string                    `json:"name"`
	BasePrice float64                   `json:"base_price"`
	Selection *catalog.PricingSelection `json:"selection,omitempty"`
	Quantity  int                       `json:"quantity"`
}

// Key identifies a line. The same service at a different tier is a different line.
func (l Line) Key() string {
	return LineKey(l.ServiceID, l.Selection)
}

func LineKey(serviceID string, sel *catalog.PricingSelection) string {
	if sel == nil {
		return serviceID
	}
	return serviceID + "|" + sel.City + "|" + sel.Label
}

// UnitPrice is the selected tier price, or the base price when none was chosen.
func (l Line) UnitPrice() float64 {
	if l.Selection != nil {
		return l.Selection.Price
	}
	return l.BasePrice
}

type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type CustomerDetails struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Notes    string `json:"notes"`
}

type Session struct {
	Version  int              `json:"version"`
	Cart     []Line           `json:"cart"`
	Slot     *Slot            `json:"slot,omitempty"`
	Customer *CustomerDetails `json:"customer,omitempty"`
}

func New() *Session {
	return &Session{Version: version}
}

// Add puts one unit of svc at sel in the cart, merging with an existing line.
func (s *Session) Add(svc catalog.Service, sel *catalog.PricingSelection) {
	key := LineKey(svc.ID, sel)
	for i := range s.Cart {
		if s.Cart[i].Key() == key {
			s.Cart[i].Quantity++
			return
		}
	}
	var selCopy *catalog.PricingSelection
	if sel != nil {
		c := *sel
		selCopy = &c
	}
	s.Cart = append(s.Cart, Line{
		ServiceID: svc.ID,
		Name:      svc.Name,
		BasePrice: svc.StartingPrice,
		Selection: selCopy,
		Quantity:  1,
	})
}

func (s *Session) Remove(key string) {
	out := s.Cart[:0]
	for _, l := range s.Cart {
		if l.Key() != key {
			out = append(out, l)
		}
	}
	s.Cart = out
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Session) UpdateQuantity(key string, qty int) error {
	if qty <= 0 {
		s.Remove(key)
		return nil
	}
	for i := range s.Cart {
		if s.Cart[i].Key() == key {
			s.Cart[i].Quantity = qty
			return nil
		}
	}
	return ErrUnknownLine
}

func (s *Session) Total() float64 {
	var total float64
	for _, l := range s.Cart {
		total += l.UnitPrice() * float64(l.Quantity)
	}
	return total
}

func (s *Session) ItemCount() int {
	n := 0
	for _, l := range s.Cart {
		n += l.Quantity
	}
	return n
}

func (s *Session) SetSlot(date, time string) {
	s.Slot = &Slot{Date: date, Time: time}
}

func (s *Session) SetCustomer(d CustomerDetails) {
	s.Customer = &d
}

// Reset clears cart, slot and customer details.
func (s *Session) Reset() {
	s.Cart = nil
	s.Slot = nil
	s.Customer = nil
}

// Reprice replaces client-held names and base prices with the catalog's and
// checks every tier selection against its published range.
func (s *Session) Reprice(ctx context.Context, p catalog.Provider) error {
	for i := range s.Cart {
		l := &s.Cart[i]
		svc, err := p.Get(ctx, l.ServiceID)
		if err != nil {
			return fmt.Errorf("line %q: %w", l.ServiceID, err)
		}
		l.Name = svc.Name
		l.BasePrice = svc.StartingPrice
		if l.Selection == nil {
			continue
		}
		tier, ok := svc.Tier(l.Selection.City, l.Selection.Label)
		if !ok {
			return fmt.Errorf("line %q: %w", l.Key(), catalog.ErrServiceNotFound)
		}
		if l.Selection.Price < tier.Min || (tier.Max > 0 && l.Selection.Price > tier.Max) {
			return fmt.Errorf("line %q: %w", l.Key(), ErrInvalidPrice)
		}
	}
	return nil
}

// PaymentRequest derives the checkout submission. Only presence is checked
// here; field rules are enforced by the booking service.
func (s *Session) PaymentRequest() (domain.PaymentRequest, error) {
	switch {
	case len(s.Cart) == 0:
		return domain.PaymentRequest{}, ErrEmptyCart
	case s.Slot == nil:
		return domain.PaymentRequest{}, ErrNoSlot
	case s.Customer == nil:
		return domain.PaymentRequest{}, ErrNoCustomer
	}

	items := make([]domain.LineItem, 0, len(s.Cart))
	for _, l := range s.Cart {
		li := domain.LineItem{
			ServiceID: l.ServiceID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice(),
		}
		if l.Selection != nil {
			li.City = l.Selection.City
			li.PricingLabel = l.Selection.Label
		}
		items = append(items, li)
	}

	return domain.PaymentRequest{BookingInput: domain.BookingInput{
		CustomerName:    s.Customer.FullName,
		CustomerEmail:   s.Customer.Email,
		CustomerPhone:   s.Customer.Phone,
		CustomerAddress: s.Customer.Address,
		Notes:           s.Customer.Notes,
		BookingDate:     s.Slot.Date,
		BookingTime:     s.Slot.Time,
		Services:        items,
		TotalAmount:     s.Total(),
	}}, nil
}

func Encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

func Decode(data []byte) (*Session, error) {
	s := New()
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedData, s.Version)
	}
	return s, nil
}
