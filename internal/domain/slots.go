package domain

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Slot struct {
	Time  string `json:"time"`
	Label string `json:"label"`
}

// TimeSlots are the bookable start times of every open day.
var TimeSlots = []Slot{
	{"08:00", "8:00 AM"},
	{"09:00", "9:00 AM"},
	{"10:00", "10:00 AM"},
	{"11:00", "11:00 AM"},
	{"12:00", "12:00 PM"},
	{"13:00", "1:00 PM"},
	{"14:00", "2:00 PM"},
	{"15:00", "3:00 PM"},
	{"16:00", "4:00 PM"},
	{"17:00", "5:00 PM"},
}

func IsValidSlot(t string) bool {
	for _, s := range TimeSlots {
		if s.Time == t {
			return true
		}
	}
	return false
}

type SlotView struct {
	Slot
	Available bool `json:"available"`
}

// Schedule decides which calendar dates accept bookings.
type Schedule struct {
	ClosedDays  map[time.Weekday]bool
	HorizonDays int
	Location    *time.Location
	Now         func() time.Time
}

func NewSchedule(closed []string, horizonDays int, tz string) (*Schedule, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	s := &Schedule{
		ClosedDays:  make(map[time.Weekday]bool),
		HorizonDays: horizonDays,
		Location:    loc,
		Now:         time.Now,
	}
	for _, name := range closed {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		wd, ok := weekdays[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		s.ClosedDays[wd] = true
	}
	return s, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (s *Schedule) today() time.Time {
	now := s.Now().In(s.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location)
}

// ParseDate parses a YYYY-MM-DD date in the schedule's location.
func (s *Schedule) ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, s.Location)
}

// CheckDate returns a *ValidationError when date cannot be booked: it must be
// tomorrow or later, inside the horizon, and not a closed weekday.
func (s *Schedule) CheckDate(date string) error {
	d, err := s.ParseDate(date)
	if err != nil {
		return NewValidationError("booking_date", "must be a date in YYYY-MM-DD format")
	}
	today := s.today()
	if !d.After(today) {
		return NewValidationError("booking_date", "must be tomorrow or later")
	}
	if s.HorizonDays > 0 && d.After(today.AddDate(0, 0, s.HorizonDays)) {
		return NewValidationError("booking_date", fmt.Sprintf("must be within the next %d days", s.HorizonDays))
	}
	if s.ClosedDays[d.Weekday()] {
		return NewValidationError("booking_date", "we are closed on "+d.Weekday().String())
	}
	return nil
}

// BookableDates lists every open date from tomorrow to the horizon.
func (s *Schedule) BookableDates() []string {
	horizon := s.HorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	today := s.today()
	out := make([]string, 0, horizon)
	for i := 1; i <= horizon; i++ {
		d := today.AddDate(0, 0, i)
		if s.ClosedDays[d.Weekday()] {
			continue
		}
		out = append(out, d.Format(DateLayout))
	}
	return out
}

// NextBookableDate is the first open date after today.
func (s *Schedule) NextBookableDate() string {
	today := s.today()
	for i := 1; i <= 7; i++ {
		d := today.AddDate(0, 0, i)
		if !s.ClosedDays[d.Weekday()] {
			return d.Format(DateLayout)
		}
	}
	return ""
}
