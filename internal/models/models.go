package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	return DateIn(t, time.UTC)
}

// DateIn is the calendar day of t as seen in loc.
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return NewDate(l.Year(), l.Month(), l.Day())
}

func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return Date{t: t}, nil
}

func (d Date) Time() time.Time { return d.t }
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) DaysUntil(o Date) int { return int(o.t.Sub(d.t).Hours() / 24) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Money is an amount in cents.
type Money int64

// ParseMoney accepts "150", "150.5", "150,50" and rounds to cents.
func ParseMoney(raw string) (Money, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return Money(math.Round(f * 100)), nil
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalText(b []byte) error {
	parsed, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Snapshot is the whole persisted dataset.
type Snapshot struct {
	Customers    []Customer   `json:"customers"`
	Rooms        []Room       `json:"rooms"`
	Bookings     []Booking    `json:"bookings"`
	HotelProfile HotelProfile `json:"hotelProfile"`
}

func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Customers:    []Customer{},
		Rooms:        []Room{},
		Bookings:     []Booking{},
		HotelProfile: DefaultHotelProfile(),
	}
}

// Clone returns a deep copy safe to mutate.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Customers:    make([]Customer, len(s.Customers)),
		Rooms:        make([]Room, len(s.Rooms)),
		Bookings:     make([]Booking, len(s.Bookings)),
		HotelProfile: s.HotelProfile,
	}
	copy(c.Customers, s.Customers)
	copy(c.Rooms, s.Rooms)
	for i := range s.Bookings {
		c.Bookings[i] = s.Bookings[i].clone()
	}
	return c
}

// Normalize replaces nil slices and a blank profile with defaults.
func (s *Snapshot) Normalize() {
	if s.Customers == nil {
		s.Customers = []Customer{}
	}
	if s.Rooms == nil {
		s.Rooms = []Room{}
	}
	if s.Bookings == nil {
		s.Bookings = []Booking{}
	}
	if s.HotelProfile == (HotelProfile{}) {
		s.HotelProfile = DefaultHotelProfile()
	}
}

func (s *Snapshot) FindCustomer(id string) (int, *Customer) {
	for i := range s.Customers {
		if s.Customers[i].ID == id {
			return i, &s.Customers[i]
		}
	}
	return -1, nil
}

// FindCustomerByEmail compares case-insensitively.
func (s *Snapshot) FindCustomerByEmail(email string) (int, *Customer) {
	email = strings.TrimSpace(email)
	for i := range s.Customers {
		if strings.EqualFold(s.Customers[i].Email, email) {
			return i, &s.Customers[i]
		}
	}
	return -1, nil
}

func (s *Snapshot) FindRoom(number string) (int, *Room) {
	for i := range s.Rooms {
		if s.Rooms[i].Number == number {
			return i, &s.Rooms[i]
		}
	}
	return -1, nil
}

func (s *Snapshot) FindBooking(id string) (int, *Booking) {
	for i := range s.Bookings {
		if s.Bookings[i].ID == id {
			return i, &s.Bookings[i]
		}
	}
	return -1, nil
}
