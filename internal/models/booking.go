package models

import "time"

type Booking struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customer_id"`
	RoomNumber string        `json:"room_number"`
	CheckIn    Date          `json:"check_in"`
	CheckOut   Date          `json:"check_out"`
	Status     BookingStatus `json:"status"`
	Paid       bool          `json:"paid"`
	Origin     Origin        `json:"origin"`

	// Copied from the catalog when the booking is made; not kept in sync afterwards.
	CustomerName string   `json:"customer_name"`
	RoomType     RoomType `json:"room_type"`

	CreatedAt     time.Time  `json:"created_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ReactivatedAt *time.Time `json:"reactivated_at,omitempty"`
}

// IsActive reports whether the booking still holds its room.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// Overlaps uses half-open intervals: a stay ending on a day does not collide
// with one starting that day.
func (b *Booking) Overlaps(checkIn, checkOut Date) bool {
	return b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}

func (b *Booking) Nights() int {
	return b.CheckIn.DaysUntil(b.CheckOut)
}

func (b *Booking) clone() Booking {
	c := *b
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.PaidAt = cloneTime(b.PaidAt)
	c.ReactivatedAt = cloneTime(b.ReactivatedAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// BookingView is a booking joined with the current customer and room records.
// Its customer_name and room_type shadow the creation-time copies.
type BookingView struct {
	Booking
	CustomerName string `json:"customer_name"`
	RoomType     string `json:"room_type"`
	RoomPrice    Money  `json:"room_price"`
}
