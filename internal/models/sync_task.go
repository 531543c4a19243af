package models

import "time"

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
	TaskDelete       = "delete"
)

// SyncTask is a queued Sheets mirror job.
type SyncTask struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	Booking    *Booking  `json:"booking,omitempty"`
	Status     string    `json:"status,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
