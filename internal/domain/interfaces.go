package domain

import (
	"context"
	"time"

	"hotelbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Backend persists the whole snapshot in one step.
type Backend interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snapshot *models.Snapshot) error
	Close() error
}

// Store serializes access to the snapshot. Update saves only when fn succeeds.
type Store interface {
	View(ctx context.Context, fn func(s *models.Snapshot) error) error
	Update(ctx context.Context, fn func(s *models.Snapshot) error) error
}

type Validator interface {
	Name(raw string) (string, error)
	Email(raw string) (string, error)
	Phone(raw string) (string, error)
	RoomNumber(raw string) (string, error)
	RoomType(raw string) (models.RoomType, error)
	Price(raw string) (models.Money, error)
	Date(raw string) (models.Date, error)
	Required(field, raw string) (string, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID, status string) error
	DeleteBooking(ctx context.Context, bookingID string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
