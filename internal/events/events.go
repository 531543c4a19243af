package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelbook/internal/models"
)

const (
	EventBookingCreated        = "booking_created"
	EventBookingCancelled      = "booking_cancelled"
	EventBookingReactivated    = "booking_reactivated"
	EventBookingPaymentChanged = "booking_payment_changed"
	EventBookingDeleted        = "booking_deleted"
)

// BookingEvents lists every lifecycle event type.
var BookingEvents = []string{
	EventBookingCreated,
	EventBookingCancelled,
	EventBookingReactivated,
	EventBookingPaymentChanged,
	EventBookingDeleted,
}

// BookingEventPayload is the booking snapshot delivered to subscribers.
type BookingEventPayload struct {
	BookingID    string               `json:"booking_id"`
	CustomerID   string               `json:"customer_id"`
	CustomerName string               `json:"customer_name"`
	RoomNumber   string               `json:"room_number"`
	RoomType     models.RoomType      `json:"room_type"`
	Status       models.BookingStatus `json:"status"`
	Paid         bool                 `json:"paid"`
	CheckIn      models.Date          `json:"check_in"`
	CheckOut     models.Date          `json:"check_out"`
	Origin       models.Origin        `json:"origin"`
}

func NewBookingPayload(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		BookingID:    b.ID,
		CustomerID:   b.CustomerID,
		CustomerName: b.CustomerName,
		RoomNumber:   b.RoomNumber,
		RoomType:     b.RoomType,
		Status:       b.Status,
		Paid:         b.Paid,
		CheckIn:      b.CheckIn,
		CheckOut:     b.CheckOut,
		Origin:       b.Origin,
	}
}

type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub. Handlers run synchronously on the publisher's goroutine.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeMany registers one handler for several event types.
func (b *EventBus) SubscribeMany(eventTypes []string, handler EventHandler) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish calls every handler; a failing handler is logged and does not stop the rest.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("event handler failed")
		}
	}
}

func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
