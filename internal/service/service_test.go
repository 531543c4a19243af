package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hotelbook/internal/database"
	"hotelbook/internal/events"
	"hotelbook/internal/models"
	"hotelbook/internal/validation"
)

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error {
	return m.Called(ctx, taskType, bookingID, booking, status).Error(0)
}

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedEvents) handler(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recordedEvents) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type fixture struct {
	store    *database.Store
	bookings *BookingService
	catalog  *CatalogService
	hotel    *HotelService
	events   *recordedEvents
	now      time.Time
}

// newFixture builds services over a JSON store in a temp dir with the clock
// fixed at 2024-02-01 10:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	backend, err := database.NewFileStore(filepath.Join(t.TempDir(), "hotel.json"), &logger)
	require.NoError(t, err)
	store := database.NewStore(backend, &logger)
	v := validation.New()

	rec := &recordedEvents{}
	bus := events.NewEventBus(&logger)
	bus.SubscribeMany(events.BookingEvents, rec.handler)

	f := &fixture{
		store:    store,
		bookings: NewBookingService(store, v, bus, nil, &logger),
		catalog:  NewCatalogService(store, v, &logger),
		hotel:    NewHotelService(store, v, &logger),
		events:   rec,
		now:      time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.bookings.now = clock
	f.catalog.now = clock

	seq := 0
	f.bookings.newID = func() string {
		seq++
		return fmt.Sprintf("booking-%d", seq)
	}
	return f
}

func (f *fixture) room(t *testing.T, number, roomType, price string) *models.Room {
	t.Helper()
	r, err := f.catalog.CreateRoom(context.Background(), RoomInput{Number: number, Type: roomType, Price: price})
	require.NoError(t, err)
	return r
}

func (f *fixture) customer(t *testing.T, name, email string) *models.Customer {
	t.Helper()
	c, err := f.catalog.CreateCustomer(context.Background(), CustomerInput{Name: name, Email: email, Phone: "31999998888"}, models.OriginGuest)
	require.NoError(t, err)
	return c
}

func (f *fixture) book(customerID, room, checkIn, checkOut string) (*models.Booking, error) {
	return f.bookings.CreateBooking(context.Background(), BookingInput{
		CustomerID: customerID, RoomNumber: room, CheckIn: checkIn, CheckOut: checkOut,
	}, models.OriginAdmin)
}

func (f *fixture) snapshot(t *testing.T) *models.Snapshot {
	t.Helper()
	var out *models.Snapshot
	require.NoError(t, f.store.View(context.Background(), func(s *models.Snapshot) error {
		out = s.Clone()
		return nil
	}))
	return out
}
