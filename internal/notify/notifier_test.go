package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hotelbook/internal/events"
	"hotelbook/internal/models"
)

type mockTelegramSender struct {
	mock.Mock
	mu sync.Mutex
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func payload(t *testing.T) events.BookingEventPayload {
	t.Helper()
	in, err := models.ParseDate("2024-03-01")
	require.NoError(t, err)
	out, err := models.ParseDate("2024-03-05")
	require.NoError(t, err)
	return events.BookingEventPayload{
		BookingID: "b-1", CustomerName: "Alice", RoomNumber: "101", RoomType: models.RoomCouple,
		Status: models.StatusConfirmed, CheckIn: in, CheckOut: out, Origin: models.OriginGuest,
	}
}

func TestFormatEvent(t *testing.T) {
	p := payload(t)

	created := FormatEvent(events.EventBookingCreated, p)
	assert.Contains(t, created, "New booking")
	assert.Contains(t, created, "101 (Couple)")
	assert.Contains(t, created, "01.03.2024 - 05.03.2024")
	assert.Contains(t, created, "Source: guest")

	p.Paid = true
	assert.Contains(t, FormatEvent(events.EventBookingPaymentChanged, p), "paid")
	assert.NotContains(t, FormatEvent(events.EventBookingCancelled, p), "Source")
	assert.Empty(t, FormatEvent("room_created", p))
}

func TestNotifierBroadcastsToEveryChat(t *testing.T) {
	sender := new(mockTelegramSender)
	logger := zerolog.New(io.Discard)
	n := NewNotifier(sender, []int64{10, 20}, &logger)

	sent := make(chan int64, 4)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 10
	})).Return(tgbotapi.Message{}, nil).Run(func(args mock.Arguments) { sent <- 10 })
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 20
	})).Return(tgbotapi.Message{}, errors.New("chat not found")).Run(func(args mock.Arguments) { sent <- 20 })

	bus := events.NewEventBus(&logger)
	n.Subscribe(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Start(ctx)

	require.NoError(t, bus.PublishJSON(events.EventBookingCancelled, payload(t)))

	got := map[int64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-sent:
			got[id] = true
		case <-time.After(time.Second):
			t.Fatal("notification not sent")
		}
	}
	assert.Equal(t, map[int64]bool{10: true, 20: true}, got)
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	logger := zerolog.New(io.Discard)
	n := NewNotifier(new(mockTelegramSender), []int64{1}, &logger)
	n.queue = make(chan string, 1)

	ev, err := events.NewJSONEvent(events.EventBookingCreated, payload(t))
	require.NoError(t, err)
	require.NoError(t, n.handle(&ev))
	require.NoError(t, n.handle(&ev))
	assert.Len(t, n.queue, 1)

	bad := events.Event{Type: events.EventBookingCreated, Payload: []byte("{")}
	assert.Error(t, n.handle(&bad))
}
