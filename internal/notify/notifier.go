package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"hotelbook/internal/config"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/metrics"
)

const dateLayout = "02.01.2006"

// Notifier forwards booking lifecycle events to the managers' Telegram chats.
// Events are queued by the bus handler and sent from Start's goroutine so a slow
// Telegram API never blocks a booking request.
type Notifier struct {
	sender domain.TelegramSender
	chats  []int64
	queue  chan string
	logger *zerolog.Logger
}

// NewBotSender connects to the Bot API with the configured token.
func NewBotSender(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

func NewNotifier(sender domain.TelegramSender, chats []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chats:  append([]int64(nil), chats...),
		queue:  make(chan string, 64),
		logger: logger,
	}
}

// Subscribe registers the notifier for every booking event.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.SubscribeMany(events.BookingEvents, n.handle)
}

func (n *Notifier) handle(event *events.Event) error {
	var p events.BookingEventPayload
	if err := event.Decode(&p); err != nil {
		return err
	}

	text := FormatEvent(event.Type, p)
	if text == "" {
		return nil
	}
	select {
	case n.queue <- text:
	default:
		metrics.IncNotification("dropped")
		n.logger.Warn().Str("event", event.Type).Str("booking_id", p.BookingID).Msg("Notification queue full, message dropped")
	}
	return nil
}

// Start sends queued messages until ctx is done.
func (n *Notifier) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.queue:
			n.broadcast(text)
		}
	}
}

func (n *Notifier) broadcast(text string) {
	for _, chatID := range n.chats {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			metrics.IncNotification("error")
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to notify manager")
			continue
		}
		metrics.IncNotification("sent")
	}
}

// FormatEvent renders a plain-text manager message; unknown events render empty.
func FormatEvent(eventType string, p events.BookingEventPayload) string {
	var title string
	switch eventType {
	case events.EventBookingCreated:
		title = "🆕 New booking"
	case events.EventBookingCancelled:
		title = "❌ Booking cancelled"
	case events.EventBookingReactivated:
		title = "🔄 Booking reactivated"
	case events.EventBookingPaymentChanged:
		if p.Paid {
			title = "💰 Booking marked as paid"
		} else {
			title = "⏳ Booking marked as unpaid"
		}
	case events.EventBookingDeleted:
		title = "🗑 Booking deleted"
	default:
		return ""
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "🛏 Room: %s (%s)\n", p.RoomNumber, p.RoomType)
	fmt.Fprintf(&b, "📅 %s - %s\n", p.CheckIn.Time().Format(dateLayout), p.CheckOut.Time().Format(dateLayout))
	fmt.Fprintf(&b, "👤 Guest: %s\n", p.CustomerName)
	if eventType == events.EventBookingCreated {
		fmt.Fprintf(&b, "📝 Source: %s\n", p.Origin)
	}
	fmt.Fprintf(&b, "🆔 %s", p.BookingID)
	return b.String()
}
