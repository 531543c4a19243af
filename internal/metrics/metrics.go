package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hotelbook/internal/domain"
	"hotelbook/internal/events"
)

const namespace = "hotelbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Booking lifecycle events by type.",
		},
		[]string{"event"},
	)

	operationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Rejected operations by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_tasks_total",
			Help:      "Sheets sync task outcomes.",
		},
		[]string{"result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Manager notification outcomes.",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		},
		[]string{"scope"},
	)
)

// Register registers the collectors with the default registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingEvents, operationFailures, syncTasks, notifications, rateLimited)
	})
}

func ObserveHTTP(route string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveFailure records a failed operation labelled by its error kind.
func ObserveFailure(operation string, err error) {
	if err == nil {
		return
	}
	operationFailures.WithLabelValues(operation, Kind(err)).Inc()
}

// Kind maps an error onto a short label.
func Kind(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

func IncSyncTask(result string) {
	syncTasks.WithLabelValues(result).Inc()
}

func IncNotification(result string) {
	notifications.WithLabelValues(result).Inc()
}

func IncRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}

// Subscribe counts every booking lifecycle event published on bus.
func Subscribe(bus *events.EventBus) {
	bus.SubscribeMany(events.BookingEvents, func(e *events.Event) error {
		bookingEvents.WithLabelValues(e.Type).Inc()
		return nil
	})
}
