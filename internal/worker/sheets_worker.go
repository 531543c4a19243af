package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

const (
	defaultQueueKey      = "hotelbook:sheets:queue"
	defaultDeadLetterKey = "hotelbook:sheets:deadletter"
)

// SheetsWorker applies booking sync tasks to the Sheets mirror. Tasks travel
// through a Redis list when one is configured and an in-memory channel otherwise.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	popTimeout    time.Duration
	logger        *zerolog.Logger
	now           func() time.Time
	after         func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
}

// NewSheetsWorker builds a worker; redisClient may be nil.
func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: defaultQueueKey,
		deadLetterKey: defaultDeadLetterKey,
		popTimeout:    time.Second,
		logger:        logger,
		now:           time.Now,
		after:         time.AfterFunc,
		pending:       make(map[*time.Timer]struct{}),
	}
}

// EnqueueTask schedules a mirror update for one booking.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error {
	if bookingID == "" && booking != nil {
		bookingID = booking.ID
	}
	task := models.SyncTask{
		Type:       taskType,
		BookingID:  bookingID,
		Booking:    booking,
		Status:     status,
		EnqueuedAt: w.now().UTC(),
	}
	if err := validateTask(task); err != nil {
		return err
	}
	return w.push(ctx, task)
}

func validateTask(task models.SyncTask) error {
	if task.BookingID == "" {
		return errors.New("booking id is required")
	}
	switch task.Type {
	case models.TaskUpsert:
		if task.Booking == nil {
			return errors.New("booking payload is required for upsert")
		}
	case models.TaskUpdateStatus:
		if task.Status == "" {
			return errors.New("status is required for update_status")
		}
	case models.TaskDelete:
	case "":
		return errors.New("task type is required")
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
	return nil
}

func (w *SheetsWorker) push(ctx context.Context, task models.SyncTask) error {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.redisQueueKey, task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Str("booking_id", task.BookingID).Msg("Redis push failed, using memory queue")
	}

	select {
	case w.queue <- task:
		return nil
	default:
		metrics.IncSyncTask("dropped")
		return fmt.Errorf("sync queue is full, task for booking %s dropped", task.BookingID)
	}
}

// Start consumes tasks until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Bool("redis", w.redis != nil).Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")
	defer w.stopPending()

	for {
		if w.redis == nil {
			select {
			case <-ctx.Done():
				return
			case task := <-w.queue:
				w.processTask(ctx, &task)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, &task)
			continue
		default:
		}

		if task, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &task)
		}
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	res, err := w.redis.BRPop(ctx, w.popTimeout, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Redis BRPOP failed")
			select {
			case <-ctx.Done():
			case <-time.After(w.popTimeout):
			}
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode sync task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	if err := w.apply(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	metrics.IncSyncTask("success")
	w.logger.Debug().Str("type", task.Type).Str("booking_id", task.BookingID).Msg("Sync task applied")
}

func (w *SheetsWorker) apply(ctx context.Context, task *models.SyncTask) error {
	if err := validateTask(*task); err != nil {
		return err
	}
	switch task.Type {
	case models.TaskUpsert:
		return w.sheets.UpsertBooking(ctx, task.Booking)
	case models.TaskUpdateStatus:
		return w.sheets.UpdateBookingStatus(ctx, task.BookingID, task.Status)
	default:
		return w.sheets.DeleteBooking(ctx, task.BookingID)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	task.Attempts++
	task.LastError = cause.Error()

	if task.Attempts >= w.retryPolicy.MaxRetries || validateTask(*task) != nil {
		metrics.IncSyncTask("failed")
		w.logger.Error().Err(cause).Str("type", task.Type).Str("booking_id", task.BookingID).
			Int("attempts", task.Attempts).Msg("Sync task failed permanently")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempts)
	metrics.IncSyncTask("retry")
	w.logger.Warn().Err(cause).Str("booking_id", task.BookingID).Dur("delay", delay).Msg("Sync task will be retried")

	retry := *task
	var timer *time.Timer
	w.mu.Lock()
	timer = w.after(delay, func() {
		w.mu.Lock()
		delete(w.pending, timer)
		w.mu.Unlock()
		if err := w.push(context.Background(), retry); err != nil {
			w.logger.Error().Err(err).Str("booking_id", retry.BookingID).Msg("Failed to requeue sync task")
		}
	})
	w.pending[timer] = struct{}{}
	w.mu.Unlock()
}

func (w *SheetsWorker) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for timer := range w.pending {
		timer.Stop()
		delete(w.pending, timer)
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode sync task: %w", err)
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
		w.logger.Error().Err(err).Str("booking_id", task.BookingID).Msg("Dead-letter push failed")
	}
}

// DeadLetters returns permanently failed tasks kept in Redis, newest first.
func (w *SheetsWorker) DeadLetters(ctx context.Context) ([]models.SyncTask, error) {
	if w.redis == nil {
		return nil, nil
	}
	raw, err := w.redis.LRange(ctx, w.deadLetterKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	tasks := make([]models.SyncTask, 0, len(raw))
	for _, item := range raw {
		var task models.SyncTask
		if err := json.Unmarshal([]byte(item), &task); err != nil {
			return nil, fmt.Errorf("decode dead letter: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
