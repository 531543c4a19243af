package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

type BookingService struct {
	store      domain.Store
	validator  domain.Validator
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	logger     *zerolog.Logger
	loc        *time.Location
	now        func() time.Time
	newID      func() string
}

// NewBookingService wires the lifecycle manager. eventBus and syncWorker may be nil.
func NewBookingService(
	store domain.Store,
	validator domain.Validator,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		store:      store,
		validator:  validator,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		logger:     logger,
		loc:        time.UTC,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetLocation sets the timezone whose calendar day the reactivate and delete
// guards compare against. The default is UTC.
func (s *BookingService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

func (s *BookingService) today() models.Date {
	return models.DateIn(s.now(), s.loc)
}

// CreateBooking validates the input, checks the room and stores a confirmed booking.
// Guest bookings always start unpaid.
func (s *BookingService) CreateBooking(ctx context.Context, in BookingInput, origin models.Origin) (*models.Booking, error) {
	booking, err := s.createBooking(ctx, in, origin)
	if err != nil {
		metrics.ObserveFailure("create_booking", err)
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("room", booking.RoomNumber).
		Str("check_in", booking.CheckIn.String()).
		Str("check_out", booking.CheckOut.String()).
		Str("origin", string(origin)).
		Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, booking)
	s.enqueueSync(ctx, booking, models.TaskUpsert)
	return booking, nil
}

func (s *BookingService) createBooking(ctx context.Context, in BookingInput, origin models.Origin) (*models.Booking, error) {
	if !origin.Valid() {
		return nil, domain.Validationf("unknown origin %q", origin)
	}
	roomNumber, err := s.validator.Required("room number", in.RoomNumber)
	if err != nil {
		return nil, err
	}
	checkIn, err := s.validator.Date(in.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := s.validator.Date(in.CheckOut)
	if err != nil {
		return nil, err
	}
	if !checkIn.Before(checkOut) {
		return nil, domain.Validationf("check-out date must be after check-in")
	}

	var email string
	if in.CustomerID == "" {
		if email, err = s.validator.Email(in.CustomerEmail); err != nil {
			return nil, err
		}
	}

	paid := in.Paid && origin == models.OriginAdmin

	var created models.Booking
	err = s.store.Update(ctx, func(snap *models.Snapshot) error {
		var customer *models.Customer
		if in.CustomerID != "" {
			_, customer = snap.FindCustomer(in.CustomerID)
		} else {
			_, customer = snap.FindCustomerByEmail(email)
		}
		if customer == nil {
			return domain.NotFoundf("customer not found")
		}

		_, room := snap.FindRoom(roomNumber)
		if room == nil {
			return domain.NotFoundf("room %s not found", roomNumber)
		}
		if !room.InService {
			return domain.Conflictf("room %s is out of service", roomNumber)
		}
		if !IsAvailable(snap.Bookings, roomNumber, checkIn, checkOut, "") {
			return domain.Conflictf("room %s is not available for the selected dates", roomNumber)
		}

		now := s.now().UTC()
		created = models.Booking{
			ID:           s.newID(),
			CustomerID:   customer.ID,
			RoomNumber:   room.Number,
			CheckIn:      checkIn,
			CheckOut:     checkOut,
			Status:       models.StatusConfirmed,
			Paid:         paid,
			Origin:       origin,
			CustomerName: customer.Name,
			RoomType:     room.Type,
			CreatedAt:    now,
		}
		if paid {
			created.PaidAt = &now
		}
		snap.Bookings = append(snap.Bookings, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CancelBooking moves a confirmed booking to cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.mutate(ctx, "cancel_booking", id, func(_ *models.Snapshot, b *models.Booking) error {
		if b.Status == models.StatusCancelled {
			return domain.Conflictf("booking is already cancelled")
		}
		now := s.now().UTC()
		b.Status = models.StatusCancelled
		b.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", id).Msg("Booking cancelled")
	s.publishEvent(events.EventBookingCancelled, booking)
	s.enqueueSync(ctx, booking, models.TaskUpdateStatus)
	return booking, nil
}

// ReactivateBooking confirms a cancelled booking again if its stay is still in
// the future, its customer and room still exist and the room is free.
func (s *BookingService) ReactivateBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.mutate(ctx, "reactivate_booking", id, func(snap *models.Snapshot, b *models.Booking) error {
		if b.Status != models.StatusCancelled {
			return domain.Conflictf("only cancelled bookings can be reactivated")
		}
		if !b.CheckIn.After(s.today()) {
			return domain.Validationf("cannot reactivate a booking whose check-in date has passed")
		}
		if _, c := snap.FindCustomer(b.CustomerID); c == nil {
			return domain.NotFoundf("customer not found")
		}
		_, room := snap.FindRoom(b.RoomNumber)
		if room == nil {
			return domain.NotFoundf("room %s not found", b.RoomNumber)
		}
		if !room.InService {
			return domain.Conflictf("room %s is out of service", b.RoomNumber)
		}
		if !IsAvailable(snap.Bookings, b.RoomNumber, b.CheckIn, b.CheckOut, b.ID) {
			return domain.Conflictf("room %s is no longer available for these dates", b.RoomNumber)
		}
		now := s.now().UTC()
		b.Status = models.StatusConfirmed
		b.ReactivatedAt = &now
		b.CancelledAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", id).Msg("Booking reactivated")
	s.publishEvent(events.EventBookingReactivated, booking)
	s.enqueueSync(ctx, booking, models.TaskUpdateStatus)
	return booking, nil
}

// TogglePayment flips the paid flag. A cancelled booking can only go from paid to unpaid.
func (s *BookingService) TogglePayment(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.mutate(ctx, "toggle_payment", id, func(_ *models.Snapshot, b *models.Booking) error {
		if b.Status == models.StatusCancelled && !b.Paid {
			return domain.Conflictf("cannot mark a cancelled booking as paid")
		}
		b.Paid = !b.Paid
		if b.Paid {
			now := s.now().UTC()
			b.PaidAt = &now
		} else {
			b.PaidAt = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", id).Bool("paid", booking.Paid).Msg("Booking payment changed")
	s.publishEvent(events.EventBookingPaymentChanged, booking)
	s.enqueueSync(ctx, booking, models.TaskUpsert)
	return booking, nil
}

// DeleteBooking removes a booking for good. Confirmed bookings with a future
// check-in must be cancelled first.
func (s *BookingService) DeleteBooking(ctx context.Context, id string) error {
	var removed models.Booking
	err := s.store.Update(ctx, func(snap *models.Snapshot) error {
		idx, b := snap.FindBooking(id)
		if b == nil {
			return domain.NotFoundf("booking not found")
		}
		if b.Status == models.StatusConfirmed && b.CheckIn.After(s.today()) {
			return domain.Conflictf("cannot delete an active booking, cancel it first")
		}
		removed = *b
		snap.Bookings = append(snap.Bookings[:idx], snap.Bookings[idx+1:]...)
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("delete_booking", err)
		return err
	}

	s.logger.Info().Str("booking_id", id).Msg("Booking deleted")
	s.publishEvent(events.EventBookingDeleted, &removed)
	s.enqueueSync(ctx, &removed, models.TaskDelete)
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var found models.Booking
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		_, b := snap.FindBooking(id)
		if b == nil {
			return domain.NotFoundf("booking not found")
		}
		found = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ListBookings returns every booking joined with the current customer and room.
func (s *BookingService) ListBookings(ctx context.Context) ([]models.BookingView, error) {
	var views []models.BookingView
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		views = make([]models.BookingView, 0, len(snap.Bookings))
		for i := range snap.Bookings {
			views = append(views, JoinBooking(snap, &snap.Bookings[i]))
		}
		return nil
	})
	return views, err
}

// CustomerBookings is the guest view of one customer's bookings. An unknown
// email yields an empty list.
func (s *BookingService) CustomerBookings(ctx context.Context, rawEmail string) ([]models.BookingView, error) {
	email, err := s.validator.Email(rawEmail)
	if err != nil {
		return nil, err
	}

	views := []models.BookingView{}
	err = s.store.View(ctx, func(snap *models.Snapshot) error {
		_, customer := snap.FindCustomerByEmail(email)
		if customer == nil {
			return nil
		}
		for i := range snap.Bookings {
			if snap.Bookings[i].CustomerID == customer.ID {
				views = append(views, JoinBooking(snap, &snap.Bookings[i]))
			}
		}
		return nil
	})
	return views, err
}

// BookingsInRange returns bookings whose stay intersects [from, to).
func (s *BookingService) BookingsInRange(ctx context.Context, from, to models.Date) ([]models.BookingView, error) {
	var views []models.BookingView
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		for i := range snap.Bookings {
			b := &snap.Bookings[i]
			if from.IsZero() || to.IsZero() || b.Overlaps(from, to) {
				views = append(views, JoinBooking(snap, b))
			}
		}
		return nil
	})
	return views, err
}

// JoinBooking resolves the booking's customer and room against the current
// catalog, substituting placeholders for missing records.
func JoinBooking(snap *models.Snapshot, b *models.Booking) models.BookingView {
	view := models.BookingView{
		Booking:      *b,
		CustomerName: models.CustomerNotFound,
		RoomType:     models.RoomNotFound,
	}
	if _, c := snap.FindCustomer(b.CustomerID); c != nil {
		view.CustomerName = c.Name
	}
	if _, r := snap.FindRoom(b.RoomNumber); r != nil {
		view.RoomType = string(r.Type)
		view.RoomPrice = r.Price
	}
	return view
}

// mutate applies fn to the booking with the given id inside one store update
// and returns a copy of the result.
func (s *BookingService) mutate(
	ctx context.Context,
	operation, id string,
	fn func(snap *models.Snapshot, b *models.Booking) error,
) (*models.Booking, error) {
	var result models.Booking
	err := s.store.Update(ctx, func(snap *models.Snapshot) error {
		_, b := snap.FindBooking(id)
		if b == nil {
			return domain.NotFoundf("booking not found")
		}
		if err := fn(snap, b); err != nil {
			return err
		}
		result = *b
		return nil
	})
	if err != nil {
		metrics.ObserveFailure(operation, err)
		return nil, err
	}
	return &result, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, events.NewBookingPayload(booking)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.syncWorker == nil {
		return
	}

	var status string
	if taskType == models.TaskUpdateStatus {
		status = string(booking.Status)
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
