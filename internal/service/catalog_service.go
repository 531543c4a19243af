package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

// CatalogService manages customers and rooms.
type CatalogService struct {
	store     domain.Store
	validator domain.Validator
	logger    *zerolog.Logger
	now       func() time.Time
	newID     func() string
}

func NewCatalogService(store domain.Store, validator domain.Validator, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		validator: validator,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *CatalogService) validateCustomer(in CustomerInput) (models.Customer, error) {
	var c models.Customer
	var err error
	if c.Name, err = s.validator.Name(in.Name); err != nil {
		return c, err
	}
	if c.Email, err = s.validator.Email(in.Email); err != nil {
		return c, err
	}
	if c.Phone, err = s.validator.Phone(in.Phone); err != nil {
		return c, err
	}
	return c, nil
}

// CreateCustomer registers a customer. Emails are unique ignoring case.
func (s *CatalogService) CreateCustomer(ctx context.Context, in CustomerInput, origin models.Origin) (*models.Customer, error) {
	if !origin.Valid() {
		return nil, domain.Validationf("unknown origin %q", origin)
	}
	customer, err := s.validateCustomer(in)
	if err != nil {
		metrics.ObserveFailure("create_customer", err)
		return nil, err
	}

	err = s.store.Update(ctx, func(snap *models.Snapshot) error {
		if _, existing := snap.FindCustomerByEmail(customer.Email); existing != nil {
			return domain.Conflictf("email already registered")
		}
		customer.ID = s.newID()
		customer.Origin = origin
		customer.CreatedAt = s.now().UTC()
		snap.Customers = append(snap.Customers, customer)
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("create_customer", err)
		return nil, err
	}

	s.logger.Info().Str("customer_id", customer.ID).Str("origin", string(origin)).Msg("Customer created")
	return &customer, nil
}

func (s *CatalogService) UpdateCustomer(ctx context.Context, id string, in CustomerInput) (*models.Customer, error) {
	fields, err := s.validateCustomer(in)
	if err != nil {
		metrics.ObserveFailure("update_customer", err)
		return nil, err
	}

	var updated models.Customer
	err = s.store.Update(ctx, func(snap *models.Snapshot) error {
		_, c := snap.FindCustomer(id)
		if c == nil {
			return domain.NotFoundf("customer not found")
		}
		if _, other := snap.FindCustomerByEmail(fields.Email); other != nil && other.ID != id {
			return domain.Conflictf("email already registered")
		}
		c.Name = fields.Name
		c.Email = fields.Email
		c.Phone = fields.Phone
		updated = *c
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("update_customer", err)
		return nil, err
	}

	s.logger.Info().Str("customer_id", id).Msg("Customer updated")
	return &updated, nil
}

// DeleteCustomer refuses while any non-cancelled booking references the customer.
func (s *CatalogService) DeleteCustomer(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(snap *models.Snapshot) error {
		idx, c := snap.FindCustomer(id)
		if c == nil {
			return domain.NotFoundf("customer not found")
		}
		for i := range snap.Bookings {
			if snap.Bookings[i].CustomerID == id && snap.Bookings[i].IsActive() {
				return domain.Conflictf("cannot delete a customer with active bookings")
			}
		}
		snap.Customers = append(snap.Customers[:idx], snap.Customers[idx+1:]...)
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("delete_customer", err)
		return err
	}

	s.logger.Info().Str("customer_id", id).Msg("Customer deleted")
	return nil
}

func (s *CatalogService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		customers = append([]models.Customer{}, snap.Customers...)
		return nil
	})
	return customers, err
}

func (s *CatalogService) GetCustomerByEmail(ctx context.Context, rawEmail string) (*models.Customer, error) {
	email, err := s.validator.Email(rawEmail)
	if err != nil {
		return nil, err
	}

	var found models.Customer
	err = s.store.View(ctx, func(snap *models.Snapshot) error {
		_, c := snap.FindCustomerByEmail(email)
		if c == nil {
			return domain.NotFoundf("customer not found")
		}
		found = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (s *CatalogService) validateRoom(in RoomInput) (models.Room, error) {
	var r models.Room
	var err error
	if r.Number, err = s.validator.RoomNumber(in.Number); err != nil {
		return r, err
	}
	if r.Type, err = s.validator.RoomType(in.Type); err != nil {
		return r, err
	}
	if r.Price, err = s.validator.Price(in.Price); err != nil {
		return r, err
	}
	return r, nil
}

func (s *CatalogService) CreateRoom(ctx context.Context, in RoomInput) (*models.Room, error) {
	room, err := s.validateRoom(in)
	if err != nil {
		metrics.ObserveFailure("create_room", err)
		return nil, err
	}
	room.InService = in.InService == nil || *in.InService

	err = s.store.Update(ctx, func(snap *models.Snapshot) error {
		if _, existing := snap.FindRoom(room.Number); existing != nil {
			return domain.Conflictf("room number %s already exists", room.Number)
		}
		room.CreatedAt = s.now().UTC()
		snap.Rooms = append(snap.Rooms, room)
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("create_room", err)
		return nil, err
	}

	s.logger.Info().Str("room", room.Number).Str("type", string(room.Type)).Msg("Room created")
	return &room, nil
}

// UpdateRoom may renumber the room; bookings follow the new number. Renumbering
// fails if an active booking would clash with one left on the target number.
func (s *CatalogService) UpdateRoom(ctx context.Context, number string, in RoomInput) (*models.Room, error) {
	fields, err := s.validateRoom(in)
	if err != nil {
		metrics.ObserveFailure("update_room", err)
		return nil, err
	}

	var updated models.Room
	err = s.store.Update(ctx, func(snap *models.Snapshot) error {
		_, r := snap.FindRoom(number)
		if r == nil {
			return domain.NotFoundf("room %s not found", number)
		}
		if fields.Number != number {
			if _, other := snap.FindRoom(fields.Number); other != nil {
				return domain.Conflictf("room number %s already exists", fields.Number)
			}
			for i := range snap.Bookings {
				b := &snap.Bookings[i]
				if b.RoomNumber != number || !b.IsActive() {
					continue
				}
				if !IsAvailable(snap.Bookings, fields.Number, b.CheckIn, b.CheckOut, b.ID) {
					return domain.Conflictf("booking %s clashes with a booking already on room %s", b.ID, fields.Number)
				}
			}
			for i := range snap.Bookings {
				if snap.Bookings[i].RoomNumber == number {
					snap.Bookings[i].RoomNumber = fields.Number
				}
			}
		}
		r.Number = fields.Number
		r.Type = fields.Type
		r.Price = fields.Price
		if in.InService != nil {
			r.InService = *in.InService
		}
		updated = *r
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("update_room", err)
		return nil, err
	}

	s.logger.Info().Str("room", number).Str("new_number", updated.Number).Msg("Room updated")
	return &updated, nil
}

// DeleteRoom refuses while any non-cancelled booking references the room.
func (s *CatalogService) DeleteRoom(ctx context.Context, number string) error {
	err := s.store.Update(ctx, func(snap *models.Snapshot) error {
		idx, r := snap.FindRoom(number)
		if r == nil {
			return domain.NotFoundf("room %s not found", number)
		}
		for i := range snap.Bookings {
			if snap.Bookings[i].RoomNumber == number && snap.Bookings[i].IsActive() {
				return domain.Conflictf("cannot delete a room with active bookings")
			}
		}
		snap.Rooms = append(snap.Rooms[:idx], snap.Rooms[idx+1:]...)
		return nil
	})
	if err != nil {
		metrics.ObserveFailure("delete_room", err)
		return err
	}

	s.logger.Info().Str("room", number).Msg("Room deleted")
	return nil
}

func (s *CatalogService) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		rooms = append([]models.Room{}, snap.Rooms...)
		return nil
	})
	return rooms, err
}

func (s *CatalogService) ListRoomsInService(ctx context.Context) ([]models.Room, error) {
	rooms := []models.Room{}
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		for _, r := range snap.Rooms {
			if r.InService {
				rooms = append(rooms, r)
			}
		}
		return nil
	})
	return rooms, err
}

func (s *CatalogService) GetRoomByNumber(ctx context.Context, number string) (*models.Room, error) {
	var found models.Room
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		_, r := snap.FindRoom(number)
		if r == nil {
			return domain.NotFoundf("room %s not found", number)
		}
		found = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// AvailableRooms lists in-service rooms free for the whole period.
func (s *CatalogService) AvailableRooms(ctx context.Context, rawCheckIn, rawCheckOut string) ([]models.Room, error) {
	checkIn, err := s.validator.Date(rawCheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := s.validator.Date(rawCheckOut)
	if err != nil {
		return nil, err
	}
	if !checkIn.Before(checkOut) {
		return nil, domain.Validationf("check-out date must be after check-in")
	}

	var rooms []models.Room
	err = s.store.View(ctx, func(snap *models.Snapshot) error {
		rooms = AvailableRooms(snap, checkIn, checkOut)
		return nil
	})
	return rooms, err
}

// SeedRooms inserts rooms only when the catalog is empty. It returns how many were added.
func (s *CatalogService) SeedRooms(ctx context.Context, inputs []RoomInput) (int, error) {
	rooms := make([]models.Room, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		room, err := s.validateRoom(in)
		if err != nil {
			return 0, err
		}
		if seen[room.Number] {
			return 0, domain.Conflictf("duplicate room number %s in seed", room.Number)
		}
		seen[room.Number] = true
		room.InService = in.InService == nil || *in.InService
		rooms = append(rooms, room)
	}

	added := 0
	err := s.store.Update(ctx, func(snap *models.Snapshot) error {
		if len(snap.Rooms) > 0 {
			return nil
		}
		now := s.now().UTC()
		for _, r := range rooms {
			r.CreatedAt = now
			snap.Rooms = append(snap.Rooms, r)
		}
		added = len(rooms)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.logger.Info().Int("rooms", added).Msg("Room catalog seeded")
	}
	return added, nil
}
