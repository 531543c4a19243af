package service

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

// HotelService owns the hotel profile and dashboard statistics.
type HotelService struct {
	store     domain.Store
	validator domain.Validator
	logger    *zerolog.Logger
}

func NewHotelService(store domain.Store, validator domain.Validator, logger *zerolog.Logger) *HotelService {
	return &HotelService{store: store, validator: validator, logger: logger}
}

func (s *HotelService) GetProfile(ctx context.Context) (models.HotelProfile, error) {
	var profile models.HotelProfile
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		profile = snap.HotelProfile
		return nil
	})
	return profile, err
}

func (s *HotelService) UpdateProfile(ctx context.Context, in HotelProfileInput) (models.HotelProfile, error) {
	var profile models.HotelProfile
	var err error
	if profile.Name, err = s.validator.Name(in.Name); err != nil {
		return models.HotelProfile{}, err
	}
	if profile.Address, err = s.validator.Required("address", in.Address); err != nil {
		return models.HotelProfile{}, err
	}
	if profile.Phone, err = s.validator.Phone(in.Phone); err != nil {
		return models.HotelProfile{}, err
	}

	err = s.store.Update(ctx, func(snap *models.Snapshot) error {
		snap.HotelProfile = profile
		return nil
	})
	if err != nil {
		return models.HotelProfile{}, err
	}

	s.logger.Info().Str("name", profile.Name).Msg("Hotel profile updated")
	return profile, nil
}

// ApplyDefaults replaces the built-in profile with configured values while the
// stored profile has never been edited.
func (s *HotelService) ApplyDefaults(ctx context.Context, defaults models.HotelProfile) error {
	return s.store.Update(ctx, func(snap *models.Snapshot) error {
		if snap.HotelProfile != models.DefaultHotelProfile() {
			return nil
		}
		if defaults.Name != "" {
			snap.HotelProfile.Name = defaults.Name
		}
		if defaults.Address != "" {
			snap.HotelProfile.Address = defaults.Address
		}
		if defaults.Phone != "" {
			snap.HotelProfile.Phone = defaults.Phone
		}
		return nil
	})
}

func (s *HotelService) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	err := s.store.View(ctx, func(snap *models.Snapshot) error {
		stats = ComputeStats(snap)
		return nil
	})
	return stats, err
}

// ComputeStats summarizes a snapshot. Occupancy is active bookings per room,
// rounded half to even.
func ComputeStats(snap *models.Snapshot) models.DashboardStats {
	stats := models.DashboardStats{
		TotalRooms:     len(snap.Rooms),
		TotalCustomers: len(snap.Customers),
		TotalBookings:  len(snap.Bookings),
	}
	for _, r := range snap.Rooms {
		if r.InService {
			stats.RoomsInService++
		}
	}
	for i := range snap.Bookings {
		b := &snap.Bookings[i]
		if b.IsActive() {
			stats.ActiveBookings++
			if !b.Paid {
				stats.PendingBookings++
			}
		}
		if b.Paid {
			stats.PaidBookings++
		}
	}
	if stats.TotalRooms > 0 {
		ratio := float64(stats.ActiveBookings) / float64(stats.TotalRooms) * 100
		stats.OccupancyPct = int(math.RoundToEven(ratio))
	}
	return stats
}
