package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

// Store serializes every read-modify-write cycle over a Backend behind one mutex.
type Store struct {
	mu      sync.Mutex
	backend domain.Backend
	logger  *zerolog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(backend domain.Backend, logger *zerolog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Open picks the backend by driver name ("sqlite" or "json").
func Open(driver, path string, logger *zerolog.Logger) (domain.Backend, error) {
	switch driver {
	case "sqlite":
		db, err := NewDB(path, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "json":
		fs, err := NewFileStore(path, logger)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// View runs fn against the last saved snapshot. fn must not retain it.
func (s *Store) View(ctx context.Context, fn func(snap *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return fn(snap)
}

// Update runs fn on a private copy and saves it only if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(snap *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}

	if err := s.backend.Save(ctx, next); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save snapshot")
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}
