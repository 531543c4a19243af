package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"hotelbook/internal/models"
)

// FileStore keeps the snapshot in a single JSON document.
type FileStore struct {
	path   string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewFileStore(path string, logger *zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logger.Info().Str("path", path).Msg("JSON storage initialized")
	return &FileStore{path: path, logger: logger, now: time.Now}, nil
}

func (f *FileStore) Path() string {
	return f.path
}

// Load returns the default snapshot when the file is missing. A file that cannot be
// decoded is moved aside to <path>.corrupt-<timestamp> and replaced by the default.
func (f *FileStore) Load(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.DefaultSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return f.recoverCorrupt(ctx, err)
	}
	snap.Normalize()
	return &snap, nil
}

func (f *FileStore) recoverCorrupt(ctx context.Context, cause error) (*models.Snapshot, error) {
	aside := fmt.Sprintf("%s.corrupt-%s", f.path, f.now().UTC().Format("20060102T150405"))
	f.logger.Warn().Err(cause).Str("path", f.path).Str("moved_to", aside).
		Msg("Snapshot file is corrupt, starting from an empty dataset")

	if err := os.Rename(f.path, aside); err != nil {
		return nil, fmt.Errorf("failed to move corrupt snapshot aside: %w", err)
	}

	snap := models.DefaultSnapshot()
	if err := f.Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save writes to a temp file and renames it over the target.
func (f *FileStore) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
