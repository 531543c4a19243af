package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"hotelbook/internal/config"
)

// BackupService periodically copies the storage file into the backup directory.
type BackupService struct {
	driver string
	path   string
	config config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(storage config.StorageConfig, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		driver: storage.Driver,
		path:   storage.Path,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	interval := 24 * time.Hour
	if s.config.Schedule != "" {
		if d, err := time.ParseDuration(s.config.Schedule); err == nil && d > 0 {
			interval = d
		} else {
			s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("Failed to parse backup schedule, using default 24h")
		}
	}
	s.logger.Info().Dur("interval", interval).Msg("Backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one backup and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := os.Stat(s.path); err != nil {
		return "", fmt.Errorf("storage file unavailable: %w", err)
	}

	ext := filepath.Ext(s.path)
	if ext == "" {
		ext = ".bak"
	}
	backupPath := filepath.Join(s.config.StoragePath,
		fmt.Sprintf("backup_%s%s", s.now().Format("20060102_150405"), ext))

	if s.driver == "sqlite" {
		err := s.vacuumInto(ctx, backupPath)
		if err == nil {
			s.logger.Info().Str("path", backupPath).Msg("Backup completed successfully")
			return backupPath, nil
		}
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
	}

	if err := s.copyFile(backupPath); err != nil {
		return "", err
	}
	s.logger.Info().Str("path", backupPath).Msg("File copy backup completed")
	return backupPath, nil
}

func (s *BackupService) vacuumInto(ctx context.Context, backupPath string) error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	escaped := strings.ReplaceAll(backupPath, "'", "''")
	_, err = db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped))
	return err
}

// copyFile is not atomic for SQLite under concurrent writes.
func (s *BackupService) copyFile(backupPath string) error {
	source, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open storage file: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("failed to copy storage file: %w", err)
	}
	return destination.Sync()
}

// CleanupOldBackups removes backup files older than the retention window.
func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "backup_") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Failed to delete old backup")
			}
		}
	}
}
