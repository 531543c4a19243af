package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hotelbook/internal/api"
	"hotelbook/internal/config"
	"hotelbook/internal/database"
	"hotelbook/internal/export"
	"hotelbook/internal/google"
	"hotelbook/internal/logging"
	"hotelbook/internal/models"
	"hotelbook/internal/repository"
	"hotelbook/internal/service"
	"hotelbook/internal/validation"
	"hotelbook/internal/worker"
)

const commandTimeout = 2 * time.Minute

func newRootCmd() *cobra.Command {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	cmd := &cobra.Command{
		Use:           "hotelctl",
		Short:         "Hotel booking maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", configPath, "path to config.yaml")

	load := func() (*config.Config, error) { return config.Load(configPath) }
	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newBackupCmd(load))
	cmd.AddCommand(newExportCmd(load))
	cmd.AddCommand(newStatsCmd(load))
	cmd.AddCommand(newSyncSheetsCmd(load))
	cmd.AddCommand(newDeadLettersCmd(load))
	return cmd
}

type configLoader func() (*config.Config, error)

// hotel is an opened store with the services over it.
type hotel struct {
	cfg      *config.Config
	store    *database.Store
	bookings *service.BookingService
	catalog  *service.CatalogService
	profile  *service.HotelService
	logger   *zerolog.Logger
	closer   io.Closer
}

func openHotel(load configLoader) (*hotel, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logging.Component(logger, "hotelctl")

	backend, err := database.Open(cfg.Storage.Driver, cfg.Storage.Path, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	store := database.NewStore(backend, logger)
	v := validation.New()
	bookings := service.NewBookingService(store, v, nil, nil, logger)
	if loc, err := cfg.Hotel.Location(); err == nil {
		bookings.SetLocation(loc)
	}

	return &hotel{
		cfg:      cfg,
		store:    store,
		bookings: bookings,
		catalog:  service.NewCatalogService(store, v, logger),
		profile:  service.NewHotelService(store, v, logger),
		logger:   logger,
		closer:   closer,
	}, nil
}

func (h *hotel) Close() {
	_ = h.store.Close()
	if h.closer != nil {
		_ = h.closer.Close()
	}
}

func newHashPasswordCmd() *cobra.Command {
	var password string
	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash for admin.password_hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = strings.TrimRight(string(raw), "\r\n")
			}
			hash, err := api.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	c.Flags().StringVar(&password, "password", "", "password to hash (read from stdin when empty)")
	return c
}

func newBackupCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write one backup of the storage file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			path, err := database.NewBackupService(cfg.Storage, cfg.Backup, &logger).PerformBackup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newExportCmd(load configLoader) *cobra.Command {
	var from, to, out string
	c := &cobra.Command{
		Use:   "export",
		Short: "Write the bookings and occupancy workbook for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := models.ParseDate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDate, err := models.ParseDate(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if !fromDate.Before(toDate) {
				return errors.New("--from must be before --to")
			}

			h, err := openHotel(load)
			if err != nil {
				return err
			}
			defer h.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			rooms, err := h.catalog.ListRooms(ctx)
			if err != nil {
				return err
			}
			views, err := h.bookings.BookingsInRange(ctx, fromDate, toDate)
			if err != nil {
				return err
			}

			if out == "" {
				out = h.cfg.Exports.Path
			}
			path, err := export.SaveFile(out, export.Report{From: fromDate, To: toDate, Rooms: rooms, Bookings: views})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	c.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "day after the last night, YYYY-MM-DD")
	c.Flags().StringVar(&out, "out", "", "output directory (defaults to exports.path)")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}

func newStatsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHotel(load)
			if err != nil {
				return err
			}
			defer h.Close()

			stats, err := h.profile.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func newSyncSheetsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-sheets",
		Short: "Rewrite the bookings spreadsheet from storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHotel(load)
			if err != nil {
				return err
			}
			defer h.Close()
			if !h.cfg.Google.Enabled() {
				return errors.New("google sheets is not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			sheetsService, err := google.NewSheetsService(ctx, h.cfg.Google, h.logger)
			if err != nil {
				return err
			}

			views, err := h.bookings.ListBookings(ctx)
			if err != nil {
				return err
			}
			bookings := make([]models.Booking, 0, len(views))
			for _, v := range views {
				bookings = append(bookings, v.Booking)
			}
			if err := sheetsService.ReplaceBookings(ctx, bookings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d bookings\n", len(bookings))
			return nil
		},
	}
}

func newDeadLettersCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "dead-letters",
		Short: "List spreadsheet sync tasks that ran out of retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Redis.Address == "" {
				return errors.New("redis is not configured")
			}

			client := repository.NewRedisClient(cfg.Redis)
			defer repository.Close(client)

			logger := zerolog.New(cmd.ErrOrStderr())
			w := worker.NewSheetsWorker(nil, client, worker.DefaultRetryPolicy(), &logger)
			tasks, err := w.DeadLetters(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tasks)
		},
	}
}
