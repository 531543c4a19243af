package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hotelbook/internal/database"
	"hotelbook/internal/models"
	"hotelbook/internal/service"
	"hotelbook/internal/validation"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig creates a JSON-backed config with one room and one booking.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "hotel.json")

	logger := zerolog.New(io.Discard)
	backend, err := database.NewFileStore(dataPath, &logger)
	require.NoError(t, err)
	store := database.NewStore(backend, &logger)
	v := validation.New()
	catalog := service.NewCatalogService(store, v, &logger)
	bookings := service.NewBookingService(store, v, nil, nil, &logger)

	ctx := context.Background()
	_, err = catalog.CreateRoom(ctx, service.RoomInput{Number: "101", Type: "Single", Price: "100"})
	require.NoError(t, err)
	_, err = catalog.CreateCustomer(ctx, service.CustomerInput{Name: "Ana Lima", Email: "ana@x.com", Phone: "3133334444"}, models.OriginAdmin)
	require.NoError(t, err)
	_, err = bookings.CreateBooking(ctx, service.BookingInput{
		CustomerEmail: "ana@x.com", RoomNumber: "101", CheckIn: "2099-01-10", CheckOut: "2099-01-12",
	}, models.OriginAdmin)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("HOTELCTL_TEST_HASH", string(hash))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := `storage:
  driver: json
  path: ` + dataPath + `
backup:
  storage_path: ` + filepath.Join(dir, "backups") + `
logging:
  output: stderr
admin:
  username: admin
  password_hash: "${HOTELCTL_TEST_HASH}"
  jwt_secret: "0123456789abcdef0123"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, dir
}

func TestHashPassword(t *testing.T) {
	out, err := execute(t, "hunter2\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))

	out, err = execute(t, "", "hash-password", "--password", "other")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("other")))

	_, err = execute(t, "", "hash-password")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "", "stats", "--config", cfgPath)
	require.NoError(t, err)

	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.TotalRooms)
	assert.Equal(t, 1, stats.ActiveBookings)
	assert.Equal(t, 100, stats.OccupancyPct)
}

func TestExportCommand(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "", "export", "--config", cfgPath, "--from", "2099-01-01", "--to", "2099-02-01", "--out", outDir)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(outDir, "bookings_2099-01-01_to_2099-02-01.xlsx"), path)
	assert.FileExists(t, path)

	_, err = execute(t, "", "export", "--config", cfgPath, "--from", "2099-02-01", "--to", "2099-01-01")
	assert.Error(t, err)

	_, err = execute(t, "", "export", "--config", cfgPath, "--from", "2099-02-01")
	assert.Error(t, err, "--to is required")
}

func TestBackupCommand(t *testing.T) {
	cfgPath, dir := writeConfig(t)

	out, err := execute(t, "", "backup", "--config", cfgPath)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestCommandsNeedConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	_, err := execute(t, "", "stats", "--config", missing)
	assert.Error(t, err)

	cfgPath, _ := writeConfig(t)
	_, err = execute(t, "", "sync-sheets", "--config", cfgPath)
	assert.EqualError(t, err, "google sheets is not configured")
	_, err = execute(t, "", "dead-letters", "--config", cfgPath)
	assert.EqualError(t, err, "redis is not configured")
}
