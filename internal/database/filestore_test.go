package database

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbook/internal/models"
)

func newTestFileStore(t *testing.T) (*FileStore, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data", "hotel.json"), &logger)
	require.NoError(t, err)
	return fs, &buf
}

func TestFileStore_MissingFileIsDefault(t *testing.T) {
	fs, _ := newTestFileStore(t)

	snap, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultHotelName, snap.HotelProfile.Name)
	assert.Empty(t, snap.Rooms)
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, fs.Save(ctx, want))

	raw, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"hotelProfile"`)
	assert.Contains(t, string(raw), `"price": "450.00"`)

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Customers, got.Customers)
	assert.Equal(t, want.Rooms, got.Rooms)
	assert.Equal(t, want.Bookings[0].CheckOut, got.Bookings[0].CheckOut)

	leftovers, err := filepath.Glob(fs.Path() + ".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStore_CorruptFileIsMovedAside(t *testing.T) {
	fs, logs := newTestFileStore(t)
	fs.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, os.WriteFile(fs.Path(), []byte("{not json"), 0o644))

	snap, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Customers)
	assert.Equal(t, models.DefaultHotelProfile(), snap.HotelProfile)

	aside := fs.Path() + ".corrupt-20250501T120000"
	raw, err := os.ReadFile(aside)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
	assert.FileExists(t, fs.Path())
	assert.Contains(t, logs.String(), "corrupt")
}

func TestFileStore_CanceledContext(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fs.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, fs.Save(ctx, models.DefaultSnapshot()), context.Canceled)
}
