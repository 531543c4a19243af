package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedRooms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rooms:
  - number: 101
    type: Single
    price: 120
  - number: "102"
    type: Couple
    price: "180.50"
    in_service: false
`), 0o600))

	rooms, err := LoadSeedRooms(path)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "101", rooms[0].Number)
	assert.Equal(t, "120", rooms[0].Price)
	assert.Nil(t, rooms[0].InService)
	require.NotNil(t, rooms[1].InService)
	assert.False(t, *rooms[1].InService)
	assert.Equal(t, "180.50", rooms[1].Price)
}

func TestLoadSeedRoomsErrors(t *testing.T) {
	_, err := LoadSeedRooms(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rooms: [\n"), 0o600))
	_, err = LoadSeedRooms(path)
	assert.Error(t, err)
}
