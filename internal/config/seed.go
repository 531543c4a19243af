package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// SeedRoom is one room of the initial catalog file.
type SeedRoom struct {
	Number    string `yaml:"number"`
	Type      string `yaml:"type"`
	Price     string `yaml:"price"`
	InService *bool  `yaml:"in_service"`
}

// LoadSeedRooms reads the rooms list used to fill an empty catalog.
func LoadSeedRooms(path string) ([]SeedRoom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed struct {
		Rooms []SeedRoom `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return seed.Rooms, nil
}
