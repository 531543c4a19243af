package models

import (
	"fmt"
	"strings"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// RoomType is the closed set of room categories.
type RoomType string

const (
	RoomSingle RoomType = "Single"
	RoomCouple RoomType = "Couple"
	RoomLuxury RoomType = "Luxury"
	RoomSuite  RoomType = "Suite"
	RoomFamily RoomType = "Family"
)

// RoomTypes lists room types in display order.
var RoomTypes = []RoomType{RoomSingle, RoomCouple, RoomLuxury, RoomSuite, RoomFamily}

// ParseRoomType matches case-insensitively and returns the canonical spelling.
func ParseRoomType(raw string) (RoomType, error) {
	trimmed := strings.TrimSpace(raw)
	for _, t := range RoomTypes {
		if strings.EqualFold(string(t), trimmed) {
			return t, nil
		}
	}
	names := make([]string, len(RoomTypes))
	for i, t := range RoomTypes {
		names[i] = string(t)
	}
	return "", fmt.Errorf("room type must be one of: %s", strings.Join(names, ", "))
}

func (t RoomType) Valid() bool {
	_, err := ParseRoomType(string(t))
	return err == nil
}

// Origin tells which API surface created a record.
type Origin string

const (
	OriginGuest Origin = "guest"
	OriginAdmin Origin = "admin"
)

func (o Origin) Valid() bool {
	return o == OriginGuest || o == OriginAdmin
}

const (
	// Placeholders used by live-joined views when a reference no longer resolves.
	CustomerNotFound = "Customer not found"
	RoomNotFound     = "Room not found"

	DefaultHotelName    = "Infinity Hotel"
	DefaultHotelAddress = "Av. do Contorno, 6480 - Savassi, Belo Horizonte"
	DefaultHotelPhone   = "(31) 3333-4444"

	// WorkerQueueSize is the capacity of the in-memory sync queue.
	WorkerQueueSize = 128

	// SheetsCacheTTL lifetime of the Sheets row index cache, seconds.
	SheetsCacheTTL = 60 * 60
)
