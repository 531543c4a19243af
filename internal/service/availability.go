package service

import "hotelbook/internal/models"

// IsAvailable reports whether roomNumber is free for [checkIn, checkOut).
// Cancelled bookings and the booking with excludeBookingID are ignored.
func IsAvailable(bookings []models.Booking, roomNumber string, checkIn, checkOut models.Date, excludeBookingID string) bool {
	for i := range bookings {
		b := &bookings[i]
		if b.RoomNumber != roomNumber || !b.IsActive() {
			continue
		}
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		if b.Overlaps(checkIn, checkOut) {
			return false
		}
	}
	return true
}

// AvailableRooms returns the in-service rooms free for the whole period.
func AvailableRooms(snap *models.Snapshot, checkIn, checkOut models.Date) []models.Room {
	rooms := make([]models.Room, 0, len(snap.Rooms))
	for _, r := range snap.Rooms {
		if r.InService && IsAvailable(snap.Bookings, r.Number, checkIn, checkOut, "") {
			rooms = append(rooms, r)
		}
	}
	return rooms
}
