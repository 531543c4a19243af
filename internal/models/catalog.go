package models

import "time"

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

type Room struct {
	Number    string    `json:"number"`
	Type      RoomType  `json:"type"`
	Price     Money     `json:"price"`
	InService bool      `json:"in_service"`
	CreatedAt time.Time `json:"created_at"`
}

type HotelProfile struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func DefaultHotelProfile() HotelProfile {
	return HotelProfile{
		Name:    DefaultHotelName,
		Address: DefaultHotelAddress,
		Phone:   DefaultHotelPhone,
	}
}

// DashboardStats summarizes the dataset for the admin dashboard.
type DashboardStats struct {
	TotalRooms      int `json:"total_rooms"`
	RoomsInService  int `json:"rooms_in_service"`
	TotalCustomers  int `json:"total_customers"`
	ActiveBookings  int `json:"active_bookings"`
	TotalBookings   int `json:"total_bookings"`
	PaidBookings    int `json:"paid_bookings"`
	PendingBookings int `json:"pending_bookings"`
	OccupancyPct    int `json:"occupancy_pct"`
}
