package service

// CustomerInput carries raw customer fields before validation.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// RoomInput carries raw room fields. A nil InService keeps the current value
// on update and means true on create.
type RoomInput struct {
	Number    string
	Type      string
	Price     string
	InService *bool
}

// BookingInput identifies the customer by ID or, when CustomerID is empty, by email.
type BookingInput struct {
	CustomerID    string
	CustomerEmail string
	RoomNumber    string
	CheckIn       string
	CheckOut      string
	Paid          bool
}

type HotelProfileInput struct {
	Name    string
	Address string
	Phone   string
}
