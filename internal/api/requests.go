package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"hotelbook/internal/service"
)

// flexString accepts a JSON string or number, so prices and room numbers can be
// sent either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(strings.TrimSpace(n.String()))
	return nil
}

type customerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r customerRequest) input() service.CustomerInput {
	return service.CustomerInput{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

type roomRequest struct {
	Number    flexString `json:"number"`
	Type      string     `json:"type"`
	Price     flexString `json:"price"`
	InService *bool      `json:"in_service"`
}

func (r roomRequest) input() service.RoomInput {
	return service.RoomInput{
		Number:    string(r.Number),
		Type:      r.Type,
		Price:     string(r.Price),
		InService: r.InService,
	}
}

type guestBookingRequest struct {
	CustomerEmail string     `json:"customer_email"`
	RoomNumber    flexString `json:"room_number"`
	CheckIn       string     `json:"check_in"`
	CheckOut      string     `json:"check_out"`
}

func (r guestBookingRequest) input() service.BookingInput {
	return service.BookingInput{
		CustomerEmail: r.CustomerEmail,
		RoomNumber:    string(r.RoomNumber),
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
	}
}

type adminBookingRequest struct {
	CustomerID    string     `json:"customer_id"`
	CustomerEmail string     `json:"customer_email"`
	RoomNumber    flexString `json:"room_number"`
	CheckIn       string     `json:"check_in"`
	CheckOut      string     `json:"check_out"`
	Paid          bool       `json:"paid"`
}

func (r adminBookingRequest) input() service.BookingInput {
	return service.BookingInput{
		CustomerID:    r.CustomerID,
		CustomerEmail: r.CustomerEmail,
		RoomNumber:    string(r.RoomNumber),
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Paid:          r.Paid,
	}
}

type hotelInfoRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
