package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/export"
	"hotelbook/internal/models"
	"hotelbook/internal/service"
)

const defaultExportDays = 30

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(claimsKey).(*Claims)
	resp := map[string]any{"valid": true}
	if claims != nil {
		resp["username"] = claims.Subject
		if claims.ExpiresAt != nil {
			resp["expires_at"] = claims.ExpiresAt.Time.UTC()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Hotel.DashboardStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.svc.Catalog.ListCustomers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *HTTPServer) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	customer, err := s.svc.Catalog.CreateCustomer(r.Context(), req.input(), models.OriginAdmin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *HTTPServer) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	customer, err := s.svc.Catalog.UpdateCustomer(r.Context(), r.PathValue("id"), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *HTTPServer) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.DeleteCustomer(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "customer deleted"})
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.svc.Catalog.ListRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *HTTPServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	room, err := s.svc.Catalog.CreateRoom(r.Context(), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *HTTPServer) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	room, err := s.svc.Catalog.UpdateRoom(r.Context(), r.PathValue("number"), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.DeleteRoom(r.Context(), r.PathValue("number")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "room deleted"})
}

// handleListBookings returns every booking, or those intersecting ?from=&to= when both are given.
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		views []models.BookingView
		err   error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		var from, to models.Date
		if from, to, err = parsePeriod(q.Get("from"), q.Get("to")); err == nil {
			views, err = s.svc.Bookings.BookingsInRange(r.Context(), from, to)
		}
	} else {
		views, err = s.svc.Bookings.ListBookings(r.Context())
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []models.BookingView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req adminBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.CreateBooking(r.Context(), req.input(), models.OriginAdmin)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Bookings.DeleteBooking(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "booking deleted"})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	s.bookingTransition(w, r, s.svc.Bookings.CancelBooking)
}

func (s *HTTPServer) handleTogglePayment(w http.ResponseWriter, r *http.Request) {
	s.bookingTransition(w, r, s.svc.Bookings.TogglePayment)
}

func (s *HTTPServer) handleReactivateBooking(w http.ResponseWriter, r *http.Request) {
	s.bookingTransition(w, r, s.svc.Bookings.ReactivateBooking)
}

func (s *HTTPServer) bookingTransition(
	w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string) (*models.Booking, error),
) {
	booking, err := fn(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawFrom, rawTo := q.Get("from"), q.Get("to")
	if rawFrom == "" {
		loc, _ := s.cfg.Hotel.Location()
		rawFrom = models.DateIn(time.Now(), loc).String()
	}
	if rawTo == "" {
		from, err := models.ParseDate(rawFrom)
		if err != nil {
			s.writeServiceError(w, r, domain.Validationf("invalid from date; expected YYYY-MM-DD"))
			return
		}
		rawTo = from.AddDays(defaultExportDays).String()
	}
	from, to, err := parsePeriod(rawFrom, rawTo)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rooms, err := s.svc.Catalog.ListRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	views, err := s.svc.Bookings.BookingsInRange(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.Report{From: from, To: to, Rooms: rooms, Bookings: views}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleGetHotelInfo(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Hotel.GetProfile(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *HTTPServer) handleUpdateHotelInfo(w http.ResponseWriter, r *http.Request) {
	var req hotelInfoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	profile, err := s.svc.Hotel.UpdateProfile(r.Context(), service.HotelProfileInput{
		Name: req.Name, Address: req.Address, Phone: req.Phone,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func parsePeriod(rawFrom, rawTo string) (models.Date, models.Date, error) {
	from, err := models.ParseDate(strings.TrimSpace(rawFrom))
	if err != nil {
		return models.Date{}, models.Date{}, domain.Validationf("invalid from date; expected YYYY-MM-DD")
	}
	to, err := models.ParseDate(strings.TrimSpace(rawTo))
	if err != nil {
		return models.Date{}, models.Date{}, domain.Validationf("invalid to date; expected YYYY-MM-DD")
	}
	if !from.Before(to) {
		return models.Date{}, models.Date{}, domain.Validationf("from must be before to")
	}
	return from, to, nil
}
