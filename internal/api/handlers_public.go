package api

import (
	"net/http"

	"hotelbook/internal/models"
)

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.cfg.App.Name + " API",
		"version": s.cfg.App.Version,
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the store can be read.
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Hotel.GetProfile(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handlePublicHotelInfo(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Hotel.GetProfile(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *HTTPServer) handlePublicRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.svc.Catalog.ListRoomsInService(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *HTTPServer) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms, err := s.svc.Catalog.AvailableRooms(r.Context(), q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *HTTPServer) handlePublicCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	customer, err := s.svc.Catalog.CreateCustomer(r.Context(), req.input(), models.OriginGuest)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *HTTPServer) handlePublicCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req guestBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.CreateBooking(r.Context(), req.input(), models.OriginGuest)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleCustomerBookings(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Bookings.CustomerBookings(r.Context(), r.PathValue("email"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.logger.Warn().Str("username", req.Username).Str("remote", clientIP(r)).Msg("Admin login failed")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.auth.TTL().Seconds()),
	})
}
