package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelbook/internal/config"
	"hotelbook/internal/domain"
	"hotelbook/internal/metrics"
	"hotelbook/internal/service"
)

const maxBodyBytes = 1 << 20

// Services are the application services behind the HTTP API.
type Services struct {
	Bookings *service.BookingService
	Catalog  *service.CatalogService
	Hotel    *service.HotelService
}

// HTTPServer exposes the public booking API and the admin API.
type HTTPServer struct {
	cfg          *config.Config
	svc          Services
	auth         *Auth
	publicLimit  domain.RateLimiter
	adminLimiter *tokenLimiter
	server       *http.Server
	logger       *zerolog.Logger
}

// NewHTTPServer wires routes; publicLimit may be nil to disable guest rate limiting.
func NewHTTPServer(cfg *config.Config, svc Services, publicLimit domain.RateLimiter, logger *zerolog.Logger) (*HTTPServer, error) {
	auth, err := NewAuth(cfg.Admin)
	if err != nil {
		return nil, err
	}

	srv := &HTTPServer{
		cfg:          cfg,
		svc:          svc,
		auth:         auth,
		publicLimit:  publicLimit,
		adminLimiter: newTokenLimiter(cfg.RateLimit),
		logger:       logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return srv, nil
}

// Handler returns the full middleware chain around the router.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	origins := s.cfg.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})

	return s.requestID(s.logging(s.recoverer(corsHandler(mux))))
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	public := func(h http.HandlerFunc) http.Handler { return s.publicRateLimit(h) }
	mux.Handle("GET /api/public/hotel-info", public(s.handlePublicHotelInfo))
	mux.Handle("GET /api/public/rooms", public(s.handlePublicRooms))
	mux.Handle("GET /api/public/rooms/available", public(s.handleAvailableRooms))
	mux.Handle("POST /api/public/customers", public(s.handlePublicCreateCustomer))
	mux.Handle("POST /api/public/bookings", public(s.handlePublicCreateBooking))
	mux.Handle("GET /api/public/customers/{email}/bookings", public(s.handleCustomerBookings))

	mux.Handle("POST /api/admin/login", public(s.handleLogin))

	admin := func(h http.HandlerFunc) http.Handler { return s.requireAdmin(h) }
	mux.Handle("GET /api/admin/verify", admin(s.handleVerify))
	mux.Handle("GET /api/admin/dashboard/stats", admin(s.handleDashboardStats))

	mux.Handle("GET /api/admin/customers", admin(s.handleListCustomers))
	mux.Handle("POST /api/admin/customers", admin(s.handleCreateCustomer))
	mux.Handle("PUT /api/admin/customers/{id}", admin(s.handleUpdateCustomer))
	mux.Handle("DELETE /api/admin/customers/{id}", admin(s.handleDeleteCustomer))

	mux.Handle("GET /api/admin/rooms", admin(s.handleListRooms))
	mux.Handle("POST /api/admin/rooms", admin(s.handleCreateRoom))
	mux.Handle("PUT /api/admin/rooms/{number}", admin(s.handleUpdateRoom))
	mux.Handle("DELETE /api/admin/rooms/{number}", admin(s.handleDeleteRoom))

	mux.Handle("GET /api/admin/bookings", admin(s.handleListBookings))
	mux.Handle("POST /api/admin/bookings", admin(s.handleCreateBooking))
	mux.Handle("GET /api/admin/bookings/export.xlsx", admin(s.handleExportBookings))
	mux.Handle("GET /api/admin/bookings/{id}", admin(s.handleGetBooking))
	mux.Handle("DELETE /api/admin/bookings/{id}", admin(s.handleDeleteBooking))
	mux.Handle("PUT /api/admin/bookings/{id}/cancel", admin(s.handleCancelBooking))
	mux.Handle("PUT /api/admin/bookings/{id}/payment", admin(s.handleTogglePayment))
	mux.Handle("PUT /api/admin/bookings/{id}/reactivate", admin(s.handleReactivateBooking))

	mux.Handle("GET /api/admin/hotel-info", admin(s.handleGetHotelInfo))
	mux.Handle("PUT /api/admin/hotel-info", admin(s.handleUpdateHotelInfo))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	claimsKey
)

func (s *HTTPServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *HTTPServer) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, recorder.status, dur)

		id, _ := r.Context().Value(requestIDKey).(string)
		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Panic recovered")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// publicRateLimit applies the shared per-IP limit. Limiter failures let the request through.
func (s *HTTPServer) publicRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := s.cfg.RateLimit.PublicRequests
		if s.publicLimit == nil || limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := s.publicLimit.CheckRateLimit(r.Context(), "public:"+clientIP(r), limit, s.cfg.RateLimit.PublicWindow)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimited("public")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := s.auth.ValidateToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !s.adminLimiter.Allow(raw) {
			metrics.IncRateLimited("admin")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// writeServiceError maps domain error kinds onto status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, domain.Message(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.Message(err))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, domain.Message(err))
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.Validationf("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
