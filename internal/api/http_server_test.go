package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"hotelbook/internal/config"
	"hotelbook/internal/database"
	"hotelbook/internal/events"
	"hotelbook/internal/repository"
	"hotelbook/internal/service"
	"hotelbook/internal/validation"
)

const (
	testUser     = "admin"
	testPassword = "s3cret-pass"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	return &config.Config{
		App: config.AppConfig{Name: "Hotel Booking", Version: "test"},
		Admin: config.AdminConfig{
			Username:     testUser,
			PasswordHash: string(hash),
			JWTSecret:    "0123456789abcdef0123456789abcdef",
			TokenTTL:     time.Hour,
		},
	}
}

func newTestAPI(t *testing.T, cfg *config.Config, limiter *repository.MemoryRateLimiter) *testAPI {
	t.Helper()
	logger := zerolog.New(io.Discard)

	backend, err := database.NewFileStore(filepath.Join(t.TempDir(), "hotel.json"), &logger)
	require.NoError(t, err)
	store := database.NewStore(backend, &logger)
	v := validation.New()
	bus := events.NewEventBus(&logger)

	svc := Services{
		Bookings: service.NewBookingService(store, v, bus, nil, &logger),
		Catalog:  service.NewCatalogService(store, v, &logger),
		Hotel:    service.NewHotelService(store, v, &logger),
	}

	var srv *HTTPServer
	if limiter != nil {
		srv, err = NewHTTPServer(cfg, svc, limiter, &logger)
	} else {
		srv, err = NewHTTPServer(cfg, svc, nil, &logger)
	}
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{t: t, server: ts}
}

func (a *testAPI) do(method, path string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, data
}

func (a *testAPI) login() {
	a.t.Helper()
	resp, body := a.do(http.MethodPost, "/api/admin/login", map[string]string{"username": testUser, "password": testPassword})
	require.Equal(a.t, http.StatusOK, resp.StatusCode, string(body))
	var out loginResponse
	require.NoError(a.t, json.Unmarshal(body, &out))
	assert.Equal(a.t, "bearer", out.TokenType)
	assert.Equal(a.t, int64(3600), out.ExpiresIn)
	a.token = out.AccessToken
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	return decode[map[string]string](t, body)["error"]
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)

	resp, body := api.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hotel Booking API", decode[map[string]string](t, body)["message"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = api.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)

	resp, body := api.do(http.MethodGet, "/api/admin/customers", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, errMissingToken.Error(), errorMessage(t, body))

	api.token = "not-a-jwt"
	resp, _ = api.do(http.MethodGet, "/api/admin/customers", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	api.token = ""

	resp, _ = api.do(http.MethodPost, "/api/admin/login", map[string]string{"username": testUser, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	api.login()
	resp, body = api.do(http.MethodGet, "/api/admin/verify", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verify := decode[map[string]any](t, body)
	assert.Equal(t, true, verify["valid"])
	assert.Equal(t, testUser, verify["username"])
}

func TestGuestBookingFlow(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)
	api.login()

	resp, body := api.do(http.MethodPost, "/api/admin/rooms", map[string]any{"number": 101, "type": "Couple", "price": 150.5})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	room := decode[map[string]any](t, body)
	assert.Equal(t, "101", room["number"])
	assert.Equal(t, "150.50", room["price"])

	guest := &testAPI{t: t, server: api.server}
	resp, body = guest.do(http.MethodPost, "/api/public/customers", map[string]string{
		"name": "maria silva", "email": "Maria@Example.com", "phone": "31988887777",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	customer := decode[map[string]any](t, body)
	assert.Equal(t, "Maria Silva", customer["name"])
	assert.Equal(t, "guest", customer["origin"])

	resp, body = guest.do(http.MethodPost, "/api/public/customers", map[string]string{
		"name": "Other", "email": "maria@example.com", "phone": "31988887777",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = guest.do(http.MethodPost, "/api/public/bookings", map[string]any{
		"customer_email": "maria@example.com", "room_number": "101", "check_in": "2099-03-01", "check_out": "2099-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	booking := decode[map[string]any](t, body)
	assert.Equal(t, "confirmed", booking["status"])
	assert.Equal(t, false, booking["paid"])

	resp, body = guest.do(http.MethodPost, "/api/public/bookings", map[string]any{
		"customer_email": "maria@example.com", "room_number": "101", "check_in": "2099-03-04", "check_out": "2099-03-06",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = guest.do(http.MethodPost, "/api/public/bookings", map[string]any{
		"customer_email": "ghost@example.com", "room_number": "101", "check_in": "2099-04-01", "check_out": "2099-04-02",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))

	resp, body = guest.do(http.MethodGet, "/api/public/rooms/available?check_in=2099-03-02&check_out=2099-03-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]map[string]any](t, body))

	resp, body = guest.do(http.MethodGet, "/api/public/rooms/available?check_in=2099-03-05&check_out=2099-03-06", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	resp, _ = guest.do(http.MethodGet, "/api/public/rooms/available?check_in=bad&check_out=2099-03-06", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = guest.do(http.MethodGet, "/api/public/customers/MARIA@example.com/bookings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views := decode[[]map[string]any](t, body)
	require.Len(t, views, 1)
	assert.Equal(t, "Maria Silva", views[0]["customer_name"])
	assert.Equal(t, "Couple", views[0]["room_type"])

	resp, body = guest.do(http.MethodGet, "/api/public/customers/nobody@example.com/bookings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]\n", string(body))
}

func TestDecodeRejectsBadBodies(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)

	resp, body := api.do(http.MethodPost, "/api/public/customers", `{"name":"A B","email":"a@b.co","phone":"3133334444","vip":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON body", errorMessage(t, body))

	resp, _ = api.do(http.MethodPost, "/api/public/customers", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = api.do(http.MethodPost, "/api/public/customers", map[string]string{"name": "A1", "email": "a@b.co", "phone": "3133334444"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errorMessage(t, body))
}

func TestAdminBookingLifecycle(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)
	api.login()

	resp, body := api.do(http.MethodPost, "/api/admin/rooms", map[string]any{"number": "201", "type": "Suite", "price": "300"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, body = api.do(http.MethodPost, "/api/admin/customers", map[string]string{"name": "Ana Lima", "email": "ana@x.com", "phone": "3133334444"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	customer := decode[map[string]any](t, body)

	resp, body = api.do(http.MethodPost, "/api/admin/bookings", map[string]any{
		"customer_id": customer["id"], "room_number": 201, "check_in": "2099-05-01", "check_out": "2099-05-03", "paid": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	booking := decode[map[string]any](t, body)
	id := booking["id"].(string)
	assert.Equal(t, true, booking["paid"])

	resp, _ = api.do(http.MethodDelete, "/api/admin/rooms/201", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = api.do(http.MethodDelete, "/api/admin/customers/"+customer["id"].(string), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = api.do(http.MethodPut, "/api/admin/bookings/"+id+"/payment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, body)["paid"])

	resp, body = api.do(http.MethodPut, "/api/admin/bookings/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", decode[map[string]any](t, body)["status"])

	resp, _ = api.do(http.MethodPut, "/api/admin/bookings/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = api.do(http.MethodPut, "/api/admin/bookings/"+id+"/payment", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = api.do(http.MethodPut, "/api/admin/bookings/"+id+"/reactivate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "confirmed", decode[map[string]any](t, body)["status"])

	resp, body = api.do(http.MethodGet, "/api/admin/bookings?from=2099-05-02&to=2099-05-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	resp, body = api.do(http.MethodGet, "/api/admin/bookings?from=2099-06-01&to=2099-06-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]\n", string(body))

	resp, _ = api.do(http.MethodGet, "/api/admin/bookings?from=2099-06-10&to=2099-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = api.do(http.MethodGet, "/api/admin/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[map[string]any](t, body)
	assert.EqualValues(t, 1, stats["active_bookings"])
	assert.EqualValues(t, 100, stats["occupancy_pct"])

	resp, _ = api.do(http.MethodDelete, "/api/admin/bookings/"+id, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "future confirmed booking")

	resp, _ = api.do(http.MethodPut, "/api/admin/bookings/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = api.do(http.MethodDelete, "/api/admin/bookings/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = api.do(http.MethodGet, "/api/admin/bookings/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoomsAndHotelInfo(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)
	api.login()

	resp, body := api.do(http.MethodPost, "/api/admin/rooms", map[string]any{"number": "301", "type": "Family", "price": "500,00", "in_service": false})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = api.do(http.MethodPut, "/api/admin/rooms/301", map[string]any{"number": "302", "type": "Family", "price": 520})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	room := decode[map[string]any](t, body)
	assert.Equal(t, "302", room["number"])
	assert.Equal(t, false, room["in_service"])

	resp, body = api.do(http.MethodGet, "/api/public/rooms", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]map[string]any](t, body))

	resp, _ = api.do(http.MethodDelete, "/api/admin/rooms/302", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = api.do(http.MethodDelete, "/api/admin/rooms/302", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = api.do(http.MethodPut, "/api/admin/hotel-info", map[string]string{"name": "Seaside Inn", "address": "Beach Rd 1", "phone": "3133334444"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = api.do(http.MethodGet, "/api/public/hotel-info", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Seaside Inn", decode[map[string]any](t, body)["name"])
}

func TestExportBookings(t *testing.T) {
	api := newTestAPI(t, testConfig(t), nil)
	api.login()

	resp, body := api.do(http.MethodPost, "/api/admin/rooms", map[string]any{"number": "101", "type": "Single", "price": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, body = api.do(http.MethodPost, "/api/admin/customers", map[string]string{"name": "Ana Lima", "email": "ana@x.com", "phone": "3133334444"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, body = api.do(http.MethodPost, "/api/admin/bookings", map[string]any{
		"customer_email": "ana@x.com", "room_number": "101", "check_in": "2099-05-01", "check_out": "2099-05-03",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = api.do(http.MethodGet, "/api/admin/bookings/export.xlsx?from=2099-05-01&to=2099-05-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2099-05-01_to_2099-05-10.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	resp, _ = api.do(http.MethodGet, "/api/admin/bookings/export.xlsx?from=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublicRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.PublicRequests = 2
	cfg.RateLimit.PublicWindow = time.Minute
	api := newTestAPI(t, cfg, repository.NewMemoryRateLimiter())

	for i := 0; i < 2; i++ {
		resp, _ := api.do(http.MethodGet, "/api/public/rooms", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := api.do(http.MethodGet, "/api/public/hotel-info", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", errorMessage(t, body))

	resp, _ = api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health checks are not limited")
}

func TestAdminRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.AdminRPS = 0.001
	cfg.RateLimit.AdminBurst = 1
	api := newTestAPI(t, cfg, nil)
	api.login()

	resp, _ := api.do(http.MethodGet, "/api/admin/rooms", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = api.do(http.MethodGet, "/api/admin/rooms", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.AllowedOrigins = []string{"https://hotel.example"}
	api := newTestAPI(t, cfg, nil)

	req, err := http.NewRequest(http.MethodOptions, api.server.URL+"/api/public/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://hotel.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "https://hotel.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
