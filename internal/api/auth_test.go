package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hotelbook/internal/config"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	auth, err := NewAuth(config.AdminConfig{
		Username:     testUser,
		PasswordHash: string(hash),
		JWTSecret:    "0123456789abcdef0123456789abcdef",
		TokenTTL:     time.Hour,
	})
	require.NoError(t, err)
	return auth
}

func TestNewAuthRejectsPlainPassword(t *testing.T) {
	_, err := NewAuth(config.AdminConfig{Username: "admin", PasswordHash: "plaintext", JWTSecret: "0123456789abcdef"})
	assert.Error(t, err)
}

func TestNewAuthDefaultsTTL(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("x"), bcrypt.MinCost)
	require.NoError(t, err)
	auth, err := NewAuth(config.AdminConfig{Username: "admin", PasswordHash: string(hash), JWTSecret: "0123456789abcdef"})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, auth.TTL())
}

func TestLoginAndValidate(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.Login("root", testPassword)
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, err = auth.Login(testUser, "nope")
	assert.ErrorIs(t, err, errInvalidCredentials)

	token, err := auth.Login(testUser, testPassword)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateTokenExpiry(t *testing.T) {
	auth := newTestAuth(t)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	token, err := auth.Login(testUser, testPassword)
	require.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = auth.ValidateToken(token)
	assert.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	auth := newTestAuth(t)
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret-another-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(otherSecret)
	assert.ErrorIs(t, err, errInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(unsigned)
	assert.ErrorIs(t, err, errInvalidToken)

	claims.Subject = "someone-else"
	wrongSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(auth.secret)
	require.NoError(t, err)
	_, err = auth.ValidateToken(wrongSubject)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer  abc ", want: "abc", ok: true},
		{header: "Basic abc"},
		{header: "Bearer "},
		{header: ""},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := bearerToken(r)
		if !tt.ok {
			assert.ErrorIs(t, err, errMissingToken, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestFlexString(t *testing.T) {
	var req roomRequest
	require.NoError(t, json.Unmarshal([]byte(`{"number":101,"type":"Single","price":"99,90"}`), &req))
	assert.Equal(t, "101", string(req.Number))
	assert.Equal(t, "99,90", string(req.Price))
	assert.Nil(t, req.InService)

	require.NoError(t, json.Unmarshal([]byte(`{"number":"7A","price":150.5,"in_service":false}`), &req))
	assert.Equal(t, "7A", string(req.Number))
	assert.Equal(t, "150.5", string(req.Price))
	require.NotNil(t, req.InService)
	assert.False(t, *req.InService)

	require.NoError(t, json.Unmarshal([]byte(`{"number":null}`), &req))
	assert.Empty(t, string(req.Number))

	assert.Error(t, json.Unmarshal([]byte(`{"number":true}`), &req))
}

func TestTokenLimiter(t *testing.T) {
	off := newTokenLimiter(config.RateLimitConfig{})
	for i := 0; i < 100; i++ {
		require.True(t, off.Allow("t"))
	}

	lim := newTokenLimiter(config.RateLimitConfig{AdminRPS: 0.001, AdminBurst: 2})
	assert.True(t, lim.Allow("a"))
	assert.True(t, lim.Allow("a"))
	assert.False(t, lim.Allow("a"))
	assert.True(t, lim.Allow("b"), "buckets are per token")
}
