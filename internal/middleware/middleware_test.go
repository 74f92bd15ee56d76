package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castusphanik/lucky-backend-sub000/internal/config"
	"github.com/castusphanik/lucky-backend-sub000/internal/middleware"
	"github.com/castusphanik/lucky-backend-sub000/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// call wraps okHandler in the provided middleware, optionally setting one
// header, and returns the recorded response.
func call(t *testing.T, mw func(http.Handler) http.Handler, headerName, headerValue string) *httptest.ResponseRecorder {
	t.Helper()

	handler := mw(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if headerName != "" {
		req.Header.Set(headerName, headerValue)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, secret, issuer, audience string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": "device-42",
		"iss": issuer,
		"aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestBearerAuth_MissingToken(t *testing.T) {
	mw := middleware.BearerAuth(config.AuthConfig{Secret: "s3cret"})

	rec := call(t, mw, "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_InvalidToken(t *testing.T) {
	mw := middleware.BearerAuth(config.AuthConfig{Secret: "s3cret"})

	rec := call(t, mw, "Authorization", "Bearer not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_WrongSecret(t *testing.T) {
	mw := middleware.BearerAuth(config.AuthConfig{Secret: "s3cret"})
	token := signToken(t, "different-secret", "", "")

	rec := call(t, mw, "Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_ValidToken(t *testing.T) {
	cfg := config.AuthConfig{Secret: "s3cret", Issuer: "https://idp.example.com/", Audience: "fleet-api"}
	mw := middleware.BearerAuth(cfg)
	token := signToken(t, cfg.Secret, cfg.Issuer, cfg.Audience)

	// inner handler reads and echoes the subject from context
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := utils.GetSubjectFromContext(r.Context())
		if !ok || subject != "device-42" {
			http.Error(w, "wrong subject in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuth_WrongIssuer(t *testing.T) {
	cfg := config.AuthConfig{Secret: "s3cret", Issuer: "https://idp.example.com/"}
	mw := middleware.BearerAuth(cfg)
	token := signToken(t, cfg.Secret, "https://evil.example.com/", "")

	rec := call(t, mw, "Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// With no secret configured the middleware must not block anything.
func TestBearerAuth_NoSecretPassthrough(t *testing.T) {
	mw := middleware.BearerAuth(config.AuthConfig{})

	rec := call(t, mw, "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_BurstExhaustion(t *testing.T) {
	mw := middleware.RateLimit(config.FeedConfig{RatePerSecond: 1, Burst: 2})
	handler := mw(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/equipment/location", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimit_PerClient(t *testing.T) {
	mw := middleware.RateLimit(config.FeedConfig{RatePerSecond: 1, Burst: 1})
	handler := mw(okHandler())

	for i, addr := range []string{"10.0.0.1:5000", "10.0.0.2:5000"} {
		req := httptest.NewRequest(http.MethodPost, "/equipment/location", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "client %d has its own bucket", i)
	}
}

func TestCORSMiddleware(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"https://fleet.example.com"})

	rec := call(t, mw, "Origin", "https://fleet.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://fleet.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = call(t, mw, "Origin", "https://unknown.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"https://fleet.example.com"})
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/geofences", nil)
	req.Header.Set("Origin", "https://fleet.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
