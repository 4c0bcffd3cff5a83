package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signTestToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "operator"})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAPIKeyMiddleware(t *testing.T) {
	const secret = "test-secret"

	t.Run("empty secret disables auth", func(t *testing.T) {
		handler := APIKeyMiddleware("")(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calls", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing key rejected", func(t *testing.T) {
		handler := APIKeyMiddleware(secret)(okHandler())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calls", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage key rejected", func(t *testing.T) {
		handler := APIKeyMiddleware(secret)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/calls", nil)
		req.Header.Set("X-API-Key", "not-a-jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with wrong secret rejected", func(t *testing.T) {
		handler := APIKeyMiddleware(secret)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/calls", nil)
		req.Header.Set("X-API-Key", signTestToken(t, "other-secret"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token accepted", func(t *testing.T) {
		handler := APIKeyMiddleware(secret)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/calls", nil)
		req.Header.Set("X-API-Key", signTestToken(t, secret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestValidationMiddleware(t *testing.T) {
	handler := ValidationMiddleware(okHandler())

	t.Run("rejects wrong content type on POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/calls/dial", strings.NewReader("destination=123"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("accepts json on POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/calls/dial", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("GET passes through without content type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calls", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(okHandler())

	t.Run("adds cors headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
	})

	t.Run("short-circuits preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/calls", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
