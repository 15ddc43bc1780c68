package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	const token = "service-token-for-tests-0123456789ab"

	newHandler := func(serviceToken string, gotUserID *int64) http.Handler {
		m := NewAuthMiddleware(serviceToken)
		return m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*gotUserID = GetUserID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))
	}

	t.Run("accepts valid token and user id", func(t *testing.T) {
		var gotUserID int64
		handler := newHandler(token, &gotUserID)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-User-ID", "42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(42), gotUserID)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		var gotUserID int64
		handler := newHandler(token, &gotUserID)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", "42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		var gotUserID int64
		handler := newHandler(token, &gotUserID)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		req.Header.Set("X-User-ID", "42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token emits an audit event", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Logger
		log.Logger = zerolog.New(&buf)
		defer func() { log.Logger = prev }()

		var gotUserID int64
		handler := newHandler(token, &gotUserID)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		req.Header.Set("X-User-ID", "42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.True(t, strings.Contains(buf.String(), `"audit":"security"`))
		assert.True(t, strings.Contains(buf.String(), "auth_failure"))
	})

	t.Run("rejects missing or invalid user id", func(t *testing.T) {
		for _, userID := range []string{"", "abc", "0", "-5"} {
			var gotUserID int64
			handler := newHandler(token, &gotUserID)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			if userID != "" {
				req.Header.Set("X-User-ID", userID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "user id %q", userID)
		}
	})

	t.Run("empty service token skips token check but still needs user id", func(t *testing.T) {
		var gotUserID int64
		handler := newHandler("", &gotUserID)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", "7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(7), gotUserID)
	})
}

func TestGetUserID(t *testing.T) {
	t.Run("zero without value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Equal(t, int64(0), GetUserID(req.Context()))
	})
}
