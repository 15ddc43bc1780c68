package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/liftlog/arkkies-bridge/internal/audit"
	"github.com/liftlog/arkkies-bridge/internal/util"
)

type contextKey string

const UserIDContextKey contextKey = "userID"

// GetUserID returns the authenticated user id from the request context, or 0.
func GetUserID(ctx context.Context) int64 {
	if id, ok := ctx.Value(UserIDContextKey).(int64); ok {
		return id
	}
	return 0
}

// AuthMiddleware guards the API for the main backend, which is the only
// caller. It authenticates with a shared service token and tells us which
// user it is acting for via the X-User-ID header.
type AuthMiddleware struct {
	serviceToken string
}

func NewAuthMiddleware(serviceToken string) *AuthMiddleware {
	if serviceToken == "" {
		log.Warn().Msg("auth middleware: no service token configured, requests will not be authenticated")
	}
	return &AuthMiddleware{serviceToken: serviceToken}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.serviceToken != "" {
			token := extractBearer(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "Missing authentication token",
				})
				return
			}
			if !util.ConstantTimeEqual(token, m.serviceToken) {
				log.Warn().Msg("auth middleware: invalid service token attempt")
				audit.Log(audit.Event{Type: audit.EventAuthFailure, IP: r.RemoteAddr})
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "Invalid token",
				})
				return
			}
		}

		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Missing or invalid X-User-ID header",
			})
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
