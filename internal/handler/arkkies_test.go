package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/liftlog/arkkies-bridge/internal/arkkies"
	"github.com/liftlog/arkkies-bridge/internal/middleware"
	"github.com/liftlog/arkkies-bridge/internal/model"
	"github.com/liftlog/arkkies-bridge/internal/service"
	"github.com/liftlog/arkkies-bridge/internal/util"
)

type mockCredentialRepo struct {
	mock.Mock
}

func (m *mockCredentialRepo) FindByUserID(ctx context.Context, userID int64) (*model.ArkkiesCredential, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ArkkiesCredential), args.Error(1)
}

func (m *mockCredentialRepo) Upsert(ctx context.Context, params model.UpsertCredentialParams) (*model.ArkkiesCredential, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ArkkiesCredential), args.Error(1)
}

func (m *mockCredentialRepo) UpdateSession(ctx context.Context, userID int64, sessionCookies *string, sessionExpiresAt *time.Time) error {
	args := m.Called(ctx, userID, sessionCookies, sessionExpiresAt)
	return args.Error(0)
}

func (m *mockCredentialRepo) ClearExpiredSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// minimal fake of the provider's login endpoints
func newFakeLoginServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/auth/provider/public/self-service/login/browser"):
			fmt.Fprint(w, `{"id":"flow-1","ui":{"nodes":[{"attributes":{"name":"csrf_token","value":"csrf-abc"}}]}}`)
		case strings.HasPrefix(r.URL.Path, "/auth/provider/public/self-service/login"):
			w.Header().Add("Set-Cookie", arkkies.SessionCookieName+"=sess-1; Path=/; Expires=Wed, 01 Jan 2031 00:00:00 GMT")
			fmt.Fprint(w, `{}`)
		case r.URL.Path == "/auth/provider/public/sessions/whoami":
			fmt.Fprint(w, `{"identity":{"id":"ident-1"},"session":{"expires_at":"2031-01-01T00:00:00Z"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestHandler(t *testing.T, baseURL string, repo *mockCredentialRepo) *ArkkiesHandler {
	cipher, err := util.NewCredentialCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	client := arkkies.NewClient(baseURL, 5*time.Second)
	sessions := service.NewSessionService(client, repo, cipher)
	bookings := service.NewBookingService(sessions, client, noopLocker{})
	return NewArkkiesHandler(sessions, bookings)
}

type noopLocker struct{}

func (noopLocker) Acquire(ctx context.Context, userID int64, ttl time.Duration) (string, bool, error) {
	return "tok", true, nil
}

func (noopLocker) Release(ctx context.Context, userID int64, token string) error {
	return nil
}

func doRequest(h http.HandlerFunc, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDContextKey, userID))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestConnect(t *testing.T) {
	t.Run("connects and returns expiry only", func(t *testing.T) {
		server := newFakeLoginServer(t)
		repo := new(mockCredentialRepo)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(&model.ArkkiesCredential{UserID: 1}, nil)
		h := newTestHandler(t, server.URL, repo)

		rec := doRequest(h.Connect, http.MethodPost, "/connect",
			map[string]string{"email": "user@example.com", "password": "hunter2"}, 1)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp, "expiresAt")
		assert.NotContains(t, rec.Body.String(), "hunter2")
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		h := newTestHandler(t, "http://unused.invalid", new(mockCredentialRepo))

		rec := doRequest(h.Connect, http.MethodPost, "/connect", map[string]string{"password": "x"}, 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(h.Connect, http.MethodPost, "/connect", map[string]string{"email": "a@b.c"}, 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		h := newTestHandler(t, "http://unused.invalid", new(mockCredentialRepo))

		req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		h.Connect(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBookValidation(t *testing.T) {
	h := newTestHandler(t, "http://unused.invalid", new(mockCredentialRepo))

	t.Run("requires home and destination outlets", func(t *testing.T) {
		rec := doRequest(h.Book, http.MethodPost, "/book", map[string]string{"destinationOutletId": "AGRBSH01"}, 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(h.Book, http.MethodPost, "/book", map[string]string{"homeOutletId": "AGRBGK01"}, 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not connected maps to 404", func(t *testing.T) {
		repo := new(mockCredentialRepo)
		repo.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)
		h := newTestHandler(t, "http://unused.invalid", repo)

		rec := doRequest(h.Book, http.MethodPost, "/book",
			map[string]string{"homeOutletId": "AGRBGK01", "destinationOutletId": "AGRBSH01"}, 1)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "ARKKIES_NOT_CONNECTED")
	})
}

func TestSessionStatusEndpoint(t *testing.T) {
	t.Run("reports invalid without credentials", func(t *testing.T) {
		repo := new(mockCredentialRepo)
		repo.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)
		h := newTestHandler(t, "http://unused.invalid", repo)

		rec := doRequest(h.SessionStatus, http.MethodGet, "/session", nil, 1)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"valid":false,"expiresAt":null}`, rec.Body.String())
	})
}

func TestOutletsEndpoint(t *testing.T) {
	h := newTestHandler(t, "http://unused.invalid", new(mockCredentialRepo))

	rec := doRequest(h.Outlets, http.MethodGet, "/outlets", nil, 1)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Outlets []model.Outlet `json:"outlets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Outlets)
}
