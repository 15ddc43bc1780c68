package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/liftlog/arkkies-bridge/internal/audit"
	apperrors "github.com/liftlog/arkkies-bridge/internal/errors"
	"github.com/liftlog/arkkies-bridge/internal/middleware"
	"github.com/liftlog/arkkies-bridge/internal/model"
	"github.com/liftlog/arkkies-bridge/internal/service"
)

type ArkkiesHandler struct {
	sessionService *service.SessionService
	bookingService *service.BookingService
}

func NewArkkiesHandler(sessionService *service.SessionService, bookingService *service.BookingService) *ArkkiesHandler {
	return &ArkkiesHandler{
		sessionService: sessionService,
		bookingService: bookingService,
	}
}

func (h *ArkkiesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/connect", h.Connect)
	r.Get("/session", h.SessionStatus)
	r.Post("/book", h.Book)
	r.Get("/outlets", h.Outlets)

	return r
}

type connectRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /v1/arkkies/connect
func (h *ArkkiesHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, apperrors.MissingRequired("email"))
		return
	}
	if req.Password == "" {
		writeError(w, apperrors.MissingRequired("password"))
		return
	}

	result, err := h.sessionService.Login(r.Context(), userID, req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Int64("userId", userID).Msg("arkkies connect failed")
		audit.Log(audit.Event{Type: audit.EventConnectFailure, UserID: userID, IP: r.RemoteAddr})
		writeError(w, err)
		return
	}

	audit.Log(audit.Event{Type: audit.EventConnectSuccess, UserID: userID, IP: r.RemoteAddr})
	writeJSON(w, http.StatusOK, result)
}

// GET /v1/arkkies/session
func (h *ArkkiesHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	status := h.sessionService.Status(r.Context(), userID)
	writeJSON(w, http.StatusOK, status)
}

type bookRequest struct {
	HomeOutletID        string `json:"homeOutletId"`
	DestinationOutletID string `json:"destinationOutletId"`
	DoorID              string `json:"doorId"`
}

// POST /v1/arkkies/book
func (h *ArkkiesHandler) Book(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}
	if req.HomeOutletID == "" {
		writeError(w, apperrors.MissingRequired("homeOutletId"))
		return
	}
	if req.DestinationOutletID == "" {
		writeError(w, apperrors.MissingRequired("destinationOutletId"))
		return
	}

	result, err := h.bookingService.BookAndUnlock(r.Context(), model.BookSlotParams{
		UserID:              userID,
		HomeOutletID:        req.HomeOutletID,
		DestinationOutletID: req.DestinationOutletID,
		DoorID:              req.DoorID,
	})
	if err != nil {
		log.Error().Err(err).Int64("userId", userID).Str("destination", req.DestinationOutletID).Msg("booking failed")
		writeError(w, err)
		return
	}

	audit.Log(audit.Event{
		Type:   audit.EventBookingCreated,
		UserID: userID,
		IP:     r.RemoteAddr,
		Details: map[string]any{
			"homeOutletId":        req.HomeOutletID,
			"destinationOutletId": req.DestinationOutletID,
		},
	})
	writeJSON(w, http.StatusOK, result)
}

// GET /v1/arkkies/outlets
func (h *ArkkiesHandler) Outlets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"outlets": service.SupportedOutlets(),
	})
}
