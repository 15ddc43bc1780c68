package audit

import (
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventConnectSuccess EventType = "arkkies_connect_success"
	EventConnectFailure EventType = "arkkies_connect_failure"
	EventBookingCreated EventType = "booking_created"
	EventAuthFailure    EventType = "auth_failure"
)

type Event struct {
	Type    EventType
	UserID  int64
	IP      string
	Details map[string]any
}

// Log writes a security-relevant event as a structured log line. These feed
// the same log pipeline as everything else but carry a stable marker field
// for filtering.
func Log(event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != 0 {
		logger = logger.With().Int64("user_id", event.UserID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = logEvent.Interface(k, v)
	}
	logEvent.Msg("audit event")
}
