package model

import (
	"encoding/json"
	"time"
)

// BookingSlot is a normalized slot entry from the Arkkies availability list.
// Only entries whose id, start, and end could be parsed make it this far;
// everything else is dropped during parsing.
type BookingSlot struct {
	ID          string
	TimeStart   time.Time
	TimeEnd     time.Time
	PurposeType string
}

type BookSlotParams struct {
	UserID              int64
	HomeOutletID        string
	DestinationOutletID string
	DoorID              string
}

// BookingResult echoes the raw provider responses; bookings are not persisted
// locally, the provider is the system of record.
type BookingResult struct {
	Booking    json.RawMessage `json:"booking"`
	DoorUnlock json.RawMessage `json:"doorUnlock"`
}

type SessionStatus struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type LoginResult struct {
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Outlet is a gym location the integration knows how to book against.
type Outlet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
