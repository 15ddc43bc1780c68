package service

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liftlog/arkkies-bridge/internal/arkkies"
	"github.com/liftlog/arkkies-bridge/internal/config"
	apperrors "github.com/liftlog/arkkies-bridge/internal/errors"
	"github.com/liftlog/arkkies-bridge/internal/model"
)

const defaultPurposeType = "gym-time"

// BookingLocker serializes bookings per user.
type BookingLocker interface {
	Acquire(ctx context.Context, userID int64, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, userID int64, token string) error
}

// BookingService chains entitlement discovery, slot discovery, booking
// creation, and door unlock against a valid session. Nothing is retried here
// and partial progress is not rolled back: a booking that succeeded before a
// failed unlock stands, and the caller decides whether to retry the unlock.
type BookingService struct {
	sessions *SessionService
	client   *arkkies.Client
	locker   BookingLocker
}

func NewBookingService(sessions *SessionService, client *arkkies.Client, locker BookingLocker) *BookingService {
	return &BookingService{
		sessions: sessions,
		client:   client,
		locker:   locker,
	}
}

// BookAndUnlock books the best available slot at the destination outlet and
// unlocks its door. Holds the per-user lock for the duration so concurrent
// calls for one user cannot double-book or race the session refresh.
func (s *BookingService) BookAndUnlock(ctx context.Context, params model.BookSlotParams) (*model.BookingResult, error) {
	token, acquired, err := s.locker.Acquire(ctx, params.UserID, config.BookingLockTTL)
	if err != nil {
		// Redis being down should not take bookings down with it.
		log.Warn().Err(err).Int64("userId", params.UserID).Msg("booking lock unavailable, proceeding unguarded")
	} else if !acquired {
		return nil, apperrors.BookingInFlight()
	} else {
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), params.UserID, token); err != nil {
				log.Warn().Err(err).Int64("userId", params.UserID).Msg("failed to release booking lock")
			}
		}()
	}

	jar, cred, err := s.sessions.ensureSession(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	entitlementIDs, err := s.discoverEntitlements(ctx, jar, params.HomeOutletID)
	if err != nil {
		return nil, err
	}

	slotsRaw, err := s.client.Do(ctx, jar, http.MethodGet, arkkies.PathSlots(params.DestinationOutletID), nil, params.HomeOutletID)
	if err != nil {
		return nil, apperrors.External("arkkies slot discovery", err)
	}

	slot, err := selectSlot(arkkies.ParseSlots(slotsRaw), time.Now())
	if err != nil {
		return nil, err
	}

	purpose := slot.PurposeType
	if purpose == "" {
		purpose = defaultPurposeType
	}
	bookingReq := arkkies.BookingRequest{
		TimeStart:      slot.TimeStart,
		TimeEnd:        slot.TimeEnd,
		PurposeType:    purpose,
		SlotID:         slot.ID,
		EntitlementIDs: entitlementIDs,
	}
	booking, err := s.client.Do(ctx, jar, http.MethodPost, arkkies.PathCreateBooking, bookingReq, params.HomeOutletID)
	if err != nil {
		return nil, apperrors.External("arkkies booking", err)
	}

	log.Info().
		Int64("userId", params.UserID).
		Str("outlet", params.DestinationOutletID).
		Str("slotId", slot.ID).
		Time("timeStart", slot.TimeStart).
		Msg("booking created")

	doorID := params.DoorID
	if doorID == "" {
		doorID = params.DestinationOutletID + "-D01"
	}
	unlock, unlockErr := s.client.Do(ctx, jar, http.MethodPut, arkkies.PathUnlockDoor, arkkies.UnlockRequest{DoorID: doorID}, params.DestinationOutletID)

	// The chain may have refreshed cookies along the way; write them back
	// even when the unlock failed, the booking already stands.
	expiresAt := jar.SessionExpiry()
	if expiresAt == nil {
		expiresAt = cred.SessionExpiresAt
	}
	if err := s.sessions.persistSession(ctx, params.UserID, jar, expiresAt); err != nil {
		log.Warn().Err(err).Int64("userId", params.UserID).Msg("failed to persist refreshed session")
	}

	if unlockErr != nil {
		return nil, apperrors.External("arkkies door unlock", unlockErr)
	}

	log.Info().
		Int64("userId", params.UserID).
		Str("doorId", doorID).
		Msg("door unlocked")

	return &model.BookingResult{Booking: booking, DoorUnlock: unlock}, nil
}

// discoverEntitlements queries active subscriptions and passes under a
// sequence of outlet-context candidates: the home outlet, then no outlet,
// then every known outlet. The first candidate yielding any ids wins.
// Individual endpoint failures count as zero results; only exhausting every
// candidate empty-handed is fatal.
func (s *BookingService) discoverEntitlements(ctx context.Context, jar *arkkies.Jar, homeOutletID string) ([]string, error) {
	candidates := []string{homeOutletID, ""}
	for _, id := range fallbackOutletIDs() {
		if id != homeOutletID {
			candidates = append(candidates, id)
		}
	}

	attempted := make([]string, 0, len(candidates))
	for _, outletID := range candidates {
		label := outletID
		if label == "" {
			label = "(none)"
		}
		attempted = append(attempted, label)

		var ids []string
		for _, path := range []string{arkkies.PathActiveSubscriptions, arkkies.PathActivePasses} {
			raw, err := s.client.Do(ctx, jar, http.MethodGet, path, nil, outletID)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Str("outlet", label).Msg("entitlement query failed")
				continue
			}
			ids = append(ids, arkkies.ExtractEntitlementIDs(raw)...)
		}
		if len(ids) > 0 {
			log.Debug().Str("outlet", label).Int("count", len(ids)).Msg("entitlements discovered")
			return ids, nil
		}
	}

	return nil, apperrors.NoEntitlements(attempted)
}

// selectSlot picks the earliest slot starting at or after now. When the
// feed only contains past slots it falls back to the earliest overall,
// preserving the booking semantics the existing clients rely on: booking
// something beats failing on stale availability data.
func selectSlot(slots []model.BookingSlot, now time.Time) (*model.BookingSlot, error) {
	if len(slots) == 0 {
		return nil, apperrors.NoSlots()
	}

	sorted := make([]model.BookingSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TimeStart.Before(sorted[j].TimeStart)
	})

	for i := range sorted {
		if !sorted[i].TimeStart.Before(now) {
			return &sorted[i], nil
		}
	}
	return &sorted[0], nil
}
