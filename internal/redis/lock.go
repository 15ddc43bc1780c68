package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const bookingLockKeyPrefix = "arkkies:booking-lock:"

// Delete the lock only if we still hold it; a lock that expired and was
// re-acquired by another booking must not be released from here.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// BookingLocker serializes bookings per user. Two concurrent bookings for the
// same user would race on the session refresh and could both succeed against
// the external API; the second caller gets an immediate "in flight" failure
// instead of queueing.
type BookingLocker struct {
	client *redis.Client
}

func NewBookingLocker(client *redis.Client) *BookingLocker {
	return &BookingLocker{client: client}
}

// Acquire takes the per-user lock. Returns the release token, or ok=false if
// another booking for this user already holds it.
func (l *BookingLocker) Acquire(ctx context.Context, userID int64, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, lockKey(userID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire booking lock: %w", err)
	}
	return token, ok, nil
}

func (l *BookingLocker) Release(ctx context.Context, userID int64, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(userID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}

func lockKey(userID int64) string {
	return fmt.Sprintf("%s%d", bookingLockKeyPrefix, userID)
}
