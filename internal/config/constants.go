package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. The write timeout must outlast the request timeout:
// a booking chains several outbound calls and only the chi middleware should
// cut it off, not a severed connection.
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 75 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Timeout for each outbound call to the Arkkies API
const ArkkiesCallTimeout = 10 * time.Second

// Per-user booking lock TTL; bounds the lock if a holder dies mid-booking
const BookingLockTTL = 45 * time.Second

// Background job intervals
const SessionCleanupInterval = 15 * time.Minute

// Sessions whose expiry is older than this get their stored cookies cleared
const SessionCleanupGrace = 24 * time.Hour
