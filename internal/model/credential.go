package model

import "time"

// ArkkiesCredential is the per-user row backing the gym-access integration.
// The third-party password is stored AES-GCM encrypted; the serialized session
// cookie header and its expiry are refreshed on every successful
// authenticated exchange.
type ArkkiesCredential struct {
	UserID            int64      `db:"user_id" json:"userId"`
	Email             string     `db:"email" json:"email"`
	PasswordEncrypted string     `db:"password_encrypted" json:"-"`
	SessionCookies    *string    `db:"session_cookies" json:"-"`
	SessionExpiresAt  *time.Time `db:"session_expires_at" json:"sessionExpiresAt,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

type UpsertCredentialParams struct {
	UserID            int64
	Email             string
	PasswordEncrypted string
	SessionCookies    *string
	SessionExpiresAt  *time.Time
}
