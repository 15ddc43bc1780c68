package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/liftlog/arkkies-bridge/internal/model"
)

type ArkkiesCredentialRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.ArkkiesCredential, error)
	Upsert(ctx context.Context, params model.UpsertCredentialParams) (*model.ArkkiesCredential, error)
	UpdateSession(ctx context.Context, userID int64, sessionCookies *string, sessionExpiresAt *time.Time) error
	ClearExpiredSessions(ctx context.Context, olderThan time.Time) (int64, error)
}

type arkkiesCredentialRepo struct {
	db *sqlx.DB
}

func NewArkkiesCredentialRepository(db *sqlx.DB) ArkkiesCredentialRepository {
	return &arkkiesCredentialRepo{db: db}
}

func (r *arkkiesCredentialRepo) FindByUserID(ctx context.Context, userID int64) (*model.ArkkiesCredential, error) {
	var cred model.ArkkiesCredential
	err := r.db.GetContext(ctx, &cred, `
		SELECT * FROM arkkies_credentials
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *arkkiesCredentialRepo) Upsert(ctx context.Context, params model.UpsertCredentialParams) (*model.ArkkiesCredential, error) {
	var cred model.ArkkiesCredential
	err := r.db.GetContext(ctx, &cred, `
		INSERT INTO arkkies_credentials (user_id, email, password_encrypted, session_cookies, session_expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email,
		    password_encrypted = EXCLUDED.password_encrypted,
		    session_cookies = EXCLUDED.session_cookies,
		    session_expires_at = EXCLUDED.session_expires_at,
		    updated_at = NOW()
		RETURNING *
	`, params.UserID, params.Email, params.PasswordEncrypted, params.SessionCookies, params.SessionExpiresAt)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *arkkiesCredentialRepo) UpdateSession(ctx context.Context, userID int64, sessionCookies *string, sessionExpiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE arkkies_credentials
		SET session_cookies = $2, session_expires_at = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, sessionCookies, sessionExpiresAt)
	return err
}

func (r *arkkiesCredentialRepo) ClearExpiredSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE arkkies_credentials
		SET session_cookies = NULL, session_expires_at = NULL, updated_at = NOW()
		WHERE session_expires_at IS NOT NULL AND session_expires_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
