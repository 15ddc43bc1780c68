package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liftlog/arkkies-bridge/internal/arkkies"
	apperrors "github.com/liftlog/arkkies-bridge/internal/errors"
	"github.com/liftlog/arkkies-bridge/internal/model"
	"github.com/liftlog/arkkies-bridge/internal/repository"
	"github.com/liftlog/arkkies-bridge/internal/util"
)

// SessionService owns the authenticated session against Arkkies: the
// multi-step login handshake, live validation, and transparent re-login when
// a stored session has gone stale. Session state lives on the credential
// row, never in process memory.
type SessionService struct {
	client   *arkkies.Client
	credRepo repository.ArkkiesCredentialRepository
	cipher   *util.CredentialCipher
}

func NewSessionService(
	client *arkkies.Client,
	credRepo repository.ArkkiesCredentialRepository,
	cipher *util.CredentialCipher,
) *SessionService {
	return &SessionService{
		client:   client,
		credRepo: credRepo,
		cipher:   cipher,
	}
}

// Login performs the full handshake with the given credentials and stores
// them (password encrypted) together with the resulting session. The
// password and raw session cookie never leave this service.
func (s *SessionService) Login(ctx context.Context, userID int64, email, password string) (*model.LoginResult, error) {
	jar := arkkies.NewJar("")

	expiresAt, err := s.performLogin(ctx, jar, email, password)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "Failed to encrypt credentials", err)
	}

	header := jar.Header()
	_, err = s.credRepo.Upsert(ctx, model.UpsertCredentialParams{
		UserID:            userID,
		Email:             email,
		PasswordEncrypted: encrypted,
		SessionCookies:    &header,
		SessionExpiresAt:  expiresAt,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Int64("userId", userID).
		Str("email", util.MaskEmail(email)).
		Msg("arkkies account connected")

	return &model.LoginResult{ExpiresAt: expiresAt}, nil
}

// Status reports whether the stored session currently validates. It is meant
// for UI polling: it mutates nothing, attempts no re-login, and never fails.
func (s *SessionService) Status(ctx context.Context, userID int64) model.SessionStatus {
	invalid := model.SessionStatus{Valid: false, ExpiresAt: nil}

	cred, err := s.credRepo.FindByUserID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("session status: credential lookup failed")
		return invalid
	}
	if cred == nil || cred.SessionCookies == nil {
		return invalid
	}

	jar := arkkies.NewJar(*cred.SessionCookies)
	who, err := s.whoami(ctx, jar)
	if err != nil {
		return invalid
	}

	expiresAt := who.Session.ExpiresAt
	if expiresAt == nil {
		expiresAt = cred.SessionExpiresAt
	}
	return model.SessionStatus{Valid: true, ExpiresAt: expiresAt}
}

// ensureSession returns a jar holding a valid session for the user, reusing
// the stored one when it still validates and otherwise re-logging in exactly
// once with the stored credentials. The refreshed session is persisted
// before returning.
func (s *SessionService) ensureSession(ctx context.Context, userID int64) (*arkkies.Jar, *model.ArkkiesCredential, error) {
	cred, err := s.credRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if cred == nil {
		return nil, nil, apperrors.NotConnected()
	}

	if cred.SessionCookies != nil && cred.SessionExpiresAt != nil && cred.SessionExpiresAt.After(time.Now()) {
		jar := arkkies.NewJar(*cred.SessionCookies)
		if _, err := s.whoami(ctx, jar); err == nil {
			return jar, cred, nil
		}
		log.Info().Int64("userId", userID).Msg("stored arkkies session failed validation, re-authenticating")
	}

	password, err := s.cipher.Decrypt(cred.PasswordEncrypted)
	if err != nil {
		return nil, nil, apperrors.Decryption(err)
	}

	jar := arkkies.NewJar("")
	expiresAt, err := s.performLogin(ctx, jar, cred.Email, password)
	if err != nil {
		return nil, nil, err
	}

	if err := s.persistSession(ctx, userID, jar, expiresAt); err != nil {
		return nil, nil, err
	}

	// The returned credential must reflect the session just persisted, or a
	// caller falling back to its expiry would resurrect the stale one.
	header := jar.Header()
	cred.SessionCookies = &header
	cred.SessionExpiresAt = expiresAt
	return jar, cred, nil
}

// persistSession writes the jar's serialized form and expiry back to the
// credential row.
func (s *SessionService) persistSession(ctx context.Context, userID int64, jar *arkkies.Jar, expiresAt *time.Time) error {
	header := jar.Header()
	if err := s.credRepo.UpdateSession(ctx, userID, &header, expiresAt); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// performLogin runs the Kratos browser login flow: fetch the flow (which
// issues the CSRF cookie and token), submit credentials, then confirm with
// whoami. The returned expiry prefers the whoami session over the cookie's
// own Expires attribute.
func (s *SessionService) performLogin(ctx context.Context, jar *arkkies.Jar, email, password string) (*time.Time, error) {
	var flow arkkies.LoginFlow
	if err := s.client.DoJSON(ctx, jar, http.MethodGet, arkkies.PathLoginFlow, nil, "", &flow); err != nil {
		return nil, apperrors.External("arkkies login flow", err)
	}
	if flow.ID == "" {
		return nil, apperrors.Protocol("Login flow response did not contain a flow id")
	}
	csrfToken := flow.CSRFToken()
	if csrfToken == "" {
		return nil, apperrors.Protocol("Login flow response did not contain a csrf_token field")
	}

	submission := arkkies.LoginSubmission{
		Method:             "password",
		PasswordIdentifier: email,
		Password:           password,
		CSRFToken:          csrfToken,
	}
	if _, err := s.client.Do(ctx, jar, http.MethodPost, arkkies.PathLoginSubmit(flow.ID), submission, ""); err != nil {
		return nil, apperrors.LoginFailed(err)
	}

	who, err := s.whoami(ctx, jar)
	if err != nil {
		return nil, apperrors.LoginFailed(err)
	}

	expiresAt := who.Session.ExpiresAt
	if expiresAt == nil {
		expiresAt = jar.SessionExpiry()
	}

	log.Debug().
		Str("identity", who.Identity.ID).
		Msg("arkkies login confirmed")

	return expiresAt, nil
}

func (s *SessionService) whoami(ctx context.Context, jar *arkkies.Jar) (*arkkies.Whoami, error) {
	var who arkkies.Whoami
	if err := s.client.DoJSON(ctx, jar, http.MethodGet, arkkies.PathWhoami, nil, "", &who); err != nil {
		return nil, err
	}
	return &who, nil
}
