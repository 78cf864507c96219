// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tencorvids/stork/internal/observability"
	"github.com/tencorvids/stork/pkg/errutil"
)

// SessionService manages the session lifecycle: creation, validation with
// sliding renewal, and invalidation.
type SessionService struct {
	sessions SessionRepository
	logger   *slog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions SessionRepository) (*SessionService, error) {
	return NewSessionServiceWithLogger(sessions, slog.Default())
}

// NewSessionServiceWithLogger creates a new SessionService with an explicit logger.
func NewSessionServiceWithLogger(sessions SessionRepository, logger *slog.Logger) (*SessionService, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &SessionService{sessions: sessions, logger: logger}, nil
}

// Create mints a session for the given plaintext token and user, expiring
// SessionExpiry from now. The token itself is not stored; only its hash.
func (s *SessionService) Create(ctx context.Context, token string, userID ulid.ULID) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := NewSession(userID, HashSessionToken(token), time.Now().UTC().Add(SessionExpiry))
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return session, nil
}

// Validate checks a session token and returns the session joined with its
// user. Sessions used inside the renewal window get their expiry pushed out
// to SessionExpiry from now, and the returned session reflects the new
// expiry.
//
// Validation is fail-closed: an unknown token, an expired session, and a
// store fault all produce the same empty result. The fault case is logged
// with full context and counted separately so operators can tell an outage
// from a stream of bad tokens.
func (s *SessionService) Validate(ctx context.Context, token string) ValidationResult {
	if token == "" {
		observability.RecordSessionValidation("invalid")
		return ValidationResult{}
	}

	now := time.Now().UTC()

	session, user, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			observability.RecordSessionValidation("not_found")
		} else {
			errutil.LogError(s.logger, "session lookup failed", err)
			observability.RecordSessionValidation("error")
		}
		return ValidationResult{}
	}

	if session.IsExpiredAt(now) {
		// Passive expiry: the row is left for the sweeper.
		observability.RecordSessionValidation("expired")
		return ValidationResult{}
	}

	if session.ShouldRenewAt(now) {
		renewedAt := now.Add(SessionExpiry)
		if err := s.sessions.UpdateExpiry(ctx, session.ID, renewedAt); err != nil {
			// Can't confirm the renewal was durable, so treat the session
			// as invalid rather than hand out a token we may not honor.
			errutil.LogError(s.logger, "session renewal failed", err)
			observability.RecordSessionValidation("error")
			return ValidationResult{}
		}
		session.ExpiresAt = renewedAt
		session.UpdatedAt = now
		observability.RecordSessionRenewal()
	}

	observability.RecordSessionValidation("valid")
	return ValidationResult{Session: session, User: user}
}

// Invalidate deletes a session by its ID. Invalidating a session that does
// not exist is not an error.
func (s *SessionService) Invalidate(ctx context.Context, sessionID ulid.ULID) error {
	err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}
