// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session lifetime configuration.
const (
	// SessionExpiry is how far in the future a new or renewed session expires.
	SessionExpiry = 30 * 24 * time.Hour

	// RenewalThreshold is the window before expiry in which validation
	// extends the session. A session used within its last 15 days gets a
	// fresh 30 days.
	RenewalThreshold = 15 * 24 * time.Hour
)

// Session represents an authenticated client session. The session ID is the
// primary key; the token hash is the stored form of the bearer credential
// the client presents. The two are distinct so that invalidation by ID
// never requires knowing the token.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now().UTC()
	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given
// time. A session is valid strictly before its expiry instant.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// ShouldRenewAt returns true if a validation at the given time falls inside
// the renewal window. Only meaningful for sessions that are not expired.
func (s *Session) ShouldRenewAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt.Add(-RenewalThreshold))
}

// ValidationResult is the outcome of validating a session token. Either
// both fields are set (the token is valid) or both are nil. Not-found,
// expired, and lookup failure are deliberately indistinguishable here;
// the service logs the distinction for operators.
type ValidationResult struct {
	Session *Session
	User    *User
}

// Valid reports whether the result carries an authenticated session.
func (r ValidationResult) Valid() bool {
	return r.Session != nil && r.User != nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session and its owning user in a single
	// joined lookup. Returns ErrNotFound if no session has the hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, *User, error)

	// UpdateExpiry moves the session's expiry timestamp.
	UpdateExpiry(ctx context.Context, id ulid.ULID, expiresAt time.Time) error

	// Delete removes a session by ID. Returns ErrNotFound (wrapped) if the
	// session does not exist.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
