// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tencorvids/stork/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID.String(),
		session.UserID.String(),
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session joined with its owning user in one
// round trip. This is the hot path of every authenticated request.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, *auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.created_at, s.updated_at,
		       u.id, u.email, u.password_hash, u.last_login_at, u.created_at, u.updated_at
		FROM sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
	`, tokenHash)

	session, user, err := scanSessionWithUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, user, nil
}

// UpdateExpiry moves the session's expiry timestamp.
func (r *SessionRepository) UpdateExpiry(ctx context.Context, id ulid.ULID, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET expires_at = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), expiresAt, time.Now().UTC())
	if err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").
			With("operation", "update expires_at").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	// No ErrNotFound if no rows deleted - that's a valid state
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at < $1
	`, time.Now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSessionWithUser scans a joined session+user row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanSessionWithUser(row pgx.Row) (*auth.Session, *auth.User, error) {
	var (
		sessionIDStr string
		userIDStr    string
		tokenHash    string
		expiresAt    time.Time
		sCreatedAt   time.Time
		sUpdatedAt   time.Time

		uIDStr       string
		email        string
		passwordHash string
		lastLoginAt  *time.Time
		uCreatedAt   time.Time
		uUpdatedAt   time.Time
	)

	err := row.Scan(
		&sessionIDStr, &userIDStr, &tokenHash, &expiresAt, &sCreatedAt, &sUpdatedAt,
		&uIDStr, &email, &passwordHash, &lastLoginAt, &uCreatedAt, &uUpdatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session with user").
			Wrap(err)
	}

	sessionID, err := ulid.Parse(sessionIDStr)
	if err != nil {
		return nil, nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", sessionIDStr).
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, nil, oops.Code("SESSION_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	uID, err := ulid.Parse(uIDStr)
	if err != nil {
		return nil, nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", uIDStr).
			Wrap(err)
	}

	session := &auth.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: sCreatedAt,
		UpdatedAt: sUpdatedAt,
	}
	user := &auth.User{
		ID:           uID,
		Email:        email,
		PasswordHash: passwordHash,
		LastLoginAt:  lastLoginAt,
		CreatedAt:    uCreatedAt,
		UpdatedAt:    uUpdatedAt,
	}
	return session, user, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
