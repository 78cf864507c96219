// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// AccountService handles registration and credential verification.
type AccountService struct {
	users    UserRepository
	sessions *SessionService
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserRepository, sessions *SessionService, hasher PasswordHasher) (*AccountService, error) {
	return NewAccountServiceWithLogger(users, sessions, hasher, slog.Default())
}

// NewAccountServiceWithLogger creates a new AccountService with an explicit logger.
func NewAccountServiceWithLogger(users UserRepository, sessions *SessionService, hasher PasswordHasher, logger *slog.Logger) (*AccountService, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &AccountService{users: users, sessions: sessions, hasher: hasher, logger: logger}, nil
}

// dummyPasswordHash is verified when a login targets an unknown email, so
// that lookup misses cost the same as password mismatches. This is NOT a
// real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup registers a new account and mints its first session.
// Returns the created user, the session, and the plaintext bearer token.
//
// Error codes: AUTH_INVALID_INPUT for malformed email or short password,
// AUTH_EMAIL_TAKEN for a duplicate email, AUTH_SIGNUP_FAILED for
// infrastructure faults. The email pre-check is advisory; the schema's
// unique index is what actually wins the duplicate race, surfacing here as
// ErrEmailTaken from Create.
func (s *AccountService) Signup(ctx context.Context, email, password string) (*User, *Session, string, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, "", err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, nil, "", oops.Code("AUTH_EMAIL_TAKEN").Errorf("email already registered")
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "check existing email").
			Wrap(err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, passwordHash)
	if err != nil {
		return nil, nil, "", err
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, nil, "", oops.Code("AUTH_EMAIL_TAKEN").Errorf("email already registered")
		}
		return nil, nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	session, token, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, nil, "", err
	}

	return user, session, token, nil
}

// Login verifies credentials and mints a session. An unknown email and a
// wrong password produce the same AUTH_INVALID_CREDENTIALS error, and both
// paths run a full argon2id verification so response time does not reveal
// which one happened.
func (s *AccountService) Login(ctx context.Context, email, password string) (*User, *Session, string, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, nil, "", err
	}

	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
		}
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "update last login").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	user.LastLoginAt = &now
	user.UpdatedAt = now

	session, token, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, nil, "", err
	}

	return user, session, token, nil
}

// mintSession generates a fresh token and persists a session for the user.
func (s *AccountService) mintSession(ctx context.Context, user *User) (*Session, string, error) {
	token, _, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_MINT_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := s.sessions.Create(ctx, token, user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_MINT_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return session, token, nil
}
