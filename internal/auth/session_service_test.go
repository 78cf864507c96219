// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tencorvids/stork/internal/auth"
	"github.com/tencorvids/stork/internal/auth/mocks"
	"github.com/tencorvids/stork/pkg/errutil"
)

func TestNewSessionService_NilDependencies(t *testing.T) {
	t.Run("nil sessions repository", func(t *testing.T) {
		svc, err := auth.NewSessionService(nil)
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "sessions repository is required")
	})

	t.Run("nil logger", func(t *testing.T) {
		svc, err := auth.NewSessionServiceWithLogger(mocks.NewMockSessionRepository(t), nil)
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "logger")
	})
}

func TestSessionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists session with hashed token and 30 day expiry", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		userID := ulid.Make()
		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		var stored *auth.Session
		sessionRepo.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*auth.Session) }).
			Return(nil)

		session, err := svc.Create(ctx, token, userID)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, session, stored)

		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, tokenHash, session.TokenHash)
		assert.NotContains(t, session.TokenHash, token)
		assert.WithinDuration(t, time.Now().UTC().Add(auth.SessionExpiry), session.ExpiresAt, 5*time.Second)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		svc, err := auth.NewSessionService(mocks.NewMockSessionRepository(t))
		require.NoError(t, err)

		_, err = svc.Create(ctx, "", ulid.Make())
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_EMPTY")
	})

	t.Run("wraps repository failure", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		sessionRepo.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Return(errors.New("connection refused"))

		_, err = svc.Create(ctx, "sometoken", ulid.Make())
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})
}

func TestSessionService_Validate(t *testing.T) {
	ctx := context.Background()

	// sessionFixture builds a session and user tied to a real token.
	sessionFixture := func(t *testing.T, expiresAt time.Time) (string, *auth.Session, *auth.User) {
		t.Helper()
		token, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		user, err := auth.NewUser("alice@example.com", "somehash")
		require.NoError(t, err)
		session, err := auth.NewSession(user.ID, tokenHash, expiresAt)
		require.NoError(t, err)
		return token, session, user
	}

	t.Run("valid token outside renewal window is not renewed", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		token, session, user := sessionFixture(t, time.Now().UTC().Add(auth.SessionExpiry))
		sessionRepo.On("GetByTokenHash", ctx, session.TokenHash).Return(session, user, nil)

		result := svc.Validate(ctx, token)
		require.True(t, result.Valid())
		assert.Equal(t, session.ID, result.Session.ID)
		assert.Equal(t, user.ID, result.User.ID)
		sessionRepo.AssertNotCalled(t, "UpdateExpiry", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token inside renewal window extends expiry", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		token, session, user := sessionFixture(t, time.Now().UTC().Add(24*time.Hour))
		sessionRepo.On("GetByTokenHash", ctx, session.TokenHash).Return(session, user, nil)
		sessionRepo.On("UpdateExpiry", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

		result := svc.Validate(ctx, token)
		require.True(t, result.Valid())
		assert.WithinDuration(t, time.Now().UTC().Add(auth.SessionExpiry), result.Session.ExpiresAt, 5*time.Second)
	})

	t.Run("renewal persistence failure invalidates the session", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		token, session, user := sessionFixture(t, time.Now().UTC().Add(24*time.Hour))
		sessionRepo.On("GetByTokenHash", ctx, session.TokenHash).Return(session, user, nil)
		sessionRepo.On("UpdateExpiry", ctx, session.ID, mock.AnythingOfType("time.Time")).
			Return(errors.New("connection refused"))

		result := svc.Validate(ctx, token)
		assert.False(t, result.Valid())
	})

	t.Run("expired session is rejected without deletion", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		token, session, user := sessionFixture(t, time.Now().UTC().Add(-time.Minute))
		sessionRepo.On("GetByTokenHash", ctx, session.TokenHash).Return(session, user, nil)

		result := svc.Validate(ctx, token)
		assert.False(t, result.Valid())
		sessionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unknown token yields empty result", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		sessionRepo.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).
			Return(nil, nil, auth.ErrNotFound)

		result := svc.Validate(ctx, "unknowntoken")
		assert.False(t, result.Valid())
	})

	t.Run("store failure yields empty result", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		sessionRepo.On("GetByTokenHash", ctx, mock.AnythingOfType("string")).
			Return(nil, nil, errors.New("connection refused"))

		result := svc.Validate(ctx, "sometoken")
		assert.False(t, result.Valid())
	})

	t.Run("empty token yields empty result without lookup", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		result := svc.Validate(ctx, "")
		assert.False(t, result.Valid())
		sessionRepo.AssertNotCalled(t, "GetByTokenHash", mock.Anything, mock.Anything)
	})
}

func TestSessionService_Invalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes session", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		sessionID := ulid.Make()
		sessionRepo.On("Delete", ctx, sessionID).Return(nil)

		assert.NoError(t, svc.Invalidate(ctx, sessionID))
	})

	t.Run("missing session is not an error", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		sessionID := ulid.Make()
		sessionRepo.On("Delete", ctx, sessionID).Return(auth.ErrNotFound)

		assert.NoError(t, svc.Invalidate(ctx, sessionID))
	})

	t.Run("wraps store failure", func(t *testing.T) {
		sessionRepo := mocks.NewMockSessionRepository(t)
		svc, err := auth.NewSessionService(sessionRepo)
		require.NoError(t, err)

		sessionID := ulid.Make()
		sessionRepo.On("Delete", ctx, sessionID).Return(errors.New("connection refused"))

		err = svc.Invalidate(ctx, sessionID)
		errutil.AssertErrorCode(t, err, "SESSION_INVALIDATE_FAILED")
	})
}
