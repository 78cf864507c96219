// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

//go:build integration

package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tencorvids/stork/internal/auth"
)

var _ = Describe("Sessions", func() {
	var (
		ctx   context.Context
		token string
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)

		var err error
		_, _, token, err = env.Accounts.Signup(ctx, "ada@example.com", "correct horse battery")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Validate", func() {
		It("accepts a live token without renewing a fresh session", func() {
			first := env.Session.Validate(ctx, token)
			Expect(first.Valid()).To(BeTrue())

			second := env.Session.Validate(ctx, token)
			Expect(second.Valid()).To(BeTrue())
			Expect(second.Session.ExpiresAt).To(BeTemporally("~", first.Session.ExpiresAt, time.Second))
		})

		It("rejects an unknown token", func() {
			Expect(env.Session.Validate(ctx, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").Valid()).To(BeFalse())
		})

		It("rejects an expired session and leaves the row for the sweeper", func() {
			expireSession(ctx, token)

			Expect(env.Session.Validate(ctx, token).Valid()).To(BeFalse())

			var count int
			err := env.pool.QueryRow(ctx, "SELECT count(*) FROM sessions WHERE token_hash = $1",
				auth.HashSessionToken(token)).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("renews a session inside the renewal window", func() {
			// Push expiry to just inside the window.
			nearExpiry := time.Now().UTC().Add(auth.RenewalThreshold - time.Hour)
			setSessionExpiry(ctx, token, nearExpiry)

			result := env.Session.Validate(ctx, token)
			Expect(result.Valid()).To(BeTrue())
			Expect(result.Session.ExpiresAt).To(BeTemporally("~", time.Now().Add(auth.SessionExpiry), time.Minute))

			// The renewal must be durable, not just reflected in the result.
			var stored time.Time
			err := env.pool.QueryRow(ctx, "SELECT expires_at FROM sessions WHERE token_hash = $1",
				auth.HashSessionToken(token)).Scan(&stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeTemporally("~", result.Session.ExpiresAt, time.Second))
		})
	})

	Describe("Invalidate", func() {
		It("removes the session", func() {
			result := env.Session.Validate(ctx, token)
			Expect(result.Valid()).To(BeTrue())

			Expect(env.Session.Invalidate(ctx, result.Session.ID)).To(Succeed())
			Expect(env.Session.Validate(ctx, token).Valid()).To(BeFalse())
		})

		It("is idempotent", func() {
			result := env.Session.Validate(ctx, token)
			Expect(result.Valid()).To(BeTrue())

			Expect(env.Session.Invalidate(ctx, result.Session.ID)).To(Succeed())
			Expect(env.Session.Invalidate(ctx, result.Session.ID)).To(Succeed())
		})
	})

	Describe("DeleteExpired", func() {
		It("removes only expired sessions", func() {
			_, _, liveToken, err := env.Accounts.Login(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			expireSession(ctx, token)

			deleted, err := env.Sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			Expect(env.Session.Validate(ctx, token).Valid()).To(BeFalse())
			Expect(env.Session.Validate(ctx, liveToken).Valid()).To(BeTrue())
		})
	})
})

// setSessionExpiry rewrites a session's expiry directly in the database.
func setSessionExpiry(ctx context.Context, token string, expiresAt time.Time) {
	GinkgoHelper()
	tag, err := env.pool.Exec(ctx, "UPDATE sessions SET expires_at = $1 WHERE token_hash = $2",
		expiresAt, auth.HashSessionToken(token))
	Expect(err).NotTo(HaveOccurred())
	Expect(tag.RowsAffected()).To(Equal(int64(1)))
}

func expireSession(ctx context.Context, token string) {
	GinkgoHelper()
	setSessionExpiry(ctx, token, time.Now().UTC().Add(-time.Minute))
}
