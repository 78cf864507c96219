// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

//go:build integration

package auth_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tencorvids/stork/internal/auth"
	"github.com/tencorvids/stork/pkg/errutil"
)

var _ = Describe("AccountService", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)
	})

	Describe("Signup", func() {
		It("persists the user and mints a first session", func() {
			user, session, token, err := env.Accounts.Signup(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(HaveLen(32))
			Expect(session.UserID).To(Equal(user.ID))

			got, err := env.Users.GetByEmail(ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
			Expect(got.LastLoginAt).NotTo(BeNil())

			result := env.Session.Validate(ctx, token)
			Expect(result.Valid()).To(BeTrue())
			Expect(result.User.Email).To(Equal("ada@example.com"))
		})

		It("never stores the plaintext password or token", func() {
			_, session, token, err := env.Accounts.Signup(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			got, err := env.Users.GetByEmail(ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).NotTo(ContainSubstring("correct horse battery"))
			Expect(got.PasswordHash).To(HavePrefix("$argon2id$"))
			Expect(session.TokenHash).NotTo(Equal(token))
			Expect(session.TokenHash).To(Equal(auth.HashSessionToken(token)))
		})

		It("rejects a duplicate email against the unique index", func() {
			_, _, _, err := env.Accounts.Signup(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			_, _, _, err = env.Accounts.Signup(ctx, "ada@example.com", "a different password")
			Expect(err).To(HaveOccurred())
			Expect(errutil.ErrorCode(err)).To(Equal("AUTH_EMAIL_TAKEN"))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			_, _, _, err := env.Accounts.Signup(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
		})

		It("mints a fresh session on valid credentials", func() {
			user, session, token, err := env.Accounts.Login(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.UserID).To(Equal(user.ID))

			result := env.Session.Validate(ctx, token)
			Expect(result.Valid()).To(BeTrue())
			Expect(result.Session.ID).To(Equal(session.ID))
		})

		It("leaves earlier sessions usable after a second login", func() {
			_, _, token1, err := env.Accounts.Login(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
			_, _, token2, err := env.Accounts.Login(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Session.Validate(ctx, token1).Valid()).To(BeTrue())
			Expect(env.Session.Validate(ctx, token2).Valid()).To(BeTrue())
		})

		It("rejects a wrong password", func() {
			_, _, _, err := env.Accounts.Login(ctx, "ada@example.com", "not the password")
			Expect(err).To(HaveOccurred())
			Expect(errutil.ErrorCode(err)).To(Equal("AUTH_INVALID_CREDENTIALS"))
		})

		It("rejects an unknown email with the same error", func() {
			_, _, _, err := env.Accounts.Login(ctx, "nobody@example.com", "correct horse battery")
			Expect(err).To(HaveOccurred())
			Expect(errutil.ErrorCode(err)).To(Equal("AUTH_INVALID_CREDENTIALS"))
		})

		It("records the login time", func() {
			before, err := env.Users.GetByEmail(ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())

			_, _, _, err = env.Accounts.Login(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			after, err := env.Users.GetByEmail(ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(after.LastLoginAt).NotTo(BeNil())
			Expect(*after.LastLoginAt).To(BeTemporally(">=", *before.LastLoginAt))
		})
	})

	Describe("user deletion", func() {
		It("cascades to the user's sessions", func() {
			user, _, token, err := env.Accounts.Signup(ctx, "ada@example.com", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Users.Delete(ctx, user.ID)).To(Succeed())

			result := env.Session.Validate(ctx, token)
			Expect(result.Valid()).To(BeFalse())

			var count int
			err = env.pool.QueryRow(ctx, "SELECT count(*) FROM sessions WHERE user_id = $1", user.ID.String()).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})
