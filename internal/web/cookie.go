// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package web

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// newSessionCookie builds the session cookie. The cookie expiry tracks the
// session expiry so browsers drop both at the same time; the server-side
// check remains authoritative either way.
func newSessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredSessionCookie builds a cookie that instructs the client to discard
// its session cookie.
func expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
