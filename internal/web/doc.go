// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

// Package web serves the HTTP authentication API.
//
// Routes:
//   - POST /signup: register an account and start a session
//   - POST /login: verify credentials and start a session
//   - POST /logout: end the current session
//   - GET /me: return the authenticated user, renewing the session
//
// The session token travels in an HttpOnly cookie. Errors use a JSON
// envelope of the form {"error": {"code": "...", "message": "..."}}.
package web
