// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

// Package auth implements Stork's account and session lifecycle.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their respective
// constructors:
//   - NewUser - creates a User with a validated email and password hash
//   - NewSession - creates a Session with a validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - AccountService - signup and login
//   - SessionService - session creation, validation with sliding renewal,
//     and invalidation
//
// Services are created with New*Service constructors that validate
// dependencies.
//
// Session tokens are bearer credentials: the plaintext token is handed to
// the client once and only its SHA-256 hash is stored. Validation is
// fail-closed - a token that cannot be confirmed valid is treated as
// invalid.
package auth
