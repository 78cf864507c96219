// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when creating a user whose email is already
// registered. Repository implementations map the schema-level unique
// violation to this error, which is what makes concurrent signups safe.
var ErrEmailTaken = errors.New("email already taken")
