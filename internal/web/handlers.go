// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/tencorvids/stork/internal/auth"
	"github.com/tencorvids/stork/internal/observability"
	"github.com/tencorvids/stork/pkg/errutil"
)

// maxBodyBytes caps request bodies. Auth payloads are tiny; anything larger
// is a mistake or an attack.
const maxBodyBytes = 16 * 1024

// API holds the HTTP handlers for the authentication endpoints.
type API struct {
	accounts *auth.AccountService
	sessions *auth.SessionService
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewAPI creates a new API. Metrics may be nil, in which case request
// counters are not recorded.
func NewAPI(accounts *auth.AccountService, sessions *auth.SessionService, metrics *observability.Metrics, logger *slog.Logger) (*API, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{accounts: accounts, sessions: sessions, metrics: metrics, logger: logger}, nil
}

// Router builds the route table.
func (a *API) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signup", a.instrument("signup", a.handleSignup))
	mux.HandleFunc("POST /login", a.instrument("login", a.handleLogin))
	mux.HandleFunc("POST /logout", a.instrument("logout", a.handleLogout))
	mux.HandleFunc("GET /me", a.instrument("me", a.handleMe))
	return mux
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userView is the wire shape of a user. The password hash never leaves the
// service.
type userView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// sessionView is the wire shape of a session. The token travels only in the
// cookie and the token hash never leaves the service.
type sessionView struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	User    userView    `json:"user"`
	Session sessionView `json:"session"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func viewOf(user *auth.User) userView {
	return userView{
		ID:          user.ID.String(),
		Email:       user.Email,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func sessionViewOf(session *auth.Session) sessionView {
	return sessionView{
		ID:        session.ID.String(),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !a.decodeBody(w, r, &req) {
		a.countSignup("failure")
		return
	}

	if req.Password != req.ConfirmPassword {
		a.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "passwords do not match")
		a.countSignup("failure")
		return
	}

	user, session, token, err := a.accounts.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeServiceError(w, err)
		a.countSignup("failure")
		return
	}

	http.SetCookie(w, newSessionCookie(token, session.ExpiresAt))
	a.writeJSON(w, http.StatusCreated, authResponse{User: viewOf(user), Session: sessionViewOf(session)})
	a.countSignup("success")
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decodeBody(w, r, &req) {
		a.countLogin("failure")
		return
	}

	user, session, token, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeServiceError(w, err)
		a.countLogin("failure")
		return
	}

	http.SetCookie(w, newSessionCookie(token, session.ExpiresAt))
	a.writeJSON(w, http.StatusOK, authResponse{User: viewOf(user), Session: sessionViewOf(session)})
	a.countLogin("success")
}

// handleLogout ends the current session. Logging out without a live session
// still succeeds and still clears the cookie.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		result := a.sessions.Validate(r.Context(), cookie.Value)
		if result.Valid() {
			if err := a.sessions.Invalidate(r.Context(), result.Session.ID); err != nil {
				errutil.LogError(a.logger, "logout failed", err)
				a.writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
				return
			}
		}
	}

	http.SetCookie(w, expiredSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authenticated user. A valid request inside the
// renewal window extends the session, and the refreshed cookie expiry is
// sent back with the response.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		a.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	result := a.sessions.Validate(r.Context(), cookie.Value)
	if !result.Valid() {
		http.SetCookie(w, expiredSessionCookie())
		a.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	http.SetCookie(w, newSessionCookie(cookie.Value, result.Session.ExpiresAt))
	a.writeJSON(w, http.StatusOK, authResponse{User: viewOf(result.User), Session: sessionViewOf(result.Session)})
}

// decodeBody parses a JSON request body. On failure it writes a BAD_REQUEST
// response and returns false.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "request body is not valid JSON")
		return false
	}
	return true
}

// writeServiceError maps a service error to the wire envelope. Validation
// failures keep their message; everything unrecognized is an internal fault
// and gets a generic message so storage details never reach clients.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch errutil.ErrorCode(err) {
	case "AUTH_INVALID_INPUT":
		a.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case "AUTH_EMAIL_TAKEN":
		a.writeError(w, http.StatusConflict, "CONFLICT", "email already registered")
	case "AUTH_INVALID_CREDENTIALS":
		a.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password")
	default:
		errutil.LogError(a.logger, "request failed", err)
		a.writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, code, message string) {
	a.writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		errutil.LogError(a.logger, "response encoding failed", err)
	}
}

func (a *API) countSignup(status string) {
	if a.metrics != nil {
		a.metrics.SignupsTotal.WithLabelValues(status).Inc()
	}
}

func (a *API) countLogin(status string) {
	if a.metrics != nil {
		a.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps a handler to count requests per route and status.
func (a *API) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if a.metrics != nil {
			a.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	}
}
