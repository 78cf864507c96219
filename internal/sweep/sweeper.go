// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stork Contributors

// Package sweep removes expired sessions in the background. Validation
// already rejects expired sessions, so the sweeper exists only to keep the
// sessions table from growing without bound.
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/tencorvids/stork/internal/auth"
	"github.com/tencorvids/stork/internal/observability"
	"github.com/tencorvids/stork/pkg/errutil"
)

// Per-pass retry limits. A pass that keeps failing is abandoned until the
// next tick rather than retried indefinitely.
const (
	sweepTimeout     = time.Minute
	sweepBackoffBase = time.Second
	sweepMaxRetries  = 3
)

// Sweeper periodically deletes expired sessions.
type Sweeper struct {
	sessions auth.SessionRepository
	interval time.Duration
	logger   *slog.Logger

	// backoffBase is the initial retry delay within a pass. Tests shrink it.
	backoffBase time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a new Sweeper running one pass per interval.
func NewSweeper(sessions auth.SessionRepository, interval time.Duration) (*Sweeper, error) {
	return NewSweeperWithLogger(sessions, interval, slog.Default())
}

// NewSweeperWithLogger creates a new Sweeper with an explicit logger.
func NewSweeperWithLogger(sessions auth.SessionRepository, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if interval <= 0 {
		return nil, oops.Errorf("interval must be positive, got %s", interval)
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger, backoffBase: sweepBackoffBase}, nil
}

// Start launches the background loop. The first pass runs immediately so a
// freshly started service clears any backlog without waiting an interval.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return oops.Errorf("sweeper already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx)

	s.logger.Info("session sweeper started", "interval", s.interval)
	return nil
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.logger.Info("session sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one deletion pass, retrying transient failures with backoff.
func (s *Sweeper) sweep(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	var deleted int64
	backoff := retry.WithMaxRetries(sweepMaxRetries, retry.NewExponential(s.backoffBase))
	err := retry.Do(passCtx, backoff, func(ctx context.Context) error {
		n, err := s.sessions.DeleteExpired(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; not a fault.
			return
		}
		errutil.LogError(s.logger, "session sweep failed", err)
		return
	}

	observability.RecordSweptSessions(deleted)
	if deleted > 0 {
		s.logger.Info("expired sessions removed", "count", deleted)
	}
}
