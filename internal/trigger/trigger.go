// Package trigger owns the unattended daily dispatch: a small
// enabled/disabled state machine around a cron timer firing once a day at a
// fixed wall-clock hour.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Supervisor arms and disarms the daily timer. It starts disabled; each
// Enable creates a fresh cron instance and Disable stops and discards it,
// so a re-enable never reuses a stale timer.
type Supervisor struct {
	hour int
	job  func(context.Context)

	enabled atomic.Bool

	mu   sync.Mutex
	cron *cron.Cron
}

func New(hour int, job func(context.Context)) (*Supervisor, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("hour must be in 0..23, got %d", hour)
	}
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	return &Supervisor{hour: hour, job: job}, nil
}

// Enable arms the daily timer. Returns false when already enabled.
func (s *Supervisor) Enable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled.Load() {
		return false
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", s.hour), s.safeRun); err != nil {
		slog.Error("failed to arm daily trigger", "error", err)
		return false
	}
	c.Start()

	s.cron = c
	s.enabled.Store(true)

	slog.Info("daily trigger enabled", "hour", s.hour)
	return true
}

// Disable stops and discards the timer. Returns false when already
// disabled.
func (s *Supervisor) Disable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled.Load() {
		return false
	}

	s.cron.Stop()
	s.cron = nil
	s.enabled.Store(false)

	slog.Info("daily trigger disabled")
	return true
}

func (s *Supervisor) Enabled() bool {
	return s.enabled.Load()
}

// safeRun is the cron callback boundary: nothing may escape it, an
// unattended failure must never take the process down.
func (s *Supervisor) safeRun() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("daily trigger panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	s.job(context.Background())
	slog.Info("daily trigger run completed", "duration_ms", time.Since(start).Milliseconds())
}
