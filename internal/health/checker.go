// Package health provides periodic health checks with auto-recovery.
// Three checks run every 60 seconds: the repository answers, no
// progression write is pending, and the data directory is usable.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// Pinger is a storage backend that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Persister is the progression store's write-back state.
type Persister interface {
	Dirty() bool
	Flush(ctx context.Context) error
}

// ErrPendingWrite reports that the last progression write failed.
var ErrPendingWrite = errors.New("progression write pending")

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *zap.Logger
}

// NewChecker creates a health checker with the standard checks.
// repo may be nil for a memory-only store.
func NewChecker(repo Pinger, store Persister, dataDir string, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Checker{
		interval: 60 * time.Second,
		log:      log.Named("health"),
	}

	if repo != nil {
		c.checks = append(c.checks, Check{
			Name:    "repository",
			CheckFn: repo.Ping,
		})
	}
	c.checks = append(c.checks,
		Check{
			Name: "persistence",
			CheckFn: func(ctx context.Context) error {
				if store.Dirty() {
					return ErrPendingWrite
				}
				return nil
			},
			RecoverFn: store.Flush,
		},
		Check{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDataDir(dataDir)
			},
		},
	)
	return c
}

// AddCheck registers an extra check.
func (c *Checker) AddCheck(check Check) {
	c.mu.Lock()
	c.checks = append(c.checks, check)
	c.mu.Unlock()
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once and records the results.
func (c *Checker) RunOnce(ctx context.Context) {
	c.mu.RLock()
	checks := make([]Check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	statuses := make([]Status, len(checks))
	for i, check := range checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
			Healthy:   true,
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			// Attempt recovery
			if check.RecoverFn != nil {
				metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.log.Warn("recovery failed", zap.String("check", check.Name), zap.Error(rerr))
				} else {
					s.Recovered = true
					c.log.Info("recovered", zap.String("check", check.Name))
				}
			} else {
				c.log.Warn("check failed", zap.String("check", check.Name), zap.Error(err))
			}
		}

		v := 0.0
		if s.Healthy {
			v = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(v)
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass. A check that failed but was
// recovered in the same run counts as healthy.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy && !s.Recovered {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Created on first save
		}
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
