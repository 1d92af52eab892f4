package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	internalaudit "github.com/MrEthical07/goEnroll/internal/audit"
	"github.com/MrEthical07/goEnroll/internal/rate"
	"github.com/MrEthical07/goEnroll/internal/security"
	"github.com/MrEthical07/goEnroll/jwt"
	"github.com/MrEthical07/goEnroll/password"
	"github.com/MrEthical07/goEnroll/session"
	"github.com/MrEthical07/goEnroll/storage"
)

// Engine is the enrollment service. Build one with [New].
type Engine struct {
	config       Config
	store        *storage.Store
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	now          func() time.Time
}

// Close drains the audit buffer. It does not close the store or Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType splits AuditDropped by audit event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// ClassSeats reads the current seat state of every class session.
func (e *Engine) ClassSeats(ctx context.Context) ([]ClassSeats, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	rows, err := e.store.SeatCounts(ctx)
	if err != nil {
		return nil, mapStoreError("seat counts", err)
	}
	out := make([]ClassSeats, 0, len(rows))
	for _, r := range rows {
		out = append(out, ClassSeats(r))
	}
	return out, nil
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Health pings the database and Redis.
func (e *Engine) Health(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: database: %w", ErrPersistence, err)
	}
	if _, err := e.sessionStore.Ping(ctx); err != nil {
		return fmt.Errorf("%w: redis: %w", ErrPersistence, err)
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.sessionStore == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// rateError converts a limiter result. Redis failures fail closed.
func (e *Engine) rateError(ctx context.Context, scope string, id MetricID, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(id)
		e.emitRateLimit(ctx, scope)
		return ErrRateLimited
	}
	log.Printf("goEnroll: %s limiter: %v", scope, err)
	return fmt.Errorf("%w: %s limiter unavailable", ErrPersistence, scope)
}

func sessionError(op string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired), errors.Is(err, session.ErrCorrupt):
		return ErrRefreshInvalid
	case errors.Is(err, session.ErrHashMismatch):
		return ErrRefreshReuse
	}
	log.Printf("goEnroll: %s: %v", op, err)
	return fmt.Errorf("%w: %s", ErrPersistence, op)
}

// SecurityReport summarizes the engine's effective security settings.
func (e *Engine) SecurityReport() security.Report {
	if e == nil {
		return security.Report{}
	}
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Password: security.PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinLength:   cfg.Password.MinLength,
		},
		UpgradeOnLogin:        cfg.Password.UpgradeOnLogin,
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldown:         cfg.Security.LoginCooldownDuration,
		MaxRegistrationsPerIP: cfg.Security.MaxRegistrationsPerIP,
		MaxRefreshAttempts:    cfg.Security.MaxRefreshAttempts,
		AuditEnabled:          e.audit != nil,
	})
}
