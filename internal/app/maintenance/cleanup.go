package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/services"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/logger"
)

const (
	defaultCodeSpec  = "@hourly"
	defaultTokenSpec = "@daily"
	defaultCacheSpec = "@hourly"
)

// Cleaner runs background hygiene sweeps: expired verification codes, spent
// password reset tokens and stale cache entries. Correctness never depends on
// these sweeps; the read paths already ignore expired rows.
type Cleaner struct {
	db       *gorm.DB
	verifier *services.VerificationService
	resets   *services.PasswordResetService
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	codeSchedule  string
	tokenSchedule string
	cacheSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCodeSchedule overrides the cron spec for verification code cleanup.
func WithCodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.codeSchedule = spec
		}
	}
}

// WithTokenSchedule overrides the cron spec for reset token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron spec for cache entry cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner.
func NewCleaner(db *gorm.DB, verifier *services.VerificationService, resets *services.PasswordResetService, opts ...Option) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("maintenance: db is required")
	}
	if verifier == nil {
		return nil, errors.New("maintenance: verification service is required")
	}
	if resets == nil {
		return nil, errors.New("maintenance: password reset service is required")
	}

	cleaner := &Cleaner{
		db:            db,
		verifier:      verifier,
		resets:        resets,
		cron:          cron.New(),
		now:           time.Now,
		log:           logger.WithComponent("maintenance"),
		codeSchedule:  defaultCodeSpec,
		tokenSchedule: defaultTokenSpec,
		cacheSchedule: defaultCacheSpec,
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	return cleaner, nil
}

// Start registers the jobs and launches the scheduler.
func (c *Cleaner) Start(ctx context.Context) error {
	if _, err := c.cron.AddFunc(c.codeSchedule, func() { c.runJob(ctx, "verification_codes", c.purgeCodes) }); err != nil {
		return fmt.Errorf("maintenance: schedule code cleanup: %w", err)
	}
	if _, err := c.cron.AddFunc(c.tokenSchedule, func() { c.runJob(ctx, "reset_tokens", c.purgeTokens) }); err != nil {
		return fmt.Errorf("maintenance: schedule token cleanup: %w", err)
	}
	if _, err := c.cron.AddFunc(c.cacheSchedule, func() { c.runJob(ctx, "cache_entries", c.purgeCache) }); err != nil {
		return fmt.Errorf("maintenance: schedule cache cleanup: %w", err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunOnce executes every sweep immediately. Used at startup and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	return multierr.Combine(
		c.purgeCodes(ctx),
		c.purgeTokens(ctx),
		c.purgeCache(ctx),
	)
}

func (c *Cleaner) runJob(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		c.log.Error("cleanup job failed", zap.String("job", name), zap.Error(err))
	}
}

func (c *Cleaner) purgeCodes(ctx context.Context) error {
	purged, err := c.verifier.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: purge verification codes: %w", err)
	}
	if purged > 0 {
		c.log.Info("purged expired verification codes", zap.Int64("count", purged))
	}
	return nil
}

func (c *Cleaner) purgeTokens(ctx context.Context) error {
	purged, err := c.resets.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: purge reset tokens: %w", err)
	}
	if purged > 0 {
		c.log.Info("purged spent reset tokens", zap.Int64("count", purged))
	}
	return nil
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	// A zero expires_at marks a non-expiring entry.
	result := c.db.WithContext(ctx).
		Where("expires_at > ? AND expires_at < ?", time.Time{}, c.now()).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return fmt.Errorf("maintenance: purge cache entries: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		c.log.Info("purged expired cache entries", zap.Int64("count", result.RowsAffected))
	}
	return nil
}
