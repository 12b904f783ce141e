package scheduler

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/redis"
	"github.com/werkbank-digital/planned/pkg/sync"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

var (
	// ErrSchedulerAlreadyRunning is returned when starting a running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

const (
	// DefaultPollInterval is the default interval between scheduling cycles
	DefaultPollInterval = 15 * time.Minute

	// DefaultLockTTL is the default TTL for the per-tenant sync lock
	DefaultLockTTL = 10 * time.Minute

	// DefaultBatchSize is the number of tenants to sync per cycle
	DefaultBatchSize = 50
)

// ProjectSyncer runs one Asana project sync for a tenant
type ProjectSyncer interface {
	Execute(ctx context.Context, tenantID uuid.UUID) *sync.AsanaSyncResult
}

// AbsenceSyncer runs one TimeTac absence sync for a tenant
type AbsenceSyncer interface {
	Execute(ctx context.Context, tenantID uuid.UUID, dateRange *sync.DateRange) *sync.AbsenceSyncResult
}

// TimeEntrySyncer runs one TimeTac time entry sync for a tenant
type TimeEntrySyncer interface {
	Execute(ctx context.Context, tenantID uuid.UUID, dateRange *sync.DateRange) *sync.TimeEntrySyncResult
}

// DueLister lists tenants whose integrations are due for a sync
type DueLister interface {
	ListDueTenants(ctx context.Context, interval time.Duration, limit int) ([]SyncDue, error)
}

// Config holds scheduler configuration
type Config struct {
	// PollInterval is how often to look for due tenants
	PollInterval time.Duration

	// LockTTL is how long the per-tenant sync lock is held
	LockTTL time.Duration

	// BatchSize is the maximum number of tenants per cycle
	BatchSize int
}

// Scheduler periodically runs background syncs for every tenant with a
// connected integration. A per-tenant, per-service Redis lock keeps runs
// exclusive across API instances; a tenant that loses the race is skipped,
// not queued, since the winning instance is doing the same work.
type Scheduler struct {
	repo     DueLister
	locker   *redis.Locker
	projects ProjectSyncer
	absences AbsenceSyncer
	entries  TimeEntrySyncer
	config   Config
	logger   ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       gosync.RWMutex
}

// NewScheduler creates the sync scheduler
func NewScheduler(
	repo DueLister,
	locker *redis.Locker,
	projects ProjectSyncer,
	absences AbsenceSyncer,
	entries TimeEntrySyncer,
	config Config,
	logger ectologger.Logger,
) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	return &Scheduler{
		repo:     repo,
		locker:   locker,
		projects: projects,
		absences: absences,
		entries:  entries,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Start starts the polling loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting sync scheduler: poll_interval=%s batch_size=%d",
		s.config.PollInterval, s.config.BatchSize)

	go s.pollLoop(ctx)
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping sync scheduler...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Sync scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Sync scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning reports whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Sync scheduler poll loop stopping")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.runCycle")
	defer span.End()

	start := time.Now()

	due, err := s.repo.ListDueTenants(ctx, s.config.PollInterval, s.config.BatchSize)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list due tenants")
		return
	}
	if len(due) == 0 {
		s.logger.WithContext(ctx).Debug("No tenants due for sync")
		return
	}

	synced := 0
	skipped := 0
	for _, tenant := range due {
		select {
		case <-s.stopCh:
			return
		default:
		}

		ran, err := s.syncTenant(ctx, tenant)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warnf("Failed to sync tenant %s", tenant.TenantID)
			continue
		}
		if ran {
			synced++
		} else {
			skipped++
		}
	}

	s.logger.WithContext(ctx).Infof("Scheduling cycle completed: synced=%d skipped=%d duration=%s",
		synced, skipped, time.Since(start))
}

// syncTenant runs every due service for one tenant. The bool reports
// whether at least one service actually ran.
func (s *Scheduler) syncTenant(ctx context.Context, tenant SyncDue) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.syncTenant")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenant.TenantID.String())
	ran := false

	if tenant.HasAsana {
		ok, err := s.withServiceLock(ctx, tenant.TenantID, models.SyncServiceAsana, func() {
			s.projects.Execute(ctx, tenant.TenantID)
		})
		if err != nil {
			return ran, err
		}
		ran = ran || ok
	}

	if tenant.HasTimeTac {
		ok, err := s.withServiceLock(ctx, tenant.TenantID, models.SyncServiceTimeTac, func() {
			s.absences.Execute(ctx, tenant.TenantID, nil)
			s.entries.Execute(ctx, tenant.TenantID, nil)
		})
		if err != nil {
			return ran, err
		}
		ran = ran || ok
	}

	return ran, nil
}

func (s *Scheduler) withServiceLock(ctx context.Context, tenantID uuid.UUID, service models.SyncService, fn func()) (bool, error) {
	key := redis.SyncKey(tenantID.String(), string(service))

	lock, err := s.locker.Acquire(ctx, key, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.logger.WithContext(ctx).Debugf("Sync for %s already running elsewhere", key)
			return false, nil
		}
		return false, err
	}
	defer lock.Release(ctx)

	fn()
	return true, nil
}
