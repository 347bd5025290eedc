package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vibe-be/internal/domain"
	"vibe-be/internal/repository"
	"vibe-be/pkg/logger"
)

// sweeperService deletes expired sessions on a recurring schedule and emits
// one audit event per run. Sweep never surfaces an error; a failed pass is
// logged and retried on the next tick.
type sweeperService struct {
	store    repository.SessionStore
	audit    repository.AuditStore
	logger   *logger.Logger
	schedule string
	cron     *cron.Cron
	now      func() time.Time

	mu        sync.Mutex
	isRunning bool
}

// NewSweeperService creates a new expiry sweeper; schedule uses cron syntax,
// including descriptors like "@every 10m"
func NewSweeperService(
	store repository.SessionStore,
	audit repository.AuditStore,
	logger *logger.Logger,
	schedule string,
) SweeperService {
	return &sweeperService{
		store:    store,
		audit:    audit,
		logger:   logger,
		schedule: schedule,
		now:      time.Now,
	}
}

// Start begins the recurring sweep
func (s *sweeperService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()

	s.isRunning = true
	s.logger.WithField("schedule", s.schedule).Info("Expiry sweeper started")
	return nil
}

// Stop halts the recurring sweep, waiting for an in-flight run to finish
func (s *sweeperService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.isRunning = false
	s.logger.Info("Expiry sweeper stopped")
	return nil
}

// Sweep runs one pass immediately. Running it again with no new expirations
// reports zero deletions.
func (s *sweeperService) Sweep(ctx context.Context) *domain.SweepSummary {
	now := s.now()
	summary := &domain.SweepSummary{CleanupTimestamp: now}

	deleted, err := s.store.DeleteExpiredBefore(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep failed")
		return summary
	}

	summary.DeletedSessions = len(deleted)
	for _, d := range deleted {
		summary.TotalActionsRemoved += d.ActionCount
	}

	event := &domain.AuditEvent{
		EventType: "anonymous_session_cleanup",
		Details: map[string]interface{}{
			"deleted_sessions":      summary.DeletedSessions,
			"total_actions_removed": summary.TotalActionsRemoved,
		},
		CreatedAt: now,
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to record sweep audit event")
	}

	s.logger.WithFields(map[string]interface{}{
		"deleted_sessions":      summary.DeletedSessions,
		"total_actions_removed": summary.TotalActionsRemoved,
	}).Info("Expiry sweep completed")

	return summary
}
