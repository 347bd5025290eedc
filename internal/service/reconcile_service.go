package service

import (
	"context"
	"fmt"
	"time"

	"vibe-be/internal/domain"
	"vibe-be/internal/repository"
	"vibe-be/pkg/logger"
)

// reconcileService folds a session's buffered actions into authenticated
// side effects. The session is claimed with an atomic conditional write
// before any action is touched, so concurrent or repeated reconcile calls
// for the same session cannot double-apply.
type reconcileService struct {
	store   repository.SessionStore
	history repository.SearchHistoryStore
	logger  *logger.Logger
	now     func() time.Time
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	store repository.SessionStore,
	history repository.SearchHistoryStore,
	logger *logger.Logger,
) ReconcileService {
	return &reconcileService{
		store:   store,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// ReconcileOnSignIn drains the session for the authenticated subject. A
// missing, expired, or already-claimed session is a soft no-op, not an
// error. Individual action failures are isolated into the result list and
// never abort the pass.
func (s *reconcileService) ReconcileOnSignIn(ctx context.Context, sessionID, subject string) (*domain.ReconcileResult, error) {
	now := s.now()

	session, err := s.store.ClaimForProcessing(ctx, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim session for reconciliation: %w", err)
	}
	if session == nil {
		return &domain.ReconcileResult{
			Success: false,
			Reason:  domain.ReasonNotFoundOrExpired,
		}, nil
	}

	result := &domain.ReconcileResult{
		Success:      true,
		TotalActions: len(session.Actions),
		Results:      make([]domain.ActionResult, 0, len(session.Actions)),
	}

	for i := range session.Actions {
		outcome := s.processAction(ctx, subject, &session.Actions[i])
		if outcome.Status != domain.ActionStatusFailed {
			result.ProcessedCount++
		}
		result.Results = append(result.Results, outcome)
	}

	s.logger.WithFields(map[string]interface{}{
		"subject":   subject,
		"processed": result.ProcessedCount,
		"total":     result.TotalActions,
	}).Info("Anonymous session reconciled")

	return result, nil
}

// processAction applies one buffered action for the subject. Only search
// actions create an authenticated side effect; the rest are acknowledged for
// future analytics carryover.
func (s *reconcileService) processAction(ctx context.Context, subject string, action *domain.ActionRecord) domain.ActionResult {
	outcome := domain.ActionResult{
		Type:     action.Type,
		TargetID: action.TargetID,
	}

	switch action.Type {
	case domain.ActionViewContent, domain.ActionLikeContent, domain.ActionRatingAttempt, domain.ActionFollowAttempt:
		outcome.Status = domain.ActionStatusTracked

	case domain.ActionSearch:
		entry := &domain.SearchHistoryEntry{
			UserID:      subject,
			Query:       action.Query(),
			ResultCount: 0,
			Category:    domain.SearchHistoryCarryoverCategory,
			SearchedAt:  time.UnixMilli(action.Timestamp),
		}
		if err := s.history.Append(ctx, entry); err != nil {
			s.logger.WithError(err).WithField("subject", subject).Warn("Failed to carry over search history entry")
			outcome.Status = domain.ActionStatusFailed
			outcome.Error = err.Error()
			break
		}
		outcome.Status = domain.ActionStatusCarriedOver

	default:
		// Unknown kinds are rejected at ingestion; a record reaching this
		// branch means the stored data was tampered with or corrupted
		outcome.Status = domain.ActionStatusFailed
		outcome.Error = fmt.Sprintf("unknown action type %q", action.Type)
	}

	return outcome
}
