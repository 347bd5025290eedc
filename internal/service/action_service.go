package service

import (
	"context"
	"fmt"
	"time"

	"vibe-be/internal/domain"
	"vibe-be/internal/repository"
	"vibe-be/pkg/anontoken"
	"vibe-be/pkg/logger"
	"vibe-be/pkg/ratelimit"
)

// actionService gates anonymous action ingestion: token validation first,
// then a per (session, action kind) throttle, then the atomic store merge
type actionService struct {
	store       repository.SessionStore
	limiter     ratelimit.Limiter
	audit       repository.AuditStore
	logger      *logger.Logger
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewAnonymousActionService creates a new anonymous action service
func NewAnonymousActionService(
	store repository.SessionStore,
	limiter ratelimit.Limiter,
	audit repository.AuditStore,
	logger *logger.Logger,
	maxRequests int,
	window time.Duration,
) AnonymousActionService {
	return &actionService{
		store:       store,
		limiter:     limiter,
		audit:       audit,
		logger:      logger,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// StoreActions buffers a batch of actions under the session token. Any
// validation failure rejects the whole call; no partial application occurs.
func (s *actionService) StoreActions(ctx context.Context, sessionID string, actions []domain.ActionRecord) (string, error) {
	now := s.now()

	if !anontoken.Validate(sessionID, now) {
		s.recordRejectedToken(ctx, sessionID, now)
		return "", fmt.Errorf("session token rejected: %w", domain.ErrInvalidTokenFormat)
	}

	// One throttle window per action kind present in the batch, so a batch
	// mixing kinds counts against each kind it touches
	for _, kind := range distinctKinds(actions) {
		key := fmt.Sprintf("anon:ratelimit:%s:%s", sessionID, kind)
		if err := s.limiter.Check(ctx, key, s.maxRequests, s.window); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"action_kind": kind,
				"batch_size":  len(actions),
			}).Warn("Anonymous action batch throttled")
			return "", err
		}
	}

	if err := s.store.Merge(ctx, sessionID, actions, now); err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"batch_size": len(actions),
	}).Debug("Anonymous actions buffered")

	return sessionID, nil
}

// GetCarryoverSummary reports the session's buffered contents
func (s *actionService) GetCarryoverSummary(ctx context.Context, sessionID string) (*domain.CarryoverSummary, error) {
	session, err := s.store.Get(ctx, sessionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load session for summary: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	return session.Summary(), nil
}

// recordRejectedToken emits a security audit event; failures only log since
// the rejection itself must still reach the caller
func (s *actionService) recordRejectedToken(ctx context.Context, token string, now time.Time) {
	event := &domain.AuditEvent{
		EventType: "anonymous_token_rejected",
		Details: map[string]interface{}{
			"token_length": len(token),
		},
		CreatedAt: now,
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to record token rejection audit event")
	}
}

// distinctKinds returns each action kind present in the batch, in first-seen order
func distinctKinds(actions []domain.ActionRecord) []domain.ActionType {
	seen := make(map[domain.ActionType]bool, len(actions))
	var kinds []domain.ActionType
	for i := range actions {
		if !seen[actions[i].Type] {
			seen[actions[i].Type] = true
			kinds = append(kinds, actions[i].Type)
		}
	}
	return kinds
}
