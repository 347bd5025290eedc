package service

import (
	"context"

	"vibe-be/internal/domain"
)

// AuthService verifies tokens issued by the external identity provider
type AuthService interface {
	// ValidateToken verifies a bearer token and returns its claims
	ValidateToken(ctx context.Context, token string) (*domain.AuthClaims, error)
}

// AnonymousActionService ingests and summarizes pre-authentication visitor
// actions buffered under opaque session tokens
type AnonymousActionService interface {
	// StoreActions validates the session token, throttles per action kind,
	// and merges the batch into the session's buffer
	StoreActions(ctx context.Context, sessionID string, actions []domain.ActionRecord) (string, error)

	// GetCarryoverSummary reports what a session holds, or nil when the
	// session is unknown or expired
	GetCarryoverSummary(ctx context.Context, sessionID string) (*domain.CarryoverSummary, error)
}

// ReconcileService drains a session's buffered actions into authenticated
// side effects after sign-in
type ReconcileService interface {
	// ReconcileOnSignIn claims the session and processes its actions in
	// insertion order with per-action failure isolation
	ReconcileOnSignIn(ctx context.Context, sessionID, subject string) (*domain.ReconcileResult, error)
}

// SweeperService prunes expired sessions on a recurring schedule
type SweeperService interface {
	// Start begins the recurring sweep
	Start(ctx context.Context) error

	// Stop halts the recurring sweep
	Stop(ctx context.Context) error

	// Sweep runs one pass immediately and reports what was removed
	Sweep(ctx context.Context) *domain.SweepSummary
}

// Services aggregates all service interfaces
type Services struct {
	Auth      AuthService
	Actions   AnonymousActionService
	Reconcile ReconcileService
	Sweeper   SweeperService
}
