package domain

import (
	"fmt"
	"time"
)

// ActionType identifies the kind of action an anonymous visitor buffered
type ActionType string

const (
	ActionViewContent   ActionType = "vibe_view"
	ActionLikeContent   ActionType = "vibe_like"
	ActionRatingAttempt ActionType = "rating_attempt"
	ActionFollowAttempt ActionType = "follow_attempt"
	ActionSearch        ActionType = "search"
)

// Session buffering limits
const (
	// MaxActionsPerSession caps how many actions a single session may hold
	MaxActionsPerSession = 50

	// SessionTTL is the sliding expiration window; it is refreshed to
	// now+SessionTTL on every successful merge
	SessionTTL = 24 * time.Hour
)

// Clock skew tolerance for client-reported timestamps: up to one minute
// ahead of the server and up to seven days behind it
const (
	MaxForwardSkew  = time.Minute
	MaxBackwardSkew = 7 * 24 * time.Hour
)

// SearchData is the typed payload carried by search actions
type SearchData struct {
	Query string `json:"query"`
}

// ActionRecord is a single buffered visitor action. Records are immutable
// once stored; Timestamp is client-reported epoch milliseconds.
type ActionRecord struct {
	Type      ActionType  `json:"type"`
	TargetID  string      `json:"target_id"`
	Search    *SearchData `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// IsValid reports whether the action type is one of the known kinds
func (t ActionType) IsValid() bool {
	switch t {
	case ActionViewContent, ActionLikeContent, ActionRatingAttempt, ActionFollowAttempt, ActionSearch:
		return true
	}
	return false
}

// Validate checks the record's shape: known type, target present, and a
// payload only where the type defines one
func (a *ActionRecord) Validate() error {
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}
	if a.TargetID == "" {
		return fmt.Errorf("%w: missing target id", ErrInvalidAction)
	}
	if a.Search != nil && a.Type != ActionSearch {
		return fmt.Errorf("%w: action type %q does not carry a payload", ErrInvalidAction, a.Type)
	}
	return nil
}

// ValidateTimestamp checks the client-reported timestamp against the skew
// window; both boundaries are inclusive
func (a *ActionRecord) ValidateTimestamp(now time.Time) error {
	diff := now.UnixMilli() - a.Timestamp
	if diff < -MaxForwardSkew.Milliseconds() || diff > MaxBackwardSkew.Milliseconds() {
		return fmt.Errorf("%w: timestamp %d is %dms from server time", ErrInvalidTimestamp, a.Timestamp, diff)
	}
	return nil
}

// Query returns the search term carried by a search action, falling back to
// the target id when the payload omitted one
func (a *ActionRecord) Query() string {
	if a.Search != nil && a.Search.Query != "" {
		return a.Search.Query
	}
	return a.TargetID
}

// ValidateBatch validates every incoming record before any is applied. The
// whole batch is rejected on the first shape violation, on any timestamp
// outside the skew window, or when the combined size would exceed the
// per-session cap. All timestamps are checked before reporting so the error
// reflects the full extent of the violation, never a partial scan.
func ValidateBatch(existingCount int, incoming []ActionRecord, now time.Time, maxActions int) error {
	if len(incoming) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidAction)
	}
	if existingCount+len(incoming) > maxActions {
		return fmt.Errorf("%w: session holds %d actions, batch of %d exceeds the cap of %d",
			ErrSessionLimitExceeded, existingCount, len(incoming), maxActions)
	}

	var invalid []int
	for i := range incoming {
		if err := incoming[i].Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		if err := incoming[i].ValidateTimestamp(now); err != nil {
			invalid = append(invalid, i)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %d of %d actions outside the skew window, first at index %d",
			ErrInvalidTimestamp, len(invalid), len(incoming), invalid[0])
	}
	return nil
}

// AnonymousSession buffers pre-authentication visitor actions under an
// opaque session token until they are reconciled or expire
type AnonymousSession struct {
	SessionID   string         `json:"session_id"`
	Actions     []ActionRecord `json:"actions"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}

// IsExpired reports whether the session's sliding TTL has lapsed
func (s *AnonymousSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// IsProcessed reports whether the session was already reconciled; processed
// sessions are terminal
func (s *AnonymousSession) IsProcessed() bool {
	return s.ProcessedAt != nil
}

// Summary aggregates the session's buffered actions for the carryover preview
func (s *AnonymousSession) Summary() *CarryoverSummary {
	counts := make(map[ActionType]int, len(s.Actions))
	for i := range s.Actions {
		counts[s.Actions[i].Type]++
	}
	return &CarryoverSummary{
		TotalActions:   len(s.Actions),
		CountsByType:   counts,
		SessionCreated: s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

// CarryoverSummary describes what a session holds without exposing the
// individual action records
type CarryoverSummary struct {
	TotalActions   int                `json:"total_actions"`
	CountsByType   map[ActionType]int `json:"counts_by_type"`
	SessionCreated time.Time          `json:"session_created"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// DeletedSession summarizes one session removed by an expiry sweep
type DeletedSession struct {
	SessionID   string    `json:"session_id"`
	ActionCount int       `json:"action_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// SweepSummary is the outcome of one expiry sweep run
type SweepSummary struct {
	DeletedSessions     int       `json:"deleted_sessions"`
	TotalActionsRemoved int       `json:"total_actions_removed"`
	CleanupTimestamp    time.Time `json:"cleanup_timestamp"`
}
