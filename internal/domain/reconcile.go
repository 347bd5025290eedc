package domain

import "time"

// ActionStatus is the per-action outcome of a reconcile pass
type ActionStatus string

const (
	// ActionStatusTracked marks actions acknowledged for analytics only;
	// no authenticated side effect is created for them
	ActionStatusTracked ActionStatus = "tracked"

	// ActionStatusCarriedOver marks actions that produced an authenticated
	// side effect (search history rows)
	ActionStatusCarriedOver ActionStatus = "carried_over"

	// ActionStatusFailed marks actions whose processing failed; failures
	// are isolated and never abort the rest of the pass
	ActionStatusFailed ActionStatus = "failed"
)

// ReasonNotFoundOrExpired is the soft no-op reason reported when a reconcile
// targets a session that is missing, expired, or already processed
const ReasonNotFoundOrExpired = "not_found_or_expired"

// ActionResult records the outcome of processing one buffered action
type ActionResult struct {
	Type     ActionType   `json:"type"`
	TargetID string       `json:"target_id"`
	Status   ActionStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
}

// ReconcileResult is the outcome of draining one session into authenticated
// side effects. Success means the session was found and processed; individual
// action failures are visible only in Results.
type ReconcileResult struct {
	Success        bool           `json:"success"`
	Reason         string         `json:"reason,omitempty"`
	ProcessedCount int            `json:"processed_count"`
	TotalActions   int            `json:"total_actions"`
	Results        []ActionResult `json:"results,omitempty"`
}

// SearchHistoryCarryoverCategory tags history rows created from buffered
// anonymous searches so they are distinguishable from live searches
const SearchHistoryCarryoverCategory = "carryover"

// SearchHistoryEntry is one row appended to an authenticated user's search
// history
type SearchHistoryEntry struct {
	UserID      string    `json:"user_id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	Category    string    `json:"category"`
	SearchedAt  time.Time `json:"searched_at"`
}

// AuditEvent is one append-only record emitted to the audit sink
type AuditEvent struct {
	ID        string                 `json:"id"`
	EventType string                 `json:"event_type"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
