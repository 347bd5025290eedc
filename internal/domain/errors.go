package domain

import "errors"

// Sentinel errors for the anonymous session lifecycle. Call sites wrap these
// with fmt.Errorf("...: %w", err) so handlers can map them with errors.Is.
var (
	// ErrInvalidTokenFormat indicates the session token failed structural
	// or temporal validation
	ErrInvalidTokenFormat = errors.New("invalid session token format")

	// ErrInvalidAction indicates a malformed action record in a batch
	ErrInvalidAction = errors.New("invalid action record")

	// ErrInvalidTimestamp indicates a client-reported timestamp outside the
	// allowed clock skew window; it rejects the whole batch
	ErrInvalidTimestamp = errors.New("action timestamp outside allowed clock skew")

	// ErrSessionLimitExceeded indicates a merge would push a session past
	// the per-session action cap
	ErrSessionLimitExceeded = errors.New("session action limit exceeded")

	// ErrSessionExpired indicates a merge into a session whose TTL lapsed;
	// expired sessions are rejected, never resurrected
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionProcessed indicates a write into an already reconciled
	// session; processed sessions are terminal
	ErrSessionProcessed = errors.New("session already processed")
)
