package events

import (
	"time"

	"github.com/spec-kit/storefront-client/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventSessionVerified fires when a verification run confirms identity.
	EventSessionVerified EventType = "session_verified"
	// EventSessionInvalidated is the single canonical signal that the session
	// is gone, whatever noticed it first: a gateway 401, a failed identity
	// check, or an explicit logout. Every clear/redirect path funnels through
	// this type so independent 401 handlers cannot drift apart.
	EventSessionInvalidated EventType = "session_invalidated"
)

// InvalidationCause records which path noticed the dead session.
type InvalidationCause string

const (
	CauseGatewayDenied InvalidationCause = "gateway_denied"
	CauseVerifyFailed  InvalidationCause = "verify_failed"
	CauseLogout        InvalidationCause = "logout"
)

// Event represents a session lifecycle event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionVerifiedPayload payload.
type SessionVerifiedPayload struct {
	Identity domain.Identity `json:"identity"`
	Path     string          `json:"path"`
}

// SessionInvalidatedPayload payload.
type SessionInvalidatedPayload struct {
	Cause InvalidationCause `json:"cause"`
}
