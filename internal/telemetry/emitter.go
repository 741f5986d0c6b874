package telemetry

import (
	"context"
	"time"
)

// Session lifecycle event types.
const (
	EventEstablished = "session.established"
	EventRotated     = "session.rotated"
	EventRevoked     = "session.revoked"
)

// Event is a session lifecycle event. HashPrefix carries only the first few
// characters of the access hash, enough to correlate without logging a usable
// credential.
type Event struct {
	EventType  string
	UserID     string
	HashPrefix string
	At         time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort;
// callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// HashPrefix returns the correlation prefix for an access hash.
func HashPrefix(hash string) string {
	const n = 8
	if len(hash) < n {
		return hash
	}
	return hash[:n]
}
