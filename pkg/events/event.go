package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the subject suffix for this event (e.g. "workspace.changed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const TypeWorkspaceChanged = "workspace.changed"

// WorkspaceChanged announces that a user's workspace document was rewritten.
type WorkspaceChanged struct {
	UserID     string
	InstanceID string
	Kind       string
	ScopeID    string
	OccurredAt time.Time
}

func (e WorkspaceChanged) EventType() string {
	return TypeWorkspaceChanged
}

func (e WorkspaceChanged) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"instance_id": e.InstanceID,
		"kind":        e.Kind,
		"scope_id":    e.ScopeID,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func (e WorkspaceChanged) Timestamp() time.Time {
	return e.OccurredAt
}

// WorkspaceChangedFromPayload rebuilds the event from a decoded payload.
func WorkspaceChangedFromPayload(p map[string]interface{}) WorkspaceChanged {
	e := WorkspaceChanged{}
	e.UserID, _ = p["user_id"].(string)
	e.InstanceID, _ = p["instance_id"].(string)
	e.Kind, _ = p["kind"].(string)
	e.ScopeID, _ = p["scope_id"].(string)
	if ts, ok := p["occurred_at"].(string); ok {
		e.OccurredAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return e
}
