package ayushya

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventChallengeRequested ActivityEventType = "auth.challenge.requested"
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityEventLogout             ActivityEventType = "auth.logout"
	ActivityEventSessionCreated     ActivityEventType = "auth.session.created"
	ActivityEventSessionInvalidated ActivityEventType = "auth.session.invalidated"
	ActivityEventUserCreated        ActivityEventType = "user.created"
	ActivityEventUserUpdated        ActivityEventType = "user.updated"
	ActivityEventUserStatusChanged  ActivityEventType = "user.status.changed"
)

// ActorRef identifies who/what triggered an action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus UserStatus
	ToStatus   UserStatus
	Origin     Origin
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// NewStoreActivitySink returns a sink that appends events to the activity
// repository, making the audit trail queryable per user.
func NewStoreActivitySink(records ActivityRecords) ActivitySink {
	return &storeActivitySink{records: records}
}

type storeActivitySink struct {
	records ActivityRecords
}

func (s *storeActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	if s.records == nil {
		return nil
	}
	return s.records.Append(ctx, recordFromEvent(event))
}

func recordFromEvent(event ActivityEvent) *ActivityRecord {
	record := &ActivityRecord{
		Kind:      string(event.EventType),
		ActorID:   event.Actor.ID,
		ActorType: event.Actor.Type,
		Payload:   event.Metadata,
		IPAddress: event.Origin.IP,
		UserAgent: event.Origin.UserAgent,
	}

	if event.UserID != "" {
		if id, err := parseUUID(event.UserID); err == nil {
			record.UserID = &id
		}
	}

	if event.FromStatus != "" || event.ToStatus != "" {
		if record.Payload == nil {
			record.Payload = map[string]any{}
		}
		record.Payload["from_status"] = string(event.FromStatus)
		record.Payload["to_status"] = string(event.ToStatus)
	}

	if !event.OccurredAt.IsZero() {
		at := event.OccurredAt
		record.CreatedAt = &at
	}

	return record
}
