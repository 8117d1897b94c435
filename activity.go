package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignUp          ActivityEventType = "auth.signup"
	ActivityEventSignInSuccess   ActivityEventType = "auth.signin.success"
	ActivityEventSignInFailure   ActivityEventType = "auth.signin.failure"
	ActivityEventPasswordChanged ActivityEventType = "auth.password.changed"
	ActivityEventRevokedAll      ActivityEventType = "auth.tokens.revoked"
)

// ActivityEvent captures audit-friendly information about an action.
// Sinks watching ActivityEventSignInFailure are the compromise-detection
// extension point: a sink that decides an account is compromised calls
// Revoker.RevokeAll.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
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
