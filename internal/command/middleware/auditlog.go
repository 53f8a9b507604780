package middleware

import (
	"context"
	"time"

	"solver/internal/command/audit"
	"solver/internal/command/models"
)

// AuditNotifier accepts fire-and-forget execution notifications.
type AuditNotifier interface {
	Notify(ctx context.Context, event audit.Event)
}

// AuditUnit observes every successful result and reports it to the backend.
// It is an observer, not a handler: it always returns NotApplicable so the
// chain keeps looking for the unit that owns the result.
type AuditUnit struct {
	notifier AuditNotifier
}

func NewAuditUnit(notifier AuditNotifier) *AuditUnit {
	return &AuditUnit{notifier: notifier}
}

func (u *AuditUnit) Name() string { return "audit" }

func (u *AuditUnit) EarlyExit() bool { return false }

func (u *AuditUnit) Matches(result models.ExecutionResult, _ models.Command) bool {
	return result.Success
}

func (u *AuditUnit) Process(ctx context.Context, result models.ExecutionResult, cmd models.Command, obj models.Object) (Outcome, error) {
	event := audit.Event{
		ObjectID:   result.ObjectID,
		ObjectName: result.ObjectName,
		Command:    cmd.Name,
		Timestamp:  time.Now().UTC(),
	}
	if event.ObjectID == "" {
		event.ObjectID = obj.ID.String()
	}
	if event.ObjectName == "" {
		event.ObjectName = obj.Name
	}
	if u.notifier != nil {
		u.notifier.Notify(ctx, event)
	}
	return NotApplicable, nil
}
