package middleware

import (
	"context"

	"solver/internal/command/models"
)

// StatusPresenter receives a result that should be rendered in the
// dedicated status view instead of the generic display.
type StatusPresenter func(result models.ExecutionResult)

// StatusUnit routes status command results to a dedicated presentation
// callback and suppresses the generic display.
type StatusUnit struct {
	present StatusPresenter
}

func NewStatusUnit(present StatusPresenter) *StatusUnit {
	return &StatusUnit{present: present}
}

func (u *StatusUnit) Name() string { return "status" }

func (u *StatusUnit) EarlyExit() bool { return false }

func (u *StatusUnit) Matches(_ models.ExecutionResult, cmd models.Command) bool {
	return cmd.Is("status") || cmd.Is("adminstatus")
}

func (u *StatusUnit) Process(_ context.Context, result models.ExecutionResult, _ models.Command, obj models.Object) (Outcome, error) {
	if u.present != nil {
		u.present(result)
	}
	return Handled("presented status for "+obj.Name, true), nil
}
