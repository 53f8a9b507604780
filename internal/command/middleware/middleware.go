// Package middleware interprets server responses to command execution.
// A fixed-order chain of single-responsibility units examines each result;
// a unit may claim it (Handled) or pass (NotApplicable), and units marked
// early-exit stop the chain once they handle.
package middleware

import (
	"context"

	"solver/internal/command/models"
)

// Outcome is a unit's verdict on one execution result.
type Outcome struct {
	Handled bool
	// Message is a human-readable note from the handling unit.
	Message string
	// SuppressGenericUI indicates the unit presented the result itself and
	// the generic fallback display should stay hidden.
	SuppressGenericUI bool
}

// NotApplicable is the verdict of a unit that does not claim the result.
var NotApplicable = Outcome{}

// Handled builds a claiming verdict.
func Handled(message string, suppressGenericUI bool) Outcome {
	return Outcome{Handled: true, Message: message, SuppressGenericUI: suppressGenericUI}
}

// Unit is a single-responsibility interpreter of an execution result.
//
// Matches must be cheap and side-effect free. Process may fail; failures
// are contained by the chain and never abort it. EarlyExit declares
// statically whether the chain stops after this unit handles a result.
type Unit interface {
	Name() string
	EarlyExit() bool
	Matches(result models.ExecutionResult, cmd models.Command) bool
	Process(ctx context.Context, result models.ExecutionResult, cmd models.Command, obj models.Object) (Outcome, error)
}
