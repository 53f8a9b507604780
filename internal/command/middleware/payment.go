package middleware

import (
	"context"

	"solver/internal/command/models"
)

// PaymentRequiredKey is the context key signaling the command is gated by a
// payment step. The value is an opaque payload the payment flow consumes.
const PaymentRequiredKey = "paymentrequired"

// FlowStarter redirects the user into an external business flow (payment
// or subscription) with the server-provided payload.
type FlowStarter func(ctx context.Context, obj models.Object, cmd models.Command, payload string) error

// PaymentUnit intercepts results that demand a payment step before the
// command can take effect and hands off to the payment flow. It is
// terminal: the command did not execute, so nothing else should interpret
// the result.
type PaymentUnit struct {
	start FlowStarter
}

func NewPaymentUnit(start FlowStarter) *PaymentUnit {
	return &PaymentUnit{start: start}
}

func (u *PaymentUnit) Name() string { return "payment" }

func (u *PaymentUnit) EarlyExit() bool { return true }

func (u *PaymentUnit) Matches(result models.ExecutionResult, _ models.Command) bool {
	return result.HasContext(PaymentRequiredKey)
}

func (u *PaymentUnit) Process(ctx context.Context, result models.ExecutionResult, cmd models.Command, obj models.Object) (Outcome, error) {
	payload, _ := result.ContextValue(PaymentRequiredKey)
	if u.start != nil {
		if err := u.start(ctx, obj, cmd, payload); err != nil {
			return NotApplicable, err
		}
	}
	return Handled("payment required for "+cmd.EffectiveName(), true), nil
}
