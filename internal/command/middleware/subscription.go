package middleware

import (
	"context"

	"solver/internal/command/models"
)

// SubscriptionOptionsKey is the context key carrying the subscription
// options payload for commands gated by an active subscription.
const SubscriptionOptionsKey = "subscriptionoptions"

// SubscriptionUnit intercepts results that require a subscription and hands
// off to the subscription flow. Terminal for the same reason as payment:
// the command itself was not executed.
type SubscriptionUnit struct {
	start FlowStarter
}

func NewSubscriptionUnit(start FlowStarter) *SubscriptionUnit {
	return &SubscriptionUnit{start: start}
}

func (u *SubscriptionUnit) Name() string { return "subscription" }

func (u *SubscriptionUnit) EarlyExit() bool { return true }

func (u *SubscriptionUnit) Matches(result models.ExecutionResult, _ models.Command) bool {
	return result.HasContext(SubscriptionOptionsKey)
}

func (u *SubscriptionUnit) Process(ctx context.Context, result models.ExecutionResult, cmd models.Command, obj models.Object) (Outcome, error) {
	payload, _ := result.ContextValue(SubscriptionOptionsKey)
	if u.start != nil {
		if err := u.start(ctx, obj, cmd, payload); err != nil {
			return NotApplicable, err
		}
	}
	return Handled("subscription required for "+cmd.EffectiveName(), true), nil
}
