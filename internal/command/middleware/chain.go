package middleware

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"solver/internal/command/models"
)

var tracer = otel.Tracer("solver/internal/command/middleware")

// Result is the chain's aggregated decision for the presentation layer.
type Result struct {
	Handled bool
	// Message is the last handling unit's message, prefixed with its name.
	Message string
	// ShowGenericUI tells the caller to fall back to the generic result
	// display. Forced true when nothing handled the result.
	ShowGenericUI bool
	// HandledBy lists the units that handled the result, in chain order.
	HandledBy []string
}

// Chain runs units in a fixed priority order. The order is set at
// construction and never changes at runtime: several units can match the
// same result, and early-exit units must win over observers behind them.
type Chain struct {
	units  []Unit
	logger *slog.Logger

	onUnitFailure func(unit string)
	onHandled     func(unit string)
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithChainLogger sets the logger for per-unit messages and contained failures.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger }
}

// WithFailureHook installs a callback invoked when a unit's Process fails.
// Used for metrics without coupling the chain to a registry.
func WithFailureHook(hook func(unit string)) ChainOption {
	return func(c *Chain) { c.onUnitFailure = hook }
}

// WithHandledHook installs a callback invoked when a unit handles a result.
func WithHandledHook(hook func(unit string)) ChainOption {
	return func(c *Chain) { c.onHandled = hook }
}

// NewChain composes units in the given order.
func NewChain(units []Unit, opts ...ChainOption) *Chain {
	c := &Chain{units: units}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run passes one execution result through the chain.
//
// For each unit in order: skip unless it matches; invoke Process; on
// Handled record the unit, keep its prefixed message (last one wins), and
// unless it suppressed, mark the generic UI visible. A failing unit is
// logged and skipped - containment, not propagation. An early-exit unit
// that handles stops the chain. If nothing handled, the generic UI shows
// regardless of any suppress flag.
func (c *Chain) Run(ctx context.Context, result models.ExecutionResult, cmd models.Command, obj models.Object) Result {
	ctx, span := tracer.Start(ctx, "middleware.Chain.Run",
		trace.WithAttributes(
			attribute.String("command", cmd.Name),
			attribute.Bool("result.success", result.Success),
		))
	defer span.End()

	aggregate := Result{}
	for _, unit := range c.units {
		if !unit.Matches(result, cmd) {
			continue
		}

		outcome, err := unit.Process(ctx, result, cmd, obj)
		if err != nil {
			c.logger.Warn("middleware unit failed, continuing chain",
				"unit", unit.Name(),
				"command", cmd.Name,
				"error", err,
			)
			if c.onUnitFailure != nil {
				c.onUnitFailure(unit.Name())
			}
			continue
		}
		if !outcome.Handled {
			continue
		}

		aggregate.Handled = true
		aggregate.HandledBy = append(aggregate.HandledBy, unit.Name())
		aggregate.Message = unit.Name() + ": " + outcome.Message
		c.logger.Info("middleware unit handled result",
			"unit", unit.Name(),
			"command", cmd.Name,
			"message", outcome.Message,
		)
		if c.onHandled != nil {
			c.onHandled(unit.Name())
		}
		if !outcome.SuppressGenericUI {
			aggregate.ShowGenericUI = true
		}

		if unit.EarlyExit() {
			span.SetAttributes(attribute.String("chain.early_exit", unit.Name()))
			break
		}
	}

	if !aggregate.Handled {
		aggregate.ShowGenericUI = true
	}
	span.SetAttributes(
		attribute.Bool("chain.handled", aggregate.Handled),
		attribute.Bool("chain.show_generic_ui", aggregate.ShowGenericUI),
	)
	return aggregate
}
