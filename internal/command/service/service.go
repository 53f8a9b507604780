// Package service orchestrates command execution: it resolves the commands
// a caller may run against an object, executes one against the backend, and
// interprets the response through the middleware chain.
package service

import (
	"context"
	"log/slog"
	"time"

	"solver/internal/command/middleware"
	"solver/internal/command/models"
	"solver/internal/platform/metrics"
	"solver/internal/solver"
	"solver/pkg/domain"
)

// Backend is the slice of the REST client this service needs.
// Error Contract: methods return domain errors from the closed taxonomy,
// never raw transport errors.
type Backend interface {
	Objects(ctx context.Context) ([]models.Object, error)
	Object(ctx context.Context, id domain.ObjectID) (models.Object, error)
	Execute(ctx context.Context, objectID domain.ObjectID, command string, opts solver.ExecuteOptions) (models.ExecutionResult, error)
}

// Execution is the aggregate outcome of running one command: the parsed
// server response plus the chain's presentation decision.
type Execution struct {
	Result   models.ExecutionResult
	Decision middleware.Result
}

// Service runs commands and feeds results through the middleware chain.
type Service struct {
	backend Backend
	chain   *middleware.Chain
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the command service.
func New(backend Backend, chain *middleware.Chain, opts ...Option) *Service {
	s := &Service{backend: backend, chain: chain}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Objects lists the caller's controllable objects.
func (s *Service) Objects(ctx context.Context) ([]models.Object, error) {
	return s.backend.Objects(ctx)
}

// Object fetches one object.
func (s *Service) Object(ctx context.Context, id domain.ObjectID) (models.Object, error) {
	return s.backend.Object(ctx, id)
}

// Commands resolves the sorted, visibility-filtered command list for an
// object in the caller's locale. Admin level is never exposed here.
func (s *Service) Commands(obj models.Object, locale string) []models.Command {
	return obj.Catalog.CommandsFor(obj.UserAccess, locale)
}

// Execute runs one command against an object and interprets the response.
// The backend error (if any) propagates untouched; the chain only sees
// results the server produced.
func (s *Service) Execute(ctx context.Context, obj models.Object, cmd models.Command, opts solver.ExecuteOptions) (Execution, error) {
	start := time.Now()
	result, err := s.backend.Execute(ctx, obj.ID, cmd.Name, opts)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CommandExecutions.WithLabelValues(cmd.Name, "error").Inc()
		}
		return Execution{}, err
	}

	decision := s.chain.Run(ctx, result, cmd, obj)

	if s.metrics != nil {
		outcome := "unhandled"
		if decision.Handled {
			outcome = "handled"
		}
		s.metrics.CommandExecutions.WithLabelValues(cmd.Name, outcome).Inc()
		s.metrics.CommandDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}
	s.logger.Debug("command executed",
		"object_id", obj.ID.String(),
		"command", cmd.Name,
		"success", result.Success,
		"handled", decision.Handled,
		"show_generic_ui", decision.ShowGenericUI,
	)
	return Execution{Result: result, Decision: decision}, nil
}
