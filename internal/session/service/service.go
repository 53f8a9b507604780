// Package service orchestrates the session lifecycle: sign-in across
// identity providers, multi-account switching, and silent credential
// refresh. Sessions are only created after a sign-in fully completes;
// a cancelled or failed flow leaves the registry untouched.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"solver/internal/identity"
	"solver/internal/platform/metrics"
	"solver/internal/session/models"
	"solver/internal/session/store"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

// Service owns the sign-in flows and the freshness of stored credentials.
type Service struct {
	store          *store.Store
	authenticators map[domain.Provider]identity.Authenticator
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time

	refreshGroup singleflight.Group
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

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds the session service over a store and a set of provider
// strategies.
func New(st *store.Store, authenticators []identity.Authenticator, opts ...Option) *Service {
	byProvider := make(map[domain.Provider]identity.Authenticator, len(authenticators))
	for _, a := range authenticators {
		byProvider[a.Provider()] = a
	}
	s := &Service{
		store:          st,
		authenticators: byProvider,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SignIn runs the provider's full flow and, only on success, records a new
// session and makes it current. Cancellation propagates as a distinct
// non-failure outcome the caller maps to "return to idle".
func (s *Service) SignIn(ctx context.Context, provider domain.Provider, env domain.Environment) (models.Session, error) {
	auth, ok := s.authenticators[provider]
	if !ok {
		return models.Session{}, dErrors.New(dErrors.CodeInvalidInput, "unknown identity provider: "+provider.String())
	}
	if s.metrics != nil {
		s.metrics.AuthAttempts.WithLabelValues(provider.String()).Inc()
	}

	creds, err := auth.Authenticate(ctx)
	if err != nil {
		if s.metrics != nil && !dErrors.HasCode(err, dErrors.CodeAuthCancelled) {
			s.metrics.AuthFailures.WithLabelValues(provider.String()).Inc()
		}
		return models.Session{}, err
	}

	session, err := s.store.CreateSession(ctx, provider, env, creds)
	if err != nil {
		return models.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist new session")
	}
	s.logger.Info("signed in",
		"provider", provider.String(),
		"environment", env.String(),
		"session_id", session.ID.String(),
	)
	return session, nil
}

// SignOut removes one account. The store reassigns the current pointer if
// the removed session was current.
func (s *Service) SignOut(ctx context.Context, id domain.SessionID) error {
	return s.store.RemoveSession(ctx, id)
}

// SignOutAll clears every account, e.g. on environment-brand switch.
func (s *Service) SignOutAll(ctx context.Context) error {
	return s.store.ClearAllSessions(ctx)
}

// Switch makes another stored account current.
func (s *Service) Switch(ctx context.Context, id domain.SessionID) error {
	return s.store.SwitchToSession(ctx, id)
}

// AccessToken returns a usable access token for the current session,
// refreshing silently when the credential set is inside its refresh
// window. It satisfies the backend client's token source contract.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	session, ok := s.store.CurrentSession()
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "no current session")
	}

	now := s.now()
	creds := session.Credentials
	if !creds.ShouldRefresh(now) {
		return creds.AccessToken, nil
	}
	if !creds.CanRefresh() {
		if creds.IsExpired(now) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "session expired with no refresh path")
		}
		return creds.AccessToken, nil
	}

	refreshed, err := s.refresh(ctx, session)
	if err != nil {
		// A token inside the pre-emptive window is still valid; keep using
		// it rather than failing the caller's request.
		if !creds.IsExpired(now) {
			s.logger.Warn("silent refresh failed, using remaining token lifetime",
				"session_id", session.ID.String(),
				"error", err,
			)
			return creds.AccessToken, nil
		}
		// Not Wrap: the caller must see the session as unauthorized and
		// re-authenticate, whatever code the provider failure carried.
		return "", &dErrors.Error{
			Code:    dErrors.CodeUnauthorized,
			Message: "session expired and refresh failed",
			Err:     err,
		}
	}
	return refreshed.AccessToken, nil
}

// refresh collapses concurrent refresh attempts for one session into a
// single provider round-trip.
func (s *Service) refresh(ctx context.Context, session models.Session) (models.CredentialSet, error) {
	v, err, _ := s.refreshGroup.Do(session.ID.String(), func() (any, error) {
		auth, ok := s.authenticators[session.Provider]
		if !ok {
			return nil, dErrors.New(dErrors.CodeInternal, "no strategy for provider: "+session.Provider.String())
		}
		creds, err := auth.Refresh(ctx, session.Credentials.RefreshToken)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateSession(ctx, session.WithCredentials(creds)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist refreshed credentials")
		}
		if s.metrics != nil {
			s.metrics.TokenRefreshes.Inc()
		}
		return creds, nil
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return v.(models.CredentialSet), nil
}
