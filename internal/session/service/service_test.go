package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solver/internal/identity"
	"solver/internal/session/models"
	"solver/internal/session/store"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

// fakeAuthenticator scripts the provider round-trips so the lifecycle can
// be exercised without a real provider.
type fakeAuthenticator struct {
	provider domain.Provider

	mu         sync.Mutex
	authResult models.CredentialSet
	authErr    error
	refreshFn  func(refreshToken string) (models.CredentialSet, error)

	refreshCalls atomic.Int64
}

func (f *fakeAuthenticator) Provider() domain.Provider { return f.provider }

func (f *fakeAuthenticator) Authenticate(context.Context) (models.CredentialSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authResult, f.authErr
}

func (f *fakeAuthenticator) Refresh(_ context.Context, refreshToken string) (models.CredentialSet, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return models.CredentialSet{}, dErrors.New(dErrors.CodeAuthFailed, "refresh not scripted")
	}
	return fn(refreshToken)
}

func newTestService(t *testing.T, auth *fakeAuthenticator, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(context.Background(), store.NewInMemoryPrefs())
	require.NoError(t, err)
	return New(st, []identity.Authenticator{auth}, opts...), st
}

func freshCreds(now time.Time) models.CredentialSet {
	return models.CredentialSet{
		AccessToken:  "fresh-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    now.Add(time.Hour),
	}
}

func TestSignInCreatesCurrentSession(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{provider: domain.ProviderEnterpriseSSO, authResult: freshCreds(now)}
	svc, st := newTestService(t, auth)

	session, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderEnterpriseSSO, session.Provider)
	assert.Equal(t, domain.EnvSolverProduction, session.Environment)

	current, ok := st.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, session.ID, current.ID)
	assert.Equal(t, "fresh-token", current.Credentials.AccessToken)
}

func TestSignInCancelledLeavesRegistryUntouched(t *testing.T) {
	auth := &fakeAuthenticator{
		provider: domain.ProviderPhone,
		authErr:  dErrors.New(dErrors.CodeAuthCancelled, "sign-in cancelled"),
	}
	svc, st := newTestService(t, auth)

	_, err := svc.SignIn(context.Background(), domain.ProviderPhone, domain.EnvSolverProduction)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthCancelled))
	assert.Empty(t, st.AllSessions())
	_, ok := st.CurrentSession()
	assert.False(t, ok)
}

func TestSignInUnknownProvider(t *testing.T) {
	auth := &fakeAuthenticator{provider: domain.ProviderPhone}
	svc, _ := newTestService(t, auth)

	_, err := svc.SignIn(context.Background(), domain.ProviderNationalID, domain.EnvSolverProduction)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestAccessTokenNoSession(t *testing.T) {
	auth := &fakeAuthenticator{provider: domain.ProviderPhone}
	svc, _ := newTestService(t, auth)

	_, err := svc.AccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestAccessTokenFreshTokenPassesThrough(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{provider: domain.ProviderEnterpriseSSO, authResult: freshCreds(now)}
	svc, _ := newTestService(t, auth, WithClock(func() time.Time { return now }))

	_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)

	token, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Zero(t, auth.refreshCalls.Load())
}

func TestAccessTokenRefreshesInsideWindow(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{
		provider: domain.ProviderEnterpriseSSO,
		authResult: models.CredentialSet{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    now.Add(30 * time.Second), // inside the refresh window
		},
		refreshFn: func(refreshToken string) (models.CredentialSet, error) {
			return models.CredentialSet{
				AccessToken:  "renewed-token",
				RefreshToken: refreshToken,
				ExpiresAt:    now.Add(time.Hour),
			}, nil
		},
	}
	svc, st := newTestService(t, auth, WithClock(func() time.Time { return now }))

	_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)

	token, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", token)

	current, ok := st.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "renewed-token", current.Credentials.AccessToken, "refreshed credentials must be persisted")
}

func TestAccessTokenRefreshFailureKeepsRemainingLifetime(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{
		provider: domain.ProviderEnterpriseSSO,
		authResult: models.CredentialSet{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    now.Add(30 * time.Second),
		},
		refreshFn: func(string) (models.CredentialSet, error) {
			return models.CredentialSet{}, dErrors.New(dErrors.CodeNetworkError, "provider unreachable")
		},
	}
	svc, _ := newTestService(t, auth, WithClock(func() time.Time { return now }))

	_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)

	token, err := svc.AccessToken(context.Background())
	require.NoError(t, err, "a token inside the window is still valid")
	assert.Equal(t, "stale-token", token)
}

func TestAccessTokenExpiredAndRefreshFails(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{
		provider: domain.ProviderEnterpriseSSO,
		authResult: models.CredentialSet{
			AccessToken:  "dead-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    now.Add(-time.Minute),
		},
		refreshFn: func(string) (models.CredentialSet, error) {
			return models.CredentialSet{}, dErrors.New(dErrors.CodeAuthFailed, "refresh token revoked")
		},
	}
	svc, _ := newTestService(t, auth, WithClock(func() time.Time { return now }))

	_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)

	_, err = svc.AccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized),
		"expired session must surface as unauthorized regardless of the provider failure code")
	assert.ErrorContains(t, err, "session expired and refresh failed")
}

func TestAccessTokenExpiredWithoutRefreshToken(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{
		provider: domain.ProviderEnterpriseSSO,
		authResult: models.CredentialSet{
			AccessToken: "dead-token",
			ExpiresAt:   now.Add(-time.Minute),
		},
	}
	svc, _ := newTestService(t, auth, WithClock(func() time.Time { return now }))

	_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)

	_, err = svc.AccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Zero(t, auth.refreshCalls.Load())
}

func TestConcurrentRefreshCollapses(t *testing.T) {
	now := time.Now()
	release := make(chan struct{})
	auth := &fakeAuthenticator{
		provider: domain.ProviderEnterpriseSSO,
		authResult: models.CredentialSet{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    now.Add(30 * time.Second),
		},
	}
	auth.refreshFn = func(refreshToken string) (models.CredentialSet, error) {
		<-release
		return models.CredentialSet{
			AccessToken:  "renewed-token",
			RefreshToken: refreshToken,
			ExpiresAt:    now.Add(time.Hour),
		}, nil
	}
	svc, _ := newTestService(t, auth, WithClock(func() time.Time { return now }))

	_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = svc.AccessToken(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond) // let the callers pile up on the flight
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "renewed-token", tokens[i])
	}
	assert.Equal(t, int64(1), auth.refreshCalls.Load(), "concurrent refreshes must collapse into one round-trip")
}

func TestSignOutAllClearsEverything(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{provider: domain.ProviderEnterpriseSSO, authResult: freshCreds(now)}
	svc, st := newTestService(t, auth)

	for i := 0; i < 3; i++ {
		_, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
		require.NoError(t, err)
	}
	require.Len(t, st.AllSessions(), 3)

	require.NoError(t, svc.SignOutAll(context.Background()))
	assert.Empty(t, st.AllSessions())
}

func TestSwitchBetweenAccounts(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthenticator{provider: domain.ProviderEnterpriseSSO, authResult: freshCreds(now)}
	svc, st := newTestService(t, auth)

	first, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvSolverProduction)
	require.NoError(t, err)
	second, err := svc.SignIn(context.Background(), domain.ProviderEnterpriseSSO, domain.EnvOmniProduction)
	require.NoError(t, err)

	current, _ := st.CurrentSession()
	require.Equal(t, second.ID, current.ID)

	require.NoError(t, svc.Switch(context.Background(), first.ID))
	current, _ = st.CurrentSession()
	assert.Equal(t, first.ID, current.ID)
}
