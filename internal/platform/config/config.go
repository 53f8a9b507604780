package config

import (
	"os"
	"time"

	"solver/pkg/domain"
)

// Client captures configuration for the Solver client core: backend and
// identity-provider endpoints plus network timeouts.
type Client struct {
	Endpoints      Endpoints
	HTTPTimeout    time.Duration
	ConfirmTimeout time.Duration
	PrefsPath      string
}

// Endpoints resolves base URLs by (environment, provider). Each tenant brand
// runs its own backend; identity providers are shared across brands but may
// be overridden per deployment.
type Endpoints struct {
	api       map[domain.Environment]string
	providers map[domain.Provider]string
}

// API returns the backend base URL for an environment, empty if unknown.
func (e Endpoints) API(env domain.Environment) string {
	return e.api[env]
}

// Provider returns the identity-provider base URL, empty if unknown.
func (e Endpoints) Provider(p domain.Provider) string {
	return e.providers[p]
}

var defaultHTTPTimeout = 30 * time.Second

// defaultConfirmTimeout bounds how long the phone flow waits for a PIN
// confirmation before failing with a timeout error.
var defaultConfirmTimeout = 30 * time.Second

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() Client {
	cfg := Client{
		Endpoints: Endpoints{
			api: map[domain.Environment]string{
				domain.EnvSolverProduction: envOr("SOLVER_API_URL", "https://api.solver.example.com"),
				domain.EnvSolverStaging:    envOr("SOLVER_STAGING_API_URL", "https://api.staging.solver.example.com"),
				domain.EnvOmniProduction:   envOr("OMNI_API_URL", "https://api.omni.example.com"),
				domain.EnvOmniStaging:      envOr("OMNI_STAGING_API_URL", "https://api.staging.omni.example.com"),
			},
			providers: map[domain.Provider]string{
				domain.ProviderEnterpriseSSO: envOr("SOLVER_SSO_URL", "https://login.solver.example.com"),
				domain.ProviderNationalID:    envOr("SOLVER_NATIONAL_ID_URL", "https://id.national.example.com"),
				domain.ProviderPhone:         envOr("SOLVER_PHONE_AUTH_URL", "https://mobile.solver.example.com"),
			},
		},
		HTTPTimeout:    defaultHTTPTimeout,
		ConfirmTimeout: defaultConfirmTimeout,
		PrefsPath:      envOr("SOLVER_PREFS_PATH", ""),
	}

	if v := os.Getenv("SOLVER_HTTP_TIMEOUT"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = duration
		}
	}
	if v := os.Getenv("SOLVER_CONFIRM_TIMEOUT"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			cfg.ConfirmTimeout = duration
		}
	}

	return cfg
}

// NewEndpoints builds an endpoint table explicitly, used by tests and the
// stub backend wiring.
func NewEndpoints(api map[domain.Environment]string, providers map[domain.Provider]string) Endpoints {
	return Endpoints{api: api, providers: providers}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
