package domain

// Provider enumerates the identity providers a session can be bound to.
// The set is closed: a session created against one provider never migrates
// to another.
type Provider string

const (
	// ProviderEnterpriseSSO is the corporate single sign-on provider with
	// interactive and silent token acquisition.
	ProviderEnterpriseSSO Provider = "enterprise_sso"
	// ProviderNationalID is the national digital-ID OAuth provider
	// (authorization-code grant plus token exchange).
	ProviderNationalID Provider = "national_id"
	// ProviderPhone is phone-number based registration with PIN confirmation.
	ProviderPhone Provider = "phone"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderEnterpriseSSO, ProviderNationalID, ProviderPhone:
		return true
	}
	return false
}

func (p Provider) String() string { return string(p) }

// Environment enumerates tenant brand deployments. Each brand runs a
// production and a staging backend; the pair (environment, provider)
// selects the API endpoint a session talks to.
type Environment string

const (
	EnvSolverProduction Environment = "solver"
	EnvSolverStaging    Environment = "solver_staging"
	EnvOmniProduction   Environment = "omni"
	EnvOmniStaging      Environment = "omni_staging"
)

func (e Environment) Valid() bool {
	switch e {
	case EnvSolverProduction, EnvSolverStaging, EnvOmniProduction, EnvOmniStaging:
		return true
	}
	return false
}

func (e Environment) String() string { return string(e) }
