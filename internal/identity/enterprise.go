package identity

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"solver/internal/session/models"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

// CodeSupplier completes the interactive part of an authorization-code
// flow: it presents authorizeURL to the user and returns the code the
// provider redirected back with. Returning context.Canceled or
// sentinel.ErrCancelled signals the user backed out.
type CodeSupplier func(ctx context.Context, authorizeURL string) (string, error)

// EnterpriseSSO signs in against the corporate single sign-on provider.
// Interactive acquisition runs the authorization-code flow through the
// CodeSupplier; silent acquisition is a refresh-token exchange.
type EnterpriseSSO struct {
	baseURL  string
	clientID string
	http     *http.Client
	supply   CodeSupplier
}

// NewEnterpriseSSO builds the enterprise strategy.
func NewEnterpriseSSO(baseURL, clientID string, hc *http.Client, supply CodeSupplier) *EnterpriseSSO {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &EnterpriseSSO{baseURL: baseURL, clientID: clientID, http: hc, supply: supply}
}

func (e *EnterpriseSSO) Provider() domain.Provider { return domain.ProviderEnterpriseSSO }

func (e *EnterpriseSSO) Authenticate(ctx context.Context) (models.CredentialSet, error) {
	authorizeURL := e.baseURL + "/oauth2/authorize?" + url.Values{
		"response_type": {"code"},
		"client_id":     {e.clientID},
		"scope":         {"openid profile email offline_access"},
	}.Encode()

	code, err := e.supply(ctx, authorizeURL)
	if err != nil {
		if wasCancelled(ctx, err) {
			return models.CredentialSet{}, dErrors.Wrap(err, dErrors.CodeAuthCancelled, "sign-in cancelled")
		}
		return models.CredentialSet{}, dErrors.Wrap(err, dErrors.CodeAuthFailed, "interactive sign-in failed")
	}
	if code == "" {
		return models.CredentialSet{}, dErrors.New(dErrors.CodeAuthFailed, "provider returned no authorization code")
	}

	token, err := postForm(ctx, e.http, e.baseURL+"/oauth2/token", url.Values{
		"grant_type": {"authorization_code"},
		"client_id":  {e.clientID},
		"code":       {code},
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return token.credentialSet(time.Now()), nil
}

func (e *EnterpriseSSO) Refresh(ctx context.Context, refreshToken string) (models.CredentialSet, error) {
	if refreshToken == "" {
		return models.CredentialSet{}, dErrors.New(dErrors.CodeUnauthorized, "no refresh token available")
	}
	token, err := postForm(ctx, e.http, e.baseURL+"/oauth2/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {e.clientID},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return token.credentialSet(time.Now()), nil
}
