package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"solver/internal/session/models"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

// NationalID signs in against the national digital-ID OAuth provider using
// the authorization-code grant with PKCE, then exchanges the code for
// tokens at the provider's token endpoint.
type NationalID struct {
	baseURL  string
	clientID string
	http     *http.Client
	supply   CodeSupplier
}

// NewNationalID builds the national-ID strategy.
func NewNationalID(baseURL, clientID string, hc *http.Client, supply CodeSupplier) *NationalID {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &NationalID{baseURL: baseURL, clientID: clientID, http: hc, supply: supply}
}

func (n *NationalID) Provider() domain.Provider { return domain.ProviderNationalID }

func (n *NationalID) Authenticate(ctx context.Context) (models.CredentialSet, error) {
	verifier, challenge, err := pkcePair()
	if err != nil {
		return models.CredentialSet{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate PKCE pair")
	}

	authorizeURL := n.baseURL + "/connect/authorize?" + url.Values{
		"response_type":         {"code"},
		"client_id":             {n.clientID},
		"scope":                 {"openid profile offline_access"},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}.Encode()

	code, err := n.supply(ctx, authorizeURL)
	if err != nil {
		if wasCancelled(ctx, err) {
			return models.CredentialSet{}, dErrors.Wrap(err, dErrors.CodeAuthCancelled, "sign-in cancelled")
		}
		return models.CredentialSet{}, dErrors.Wrap(err, dErrors.CodeAuthFailed, "interactive sign-in failed")
	}
	if code == "" {
		return models.CredentialSet{}, dErrors.New(dErrors.CodeAuthFailed, "provider returned no authorization code")
	}

	token, err := postForm(ctx, n.http, n.baseURL+"/connect/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {n.clientID},
		"code":          {code},
		"code_verifier": {verifier},
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return token.credentialSet(time.Now()), nil
}

func (n *NationalID) Refresh(ctx context.Context, refreshToken string) (models.CredentialSet, error) {
	if refreshToken == "" {
		return models.CredentialSet{}, dErrors.New(dErrors.CodeUnauthorized, "no refresh token available")
	}
	token, err := postForm(ctx, n.http, n.baseURL+"/connect/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {n.clientID},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return token.credentialSet(time.Now()), nil
}

func pkcePair() (verifier, challenge string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}
