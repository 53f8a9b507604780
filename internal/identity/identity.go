// Package identity implements the sign-in strategies. Each provider speaks
// its own protocol but every strategy resolves to the same contract: one
// asynchronous operation yielding a credential set or a typed failure,
// with user cancellation kept distinct from real errors.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"solver/internal/sentinel"
	"solver/internal/session/models"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

// Authenticator is the single sign-in contract all provider strategies
// implement, regardless of how interactive the underlying flow is.
type Authenticator interface {
	Provider() domain.Provider
	// Authenticate runs the full sign-in flow. It returns a domain error
	// with CodeAuthCancelled when the user aborted, CodeAuthFailed when the
	// provider rejected the attempt, and CodeNetworkError on transport
	// failures.
	Authenticate(ctx context.Context) (models.CredentialSet, error)
	// Refresh exchanges a refresh token for a replacement credential set
	// without user interaction.
	Refresh(ctx context.Context, refreshToken string) (models.CredentialSet, error)
}

// tokenResponse is the provider token endpoint wire format (RFC 6749 §5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// credentialSet converts the wire response into the domain credential set,
// decoding the ID token (when present) into a profile snapshot.
func (t tokenResponse) credentialSet(now time.Time) models.CredentialSet {
	creds := models.CredentialSet{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(t.ExpiresIn) * time.Second),
		Kind:         t.TokenType,
		Scope:        t.Scope,
	}
	if profile := profileFromIDToken(t.IDToken); profile != nil {
		creds.Profile = profile
		creds.Subject = profile.Subject
	}
	return creds
}

// idTokenClaims are the OIDC claims the client cares about. The token is
// decoded without signature verification: the client holds no provider
// signing keys and only uses the claims for display, never authorization.
type idTokenClaims struct {
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

func profileFromIDToken(raw string) *models.UserProfile {
	if raw == "" {
		return nil
	}
	claims := &idTokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return &models.UserProfile{
		DisplayName: claims.Name,
		Email:       claims.Email,
		Username:    claims.PreferredUsername,
		Subject:     claims.Subject,
		GivenName:   claims.GivenName,
		FamilyName:  claims.FamilyName,
	}
}

// doForm submits a form-encoded request to a provider endpoint and maps
// transport failures and non-2xx responses into the domain taxonomy.
// Callers own the response body on success.
func doForm(ctx context.Context, hc *http.Client, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build provider request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		if wasCancelled(ctx, err) {
			return nil, dErrors.Wrap(err, dErrors.CodeAuthCancelled, "sign-in cancelled")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkError, "provider request failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var payload struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		msg := payload.ErrorDescription
		if msg == "" {
			msg = "provider rejected the request: " + resp.Status
		}
		return nil, dErrors.New(dErrors.CodeAuthFailed, msg)
	}
	return resp, nil
}

// postForm submits a form and decodes a token response.
func postForm(ctx context.Context, hc *http.Client, endpoint string, form url.Values) (tokenResponse, error) {
	resp, err := doForm(ctx, hc, endpoint, form)
	if err != nil {
		return tokenResponse{}, err
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return tokenResponse{}, dErrors.Wrap(err, dErrors.CodeAuthFailed, "malformed token response")
	}
	if token.AccessToken == "" {
		return tokenResponse{}, dErrors.New(dErrors.CodeAuthFailed, "token response missing access token")
	}
	return token, nil
}

// postAck submits a form where the provider only acknowledges the action
// (no token material in the response).
func postAck(ctx context.Context, hc *http.Client, endpoint string, form url.Values) error {
	resp, err := doForm(ctx, hc, endpoint, form)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// wasCancelled distinguishes a user abort from a genuine transport failure.
func wasCancelled(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, sentinel.ErrCancelled)
}
