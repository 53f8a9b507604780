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

// defaultConfirmTimeout bounds how long the flow listens for the PIN
// confirmation before giving up.
const defaultConfirmTimeout = 30 * time.Second

// PinSupplier returns the PIN the user received out of band. Returning
// context.Canceled or sentinel.ErrCancelled signals the user backed out.
type PinSupplier func(ctx context.Context) (string, error)

// PhoneAuth signs in with a phone number: registration triggers a PIN
// delivery, confirmation exchanges the PIN for tokens. The wait for the
// PIN is bounded; on timeout the flow fails with a timeout error and
// releases the supplier.
type PhoneAuth struct {
	baseURL        string
	phoneNumber    string
	http           *http.Client
	supply         PinSupplier
	confirmTimeout time.Duration
}

// PhoneOption configures PhoneAuth.
type PhoneOption func(*PhoneAuth)

// WithConfirmTimeout overrides the default 30s PIN wait.
func WithConfirmTimeout(d time.Duration) PhoneOption {
	return func(p *PhoneAuth) {
		if d > 0 {
			p.confirmTimeout = d
		}
	}
}

// NewPhoneAuth builds the phone-number strategy for one phone number.
func NewPhoneAuth(baseURL, phoneNumber string, hc *http.Client, supply PinSupplier, opts ...PhoneOption) *PhoneAuth {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	p := &PhoneAuth{
		baseURL:        baseURL,
		phoneNumber:    phoneNumber,
		http:           hc,
		supply:         supply,
		confirmTimeout: defaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PhoneAuth) Provider() domain.Provider { return domain.ProviderPhone }

func (p *PhoneAuth) Authenticate(ctx context.Context) (models.CredentialSet, error) {
	if err := postAck(ctx, p.http, p.baseURL+"/v1/register", url.Values{
		"phone_number": {p.phoneNumber},
	}); err != nil {
		return models.CredentialSet{}, err
	}

	pin, err := p.awaitPin(ctx)
	if err != nil {
		return models.CredentialSet{}, err
	}

	token, err := postForm(ctx, p.http, p.baseURL+"/v1/confirm", url.Values{
		"phone_number": {p.phoneNumber},
		"pin":          {pin},
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return token.credentialSet(time.Now()), nil
}

// awaitPin waits for the PIN with a hard deadline so an abandoned sign-in
// cannot hold the supplier open forever.
func (p *PhoneAuth) awaitPin(ctx context.Context) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()

	pin, err := p.supply(waitCtx)
	if err != nil {
		if wasCancelled(ctx, err) {
			return "", dErrors.Wrap(err, dErrors.CodeAuthCancelled, "sign-in cancelled")
		}
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return "", dErrors.New(dErrors.CodeTimeout, "timed out waiting for PIN confirmation")
		}
		return "", dErrors.Wrap(err, dErrors.CodeAuthFailed, "PIN confirmation failed")
	}
	if pin == "" {
		return "", dErrors.New(dErrors.CodeAuthFailed, "empty PIN")
	}
	return pin, nil
}

func (p *PhoneAuth) Refresh(ctx context.Context, refreshToken string) (models.CredentialSet, error) {
	if refreshToken == "" {
		return models.CredentialSet{}, dErrors.New(dErrors.CodeUnauthorized, "no refresh token available")
	}
	token, err := postForm(ctx, p.http, p.baseURL+"/v1/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return models.CredentialSet{}, err
	}
	return token.credentialSet(time.Now()), nil
}
