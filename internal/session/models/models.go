package models

import (
	"strings"
	"time"
	"unicode"

	"solver/pkg/domain"
)

// This file contains pure domain models for identity: entities that should
// not depend on transport or storage concerns.

// refreshWindow is how long before expiry a credential set becomes eligible
// for pre-emptive silent refresh.
const refreshWindow = 60 * time.Second

// CredentialSet is the token material held by one session. It is a value:
// re-authentication and silent refresh produce a replacement, never an
// in-place mutation.
type CredentialSet struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Kind         string       `json:"kind,omitempty"`
	Scope        string       `json:"scope,omitempty"`
	Subject      string       `json:"subject,omitempty"`
	Profile      *UserProfile `json:"profile,omitempty"`
}

// IsExpired reports whether the access token has expired as of the given
// time. The time parameter is injected for testability (no hidden
// time.Now() calls).
func (c CredentialSet) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ShouldRefresh reports whether the credential set is inside the pre-emptive
// refresh window.
func (c CredentialSet) ShouldRefresh(now time.Time) bool {
	return !now.Before(c.ExpiresAt.Add(-refreshWindow))
}

// CanRefresh reports whether a silent refresh is possible at all.
func (c CredentialSet) CanRefresh() bool {
	return c.RefreshToken != ""
}

// UserProfile is the decoded identity snapshot carried by a credential set.
// All fields are optional and provider-dependent.
type UserProfile struct {
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Subject     string `json:"subject,omitempty"`
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
}

const unknownUserName = "Unknown User"

// initialsPlaceholder is shown when no name material exists at all.
const initialsPlaceholder = "??"

// EffectiveDisplayName returns the first non-empty of display name,
// username, and email, falling back to a fixed label.
func (p UserProfile) EffectiveDisplayName() string {
	for _, candidate := range []string{p.DisplayName, p.Username, p.Email} {
		if candidate != "" {
			return candidate
		}
	}
	return unknownUserName
}

// Initials derives a two-character monogram: given+family initials when both
// are present, else the initials of a two-token display name, else the first
// two characters of the display name, else of the email, else a placeholder.
func (p UserProfile) Initials() string {
	if p.GivenName != "" && p.FamilyName != "" {
		return upperPair(firstRune(p.GivenName), firstRune(p.FamilyName))
	}
	name := strings.TrimSpace(p.DisplayName)
	if name != "" {
		tokens := strings.Fields(name)
		if len(tokens) >= 2 {
			return upperPair(firstRune(tokens[0]), firstRune(tokens[1]))
		}
		if pair, ok := firstTwoRunes(name); ok {
			return pair
		}
	}
	if pair, ok := firstTwoRunes(p.Email); ok {
		return pair
	}
	return initialsPlaceholder
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func firstTwoRunes(s string) (string, bool) {
	runes := []rune(s)
	if len(runes) < 2 {
		return "", false
	}
	return upperPair(runes[0], runes[1]), true
}

func upperPair(a, b rune) string {
	return string([]rune{unicode.ToUpper(a), unicode.ToUpper(b)})
}

// Session represents one authenticated identity on this device.
// Identifier, provider, and environment are immutable after creation;
// switching either means creating a new session. Credentials are replaced
// wholesale on refresh or re-authentication.
type Session struct {
	ID          domain.SessionID   `json:"id"`
	Provider    domain.Provider    `json:"provider"`
	Environment domain.Environment `json:"environment"`
	Credentials CredentialSet      `json:"credentials"`
	Active      bool               `json:"active"`
	CreatedAt   time.Time          `json:"created_at"`
}

// WithCredentials returns a copy of the session carrying a replacement
// credential set. The original is left untouched.
func (s Session) WithCredentials(creds CredentialSet) Session {
	s.Credentials = creds
	return s
}

// DisplayName resolves the session's user-facing account name.
func (s Session) DisplayName() string {
	if s.Credentials.Profile == nil {
		return unknownUserName
	}
	return s.Credentials.Profile.EffectiveDisplayName()
}
