// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "solver/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a SessionID where an ObjectID is expected.
type (
	SessionID uuid.UUID
	ObjectID  uuid.UUID
)

// NewSessionID allocates a fresh session identifier. Session identifiers are
// generated on-device at sign-in and stay stable for the account's lifetime.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// Parse functions - use at trust boundaries (persisted state, API inputs).

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseObjectID(s string) (ObjectID, error) {
	id, err := parseUUID(s, "object ID")
	return ObjectID(id), err
}

// String methods - for logging and debugging.

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id ObjectID) String() string  { return uuid.UUID(id).String() }

// Text marshalling - persisted session state round-trips IDs as canonical
// UUID strings rather than raw byte arrays.

func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid session ID format")
	}
	*id = SessionID(u)
	return nil
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *ObjectID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid object ID format")
	}
	*id = ObjectID(u)
	return nil
}

// IsNil checks - used for validation before store lookups.

func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ObjectID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
