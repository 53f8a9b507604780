package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

func TestNewSessionIDIsUnique(t *testing.T) {
	a := domain.NewSessionID()
	b := domain.NewSessionID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
}

func TestParseSessionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"empty", "", true},
		{"garbage", "not-a-uuid", true},
		{"truncated", "6ba7b810-9dad-11d1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := domain.ParseSessionID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestParseObjectID(t *testing.T) {
	id, err := domain.ParseObjectID("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b811-9dad-11d1-80b4-00c04fd430c8", id.String())

	_, err = domain.ParseObjectID("")
	assert.Error(t, err)
}

func TestSessionIDJSONRoundTrip(t *testing.T) {
	original := domain.NewSessionID()

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+original.String()+`"`, string(data))

	var parsed domain.SessionID
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, original, parsed)
}

func TestSessionIDUnmarshalRejectsGarbage(t *testing.T) {
	var id domain.SessionID
	err := json.Unmarshal([]byte(`"nope"`), &id)
	require.Error(t, err)
}

func TestMapKeyUsage(t *testing.T) {
	// session registries key on the ID type directly
	id := domain.NewSessionID()
	m := map[domain.SessionID]string{id: "current"}
	assert.Equal(t, "current", m[id])
}
