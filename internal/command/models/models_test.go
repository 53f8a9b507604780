package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestCommandEffectiveFields(t *testing.T) {
	t.Run("label wins over name", func(t *testing.T) {
		cmd := Command{Name: "unlock", Label: "Open up"}
		assert.Equal(t, "Open up", cmd.EffectiveName())
	})
	t.Run("name when no label", func(t *testing.T) {
		assert.Equal(t, "unlock", Command{Name: "unlock"}.EffectiveName())
	})
	t.Run("fallback when empty", func(t *testing.T) {
		assert.Equal(t, "Unknown", Command{}.EffectiveName())
	})
	t.Run("visibility defaults to true", func(t *testing.T) {
		assert.True(t, Command{Name: "x"}.EffectiveVisible())
		assert.False(t, Command{Name: "x", Visible: boolPtr(false)}.EffectiveVisible())
	})
	t.Run("sort key defaults to zero", func(t *testing.T) {
		assert.Equal(t, 0, Command{Name: "x"}.EffectiveSortKey())
		assert.Equal(t, 7, Command{Name: "x", SortKey: intPtr(7)}.EffectiveSortKey())
	})
}

func TestCommandIcon(t *testing.T) {
	tests := []struct {
		name string
		want IconCategory
	}{
		{"unlock", IconOpenPadlock},
		{"UNLOCK", IconOpenPadlock},
		{"lock", IconPadlock},
		{"open", IconOpenDoor},
		{"close", IconClosedDoor},
		{"status", IconInfo},
		{"AdminStatus", IconInfo},
		{"reset", IconRefresh},
		{"refresh", IconRefresh},
		{"subscribe", IconStar},
		{"subscription", IconStar},
		{"", IconNone},
		{"calibrate", IconGenericTerminal},
	}
	for _, tt := range tests {
		t.Run("name "+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Command{Name: tt.name}.Icon())
		})
	}
}

func catalogFixture() Catalog {
	return Catalog{
		User: []LocaleCommands{
			{Locale: "en", Commands: []Command{
				{Name: "status", SortKey: intPtr(3)},
				{Name: "unlock", SortKey: intPtr(1)},
				{Name: "reset", SortKey: intPtr(2), Visible: boolPtr(false)},
				{Name: "lock", SortKey: intPtr(2)},
			}},
			{Locale: "sv", Commands: []Command{
				{Name: "unlock", Label: "Lås upp"},
			}},
		},
		Public: []LocaleCommands{
			{Locale: "en", Commands: []Command{
				{Name: "subscribe"},
			}},
		},
	}
}

func TestCatalogResolution(t *testing.T) {
	catalog := catalogFixture()

	t.Run("sorted and filtered", func(t *testing.T) {
		cmds := catalog.Commands(AccessUser, "en")
		require.Len(t, cmds, 3)
		assert.Equal(t, "unlock", cmds[0].Name)
		assert.Equal(t, "lock", cmds[1].Name)
		assert.Equal(t, "status", cmds[2].Name)
	})

	t.Run("locale match is case-insensitive", func(t *testing.T) {
		cmds := catalog.Commands(AccessUser, "SV")
		require.Len(t, cmds, 1)
		assert.Equal(t, "Lås upp", cmds[0].EffectiveName())
	})

	t.Run("missing locale yields empty list", func(t *testing.T) {
		assert.Empty(t, catalog.Commands(AccessUser, "de"))
	})

	t.Run("empty catalog yields empty list", func(t *testing.T) {
		assert.Empty(t, Catalog{}.Commands(AccessUser, "en"))
	})

	t.Run("access level collapse", func(t *testing.T) {
		user := catalog.CommandsFor(true, "en")
		require.Len(t, user, 3)

		public := catalog.CommandsFor(false, "en")
		require.Len(t, public, 1)
		assert.Equal(t, "subscribe", public[0].Name)
	})
}

func TestExecutionResultContext(t *testing.T) {
	now := time.Now()
	result := ExecutionResult{
		Success:   true,
		Timestamp: &now,
		Context: []ContextEntry{
			{Key: "doorstate", Label: "Door", Value: "closed"},
			{Key: "doorstate", Label: "Door again", Value: "open"},
			{Key: "battery", Value: "87%"},
		},
	}

	t.Run("first match wins", func(t *testing.T) {
		v, ok := result.ContextValue("doorstate")
		require.True(t, ok)
		assert.Equal(t, "closed", v)
	})

	t.Run("absent key", func(t *testing.T) {
		_, ok := result.ContextValue("humidity")
		assert.False(t, ok)
		assert.False(t, result.HasContext("humidity"))
	})

	t.Run("presence check", func(t *testing.T) {
		assert.True(t, result.HasContext("battery"))
	})
}
