package models

import (
	"sort"
	"strings"
	"time"

	"solver/pkg/domain"
)

// Command is a named remote action executable against an object. Everything
// beyond the machine name is optional display metadata; absent fields fall
// back to fixed defaults at resolution time.
type Command struct {
	Name           string `json:"name"`
	Label          string `json:"label,omitempty"`
	InputRequired  *bool  `json:"input_required,omitempty"`
	Visible        *bool  `json:"visible,omitempty"`
	SortKey        *int   `json:"sort_key,omitempty"`
	ValidationRule string `json:"validation_rule,omitempty"`
}

const unknownCommandName = "Unknown"

// EffectiveName resolves the user-facing command name.
func (c Command) EffectiveName() string {
	if c.Label != "" {
		return c.Label
	}
	if c.Name != "" {
		return c.Name
	}
	return unknownCommandName
}

// EffectiveVisible defaults to true when unset.
func (c Command) EffectiveVisible() bool {
	if c.Visible == nil {
		return true
	}
	return *c.Visible
}

// EffectiveSortKey defaults to 0 when unset.
func (c Command) EffectiveSortKey() int {
	if c.SortKey == nil {
		return 0
	}
	return *c.SortKey
}

// RequiresInput defaults to false when unset.
func (c Command) RequiresInput() bool {
	if c.InputRequired == nil {
		return false
	}
	return *c.InputRequired
}

// Is reports whether the command's machine name matches, case-insensitively.
func (c Command) Is(name string) bool {
	return strings.EqualFold(c.Name, name)
}

// IconCategory classifies a command for presentation purposes.
type IconCategory string

const (
	IconOpenPadlock     IconCategory = "open_padlock"
	IconPadlock         IconCategory = "padlock"
	IconOpenDoor        IconCategory = "open_door"
	IconClosedDoor      IconCategory = "closed_door"
	IconInfo            IconCategory = "info"
	IconRefresh         IconCategory = "refresh"
	IconStar            IconCategory = "star"
	IconNone            IconCategory = "none"
	IconGenericTerminal IconCategory = "generic_terminal"
)

// Icon maps known machine names to icon categories. The mapping is fixed
// and case-insensitive; unknown names get the generic terminal icon.
func (c Command) Icon() IconCategory {
	switch strings.ToLower(c.Name) {
	case "unlock":
		return IconOpenPadlock
	case "lock":
		return IconPadlock
	case "open":
		return IconOpenDoor
	case "close":
		return IconClosedDoor
	case "status", "adminstatus":
		return IconInfo
	case "reset", "refresh":
		return IconRefresh
	case "subscribe", "subscription":
		return IconStar
	case "":
		return IconNone
	default:
		return IconGenericTerminal
	}
}

// AccessLevel scopes which command list of a catalog applies to a caller.
type AccessLevel string

const (
	AccessAdmin  AccessLevel = "admin"
	AccessUser   AccessLevel = "user"
	AccessPublic AccessLevel = "public"
)

// LocaleCommands is one locale's command list within a catalog level.
type LocaleCommands struct {
	Locale   string    `json:"locale"`
	Commands []Command `json:"commands"`
}

// Catalog holds per-access-level, per-locale command lists for one object.
type Catalog struct {
	Admin  []LocaleCommands `json:"admin,omitempty"`
	User   []LocaleCommands `json:"user,omitempty"`
	Public []LocaleCommands `json:"public,omitempty"`
}

// Commands resolves the visible commands for an access level and locale,
// sorted ascending by effective sort key. A missing locale or an empty
// catalog yields an empty list, never an error.
func (c Catalog) Commands(level AccessLevel, locale string) []Command {
	var entries []LocaleCommands
	switch level {
	case AccessAdmin:
		entries = c.Admin
	case AccessUser:
		entries = c.User
	case AccessPublic:
		entries = c.Public
	}

	var commands []Command
	for _, entry := range entries {
		if strings.EqualFold(entry.Locale, locale) {
			commands = append(commands, entry.Commands...)
			break
		}
	}

	visible := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		if cmd.EffectiveVisible() {
			visible = append(visible, cmd)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].EffectiveSortKey() < visible[j].EffectiveSortKey()
	})
	return visible
}

// CommandsFor collapses access level to user when the caller has user
// access, else public. The admin level is not exposed in the client.
func (c Catalog) CommandsFor(hasUserAccess bool, locale string) []Command {
	if hasUserAccess {
		return c.Commands(AccessUser, locale)
	}
	return c.Commands(AccessPublic, locale)
}

// Object is a controllable physical thing (door, locker, equipment) scoped
// to the caller's account.
type Object struct {
	ID          domain.ObjectID `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UserAccess  bool            `json:"user_access"`
	Catalog     Catalog         `json:"catalog"`
}

// ContextEntry is one free-form metadata triple a server attaches to an
// execution result. The schema is command-specific and not statically typed.
type ContextEntry struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// ExecutionResult is the server's structured response to running a command.
type ExecutionResult struct {
	Success    bool           `json:"success"`
	ObjectID   string         `json:"object_id,omitempty"`
	ObjectName string         `json:"object_name,omitempty"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
	Context    []ContextEntry `json:"context,omitempty"`
}

// ContextValue returns the value of the first context entry with the given
// key, or false if no entry matches.
func (r ExecutionResult) ContextValue(key string) (string, bool) {
	for _, entry := range r.Context {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return "", false
}

// HasContext reports whether any context entry carries the given key.
func (r ExecutionResult) HasContext(key string) bool {
	_, ok := r.ContextValue(key)
	return ok
}
