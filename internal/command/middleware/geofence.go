package middleware

import (
	"context"
	"fmt"

	"solver/internal/command/models"
)

// GeofenceOverrideKey is the context key the server attaches when a command
// was refused for being outside the object's geofence but an override is
// available within the given distance.
const GeofenceOverrideKey = "geofenceoverride"

// GeofenceUnit reacts to geofence override signals. It is terminal: once a
// result carries an override offer, nothing behind it in the chain should
// run.
type GeofenceUnit struct{}

func NewGeofenceUnit() *GeofenceUnit { return &GeofenceUnit{} }

func (u *GeofenceUnit) Name() string { return "geofence" }

func (u *GeofenceUnit) EarlyExit() bool { return true }

func (u *GeofenceUnit) Matches(result models.ExecutionResult, _ models.Command) bool {
	return result.HasContext(GeofenceOverrideKey)
}

func (u *GeofenceUnit) Process(_ context.Context, result models.ExecutionResult, cmd models.Command, _ models.Object) (Outcome, error) {
	distance, _ := result.ContextValue(GeofenceOverrideKey)
	// TODO: present an override confirmation dialog and re-issue the command
	// with the override flag; for now the message is the whole presentation.
	return Handled(fmt.Sprintf("override available within %s m for %s", distance, cmd.EffectiveName()), true), nil
}
