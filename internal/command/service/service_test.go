package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solver/internal/command/middleware"
	"solver/internal/command/models"
	"solver/internal/solver"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

type fakeBackend struct {
	objects []models.Object
	result  models.ExecutionResult
	err     error

	gotObjectID domain.ObjectID
	gotCommand  string
	gotOpts     solver.ExecuteOptions
}

func (f *fakeBackend) Objects(context.Context) ([]models.Object, error) {
	return f.objects, f.err
}

func (f *fakeBackend) Object(_ context.Context, id domain.ObjectID) (models.Object, error) {
	for _, obj := range f.objects {
		if obj.ID == id {
			return obj, nil
		}
	}
	return models.Object{}, dErrors.New(dErrors.CodeNotFound, "object not found")
}

func (f *fakeBackend) Execute(_ context.Context, objectID domain.ObjectID, command string, opts solver.ExecuteOptions) (models.ExecutionResult, error) {
	f.gotObjectID = objectID
	f.gotCommand = command
	f.gotOpts = opts
	return f.result, f.err
}

func testObject() models.Object {
	visible := true
	hidden := false
	one, two := 1, 2
	return models.Object{
		ID:         domain.ObjectID{},
		Name:       "Main Entrance",
		UserAccess: true,
		Catalog: models.Catalog{
			User: []models.LocaleCommands{{
				Locale: "en",
				Commands: []models.Command{
					{Name: "unlock", Label: "Unlock", Visible: &visible, SortKey: &two},
					{Name: "status", Label: "Status", Visible: &visible, SortKey: &one},
					{Name: "reset", Visible: &hidden},
				},
			}},
			Public: []models.LocaleCommands{{
				Locale:   "en",
				Commands: []models.Command{{Name: "open", Label: "Open"}},
			}},
		},
	}
}

func TestCommandsUseAccessLevelAndLocale(t *testing.T) {
	svc := New(&fakeBackend{}, middleware.NewChain(nil))

	obj := testObject()
	list := svc.Commands(obj, "en")
	require.Len(t, list, 2, "hidden commands are filtered out")
	assert.Equal(t, "status", list[0].Name, "sorted by sort key")
	assert.Equal(t, "unlock", list[1].Name)

	obj.UserAccess = false
	list = svc.Commands(obj, "en")
	require.Len(t, list, 1)
	assert.Equal(t, "open", list[0].Name)
}

func TestExecutePropagatesBackendError(t *testing.T) {
	backend := &fakeBackend{err: dErrors.New(dErrors.CodeNetworkError, "no connectivity")}
	svc := New(backend, middleware.NewChain(nil))

	_, err := svc.Execute(context.Background(), testObject(), models.Command{Name: "unlock"}, solver.ExecuteOptions{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetworkError))
}

func TestExecuteRunsChainOnResult(t *testing.T) {
	stamp := time.Now()
	backend := &fakeBackend{
		result: models.ExecutionResult{
			Success:   true,
			Timestamp: &stamp,
			Context:   []models.ContextEntry{{Key: "doorstate", Label: "Door", Value: "closed"}},
		},
	}

	var presented *models.ExecutionResult
	chain := middleware.NewChain([]middleware.Unit{
		middleware.NewStatusUnit(func(r models.ExecutionResult) { presented = &r }),
	})
	svc := New(backend, chain)

	execution, err := svc.Execute(context.Background(), testObject(), models.Command{Name: "status"}, solver.ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "status", backend.gotCommand)
	assert.True(t, execution.Decision.Handled)
	assert.False(t, execution.Decision.ShowGenericUI, "status presentation replaces the generic view")
	require.NotNil(t, presented)
	assert.True(t, presented.Success)
}

func TestExecuteUnhandledResultForcesGenericUI(t *testing.T) {
	backend := &fakeBackend{result: models.ExecutionResult{Success: true}}
	svc := New(backend, middleware.NewChain(nil))

	execution, err := svc.Execute(context.Background(), testObject(), models.Command{Name: "unlock"}, solver.ExecuteOptions{})
	require.NoError(t, err)
	assert.False(t, execution.Decision.Handled)
	assert.True(t, execution.Decision.ShowGenericUI)
}

func TestExecutePassesInputAndLocation(t *testing.T) {
	backend := &fakeBackend{result: models.ExecutionResult{Success: true}}
	svc := New(backend, middleware.NewChain(nil))

	opts := solver.ExecuteOptions{
		Input:    "code-42",
		Location: &solver.Location{Latitude: 59.33, Longitude: 18.06},
	}
	_, err := svc.Execute(context.Background(), testObject(), models.Command{Name: "unlock"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "code-42", backend.gotOpts.Input)
	require.NotNil(t, backend.gotOpts.Location)
	assert.Equal(t, 59.33, backend.gotOpts.Location.Latitude)
}
