// Package gateway is the client's contract with the remote store: list,
// create, update and delete per entity type plus task order persistence.
// Implementations hold no entity state.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskboard/internal/models"
)

var (
	// ErrUnauthorized is returned when the remote rejects the caller's session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when the remote has no such entity for the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the remote refuses a write, e.g. a
	// reorder against a schema without task positions.
	ErrConflict = errors.New("conflict")
)

// Capabilities reports optional features of the remote store.
type Capabilities struct {
	TaskOrdering bool `json:"task_ordering"`
}

// Gateway is implemented by HTTPGateway and StoreGateway.
type Gateway interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, project models.Project) (models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error

	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// PersistTaskOrder writes positions for tasks of one project. Callers
	// check Capabilities first.
	PersistTaskOrder(ctx context.Context, projectID string, updates []models.TaskPosition) error

	Capabilities() Capabilities
}

// StatusError is a non-2xx response from the remote.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("remote returned %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known status codes onto the package sentinels so callers
// can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest:
		return models.ErrValidation
	}
	return nil
}
