package gateway

import (
	"context"
	"errors"
	"fmt"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

// Identity supplies the acting user for in-process calls.
type Identity interface {
	UserID() (string, error)
}

// StoreGateway runs gateway calls directly against a store.Store, scoped to
// the current identity. It applies the same validation as the REST API.
type StoreGateway struct {
	store    store.Store
	identity Identity
	caps     Capabilities
}

var _ Gateway = (*StoreGateway)(nil)

// NewStoreGateway creates a StoreGateway. Task ordering is reported only when
// requested and supported by the store schema.
func NewStoreGateway(ctx context.Context, s store.Store, identity Identity, taskOrdering bool) (*StoreGateway, error) {
	g := &StoreGateway{store: s, identity: identity}
	if taskOrdering {
		ok, err := s.HasTaskPositions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect store schema: %w", err)
		}
		g.caps.TaskOrdering = ok
	}
	return g, nil
}

func (g *StoreGateway) Capabilities() Capabilities {
	return g.caps
}

func (g *StoreGateway) owner() (string, error) {
	id, err := g.identity.UserID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return id, nil
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (g *StoreGateway) ListProjects(ctx context.Context) ([]models.Project, error) {
	owner, err := g.owner()
	if err != nil {
		return nil, err
	}
	projects, err := g.store.ListProjects(ctx, owner)
	return projects, mapStoreError(err)
}

func (g *StoreGateway) CreateProject(ctx context.Context, project models.Project) (models.Project, error) {
	owner, err := g.owner()
	if err != nil {
		return models.Project{}, err
	}

	p := models.Project{
		Title:       project.Title,
		Description: project.Description,
		Status:      project.Status,
		OwnerID:     owner,
	}
	if err := p.Validate(); err != nil {
		return models.Project{}, err
	}
	if err := g.store.CreateProject(ctx, &p); err != nil {
		return models.Project{}, mapStoreError(err)
	}
	return p, nil
}

func (g *StoreGateway) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	owner, err := g.owner()
	if err != nil {
		return models.Project{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Project{}, err
	}

	updated, err := g.store.UpdateProject(ctx, owner, id, patch)
	if err != nil {
		return models.Project{}, mapStoreError(err)
	}
	return *updated, nil
}

func (g *StoreGateway) DeleteProject(ctx context.Context, id string) error {
	owner, err := g.owner()
	if err != nil {
		return err
	}
	return mapStoreError(g.store.DeleteProject(ctx, owner, id))
}

func (g *StoreGateway) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	owner, err := g.owner()
	if err != nil {
		return nil, err
	}
	tasks, err := g.store.ListTasksByProject(ctx, owner, projectID, g.caps.TaskOrdering)
	return tasks, mapStoreError(err)
}

func (g *StoreGateway) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	owner, err := g.owner()
	if err != nil {
		return models.Task{}, err
	}

	t := models.Task{ProjectID: task.ProjectID, Title: task.Title, Done: task.Done}
	if err := t.Validate(); err != nil {
		return models.Task{}, err
	}
	if err := g.store.CreateTask(ctx, owner, &t); err != nil {
		return models.Task{}, mapStoreError(err)
	}
	return t, nil
}

func (g *StoreGateway) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	owner, err := g.owner()
	if err != nil {
		return models.Task{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Task{}, err
	}

	updated, err := g.store.UpdateTask(ctx, owner, id, patch)
	if err != nil {
		return models.Task{}, mapStoreError(err)
	}
	return *updated, nil
}

func (g *StoreGateway) DeleteTask(ctx context.Context, id string) error {
	owner, err := g.owner()
	if err != nil {
		return err
	}
	return mapStoreError(g.store.DeleteTask(ctx, owner, id))
}

func (g *StoreGateway) PersistTaskOrder(ctx context.Context, projectID string, updates []models.TaskPosition) error {
	if !g.caps.TaskOrdering {
		return fmt.Errorf("task ordering is disabled: %w", ErrConflict)
	}
	if len(updates) == 0 {
		return nil
	}

	owner, err := g.owner()
	if err != nil {
		return err
	}
	return mapStoreError(g.store.ReorderTasks(ctx, owner, projectID, updates))
}
