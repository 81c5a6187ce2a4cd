package entitystore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"taskboard/internal/gateway"
	"taskboard/internal/models"
)

func (s *Store) projectIndexLocked(id string) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateProject validates p, creates it remotely and prepends the server's
// copy. Nothing is added when the remote rejects it.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if err := p.Validate(); err != nil {
		return models.Project{}, fmt.Errorf("%s: %w", OpCreateProject, err)
	}

	epoch, err := s.begin(OpCreateProject, ErrMutationFailed, logrus.Fields{"title": p.Title})
	if err != nil {
		return models.Project{}, err
	}

	created, err := s.gw.CreateProject(ctx, p)
	if err != nil {
		return models.Project{}, fail(ErrMutationFailed, OpCreateProject, err)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpCreateProject, epoch); err != nil {
		s.mu.Unlock()
		return models.Project{}, err
	}
	s.projects = append([]models.Project{created}, s.projects...)
	s.mu.Unlock()

	s.notify(Change{Kind: ProjectsChanged, ProjectID: created.ID})
	return created, nil
}

// UpdateProject sends the fields of patch that differ from the local project
// and replaces the local project with the server's copy. An empty difference
// returns the local project without a remote call.
func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	if err := patch.Validate(); err != nil {
		return models.Project{}, fmt.Errorf("%s: %w", OpUpdateProject, err)
	}

	epoch, err := s.begin(OpUpdateProject, ErrMutationFailed, logrus.Fields{"project_id": id})
	if err != nil {
		return models.Project{}, err
	}

	s.mu.Lock()
	i := s.projectIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Project{}, fmt.Errorf("%s %s: %w", OpUpdateProject, id, ErrNotFound)
	}
	local := s.projects[i]
	s.mu.Unlock()

	diff := local.Diff(patch)
	if diff.Empty() {
		return local, nil
	}

	updated, err := s.gw.UpdateProject(ctx, id, diff)
	if err != nil {
		return models.Project{}, fail(ErrMutationFailed, OpUpdateProject, err)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpUpdateProject, epoch); err != nil {
		s.mu.Unlock()
		return models.Project{}, err
	}
	i = s.projectIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{"project_id": id}).Debug("dropping update for removed project")
		return models.Project{}, fmt.Errorf("%s %s: %w", OpUpdateProject, id, ErrNotFound)
	}
	s.projects[i] = updated
	s.mu.Unlock()

	s.notify(Change{Kind: ProjectsChanged, ProjectID: id})
	return updated, nil
}

// DeleteProject removes the project and its tasks locally, then deletes it
// remotely. A remote failure is reported as ErrDeleteFailed and the project
// is not restored.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	epoch, err := s.begin(OpDeleteProject, ErrDeleteFailed, logrus.Fields{"project_id": id})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if i := s.projectIndexLocked(id); i >= 0 {
		s.projects = slices.Delete(s.projects, i, i+1)
	}
	delete(s.tasks, id)
	s.deleted[id] = struct{}{}
	s.mu.Unlock()

	s.notify(Change{Kind: ProjectsChanged, ProjectID: id}, Change{Kind: TasksChanged, ProjectID: id})

	err = s.gw.DeleteProject(ctx, id)
	if err == nil || errors.Is(err, gateway.ErrNotFound) {
		return nil
	}

	s.mu.Lock()
	if s.checkLocked(OpDeleteProject, epoch) == nil {
		delete(s.deleted, id)
	}
	s.mu.Unlock()

	return fail(ErrDeleteFailed, OpDeleteProject, err)
}
