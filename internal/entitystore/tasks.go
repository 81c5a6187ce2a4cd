package entitystore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/reorder"
)

func (s *Store) findTaskLocked(id string) (projectID string, index int) {
	for pid, tasks := range s.tasks {
		for i := range tasks {
			if tasks[i].ID == id {
				return pid, i
			}
		}
	}
	return "", -1
}

// CreateTask validates t, creates it remotely and prepends the server's copy
// to its project's list.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if err := t.Validate(); err != nil {
		return models.Task{}, fmt.Errorf("%s: %w", OpCreateTask, err)
	}

	epoch, err := s.begin(OpCreateTask, ErrMutationFailed, logrus.Fields{"project_id": t.ProjectID})
	if err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	gone := s.isDeletedLocked(t.ProjectID)
	s.mu.Unlock()
	if gone {
		return models.Task{}, fail(ErrNotFound, OpCreateTask, errProjectDeleted(t.ProjectID))
	}

	created, err := s.gw.CreateTask(ctx, t)
	if err != nil {
		return models.Task{}, fail(ErrMutationFailed, OpCreateTask, err)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpCreateTask, epoch); err != nil {
		s.mu.Unlock()
		return models.Task{}, err
	}
	if s.isDeletedLocked(created.ProjectID) {
		s.mu.Unlock()
		return models.Task{}, fail(ErrNotFound, OpCreateTask, errProjectDeleted(created.ProjectID))
	}
	s.tasks[created.ProjectID] = renumber(append([]models.Task{created}, s.tasks[created.ProjectID]...))
	created.Position = 0
	s.mu.Unlock()

	s.notify(Change{Kind: TasksChanged, ProjectID: created.ProjectID})
	return created, nil
}

// UpdateTask sends the fields of patch that differ from the local task and
// replaces the local task with the server's copy. The local display position
// is kept.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	if err := patch.Validate(); err != nil {
		return models.Task{}, fmt.Errorf("%s: %w", OpUpdateTask, err)
	}

	epoch, err := s.begin(OpUpdateTask, ErrMutationFailed, logrus.Fields{"task_id": id})
	if err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	projectID, i := s.findTaskLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Task{}, fmt.Errorf("%s %s: %w", OpUpdateTask, id, ErrNotFound)
	}
	local := s.tasks[projectID][i]
	s.mu.Unlock()

	diff := local.Diff(patch)
	if diff.Empty() {
		return local, nil
	}

	updated, err := s.gw.UpdateTask(ctx, id, diff)
	if err != nil {
		return models.Task{}, fail(ErrMutationFailed, OpUpdateTask, err)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpUpdateTask, epoch); err != nil {
		s.mu.Unlock()
		return models.Task{}, err
	}
	projectID, i = s.findTaskLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{"task_id": id}).Debug("dropping update for removed task")
		return models.Task{}, fmt.Errorf("%s %s: %w", OpUpdateTask, id, ErrNotFound)
	}
	updated.ProjectID = projectID
	updated.Position = i
	s.tasks[projectID][i] = updated
	s.mu.Unlock()

	s.notify(Change{Kind: TasksChanged, ProjectID: projectID})
	return updated, nil
}

// DeleteTask removes the task locally, then deletes it remotely. A remote
// failure is reported as ErrDeleteFailed and the task is not restored.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	epoch, err := s.begin(OpDeleteTask, ErrDeleteFailed, logrus.Fields{"task_id": id})
	if err != nil {
		return err
	}

	s.mu.Lock()
	projectID, i := s.findTaskLocked(id)
	if i >= 0 {
		s.tasks[projectID] = renumber(slices.Delete(s.tasks[projectID], i, i+1))
	}
	s.deleted[id] = struct{}{}
	s.mu.Unlock()

	if i >= 0 {
		s.notify(Change{Kind: TasksChanged, ProjectID: projectID})
	}

	err = s.gw.DeleteTask(ctx, id)
	if err == nil || errors.Is(err, gateway.ErrNotFound) {
		return nil
	}

	s.mu.Lock()
	if s.checkLocked(OpDeleteTask, epoch) == nil {
		delete(s.deleted, id)
	}
	s.mu.Unlock()

	return fail(ErrDeleteFailed, OpDeleteTask, err)
}

// ReorderTasks moves the task at index from to index to within a project and
// persists the changed positions when the remote supports task ordering.
// Reorders of one project are serialized: a second request while one is in
// flight fails with ErrSequencingConflict. If persisting fails the previous
// order is restored; once it succeeds the new order is kept even if a listing
// replaced it meanwhile.
func (s *Store) ReorderTasks(ctx context.Context, projectID string, from, to int) error {
	fields := logrus.Fields{"project_id": projectID, "from": from, "to": to}
	epoch, err := s.begin(OpReorderTasks, ErrMutationFailed, fields)
	if err != nil {
		return err
	}

	seq := reorder.Sequencer{PersistOrder: s.gw.Capabilities().TaskOrdering}

	s.mu.Lock()
	if s.reordering[projectID] {
		s.mu.Unlock()
		return fmt.Errorf("%s %s: %w", OpReorderTasks, projectID, ErrSequencingConflict)
	}
	previous := s.tasks[projectID]
	plan := seq.Plan(previous, from, to)
	if !plan.Moved {
		s.mu.Unlock()
		return nil
	}
	s.tasks[projectID] = plan.Order
	persist := len(plan.Updates) > 0
	if persist {
		s.reordering[projectID] = true
	}
	s.mu.Unlock()

	s.notify(Change{Kind: TasksChanged, ProjectID: projectID})
	if !persist {
		s.log.WithFields(fields).Debug("task order kept locally only")
		return nil
	}

	err = s.gw.PersistTaskOrder(ctx, projectID, plan.Updates)

	s.mu.Lock()
	if s.checkLocked(OpReorderTasks, epoch) != nil {
		s.mu.Unlock()
		if err != nil {
			return fail(ErrMutationFailed, OpReorderTasks, err)
		}
		return nil
	}
	delete(s.reordering, projectID)
	if err == nil {
		// A listing taken before the persist may have replaced the new order.
		reapplied := false
		if current, ok := s.tasks[projectID]; ok && !s.isDeletedLocked(projectID) {
			committed := restoreOrder(plan.Order, current)
			if !sameOrder(committed, current) {
				s.tasks[projectID] = committed
				reapplied = true
			}
		}
		s.mu.Unlock()

		if reapplied {
			s.notify(Change{Kind: TasksChanged, ProjectID: projectID})
		}
		return nil
	}

	rolledBack := false
	if current, ok := s.tasks[projectID]; ok && !s.isDeletedLocked(projectID) {
		s.tasks[projectID] = restoreOrder(previous, current)
		rolledBack = true
	}
	s.mu.Unlock()

	if rolledBack {
		s.notify(Change{Kind: TasksChanged, ProjectID: projectID})
	}
	return fail(ErrMutationFailed, OpReorderTasks, err)
}

func sameOrder(a, b []models.Task) bool {
	return slices.EqualFunc(a, b, func(x, y models.Task) bool { return x.ID == y.ID })
}

// restoreOrder puts current back into the order of previous. Tasks created
// since keep their place at the top; tasks deleted since stay deleted. The
// current copy of each task wins.
func restoreOrder(previous, current []models.Task) []models.Task {
	byID := make(map[string]models.Task, len(current))
	for _, t := range current {
		byID[t.ID] = t
	}

	known := make(map[string]bool, len(previous))
	for _, t := range previous {
		known[t.ID] = true
	}

	out := make([]models.Task, 0, len(current))
	for _, t := range current {
		if !known[t.ID] {
			out = append(out, t)
		}
	}
	for _, t := range previous {
		if cur, ok := byID[t.ID]; ok {
			out = append(out, cur)
		}
	}
	return renumber(out)
}
