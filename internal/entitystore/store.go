// Package entitystore keeps the client's in-memory projects and tasks in step
// with the remote store. Creates and updates are applied once the remote
// confirms them; deletes and reorders are applied locally first.
package entitystore

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/session"
)

// Sessions is the part of session.Provider the store depends on.
type Sessions interface {
	Current() (session.Identity, bool)
	Subscribe(fn func(session.Event)) (unsubscribe func())
}

// ChangeKind tells subscribers which collection changed.
type ChangeKind int

const (
	ProjectsChanged ChangeKind = iota + 1
	TasksChanged
)

// Change is delivered to subscribers after a collection changed. ProjectID
// is set for TasksChanged and for single-project changes.
type Change struct {
	Kind      ChangeKind
	ProjectID string
}

// Store is the Entity Store. It is safe for concurrent use; gateway calls are
// made without holding the lock.
type Store struct {
	gw       gateway.Gateway
	sessions Sessions
	log      logrus.FieldLogger

	mu         sync.Mutex
	owner      string
	epoch      uint64
	closed     bool
	projects   []models.Project
	tasks      map[string][]models.Task
	deleted    map[string]struct{}
	reordering map[string]bool
	listeners  map[int]func(Change)
	nextID     int

	unsubscribe func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store bound to gw and subscribed to sessions.
func New(gw gateway.Gateway, sessions Sessions, opts ...Option) *Store {
	s := &Store{
		gw:         gw,
		sessions:   sessions,
		log:        logrus.StandardLogger(),
		tasks:      make(map[string][]models.Task),
		deleted:    make(map[string]struct{}),
		reordering: make(map[string]bool),
		listeners:  make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if id, ok := sessions.Current(); ok {
		s.owner = id.UserID
	}
	s.unsubscribe = sessions.Subscribe(s.onSession)
	return s
}

// Close detaches the store from the session. Responses of calls still in
// flight are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.listeners = make(map[int]func(Change))
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	unsubscribe()
	return nil
}

// Subscribe registers fn for change notifications. fn is called without the
// store lock held and may read from the store.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify(changes ...Change) {
	s.mu.Lock()
	listeners := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
}

func (s *Store) onSession(ev session.Event) {
	switch ev.Kind {
	case session.SignedOut:
		s.reset("")
	case session.SignedIn:
		s.reset(ev.Identity.UserID)
	}
}

// reset drops all collections when the acting user changes.
func (s *Store) reset(owner string) {
	s.mu.Lock()
	if s.closed || (owner != "" && owner == s.owner) {
		s.mu.Unlock()
		return
	}
	s.resetLocked(owner)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"user_id": owner}).Debug("entity store cleared")
	s.notify(Change{Kind: ProjectsChanged})
}

func (s *Store) resetLocked(owner string) {
	s.owner = owner
	s.epoch++
	s.projects = nil
	s.tasks = make(map[string][]models.Task)
	s.deleted = make(map[string]struct{})
	s.reordering = make(map[string]bool)
}

// begin checks that the store is usable and that someone is signed in, and
// returns the epoch responses must match to be applied.
func (s *Store) begin(op Op, kind error, fields logrus.Fields) (uint64, error) {
	id, signedIn := s.sessions.Current()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if !signedIn {
		s.mu.Unlock()
		return 0, fail(kind, op, session.ErrNotSignedIn)
	}
	changedOwner := s.owner != id.UserID
	if changedOwner {
		s.resetLocked(id.UserID)
	}
	epoch := s.epoch
	s.mu.Unlock()

	if changedOwner {
		s.notify(Change{Kind: ProjectsChanged})
	}

	s.log.WithFields(fields).WithFields(logrus.Fields{
		"op":   op.String(),
		"mode": ModeOf(op).String(),
	}).Debug("entity store operation")
	return epoch, nil
}

// checkLocked reports whether a response started in epoch may still be applied.
func (s *Store) checkLocked(op Op, epoch uint64) error {
	if s.closed {
		return ErrClosed
	}
	if s.epoch != epoch {
		s.log.WithFields(logrus.Fields{"op": op.String()}).Debug("dropping response from previous session")
		return fail(ErrNotFound, op, errSessionChanged)
	}
	return nil
}

func (s *Store) isDeletedLocked(id string) bool {
	_, ok := s.deleted[id]
	return ok
}

// Projects returns the projects, newest first.
func (s *Store) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Project(nil), s.projects...)
}

// Project returns the project with id.
func (s *Store) Project(id string) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.projectIndexLocked(id); i >= 0 {
		return s.projects[i], true
	}
	return models.Project{}, false
}

// Tasks returns the tasks of a project in display order.
func (s *Store) Tasks(projectID string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Task(nil), s.tasks[projectID]...)
}

// ProjectStats counts the loaded projects by status.
func (s *Store) ProjectStats() models.ProjectStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CountProjects(s.projects)
}

// TaskStats summarises the loaded tasks of a project.
func (s *Store) TaskStats(projectID string) models.TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CountTasks(s.tasks[projectID])
}

// FilterProjects returns the loaded projects matching search and status.
func (s *Store) FilterProjects(search string, status models.ProjectStatus) []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.FilterProjects(s.projects, search, status)
}

// LoadProjects replaces the projects with the remote listing.
func (s *Store) LoadProjects(ctx context.Context) error {
	epoch, err := s.begin(OpLoadProjects, ErrFetch, nil)
	if err != nil {
		return err
	}

	projects, err := s.gw.ListProjects(ctx)
	if err != nil {
		return fail(ErrFetch, OpLoadProjects, err)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpLoadProjects, epoch); err != nil {
		s.mu.Unlock()
		return err
	}

	kept := make([]models.Project, 0, len(projects))
	present := make(map[string]bool, len(projects))
	for _, p := range projects {
		if s.isDeletedLocked(p.ID) {
			continue
		}
		kept = append(kept, p)
		present[p.ID] = true
	}
	s.projects = kept
	for id := range s.tasks {
		if !present[id] {
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ProjectsChanged})
	return nil
}

// LoadTasks replaces a project's tasks with the remote listing.
func (s *Store) LoadTasks(ctx context.Context, projectID string) error {
	epoch, err := s.begin(OpLoadTasks, ErrFetch, logrus.Fields{"project_id": projectID})
	if err != nil {
		return err
	}

	s.mu.Lock()
	gone := s.isDeletedLocked(projectID)
	s.mu.Unlock()
	if gone {
		return fail(ErrNotFound, OpLoadTasks, errProjectDeleted(projectID))
	}

	tasks, err := s.gw.ListTasks(ctx, projectID)
	if err != nil {
		return fail(ErrFetch, OpLoadTasks, err)
	}

	s.mu.Lock()
	if err := s.checkLocked(OpLoadTasks, epoch); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.isDeletedLocked(projectID) {
		s.mu.Unlock()
		return fail(ErrNotFound, OpLoadTasks, errProjectDeleted(projectID))
	}

	kept := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !s.isDeletedLocked(t.ID) {
			kept = append(kept, t)
		}
	}
	s.tasks[projectID] = renumber(kept)
	s.mu.Unlock()

	s.notify(Change{Kind: TasksChanged, ProjectID: projectID})
	return nil
}

// renumber sets each task's Position to its index.
func renumber(tasks []models.Task) []models.Task {
	for i := range tasks {
		tasks[i].Position = i
	}
	return tasks
}
