package entitystore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/session"
)

// fakeGateway is an in-memory remote. Hooks run once without any lock held,
// so tests can interleave store operations: before hooks run before the call
// acts, after hooks once it has acted but before it returns.
type fakeGateway struct {
	mu        sync.Mutex
	caps      gateway.Capabilities
	seq       int
	projects  []models.Project
	tasks     map[string][]models.Task
	calls     map[string]int
	fail      map[string]error
	hooks     map[string]func()
	after     map[string]func()
	patches   []interface{}
	persisted [][]models.TaskPosition
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		caps:  gateway.Capabilities{TaskOrdering: true},
		tasks: map[string][]models.Task{},
		calls: map[string]int{},
		fail:  map[string]error{},
		hooks: map[string]func(){},
		after: map[string]func(){},
	}
}

func (f *fakeGateway) enter(name string) error {
	f.mu.Lock()
	f.calls[name]++
	hook := f.hooks[name]
	delete(f.hooks, name)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.fail[name]
	delete(f.fail, name)
	return err
}

func (f *fakeGateway) leave(name string) {
	f.mu.Lock()
	hook := f.after[name]
	delete(f.after, name)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) onCall(name string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[name] = fn
}

func (f *fakeGateway) afterCall(name string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.after[name] = fn
}

func (f *fakeGateway) failNext(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = err
}

func (f *fakeGateway) nextID(prefix string) (string, time.Time) {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq), time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC)
}

func (f *fakeGateway) Capabilities() gateway.Capabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caps
}

func (f *fakeGateway) ListProjects(ctx context.Context) ([]models.Project, error) {
	if err := f.enter("ListProjects"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Project(nil), f.projects...), nil
}

func (f *fakeGateway) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if err := f.enter("CreateProject"); err != nil {
		return models.Project{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID, p.CreatedAt = f.nextID("p")
	p.OwnerID = "u1"
	if p.Status == "" {
		p.Status = models.StatusPlanned
	}
	f.projects = append([]models.Project{p}, f.projects...)
	return p, nil
}

func (f *fakeGateway) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	if err := f.enter("UpdateProject"); err != nil {
		return models.Project{}, err
	}
	defer f.leave("UpdateProject")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	for i := range f.projects {
		if f.projects[i].ID == id {
			f.projects[i] = f.projects[i].Apply(patch)
			return f.projects[i], nil
		}
	}
	return models.Project{}, gateway.ErrNotFound
}

func (f *fakeGateway) DeleteProject(ctx context.Context, id string) error {
	if err := f.enter("DeleteProject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects {
		if f.projects[i].ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			delete(f.tasks, id)
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeGateway) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	if err := f.enter("ListTasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Task(nil), f.tasks[projectID]...), nil
}

func (f *fakeGateway) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if err := f.enter("CreateTask"); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID, t.CreatedAt = f.nextID("t")
	tasks := append([]models.Task{t}, f.tasks[t.ProjectID]...)
	for i := range tasks {
		tasks[i].Position = i
	}
	f.tasks[t.ProjectID] = tasks
	return t, nil
}

func (f *fakeGateway) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	if err := f.enter("UpdateTask"); err != nil {
		return models.Task{}, err
	}
	defer f.leave("UpdateTask")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	for pid, tasks := range f.tasks {
		for i := range tasks {
			if tasks[i].ID == id {
				f.tasks[pid][i] = tasks[i].Apply(patch)
				return f.tasks[pid][i], nil
			}
		}
	}
	return models.Task{}, gateway.ErrNotFound
}

func (f *fakeGateway) DeleteTask(ctx context.Context, id string) error {
	if err := f.enter("DeleteTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, tasks := range f.tasks {
		for i := range tasks {
			if tasks[i].ID == id {
				f.tasks[pid] = append(tasks[:i:i], tasks[i+1:]...)
				return nil
			}
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeGateway) PersistTaskOrder(ctx context.Context, projectID string, updates []models.TaskPosition) error {
	if err := f.enter("PersistTaskOrder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, updates)
	tasks := f.tasks[projectID]
	for _, u := range updates {
		for i := range tasks {
			if tasks[i].ID == u.ID {
				tasks[i].Position = u.Position
			}
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })
	return nil
}

// fakeSessions is a hand-driven session provider.
type fakeSessions struct {
	mu        sync.Mutex
	current   *session.Identity
	listeners map[int]func(session.Event)
	next      int
}

func newFakeSessions(userID string) *fakeSessions {
	f := &fakeSessions{listeners: map[int]func(session.Event){}}
	if userID != "" {
		f.current = &session.Identity{UserID: userID}
	}
	return f
}

func (f *fakeSessions) Current() (session.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return session.Identity{}, false
	}
	return *f.current, true
}

func (f *fakeSessions) Subscribe(fn func(session.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeSessions) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeSessions) emit(ev session.Event) {
	f.mu.Lock()
	if ev.Kind == session.SignedOut {
		f.current = nil
	} else {
		id := ev.Identity
		f.current = &id
	}
	listeners := make([]func(session.Event), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (f *fakeSessions) signIn(userID string) {
	f.emit(session.Event{Kind: session.SignedIn, Identity: session.Identity{UserID: userID}})
}

func (f *fakeSessions) signOut() {
	f.emit(session.Event{Kind: session.SignedOut})
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
