package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"taskboard/internal/models"
)

// TokenSource supplies the bearer token for each call.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// HTTPGateway talks to the backend REST API.
type HTTPGateway struct {
	client *Client
	tokens TokenSource

	mu   sync.RWMutex
	caps Capabilities
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates an HTTPGateway. Capabilities are all off until
// Probe succeeds.
func NewHTTPGateway(client *Client, tokens TokenSource) *HTTPGateway {
	return &HTTPGateway{client: client, tokens: tokens}
}

// Probe fetches and caches the backend capabilities.
func (g *HTTPGateway) Probe(ctx context.Context) (Capabilities, error) {
	var caps Capabilities
	if err := g.call(ctx, http.MethodGet, "/api/capabilities", nil, &caps); err != nil {
		return Capabilities{}, err
	}

	g.mu.Lock()
	g.caps = caps
	g.mu.Unlock()
	return caps, nil
}

// Capabilities returns the result of the last successful Probe.
func (g *HTTPGateway) Capabilities() Capabilities {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.caps
}

func (g *HTTPGateway) call(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := g.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	return g.client.do(ctx, method, path, token, in, out)
}

func (g *HTTPGateway) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := g.call(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (g *HTTPGateway) CreateProject(ctx context.Context, project models.Project) (models.Project, error) {
	req := struct {
		Title       string               `json:"title"`
		Description string               `json:"description,omitempty"`
		Status      models.ProjectStatus `json:"status,omitempty"`
	}{project.Title, project.Description, project.Status}

	var created models.Project
	err := g.call(ctx, http.MethodPost, "/api/projects", req, &created)
	return created, err
}

func (g *HTTPGateway) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	var updated models.Project
	err := g.call(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(id), patch, &updated)
	return updated, err
}

func (g *HTTPGateway) DeleteProject(ctx context.Context, id string) error {
	return g.call(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
}

func (g *HTTPGateway) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := g.call(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (g *HTTPGateway) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	req := struct {
		Title string `json:"title"`
		Done  bool   `json:"done"`
	}{task.Title, task.Done}

	var created models.Task
	err := g.call(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(task.ProjectID)+"/tasks", req, &created)
	return created, err
}

func (g *HTTPGateway) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	var updated models.Task
	err := g.call(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), patch, &updated)
	return updated, err
}

func (g *HTTPGateway) DeleteTask(ctx context.Context, id string) error {
	return g.call(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (g *HTTPGateway) PersistTaskOrder(ctx context.Context, projectID string, updates []models.TaskPosition) error {
	if len(updates) == 0 {
		return nil
	}
	return g.call(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(projectID)+"/tasks/order", updates, nil)
}
