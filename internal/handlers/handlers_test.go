package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/store"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   *store.SQLiteStore
}

func setupTestHandlers(t *testing.T, taskOrdering bool) *testAPI {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	issuer, err := auth.NewIssuer("test-secret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := New(s, auth.NewService(s, issuer, log), log, taskOrdering)
	return &testAPI{t: t, handler: h.Routes(), store: s}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signUp(email string) models.Session {
	a.t.Helper()
	rec := a.do("POST", "/auth/signup", "", map[string]string{"email": email, "password": "secret1"})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("signup: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var session models.Session
	decodeBody(a.t, rec, &session)
	return session
}

func (a *testAPI) createProject(token, title string) models.Project {
	a.t.Helper()
	rec := a.do("POST", "/api/projects", token, map[string]string{"title": title})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create project: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var project models.Project
	decodeBody(a.t, rec, &project)
	return project
}

func (a *testAPI) createTask(token, projectID, title string) models.Task {
	a.t.Helper()
	rec := a.do("POST", "/api/projects/"+projectID+"/tasks", token, map[string]string{"title": title})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create task: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var task models.Task
	decodeBody(a.t, rec, &task)
	return task
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	api := setupTestHandlers(t, true)
	session := api.signUp("ana@example.com")

	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected tokens in session")
	}
	if session.User.Email != "ana@example.com" {
		t.Errorf("expected email in session, got %q", session.User.Email)
	}

	rec := api.do("POST", "/auth/signup", "", map[string]string{"email": "ana@example.com", "password": "secret1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	rec = api.do("POST", "/auth/signin", "", map[string]string{"email": "ana@example.com", "password": "wrong!"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	rec = api.do("POST", "/auth/signin", "", map[string]string{"email": "ana@example.com", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Errorf("signin: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestSignUp_ShortPassword(t *testing.T) {
	api := setupTestHandlers(t, true)

	rec := api.do("POST", "/auth/signup", "", map[string]string{"email": "a@example.com", "password": "123"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	api := setupTestHandlers(t, true)
	session := api.signUp("ana@example.com")

	rec := api.do("POST", "/auth/refresh", "", map[string]string{"refresh_token": session.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = api.do("POST", "/auth/refresh", "", map[string]string{"refresh_token": session.AccessToken})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("access token as refresh: expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAPI_RequiresToken(t *testing.T) {
	api := setupTestHandlers(t, true)

	rec := api.do("GET", "/api/projects", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	rec = api.do("GET", "/api/projects", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestCreateProjectHandler_ValidationError(t *testing.T) {
	api := setupTestHandlers(t, true)
	session := api.signUp("ana@example.com")

	rec := api.do("POST", "/api/projects", session.AccessToken, map[string]string{"title": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestProjectLifecycle(t *testing.T) {
	api := setupTestHandlers(t, true)
	token := api.signUp("ana@example.com").AccessToken

	first := api.createProject(token, "First")
	second := api.createProject(token, "Second")

	if first.ID == "" || first.CreatedAt.IsZero() || first.OwnerID == "" {
		t.Fatalf("expected server-assigned fields, got %+v", first)
	}
	if first.Status != models.StatusPlanned {
		t.Errorf("expected default status, got %q", first.Status)
	}

	rec := api.do("GET", "/api/projects", token, nil)
	var projects []models.Project
	decodeBody(t, rec, &projects)
	if len(projects) != 2 || projects[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", projects)
	}

	rec = api.do("PATCH", "/api/projects/"+first.ID, token, map[string]string{"status": "In Progress"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var updated models.Project
	decodeBody(t, rec, &updated)
	if updated.Status != models.StatusInProgress || updated.Title != "First" {
		t.Errorf("unexpected project after update: %+v", updated)
	}

	rec = api.do("DELETE", "/api/projects/"+first.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = api.do("PATCH", "/api/projects/"+first.ID, token, map[string]string{"title": "Again"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update deleted: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestProjects_AreScopedToOwner(t *testing.T) {
	api := setupTestHandlers(t, true)
	ana := api.signUp("ana@example.com").AccessToken
	bob := api.signUp("bob@example.com").AccessToken

	project := api.createProject(ana, "Private")

	rec := api.do("GET", "/api/projects/"+project.ID+"/tasks", bob, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = api.do("DELETE", "/api/projects/"+project.ID, bob, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestTaskLifecycleAndReorder(t *testing.T) {
	api := setupTestHandlers(t, true)
	token := api.signUp("ana@example.com").AccessToken
	project := api.createProject(token, "Project")

	c := api.createTask(token, project.ID, "C")
	b := api.createTask(token, project.ID, "B")
	a := api.createTask(token, project.ID, "A")

	rec := api.do("PUT", "/api/projects/"+project.ID+"/tasks/order", token, []models.TaskPosition{
		{ID: b.ID, Position: 0},
		{ID: a.ID, Position: 1},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reorder: expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}

	rec = api.do("GET", "/api/projects/"+project.ID+"/tasks", token, nil)
	var tasks []models.Task
	decodeBody(t, rec, &tasks)
	expected := []string{b.ID, a.ID, c.ID}
	for i, id := range expected {
		if tasks[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, tasks[i].ID)
		}
	}

	rec = api.do("PATCH", "/api/tasks/"+c.ID, token, map[string]bool{"done": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update task: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var done models.Task
	decodeBody(t, rec, &done)
	if !done.Done || done.Title != "C" {
		t.Errorf("unexpected task after update: %+v", done)
	}

	rec = api.do("DELETE", "/api/tasks/"+c.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete task: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestReorderTasks_DisabledCapability(t *testing.T) {
	api := setupTestHandlers(t, false)
	token := api.signUp("ana@example.com").AccessToken
	project := api.createProject(token, "Project")
	task := api.createTask(token, project.ID, "A")

	rec := api.do("GET", "/api/capabilities", token, nil)
	var caps map[string]bool
	decodeBody(t, rec, &caps)
	if caps["task_ordering"] {
		t.Error("expected task_ordering to be false")
	}

	rec = api.do("PUT", "/api/projects/"+project.ID+"/tasks/order", token, []models.TaskPosition{{ID: task.ID, Position: 0}})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	api := setupTestHandlers(t, true)
	token := api.signUp("ana@example.com").AccessToken

	api.createProject(token, "Website")
	mobile := api.createProject(token, "Mobile")
	api.do("PATCH", "/api/projects/"+mobile.ID, token, map[string]string{"status": "Completed"})

	rec := api.do("GET", "/api/dashboard?q=web", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var data DashboardData
	decodeBody(t, rec, &data)
	if data.Stats.Total != 2 || data.Stats.Completed != 1 || data.Stats.Planned != 1 {
		t.Errorf("unexpected stats: %+v", data.Stats)
	}
	if len(data.Projects) != 1 || data.Projects[0].Title != "Website" {
		t.Errorf("unexpected filtered projects: %+v", data.Projects)
	}

	rec = api.do("GET", "/api/dashboard?status=Archived", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
