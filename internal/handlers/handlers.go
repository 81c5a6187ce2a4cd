package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"taskboard/internal/auth"
	"taskboard/internal/store"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store        store.Store
	accounts     *auth.Service
	log          logrus.FieldLogger
	taskOrdering bool
}

// New creates a new Handlers instance. taskOrdering turns on position-ordered
// task listings and the task order endpoint.
func New(s store.Store, accounts *auth.Service, log logrus.FieldLogger, taskOrdering bool) *Handlers {
	return &Handlers{
		store:        s,
		accounts:     accounts,
		log:          log,
		taskOrdering: taskOrdering,
	}
}

// Routes builds the router for the whole API.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Post("/refresh", h.Refresh)
		r.Post("/signout", h.SignOut)
		r.Post("/recover", h.Recover)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireUser)

		r.Get("/capabilities", h.Capabilities)
		r.Get("/dashboard", h.Dashboard)

		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Patch("/projects/{id}", h.UpdateProject)
		r.Delete("/projects/{id}", h.DeleteProject)

		r.Get("/projects/{id}/tasks", h.ListTasks)
		r.Post("/projects/{id}/tasks", h.CreateTask)
		r.Put("/projects/{id}/tasks/order", h.ReorderTasks)
		r.Patch("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)
	})

	return r
}

// Capabilities reports optional features of this backend.
func (h *Handlers) Capabilities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"task_ordering": h.taskOrdering})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	}).WithError(err).Error("internal server error")
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// respondStoreError maps store errors onto status codes.
func (h *Handlers) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.respondServerError(w, r, err)
	}
}
