package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/models"
)

// ListProjects returns the caller's projects, newest first.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context(), UserID(r.Context()))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project owned by the caller.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Status      models.ProjectStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	project := &models.Project{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		OwnerID:     UserID(r.Context()),
	}

	if err := project.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateProject(r.Context(), project); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// UpdateProject applies a partial update and returns the stored project.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch models.ProjectPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := patch.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.store.UpdateProject(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project and, by cascade, its tasks.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteProject(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
