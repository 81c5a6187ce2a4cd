package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/models"
)

// ListTasks returns a project's tasks in display order.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := h.store.ListTasksByProject(ctx, UserID(ctx), chi.URLParam(r, "id"), h.taskOrdering)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task at the top of a project.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Title string `json:"title"`
		Done  bool   `json:"done"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task := &models.Task{
		ProjectID: chi.URLParam(r, "id"),
		Title:     req.Title,
		Done:      req.Done,
	}

	if err := task.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateTask(ctx, UserID(ctx), task); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial update and returns the stored task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := patch.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.store.UpdateTask(ctx, UserID(ctx), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.store.DeleteTask(ctx, UserID(ctx), chi.URLParam(r, "id")); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderTasks writes new sort positions for tasks within a project.
func (h *Handlers) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.taskOrdering {
		respondError(w, http.StatusConflict, "task ordering is disabled")
		return
	}

	var updates []models.TaskPosition
	if err := decodeJSON(r, &updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	for _, u := range updates {
		if u.ID == "" || u.Position < 0 {
			respondError(w, http.StatusBadRequest, "invalid position")
			return
		}
	}

	if err := h.store.ReorderTasks(ctx, UserID(ctx), chi.URLParam(r, "id"), updates); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
