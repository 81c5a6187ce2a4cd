package handlers

import (
	"net/http"

	"taskboard/internal/models"
)

// DashboardData is the response of the dashboard endpoint.
type DashboardData struct {
	Stats    models.ProjectStats `json:"stats"`
	Projects []models.Project    `json:"projects"`
}

// Dashboard returns project counters over all projects and the projects
// matching the optional "q" and "status" query parameters.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := models.ProjectStatus(r.URL.Query().Get("status"))
	if status != "" && status != "all" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	projects, err := h.store.ListProjects(ctx, UserID(ctx))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, DashboardData{
		Stats:    models.CountProjects(projects),
		Projects: models.FilterProjects(projects, r.URL.Query().Get("q"), status),
	})
}
