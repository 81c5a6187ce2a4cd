package models

import (
	"math"
	"strings"
)

// ProjectStats are the dashboard counters.
type ProjectStats struct {
	Total      int `json:"total"`
	Planned    int `json:"planned"`
	InProgress int `json:"in_progress"`
	Paused     int `json:"paused"`
	Completed  int `json:"completed"`
}

// TaskStats summarise a project's task list.
type TaskStats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completion_rate"`
}

// CountProjects tallies projects by status.
func CountProjects(projects []Project) ProjectStats {
	stats := ProjectStats{Total: len(projects)}
	for _, p := range projects {
		switch p.Status {
		case StatusPlanned:
			stats.Planned++
		case StatusInProgress:
			stats.InProgress++
		case StatusPaused:
			stats.Paused++
		case StatusCompleted:
			stats.Completed++
		}
	}
	return stats
}

// CountTasks tallies done and pending tasks. CompletionRate is a rounded percentage.
func CountTasks(tasks []Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Done {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

// FilterProjects keeps projects whose title or description contains search
// (case-insensitive) and whose status matches. An empty status or "all" matches
// every status.
func FilterProjects(projects []Project, search string, status ProjectStatus) []Project {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if status != "" && status != "all" && p.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}
