package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxTaskTitleLen = 200

// Task represents a single task within a project.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	Position  int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskPatch carries the fields of a partial task update. The project reference
// is deliberately absent: a task never moves between projects.
type TaskPatch struct {
	Title *string `json:"title,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}

// TaskPosition is one persisted sort position.
type TaskPosition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Done == nil
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if err := validateTaskTitle(t.Title); err != nil {
		return err
	}

	if strings.TrimSpace(t.ProjectID) == "" {
		return invalid("project_id", "project_id is required")
	}

	return nil
}

// Validate checks the fields present in the patch.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		return validateTaskTitle(*p.Title)
	}
	return nil
}

// Apply returns a copy of t with the patch fields written over it.
func (t Task) Apply(patch TaskPatch) Task {
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Done != nil {
		t.Done = *patch.Done
	}
	return t
}

// Diff drops the fields of patch that already match t.
func (t Task) Diff(patch TaskPatch) TaskPatch {
	var out TaskPatch
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != t.Title {
		out.Title = patch.Title
	}
	if patch.Done != nil && *patch.Done != t.Done {
		out.Done = patch.Done
	}
	return out
}

func validateTaskTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTaskTitleLen {
		return invalid("title", "title must be 200 characters or fewer")
	}
	return nil
}
