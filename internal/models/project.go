package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxProjectTitleLen       = 100
	MaxProjectDescriptionLen = 500
)

// ProjectStatus is the lifecycle state shown on a project card.
type ProjectStatus string

const (
	StatusPlanned    ProjectStatus = "Planned"
	StatusInProgress ProjectStatus = "In Progress"
	StatusPaused     ProjectStatus = "Paused"
	StatusCompleted  ProjectStatus = "Completed"
)

// ProjectStatuses lists the valid statuses in display order.
var ProjectStatuses = []ProjectStatus{StatusPlanned, StatusInProgress, StatusPaused, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	for _, known := range ProjectStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Project groups tasks for a single owner.
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	OwnerID     string        `json:"user_id"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ProjectPatch carries the fields of a partial project update. Nil means unchanged.
type ProjectPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProjectPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Validate checks that the project has valid field values.
func (p *Project) Validate() error {
	if err := validateProjectTitle(p.Title); err != nil {
		return err
	}

	if err := validateProjectDescription(p.Description); err != nil {
		return err
	}

	if p.Status != "" && !p.Status.Valid() {
		return invalid("status", "status must be 'Planned', 'In Progress', 'Paused', or 'Completed'")
	}

	return nil
}

// Validate checks the fields present in the patch.
func (p ProjectPatch) Validate() error {
	if p.Title != nil {
		if err := validateProjectTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateProjectDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("status", "status must be 'Planned', 'In Progress', 'Paused', or 'Completed'")
	}
	return nil
}

// Apply returns a copy of p with the patch fields written over it.
func (p Project) Apply(patch ProjectPatch) Project {
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	return p
}

// Diff drops the fields of patch that already match p.
func (p Project) Diff(patch ProjectPatch) ProjectPatch {
	var out ProjectPatch
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != p.Title {
		out.Title = patch.Title
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != p.Description {
		out.Description = patch.Description
	}
	if patch.Status != nil && *patch.Status != p.Status {
		out.Status = patch.Status
	}
	return out
}

func validateProjectTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxProjectTitleLen {
		return invalid("title", "title must be 100 characters or fewer")
	}
	return nil
}

func validateProjectDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxProjectDescriptionLen {
		return invalid("description", "description must be 500 characters or fewer")
	}
	return nil
}
