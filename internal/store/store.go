package store

import (
	"context"
	"errors"

	"taskboard/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another owner.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for unique violations and inconsistent task order.
	ErrConflict = errors.New("conflict")
)

// Store defines the interface for data persistence operations. Every project
// and task operation is scoped to ownerID.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)

	// Project operations
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, ownerID, id string) (*models.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, ownerID, id string, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, ownerID, id string) error

	// Task operations
	CreateTask(ctx context.Context, ownerID string, task *models.Task) error
	GetTask(ctx context.Context, ownerID, id string) (*models.Task, error)
	ListTasksByProject(ctx context.Context, ownerID, projectID string, byPosition bool) ([]models.Task, error)
	UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, ownerID, id string) error
	ReorderTasks(ctx context.Context, ownerID, projectID string, updates []models.TaskPosition) error

	// HasTaskPositions reports whether the schema can persist task order.
	HasTaskPositions(ctx context.Context) (bool, error)

	// Lifecycle
	Close() error
}
