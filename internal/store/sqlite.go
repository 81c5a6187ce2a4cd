package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"taskboard/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	positions bool
}

// Option configures a SQLiteStore.
type Option func(*options)

type options struct {
	schemaVersion int
}

// WithSchemaVersion stops migrations at version. Version 1 is the schema
// without task positions.
func WithSchemaVersion(version int) Option {
	return func(o *options) { o.schemaVersion = version }
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	ctx := context.Background()
	store := &SQLiteStore{db: db}
	if err := runMigrations(ctx, db, o.schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.positions, err = columnExists(ctx, db, "tasks", "position")
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HasTaskPositions reports whether the tasks table carries a position column.
func (s *SQLiteStore) HasTaskPositions(ctx context.Context) (bool, error) {
	return s.positions, nil
}

func now() time.Time {
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateUser inserts a user. Emails are unique case-insensitively.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.NewString()
	user.Email = strings.TrimSpace(user.Email)
	user.CreatedAt = now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, strings.TrimSpace(email))
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateProject creates a new project in the database. OwnerID must be set.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *models.Project) error {
	project.ID = uuid.NewString()
	project.Title = strings.TrimSpace(project.Title)
	project.Description = strings.TrimSpace(project.Description)
	project.CreatedAt = now()
	if project.Status == "" {
		project.Status = models.StatusPlanned
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, title, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, project.ID, project.OwnerID, project.Title, project.Description, project.Status, project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, ownerID, id string) (*models.Project, error) {
	project := &models.Project{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, status, created_at
		FROM projects WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Title,
		&project.Description,
		&project.Status,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects retrieves the owner's projects, newest first.
func (s *SQLiteStore) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, description, status, created_at
		FROM projects WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var project models.Project

		err := rows.Scan(
			&project.ID,
			&project.OwnerID,
			&project.Title,
			&project.Description,
			&project.Status,
			&project.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// UpdateProject writes the fields present in patch and returns the stored project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, ownerID, id string, patch models.ProjectPatch) (*models.Project, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, strings.TrimSpace(*patch.Title))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, strings.TrimSpace(*patch.Description))
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}

	if len(sets) > 0 {
		args = append(args, id, ownerID)
		result, err := s.db.ExecContext(ctx,
			`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update project: %w", err)
		}
		if err := expectOneRow(result, "project", id); err != nil {
			return nil, err
		}
	}

	return s.GetProject(ctx, ownerID, id)
}

// DeleteProject deletes a project and its associated tasks.
func (s *SQLiteStore) DeleteProject(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectOneRow(result, "project", id)
}

// CreateTask creates a new task at the top of its project.
func (s *SQLiteStore) CreateTask(ctx context.Context, ownerID string, task *models.Task) error {
	if _, err := s.GetProject(ctx, ownerID, task.ProjectID); err != nil {
		return err
	}

	task.ID = uuid.NewString()
	task.Title = strings.TrimSpace(task.Title)
	task.CreatedAt = now()
	task.Position = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if s.positions {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET position = position + 1 WHERE project_id = ?`, task.ProjectID); err != nil {
			return fmt.Errorf("failed to shift task positions: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, project_id, title, done, position, created_at)
			VALUES (?, ?, ?, ?, 0, ?)
		`, task.ID, task.ProjectID, task.Title, task.Done, task.CreatedAt)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, project_id, title, done, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, task.ID, task.ProjectID, task.Title, task.Done, task.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) taskColumns() string {
	if s.positions {
		return `t.id, t.project_id, t.title, t.done, t.position, t.created_at`
	}
	return `t.id, t.project_id, t.title, t.done, 0, t.created_at`
}

func scanTask(row interface{ Scan(...interface{}) error }, task *models.Task) error {
	return row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Done,
		&task.Position,
		&task.CreatedAt,
	)
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	task := &models.Task{}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+s.taskColumns()+`
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.id = ? AND p.owner_id = ?
	`, id, ownerID)
	if err := scanTask(row, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasksByProject retrieves tasks for a project, newest first, or by
// position when byPosition is set and the schema supports it.
func (s *SQLiteStore) ListTasksByProject(ctx context.Context, ownerID, projectID string, byPosition bool) ([]models.Task, error) {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	order := `t.created_at DESC, t.rowid DESC`
	if byPosition && s.positions {
		order = `t.position ASC, ` + order
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+s.taskColumns()+`
		FROM tasks t WHERE t.project_id = ? ORDER BY `+order, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateTask writes the fields present in patch and returns the stored task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error) {
	current, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var (
		sets []string
		args []interface{}
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, strings.TrimSpace(*patch.Title))
	}
	if patch.Done != nil {
		sets = append(sets, "done = ?")
		args = append(args, *patch.Done)
	}
	if len(sets) == 0 {
		return current, nil
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if err := expectOneRow(result, "task", id); err != nil {
		return nil, err
	}

	return s.GetTask(ctx, ownerID, id)
}

// DeleteTask deletes a task by ID and closes the gap in its project's positions.
func (s *SQLiteStore) DeleteTask(ctx context.Context, ownerID, id string) error {
	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if err := expectOneRow(result, "task", id); err != nil {
		return err
	}

	if s.positions {
		_, err := tx.ExecContext(ctx, `
			UPDATE tasks SET position = position - 1 WHERE project_id = ? AND position > ?
		`, task.ProjectID, task.Position)
		if err != nil {
			return fmt.Errorf("failed to compact task positions: %w", err)
		}
	}

	return tx.Commit()
}

// ReorderTasks writes the given positions within a project. The resulting
// positions must stay a dense zero-based sequence or nothing is written.
func (s *SQLiteStore) ReorderTasks(ctx context.Context, ownerID, projectID string, updates []models.TaskPosition) error {
	if !s.positions {
		return fmt.Errorf("task positions not supported by schema: %w", ErrConflict)
	}
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE tasks SET position = ? WHERE id = ? AND project_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		result, err := stmt.ExecContext(ctx, u.Position, u.ID, projectID)
		if err != nil {
			return fmt.Errorf("failed to update sort order: %w", err)
		}
		if err := expectOneRow(result, "task", u.ID); err != nil {
			return err
		}
	}

	var count, distinct int
	var maxPos sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT position), MAX(position) FROM tasks WHERE project_id = ?
	`, projectID).Scan(&count, &distinct, &maxPos)
	if err != nil {
		return fmt.Errorf("failed to verify sort order: %w", err)
	}
	if count != distinct || (count > 0 && maxPos.Int64 != int64(count-1)) {
		return fmt.Errorf("positions for project %s are not contiguous: %w", projectID, ErrConflict)
	}

	return tx.Commit()
}

func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
