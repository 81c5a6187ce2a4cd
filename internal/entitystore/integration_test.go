package entitystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/session"
	"taskboard/internal/store"
)

func setupLocalStack(t *testing.T, taskOrdering bool) (*Store, *session.Provider) {
	t.Helper()
	ctx := context.Background()

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	issuer, err := auth.NewIssuer("test-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)

	log := quietLogger()
	sessions := session.New(auth.NewService(db, issuer, log), session.WithLogger(log))

	gw, err := gateway.NewStoreGateway(ctx, db, sessions, taskOrdering)
	require.NoError(t, err)

	s := New(gw, sessions, WithLogger(log))
	t.Cleanup(func() { s.Close() })
	return s, sessions
}

func TestStore_AgainstSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	s, sessions := setupLocalStack(t, true)

	_, err := s.CreateProject(ctx, models.Project{Title: "Early"})
	assert.ErrorIs(t, err, session.ErrNotSignedIn)

	require.NoError(t, sessions.SignUp(ctx, "ana@example.com", "secret1"))

	project, err := s.CreateProject(ctx, models.Project{Title: "Website", Description: "relaunch"})
	require.NoError(t, err)
	createTasks(t, s, project.ID, "A", "B", "C", "D")

	require.NoError(t, s.ReorderTasks(ctx, project.ID, 0, 2))
	require.NoError(t, s.LoadTasks(ctx, project.ID))
	assert.Equal(t, []string{"B", "C", "A", "D"}, titles(s.Tasks(project.ID)))

	c := s.Tasks(project.ID)[1]
	done := true
	_, err = s.UpdateTask(ctx, c.ID, models.TaskPatch{Done: &done})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTask(ctx, s.Tasks(project.ID)[3].ID))

	require.NoError(t, s.LoadTasks(ctx, project.ID))
	assert.Equal(t, []string{"B", "C", "A"}, titles(s.Tasks(project.ID)))
	assert.Equal(t, 33, s.TaskStats(project.ID).CompletionRate)

	status := models.StatusInProgress
	_, err = s.UpdateProject(ctx, project.ID, models.ProjectPatch{Status: &status})
	require.NoError(t, err)

	require.NoError(t, s.LoadProjects(ctx))
	assert.Equal(t, models.ProjectStats{Total: 1, InProgress: 1}, s.ProjectStats())

	require.NoError(t, s.DeleteProject(ctx, project.ID))
	require.NoError(t, s.LoadProjects(ctx))
	assert.Empty(t, s.Projects())

	require.NoError(t, sessions.SignOut(ctx))
	assert.ErrorIs(t, s.LoadProjects(ctx), ErrFetch)
}

func TestStore_UsersDoNotSeeEachOther(t *testing.T) {
	ctx := context.Background()
	s, sessions := setupLocalStack(t, true)

	require.NoError(t, sessions.SignUp(ctx, "ana@example.com", "secret1"))
	_, err := s.CreateProject(ctx, models.Project{Title: "Ana's"})
	require.NoError(t, err)

	require.NoError(t, sessions.SignUp(ctx, "bob@example.com", "secret1"))
	assert.Empty(t, s.Projects())

	require.NoError(t, s.LoadProjects(ctx))
	assert.Empty(t, s.Projects())
}

func TestStore_OrderingDisabledKeepsLocalOrder(t *testing.T) {
	ctx := context.Background()
	s, sessions := setupLocalStack(t, false)
	require.NoError(t, sessions.SignUp(ctx, "ana@example.com", "secret1"))

	project, err := s.CreateProject(ctx, models.Project{Title: "P"})
	require.NoError(t, err)
	createTasks(t, s, project.ID, "A", "B", "C")

	require.NoError(t, s.ReorderTasks(ctx, project.ID, 0, 2))
	assert.Equal(t, []string{"B", "C", "A"}, titles(s.Tasks(project.ID)))

	// The remote keeps creation order; a reload shows it again.
	require.NoError(t, s.LoadTasks(ctx, project.ID))
	assert.Equal(t, []string{"A", "B", "C"}, titles(s.Tasks(project.ID)))
}
