package datastore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/deskmate/internal/adapters/sqlitedb"
	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/usecases"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), sqlitedb.DriverPure, filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, repo *SQLiteRepository, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := repo.DB().Exec(s)
		require.NoError(t, err, s)
	}
}

func seedWorkspace(t *testing.T, repo *SQLiteRepository) {
	seed(t, repo,
		`INSERT INTO profiles (id, full_name, email) VALUES ('u1', 'Ada Lovelace', 'ada@example.com')`,
		`INSERT INTO projects (id, name, user_id, created_at) VALUES
			('p1', 'Apollo', 'u1', '2024-01-01'),
			('p2', 'Borealis', 'u2', '2024-02-01'),
			('p3', 'Cygnus', 'u3', '2024-03-01'),
			('p4', 'Draco', 'u4', '2024-04-01')`,
		`INSERT INTO project_team_members (id, project_id, user_id, name) VALUES
			('m1', 'p2', 'u1', 'Ada'),
			('m2', 'p1', 'u1', 'Ada')`,
		`INSERT INTO member_invitations (id, project_id, user_id, email, status) VALUES
			('i1', 'p3', NULL, 'ada@example.com', 'accepted'),
			('i2', 'p4', 'u1', NULL, 'pending')`,
		`INSERT INTO project_tasks (id, project_id, title, status, created_at) VALUES
			('t1', 'p1', 'Design', 'in_progress', '2024-01-02'),
			('t2', 'p1', 'Launch', 'completed', '2024-01-03'),
			('t3', 'p1', 'Review', NULL, '2024-01-04')`,
		`INSERT INTO project_task_updates (id, task_id, content, created_at) VALUES
			('tu1', 't1', 'half done', '2024-01-05'),
			('tu2', 't2', 'shipped', '2024-01-06')`,
		`INSERT INTO project_subtasks (id, task_id, title, completed, created_at) VALUES
			('s1', 't1', 'Sketch', 1, '2024-01-02'),
			('s2', 't3', 'Read', NULL, '2024-01-03')`,
		`INSERT INTO project_notes (id, project_id, title, content, file_path, created_at) VALUES
			('n1', 'p1', 'Kickoff', 'agenda', 'p1/brief.txt', '2024-01-02'),
			('n2', 'p1', 'Plain', 'text only', NULL, '2024-01-03')`,
		`INSERT INTO project_events (id, project_id, title, start_time) VALUES
			('e1', 'p1', 'Demo', '2024-05-02T10:00:00Z'),
			('e2', 'p1', 'Standup', '2024-05-01T09:00:00Z')`,
		`INSERT INTO project_attachments (id, file_name, file_path, file_type, file_size, created_at, project_id, related_type, related_id) VALUES
			('a1', 'brief.txt', 'p1/brief.txt', 'text/plain', 12, '2024-01-02', 'p1', 'note', 'n1'),
			('a2', 'logo.png', 'p2/logo.png', 'image/png', NULL, '2024-02-02', 'p2', 'task', 't9')`,
	)
}

func TestRepository_Profile(t *testing.T) {
	repo := newTestRepo(t)
	seedWorkspace(t, repo)
	ctx := context.Background()

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &entities.Profile{ID: "u1", FullName: "Ada Lovelace", Email: "ada@example.com"}, p)

	missing, err := repo.GetProfile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_ProjectSources(t *testing.T) {
	repo := newTestRepo(t)
	seedWorkspace(t, repo)
	ctx := context.Background()

	owned, err := repo.ListOwnedProjects(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(owned))

	team, err := repo.ListTeamProjects(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids(team))

	invited, err := repo.ListInvitedProjects(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, ids(invited), "only accepted invitations count")

	none, err := repo.ListOwnedProjects(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRepository_OrderingAndLimits(t *testing.T) {
	repo := newTestRepo(t)
	seedWorkspace(t, repo)
	ctx := context.Background()

	tasks, err := repo.ListTasks(ctx, "p1", 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t3", tasks[0].ID, "newest first")
	assert.Equal(t, "", tasks[0].Status, "NULL becomes empty")

	events, err := repo.ListEvents(ctx, "p1", 10)
	require.NoError(t, err)
	assert.Equal(t, "Standup", events[0].Title, "soonest first")

	updates, err := repo.ListTaskUpdates(ctx, []string{"t1", "t2"}, 1)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "tu2", updates[0].ID)

	subtasks, err := repo.ListSubtasks(ctx, []string{"t1", "t3"})
	require.NoError(t, err)
	want := []entities.Subtask{
		{ID: "s1", TaskID: "t1", Title: "Sketch", Completed: true, CreatedAt: "2024-01-02"},
		{ID: "s2", TaskID: "t3", Title: "Read", Completed: false, CreatedAt: "2024-01-03"},
	}
	if diff := cmp.Diff(want, subtasks); diff != "" {
		t.Errorf("subtasks mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_AttachmentsAndFileNotes(t *testing.T) {
	repo := newTestRepo(t)
	seedWorkspace(t, repo)
	ctx := context.Background()

	atts, err := repo.ListAttachments(ctx, []string{"p1", "p2"}, 30)
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "a2", atts[0].ID)
	assert.Equal(t, int64(0), atts[0].FileSize)
	assert.Nil(t, atts[1].FileContent)

	notes, err := repo.ListNotesWithFiles(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, noteIDs(notes))

	empty, err := repo.ListAttachments(ctx, nil, 30)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestRepository_DrivesAggregator(t *testing.T) {
	repo := newTestRepo(t)
	seedWorkspace(t, repo)

	agg := usecases.NewContextAggregator(repo, nil, nil, 0, nil)
	snap := agg.Snapshot(context.Background(), "u1")

	require.NotNil(t, snap.Profile)
	assert.Equal(t, []string{"p1", "p2", "p3"}, contextIDs(snap.Projects))

	p1 := snap.Projects[0]
	assert.Len(t, p1.Tasks, 3)
	assert.Equal(t, []string{"tu1"}, updateIDs(p1.TaskUpdates), "completed task updates are excluded")
	require.Len(t, p1.Attachments, 1)
	assert.Equal(t, &entities.AssociatedNote{Title: "Kickoff", Content: "agenda"}, p1.Attachments[0].AssociatedNote)
}

func TestRepository_LimitArgumentBinding(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 25; i++ {
		seed(t, repo, fmt.Sprintf(`INSERT INTO project_tasks (id, project_id, title, created_at) VALUES ('t%02d', 'p1', 'task', '2024-01-%02d')`, i, i+1))
	}

	tasks, err := repo.ListTasks(context.Background(), "p1", usecases.MaxTasksPerProject)
	require.NoError(t, err)
	assert.Len(t, tasks, 20)
	assert.Equal(t, "t24", tasks[0].ID)
}

func ids(ps []entities.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func contextIDs(ps []entities.ProjectContext) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func noteIDs(ns []entities.Note) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func updateIDs(us []entities.TaskUpdate) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.ID
	}
	return out
}
