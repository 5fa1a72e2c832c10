package usecases

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

var errQuery = errors.New("query failed")

// mockRepo implements ports.ProjectRepository for testing.
// failing names the methods that return errQuery.
type mockRepo struct {
	profile     *entities.Profile
	owned       []entities.Project
	team        []entities.Project
	invited     []entities.Project
	attachments []entities.Attachment
	fileNotes   []entities.Note
	tasks       map[string][]entities.Task
	notes       map[string][]entities.Note
	updates     []entities.TaskUpdate
	subtasks    []entities.Subtask
	failing     map[string]bool

	mu          sync.Mutex
	updateCalls [][]string
	limits      map[string]int
}

func (m *mockRepo) fail(method string) error {
	if m.failing[method] {
		return errQuery
	}
	return nil
}

func (m *mockRepo) recordLimit(method string, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits == nil {
		m.limits = make(map[string]int)
	}
	m.limits[method] = limit
}

func (m *mockRepo) GetProfile(ctx context.Context, userID string) (*entities.Profile, error) {
	return m.profile, m.fail("GetProfile")
}

func (m *mockRepo) ListOwnedProjects(ctx context.Context, userID string) ([]entities.Project, error) {
	return m.owned, m.fail("ListOwnedProjects")
}

func (m *mockRepo) ListTeamProjects(ctx context.Context, userID string) ([]entities.Project, error) {
	return m.team, m.fail("ListTeamProjects")
}

func (m *mockRepo) ListInvitedProjects(ctx context.Context, userID string) ([]entities.Project, error) {
	return m.invited, m.fail("ListInvitedProjects")
}

func (m *mockRepo) ListAttachments(ctx context.Context, projectIDs []string, limit int) ([]entities.Attachment, error) {
	m.recordLimit("ListAttachments", limit)
	return m.attachments, m.fail("ListAttachments")
}

func (m *mockRepo) ListNotesWithFiles(ctx context.Context, projectIDs []string) ([]entities.Note, error) {
	return m.fileNotes, m.fail("ListNotesWithFiles")
}

func (m *mockRepo) ListTasks(ctx context.Context, projectID string, limit int) ([]entities.Task, error) {
	m.recordLimit("ListTasks", limit)
	if err := m.fail("ListTasks"); err != nil {
		return nil, err
	}
	return m.tasks[projectID], nil
}

func (m *mockRepo) ListNotes(ctx context.Context, projectID string, limit int) ([]entities.Note, error) {
	m.recordLimit("ListNotes", limit)
	if err := m.fail("ListNotes:" + projectID); err != nil {
		return nil, err
	}
	return m.notes[projectID], nil
}

func (m *mockRepo) ListEvents(ctx context.Context, projectID string, limit int) ([]entities.Event, error) {
	return nil, m.fail("ListEvents")
}

func (m *mockRepo) ListContacts(ctx context.Context, projectID string, limit int) ([]entities.Contact, error) {
	return nil, m.fail("ListContacts")
}

func (m *mockRepo) ListTeamMembers(ctx context.Context, projectID string) ([]entities.TeamMember, error) {
	return nil, m.fail("ListTeamMembers")
}

func (m *mockRepo) ListInvitations(ctx context.Context, projectID string) ([]entities.Invitation, error) {
	return nil, m.fail("ListInvitations")
}

func (m *mockRepo) ListTaskUpdates(ctx context.Context, taskIDs []string, limit int) ([]entities.TaskUpdate, error) {
	m.mu.Lock()
	m.updateCalls = append(m.updateCalls, append([]string(nil), taskIDs...))
	m.mu.Unlock()
	m.recordLimit("ListTaskUpdates", limit)
	return filterByTask(m.updates, taskIDs, func(u entities.TaskUpdate) string { return u.TaskID }), m.fail("ListTaskUpdates")
}

func (m *mockRepo) ListSubtasks(ctx context.Context, taskIDs []string) ([]entities.Subtask, error) {
	return filterByTask(m.subtasks, taskIDs, func(s entities.Subtask) string { return s.TaskID }), m.fail("ListSubtasks")
}

func filterByTask[T any](items []T, taskIDs []string, key func(T) string) []T {
	want := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		want[id] = true
	}
	var out []T
	for _, it := range items {
		if want[key(it)] {
			out = append(out, it)
		}
	}
	return out
}

// mockBlobs implements ports.BlobStore for testing
type mockBlobs struct{}

func (mockBlobs) PublicURL(path string) string {
	return "https://blob.test/" + path
}

// mockExtractor implements ports.ContentExtractor for testing
type mockExtractor struct {
	mu   sync.Mutex
	urls []string
}

func (m *mockExtractor) Extract(ctx context.Context, url, mimeType, fileName string, sizeBytes int64) *string {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()
	return textPtr("content of " + fileName)
}

func TestSnapshot_NoProjects(t *testing.T) {
	profile := &entities.Profile{ID: "u1", FullName: "Ada"}
	agg := NewContextAggregator(&mockRepo{profile: profile}, mockBlobs{}, &mockExtractor{}, 0, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	assert.Equal(t, profile, snap.Profile)
	require.NotNil(t, snap.Projects)
	assert.Empty(t, snap.Projects)
}

func TestSnapshot_DeduplicatesProjects(t *testing.T) {
	repo := &mockRepo{
		owned:   []entities.Project{{ID: "p1", Name: "Owned"}},
		team:    []entities.Project{{ID: "p1", Name: "Team copy"}, {ID: "p2", Name: "Team"}},
		invited: []entities.Project{{ID: "p2", Name: "Invited copy"}, {ID: "p3", Name: "Invited"}},
	}
	agg := NewContextAggregator(repo, mockBlobs{}, &mockExtractor{}, 0, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	var got []string
	for _, p := range snap.Projects {
		got = append(got, p.ID+":"+p.Name)
	}
	want := []string{"p1:Owned", "p2:Team", "p3:Invited"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_FailingSourcesDegrade(t *testing.T) {
	repo := &mockRepo{
		owned:   []entities.Project{{ID: "p1"}},
		team:    []entities.Project{{ID: "p2"}},
		notes:   map[string][]entities.Note{"p1": {{ID: "n1"}}, "p2": {{ID: "n2"}}},
		failing: map[string]bool{"GetProfile": true, "ListTeamProjects": true, "ListNotes:p1": true, "ListEvents": true},
	}
	agg := NewContextAggregator(repo, mockBlobs{}, &mockExtractor{}, 0, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	assert.Nil(t, snap.Profile)
	require.Len(t, snap.Projects, 1)
	pc := snap.Projects[0]
	assert.Equal(t, "p1", pc.ID)
	require.NotNil(t, pc.Notes)
	assert.Empty(t, pc.Notes)
	require.NotNil(t, pc.Events)
	assert.Empty(t, pc.Events)
	assert.NotNil(t, pc.Contacts)
	assert.NotNil(t, pc.Attachments)
}

func TestSnapshot_OnlyFailingProjectCategoryIsEmpty(t *testing.T) {
	repo := &mockRepo{
		owned:   []entities.Project{{ID: "p1"}, {ID: "p2"}},
		notes:   map[string][]entities.Note{"p1": {{ID: "n1"}}, "p2": {{ID: "n2"}}},
		failing: map[string]bool{"ListNotes:p1": true},
	}
	agg := NewContextAggregator(repo, mockBlobs{}, &mockExtractor{}, 1, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	require.Len(t, snap.Projects, 2)
	assert.Empty(t, snap.Projects[0].Notes)
	assert.Equal(t, []entities.Note{{ID: "n2"}}, snap.Projects[1].Notes)
}

func TestSnapshot_UpdatesOnlyForActiveTasks(t *testing.T) {
	repo := &mockRepo{
		owned: []entities.Project{{ID: "p1"}},
		tasks: map[string][]entities.Task{"p1": {
			{ID: "t1", Status: "in_progress"},
			{ID: "t2", Status: entities.TaskStatusCompleted},
			{ID: "t3"},
		}},
		updates: []entities.TaskUpdate{
			{ID: "u1", TaskID: "t1"},
			{ID: "u2", TaskID: "t2"},
		},
		subtasks: []entities.Subtask{
			{ID: "s1", TaskID: "t2"},
			{ID: "s3", TaskID: "t3"},
		},
	}
	agg := NewContextAggregator(repo, mockBlobs{}, &mockExtractor{}, 0, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	require.Len(t, snap.Projects, 1)
	pc := snap.Projects[0]
	require.Len(t, repo.updateCalls, 1)
	ids := repo.updateCalls[0]
	sort.Strings(ids)
	assert.Equal(t, []string{"t1", "t3"}, ids)
	assert.Equal(t, []entities.TaskUpdate{{ID: "u1", TaskID: "t1"}}, pc.TaskUpdates)
	assert.Equal(t, []entities.Subtask{{ID: "s3", TaskID: "t3"}}, pc.Subtasks)
}

func TestSnapshot_NoActiveTasksSkipsUpdateQueries(t *testing.T) {
	repo := &mockRepo{
		owned: []entities.Project{{ID: "p1"}},
		tasks: map[string][]entities.Task{"p1": {{ID: "t1", Status: entities.TaskStatusCompleted}}},
	}
	agg := NewContextAggregator(repo, mockBlobs{}, &mockExtractor{}, 0, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	assert.Empty(t, repo.updateCalls)
	assert.NotNil(t, snap.Projects[0].TaskUpdates)
	assert.NotNil(t, snap.Projects[0].Subtasks)
}

func TestSnapshot_AttachmentsEnriched(t *testing.T) {
	repo := &mockRepo{
		owned: []entities.Project{{ID: "p1"}, {ID: "p2"}},
		attachments: []entities.Attachment{
			{ID: "a1", ProjectID: "p1", FileName: "brief.txt", FilePath: "p1/brief.txt", RelatedType: "note", RelatedID: "n1"},
			{ID: "a2", ProjectID: "p2", FileName: "logo.png", FilePath: "p2/logo.png", RelatedType: "task", RelatedID: "t1"},
			{ID: "a3", ProjectID: "p1", FileName: "orphan.txt", FilePath: "p1/orphan.txt", RelatedType: "note", RelatedID: "missing"},
		},
		fileNotes: []entities.Note{{ID: "n1", Title: "Kickoff", Content: "agenda", FilePath: "p1/brief.txt"}},
	}
	extractor := &mockExtractor{}
	agg := NewContextAggregator(repo, mockBlobs{}, extractor, 0, nil)

	snap := agg.Snapshot(context.Background(), "u1")

	require.Len(t, snap.Projects, 2)
	p1 := snap.Projects[0].Attachments
	require.Len(t, p1, 2)

	assert.Equal(t, "https://blob.test/p1/brief.txt", p1[0].PublicURL)
	require.NotNil(t, p1[0].FileContent)
	assert.Equal(t, "content of brief.txt", *p1[0].FileContent)
	assert.Equal(t, &entities.AssociatedNote{Title: "Kickoff", Content: "agenda"}, p1[0].AssociatedNote)
	assert.Nil(t, p1[1].AssociatedNote)

	p2 := snap.Projects[1].Attachments
	require.Len(t, p2, 1)
	assert.Equal(t, "a2", p2[0].ID)
	assert.Nil(t, p2[0].AssociatedNote)
	assert.Len(t, extractor.urls, 3)
}

func TestSnapshot_AppliesCaps(t *testing.T) {
	repo := &mockRepo{owned: []entities.Project{{ID: "p1"}}}
	agg := NewContextAggregator(repo, mockBlobs{}, &mockExtractor{}, 0, nil)

	agg.Snapshot(context.Background(), "u1")

	want := map[string]int{"ListAttachments": 30, "ListTasks": 20, "ListNotes": 10}
	if diff := cmp.Diff(want, repo.limits); diff != "" {
		t.Errorf("limits mismatch (-want +got):\n%s", diff)
	}
}
