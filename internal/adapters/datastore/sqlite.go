// Package datastore provides the relational project store.
// Clean Architecture: Adapter implementing ports.ProjectRepository.
// All queries are read-only; NULL columns are coalesced to zero values.
package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/0xcro3dile/deskmate/internal/adapters/sqlitedb"
	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT,
		email TEXT,
		company TEXT,
		role TEXT,
		avatar_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT,
		start_date TEXT,
		end_date TEXT,
		user_id TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_team_members (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT,
		name TEXT,
		email TEXT,
		role TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS member_invitations (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT,
		email TEXT,
		status TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT,
		priority TEXT,
		due_date TEXT,
		assigned_to TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_notes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT,
		content TEXT,
		file_path TEXT,
		file_name TEXT,
		created_by TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_events (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT,
		description TEXT,
		start_time TEXT,
		end_time TEXT,
		location TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_contacts (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT,
		email TEXT,
		phone TEXT,
		company TEXT,
		role TEXT,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_invitations (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		email TEXT,
		role TEXT,
		status TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_task_updates (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		content TEXT,
		created_by TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_subtasks (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		title TEXT,
		completed INTEGER DEFAULT 0,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS project_attachments (
		id TEXT PRIMARY KEY,
		file_name TEXT,
		file_path TEXT,
		file_type TEXT,
		file_size INTEGER,
		created_at TEXT,
		created_by TEXT,
		project_id TEXT NOT NULL,
		related_type TEXT,
		related_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_user ON project_team_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON project_tasks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_project ON project_attachments(project_id)`,
}

const projectColumns = `p.id, COALESCE(p.name, ''), COALESCE(p.description, ''), COALESCE(p.status, ''),
	COALESCE(p.start_date, ''), COALESCE(p.end_date, ''), COALESCE(p.user_id, ''), COALESCE(p.created_at, '')`

// SQLiteRepository implements ports.ProjectRepository over database/sql.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database and ensures the schema exists.
func NewSQLiteRepository(ctx context.Context, driver, path string) (*SQLiteRepository, error) {
	db, err := sqlitedb.Open(ctx, driver, path)
	if err != nil {
		return nil, err
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return repo, nil
}

// EnsureSchema creates the tables when they do not exist.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	return sqlitedb.InitSchema(ctx, r.db, schema)
}

// DB exposes the handle for seeding and administration.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (*entities.Profile, error) {
	var p entities.Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(company, ''),
			COALESCE(role, ''), COALESCE(avatar_url, '')
		FROM profiles WHERE id = ?`, userID).
		Scan(&p.ID, &p.FullName, &p.Email, &p.Company, &p.Role, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) ListOwnedProjects(ctx context.Context, userID string) ([]entities.Project, error) {
	return queryAll(ctx, r.db, scanProject, `
		SELECT `+projectColumns+`
		FROM projects p WHERE p.user_id = ?
		ORDER BY p.created_at DESC`, userID)
}

func (r *SQLiteRepository) ListTeamProjects(ctx context.Context, userID string) ([]entities.Project, error) {
	return queryAll(ctx, r.db, scanProject, `
		SELECT DISTINCT `+projectColumns+`
		FROM projects p JOIN project_team_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC`, userID)
}

// ListInvitedProjects matches accepted invitations by user id or by the profile's email.
func (r *SQLiteRepository) ListInvitedProjects(ctx context.Context, userID string) ([]entities.Project, error) {
	return queryAll(ctx, r.db, scanProject, `
		SELECT DISTINCT `+projectColumns+`
		FROM projects p JOIN member_invitations i ON i.project_id = p.id
		WHERE i.status = 'accepted'
			AND (i.user_id = ? OR (i.email <> '' AND i.email = (SELECT email FROM profiles WHERE id = ?)))
		ORDER BY p.created_at DESC`, userID, userID)
}

func (r *SQLiteRepository) ListAttachments(ctx context.Context, projectIDs []string, limit int) ([]entities.Attachment, error) {
	if len(projectIDs) == 0 {
		return []entities.Attachment{}, nil
	}
	return queryAll(ctx, r.db, scanAttachment, `
		SELECT id, COALESCE(file_name, ''), COALESCE(file_path, ''), COALESCE(file_type, ''),
			COALESCE(file_size, 0), COALESCE(created_at, ''), COALESCE(created_by, ''), project_id,
			COALESCE(related_type, ''), COALESCE(related_id, '')
		FROM project_attachments
		WHERE project_id IN (`+sqlitedb.Placeholders(len(projectIDs))+`)
		ORDER BY created_at DESC LIMIT ?`, sqlitedb.Args(projectIDs, limit)...)
}

func (r *SQLiteRepository) ListNotesWithFiles(ctx context.Context, projectIDs []string) ([]entities.Note, error) {
	if len(projectIDs) == 0 {
		return []entities.Note{}, nil
	}
	return queryAll(ctx, r.db, scanNote, `
		SELECT `+noteColumns+`
		FROM project_notes
		WHERE project_id IN (`+sqlitedb.Placeholders(len(projectIDs))+`)
			AND file_path IS NOT NULL AND file_path <> ''`, sqlitedb.Args(projectIDs)...)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, projectID string, limit int) ([]entities.Task, error) {
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.Task, error) {
		var t entities.Task
		err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.DueDate, &t.AssignedTo, &t.CreatedAt)
		return t, err
	}, `
		SELECT id, project_id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(status, ''),
			COALESCE(priority, ''), COALESCE(due_date, ''), COALESCE(assigned_to, ''), COALESCE(created_at, '')
		FROM project_tasks WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?`, projectID, limit)
}

const noteColumns = `id, project_id, COALESCE(title, ''), COALESCE(content, ''), COALESCE(file_path, ''),
	COALESCE(file_name, ''), COALESCE(created_by, ''), COALESCE(created_at, '')`

func (r *SQLiteRepository) ListNotes(ctx context.Context, projectID string, limit int) ([]entities.Note, error) {
	return queryAll(ctx, r.db, scanNote, `
		SELECT `+noteColumns+`
		FROM project_notes WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?`, projectID, limit)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, projectID string, limit int) ([]entities.Event, error) {
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.Event, error) {
		var e entities.Event
		err := rows.Scan(&e.ID, &e.ProjectID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.Location)
		return e, err
	}, `
		SELECT id, project_id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(start_time, ''),
			COALESCE(end_time, ''), COALESCE(location, '')
		FROM project_events WHERE project_id = ?
		ORDER BY start_time ASC LIMIT ?`, projectID, limit)
}

func (r *SQLiteRepository) ListContacts(ctx context.Context, projectID string, limit int) ([]entities.Contact, error) {
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.Contact, error) {
		var c entities.Contact
		err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Role, &c.Notes)
		return c, err
	}, `
		SELECT id, project_id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''),
			COALESCE(company, ''), COALESCE(role, ''), COALESCE(notes, '')
		FROM project_contacts WHERE project_id = ?
		ORDER BY name ASC LIMIT ?`, projectID, limit)
}

func (r *SQLiteRepository) ListTeamMembers(ctx context.Context, projectID string) ([]entities.TeamMember, error) {
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.TeamMember, error) {
		var m entities.TeamMember
		err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.CreatedAt)
		return m, err
	}, `
		SELECT id, project_id, COALESCE(user_id, ''), COALESCE(name, ''), COALESCE(email, ''),
			COALESCE(role, ''), COALESCE(created_at, '')
		FROM project_team_members WHERE project_id = ?
		ORDER BY created_at ASC`, projectID)
}

func (r *SQLiteRepository) ListInvitations(ctx context.Context, projectID string) ([]entities.Invitation, error) {
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.Invitation, error) {
		var inv entities.Invitation
		err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.Email, &inv.Role, &inv.Status, &inv.CreatedAt)
		return inv, err
	}, `
		SELECT id, project_id, COALESCE(email, ''), COALESCE(role, ''), COALESCE(status, ''), COALESCE(created_at, '')
		FROM project_invitations WHERE project_id = ?
		ORDER BY created_at DESC`, projectID)
}

func (r *SQLiteRepository) ListTaskUpdates(ctx context.Context, taskIDs []string, limit int) ([]entities.TaskUpdate, error) {
	if len(taskIDs) == 0 {
		return []entities.TaskUpdate{}, nil
	}
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.TaskUpdate, error) {
		var u entities.TaskUpdate
		err := rows.Scan(&u.ID, &u.TaskID, &u.Content, &u.CreatedBy, &u.CreatedAt)
		return u, err
	}, `
		SELECT id, task_id, COALESCE(content, ''), COALESCE(created_by, ''), COALESCE(created_at, '')
		FROM project_task_updates
		WHERE task_id IN (`+sqlitedb.Placeholders(len(taskIDs))+`)
		ORDER BY created_at DESC LIMIT ?`, sqlitedb.Args(taskIDs, limit)...)
}

func (r *SQLiteRepository) ListSubtasks(ctx context.Context, taskIDs []string) ([]entities.Subtask, error) {
	if len(taskIDs) == 0 {
		return []entities.Subtask{}, nil
	}
	return queryAll(ctx, r.db, func(rows *sql.Rows) (entities.Subtask, error) {
		var s entities.Subtask
		err := rows.Scan(&s.ID, &s.TaskID, &s.Title, &s.Completed, &s.CreatedAt)
		return s, err
	}, `
		SELECT id, task_id, COALESCE(title, ''), COALESCE(completed, 0) <> 0, COALESCE(created_at, '')
		FROM project_subtasks
		WHERE task_id IN (`+sqlitedb.Placeholders(len(taskIDs))+`)
		ORDER BY created_at ASC`, sqlitedb.Args(taskIDs)...)
}

func scanProject(rows *sql.Rows) (entities.Project, error) {
	var p entities.Project
	err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.StartDate, &p.EndDate, &p.UserID, &p.CreatedAt)
	return p, err
}

func scanNote(rows *sql.Rows) (entities.Note, error) {
	var n entities.Note
	err := rows.Scan(&n.ID, &n.ProjectID, &n.Title, &n.Content, &n.FilePath, &n.FileName, &n.CreatedBy, &n.CreatedAt)
	return n, err
}

func scanAttachment(rows *sql.Rows) (entities.Attachment, error) {
	var a entities.Attachment
	err := rows.Scan(&a.ID, &a.FileName, &a.FilePath, &a.FileType, &a.FileSize, &a.CreatedAt, &a.CreatedBy,
		&a.ProjectID, &a.RelatedType, &a.RelatedID)
	return a, err
}

// queryAll runs query and scans every row. The result is never nil.
func queryAll[T any](ctx context.Context, db *sql.DB, scan func(*sql.Rows) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
