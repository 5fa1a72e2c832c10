package entities

import "time"

// TaskStatusCompleted is the terminal task state. Completed tasks carry no updates or subtasks in a snapshot.
const TaskStatusCompleted = "completed"

// RelatedTypeNote marks an attachment that belongs to a project note.
const RelatedTypeNote = "note"

// Profile is the user's own profile row.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Project is an accessible project. Owned, team and invitation projects share this shape.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Task struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Active reports whether the task is not in the terminal state.
func (t Task) Active() bool {
	return t.Status != TaskStatusCompleted
}

type Note struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Event struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Location    string `json:"location,omitempty"`
}

type Contact struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Role      string `json:"role,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type TeamMember struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Invitation is a pending or answered invitation to a project (project_invitations).
type Invitation struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type TaskUpdate struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Content   string `json:"content"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Subtask struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at,omitempty"`
}

// AssociatedNote is the note an attachment was uploaded to.
type AssociatedNote struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Attachment is a file stored in the blob store and referenced by a project.
type Attachment struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	FilePath    string `json:"file_path"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	CreatedAt   string `json:"created_at,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	ProjectID   string `json:"project_id"`
	RelatedType string `json:"related_type,omitempty"`
	RelatedID   string `json:"related_id,omitempty"`

	// Derived during aggregation.
	PublicURL      string          `json:"public_url,omitempty"`
	FileContent    *string         `json:"file_content"`
	AssociatedNote *AssociatedNote `json:"associated_note"`
}

// ProjectContext is a project enriched with its bounded sub-collections.
type ProjectContext struct {
	Project

	Tasks       []Task       `json:"tasks"`
	Notes       []Note       `json:"notes"`
	Events      []Event      `json:"events"`
	Contacts    []Contact    `json:"contacts"`
	TeamMembers []TeamMember `json:"team_members"`
	Invitations []Invitation `json:"invitations"`
	TaskUpdates []TaskUpdate `json:"task_updates"`
	Subtasks    []Subtask    `json:"subtasks"`
	Attachments []Attachment `json:"attachments"`
}

// Snapshot is the bounded aggregation of a user's accessible data graph for one assistant turn.
type Snapshot struct {
	Profile     *Profile         `json:"profile"`
	Projects    []ProjectContext `json:"projects"`
	GeneratedAt time.Time        `json:"generated_at"`
}
