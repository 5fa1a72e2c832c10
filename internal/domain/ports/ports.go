// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, not on concrete implementations. Adapters implement them.
package ports

import (
	"context"
	"io"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

// ProjectRepository is the read-only view of the relational store.
// Every method returns an empty slice, never nil, on success.
type ProjectRepository interface {
	// GetProfile returns nil, nil when the user has no profile row.
	GetProfile(ctx context.Context, userID string) (*entities.Profile, error)

	ListOwnedProjects(ctx context.Context, userID string) ([]entities.Project, error)
	ListTeamProjects(ctx context.Context, userID string) ([]entities.Project, error)
	ListInvitedProjects(ctx context.Context, userID string) ([]entities.Project, error)

	// ListAttachments returns the newest attachments across all given projects.
	ListAttachments(ctx context.Context, projectIDs []string, limit int) ([]entities.Attachment, error)
	// ListNotesWithFiles returns notes carrying a file reference across all given projects.
	ListNotesWithFiles(ctx context.Context, projectIDs []string) ([]entities.Note, error)

	ListTasks(ctx context.Context, projectID string, limit int) ([]entities.Task, error)
	ListNotes(ctx context.Context, projectID string, limit int) ([]entities.Note, error)
	ListEvents(ctx context.Context, projectID string, limit int) ([]entities.Event, error)
	ListContacts(ctx context.Context, projectID string, limit int) ([]entities.Contact, error)
	ListTeamMembers(ctx context.Context, projectID string) ([]entities.TeamMember, error)
	ListInvitations(ctx context.Context, projectID string) ([]entities.Invitation, error)

	ListTaskUpdates(ctx context.Context, taskIDs []string, limit int) ([]entities.TaskUpdate, error)
	ListSubtasks(ctx context.Context, taskIDs []string) ([]entities.Subtask, error)
}

// BlobStore resolves stored object paths to publicly readable URLs.
type BlobStore interface {
	PublicURL(path string) string
}

// Resource is a fetched remote object. Callers must close Body.
type Resource struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// ContentFetcher retrieves raw bytes by URL.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*Resource, error)
}

// ContentExtractor turns a single file reference into bounded text for the LLM.
// A nil result means the content is unavailable.
type ContentExtractor interface {
	Extract(ctx context.Context, url, mimeType, fileName string, sizeBytes int64) *string
}

// CompletionOptions tunes a single chat-completion request.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMService generates chat completions from a language model.
type LLMService interface {
	// Complete sends the ordered messages and returns the first choice.
	// Upstream failures are reported as *entities.UpstreamError.
	Complete(ctx context.Context, messages []entities.ChatMessage, opts CompletionOptions) (*entities.Completion, error)

	// Configured reports whether the upstream credential is present.
	Configured() bool
}

// Assistant answers one user turn. The session controller depends on this, not on the use case type.
type Assistant interface {
	Invoke(ctx context.Context, req entities.AssistantRequest) (*entities.AssistantReply, error)
}

// KeyValueStore is namespaced string persistence.
type KeyValueStore interface {
	// Get returns found=false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// FileWatcher monitors a file or directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the path and emits events.
	Watch(ctx context.Context, path string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
