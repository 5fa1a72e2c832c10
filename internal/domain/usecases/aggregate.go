package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// Per-category caps applied to every project in a snapshot.
const (
	MaxTasksPerProject    = 20
	MaxNotesPerProject    = 10
	MaxEventsPerProject   = 10
	MaxContactsPerProject = 10
	MaxTaskUpdates        = 20
	MaxAttachments        = 30
)

// ContextAggregator assembles a bounded snapshot of everything a user can access.
// Snapshot never fails: every failing sub-query degrades its own category to empty.
type ContextAggregator struct {
	repo        ports.ProjectRepository
	blobs       ports.BlobStore
	extractor   ports.ContentExtractor
	concurrency int
	now         func() time.Time
	log         *zap.Logger
}

// NewContextAggregator creates an aggregator. concurrency bounds how many projects are
// enriched at once; zero or negative means unbounded.
func NewContextAggregator(
	repo ports.ProjectRepository,
	blobs ports.BlobStore,
	extractor ports.ContentExtractor,
	concurrency int,
	log *zap.Logger,
) *ContextAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContextAggregator{
		repo:        repo,
		blobs:       blobs,
		extractor:   extractor,
		concurrency: concurrency,
		now:         time.Now,
		log:         log,
	}
}

// Snapshot walks the user's accessible-project graph.
func (a *ContextAggregator) Snapshot(ctx context.Context, userID string) entities.Snapshot {
	start := a.now()
	log := a.log.With(zap.String("user_id", userID))

	profile, err := a.repo.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("profile query failed", zap.Error(err))
		profile = nil
	}

	projects := a.accessibleProjects(ctx, log, userID)
	snap := entities.Snapshot{
		Profile:     profile,
		Projects:    []entities.ProjectContext{},
		GeneratedAt: start,
	}
	if len(projects) == 0 {
		log.Debug("no accessible projects")
		return snap
	}

	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	var (
		attachments []entities.Attachment
		fileNotes   []entities.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		attachments = degrade(log, "attachments", func() ([]entities.Attachment, error) {
			return a.repo.ListAttachments(gctx, ids, MaxAttachments)
		})
		return nil
	})
	g.Go(func() error {
		fileNotes = degrade(log, "notes_with_files", func() ([]entities.Note, error) {
			return a.repo.ListNotesWithFiles(gctx, ids)
		})
		return nil
	})
	_ = g.Wait()

	notesByID := make(map[string]entities.Note, len(fileNotes))
	for _, n := range fileNotes {
		notesByID[n.ID] = n
	}

	contexts := make([]entities.ProjectContext, len(projects))
	pg, pctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		pg.SetLimit(a.concurrency)
	}
	for i, p := range projects {
		pg.Go(func() error {
			contexts[i] = a.enrichProject(pctx, log, p, attachments, notesByID)
			return nil
		})
	}
	_ = pg.Wait()

	snap.Projects = contexts
	log.Info("snapshot assembled",
		zap.Int("projects", len(contexts)),
		zap.Int("attachments", len(attachments)),
		zap.Duration("elapsed", a.now().Sub(start)))
	return snap
}

// accessibleProjects merges owned, team and invitation projects, first occurrence wins.
func (a *ContextAggregator) accessibleProjects(ctx context.Context, log *zap.Logger, userID string) []entities.Project {
	var owned, team, invited []entities.Project

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		owned = degrade(log, "owned_projects", func() ([]entities.Project, error) {
			return a.repo.ListOwnedProjects(gctx, userID)
		})
		return nil
	})
	g.Go(func() error {
		team = degrade(log, "team_projects", func() ([]entities.Project, error) {
			return a.repo.ListTeamProjects(gctx, userID)
		})
		return nil
	})
	g.Go(func() error {
		invited = degrade(log, "invited_projects", func() ([]entities.Project, error) {
			return a.repo.ListInvitedProjects(gctx, userID)
		})
		return nil
	})
	_ = g.Wait()

	seen := make(map[string]bool)
	var merged []entities.Project
	for _, set := range [][]entities.Project{owned, team, invited} {
		for _, p := range set {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}
	return merged
}

func (a *ContextAggregator) enrichProject(
	ctx context.Context,
	log *zap.Logger,
	project entities.Project,
	attachments []entities.Attachment,
	notesByID map[string]entities.Note,
) entities.ProjectContext {
	log = log.With(zap.String("project_id", project.ID))
	pc := entities.ProjectContext{Project: project}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pc.Tasks = degrade(log, "tasks", func() ([]entities.Task, error) {
			return a.repo.ListTasks(gctx, project.ID, MaxTasksPerProject)
		})
		return nil
	})
	g.Go(func() error {
		pc.Notes = degrade(log, "notes", func() ([]entities.Note, error) {
			return a.repo.ListNotes(gctx, project.ID, MaxNotesPerProject)
		})
		return nil
	})
	g.Go(func() error {
		pc.Events = degrade(log, "events", func() ([]entities.Event, error) {
			return a.repo.ListEvents(gctx, project.ID, MaxEventsPerProject)
		})
		return nil
	})
	g.Go(func() error {
		pc.Contacts = degrade(log, "contacts", func() ([]entities.Contact, error) {
			return a.repo.ListContacts(gctx, project.ID, MaxContactsPerProject)
		})
		return nil
	})
	g.Go(func() error {
		pc.TeamMembers = degrade(log, "team_members", func() ([]entities.TeamMember, error) {
			return a.repo.ListTeamMembers(gctx, project.ID)
		})
		return nil
	})
	g.Go(func() error {
		pc.Invitations = degrade(log, "invitations", func() ([]entities.Invitation, error) {
			return a.repo.ListInvitations(gctx, project.ID)
		})
		return nil
	})
	_ = g.Wait()

	pc.TaskUpdates = []entities.TaskUpdate{}
	pc.Subtasks = []entities.Subtask{}

	var activeIDs []string
	for _, t := range pc.Tasks {
		if t.Active() {
			activeIDs = append(activeIDs, t.ID)
		}
	}
	if len(activeIDs) > 0 {
		tg, tctx := errgroup.WithContext(ctx)
		tg.Go(func() error {
			pc.TaskUpdates = degrade(log, "task_updates", func() ([]entities.TaskUpdate, error) {
				return a.repo.ListTaskUpdates(tctx, activeIDs, MaxTaskUpdates)
			})
			return nil
		})
		tg.Go(func() error {
			pc.Subtasks = degrade(log, "subtasks", func() ([]entities.Subtask, error) {
				return a.repo.ListSubtasks(tctx, activeIDs)
			})
			return nil
		})
		_ = tg.Wait()
	}

	pc.Attachments = a.projectAttachments(ctx, project.ID, attachments, notesByID)
	return pc
}

// projectAttachments selects and enriches the pre-fetched attachments of one project.
func (a *ContextAggregator) projectAttachments(
	ctx context.Context,
	projectID string,
	all []entities.Attachment,
	notesByID map[string]entities.Note,
) []entities.Attachment {
	out := []entities.Attachment{}
	for _, att := range all {
		if att.ProjectID == projectID {
			out = append(out, att)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			att := &out[i]
			if a.blobs != nil {
				att.PublicURL = a.blobs.PublicURL(att.FilePath)
			}
			if a.extractor != nil && att.PublicURL != "" {
				att.FileContent = a.extractor.Extract(gctx, att.PublicURL, att.FileType, att.FileName, att.FileSize)
			}
			if att.RelatedType == entities.RelatedTypeNote {
				if note, ok := notesByID[att.RelatedID]; ok {
					att.AssociatedNote = &entities.AssociatedNote{Title: note.Title, Content: note.Content}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// degrade runs one sub-query and substitutes an empty slice on failure.
func degrade[T any](log *zap.Logger, category string, query func() ([]T, error)) []T {
	items, err := query()
	if err != nil {
		log.Warn("snapshot category degraded to empty", zap.String("category", category), zap.Error(err))
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}
