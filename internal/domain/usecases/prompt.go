package usecases

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

const assistantInstructions = `You are the project assistant of a project-management dashboard.
Answer using only the workspace data below. When the data does not contain the answer, say so plainly.
Refer to projects, tasks and files by name. Keep answers short unless the user asks for detail.
When a file's content is shown, you may quote and summarize it. When only a placeholder is shown, explain that the file cannot be read.`

// BuildSystemPrompt renders the assistant instructions followed by the snapshot.
func BuildSystemPrompt(snap entities.Snapshot, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(assistantInstructions)
	sb.WriteString("\n\nCurrent time: ")
	sb.WriteString(now.UTC().Format(time.RFC3339))
	sb.WriteString("\n\n")

	if p := snap.Profile; p != nil {
		sb.WriteString("## User\n")
		writeField(&sb, "Name", p.FullName)
		writeField(&sb, "Email", p.Email)
		writeField(&sb, "Company", p.Company)
		writeField(&sb, "Role", p.Role)
		sb.WriteString("\n")
	}

	if len(snap.Projects) == 0 {
		sb.WriteString("The user has no accessible projects.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "## Projects (%d)\n", len(snap.Projects))
	for _, pc := range snap.Projects {
		writeProject(&sb, pc)
	}
	return sb.String()
}

func writeProject(sb *strings.Builder, pc entities.ProjectContext) {
	fmt.Fprintf(sb, "\n### %s\n", pc.Name)
	writeField(sb, "Description", pc.Description)
	writeField(sb, "Status", pc.Status)
	if pc.StartDate != "" || pc.EndDate != "" {
		fmt.Fprintf(sb, "Schedule: %s to %s\n", orDash(pc.StartDate), orDash(pc.EndDate))
	}

	if len(pc.Tasks) > 0 {
		sb.WriteString("Tasks:\n")
		for _, t := range pc.Tasks {
			fmt.Fprintf(sb, "- %s [%s", t.Title, orDash(t.Status))
			if t.Priority != "" {
				fmt.Fprintf(sb, ", priority %s", t.Priority)
			}
			if t.DueDate != "" {
				fmt.Fprintf(sb, ", due %s", t.DueDate)
			}
			sb.WriteString("]\n")
			for _, s := range pc.Subtasks {
				if s.TaskID != t.ID {
					continue
				}
				mark := " "
				if s.Completed {
					mark = "x"
				}
				fmt.Fprintf(sb, "  - [%s] %s\n", mark, s.Title)
			}
			for _, u := range pc.TaskUpdates {
				if u.TaskID == t.ID {
					fmt.Fprintf(sb, "  update %s: %s\n", orDash(u.CreatedAt), u.Content)
				}
			}
		}
	}

	if len(pc.Notes) > 0 {
		sb.WriteString("Notes:\n")
		for _, n := range pc.Notes {
			fmt.Fprintf(sb, "- %s: %s\n", n.Title, n.Content)
		}
	}

	if len(pc.Events) > 0 {
		sb.WriteString("Events:\n")
		for _, e := range pc.Events {
			fmt.Fprintf(sb, "- %s at %s", e.Title, orDash(e.StartTime))
			if e.Location != "" {
				fmt.Fprintf(sb, " (%s)", e.Location)
			}
			sb.WriteString("\n")
		}
	}

	if len(pc.Contacts) > 0 {
		sb.WriteString("Contacts:\n")
		for _, c := range pc.Contacts {
			fmt.Fprintf(sb, "- %s", c.Name)
			for _, part := range []string{c.Role, c.Company, c.Email, c.Phone} {
				if part != "" {
					fmt.Fprintf(sb, ", %s", part)
				}
			}
			sb.WriteString("\n")
		}
	}

	if len(pc.TeamMembers) > 0 {
		sb.WriteString("Team:\n")
		for _, m := range pc.TeamMembers {
			fmt.Fprintf(sb, "- %s <%s> %s\n", orDash(m.Name), m.Email, m.Role)
		}
	}

	if len(pc.Invitations) > 0 {
		sb.WriteString("Invitations:\n")
		for _, inv := range pc.Invitations {
			fmt.Fprintf(sb, "- %s as %s (%s)\n", inv.Email, orDash(inv.Role), orDash(inv.Status))
		}
	}

	if len(pc.Attachments) > 0 {
		sb.WriteString("Files:\n")
		for _, a := range pc.Attachments {
			fmt.Fprintf(sb, "- %s (%s, %d bytes)", a.FileName, orDash(a.FileType), a.FileSize)
			if a.AssociatedNote != nil {
				fmt.Fprintf(sb, " attached to note %q", a.AssociatedNote.Title)
			}
			sb.WriteString("\n")
			if a.FileContent != nil {
				sb.WriteString(*a.FileContent)
				sb.WriteString("\n")
			}
		}
	}
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", label, value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
