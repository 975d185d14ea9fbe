package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/ops"
)

const issuesTable = "issues"

// IssuePatch is a partial issue update; nil fields are left untouched
type IssuePatch struct {
	Title       *string
	Description *string
	Priority    *int
	Assignee    *string
	Labels      []string
}

func (p IssuePatch) fields(now time.Time) map[string]any {
	m := map[string]any{"updated_at": now}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.Assignee != nil {
		m["assignee"] = *p.Assignee
	}
	if p.Labels != nil {
		m["labels"] = p.Labels
	}
	return m
}

// newIssueRow is the insert payload; the database assigns the id
type newIssueRow struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      ops.IssueStatus `json:"status"`
	Priority    int             `json:"priority"`
	Assignee    string          `json:"assignee,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
}

// BoardServiceImpl implements BoardService
type BoardServiceImpl struct {
	db     RecordStore
	clock  clock.Clock
	issues *Collection[ops.Issue]
	logger *log.Logger
}

// NewBoardService creates the PM board state
func NewBoardService(db RecordStore, notifier Notifier, clk clock.Clock) *BoardServiceImpl {
	if clk == nil {
		clk = clock.Real()
	}
	return &BoardServiceImpl{
		db:     db,
		clock:  clk,
		issues: NewCollection("issue", func(i ops.Issue) string { return i.ID }, notifier),
	}
}

// SetLogger sets the logger for debug output
func (s *BoardServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
	s.issues.SetLogger(logger)
}

// LoadIssues fetches the visible (non-archived) issues
func (s *BoardServiceImpl) LoadIssues(ctx context.Context) error {
	var issues []ops.Issue
	if err := s.db.RPC(ctx, "list_issues", map[string]any{"include_archived": false}, &issues); err != nil {
		if s.logger != nil {
			s.logger.Printf("load issues failed (%s): %v", failureKind(err), err)
		}
		return err
	}
	visible := issues[:0]
	for _, i := range issues {
		if !i.Archived {
			visible = append(visible, i)
		}
	}
	s.issues.Replace(visible)
	return nil
}

// CreateIssue adds an issue at the top of the board and persists it
func (s *BoardServiceImpl) CreateIssue(ctx context.Context, issue ops.Issue) (ops.Issue, error) {
	if strings.TrimSpace(issue.Title) == "" {
		return ops.Issue{}, invalidInput("issue title cannot be empty")
	}
	if issue.Status == "" {
		issue.Status = ops.StatusBacklog
	}
	if !issue.Status.Valid() {
		return ops.Issue{}, invalidInput("unknown status %q", issue.Status)
	}
	now := s.clock.Now()
	issue.ID = "tmp-" + uuid.New().String()
	issue.CreatedAt, issue.UpdatedAt = now, now
	issue.Archived = false

	return s.issues.Create(ctx, issue, func(ctx context.Context, i ops.Issue) (ops.Issue, error) {
		var created ops.Issue
		err := s.db.Insert(ctx, issuesTable, newIssueRow{
			Title:       i.Title,
			Description: i.Description,
			Status:      i.Status,
			Priority:    i.Priority,
			Assignee:    i.Assignee,
			Labels:      i.Labels,
		}, &created)
		return created, err
	})
}

// UpdateIssue edits issue fields. A failed save restores only the
// fields in the patch, so concurrent changes to other fields survive.
func (s *BoardServiceImpl) UpdateIssue(ctx context.Context, id string, patch IssuePatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return invalidInput("issue title cannot be empty")
	}
	now := s.clock.Now()
	return s.issues.Update(ctx, id, "update", func(i *ops.Issue) Undo[ops.Issue] {
		var undo []func(*ops.Issue)
		if patch.Title != nil {
			prev := i.Title
			i.Title = *patch.Title
			undo = append(undo, func(i *ops.Issue) { i.Title = prev })
		}
		if patch.Description != nil {
			prev := i.Description
			i.Description = *patch.Description
			undo = append(undo, func(i *ops.Issue) { i.Description = prev })
		}
		if patch.Priority != nil {
			prev := i.Priority
			i.Priority = *patch.Priority
			undo = append(undo, func(i *ops.Issue) { i.Priority = prev })
		}
		if patch.Assignee != nil {
			prev := i.Assignee
			i.Assignee = *patch.Assignee
			undo = append(undo, func(i *ops.Issue) { i.Assignee = prev })
		}
		if patch.Labels != nil {
			prev := i.Labels
			i.Labels = append([]string(nil), patch.Labels...)
			undo = append(undo, func(i *ops.Issue) { i.Labels = prev })
		}
		prevUpdated := i.UpdatedAt
		i.UpdatedAt = now
		return func(i *ops.Issue) {
			for _, fn := range undo {
				fn(i)
			}
			// a later confirmed change owns updated_at
			if i.UpdatedAt.Equal(now) {
				i.UpdatedAt = prevUpdated
			}
		}
	}, func(ctx context.Context, _ ops.Issue) error {
		return s.db.Update(ctx, issuesTable, id, patch.fields(now), nil)
	})
}

// MoveIssue changes an issue's column. A failed save restores exactly
// the previous status and updated_at.
func (s *BoardServiceImpl) MoveIssue(ctx context.Context, id string, status ops.IssueStatus) error {
	if !status.Valid() {
		return invalidInput("unknown status %q", status)
	}
	if current, ok := s.issues.Get(id); ok && current.Status == status {
		return nil
	}
	now := s.clock.Now()
	return s.issues.Update(ctx, id, "move", func(i *ops.Issue) Undo[ops.Issue] {
		prevStatus, prevUpdated := i.Status, i.UpdatedAt
		i.Status = status
		i.UpdatedAt = now
		return func(i *ops.Issue) {
			i.Status = prevStatus
			i.UpdatedAt = prevUpdated
		}
	}, func(ctx context.Context, _ ops.Issue) error {
		return s.db.Update(ctx, issuesTable, id, map[string]any{"status": status, "updated_at": now}, nil)
	})
}

// DeleteIssue soft-deletes an issue by archiving it
func (s *BoardServiceImpl) DeleteIssue(ctx context.Context, id string) error {
	now := s.clock.Now()
	return s.issues.Remove(ctx, id, "delete", func(ctx context.Context, _ ops.Issue) error {
		return s.db.Update(ctx, issuesTable, id, map[string]any{"archived": true, "updated_at": now}, nil)
	})
}

// Issues returns the visible issues in board order
func (s *BoardServiceImpl) Issues() []ops.Issue {
	return s.issues.Items()
}

// IssuesByStatus groups the visible issues by column
func (s *BoardServiceImpl) IssuesByStatus() map[ops.IssueStatus][]ops.Issue {
	out := make(map[ops.IssueStatus][]ops.Issue, len(ops.BoardColumns))
	for _, c := range ops.BoardColumns {
		out[c] = nil
	}
	for _, i := range s.issues.Items() {
		out[i.Status] = append(out[i.Status], i)
	}
	return out
}

// Subscribe registers fn to run after every board change
func (s *BoardServiceImpl) Subscribe(fn func()) func() {
	return s.issues.Subscribe(fn)
}
