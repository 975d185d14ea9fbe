package services

import (
	"context"
	"net/url"
	"time"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/mail"
	"github.com/nicholasglazer/admin-console/internal/ops"
)

// MailBackend is the remote mail API the mailbox state talks to
type MailBackend interface {
	Accounts(ctx context.Context) ([]mail.Account, error)
	Mailboxes(ctx context.Context, accountID string) ([]mail.Mailbox, error)
	Threads(ctx context.Context, accountID, mailbox string, page, limit int) ([]mail.Thread, error)
	Message(ctx context.Context, uid uint32, accountID, mailbox string) (*mail.Message, error)
	Actions(ctx context.Context, req backend.ActionRequest) error
	Send(ctx context.Context, draft mail.Draft) (backend.SendResult, error)
}

// RecordStore persists PM and QA records on the managed database
type RecordStore interface {
	RPC(ctx context.Context, fn string, params any, out any) error
	Select(ctx context.Context, table string, query url.Values, out any) error
	Insert(ctx context.Context, table string, row any, out any) error
	Update(ctx context.Context, table, id string, patch any, out any) error
	Delete(ctx context.Context, table, id string) error
}

// WorkflowOrchestrator starts and controls asynchronous automation
type WorkflowOrchestrator interface {
	ListWorkflows(ctx context.Context, status ops.WorkflowStatus) ([]ops.WorkflowRun, error)
	StartWorkflow(ctx context.Context, req backend.StartWorkflowRequest) (*ops.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string) error
	TerminateWorkflow(ctx context.Context, workflowID, reason string) error
	SignalWorkflow(ctx context.Context, workflowID, signal string, payload any) error
	StartTestRun(ctx context.Context, req backend.StartTestRunRequest) (*ops.TestRun, error)
}

// PreferenceRepository stores client-side preferences
type PreferenceRepository interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	SectionStates(ctx context.Context) (map[string]bool, error)
	SetSectionState(ctx context.Context, sectionID string, expanded bool) error
}

// Notifier surfaces transient user-facing messages
type Notifier interface {
	Info(message string) string
	Success(message string) string
	Warning(message string) string
	Error(message string) string
}

// ToastService is the session's notification queue
type ToastService interface {
	Notifier
	Show(level ToastLevel, message string, duration time.Duration) string
	Dismiss(id string) bool
	Clear()
	Toasts() []Toast
	Subscribe(fn func([]Toast)) (unsubscribe func())
}

// MailboxService owns accounts, mailboxes, threads, the open message,
// filters and the compose draft
type MailboxService interface {
	InitAccounts(accounts []mail.Account)
	LoadAccounts(ctx context.Context)
	SwitchAccount(ctx context.Context, accountID string)
	LoadMailboxes(ctx context.Context)
	LoadAllMailboxes(ctx context.Context)
	SelectMailbox(ctx context.Context, path string)
	LoadThreads(ctx context.Context, page ThreadPage)
	SelectThread(ctx context.Context, uid uint32)
	ClearSelection()
	ToggleStar(ctx context.Context, uid uint32)
	MarkAsRead(ctx context.Context, uids []uint32, read bool)
	MoveThreads(ctx context.Context, uids []uint32, destination string)
	DeleteThreads(ctx context.Context, uids []uint32)
	ArchiveThreads(ctx context.Context, uids []uint32)
	OpenCompose(draft *mail.Draft)
	CloseCompose()
	UpdateDraft(patch mail.DraftPatch)
	SendDraft(ctx context.Context) backend.SendResult
	SelectNextThread(ctx context.Context)
	SelectPrevThread(ctx context.Context)
	GoToSpecial(ctx context.Context, use mail.SpecialUse) bool
	Refresh(ctx context.Context)

	SetSearch(query string)
	SetUnreadOnly(on bool)
	SetStarredOnly(on bool)
	ClearFilters()

	Accounts() []mail.Account
	ActiveAccount() (mail.Account, bool)
	Mailboxes() []mail.Mailbox
	SpecialMailboxes() []mail.Mailbox
	CustomMailboxes() []mail.Mailbox
	SpecialMailbox(use mail.SpecialUse) (mail.Mailbox, bool)
	CurrentMailbox() string
	TotalUnread() int
	Threads() []mail.Thread
	FilteredThreads() []mail.Thread
	UnreadCount() int
	SelectedUID() (uint32, bool)
	Message() *mail.Message
	Filter() mail.Filter
	Compose() ComposeState
	Loading() bool
	Subscribe(fn func()) (unsubscribe func())
}

// BoardService is the PM board state
type BoardService interface {
	LoadIssues(ctx context.Context) error
	CreateIssue(ctx context.Context, issue ops.Issue) (ops.Issue, error)
	UpdateIssue(ctx context.Context, id string, patch IssuePatch) error
	MoveIssue(ctx context.Context, id string, status ops.IssueStatus) error
	DeleteIssue(ctx context.Context, id string) error
	Issues() []ops.Issue
	IssuesByStatus() map[ops.IssueStatus][]ops.Issue
	Subscribe(fn func()) (unsubscribe func())
}

// QAService is the QA spec and run state
type QAService interface {
	LoadSpecs(ctx context.Context) error
	CreateSpec(ctx context.Context, spec ops.TestSpec) (ops.TestSpec, error)
	UpdateSpec(ctx context.Context, id string, patch SpecPatch) error
	ArchiveSpec(ctx context.Context, id string) error
	LoadRuns(ctx context.Context) error
	StartRun(ctx context.Context, specIDs []string, environment string) (*ops.TestRun, error)
	Specs() []ops.TestSpec
	Runs() []ops.TestRun
	Subscribe(fn func()) (unsubscribe func())
}

// WorkflowService tracks orchestrator workflow runs
type WorkflowService interface {
	LoadWorkflows(ctx context.Context, status ops.WorkflowStatus) error
	StartWorkflow(ctx context.Context, req backend.StartWorkflowRequest) (*ops.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string) error
	TerminateWorkflow(ctx context.Context, workflowID, reason string) error
	SignalWorkflow(ctx context.Context, workflowID, signal string, payload any) error
	Workflows() []ops.WorkflowRun
	Elapsed(w ops.WorkflowRun) time.Duration
	Subscribe(fn func()) (unsubscribe func())
}

// PreferenceService persists theme and navigation layout choices
type PreferenceService interface {
	Theme(ctx context.Context) string
	SetTheme(ctx context.Context, name string) error
	SectionExpanded(ctx context.Context, sectionID string) bool
	SetSectionExpanded(ctx context.Context, sectionID string, expanded bool) error
}
