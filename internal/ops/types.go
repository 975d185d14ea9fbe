package ops

import "time"

// IssueStatus is the board column an issue sits in
type IssueStatus string

const (
	StatusBacklog    IssueStatus = "backlog"
	StatusTodo       IssueStatus = "todo"
	StatusInProgress IssueStatus = "in_progress"
	StatusReview     IssueStatus = "review"
	StatusDone       IssueStatus = "done"
)

// BoardColumns is the left-to-right column order of the PM board
var BoardColumns = []IssueStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Valid reports whether s is a known column
func (s IssueStatus) Valid() bool {
	for _, c := range BoardColumns {
		if c == s {
			return true
		}
	}
	return false
}

// Issue is a PM board task
type Issue struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      IssueStatus `json:"status"`
	Priority    int         `json:"priority"`
	Assignee    string      `json:"assignee,omitempty"`
	Labels      []string    `json:"labels,omitempty"`
	Archived    bool        `json:"archived"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TestSpec is a QA test specification
type TestSpec struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Suite       string    `json:"suite,omitempty"`
	Steps       []string  `json:"steps,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunStatus is the lifecycle state of a QA run
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunPassed    RunStatus = "passed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// TestRun is one execution of a set of specs, driven by a workflow
type TestRun struct {
	ID          string     `json:"id"`
	SpecIDs     []string   `json:"spec_ids"`
	Environment string     `json:"environment,omitempty"`
	Status      RunStatus  `json:"status"`
	WorkflowID  string     `json:"workflow_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// WorkflowStatus mirrors the orchestrator's execution status
type WorkflowStatus string

const (
	WorkflowRunning    WorkflowStatus = "running"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowFailed     WorkflowStatus = "failed"
	WorkflowCanceled   WorkflowStatus = "canceled"
	WorkflowTerminated WorkflowStatus = "terminated"
	WorkflowTimedOut   WorkflowStatus = "timed_out"
)

// Terminal reports whether the workflow can no longer change state
func (s WorkflowStatus) Terminal() bool {
	return s != WorkflowRunning && s != ""
}

// WorkflowRun is one execution tracked by the orchestrator
type WorkflowRun struct {
	ID        string         `json:"workflowId"`
	RunID     string         `json:"runId"`
	Type      string         `json:"type"`
	TaskQueue string         `json:"taskQueue,omitempty"`
	Status    WorkflowStatus `json:"status"`
	StartTime time.Time      `json:"startTime"`
	CloseTime *time.Time     `json:"closeTime,omitempty"`
}
