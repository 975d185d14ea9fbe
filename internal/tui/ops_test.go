package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nicholasglazer/admin-console/internal/ops"
)

func TestFormatBoard(t *testing.T) {
	out := formatBoard(map[ops.IssueStatus][]ops.Issue{
		ops.StatusTodo:       {{ID: "1", Title: "Rotate keys", Assignee: "sam", Priority: 2}},
		ops.StatusInProgress: {{ID: "2", Title: "Fix [flaky] test"}},
	})

	var order []int
	for _, title := range []string{"Backlog (0)", "Todo (1)", "In Progress (1)", "Review (0)", "Done (0)"} {
		i := strings.Index(out, title)
		assert.GreaterOrEqual(t, i, 0, "missing column %s", title)
		order = append(order, i)
	}
	assert.IsIncreasing(t, order)
	assert.Contains(t, out, "Rotate keys [gray]@sam[-] [red]P2[-]")
	assert.Contains(t, out, "Fix [flaky[] test")
	assert.Equal(t, 3, strings.Count(out, "empty"))
}

func TestColumnTitle(t *testing.T) {
	assert.Equal(t, "In Progress", columnTitle(ops.StatusInProgress))
	assert.Equal(t, "Backlog", columnTitle(ops.StatusBacklog))
}

func TestFormatQA(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := formatQA(
		[]ops.TestSpec{{ID: "s1", Name: "Login", Suite: "auth"}},
		[]ops.TestRun{
			{ID: "r1", SpecIDs: []string{"s1", "s2"}, Environment: "staging", Status: ops.RunFailed, StartedAt: now.Add(-90 * time.Second)},
			{ID: "r2", SpecIDs: []string{"s1"}, Status: ops.RunQueued},
		},
		now,
	)

	assert.Contains(t, out, "Specs (1)")
	assert.Contains(t, out, "Login [gray](auth)[-]")
	assert.Contains(t, out, "Runs (2)")
	assert.Contains(t, out, "[red]failed")
	assert.Contains(t, out, "2 specs on staging [gray]1m ago[-]")
	assert.Contains(t, out, "[gray]queued")
}

func TestFormatWorkflows(t *testing.T) {
	assert.Equal(t, "No workflows", formatWorkflows(nil, nil))

	runs := []ops.WorkflowRun{
		{ID: "wf-1", Type: "nightly-qa", Status: ops.WorkflowRunning},
		{ID: "wf-2", Type: "backfill", Status: ops.WorkflowCompleted},
	}
	elapsed := map[string]time.Duration{"wf-1": 3*time.Hour + 5*time.Minute, "wf-2": 42 * time.Second}
	out := formatWorkflows(runs, func(w ops.WorkflowRun) time.Duration { return elapsed[w.ID] })

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "[green]running"))
	assert.True(t, strings.HasSuffix(lines[0], "3h05m"))
	assert.True(t, strings.HasPrefix(lines[1], "[gray]completed"))
	assert.True(t, strings.HasSuffix(lines[1], "42s"))
}

func TestShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{59 * time.Second, "59s"},
		{12 * time.Minute, "12m"},
		{90 * time.Minute, "1h30m"},
		{26 * time.Hour, "26h00m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shortDuration(tt.d))
	}
}

func TestNextOpsView(t *testing.T) {
	assert.Equal(t, viewQA, nextOpsView(viewBoard))
	assert.Equal(t, viewWorkflows, nextOpsView(viewQA))
	assert.Equal(t, viewBoard, nextOpsView(viewWorkflows))
	assert.Equal(t, viewBoard, nextOpsView(viewMail))
}
