package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/derailed/tview"

	"github.com/nicholasglazer/admin-console/internal/ops"
)

// reloadOps refreshes the data behind an ops view. Load failures are
// reported by the services.
func (a *App) reloadOps(view string) {
	var err error
	switch view {
	case viewBoard:
		if a.svc.Board != nil {
			err = a.svc.Board.LoadIssues(a.ctx)
		}
	case viewQA:
		if a.svc.QA != nil {
			if err = a.svc.QA.LoadSpecs(a.ctx); err == nil {
				err = a.svc.QA.LoadRuns(a.ctx)
			}
		}
	case viewWorkflows:
		if a.svc.Workflows != nil {
			err = a.svc.Workflows.LoadWorkflows(a.ctx, "")
		}
	}
	if err != nil && a.logger != nil {
		a.logger.Printf("reload %s: %v", view, err)
	}
}

// renderOps draws the active ops view; call on the UI goroutine
func (a *App) renderOps() {
	tv, ok := a.views["ops"].(*tview.TextView)
	if !ok {
		return
	}
	now := time.Now()
	switch view := a.view(); view {
	case viewBoard:
		tv.SetTitle(" PM Board ")
		if a.svc.Board == nil {
			tv.SetText("PM board is not configured")
			return
		}
		tv.SetText(formatBoard(a.svc.Board.IssuesByStatus()))
	case viewQA:
		tv.SetTitle(" QA ")
		if a.svc.QA == nil {
			tv.SetText("QA is not configured")
			return
		}
		tv.SetText(formatQA(a.svc.QA.Specs(), a.svc.QA.Runs(), now))
	case viewWorkflows:
		tv.SetTitle(" Workflows ")
		if a.svc.Workflows == nil {
			tv.SetText("Workflow orchestrator is not configured")
			return
		}
		tv.SetText(formatWorkflows(a.svc.Workflows.Workflows(), a.svc.Workflows.Elapsed))
	}
}

// formatBoard lists the issues column by column
func formatBoard(columns map[ops.IssueStatus][]ops.Issue) string {
	var b strings.Builder
	for i, status := range ops.BoardColumns {
		if i > 0 {
			b.WriteByte('\n')
		}
		issues := columns[status]
		fmt.Fprintf(&b, "[yellow::b]%s (%d)[-::-]\n", columnTitle(status), len(issues))
		if len(issues) == 0 {
			b.WriteString("  [gray]empty[-]\n")
			continue
		}
		for _, issue := range issues {
			fmt.Fprintf(&b, "  %-10s %s", tview.Escape(issue.ID), tview.Escape(issue.Title))
			if issue.Assignee != "" {
				fmt.Fprintf(&b, " [gray]@%s[-]", tview.Escape(issue.Assignee))
			}
			if issue.Priority > 0 {
				fmt.Fprintf(&b, " [red]P%d[-]", issue.Priority)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func columnTitle(s ops.IssueStatus) string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatQA lists active specs, then recent runs
func formatQA(specs []ops.TestSpec, runs []ops.TestRun, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow::b]Specs (%d)[-::-]\n", len(specs))
	for _, s := range specs {
		fmt.Fprintf(&b, "  %-10s %s", tview.Escape(s.ID), tview.Escape(s.Name))
		if s.Suite != "" {
			fmt.Fprintf(&b, " [gray](%s)[-]", tview.Escape(s.Suite))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\n[yellow::b]Runs (%d)[-::-]\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&b, "  %-10s [%s]%-9s[-] %d specs", tview.Escape(r.ID), runColor(r.Status), r.Status, len(r.SpecIDs))
		if r.Environment != "" {
			fmt.Fprintf(&b, " on %s", tview.Escape(r.Environment))
		}
		if !r.StartedAt.IsZero() {
			fmt.Fprintf(&b, " [gray]%s ago[-]", shortDuration(now.Sub(r.StartedAt)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func runColor(s ops.RunStatus) string {
	switch s {
	case ops.RunPassed:
		return "green"
	case ops.RunFailed:
		return "red"
	case ops.RunRunning:
		return "yellow"
	}
	return "gray"
}

// formatWorkflows lists workflow runs with their elapsed time
func formatWorkflows(runs []ops.WorkflowRun, elapsed func(ops.WorkflowRun) time.Duration) string {
	if len(runs) == 0 {
		return "No workflows"
	}
	var b strings.Builder
	for _, w := range runs {
		color := "green"
		if w.Status.Terminal() {
			color = "gray"
		}
		fmt.Fprintf(&b, "[%s]%-10s[-] %-28s %-18s %s\n",
			color, w.Status, tview.Escape(w.ID), tview.Escape(w.Type), shortDuration(elapsed(w)))
	}
	return b.String()
}

// shortDuration renders d as 45s, 12m or 3h05m
func shortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
