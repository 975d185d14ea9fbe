package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/mail"
	"github.com/nicholasglazer/admin-console/internal/ops"
	"github.com/nicholasglazer/admin-console/internal/services"
)

// commandNames are the canonical commands, used for completion
var commandNames = []string{
	"account", "archive", "archive-spec", "assign", "board", "cancel",
	"clear", "compose", "delete-issue", "drafts", "folders", "help",
	"inbox", "issue", "mail", "mailbox", "move", "qa", "quit", "refresh",
	"run", "search", "sent", "signal", "spec", "starred", "start",
	"terminate", "theme", "trash", "unread", "workflows",
}

var commandAliases = map[string]string{
	"q":   "quit",
	"h":   "help",
	"mb":  "mailbox",
	"wf":  "workflows",
	"s":   "search",
	"acc": "account",
}

// parseCommand splits a command line into its canonical name and args
func parseCommand(input string) (string, []string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", nil
	}
	name := strings.ToLower(parts[0])
	if alias, ok := commandAliases[name]; ok {
		name = alias
	}
	return name, parts[1:]
}

// suggestCommand completes the first word of buffer
func suggestCommand(buffer string) string {
	if buffer == "" || strings.Contains(buffer, " ") {
		return ""
	}
	prefix := strings.ToLower(buffer)
	matches := make([]string, 0, 4)
	for _, name := range commandNames {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

// showCommandBar displays the command bar and enters command mode
func (a *App) showCommandBar() {
	a.cmdMode = true
	a.cmdHistoryIndex = len(a.cmdHistory)

	input := tview.NewInputField()
	input.SetLabel(": ")
	input.SetFieldWidth(0)
	input.SetBorder(false)

	hint := tview.NewTextView()
	hint.SetTextColor(tcell.ColorGray)

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			cmd := input.GetText()
			a.hideCommandBar()
			a.executeCommand(cmd)
		}
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyEscape:
			a.hideCommandBar()
			return nil
		case tcell.KeyTab:
			if s := suggestCommand(strings.TrimSpace(input.GetText())); s != "" {
				input.SetText(s + " ")
			}
			return nil
		case tcell.KeyUp:
			if a.cmdHistoryIndex > 0 {
				a.cmdHistoryIndex--
				input.SetText(a.cmdHistory[a.cmdHistoryIndex])
			}
			return nil
		case tcell.KeyDown:
			if a.cmdHistoryIndex < len(a.cmdHistory)-1 {
				a.cmdHistoryIndex++
				input.SetText(a.cmdHistory[a.cmdHistoryIndex])
			} else {
				a.cmdHistoryIndex = len(a.cmdHistory)
				input.SetText("")
			}
			return nil
		}
		return ev
	})
	input.SetChangedFunc(func(text string) {
		cur := strings.TrimSpace(text)
		if s := suggestCommand(cur); s != "" && s != cur {
			hint.SetText("→ " + s)
			return
		}
		hint.SetText("")
	})

	row := tview.NewFlex().SetDirection(tview.FlexColumn)
	row.AddItem(input, 0, 3, true)
	row.AddItem(hint, 0, 1, false)
	a.views["cmdInput"] = input
	a.showBar(" Command ", row, input)
}

// hideCommandBar hides the command bar and exits command mode
func (a *App) hideCommandBar() {
	a.cmdMode = false
	delete(a.views, "cmdInput")
	a.hideBar()
}

// showSearchBar opens the live search filter
func (a *App) showSearchBar() {
	a.searchMode = true
	input := tview.NewInputField()
	input.SetLabel("/ ")
	input.SetFieldWidth(0)
	input.SetText(a.svc.Mailbox.Filter().Query)
	input.SetChangedFunc(func(text string) {
		a.svc.Mailbox.SetSearch(text)
	})
	input.SetDoneFunc(func(key tcell.Key) {
		a.hideSearchBar()
	})
	a.showBar(" Search ", input, input)
}

// hideSearchBar closes the search bar; the query stays applied
func (a *App) hideSearchBar() {
	a.searchMode = false
	a.hideBar()
}

// addToHistory records a command, skipping consecutive duplicates
func (a *App) addToHistory(cmd string) {
	if cmd == "" {
		return
	}
	if n := len(a.cmdHistory); n > 0 && a.cmdHistory[n-1] == cmd {
		return
	}
	a.cmdHistory = append(a.cmdHistory, cmd)
	if len(a.cmdHistory) > 50 {
		a.cmdHistory = a.cmdHistory[len(a.cmdHistory)-50:]
	}
}

// executeCommand runs one command line on the UI goroutine. Network work
// is started in the background.
func (a *App) executeCommand(cmd string) {
	cmd = strings.TrimSpace(cmd)
	name, args := parseCommand(cmd)
	if name == "" {
		return
	}
	a.addToHistory(cmd)
	if a.logger != nil {
		a.logger.Printf("command: %s", cmd)
	}
	if !a.allowed(commandCapabilities, name) {
		return
	}

	mb := a.svc.Mailbox
	switch name {
	case "inbox", "sent", "drafts", "trash", "archive":
		a.switchView(viewMail)
		use := specialForCommand(name)
		go func() {
			if !mb.GoToSpecial(a.ctx, use) {
				a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("No %s folder for this account", use.Label()))
			}
		}()
	case "mailbox":
		if len(args) == 0 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: mailbox <path>")
			return
		}
		a.switchView(viewMail)
		path := strings.Join(args, " ")
		go mb.SelectMailbox(a.ctx, path)
	case "account":
		a.executeAccountCommand(args)
	case "search":
		mb.SetSearch(strings.Join(args, " "))
	case "unread":
		mb.SetUnreadOnly(!mb.Filter().UnreadOnly)
	case "starred":
		mb.SetStarredOnly(!mb.Filter().StarredOnly)
	case "clear":
		mb.ClearFilters()
	case "refresh":
		if v := a.view(); v != viewMail {
			go a.reloadOps(v)
			return
		}
		go mb.Refresh(a.ctx)
	case "compose":
		a.switchView(viewMail)
		mb.OpenCompose(nil)
	case "folders":
		a.toggleFolders()
	case "theme":
		a.executeThemeCommand(args)
	case "mail":
		a.switchView(viewMail)
	case "board":
		a.switchView(viewBoard)
	case "qa":
		a.switchView(viewQA)
	case "workflows":
		a.switchView(viewWorkflows)
	case "issue", "move", "assign", "delete-issue":
		a.executeBoardCommand(name, args)
	case "spec", "archive-spec", "run":
		a.executeQACommand(name, args)
	case "start", "cancel", "terminate", "signal":
		a.executeWorkflowCommand(name, args)
	case "help":
		a.switchView(viewMail)
		a.toggleHelp()
	case "quit":
		a.quit()
	default:
		a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("Unknown command: %s", name))
	}
}

func specialForCommand(name string) mail.SpecialUse {
	switch name {
	case "sent":
		return mail.SpecialSent
	case "drafts":
		return mail.SpecialDrafts
	case "trash":
		return mail.SpecialTrash
	case "archive":
		return mail.SpecialArchive
	}
	return mail.SpecialInbox
}

// executeAccountCommand switches account by id or label, or lists them
func (a *App) executeAccountCommand(args []string) {
	accounts := a.svc.Mailbox.Accounts()
	if len(args) == 0 {
		names := make([]string, 0, len(accounts))
		for _, acct := range accounts {
			names = append(names, acct.ID)
		}
		a.errorHandler.ShowInfo(a.ctx, "Accounts: "+strings.Join(names, ", "))
		return
	}
	want := strings.Join(args, " ")
	for _, acct := range accounts {
		if acct.ID == want || strings.EqualFold(acct.Label, want) || strings.EqualFold(acct.Email, want) {
			a.switchView(viewMail)
			go a.svc.Mailbox.SwitchAccount(a.ctx, acct.ID)
			return
		}
	}
	a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("Unknown account: %s", want))
}

// executeThemeCommand lists themes or applies and stores one
func (a *App) executeThemeCommand(args []string) {
	if len(args) == 0 {
		names, err := a.themeLoader.ListAvailableThemes()
		if err != nil {
			a.errorHandler.HandleError(a.ctx, err, "Failed to list themes")
			return
		}
		a.errorHandler.ShowInfo(a.ctx, "Themes: "+strings.Join(names, ", "))
		return
	}
	name := args[0]
	colors, err := a.themeLoader.LoadTheme(name)
	if err != nil {
		a.errorHandler.HandleError(a.ctx, err, fmt.Sprintf("Theme %s not available", name))
		return
	}
	a.applyTheme(colors)
	if a.svc.Preferences != nil {
		if err := a.svc.Preferences.SetTheme(a.ctx, name); err != nil {
			a.errorHandler.HandleError(a.ctx, err, "Failed to save theme")
			return
		}
	}
	a.errorHandler.ShowSuccess(a.ctx, fmt.Sprintf("Theme %s applied", name))
}

func (a *App) executeBoardCommand(name string, args []string) {
	board := a.svc.Board
	if board == nil {
		a.errorHandler.ShowWarning(a.ctx, "PM board is not available")
		return
	}
	switch name {
	case "issue":
		if len(args) == 0 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: issue <title>")
			return
		}
		issue := ops.Issue{Title: strings.Join(args, " "), Status: ops.StatusBacklog}
		a.background(func() error {
			_, err := board.CreateIssue(a.ctx, issue)
			return err
		})
	case "move":
		if len(args) != 2 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: move <issue-id> <status>")
			return
		}
		a.background(func() error { return board.MoveIssue(a.ctx, args[0], ops.IssueStatus(args[1])) })
	case "assign":
		if len(args) != 2 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: assign <issue-id> <assignee>")
			return
		}
		assignee := args[1]
		a.background(func() error {
			return board.UpdateIssue(a.ctx, args[0], services.IssuePatch{Assignee: &assignee})
		})
	case "delete-issue":
		if len(args) != 1 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: delete-issue <issue-id>")
			return
		}
		a.background(func() error { return board.DeleteIssue(a.ctx, args[0]) })
	}
}

func (a *App) executeQACommand(name string, args []string) {
	qa := a.svc.QA
	if qa == nil {
		a.errorHandler.ShowWarning(a.ctx, "QA is not available")
		return
	}
	switch name {
	case "spec":
		if len(args) == 0 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: spec <name>")
			return
		}
		spec := ops.TestSpec{Name: strings.Join(args, " ")}
		a.background(func() error {
			_, err := qa.CreateSpec(a.ctx, spec)
			return err
		})
	case "archive-spec":
		if len(args) != 1 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: archive-spec <spec-id>")
			return
		}
		a.background(func() error { return qa.ArchiveSpec(a.ctx, args[0]) })
	case "run":
		specIDs, env := parseRunArgs(args)
		a.background(func() error {
			_, err := qa.StartRun(a.ctx, specIDs, env)
			return err
		})
	}
}

// parseRunArgs splits "run [env=<name>] <spec-id>..." arguments
func parseRunArgs(args []string) (specIDs []string, environment string) {
	for _, arg := range args {
		if v, ok := strings.CutPrefix(arg, "env="); ok {
			environment = v
			continue
		}
		specIDs = append(specIDs, arg)
	}
	return specIDs, environment
}

func (a *App) executeWorkflowCommand(name string, args []string) {
	wf := a.svc.Workflows
	if wf == nil {
		a.errorHandler.ShowWarning(a.ctx, "Workflows are not available")
		return
	}
	if len(args) == 0 {
		a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("Usage: %s <id>", name))
		return
	}
	id := args[0]
	switch name {
	case "start":
		req := backend.StartWorkflowRequest{Type: id}
		if len(args) > 1 {
			req.TaskQueue = args[1]
		}
		a.background(func() error {
			_, err := wf.StartWorkflow(a.ctx, req)
			return err
		})
	case "cancel":
		a.background(func() error { return wf.CancelWorkflow(a.ctx, id) })
	case "terminate":
		reason := strings.Join(args[1:], " ")
		a.background(func() error { return wf.TerminateWorkflow(a.ctx, id, reason) })
	case "signal":
		if len(args) < 2 {
			a.errorHandler.ShowWarning(a.ctx, "Usage: signal <workflow-id> <signal>")
			return
		}
		a.background(func() error { return wf.SignalWorkflow(a.ctx, id, args[1], nil) })
	}
}

// background runs an ops call off the UI goroutine. Backend failures are
// already reported by the services; rejected input is reported here.
func (a *App) background(fn func() error) {
	go func() {
		err := fn()
		if err == nil {
			return
		}
		if a.logger != nil {
			a.logger.Printf("command failed: %v", err)
		}
		if isUserError(err) {
			a.errorHandler.ShowWarning(a.ctx, err.Error())
		}
	}()
}

func isUserError(err error) bool {
	return errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrWorkflowClosed)
}
