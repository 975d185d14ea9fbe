package tui

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"

	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/mail"
	"github.com/nicholasglazer/admin-console/internal/render"
	"github.com/nicholasglazer/admin-console/internal/services"
	"github.com/nicholasglazer/admin-console/pkg/auth"
)

const (
	viewMail      = "mail"
	viewBoard     = "board"
	viewQA        = "qa"
	viewWorkflows = "workflows"
)

// customFoldersSection is the preference key of the collapsible folder
// list
const customFoldersSection = "mail.custom_folders"

// Mailbox is the mailbox state the console drives
type Mailbox interface {
	services.MailboxService
	ComposeOpen() bool
}

// Services are the state containers rendered by the console. Mailbox and
// Toasts are required; the ops services are optional.
type Services struct {
	Mailbox     Mailbox
	Toasts      services.ToastService
	Board       services.BoardService
	QA          services.QAService
	Workflows   services.WorkflowService
	Preferences services.PreferenceService
	// Access is what the session was granted; nil denies every ops view
	Access auth.Capabilities
}

// App encapsulates the terminal UI
type App struct {
	*tview.Application
	Pages  *tview.Pages
	Config *config.Config
	Keys   config.KeyBindings

	svc    Services
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	views        map[string]tview.Primitive
	frames       map[string]*tview.Box
	currentView  string
	showHelp     bool
	cmdMode      bool
	searchMode   bool
	composeShown string // draft id on screen
	lastMessage  uint32
	rowUIDs      []uint32
	mailboxPaths []string
	screenWidth  int

	// Command history
	cmdHistory      []string
	cmdHistoryIndex int

	navigator      *Navigator
	errorHandler   *ErrorHandler
	threadRenderer *render.ThreadRenderer
	themeLoader    *config.ThemeLoader
	currentTheme   *config.ColorsConfig
	unsubscribe    []func()

	logger  *log.Logger
	logFile *os.File
}

// NewApp creates the console. A nil logger opens the file logger from
// the configuration.
func NewApp(cfg *config.Config, svc Services, logger *log.Logger) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	themesDir := cfg.ThemesDir
	if themesDir == "" {
		themesDir = config.DefaultThemesDir()
	}

	app := &App{
		Application:     tview.NewApplication(),
		Pages:           tview.NewPages(),
		Config:          cfg,
		Keys:            cfg.Keys,
		svc:             svc,
		ctx:             ctx,
		cancel:          cancel,
		views:           make(map[string]tview.Primitive),
		frames:          make(map[string]*tview.Box),
		currentView:     viewMail,
		cmdHistory:      make([]string, 0),
		cmdHistoryIndex: -1,
		screenWidth:     120,
		threadRenderer:  render.NewThreadRenderer(),
		themeLoader:     config.NewThemeLoader(themesDir),
		logger:          logger,
	}

	// Initialize file logger (logging.go)
	app.initLogger()

	app.initComponents()
	app.initViews()

	app.errorHandler = NewErrorHandler(app.Application, svc.Toasts,
		app.views["status"].(*tview.TextView), app.views["toasts"].(*tview.TextView), app.logger)
	app.errorHandler.SetBaseline(app.statusBaseline)
	app.errorHandler.SetResize(app.resizeToasts)

	app.applyTheme(app.initialTheme())

	app.navigator = NewNavigator(ctx, svc.Mailbox, appFocus{app}, Callbacks{
		Reply:       func(uid uint32) { app.openReply(uid, false) },
		ReplyAll:    func(uid uint32) { app.openReply(uid, true) },
		Forward:     app.openForward,
		Compose:     func() { svc.Mailbox.OpenCompose(nil) },
		FocusSearch: app.showSearchBar,
		Help:        app.toggleHelp,
	}, cfg.Keys, nil)
	app.navigator.SetLogger(app.logger)

	app.SetInputCapture(app.handleKey)

	// Re-render rows on resize without network calls
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		w, _ := screen.Size()
		if w != app.screenWidth {
			app.screenWidth = w
			app.renderThreads()
		}
		return false
	})

	return app
}

// initialTheme loads the stored theme choice, falling back to defaults
func (a *App) initialTheme() *config.ColorsConfig {
	name := a.Config.Theme
	if a.svc.Preferences != nil {
		name = a.svc.Preferences.Theme(a.ctx)
	}
	colors, err := a.themeLoader.LoadTheme(name)
	if err != nil {
		if a.logger != nil {
			a.logger.Printf("load theme %q: %v", name, err)
		}
		return config.DefaultColors()
	}
	return colors
}

// applyTheme applies colors to every view; call on the UI goroutine
func (a *App) applyTheme(colors *config.ColorsConfig) {
	if colors == nil {
		colors = config.DefaultColors()
	}
	a.currentTheme = colors
	a.threadRenderer.UpdateFromConfig(colors)
	a.errorHandler.SetColors(colors.Toast)

	bg, fg := colors.Body.BgColor.Color(), colors.Body.FgColor.Color()
	for _, box := range a.frames {
		box.SetBackgroundColor(bg)
		box.SetBorderColor(colors.Frame.BorderColor.Color())
		box.SetTitleColor(colors.Frame.TitleColor.Color())
	}
	for _, name := range []string{"header", "text", "status", "toasts"} {
		if tv, ok := a.views[name].(*tview.TextView); ok {
			tv.SetBackgroundColor(bg)
			tv.SetTextColor(fg)
		}
	}
	if list, ok := a.views["mailboxes"].(*tview.List); ok {
		list.SetMainTextColor(fg)
		list.SetSelectedBackgroundColor(colors.Frame.SelectionColor.Color())
	}
	a.updateFocusIndicators()
	a.renderThreads()
}

// Run starts the TUI application and blocks until it stops
func (a *App) Run() error {
	a.SetRoot(a.Pages, true)
	a.subscribe()
	defer a.shutdown()

	go a.loadInitial()

	return a.Application.Run()
}

func (a *App) subscribe() {
	a.unsubscribe = append(a.unsubscribe,
		a.errorHandler.Attach(),
		// Subscribers may run on the UI goroutine; never block it
		a.svc.Mailbox.Subscribe(func() { go a.QueueUpdateDraw(a.refreshMailView) }),
	)
	opsChanged := func() { go a.QueueUpdateDraw(a.renderOps) }
	if a.svc.Board != nil {
		a.unsubscribe = append(a.unsubscribe, a.svc.Board.Subscribe(opsChanged))
	}
	if a.svc.QA != nil {
		a.unsubscribe = append(a.unsubscribe, a.svc.QA.Subscribe(opsChanged))
	}
	if a.svc.Workflows != nil {
		a.unsubscribe = append(a.unsubscribe, a.svc.Workflows.Subscribe(opsChanged))
	}
}

func (a *App) loadInitial() {
	mb := a.svc.Mailbox
	mb.LoadAccounts(a.ctx)
	if len(mb.Accounts()) > 1 {
		mb.LoadAllMailboxes(a.ctx)
	} else {
		mb.LoadMailboxes(a.ctx)
	}
	mb.LoadThreads(a.ctx, services.ThreadPage{})
}

func (a *App) shutdown() {
	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.unsubscribe = nil
	a.cancel()
	a.closeLogger()
}

// quit stops the application
func (a *App) quit() {
	a.cancel()
	a.Stop()
}

func (a *App) view() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentView
}

// handleKey is the application-wide input capture
func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if a.view() != viewMail {
		return a.handleOpsKey(ev)
	}

	wasPending := a.navigator.ChordPending()
	consumed := a.navigator.HandleKey(ev)
	a.refreshStatus()
	if !wasPending && a.navigator.ChordPending() {
		// Clear the chord hint once the window closes
		time.AfterFunc(a.Config.GetChordTimeout()+10*time.Millisecond, func() {
			a.QueueUpdateDraw(a.refreshStatus)
		})
	}
	if consumed {
		return nil
	}

	if (appFocus{a}).Focused().AcceptsText() || a.svc.Mailbox.ComposeOpen() {
		return ev
	}
	switch {
	case ev.Key() == tcell.KeyTab:
		a.cycleFocus()
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == ':':
		a.showCommandBar()
		return nil
	case isKey(ev, a.Keys.Quit):
		a.quit()
		return nil
	}
	return ev
}

func (a *App) handleOpsKey(ev *tcell.EventKey) *tcell.EventKey {
	if (appFocus{a}).Focused().AcceptsText() {
		return ev
	}
	switch {
	case ev.Key() == tcell.KeyEscape, isKey(ev, a.Keys.Quit):
		a.switchView(viewMail)
		return nil
	case ev.Key() == tcell.KeyTab:
		a.switchView(nextOpsView(a.view()))
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == ':':
		a.showCommandBar()
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
		go a.reloadOps(a.view())
		return nil
	}
	return ev
}

func isKey(ev *tcell.EventKey, binding string) bool {
	r, ok := singleRune(binding)
	return ok && ev.Key() == tcell.KeyRune && ev.Rune() == r
}

func nextOpsView(v string) string {
	switch v {
	case viewBoard:
		return viewQA
	case viewQA:
		return viewWorkflows
	}
	return viewBoard
}

// switchView shows the mail view or one of the ops views
func (a *App) switchView(name string) {
	if name != viewMail && !a.allowed(viewCapabilities, name) {
		return
	}
	a.mu.Lock()
	a.currentView = name
	a.mu.Unlock()

	if name == viewMail {
		a.navigator.Enable()
		a.Pages.SwitchToPage("main")
		a.restoreFocus()
		a.refreshStatus()
		return
	}
	a.navigator.Disable()
	a.Pages.SwitchToPage("ops")
	a.SetFocus(a.views["ops"])
	a.renderOps()
	a.refreshStatus()
	go a.reloadOps(name)
}

// cycleFocus moves focus between the mailbox, thread and message panes
func (a *App) cycleFocus() {
	order := []string{"mailboxes", "list", "text"}
	cur := a.GetFocus()
	next := 0
	for i, name := range order {
		if a.views[name] == cur {
			next = (i + 1) % len(order)
			break
		}
	}
	a.SetFocus(a.views[order[next]])
	a.updateFocusIndicators()
}

func (a *App) restoreFocus() {
	a.SetFocus(a.views["list"])
	a.updateFocusIndicators()
}

// updateFocusIndicators highlights the border of the focused pane
func (a *App) updateFocusIndicators() {
	if a.currentTheme == nil {
		return
	}
	focus := a.GetFocus()
	for _, name := range []string{"mailboxes", "list", "textContainer"} {
		box, ok := a.frames[name]
		if !ok {
			continue
		}
		color := a.currentTheme.Frame.BorderColor.Color()
		if a.views[name] == focus || (name == "textContainer" && a.views["text"] == focus) {
			color = a.currentTheme.Frame.FocusColor.Color()
		}
		box.SetBorderColor(color)
	}
}

// appFocus adapts the application focus for the navigator
type appFocus struct {
	a *App
}

func (f appFocus) Focused() FocusKind {
	switch f.a.GetFocus().(type) {
	case nil:
		return FocusNone
	case *tview.InputField:
		return FocusTextInput
	case *tview.Form, *tview.Button, *tview.Checkbox, *tview.DropDown:
		return FocusEditable
	case *tview.Table, *tview.List:
		return FocusList
	case *tview.TextView:
		return FocusMessage
	}
	return FocusNone
}

// Blur closes the open input bar and returns focus to the thread list
func (f appFocus) Blur() {
	a := f.a
	switch {
	case a.cmdMode:
		a.hideCommandBar()
	case a.searchMode:
		a.hideSearchBar()
	default:
		a.restoreFocus()
	}
}

// refreshMailView re-renders the mail panes from the mailbox state; call
// on the UI goroutine
func (a *App) refreshMailView() {
	a.renderMailboxes()
	a.renderThreads()
	a.renderMessage()
	a.syncCompose()
	a.refreshStatus()
}

// renderMailboxes lists special-use mailboxes first, then folders
func (a *App) renderMailboxes() {
	list, ok := a.views["mailboxes"].(*tview.List)
	if !ok {
		return
	}
	mb := a.svc.Mailbox
	current := mb.CurrentMailbox()
	boxes := mb.SpecialMailboxes()
	expanded := true
	if a.svc.Preferences != nil {
		expanded = a.svc.Preferences.SectionExpanded(a.ctx, customFoldersSection)
	}
	custom := mb.CustomMailboxes()

	list.Clear()
	a.mailboxPaths = a.mailboxPaths[:0]
	selected := -1
	add := func(m mail.Mailbox) {
		if m.Path == current {
			selected = len(a.mailboxPaths)
		}
		list.AddItem(mailboxLabel(m, m.Path == current), "", 0, nil)
		a.mailboxPaths = append(a.mailboxPaths, m.Path)
	}
	for _, m := range boxes {
		add(m)
	}
	if len(custom) > 0 {
		list.AddItem(folderHeader(len(custom), expanded), "", 0, nil)
		a.mailboxPaths = append(a.mailboxPaths, "")
		if expanded {
			for _, m := range custom {
				add(m)
			}
		}
	}
	if selected >= 0 {
		list.SetCurrentItem(selected)
	}

	title := " Mailboxes "
	if acct, ok := mb.ActiveAccount(); ok {
		title = " " + acct.Label + " "
	}
	if n := mb.TotalUnread(); n > 0 {
		title += "(" + strconv.Itoa(n) + ") "
	}
	list.SetTitle(title)
}

// openMailboxAt opens the mailbox behind a list row
func (a *App) openMailboxAt(index int) {
	if index < 0 || index >= len(a.mailboxPaths) {
		return
	}
	path := a.mailboxPaths[index]
	if path == "" {
		a.toggleFolders()
		return
	}
	go a.svc.Mailbox.SelectMailbox(a.ctx, path)
	a.restoreFocus()
}

// toggleFolders collapses or expands the custom folder section
func (a *App) toggleFolders() {
	if a.svc.Preferences == nil {
		return
	}
	expanded := a.svc.Preferences.SectionExpanded(a.ctx, customFoldersSection)
	if err := a.svc.Preferences.SetSectionExpanded(a.ctx, customFoldersSection, !expanded); err != nil {
		a.errorHandler.HandleError(a.ctx, err, "Failed to save folder layout")
	}
	a.renderMailboxes()
}

// renderThreads fills the thread table with the filtered threads
func (a *App) renderThreads() {
	table, ok := a.views["list"].(*tview.Table)
	if !ok || a.svc.Mailbox == nil {
		return
	}
	mb := a.svc.Mailbox
	threads := mb.FilteredThreads()
	selectedUID, hasSelection := mb.SelectedUID()

	table.Clear()
	a.rowUIDs = a.rowUIDs[:0]
	width := a.screenWidth - mailboxPaneWidth - 4
	now := time.Now()
	selectedRow := -1
	for i, t := range threads {
		text, color := a.threadRenderer.FormatRow(t, width, now)
		table.SetCell(i, 0, tview.NewTableCell(tview.Escape(text)).
			SetTextColor(color).
			SetExpansion(1))
		a.rowUIDs = append(a.rowUIDs, t.UID)
		if hasSelection && t.UID == selectedUID {
			selectedRow = i
		}
	}
	if len(threads) == 0 {
		placeholder := "No conversations"
		if mb.Loading() {
			placeholder = "Loading…"
		}
		table.SetCell(0, 0, tview.NewTableCell(placeholder).SetSelectable(false).SetExpansion(1))
	}
	if selectedRow >= 0 {
		table.Select(selectedRow, 0)
	}
	table.SetTitle(threadsTitle(mb.CurrentMailbox(), len(threads), mb.Filter()))
}

// openThreadAt selects the thread behind a table row
func (a *App) openThreadAt(row int) {
	if row < 0 || row >= len(a.rowUIDs) {
		return
	}
	uid := a.rowUIDs[row]
	go a.svc.Mailbox.SelectThread(a.ctx, uid)
}

// renderMessage shows the open message, or help
func (a *App) renderMessage() {
	header, _ := a.views["header"].(*tview.TextView)
	text, _ := a.views["text"].(*tview.TextView)
	if header == nil || text == nil {
		return
	}
	if a.showHelp {
		header.SetText("[yellow]Help[-]")
		text.SetText(tview.Escape(generateHelpText(a.Keys)))
		return
	}

	msg := a.svc.Mailbox.Message()
	if msg == nil {
		header.SetText("")
		if _, ok := a.svc.Mailbox.SelectedUID(); ok {
			text.SetText("Loading…")
		} else {
			text.SetText("")
		}
		a.lastMessage = 0
		return
	}
	header.SetText(render.FormatHeader(msg))
	width := a.screenWidth - mailboxPaneWidth - 4
	text.SetText(tview.Escape(render.FormatMessage(msg, render.FormatOptions{WrapWidth: width, ShowLinks: true})))
	if msg.UID != a.lastMessage {
		text.ScrollToBeginning()
		a.lastMessage = msg.UID
	}
}

// toggleHelp shows or hides help in the message pane
func (a *App) toggleHelp() {
	a.showHelp = !a.showHelp
	a.renderMessage()
}
