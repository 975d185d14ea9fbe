package tui

import (
	"fmt"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"

	"github.com/nicholasglazer/admin-console/internal/mail"
)

// mailboxPaneWidth is the fixed width of the mailbox list
const mailboxPaneWidth = 28

// initComponents initializes the main UI components
func (a *App) initComponents() {
	mailboxes := tview.NewList().ShowSecondaryText(false)
	mailboxes.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" Mailboxes ").
		SetTitleAlign(tview.AlignLeft)
	mailboxes.SetSelectedFunc(func(index int, _ string, _ string, _ rune) {
		a.openMailboxAt(index)
	})

	// Table supports per-row colors
	list := tview.NewTable().SetSelectable(true, false)
	list.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" Threads ").
		SetTitleAlign(tview.AlignCenter)
	list.SetSelectedFunc(func(row, _ int) {
		a.openThreadAt(row)
	})

	header := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	header.SetBorder(false)

	text := tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true)
	text.SetBorder(false)

	textContainer := tview.NewFlex().SetDirection(tview.FlexRow)
	textContainer.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" Message ").
		SetTitleAlign(tview.AlignCenter)
	// Subject, From, To, Cc, Date
	textContainer.AddItem(header, 5, 0, false)
	textContainer.AddItem(text, 0, 1, false)

	status := tview.NewTextView().SetDynamicColors(true)
	status.SetTextAlign(tview.AlignLeft)

	toasts := tview.NewTextView().SetDynamicColors(true)
	toasts.SetTextAlign(tview.AlignRight)

	// Command and search bar (hidden by default)
	cmdPanel := tview.NewFlex().SetDirection(tview.FlexRow)
	cmdPanel.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitleAlign(tview.AlignLeft)

	ops := tview.NewTextView().SetDynamicColors(true).SetWrap(false).SetScrollable(true)
	ops.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitleAlign(tview.AlignCenter)

	a.views["mailboxes"] = mailboxes
	a.views["list"] = list
	a.views["header"] = header
	a.views["text"] = text
	a.views["textContainer"] = textContainer
	a.views["status"] = status
	a.views["toasts"] = toasts
	a.views["cmdPanel"] = cmdPanel
	a.views["ops"] = ops

	a.frames["mailboxes"] = mailboxes.Box
	a.frames["list"] = list.Box
	a.frames["textContainer"] = textContainer.Box
	a.frames["cmdPanel"] = cmdPanel.Box
	a.frames["ops"] = ops.Box
}

// initViews lays out the pages
func (a *App) initViews() {
	a.Pages.AddPage("main", a.createMainLayout(), true, true)
	a.Pages.AddPage("ops", a.createOpsLayout(), true, false)
	a.SetFocus(a.views["list"])
}

// createMainLayout builds the mail view: mailboxes on the left, threads
// above the message on the right, then the bars
func (a *App) createMainLayout() tview.Primitive {
	right := tview.NewFlex().SetDirection(tview.FlexRow)
	right.AddItem(a.views["list"], 0, 1, true)
	right.AddItem(a.views["textContainer"], 0, 2, false)

	body := tview.NewFlex().SetDirection(tview.FlexColumn)
	body.AddItem(a.views["mailboxes"], mailboxPaneWidth, 0, false)
	body.AddItem(right, 0, 1, true)

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	mainFlex.AddItem(body, 0, 1, true)
	mainFlex.AddItem(a.views["cmdPanel"], 0, 0, false)
	mainFlex.AddItem(a.views["toasts"], 0, 0, false)
	mainFlex.AddItem(a.views["status"], 1, 0, false)
	a.views["mainFlex"] = mainFlex
	return mainFlex
}

// createOpsLayout builds the board, QA and workflow page. It shares the
// bars with the mail view by moving them when the page switches.
func (a *App) createOpsLayout() tview.Primitive {
	opsFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	opsFlex.AddItem(a.views["ops"], 0, 1, true)
	a.views["opsFlex"] = opsFlex
	return opsFlex
}

// resizeToasts grows the toast area to the number of toasts shown
func (a *App) resizeToasts(lines int) {
	if mainFlex, ok := a.views["mainFlex"].(*tview.Flex); ok {
		mainFlex.ResizeItem(a.views["toasts"], lines, 0)
	}
}

// showBar mounts an input row in the command panel and focuses it
func (a *App) showBar(title string, row tview.Primitive, focus tview.Primitive) {
	cp, ok := a.views["cmdPanel"].(*tview.Flex)
	if !ok {
		return
	}
	cp.Clear()
	cp.SetTitle(title)
	cp.AddItem(row, 1, 0, true)
	a.resizeCmdPanel(3)
	a.SetFocus(focus)
}

// hideBar empties and collapses the command panel
func (a *App) hideBar() {
	if cp, ok := a.views["cmdPanel"].(*tview.Flex); ok {
		cp.Clear()
	}
	a.resizeCmdPanel(0)
	if a.view() == viewMail {
		a.restoreFocus()
	} else {
		a.SetFocus(a.views["ops"])
	}
}

func (a *App) resizeCmdPanel(height int) {
	cp := a.views["cmdPanel"]
	if a.view() == viewMail {
		if mainFlex, ok := a.views["mainFlex"].(*tview.Flex); ok {
			mainFlex.ResizeItem(cp, height, 0)
		}
		return
	}
	opsFlex, ok := a.views["opsFlex"].(*tview.Flex)
	if !ok {
		return
	}
	opsFlex.RemoveItem(cp)
	if height > 0 {
		opsFlex.AddItem(cp, height, 0, true)
	}
}

// mailboxLabel renders one mailbox row
func mailboxLabel(m mail.Mailbox, current bool) string {
	marker := "  "
	if current {
		marker = "▸ "
	}
	name := tview.Escape(m.DisplayName())
	if m.Unseen > 0 {
		return fmt.Sprintf("%s[::b]%s (%d)[::-]", marker, name, m.Unseen)
	}
	return marker + name
}

// folderHeader renders the collapsible custom folder header
func folderHeader(count int, expanded bool) string {
	arrow := "▸"
	if expanded {
		arrow = "▾"
	}
	return fmt.Sprintf("%s Folders (%d)", arrow, count)
}

// threadsTitle describes the thread list and its active filters
func threadsTitle(mailbox string, count int, f mail.Filter) string {
	var filters []string
	if f.Query != "" {
		filters = append(filters, tview.Escape(fmt.Sprintf("%q", f.Query)))
	}
	if f.UnreadOnly {
		filters = append(filters, "unread")
	}
	if f.StarredOnly {
		filters = append(filters, "starred")
	}
	title := fmt.Sprintf(" %s (%d) ", tview.Escape(mailbox), count)
	if len(filters) > 0 {
		title += "· " + strings.Join(filters, ", ") + " "
	}
	return title
}
