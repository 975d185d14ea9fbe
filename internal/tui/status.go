package tui

import (
	"fmt"
	"strings"
)

// statusInfo is what the status bar summarizes
type statusInfo struct {
	Account      string
	Mailbox      string
	Unread       int
	Loading      bool
	ChordPending bool
	GoPrefix     string
	View         string
}

// formatStatus builds the status bar baseline
func formatStatus(s statusInfo) string {
	parts := []string{"Admin Console"}
	if s.View != "" && s.View != viewMail {
		parts = append(parts, strings.ToUpper(s.View[:1])+s.View[1:])
	} else {
		if s.Account != "" {
			parts = append(parts, s.Account)
		}
		if s.Mailbox != "" {
			mb := s.Mailbox
			if s.Unread > 0 {
				mb = fmt.Sprintf("%s (%d unread)", mb, s.Unread)
			}
			parts = append(parts, mb)
		}
	}
	if s.Loading {
		parts = append(parts, "loading…")
	}
	if s.ChordPending {
		parts = append(parts, s.GoPrefix+"…")
	}
	parts = append(parts, "? help", ": commands")
	return strings.Join(parts, " | ")
}

// statusBaseline returns the status text for the current state
func (a *App) statusBaseline() string {
	info := statusInfo{
		GoPrefix: a.Keys.GoPrefix,
		View:     a.view(),
	}
	if a.navigator != nil {
		info.ChordPending = a.navigator.ChordPending()
	}
	if mb := a.svc.Mailbox; mb != nil {
		if acct, ok := mb.ActiveAccount(); ok {
			info.Account = acct.Label
			if acct.Email != "" {
				info.Account = acct.Email
			}
		}
		info.Mailbox = mb.CurrentMailbox()
		info.Unread = mb.UnreadCount()
		info.Loading = mb.Loading()
	}
	return formatStatus(info)
}

// refreshStatus redraws the status bar; call on the UI goroutine
func (a *App) refreshStatus() {
	if a.errorHandler != nil {
		a.errorHandler.refreshStatusDisplay()
	}
}
