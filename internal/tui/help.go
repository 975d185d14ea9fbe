package tui

import (
	"fmt"
	"strings"

	"github.com/nicholasglazer/admin-console/internal/config"
)

// generateHelpText describes the configured shortcuts
func generateHelpText(keys config.KeyBindings) string {
	var help strings.Builder
	section := func(title string) {
		if help.Len() > 0 {
			help.WriteString("\n")
		}
		help.WriteString(title + "\n")
	}
	line := func(key, desc string) {
		if key == "" {
			return
		}
		fmt.Fprintf(&help, "    %-10s %s\n", key, desc)
	}

	section("Threads")
	line(keys.NextThread, "next conversation")
	line(keys.PrevThread, "previous conversation")
	line(keys.OpenThread+" / Enter", "open conversation")
	line(keys.CloseThread+" / Esc", "close conversation")

	section("Actions")
	line(keys.ToggleStar, "star / unstar")
	line(keys.Archive, "archive")
	line(keys.Delete+" / Del", "delete")
	line(keys.MarkRead, "mark as read")
	line(keys.MarkUnread, "mark as unread")
	line(keys.Reply, "reply")
	line(keys.ReplyAll, "reply all")
	line(keys.Forward, "forward")
	line(keys.Compose, "compose")
	line(keys.Search, "search")

	section("Go to")
	line(keys.GoPrefix+" "+keys.GoInbox, "inbox")
	line(keys.GoPrefix+" "+keys.GoSent, "sent")
	line(keys.GoPrefix+" "+keys.GoDrafts, "drafts")
	line(keys.GoPrefix+" "+keys.GoTrash, "trash")
	line(keys.GoPrefix+" "+keys.GoArchive, "archive")

	section("General")
	line("Tab", "next pane")
	line(":", "command (board, qa, workflows, theme, account, ...)")
	line(keys.Help, "toggle help")
	line(keys.Quit, "quit")
	return help.String()
}
