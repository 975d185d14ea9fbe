package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/mail"
)

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name string
		info statusInfo
		want string
	}{
		{
			name: "mail view",
			info: statusInfo{Account: "ops@example.com", Mailbox: "INBOX", Unread: 3, View: viewMail},
			want: "Admin Console | ops@example.com | INBOX (3 unread) | ? help | : commands",
		},
		{
			name: "pending chord",
			info: statusInfo{Mailbox: "INBOX", ChordPending: true, GoPrefix: "g"},
			want: "Admin Console | INBOX | g… | ? help | : commands",
		},
		{
			name: "ops view hides mailbox",
			info: statusInfo{Account: "ops@example.com", Mailbox: "INBOX", View: viewBoard, Loading: true},
			want: "Admin Console | Board | loading… | ? help | : commands",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatStatus(tt.info))
		})
	}
}

func TestMailboxLabel(t *testing.T) {
	assert.Equal(t, "▸ [::b]Inbox (4)[::-]", mailboxLabel(mail.Mailbox{Path: "INBOX", Name: "Inbox", Unseen: 4}, true))
	assert.Equal(t, "  Projects/[x[]", mailboxLabel(mail.Mailbox{Path: "Projects/[x]"}, false))
}

func TestFolderHeader(t *testing.T) {
	assert.Equal(t, "▾ Folders (3)", folderHeader(3, true))
	assert.Equal(t, "▸ Folders (1)", folderHeader(1, false))
}

func TestThreadsTitle(t *testing.T) {
	assert.Equal(t, " INBOX (12) ", threadsTitle("INBOX", 12, mail.Filter{}))
	assert.Equal(t, ` INBOX (2) · "deploy", unread, starred `,
		threadsTitle("INBOX", 2, mail.Filter{Query: "deploy", UnreadOnly: true, StarredOnly: true}))
}

func TestGenerateHelpText(t *testing.T) {
	keys := config.DefaultKeyBindings()
	help := generateHelpText(keys)

	for _, want := range []string{"j          next conversation", "g i", "g t", "#", "quit"} {
		assert.Contains(t, help, want)
	}

	keys.Archive = "y"
	keys.Forward = ""
	help = generateHelpText(keys)
	assert.Contains(t, help, "y          archive")
	assert.False(t, strings.Contains(help, "forward"))
}
