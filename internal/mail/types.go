package mail

import (
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// InboxPath is the server path every account's inbox is reachable at.
const InboxPath = "INBOX"

// Message flags that drive read and starred state
const (
	FlagSeen    = imap.SeenFlag
	FlagFlagged = imap.FlaggedFlag
)

// SpecialUse is the reserved role of a mailbox (RFC 6154 style attribute)
type SpecialUse string

const (
	SpecialNone    SpecialUse = ""
	SpecialInbox   SpecialUse = `\Inbox`
	SpecialDrafts  SpecialUse = `\Drafts`
	SpecialSent    SpecialUse = `\Sent`
	SpecialArchive SpecialUse = `\Archive`
	SpecialJunk    SpecialUse = `\Junk`
	SpecialTrash   SpecialUse = `\Trash`
)

// SpecialPriority is the display order of special-use mailboxes
var SpecialPriority = []SpecialUse{
	SpecialInbox,
	SpecialDrafts,
	SpecialSent,
	SpecialArchive,
	SpecialJunk,
	SpecialTrash,
}

// Rank returns the position of the special-use tag in SpecialPriority,
// or len(SpecialPriority) for untagged mailboxes.
func (s SpecialUse) Rank() int {
	for i, use := range SpecialPriority {
		if use == s {
			return i
		}
	}
	return len(SpecialPriority)
}

// Label returns a human readable name for the tag
func (s SpecialUse) Label() string {
	return strings.TrimPrefix(string(s), `\`)
}

// Account identifies a personal or shared mail account
type Account struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Email  string `json:"email,omitempty"`
	Shared bool   `json:"shared,omitempty"`
}

// Mailbox is a folder within an account
type Mailbox struct {
	Path       string     `json:"path"`
	Name       string     `json:"name,omitempty"`
	SpecialUse SpecialUse `json:"specialUse,omitempty"`
	Unseen     int        `json:"unseenCount"`
	Total      int        `json:"totalCount,omitempty"`
}

// DisplayName prefers the server supplied name over the path
func (m Mailbox) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Path
}

// Address is an email address with an optional display name
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// String formats the address the way it is shown in lists
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return a.Name + " <" + a.Address + ">"
}

// Thread is one conversation in a mailbox. UID is unique within
// (account, mailbox).
type Thread struct {
	UID          uint32    `json:"uid"`
	Subject      string    `json:"subject"`
	From         Address   `json:"from"`
	Snippet      string    `json:"snippet,omitempty"`
	Flags        []string  `json:"flags"`
	Date         time.Time `json:"date"`
	MessageCount int       `json:"messageCount,omitempty"`
}

// HasFlag reports whether the flag is present
func (t Thread) HasFlag(flag string) bool {
	for _, f := range t.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Seen reports whether the thread has been read
func (t Thread) Seen() bool { return t.HasFlag(FlagSeen) }

// Flagged reports whether the thread is starred
func (t Thread) Flagged() bool { return t.HasFlag(FlagFlagged) }

// WithFlag returns a copy of the thread with the flag added or removed.
// The flag slice is never shared with the receiver.
func (t Thread) WithFlag(flag string, on bool) Thread {
	flags := make([]string, 0, len(t.Flags)+1)
	for _, f := range t.Flags {
		if f != flag {
			flags = append(flags, f)
		}
	}
	if on {
		flags = append(flags, flag)
	}
	t.Flags = flags
	return t
}

// Clone returns a deep copy
func (t Thread) Clone() Thread {
	t.Flags = append([]string(nil), t.Flags...)
	return t
}

// SortByDateDesc orders threads newest first
func SortByDateDesc(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Date.After(threads[j].Date)
	})
}

// BodyType is the content type of a message or draft body
type BodyType string

const (
	BodyHTML  BodyType = "html"
	BodyPlain BodyType = "plain"
)

// Message is the full body of one thread item, loaded lazily
type Message struct {
	UID       uint32    `json:"uid"`
	MessageID string    `json:"messageId,omitempty"`
	Subject   string    `json:"subject"`
	From      Address   `json:"from"`
	To        []Address `json:"to,omitempty"`
	Cc        []Address `json:"cc,omitempty"`
	Date      time.Time `json:"date"`
	Text      string    `json:"text,omitempty"`
	HTML      string    `json:"html,omitempty"`
	Flags     []string  `json:"flags,omitempty"`
}

// Draft is a compose-in-progress; it lives only while compose is open
type Draft struct {
	ID        string   `json:"-"`
	AccountID string   `json:"accountId"`
	To        []string `json:"to"`
	Cc        []string `json:"cc,omitempty"`
	Bcc       []string `json:"bcc,omitempty"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	BodyType  BodyType `json:"bodyType"`
	InReplyTo string   `json:"inReplyTo,omitempty"`
}

// DraftPatch is a partial draft update; nil fields are left untouched
type DraftPatch struct {
	AccountID *string
	To        []string
	Cc        []string
	Bcc       []string
	Subject   *string
	Body      *string
	BodyType  *BodyType
}

// Apply merges the patch into the draft
func (p DraftPatch) Apply(d *Draft) {
	if p.AccountID != nil {
		d.AccountID = *p.AccountID
	}
	if p.To != nil {
		d.To = append([]string(nil), p.To...)
	}
	if p.Cc != nil {
		d.Cc = append([]string(nil), p.Cc...)
	}
	if p.Bcc != nil {
		d.Bcc = append([]string(nil), p.Bcc...)
	}
	if p.Subject != nil {
		d.Subject = *p.Subject
	}
	if p.Body != nil {
		d.Body = *p.Body
	}
	if p.BodyType != nil {
		d.BodyType = *p.BodyType
	}
}
