package mail

import "sort"

// SpecialMailboxes returns at most one mailbox per special-use tag,
// ordered by SpecialPriority. When several mailboxes carry the same tag
// the first one in server order wins.
func SpecialMailboxes(mailboxes []Mailbox) []Mailbox {
	seen := make(map[SpecialUse]bool, len(SpecialPriority))
	out := make([]Mailbox, 0, len(SpecialPriority))
	for _, mb := range mailboxes {
		if mb.SpecialUse == SpecialNone || seen[mb.SpecialUse] {
			continue
		}
		seen[mb.SpecialUse] = true
		out = append(out, mb)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SpecialUse.Rank() < out[j].SpecialUse.Rank()
	})
	return out
}

// CustomMailboxes returns the mailboxes without a special-use tag, in
// server order.
func CustomMailboxes(mailboxes []Mailbox) []Mailbox {
	out := make([]Mailbox, 0, len(mailboxes))
	for _, mb := range mailboxes {
		if mb.SpecialUse == SpecialNone {
			out = append(out, mb)
		}
	}
	return out
}

// FindSpecial returns the first mailbox tagged with use
func FindSpecial(mailboxes []Mailbox, use SpecialUse) (Mailbox, bool) {
	for _, mb := range mailboxes {
		if mb.SpecialUse == use {
			return mb, true
		}
	}
	return Mailbox{}, false
}

// InboxUnseen returns the unseen count of the \Inbox mailbox, 0 if none
func InboxUnseen(mailboxes []Mailbox) int {
	if inbox, ok := FindSpecial(mailboxes, SpecialInbox); ok {
		return inbox.Unseen
	}
	return 0
}
