package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/mail"
)

// ThreadPage selects one page of the thread list. Zero values mean page 1
// and the configured page size.
type ThreadPage struct {
	Page  int
	Limit int
}

// MailboxOptions configures the mailbox state
type MailboxOptions struct {
	PageLimit        int
	MailboxCacheSize int
	// Parallel bounds LoadAllMailboxes fan-out
	Parallel int
	// RollbackMarkRead reverts read/unread flags when the server rejects
	// the change. Off by default: read state is treated as fire-and-forget.
	RollbackMarkRead bool
}

// DefaultMailboxOptions returns the stock mailbox settings
func DefaultMailboxOptions() MailboxOptions {
	return MailboxOptions{
		PageLimit:        50,
		MailboxCacheSize: 32,
		Parallel:         4,
	}
}

// ComposeState is the compose sub-state
type ComposeState struct {
	Open      bool
	Draft     mail.Draft
	Sending   bool
	LastError string
}

// MailboxServiceImpl implements MailboxService
type MailboxServiceImpl struct {
	api    MailBackend
	toasts Notifier
	opts   MailboxOptions
	logger *log.Logger

	mu             sync.RWMutex
	accounts       []mail.Account
	activeID       string
	mailboxes      *lru.Cache[string, []mail.Mailbox]
	currentMailbox string
	threads        []mail.Thread
	threadsLoaded  bool
	selectedUID    uint32
	hasSelection   bool
	message        *mail.Message
	filter         mail.Filter
	compose        ComposeState

	loadingAccounts  bool
	loadingMailboxes bool
	loadingThreads   bool
	loadingMessage   bool

	// Latest request wins: a response is applied only while its
	// generation is still current.
	threadsGen   uint64
	messageGen   uint64
	mailboxesGen map[string]uint64

	subs observers
}

// NewMailboxService creates the mailbox state for one session
func NewMailboxService(api MailBackend, toasts Notifier, opts MailboxOptions) *MailboxServiceImpl {
	def := DefaultMailboxOptions()
	if opts.PageLimit <= 0 {
		opts.PageLimit = def.PageLimit
	}
	if opts.MailboxCacheSize <= 0 {
		opts.MailboxCacheSize = def.MailboxCacheSize
	}
	if opts.Parallel <= 0 {
		opts.Parallel = def.Parallel
	}
	if toasts == nil {
		toasts = nopNotifier{}
	}
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, []mail.Mailbox](opts.MailboxCacheSize)

	return &MailboxServiceImpl{
		api:            api,
		toasts:         toasts,
		opts:           opts,
		mailboxes:      cache,
		currentMailbox: mail.InboxPath,
		mailboxesGen:   make(map[string]uint64),
	}
}

// SetLogger sets the logger for debug output
func (s *MailboxServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Subscribe registers fn to run after every state change
func (s *MailboxServiceImpl) Subscribe(fn func()) func() {
	return s.subs.add(fn)
}

func (s *MailboxServiceImpl) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// InitAccounts replaces the account set and activates the first account
// when none is active
func (s *MailboxServiceImpl) InitAccounts(accounts []mail.Account) {
	s.mu.Lock()
	s.accounts = append([]mail.Account(nil), accounts...)
	if s.activeID == "" && len(s.accounts) > 0 {
		s.activeID = s.accounts[0].ID
	}
	s.mu.Unlock()
	s.subs.notify()
}

// LoadAccounts fetches the session's accounts and installs them
func (s *MailboxServiceImpl) LoadAccounts(ctx context.Context) {
	s.setLoading(&s.loadingAccounts, true)
	accounts, err := s.api.Accounts(ctx)
	s.setLoading(&s.loadingAccounts, false)
	if err != nil {
		s.logf("load accounts failed (%s): %v", failureKind(err), err)
		s.toasts.Error("Failed to load mail accounts")
		return
	}
	s.InitAccounts(accounts)
}

// SwitchAccount activates another account, resets mailbox and selection
// state, then loads its mailboxes (when not cached) and its inbox
func (s *MailboxServiceImpl) SwitchAccount(ctx context.Context, accountID string) {
	s.mu.Lock()
	if accountID == s.activeID {
		s.mu.Unlock()
		return
	}
	if !s.hasAccount(accountID) {
		s.mu.Unlock()
		s.logf("switch account: unknown account %q", accountID)
		return
	}
	s.activeID = accountID
	s.currentMailbox = mail.InboxPath
	s.resetThreadsLocked()
	cached := s.mailboxes.Contains(accountID)
	s.mu.Unlock()
	s.subs.notify()

	if !cached {
		s.LoadMailboxes(ctx)
	}
	s.LoadThreads(ctx, ThreadPage{})
}

// LoadMailboxes fetches the mailbox list of the active account into the
// per-account cache
func (s *MailboxServiceImpl) LoadMailboxes(ctx context.Context) {
	s.mu.Lock()
	accountID := s.activeID
	if accountID == "" {
		s.mu.Unlock()
		return
	}
	s.mailboxesGen[accountID]++
	gen := s.mailboxesGen[accountID]
	s.loadingMailboxes = true
	s.mu.Unlock()
	s.subs.notify()

	list, err := s.api.Mailboxes(ctx, accountID)

	s.mu.Lock()
	if gen != s.mailboxesGen[accountID] {
		s.mu.Unlock()
		s.logf("load mailboxes %s: discarding stale response", accountID)
		return
	}
	s.loadingMailboxes = false
	if err == nil {
		s.mailboxes.Add(accountID, list)
	}
	s.mu.Unlock()
	s.subs.notify()

	if err != nil {
		s.logf("load mailboxes %s failed (%s): %v", accountID, failureKind(err), err)
		s.toasts.Error("Failed to load mailboxes")
	}
}

// LoadAllMailboxes fetches the mailbox lists of every account
// concurrently so unread totals cover all of them
func (s *MailboxServiceImpl) LoadAllMailboxes(ctx context.Context) {
	s.mu.Lock()
	type job struct {
		accountID string
		gen       uint64
	}
	jobs := make([]job, 0, len(s.accounts))
	for _, a := range s.accounts {
		s.mailboxesGen[a.ID]++
		jobs = append(jobs, job{accountID: a.ID, gen: s.mailboxesGen[a.ID]})
	}
	s.loadingMailboxes = len(jobs) > 0
	s.mu.Unlock()
	if len(jobs) == 0 {
		return
	}
	s.subs.notify()

	var g errgroup.Group
	g.SetLimit(s.opts.Parallel)
	for _, j := range jobs {
		g.Go(func() error {
			list, err := s.api.Mailboxes(ctx, j.accountID)
			if err != nil {
				s.logf("load mailboxes %s failed (%s): %v", j.accountID, failureKind(err), err)
				return fmt.Errorf("account %s: %w", j.accountID, err)
			}
			s.mu.Lock()
			if j.gen == s.mailboxesGen[j.accountID] {
				s.mailboxes.Add(j.accountID, list)
			}
			s.mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	s.loadingMailboxes = false
	s.mu.Unlock()
	s.subs.notify()

	if err != nil {
		s.toasts.Error("Failed to load mailboxes for some accounts")
	}
}

// SelectMailbox makes path the current mailbox and loads its threads
func (s *MailboxServiceImpl) SelectMailbox(ctx context.Context, path string) {
	s.mu.Lock()
	if path == "" || (path == s.currentMailbox && s.threadsLoaded) {
		s.mu.Unlock()
		return
	}
	s.currentMailbox = path
	s.resetThreadsLocked()
	s.mu.Unlock()
	s.subs.notify()

	s.LoadThreads(ctx, ThreadPage{})
}

// LoadThreads fetches one page of threads for the current mailbox and
// replaces the thread list with it
func (s *MailboxServiceImpl) LoadThreads(ctx context.Context, page ThreadPage) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = s.opts.PageLimit
	}

	s.mu.Lock()
	accountID, mailbox := s.activeID, s.currentMailbox
	if accountID == "" {
		s.mu.Unlock()
		return
	}
	s.threadsGen++
	gen := s.threadsGen
	s.loadingThreads = true
	s.mu.Unlock()
	s.subs.notify()

	threads, err := s.api.Threads(ctx, accountID, mailbox, page.Page, page.Limit)

	s.mu.Lock()
	if gen != s.threadsGen {
		s.mu.Unlock()
		s.logf("load threads %s/%s: discarding stale response", accountID, mailbox)
		return
	}
	s.loadingThreads = false
	if err == nil {
		s.threads = threads
		s.threadsLoaded = true
	}
	s.mu.Unlock()
	s.subs.notify()

	if err != nil {
		s.logf("load threads %s/%s page %d failed (%s): %v", accountID, mailbox, page.Page, failureKind(err), err)
		s.toasts.Error("Failed to load threads")
	}
}

// SelectThread selects a thread and loads its message. The fetch marks
// the message read on the server, so the thread is marked seen locally
// once the message arrives.
func (s *MailboxServiceImpl) SelectThread(ctx context.Context, uid uint32) {
	s.mu.Lock()
	if s.hasSelection && s.selectedUID == uid && s.message != nil {
		s.mu.Unlock()
		return
	}
	s.selectedUID = uid
	s.hasSelection = true
	s.message = nil
	s.messageGen++
	gen := s.messageGen
	s.loadingMessage = true
	accountID, mailbox := s.activeID, s.currentMailbox
	s.mu.Unlock()
	s.subs.notify()

	msg, err := s.api.Message(ctx, uid, accountID, mailbox)

	s.mu.Lock()
	if gen != s.messageGen {
		s.mu.Unlock()
		s.logf("load message %d: discarding stale response", uid)
		return
	}
	s.loadingMessage = false
	if err == nil {
		s.message = msg
		if i := s.indexOf(uid); i >= 0 {
			s.threads[i] = s.threads[i].WithFlag(mail.FlagSeen, true)
		}
	}
	s.mu.Unlock()
	s.subs.notify()

	if err != nil {
		s.logf("load message %d failed (%s): %v", uid, failureKind(err), err)
		s.toasts.Error("Failed to load message")
	}
}

// ClearSelection returns to the thread list
func (s *MailboxServiceImpl) ClearSelection() {
	s.mu.Lock()
	if !s.hasSelection && s.message == nil {
		s.mu.Unlock()
		return
	}
	s.clearSelectionLocked()
	s.mu.Unlock()
	s.subs.notify()
}

// ToggleStar flips the flagged state locally, then on the server. A
// rejected change flips only the star back; other flags are left alone.
func (s *MailboxServiceImpl) ToggleStar(ctx context.Context, uid uint32) {
	s.mu.Lock()
	i := s.indexOf(uid)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	starring := !s.threads[i].Flagged()
	s.threads[i] = s.threads[i].WithFlag(mail.FlagFlagged, starring)
	gen := s.threadsGen
	accountID, mailbox := s.activeID, s.currentMailbox
	s.mu.Unlock()
	s.subs.notify()

	action := backend.ActionUnstar
	if starring {
		action = backend.ActionStar
	}
	err := s.api.Actions(ctx, backend.ActionRequest{
		AccountID: accountID,
		Mailbox:   mailbox,
		UIDs:      []uint32{uid},
		Action:    action,
	})
	if err == nil {
		return
	}

	s.mu.Lock()
	if gen == s.threadsGen {
		if j := s.indexOf(uid); j >= 0 {
			s.threads[j] = s.threads[j].WithFlag(mail.FlagFlagged, !starring)
		}
	}
	s.mu.Unlock()
	s.subs.notify()

	s.logf("%s thread %d failed (%s): %v", action, uid, failureKind(err), err)
	if starring {
		s.toasts.Error("Failed to star conversation")
	} else {
		s.toasts.Error("Failed to unstar conversation")
	}
}

// MarkAsRead sets or clears the seen flag on the given threads, locally
// first. Only with RollbackMarkRead is a rejected change reverted, and
// then only the seen flag of each thread.
func (s *MailboxServiceImpl) MarkAsRead(ctx context.Context, uids []uint32, read bool) {
	if len(uids) == 0 {
		return
	}

	s.mu.Lock()
	wasSeen := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		if i := s.indexOf(uid); i >= 0 {
			wasSeen[uid] = s.threads[i].Seen()
			s.threads[i] = s.threads[i].WithFlag(mail.FlagSeen, read)
		}
	}
	gen := s.threadsGen
	accountID, mailbox := s.activeID, s.currentMailbox
	s.mu.Unlock()
	s.subs.notify()

	action := backend.ActionMarkUnread
	if read {
		action = backend.ActionMarkRead
	}
	err := s.api.Actions(ctx, backend.ActionRequest{
		AccountID: accountID,
		Mailbox:   mailbox,
		UIDs:      uids,
		Action:    action,
	})
	if err == nil {
		return
	}

	s.logf("%s %v failed (%s): %v", action, uids, failureKind(err), err)
	if s.opts.RollbackMarkRead {
		s.mu.Lock()
		if gen == s.threadsGen {
			for uid, seen := range wasSeen {
				if i := s.indexOf(uid); i >= 0 {
					s.threads[i] = s.threads[i].WithFlag(mail.FlagSeen, seen)
				}
			}
		}
		s.mu.Unlock()
		s.subs.notify()
	}
	if read {
		s.toasts.Error("Failed to mark as read")
	} else {
		s.toasts.Error("Failed to mark as unread")
	}
}

// MoveThreads moves threads to another mailbox
func (s *MailboxServiceImpl) MoveThreads(ctx context.Context, uids []uint32, destination string) {
	if destination == "" {
		s.logf("move threads: empty destination")
		return
	}
	s.removeThreads(ctx, uids, backend.ActionMove, destination, "move")
}

// DeleteThreads deletes threads
func (s *MailboxServiceImpl) DeleteThreads(ctx context.Context, uids []uint32) {
	s.removeThreads(ctx, uids, backend.ActionDelete, "", "delete")
}

// ArchiveThreads archives threads
func (s *MailboxServiceImpl) ArchiveThreads(ctx context.Context, uids []uint32) {
	s.removeThreads(ctx, uids, backend.ActionArchive, "", "archive")
}

// removeThreads drops threads from the list before the server call. A
// rejected call puts them back and re-sorts the list newest first, so
// the original positions are not restored.
func (s *MailboxServiceImpl) removeThreads(ctx context.Context, uids []uint32, action, target, verb string) {
	if len(uids) == 0 {
		return
	}
	drop := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		drop[uid] = true
	}

	s.mu.Lock()
	var removed []mail.Thread
	kept := make([]mail.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		if drop[t.UID] {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	s.threads = kept
	if s.hasSelection && drop[s.selectedUID] {
		s.clearSelectionLocked()
	}
	gen := s.threadsGen
	accountID, mailbox := s.activeID, s.currentMailbox
	s.mu.Unlock()
	s.subs.notify()

	err := s.api.Actions(ctx, backend.ActionRequest{
		AccountID:     accountID,
		Mailbox:       mailbox,
		UIDs:          uids,
		Action:        action,
		TargetMailbox: target,
	})
	if err == nil {
		return
	}

	s.mu.Lock()
	if gen == s.threadsGen {
		for _, t := range removed {
			if s.indexOf(t.UID) < 0 {
				s.threads = append(s.threads, t)
			}
		}
		mail.SortByDateDesc(s.threads)
	}
	s.mu.Unlock()
	s.subs.notify()

	s.logf("%s %v failed (%s): %v", action, uids, failureKind(err), err)
	s.toasts.Error(fmt.Sprintf("Failed to %s %s", verb, conversations(len(uids))))
}

func conversations(n int) string {
	if n == 1 {
		return "conversation"
	}
	return fmt.Sprintf("%d conversations", n)
}

// OpenCompose opens the compose view, optionally prefilled
func (s *MailboxServiceImpl) OpenCompose(draft *mail.Draft) {
	s.mu.Lock()
	d := mail.Draft{BodyType: mail.BodyPlain}
	if draft != nil {
		d = *draft
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.AccountID == "" {
		d.AccountID = s.activeID
	}
	if d.BodyType == "" {
		d.BodyType = mail.BodyPlain
	}
	s.compose = ComposeState{Open: true, Draft: d}
	s.mu.Unlock()
	s.subs.notify()
}

// CloseCompose discards the draft
func (s *MailboxServiceImpl) CloseCompose() {
	s.mu.Lock()
	s.compose = ComposeState{}
	s.mu.Unlock()
	s.subs.notify()
}

// UpdateDraft merges a partial update into the open draft
func (s *MailboxServiceImpl) UpdateDraft(patch mail.DraftPatch) {
	s.mu.Lock()
	if !s.compose.Open {
		s.mu.Unlock()
		return
	}
	patch.Apply(&s.compose.Draft)
	s.mu.Unlock()
	s.subs.notify()
}

// SendDraft posts the open draft. On success compose closes and, when
// the Sent folder is on screen, its threads are reloaded.
func (s *MailboxServiceImpl) SendDraft(ctx context.Context) backend.SendResult {
	s.mu.Lock()
	switch {
	case !s.compose.Open:
		s.mu.Unlock()
		return backend.SendResult{Error: ErrComposeClosed.Error()}
	case s.compose.Sending:
		s.mu.Unlock()
		return backend.SendResult{Error: ErrAlreadySending.Error()}
	}
	s.compose.Sending = true
	s.compose.LastError = ""
	draft := s.compose.Draft
	if draft.AccountID == "" {
		draft.AccountID = s.activeID
	}
	draftID := draft.ID
	s.mu.Unlock()
	s.subs.notify()

	res, err := s.api.Send(ctx, draft)
	if err == nil && !res.Success && res.Error == "" {
		res.Error = "send failed"
	}
	if err != nil && res.Error == "" {
		res.Error = "send failed"
	}

	s.mu.Lock()
	stillOpen := s.compose.Open && s.compose.Draft.ID == draftID
	if stillOpen {
		s.compose.Sending = false
	}
	if err != nil || !res.Success {
		if stillOpen {
			s.compose.LastError = res.Error
		}
		s.mu.Unlock()
		s.subs.notify()
		if err != nil {
			s.logf("send draft failed (%s): %v", failureKind(err), err)
		} else {
			s.logf("send draft rejected: %s", res.Error)
		}
		s.toasts.Error("Failed to send message")
		return res
	}

	if stillOpen {
		s.compose = ComposeState{}
	}
	sent, ok := mail.FindSpecial(s.activeMailboxesLocked(), mail.SpecialSent)
	viewingSent := ok && sent.Path == s.currentMailbox
	s.mu.Unlock()
	s.subs.notify()

	s.toasts.Success("Message sent")
	if viewingSent {
		s.LoadThreads(ctx, ThreadPage{})
	}
	return res
}

// SelectNextThread moves the selection down the filtered list. With no
// selection the first filtered thread is selected.
func (s *MailboxServiceImpl) SelectNextThread(ctx context.Context) {
	s.mu.RLock()
	filtered := s.filter.Apply(s.threads)
	idx := s.filteredIndexLocked(filtered)
	s.mu.RUnlock()

	next := idx + 1
	if next >= len(filtered) {
		return
	}
	s.SelectThread(ctx, filtered[next].UID)
}

// SelectPrevThread moves the selection up the filtered list
func (s *MailboxServiceImpl) SelectPrevThread(ctx context.Context) {
	s.mu.RLock()
	filtered := s.filter.Apply(s.threads)
	idx := s.filteredIndexLocked(filtered)
	s.mu.RUnlock()

	if idx <= 0 {
		return
	}
	s.SelectThread(ctx, filtered[idx-1].UID)
}

// GoToSpecial opens the active account's special-use mailbox. Reports
// false when the account has none.
func (s *MailboxServiceImpl) GoToSpecial(ctx context.Context, use mail.SpecialUse) bool {
	mb, ok := s.SpecialMailbox(use)
	if !ok {
		return false
	}
	s.SelectMailbox(ctx, mb.Path)
	return true
}

// Refresh reloads the mailboxes and the first page of threads
func (s *MailboxServiceImpl) Refresh(ctx context.Context) {
	s.LoadMailboxes(ctx)
	s.LoadThreads(ctx, ThreadPage{})
}

// SetSearch sets the free-text search
func (s *MailboxServiceImpl) SetSearch(query string) {
	s.updateFilter(func(f *mail.Filter) { f.Query = query })
}

// SetUnreadOnly toggles the unread-only filter
func (s *MailboxServiceImpl) SetUnreadOnly(on bool) {
	s.updateFilter(func(f *mail.Filter) { f.UnreadOnly = on })
}

// SetStarredOnly toggles the starred-only filter
func (s *MailboxServiceImpl) SetStarredOnly(on bool) {
	s.updateFilter(func(f *mail.Filter) { f.StarredOnly = on })
}

// ClearFilters removes every view filter
func (s *MailboxServiceImpl) ClearFilters() {
	s.updateFilter(func(f *mail.Filter) { *f = mail.Filter{} })
}

func (s *MailboxServiceImpl) updateFilter(fn func(*mail.Filter)) {
	s.mu.Lock()
	fn(&s.filter)
	s.mu.Unlock()
	s.subs.notify()
}

// Accounts returns the configured accounts
func (s *MailboxServiceImpl) Accounts() []mail.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]mail.Account(nil), s.accounts...)
}

// ActiveAccount returns the active account record
func (s *MailboxServiceImpl) ActiveAccount() (mail.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ID == s.activeID {
			return a, true
		}
	}
	return mail.Account{}, false
}

// Mailboxes returns the active account's cached mailboxes
func (s *MailboxServiceImpl) Mailboxes() []mail.Mailbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]mail.Mailbox(nil), s.activeMailboxesLocked()...)
}

// SpecialMailboxes returns one mailbox per special-use tag in priority order
func (s *MailboxServiceImpl) SpecialMailboxes() []mail.Mailbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mail.SpecialMailboxes(s.activeMailboxesLocked())
}

// CustomMailboxes returns the user-created mailboxes
func (s *MailboxServiceImpl) CustomMailboxes() []mail.Mailbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mail.CustomMailboxes(s.activeMailboxesLocked())
}

// SpecialMailbox returns the active account's mailbox for use
func (s *MailboxServiceImpl) SpecialMailbox(use mail.SpecialUse) (mail.Mailbox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mail.FindSpecial(s.activeMailboxesLocked(), use)
}

// CurrentMailbox returns the path of the mailbox on screen
func (s *MailboxServiceImpl) CurrentMailbox() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMailbox
}

// TotalUnread sums the inbox unseen counts of every account whose
// mailboxes are cached
func (s *MailboxServiceImpl) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, a := range s.accounts {
		if list, ok := s.mailboxes.Peek(a.ID); ok {
			total += mail.InboxUnseen(list)
		}
	}
	return total
}

// Threads returns a copy of the loaded threads
func (s *MailboxServiceImpl) Threads() []mail.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mail.Thread, len(s.threads))
	for i, t := range s.threads {
		out[i] = t.Clone()
	}
	return out
}

// FilteredThreads returns the loaded threads that pass the view filter
func (s *MailboxServiceImpl) FilteredThreads() []mail.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Apply(s.threads)
}

// UnreadCount counts unseen threads in the current list
func (s *MailboxServiceImpl) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.threads {
		if !t.Seen() {
			n++
		}
	}
	return n
}

// SelectedUID returns the selected thread, if any
func (s *MailboxServiceImpl) SelectedUID() (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedUID, s.hasSelection
}

// Message returns the open message, nil when none is loaded
func (s *MailboxServiceImpl) Message() *mail.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.message == nil {
		return nil
	}
	m := *s.message
	return &m
}

// Filter returns the current view filter
func (s *MailboxServiceImpl) Filter() mail.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Compose returns the compose sub-state
func (s *MailboxServiceImpl) Compose() ComposeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compose
}

// ComposeOpen reports whether the compose view is open
func (s *MailboxServiceImpl) ComposeOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compose.Open
}

// Loading reports whether any fetch is in flight
func (s *MailboxServiceImpl) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingAccounts || s.loadingMailboxes || s.loadingThreads || s.loadingMessage
}

func (s *MailboxServiceImpl) setLoading(flag *bool, on bool) {
	s.mu.Lock()
	*flag = on
	s.mu.Unlock()
	s.subs.notify()
}

func (s *MailboxServiceImpl) hasAccount(id string) bool {
	for _, a := range s.accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (s *MailboxServiceImpl) activeMailboxesLocked() []mail.Mailbox {
	if s.activeID == "" {
		return nil
	}
	list, _ := s.mailboxes.Peek(s.activeID)
	return list
}

// resetThreadsLocked clears the thread list and selection and supersedes
// any in-flight thread or message load
func (s *MailboxServiceImpl) resetThreadsLocked() {
	s.threads = nil
	s.threadsLoaded = false
	s.threadsGen++
	s.loadingThreads = false
	s.clearSelectionLocked()
}

func (s *MailboxServiceImpl) clearSelectionLocked() {
	s.selectedUID = 0
	s.hasSelection = false
	s.message = nil
	s.messageGen++
	s.loadingMessage = false
}

func (s *MailboxServiceImpl) indexOf(uid uint32) int {
	for i, t := range s.threads {
		if t.UID == uid {
			return i
		}
	}
	return -1
}

func (s *MailboxServiceImpl) filteredIndexLocked(filtered []mail.Thread) int {
	if !s.hasSelection {
		return -1
	}
	for i, t := range filtered {
		if t.UID == s.selectedUID {
			return i
		}
	}
	return -1
}
