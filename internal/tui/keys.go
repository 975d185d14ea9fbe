package tui

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/derailed/tcell/v2"

	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/mail"
)

// FocusKind describes the element that currently holds keyboard focus
type FocusKind int

const (
	FocusNone FocusKind = iota
	FocusList
	FocusMessage
	FocusTextInput
	FocusTextArea
	FocusEditable
)

// AcceptsText reports whether typing into the element must not trigger
// shortcuts
func (k FocusKind) AcceptsText() bool {
	return k == FocusTextInput || k == FocusTextArea || k == FocusEditable
}

// FocusProvider exposes the focused element to the navigator
type FocusProvider interface {
	Focused() FocusKind
	Blur()
}

// Callbacks are actions the navigator delegates to other views. Nil
// callbacks leave their key unhandled.
type Callbacks struct {
	Reply       func(uid uint32)
	ReplyAll    func(uid uint32)
	Forward     func(uid uint32)
	Compose     func()
	FocusSearch func()
	Help        func()
}

// MailboxController is the part of the mailbox state the keyboard drives
type MailboxController interface {
	SelectNextThread(ctx context.Context)
	SelectPrevThread(ctx context.Context)
	SelectThread(ctx context.Context, uid uint32)
	ClearSelection()
	ToggleStar(ctx context.Context, uid uint32)
	MarkAsRead(ctx context.Context, uids []uint32, read bool)
	DeleteThreads(ctx context.Context, uids []uint32)
	ArchiveThreads(ctx context.Context, uids []uint32)
	GoToSpecial(ctx context.Context, use mail.SpecialUse) bool
	SelectedUID() (uint32, bool)
	FilteredThreads() []mail.Thread
	ComposeOpen() bool
}

type action int

const (
	actNone action = iota
	actNext
	actPrev
	actOpen
	actClose
	actStar
	actArchive
	actDelete
	actReply
	actReplyAll
	actForward
	actCompose
	actSearch
	actHelp
	actMarkRead
	actMarkUnread
	actChord
)

// chordState is Idle when awaiting is false; otherwise the second key
// must arrive before deadline
type chordState struct {
	awaiting bool
	deadline time.Time
	timer    *clock.Timer
}

// Navigator turns key events into mailbox operations. It is the single
// global key handler of the webmail view.
type Navigator struct {
	ctx       context.Context
	mailbox   MailboxController
	focus     FocusProvider
	callbacks Callbacks
	clock     clock.Clock
	timeout   time.Duration
	// Dispatch runs operations that may touch the network
	Dispatch func(func())

	keys   map[rune]action
	chords map[rune]mail.SpecialUse
	logger *log.Logger

	mu      sync.Mutex
	enabled bool
	chord   chordState
}

// NewNavigator creates an enabled navigator using the given bindings
func NewNavigator(ctx context.Context, mailbox MailboxController, focus FocusProvider, callbacks Callbacks, keys config.KeyBindings, clk clock.Clock) *Navigator {
	if clk == nil {
		clk = clock.Real()
	}
	timeout := time.Duration(keys.ChordTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Second
	}
	n := &Navigator{
		ctx:       ctx,
		mailbox:   mailbox,
		focus:     focus,
		callbacks: callbacks,
		clock:     clk,
		timeout:   timeout,
		Dispatch:  func(fn func()) { go fn() },
		keys:      make(map[rune]action),
		chords:    make(map[rune]mail.SpecialUse),
		enabled:   true,
	}

	bind := func(key string, a action) {
		if r, ok := singleRune(key); ok {
			n.keys[r] = a
		}
	}
	bind(keys.NextThread, actNext)
	bind(keys.PrevThread, actPrev)
	bind(keys.OpenThread, actOpen)
	bind(keys.CloseThread, actClose)
	bind(keys.ToggleStar, actStar)
	bind(keys.Archive, actArchive)
	bind(keys.Delete, actDelete)
	bind(keys.Reply, actReply)
	bind(keys.ReplyAll, actReplyAll)
	bind(keys.Forward, actForward)
	bind(keys.Compose, actCompose)
	bind(keys.Search, actSearch)
	bind(keys.Help, actHelp)
	bind(keys.MarkRead, actMarkRead)
	bind(keys.MarkUnread, actMarkUnread)
	bind(keys.GoPrefix, actChord)

	for key, use := range map[string]mail.SpecialUse{
		keys.GoInbox:   mail.SpecialInbox,
		keys.GoSent:    mail.SpecialSent,
		keys.GoDrafts:  mail.SpecialDrafts,
		keys.GoTrash:   mail.SpecialTrash,
		keys.GoArchive: mail.SpecialArchive,
	} {
		if r, ok := singleRune(key); ok {
			n.chords[r] = use
		}
	}
	return n
}

func singleRune(s string) (rune, bool) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, false
	}
	return r[0], true
}

// SetLogger sets the logger for debug output
func (n *Navigator) SetLogger(logger *log.Logger) {
	n.logger = logger
}

func (n *Navigator) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}

// Enable starts handling keys
func (n *Navigator) Enable() {
	n.mu.Lock()
	n.enabled = true
	n.mu.Unlock()
}

// Disable stops handling keys and abandons a pending chord
func (n *Navigator) Disable() {
	n.mu.Lock()
	n.enabled = false
	n.resetChordLocked()
	n.mu.Unlock()
}

// Enabled reports whether keys are handled
func (n *Navigator) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// ChordPending reports whether the navigator awaits a chord's second key
func (n *Navigator) ChordPending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chord.awaiting
}

// Tick expires a pending chord whose deadline has passed. It is driven
// by the chord timer and may also be called by the UI loop.
func (n *Navigator) Tick() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.chord.awaiting && !n.clock.Now().Before(n.chord.deadline) {
		n.logf("chord expired")
		n.resetChordLocked()
	}
}

func (n *Navigator) resetChordLocked() {
	n.chord.timer.Stop()
	n.chord = chordState{}
}

func (n *Navigator) startChordLocked() {
	n.chord.timer.Stop()
	n.chord = chordState{
		awaiting: true,
		deadline: n.clock.Now().Add(n.timeout),
	}
	n.chord.timer = n.clock.AfterFunc(n.timeout, n.Tick)
}

// HandleKey processes one key event and reports whether it was consumed
func (n *Navigator) HandleKey(ev *tcell.EventKey) bool {
	if ev == nil {
		return false
	}

	n.mu.Lock()
	enabled := n.enabled
	n.mu.Unlock()
	if !enabled || n.mailbox.ComposeOpen() {
		return false
	}

	if n.focus != nil && n.focus.Focused().AcceptsText() {
		if ev.Key() == tcell.KeyEscape {
			n.focus.Blur()
			return true
		}
		return false
	}

	if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt|tcell.ModMeta) != 0 {
		return false
	}

	if use, handled, consumed := n.handleChord(ev); handled {
		if consumed && use != mail.SpecialNone {
			n.dispatch(func() {
				if !n.mailbox.GoToSpecial(n.ctx, use) {
					n.logf("go to %s: no such mailbox", use)
				}
			})
		}
		return consumed
	}

	return n.run(n.actionFor(ev))
}

// handleChord advances the chord state machine. handled is false when
// the key must go through the regular key table.
func (n *Navigator) handleChord(ev *tcell.EventKey) (use mail.SpecialUse, handled, consumed bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.chord.awaiting && !n.clock.Now().Before(n.chord.deadline) {
		n.logf("chord expired")
		n.resetChordLocked()
	}

	if ev.Key() != tcell.KeyRune {
		if n.chord.awaiting {
			n.resetChordLocked()
		}
		return mail.SpecialNone, false, false
	}
	r := ev.Rune()

	if n.chord.awaiting {
		n.resetChordLocked()
		if n.keys[r] == actChord {
			n.startChordLocked()
			return mail.SpecialNone, true, true
		}
		if use, ok := n.chords[r]; ok {
			return use, true, true
		}
		// an unknown second key only abandons the chord
		return mail.SpecialNone, true, true
	}

	if n.keys[r] == actChord {
		n.startChordLocked()
		return mail.SpecialNone, true, true
	}
	return mail.SpecialNone, false, false
}

func (n *Navigator) actionFor(ev *tcell.EventKey) action {
	switch ev.Key() {
	case tcell.KeyEnter:
		return actOpen
	case tcell.KeyEscape:
		return actClose
	case tcell.KeyDelete:
		return actDelete
	case tcell.KeyRune:
		return n.keys[ev.Rune()]
	}
	return actNone
}

func (n *Navigator) run(a action) bool {
	ctx := n.ctx
	uid, selected := n.mailbox.SelectedUID()
	withSelected := func(fn func(uid uint32)) bool {
		if !selected {
			return false
		}
		fn(uid)
		return true
	}
	delegate := func(cb func(uint32)) bool {
		if cb == nil {
			return false
		}
		return withSelected(cb)
	}

	switch a {
	case actNext:
		n.dispatch(func() { n.mailbox.SelectNextThread(ctx) })
		return true
	case actPrev:
		n.dispatch(func() { n.mailbox.SelectPrevThread(ctx) })
		return true
	case actOpen:
		if selected {
			return false
		}
		threads := n.mailbox.FilteredThreads()
		if len(threads) == 0 {
			return false
		}
		first := threads[0].UID
		n.dispatch(func() { n.mailbox.SelectThread(ctx, first) })
		return true
	case actClose:
		n.mailbox.ClearSelection()
		return true
	case actStar:
		return withSelected(func(uid uint32) {
			n.dispatch(func() { n.mailbox.ToggleStar(ctx, uid) })
		})
	case actArchive:
		return withSelected(func(uid uint32) {
			n.dispatch(func() { n.mailbox.ArchiveThreads(ctx, []uint32{uid}) })
		})
	case actDelete:
		return withSelected(func(uid uint32) {
			n.dispatch(func() { n.mailbox.DeleteThreads(ctx, []uint32{uid}) })
		})
	case actMarkRead, actMarkUnread:
		read := a == actMarkRead
		return withSelected(func(uid uint32) {
			n.dispatch(func() { n.mailbox.MarkAsRead(ctx, []uint32{uid}, read) })
		})
	case actReply:
		return delegate(n.callbacks.Reply)
	case actReplyAll:
		return delegate(n.callbacks.ReplyAll)
	case actForward:
		return delegate(n.callbacks.Forward)
	case actCompose:
		return invoke(n.callbacks.Compose)
	case actSearch:
		return invoke(n.callbacks.FocusSearch)
	case actHelp:
		return invoke(n.callbacks.Help)
	}
	return false
}

func invoke(cb func()) bool {
	if cb == nil {
		return false
	}
	cb()
	return true
}

func (n *Navigator) dispatch(fn func()) {
	if n.Dispatch == nil {
		go fn()
		return
	}
	n.Dispatch(fn)
}
