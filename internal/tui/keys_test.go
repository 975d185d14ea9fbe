package tui

import (
	"context"
	"testing"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/mail"
)

// MockMailbox implements MailboxController for testing
type MockMailbox struct {
	mock.Mock
	selected    uint32
	hasSelected bool
	threads     []mail.Thread
	composeOpen bool
}

func (m *MockMailbox) SelectNextThread(ctx context.Context) { m.Called() }
func (m *MockMailbox) SelectPrevThread(ctx context.Context) { m.Called() }
func (m *MockMailbox) SelectThread(ctx context.Context, uid uint32) {
	m.Called(uid)
}
func (m *MockMailbox) ClearSelection() { m.Called() }
func (m *MockMailbox) ToggleStar(ctx context.Context, uid uint32) {
	m.Called(uid)
}
func (m *MockMailbox) MarkAsRead(ctx context.Context, uids []uint32, read bool) {
	m.Called(uids, read)
}
func (m *MockMailbox) DeleteThreads(ctx context.Context, uids []uint32) {
	m.Called(uids)
}
func (m *MockMailbox) ArchiveThreads(ctx context.Context, uids []uint32) {
	m.Called(uids)
}
func (m *MockMailbox) GoToSpecial(ctx context.Context, use mail.SpecialUse) bool {
	return m.Called(use).Bool(0)
}
func (m *MockMailbox) SelectedUID() (uint32, bool) { return m.selected, m.hasSelected }
func (m *MockMailbox) FilteredThreads() []mail.Thread { return m.threads }
func (m *MockMailbox) ComposeOpen() bool { return m.composeOpen }

type fakeFocus struct {
	kind    FocusKind
	blurred int
}

func (f *fakeFocus) Focused() FocusKind { return f.kind }
func (f *fakeFocus) Blur() {
	f.blurred++
	f.kind = FocusList
}

var navStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestNavigator(mb *MockMailbox, focus *fakeFocus, cb Callbacks) (*Navigator, *clock.FakeClock) {
	clk := clock.Fake(navStart)
	nav := NewNavigator(context.Background(), mb, focus, cb, config.DefaultKeyBindings(), clk)
	nav.Dispatch = func(fn func()) { fn() }
	return nav, clk
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func specialKey(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func TestNavigator_ChordTimeout(t *testing.T) {
	t.Run("second key after the window does not navigate", func(t *testing.T) {
		mb := &MockMailbox{}
		nav, clk := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

		assert.True(t, nav.HandleKey(runeKey('g')))
		assert.True(t, nav.ChordPending())
		clk.Advance(1001 * time.Millisecond)
		assert.False(t, nav.ChordPending())

		nav.HandleKey(runeKey('i'))

		mb.AssertNotCalled(t, "GoToSpecial", mock.Anything)
	})

	t.Run("second key inside the window navigates", func(t *testing.T) {
		mb := &MockMailbox{}
		mb.On("GoToSpecial", mail.SpecialInbox).Return(true).Once()
		nav, clk := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

		nav.HandleKey(runeKey('g'))
		clk.Advance(900 * time.Millisecond)
		assert.True(t, nav.HandleKey(runeKey('i')))

		mb.AssertExpectations(t)
		assert.False(t, nav.ChordPending())
		assert.Zero(t, clk.Pending())
	})

	t.Run("missing special mailbox is a no-op", func(t *testing.T) {
		mb := &MockMailbox{}
		mb.On("GoToSpecial", mail.SpecialArchive).Return(false).Once()
		nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

		nav.HandleKey(runeKey('g'))
		assert.True(t, nav.HandleKey(runeKey('a')))

		mb.AssertExpectations(t)
	})

	t.Run("expiry without a timer tick", func(t *testing.T) {
		mb := &MockMailbox{}
		nav, clk := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})
		nav.HandleKey(runeKey('g'))

		// expire the chord, then cancel the pending timer so only the
		// keypress itself can observe the deadline
		nav.mu.Lock()
		nav.chord.timer.Stop()
		nav.mu.Unlock()
		clk.Advance(2 * time.Second)
		assert.True(t, nav.ChordPending())

		nav.HandleKey(runeKey('t'))
		mb.AssertNotCalled(t, "GoToSpecial", mock.Anything)
		assert.False(t, nav.ChordPending())
	})
}

func TestNavigator_ChordTargets(t *testing.T) {
	tests := []struct {
		key rune
		use mail.SpecialUse
	}{
		{'i', mail.SpecialInbox},
		{'s', mail.SpecialSent},
		{'d', mail.SpecialDrafts},
		{'t', mail.SpecialTrash},
		{'a', mail.SpecialArchive},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			// a selected thread must not turn the second key into an action
			mb := &MockMailbox{selected: 7, hasSelected: true}
			mb.On("GoToSpecial", tt.use).Return(true).Once()
			nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{
				ReplyAll: func(uint32) { t.Fatal("reply all invoked") },
			})

			nav.HandleKey(runeKey('g'))
			nav.HandleKey(runeKey(tt.key))

			mb.AssertExpectations(t)
			mb.AssertNotCalled(t, "ToggleStar", mock.Anything)
		})
	}
}

func TestNavigator_RepeatedPrefixRestartsChord(t *testing.T) {
	mb := &MockMailbox{}
	mb.On("GoToSpecial", mail.SpecialDrafts).Return(true).Once()
	nav, clk := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

	nav.HandleKey(runeKey('g'))
	clk.Advance(800 * time.Millisecond)
	nav.HandleKey(runeKey('g'))
	clk.Advance(800 * time.Millisecond)
	assert.True(t, nav.ChordPending())
	assert.Equal(t, 1, clk.Pending())

	nav.HandleKey(runeKey('d'))
	mb.AssertExpectations(t)
}

func TestNavigator_UnknownSecondKeyAbandonsChord(t *testing.T) {
	mb := &MockMailbox{}
	nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

	nav.HandleKey(runeKey('g'))
	assert.True(t, nav.HandleKey(runeKey('j')))
	assert.False(t, nav.ChordPending())
	mb.AssertNotCalled(t, "SelectNextThread")
}

func TestNavigator_ThreadKeys(t *testing.T) {
	threads := []mail.Thread{{UID: 3}, {UID: 9}}

	tests := []struct {
		name     string
		ev       *tcell.EventKey
		selected bool
		expect   func(mb *MockMailbox)
		consumed bool
	}{
		{"j selects next", runeKey('j'), false, func(mb *MockMailbox) { mb.On("SelectNextThread").Once() }, true},
		{"k selects previous", runeKey('k'), true, func(mb *MockMailbox) { mb.On("SelectPrevThread").Once() }, true},
		{"o opens first", runeKey('o'), false, func(mb *MockMailbox) { mb.On("SelectThread", uint32(3)).Once() }, true},
		{"enter opens first", specialKey(tcell.KeyEnter), false, func(mb *MockMailbox) { mb.On("SelectThread", uint32(3)).Once() }, true},
		{"enter with selection passes through", specialKey(tcell.KeyEnter), true, func(*MockMailbox) {}, false},
		{"u clears", runeKey('u'), true, func(mb *MockMailbox) { mb.On("ClearSelection").Once() }, true},
		{"escape clears", specialKey(tcell.KeyEscape), true, func(mb *MockMailbox) { mb.On("ClearSelection").Once() }, true},
		{"s stars", runeKey('s'), true, func(mb *MockMailbox) { mb.On("ToggleStar", uint32(9)).Once() }, true},
		{"s without selection", runeKey('s'), false, func(*MockMailbox) {}, false},
		{"e archives", runeKey('e'), true, func(mb *MockMailbox) { mb.On("ArchiveThreads", []uint32{9}).Once() }, true},
		{"# deletes", runeKey('#'), true, func(mb *MockMailbox) { mb.On("DeleteThreads", []uint32{9}).Once() }, true},
		{"delete key deletes", specialKey(tcell.KeyDelete), true, func(mb *MockMailbox) { mb.On("DeleteThreads", []uint32{9}).Once() }, true},
		{"shift+i marks read", tcell.NewEventKey(tcell.KeyRune, 'I', tcell.ModShift), true, func(mb *MockMailbox) { mb.On("MarkAsRead", []uint32{9}, true).Once() }, true},
		{"shift+u marks unread", tcell.NewEventKey(tcell.KeyRune, 'U', tcell.ModShift), true, func(mb *MockMailbox) { mb.On("MarkAsRead", []uint32{9}, false).Once() }, true},
		{"ctrl modifier ignored", tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModCtrl), false, func(*MockMailbox) {}, false},
		{"unbound key", runeKey('z'), true, func(*MockMailbox) {}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := &MockMailbox{threads: threads, selected: 9, hasSelected: tt.selected}
			if !tt.selected {
				mb.selected = 0
			}
			tt.expect(mb)
			nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

			assert.Equal(t, tt.consumed, nav.HandleKey(tt.ev))
			mb.AssertExpectations(t)
			if len(mb.ExpectedCalls) == 0 {
				assert.Empty(t, mb.Calls)
			}
		})
	}
}

func TestNavigator_OpenWithEmptyList(t *testing.T) {
	mb := &MockMailbox{}
	nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

	assert.False(t, nav.HandleKey(runeKey('o')))
	mb.AssertNotCalled(t, "SelectThread", mock.Anything)
}

func TestNavigator_Callbacks(t *testing.T) {
	var got []string
	cb := Callbacks{
		Reply:       func(uid uint32) { got = append(got, "reply") },
		ReplyAll:    func(uid uint32) { got = append(got, "reply-all") },
		Forward:     func(uid uint32) { got = append(got, "forward") },
		Compose:     func() { got = append(got, "compose") },
		FocusSearch: func() { got = append(got, "search") },
		Help:        func() { got = append(got, "help") },
	}

	mb := &MockMailbox{selected: 4, hasSelected: true}
	nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusMessage}, cb)
	for _, r := range "rafc/?" {
		assert.True(t, nav.HandleKey(runeKey(r)), string(r))
	}
	assert.Equal(t, []string{"reply", "reply-all", "forward", "compose", "search", "help"}, got)

	// reply keys need a selected thread
	got = nil
	mb.hasSelected = false
	assert.False(t, nav.HandleKey(runeKey('r')))
	assert.True(t, nav.HandleKey(runeKey('c')))
	assert.Equal(t, []string{"compose"}, got)
}

func TestNavigator_Suppression(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		mb := &MockMailbox{}
		nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})
		nav.Disable()

		assert.False(t, nav.HandleKey(runeKey('j')))
		assert.False(t, nav.HandleKey(runeKey('g')))
		assert.False(t, nav.ChordPending())

		nav.Enable()
		mb.On("SelectNextThread").Once()
		assert.True(t, nav.HandleKey(runeKey('j')))
		mb.AssertExpectations(t)
	})

	t.Run("disable abandons pending chord", func(t *testing.T) {
		nav, clk := newTestNavigator(&MockMailbox{}, &fakeFocus{kind: FocusList}, Callbacks{})
		nav.HandleKey(runeKey('g'))
		nav.Disable()
		assert.False(t, nav.ChordPending())
		assert.Zero(t, clk.Pending())
	})

	t.Run("compose open", func(t *testing.T) {
		mb := &MockMailbox{composeOpen: true, hasSelected: true}
		nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

		assert.False(t, nav.HandleKey(runeKey('s')))
		assert.False(t, nav.HandleKey(specialKey(tcell.KeyEscape)))
		assert.Empty(t, mb.Calls)
	})

	for _, kind := range []FocusKind{FocusTextInput, FocusTextArea, FocusEditable} {
		focus := &fakeFocus{kind: kind}
		mb := &MockMailbox{hasSelected: true}
		nav, _ := newTestNavigator(mb, focus, Callbacks{Compose: func() { t.Fatal("compose invoked while typing") }})

		assert.False(t, nav.HandleKey(runeKey('c')))
		assert.False(t, nav.HandleKey(runeKey('g')))
		assert.False(t, nav.ChordPending())
		assert.True(t, nav.HandleKey(specialKey(tcell.KeyEscape)))
		assert.Equal(t, 1, focus.blurred)
		assert.Empty(t, mb.Calls)
	}
}

func TestNavigator_CustomBindings(t *testing.T) {
	keys := config.DefaultKeyBindings()
	keys.NextThread = "n"
	keys.GoPrefix = ";"
	keys.ChordTimeoutMs = 300

	mb := &MockMailbox{}
	mb.On("SelectNextThread").Once()
	clk := clock.Fake(navStart)
	nav := NewNavigator(context.Background(), mb, nil, Callbacks{}, keys, clk)
	nav.Dispatch = func(fn func()) { fn() }

	assert.False(t, nav.HandleKey(runeKey('j')))
	assert.True(t, nav.HandleKey(runeKey('n')))
	assert.True(t, nav.HandleKey(runeKey(';')))
	clk.Advance(300 * time.Millisecond)
	assert.False(t, nav.ChordPending())
	mb.AssertExpectations(t)
}

func TestNavigator_DispatchesOffTheCaller(t *testing.T) {
	mb := &MockMailbox{hasSelected: true, selected: 2}
	mb.On("ToggleStar", uint32(2)).Once()
	nav, _ := newTestNavigator(mb, &fakeFocus{kind: FocusList}, Callbacks{})

	var queued []func()
	nav.Dispatch = func(fn func()) { queued = append(queued, fn) }

	assert.True(t, nav.HandleKey(runeKey('s')))
	mb.AssertNotCalled(t, "ToggleStar", mock.Anything)

	for _, fn := range queued {
		fn()
	}
	mb.AssertExpectations(t)
}
