package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/mail"
)

// MockMailBackend implements MailBackend for testing
type MockMailBackend struct {
	mock.Mock
}

func (m *MockMailBackend) Accounts(ctx context.Context) ([]mail.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mail.Account), args.Error(1)
}

func (m *MockMailBackend) Mailboxes(ctx context.Context, accountID string) ([]mail.Mailbox, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mail.Mailbox), args.Error(1)
}

func (m *MockMailBackend) Threads(ctx context.Context, accountID, mailbox string, page, limit int) ([]mail.Thread, error) {
	args := m.Called(ctx, accountID, mailbox, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mail.Thread), args.Error(1)
}

func (m *MockMailBackend) Message(ctx context.Context, uid uint32, accountID, mailbox string) (*mail.Message, error) {
	args := m.Called(ctx, uid, accountID, mailbox)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mail.Message), args.Error(1)
}

func (m *MockMailBackend) Actions(ctx context.Context, req backend.ActionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockMailBackend) Send(ctx context.Context, draft mail.Draft) (backend.SendResult, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(backend.SendResult), args.Error(1)
}

var (
	errBackend = &backend.Error{Op: "test", Kind: backend.KindStatus, Status: 502}
	baseTime   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func thread(uid uint32, hoursAgo int, flags ...string) mail.Thread {
	return mail.Thread{
		UID:     uid,
		Subject: "Subject " + string(rune('A'+uid-1)),
		From:    mail.Address{Address: "sender@example.com"},
		Flags:   flags,
		Date:    baseTime.Add(-time.Duration(hoursAgo) * time.Hour),
	}
}

func defaultMailboxes() []mail.Mailbox {
	return []mail.Mailbox{
		{Path: "INBOX", SpecialUse: mail.SpecialInbox, Unseen: 3},
		{Path: "Sent", SpecialUse: mail.SpecialSent},
		{Path: "Drafts", SpecialUse: mail.SpecialDrafts},
		{Path: "Trash", SpecialUse: mail.SpecialTrash},
		{Path: "Projects"},
	}
}

type mailboxFixture struct {
	svc    *MailboxServiceImpl
	api    *MockMailBackend
	toasts *ToastServiceImpl
}

// newMailboxFixture returns a service with one active account whose
// mailboxes and inbox threads are loaded
func newMailboxFixture(t *testing.T, threads []mail.Thread) *mailboxFixture {
	t.Helper()
	api := new(MockMailBackend)
	toasts := NewToastService(clock.Fake(baseTime), DefaultToastOptions())
	svc := NewMailboxService(api, toasts, DefaultMailboxOptions())

	api.On("Mailboxes", mock.Anything, "acc-1").Return(defaultMailboxes(), nil).Once()
	api.On("Threads", mock.Anything, "acc-1", "INBOX", 1, 50).Return(threads, nil).Once()

	svc.InitAccounts([]mail.Account{{ID: "acc-1", Label: "Ops"}})
	svc.LoadMailboxes(context.Background())
	svc.LoadThreads(context.Background(), ThreadPage{})

	return &mailboxFixture{svc: svc, api: api, toasts: toasts}
}

func uids(threads []mail.Thread) []uint32 {
	out := make([]uint32, len(threads))
	for i, t := range threads {
		out[i] = t.UID
	}
	return out
}

func lastToast(t *testing.T, s *ToastServiceImpl) Toast {
	t.Helper()
	toasts := s.Toasts()
	require.NotEmpty(t, toasts)
	return toasts[len(toasts)-1]
}

func TestMailboxService_InitAccounts(t *testing.T) {
	svc := NewMailboxService(new(MockMailBackend), nil, MailboxOptions{})

	svc.InitAccounts([]mail.Account{{ID: "a"}, {ID: "b"}})
	active, ok := svc.ActiveAccount()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)

	// an active account survives a refresh of the list
	svc.InitAccounts([]mail.Account{{ID: "b"}, {ID: "a"}})
	active, _ = svc.ActiveAccount()
	assert.Equal(t, "a", active.ID)
	assert.Len(t, svc.Accounts(), 2)
}

func TestMailboxService_LoadAccounts(t *testing.T) {
	api := new(MockMailBackend)
	toasts := NewToastService(clock.Fake(baseTime), DefaultToastOptions())
	svc := NewMailboxService(api, toasts, DefaultMailboxOptions())

	api.On("Accounts", mock.Anything).Return(nil, errBackend).Once()
	svc.LoadAccounts(context.Background())
	assert.Empty(t, svc.Accounts())
	assert.False(t, svc.Loading())
	assert.Equal(t, ToastError, lastToast(t, toasts).Level)

	api.On("Accounts", mock.Anything).Return([]mail.Account{{ID: "acc-1"}}, nil).Once()
	svc.LoadAccounts(context.Background())
	active, ok := svc.ActiveAccount()
	require.True(t, ok)
	assert.Equal(t, "acc-1", active.ID)
	api.AssertExpectations(t)
}

func TestMailboxService_ToggleStarRollback(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
	}{
		{"no flags", nil},
		{"seen", []string{mail.FlagSeen}},
		{"flagged", []string{mail.FlagFlagged}},
		{"flagged then seen", []string{mail.FlagFlagged, mail.FlagSeen}},
		{"custom flag", []string{"$Label1", mail.FlagSeen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMailboxFixture(t, []mail.Thread{thread(1, 1, tt.flags...)})
			before := f.svc.Threads()[0].Flags

			var flaggedDuringCall bool
			f.api.On("Actions", mock.Anything, mock.AnythingOfType("backend.ActionRequest")).
				Run(func(args mock.Arguments) {
					flaggedDuringCall = f.svc.Threads()[0].Flagged()
				}).
				Return(errBackend).Once()

			f.svc.ToggleStar(context.Background(), 1)

			assert.Equal(t, !mail.Thread{Flags: tt.flags}.Flagged(), flaggedDuringCall, "optimistic flip visible before the call")
			assert.ElementsMatch(t, before, f.svc.Threads()[0].Flags)
			assert.Equal(t, ToastError, lastToast(t, f.toasts).Level)
		})
	}
}

func TestMailboxService_ToggleStarRollbackKeepsConcurrentRead(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1)})
	f.api.On("Actions", mock.Anything, backend.ActionRequest{
		AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1}, Action: backend.ActionMarkRead,
	}).Return(nil).Once()
	f.api.On("Actions", mock.Anything, backend.ActionRequest{
		AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1}, Action: backend.ActionStar,
	}).
		Run(func(mock.Arguments) {
			// the thread is opened while the star is in flight
			f.svc.MarkAsRead(context.Background(), []uint32{1}, true)
		}).
		Return(errBackend).Once()

	f.svc.ToggleStar(context.Background(), 1)

	got := f.svc.Threads()[0]
	assert.False(t, got.Flagged())
	assert.True(t, got.Seen(), "confirmed read survives the star rollback")
	f.api.AssertExpectations(t)
}

func TestMailboxService_ToggleStarSuccess(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1)})
	f.api.On("Actions", mock.Anything, backend.ActionRequest{
		AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1}, Action: backend.ActionStar,
	}).Return(nil).Once()

	f.svc.ToggleStar(context.Background(), 1)

	assert.True(t, f.svc.Threads()[0].Flagged())
	f.api.AssertExpectations(t)
}

func TestMailboxService_FilteredNavigation(t *testing.T) {
	threads := []mail.Thread{
		thread(1, 1, mail.FlagSeen),
		thread(2, 2),
		thread(3, 3, mail.FlagFlagged),
		thread(4, 4, mail.FlagSeen, mail.FlagFlagged),
		thread(5, 5),
	}
	threads[2].Subject = "Quarterly invoice"
	threads[4].From.Name = "Invoice Bot"

	tests := []struct {
		name   string
		filter func(*MailboxServiceImpl)
		want   []uint32
	}{
		{"no filter", func(*MailboxServiceImpl) {}, []uint32{1, 2, 3, 4, 5}},
		{"unread only", func(s *MailboxServiceImpl) { s.SetUnreadOnly(true) }, []uint32{2, 3, 5}},
		{"starred only", func(s *MailboxServiceImpl) { s.SetStarredOnly(true) }, []uint32{3, 4}},
		{"search", func(s *MailboxServiceImpl) { s.SetSearch("INVOICE") }, []uint32{3, 5}},
		{"unread and starred", func(s *MailboxServiceImpl) {
			s.SetUnreadOnly(true)
			s.SetStarredOnly(true)
		}, []uint32{3}},
		{"nothing matches", func(s *MailboxServiceImpl) { s.SetSearch("zzz") }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMailboxFixture(t, threads)
			// a failed fetch keeps flags stable so the filtered list does not shift
			f.api.On("Message", mock.Anything, mock.Anything, "acc-1", "INBOX").Return(nil, errBackend)
			tt.filter(f.svc)

			var visited []uint32
			for i := 0; i < len(threads)+2; i++ {
				f.svc.SelectNextThread(context.Background())
				if uid, ok := f.svc.SelectedUID(); ok {
					assert.Contains(t, uids(f.svc.FilteredThreads()), uid)
					if len(visited) == 0 || visited[len(visited)-1] != uid {
						visited = append(visited, uid)
					}
				}
			}
			assert.Equal(t, tt.want, visited)

			if len(tt.want) == 0 {
				_, ok := f.svc.SelectedUID()
				assert.False(t, ok)
				return
			}

			// walk back to the top; past the first item is a no-op
			for i := 0; i < len(threads)+2; i++ {
				f.svc.SelectPrevThread(context.Background())
				uid, ok := f.svc.SelectedUID()
				require.True(t, ok)
				assert.Contains(t, uids(f.svc.FilteredThreads()), uid)
			}
			uid, _ := f.svc.SelectedUID()
			assert.Equal(t, tt.want[0], uid)
		})
	}
}

func TestMailboxService_SelectPrevWithoutSelection(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2)})

	f.svc.SelectPrevThread(context.Background())

	_, ok := f.svc.SelectedUID()
	assert.False(t, ok)
	f.api.AssertNotCalled(t, "Message", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMailboxService_SelectThread(t *testing.T) {
	t.Run("marks seen after the message arrives", func(t *testing.T) {
		f := newMailboxFixture(t, []mail.Thread{thread(1, 1)})
		f.api.On("Message", mock.Anything, uint32(1), "acc-1", "INBOX").
			Run(func(mock.Arguments) {
				assert.False(t, f.svc.Threads()[0].Seen())
				assert.True(t, f.svc.Loading())
			}).
			Return(&mail.Message{UID: 1, Text: "hello"}, nil).Once()

		f.svc.SelectThread(context.Background(), 1)

		require.NotNil(t, f.svc.Message())
		assert.Equal(t, "hello", f.svc.Message().Text)
		assert.True(t, f.svc.Threads()[0].Seen())
		assert.False(t, f.svc.Loading())

		// selecting the loaded thread again does nothing
		f.svc.SelectThread(context.Background(), 1)
		f.api.AssertNumberOfCalls(t, "Message", 1)
	})

	t.Run("failure leaves flags and message untouched", func(t *testing.T) {
		f := newMailboxFixture(t, []mail.Thread{thread(1, 1)})
		f.api.On("Message", mock.Anything, uint32(1), "acc-1", "INBOX").Return(nil, errBackend).Once()

		f.svc.SelectThread(context.Background(), 1)

		assert.Nil(t, f.svc.Message())
		assert.False(t, f.svc.Threads()[0].Seen())
		assert.False(t, f.svc.Loading())
		uid, ok := f.svc.SelectedUID()
		assert.True(t, ok)
		assert.Equal(t, uint32(1), uid)
	})
}

func TestMailboxService_SwitchAccountResetsSelection(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2)})
	f.api.On("Message", mock.Anything, uint32(2), "acc-1", "INBOX").Return(&mail.Message{UID: 2}, nil).Once()
	f.svc.SelectThread(context.Background(), 2)
	require.NotNil(t, f.svc.Message())

	f.svc.InitAccounts([]mail.Account{{ID: "acc-1"}, {ID: "acc-2"}})
	f.api.On("Mailboxes", mock.Anything, "acc-2").Return([]mail.Mailbox{{Path: "INBOX", SpecialUse: mail.SpecialInbox}}, nil).Once()
	f.api.On("Threads", mock.Anything, "acc-2", "INBOX", 1, 50).
		Run(func(mock.Arguments) {
			_, selected := f.svc.SelectedUID()
			assert.False(t, selected, "selection cleared before the thread load")
			assert.Nil(t, f.svc.Message())
			assert.Empty(t, f.svc.Threads())
		}).
		Return([]mail.Thread{thread(9, 1)}, nil).Once()

	f.svc.SwitchAccount(context.Background(), "acc-2")

	assert.Equal(t, "INBOX", f.svc.CurrentMailbox())
	assert.Equal(t, []uint32{9}, uids(f.svc.Threads()))
	f.api.AssertExpectations(t)

	// switching back uses the cached mailbox list
	f.api.On("Threads", mock.Anything, "acc-1", "INBOX", 1, 50).Return([]mail.Thread{thread(1, 1)}, nil).Once()
	f.svc.SwitchAccount(context.Background(), "acc-1")
	f.api.AssertNumberOfCalls(t, "Mailboxes", 2)

	// already active
	f.svc.SwitchAccount(context.Background(), "acc-1")
	f.api.AssertNumberOfCalls(t, "Threads", 3)
}

func TestMailboxService_SelectMailboxResetsSelection(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1)})
	f.api.On("Message", mock.Anything, uint32(1), "acc-1", "INBOX").Return(&mail.Message{UID: 1}, nil).Once()
	f.svc.SelectThread(context.Background(), 1)

	f.api.On("Threads", mock.Anything, "acc-1", "Projects", 1, 50).
		Run(func(mock.Arguments) {
			_, selected := f.svc.SelectedUID()
			assert.False(t, selected)
			assert.Nil(t, f.svc.Message())
		}).
		Return([]mail.Thread{thread(5, 1)}, nil).Once()

	f.svc.SelectMailbox(context.Background(), "Projects")
	assert.Equal(t, "Projects", f.svc.CurrentMailbox())

	// same mailbox with threads loaded is a no-op
	f.svc.SelectMailbox(context.Background(), "Projects")
	f.api.AssertExpectations(t)
}

func TestMailboxService_SpecialMailboxDedup(t *testing.T) {
	api := new(MockMailBackend)
	svc := NewMailboxService(api, nil, DefaultMailboxOptions())
	svc.InitAccounts([]mail.Account{{ID: "acc-1"}})
	api.On("Mailboxes", mock.Anything, "acc-1").Return([]mail.Mailbox{
		{Path: "Trash", SpecialUse: mail.SpecialTrash},
		{Path: "Spam", SpecialUse: mail.SpecialJunk},
		{Path: "INBOX", SpecialUse: mail.SpecialInbox},
		{Path: "Junk E-mail", SpecialUse: mail.SpecialJunk},
		{Path: "Clients"},
	}, nil).Once()

	svc.LoadMailboxes(context.Background())

	special := svc.SpecialMailboxes()
	var junk []mail.Mailbox
	for _, mb := range special {
		if mb.SpecialUse == mail.SpecialJunk {
			junk = append(junk, mb)
		}
	}
	require.Len(t, junk, 1)
	assert.Equal(t, "Spam", junk[0].Path)
	assert.Equal(t, []string{"INBOX", "Spam", "Trash"}, []string{special[0].Path, special[1].Path, special[2].Path})
	assert.Equal(t, "Clients", svc.CustomMailboxes()[0].Path)
}

func TestMailboxService_DeleteRollbackResorts(t *testing.T) {
	a, b, c := thread(1, 0), thread(2, 2), thread(3, 1)
	f := newMailboxFixture(t, []mail.Thread{a, b, c})

	f.api.On("Actions", mock.Anything, backend.ActionRequest{
		AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{2}, Action: backend.ActionDelete,
	}).Run(func(mock.Arguments) {
		assert.Equal(t, []uint32{1, 3}, uids(f.svc.Threads()), "removed before the call")
	}).Return(errBackend).Once()

	f.svc.DeleteThreads(context.Background(), []uint32{2})

	assert.Equal(t, []uint32{1, 3, 2}, uids(f.svc.Threads()))
	assert.Equal(t, "Failed to delete conversation", lastToast(t, f.toasts).Message)
}

func TestMailboxService_MoveAndArchive(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2), thread(3, 3)})
	f.api.On("Message", mock.Anything, uint32(2), "acc-1", "INBOX").Return(&mail.Message{UID: 2}, nil).Once()
	f.svc.SelectThread(context.Background(), 2)

	f.api.On("Actions", mock.Anything, backend.ActionRequest{
		AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{2}, Action: backend.ActionMove, TargetMailbox: "Projects",
	}).Return(nil).Once()
	f.svc.MoveThreads(context.Background(), []uint32{2}, "Projects")

	assert.Equal(t, []uint32{1, 3}, uids(f.svc.Threads()))
	_, selected := f.svc.SelectedUID()
	assert.False(t, selected, "moving the selected thread clears the selection")
	assert.Nil(t, f.svc.Message())

	f.api.On("Actions", mock.Anything, backend.ActionRequest{
		AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1, 3}, Action: backend.ActionArchive,
	}).Return(errBackend).Once()
	f.svc.ArchiveThreads(context.Background(), []uint32{1, 3})

	assert.Equal(t, []uint32{1, 3}, uids(f.svc.Threads()))
	assert.Equal(t, "Failed to archive 2 conversations", lastToast(t, f.toasts).Message)

	f.svc.MoveThreads(context.Background(), []uint32{1}, "")
	f.api.AssertExpectations(t)
}

func TestMailboxService_RollbackSkippedAfterReload(t *testing.T) {
	f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2)})

	f.api.On("Threads", mock.Anything, "acc-1", "INBOX", 1, 50).Return([]mail.Thread{thread(7, 1)}, nil).Once()
	f.api.On("Actions", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			f.svc.LoadThreads(context.Background(), ThreadPage{})
		}).
		Return(errBackend).Once()

	f.svc.DeleteThreads(context.Background(), []uint32{2})

	assert.Equal(t, []uint32{7}, uids(f.svc.Threads()))
}

func TestMailboxService_MarkAsRead(t *testing.T) {
	t.Run("optimistic and not rolled back by default", func(t *testing.T) {
		f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2)})
		f.api.On("Actions", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				assert.Equal(t, 0, f.svc.UnreadCount())
			}).
			Return(errBackend).Once()

		f.svc.MarkAsRead(context.Background(), []uint32{1, 2}, true)

		assert.Equal(t, 0, f.svc.UnreadCount())
		assert.Equal(t, ToastError, lastToast(t, f.toasts).Level)
	})

	t.Run("rolled back when enabled", func(t *testing.T) {
		f := newMailboxFixture(t, []mail.Thread{thread(1, 1, mail.FlagSeen), thread(2, 2)})
		f.svc.opts.RollbackMarkRead = true
		before := f.svc.Threads()
		f.api.On("Actions", mock.Anything, mock.Anything).Return(errBackend).Once()

		f.svc.MarkAsRead(context.Background(), []uint32{1, 2}, false)

		after := f.svc.Threads()
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].Seen(), after[i].Seen(), "uid %d", before[i].UID)
		}
	})

	t.Run("rollback keeps a star confirmed meanwhile", func(t *testing.T) {
		f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2, mail.FlagSeen)})
		f.svc.opts.RollbackMarkRead = true
		f.api.On("Actions", mock.Anything, backend.ActionRequest{
			AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1}, Action: backend.ActionStar,
		}).Return(nil).Once()
		f.api.On("Actions", mock.Anything, backend.ActionRequest{
			AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1, 2}, Action: backend.ActionMarkRead,
		}).
			Run(func(mock.Arguments) {
				f.svc.ToggleStar(context.Background(), 1)
			}).
			Return(errBackend).Once()

		f.svc.MarkAsRead(context.Background(), []uint32{1, 2}, true)

		byUID := make(map[uint32]mail.Thread)
		for _, th := range f.svc.Threads() {
			byUID[th.UID] = th
		}
		assert.False(t, byUID[1].Seen())
		assert.True(t, byUID[1].Flagged(), "confirmed star survives the read rollback")
		assert.True(t, byUID[2].Seen())
		f.api.AssertExpectations(t)
	})

	t.Run("mark unread request", func(t *testing.T) {
		f := newMailboxFixture(t, []mail.Thread{thread(1, 1, mail.FlagSeen)})
		f.api.On("Actions", mock.Anything, backend.ActionRequest{
			AccountID: "acc-1", Mailbox: "INBOX", UIDs: []uint32{1}, Action: backend.ActionMarkUnread,
		}).Return(nil).Once()

		f.svc.MarkAsRead(context.Background(), []uint32{1}, false)

		assert.Equal(t, 1, f.svc.UnreadCount())
		f.api.AssertExpectations(t)
	})
}

func TestMailboxService_TotalUnread(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := new(MockMailBackend)
	svc := NewMailboxService(api, nil, DefaultMailboxOptions())
	svc.InitAccounts([]mail.Account{{ID: "personal"}, {ID: "shared"}, {ID: "archive-only"}})

	api.On("Mailboxes", mock.Anything, "personal").Return([]mail.Mailbox{
		{Path: "INBOX", SpecialUse: mail.SpecialInbox, Unseen: 4},
		{Path: "Lists", Unseen: 40},
	}, nil)
	api.On("Mailboxes", mock.Anything, "shared").Return([]mail.Mailbox{
		{Path: "Support", SpecialUse: mail.SpecialInbox, Unseen: 7},
		{Path: "Junk", SpecialUse: mail.SpecialJunk, Unseen: 100},
	}, nil)
	api.On("Mailboxes", mock.Anything, "archive-only").Return([]mail.Mailbox{
		{Path: "Archive", SpecialUse: mail.SpecialArchive, Unseen: 12},
	}, nil)

	svc.LoadAllMailboxes(context.Background())

	assert.Equal(t, 11, svc.TotalUnread())
	assert.False(t, svc.Loading())
	api.AssertNumberOfCalls(t, "Mailboxes", 3)
}

func TestMailboxService_LoadAllMailboxesPartialFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := new(MockMailBackend)
	toasts := NewToastService(clock.Fake(baseTime), DefaultToastOptions())
	svc := NewMailboxService(api, toasts, DefaultMailboxOptions())
	svc.InitAccounts([]mail.Account{{ID: "a"}, {ID: "b"}})

	api.On("Mailboxes", mock.Anything, "a").Return([]mail.Mailbox{{Path: "INBOX", SpecialUse: mail.SpecialInbox, Unseen: 2}}, nil)
	api.On("Mailboxes", mock.Anything, "b").Return(nil, errBackend)

	svc.LoadAllMailboxes(context.Background())

	assert.Equal(t, 2, svc.TotalUnread())
	assert.Equal(t, "Failed to load mailboxes for some accounts", lastToast(t, toasts).Message)
}

func TestMailboxService_LoadMailboxesFailureKeepsCache(t *testing.T) {
	f := newMailboxFixture(t, nil)
	f.api.On("Mailboxes", mock.Anything, "acc-1").Return(nil, errBackend).Once()

	f.svc.LoadMailboxes(context.Background())

	assert.Len(t, f.svc.Mailboxes(), 5)
	assert.False(t, f.svc.Loading())
}

func TestMailboxService_LatestThreadLoadWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newMailboxFixture(t, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.On("Threads", mock.Anything, "acc-1", "INBOX", 1, 50).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]mail.Thread{thread(1, 1)}, nil).Once()
	f.api.On("Threads", mock.Anything, "acc-1", "INBOX", 2, 50).
		Return([]mail.Thread{thread(2, 1)}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.svc.LoadThreads(context.Background(), ThreadPage{Page: 1})
	}()
	<-started

	f.svc.LoadThreads(context.Background(), ThreadPage{Page: 2})
	close(release)
	<-done

	assert.Equal(t, []uint32{2}, uids(f.svc.Threads()))
	assert.False(t, f.svc.Loading())
}

func TestMailboxService_LatestMessageWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newMailboxFixture(t, []mail.Thread{thread(1, 1), thread(2, 2)})

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.On("Message", mock.Anything, uint32(1), "acc-1", "INBOX").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&mail.Message{UID: 1}, nil).Once()
	f.api.On("Message", mock.Anything, uint32(2), "acc-1", "INBOX").Return(&mail.Message{UID: 2}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.svc.SelectThread(context.Background(), 1)
	}()
	<-started

	f.svc.SelectThread(context.Background(), 2)
	close(release)
	<-done

	require.NotNil(t, f.svc.Message())
	assert.Equal(t, uint32(2), f.svc.Message().UID)
	assert.False(t, f.svc.Threads()[0].Seen(), "stale message does not mark its thread seen")
}

func TestMailboxService_Compose(t *testing.T) {
	f := newMailboxFixture(t, nil)

	assert.Equal(t, ErrComposeClosed.Error(), f.svc.SendDraft(context.Background()).Error)

	f.svc.OpenCompose(nil)
	c := f.svc.Compose()
	require.True(t, c.Open)
	assert.Equal(t, "acc-1", c.Draft.AccountID)
	assert.Equal(t, mail.BodyPlain, c.Draft.BodyType)
	assert.NotEmpty(t, c.Draft.ID)

	subject := "Status"
	f.svc.UpdateDraft(mail.DraftPatch{To: []string{"team@example.com"}, Subject: &subject})
	assert.Equal(t, "Status", f.svc.Compose().Draft.Subject)

	f.svc.CloseCompose()
	assert.False(t, f.svc.Compose().Open)

	// patches to a closed compose are ignored
	f.svc.UpdateDraft(mail.DraftPatch{Subject: &subject})
	assert.Empty(t, f.svc.Compose().Draft.Subject)
}

func TestMailboxService_SendDraft(t *testing.T) {
	t.Run("rejected keeps compose open", func(t *testing.T) {
		f := newMailboxFixture(t, nil)
		f.svc.OpenCompose(&mail.Draft{To: []string{"bad"}})
		f.api.On("Send", mock.Anything, mock.AnythingOfType("mail.Draft")).
			Run(func(mock.Arguments) {
				assert.True(t, f.svc.Compose().Sending)
			}).
			Return(backend.SendResult{Success: false, Error: "invalid recipient"}, nil).Once()

		res := f.svc.SendDraft(context.Background())

		assert.False(t, res.Success)
		assert.Equal(t, "invalid recipient", res.Error)
		c := f.svc.Compose()
		assert.True(t, c.Open)
		assert.False(t, c.Sending)
		assert.Equal(t, "invalid recipient", c.LastError)
	})

	t.Run("success in sent folder reloads threads", func(t *testing.T) {
		f := newMailboxFixture(t, nil)
		f.api.On("Threads", mock.Anything, "acc-1", "Sent", 1, 50).Return([]mail.Thread{}, nil).Once()
		f.svc.SelectMailbox(context.Background(), "Sent")

		f.svc.OpenCompose(&mail.Draft{To: []string{"a@example.com"}})
		f.api.On("Send", mock.Anything, mock.AnythingOfType("mail.Draft")).Return(backend.SendResult{Success: true}, nil).Once()
		f.api.On("Threads", mock.Anything, "acc-1", "Sent", 1, 50).Return([]mail.Thread{thread(4, 0)}, nil).Once()

		res := f.svc.SendDraft(context.Background())

		assert.True(t, res.Success)
		assert.False(t, f.svc.Compose().Open)
		assert.Equal(t, []uint32{4}, uids(f.svc.Threads()))
		assert.Equal(t, "Message sent", lastToast(t, f.toasts).Message)
		f.api.AssertExpectations(t)
	})

	t.Run("success elsewhere does not reload", func(t *testing.T) {
		f := newMailboxFixture(t, nil)
		f.svc.OpenCompose(nil)
		f.api.On("Send", mock.Anything, mock.AnythingOfType("mail.Draft")).Return(backend.SendResult{Success: true}, nil).Once()

		f.svc.SendDraft(context.Background())

		f.api.AssertNumberOfCalls(t, "Threads", 1)
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newMailboxFixture(t, nil)
		f.svc.OpenCompose(nil)
		f.api.On("Send", mock.Anything, mock.AnythingOfType("mail.Draft")).
			Return(backend.SendResult{}, errors.New("dial tcp: refused")).Once()

		res := f.svc.SendDraft(context.Background())

		assert.False(t, res.Success)
		assert.Equal(t, "send failed", res.Error)
		assert.True(t, f.svc.Compose().Open)
	})
}

func TestMailboxService_GoToSpecial(t *testing.T) {
	f := newMailboxFixture(t, nil)

	assert.False(t, f.svc.GoToSpecial(context.Background(), mail.SpecialArchive))

	f.api.On("Threads", mock.Anything, "acc-1", "Trash", 1, 50).Return([]mail.Thread{}, nil).Once()
	assert.True(t, f.svc.GoToSpecial(context.Background(), mail.SpecialTrash))
	assert.Equal(t, "Trash", f.svc.CurrentMailbox())
}

func TestMailboxService_Subscribe(t *testing.T) {
	f := newMailboxFixture(t, nil)

	calls := 0
	unsubscribe := f.svc.Subscribe(func() { calls++ })
	f.svc.SetSearch("x")
	f.svc.ClearFilters()
	assert.Equal(t, 2, calls)
	assert.True(t, f.svc.Filter().IsZero())

	unsubscribe()
	f.svc.SetSearch("y")
	assert.Equal(t, 2, calls)
}
