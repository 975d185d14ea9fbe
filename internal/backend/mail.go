package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nicholasglazer/admin-console/internal/mail"
)

// Action names understood by the mail backend
const (
	ActionStar       = "star"
	ActionUnstar     = "unstar"
	ActionMarkRead   = "markRead"
	ActionMarkUnread = "markUnread"
	ActionMove       = "move"
	ActionDelete     = "delete"
	ActionArchive    = "archive"
)

// ActionRequest is the body of a thread action
type ActionRequest struct {
	AccountID     string   `json:"accountId"`
	Mailbox       string   `json:"mailbox"`
	UIDs          []uint32 `json:"uids"`
	Action        string   `json:"action"`
	TargetMailbox string   `json:"targetMailbox,omitempty"`
}

// SendResult reports the outcome of sending a draft
type SendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MailAPI talks to the mail backend that fronts IMAP/SMTP over HTTP
type MailAPI struct {
	c      *Client
	prefix string
}

// NewMailAPI creates a mail API on top of c. Paths are rooted at prefix
// (for example "/api/mail").
func NewMailAPI(c *Client, prefix string) *MailAPI {
	return &MailAPI{c: c, prefix: prefix}
}

// Accounts lists the mail accounts visible to the session
func (m *MailAPI) Accounts(ctx context.Context) ([]mail.Account, error) {
	var out struct {
		Accounts []mail.Account `json:"accounts"`
	}
	err := m.c.call(ctx, request{
		op:       "list accounts",
		method:   http.MethodGet,
		path:     m.prefix + "/accounts",
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// Mailboxes lists the folders of one account
func (m *MailAPI) Mailboxes(ctx context.Context, accountID string) ([]mail.Mailbox, error) {
	if accountID == "" {
		return nil, fmt.Errorf("accountID cannot be empty")
	}
	var out struct {
		Mailboxes []mail.Mailbox `json:"mailboxes"`
	}
	err := m.c.call(ctx, request{
		op:       "list mailboxes",
		method:   http.MethodGet,
		path:     m.prefix + "/mailboxes",
		query:    url.Values{"accountId": {accountID}},
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Mailboxes, nil
}

// Threads fetches one page of threads
func (m *MailAPI) Threads(ctx context.Context, accountID, mailbox string, page, limit int) ([]mail.Thread, error) {
	var out struct {
		Threads []mail.Thread `json:"threads"`
	}
	err := m.c.call(ctx, request{
		op:     "list threads",
		method: http.MethodGet,
		path:   m.prefix + "/threads",
		query: url.Values{
			"accountId": {accountID},
			"mailbox":   {mailbox},
			"page":      {strconv.Itoa(page)},
			"limit":     {strconv.Itoa(limit)},
		},
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// Message fetches the full message. The backend marks it read as a side
// effect.
func (m *MailAPI) Message(ctx context.Context, uid uint32, accountID, mailbox string) (*mail.Message, error) {
	var out struct {
		Message *mail.Message `json:"message"`
	}
	err := m.c.call(ctx, request{
		op:     "get message",
		method: http.MethodGet,
		path:   m.prefix + "/message",
		query: url.Values{
			"uid":       {strconv.FormatUint(uint64(uid), 10)},
			"accountId": {accountID},
			"mailbox":   {mailbox},
		},
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Message == nil {
		return nil, &Error{Op: "get message", Kind: KindParse, Message: "response has no message"}
	}
	return out.Message, nil
}

// Actions applies a flag or move action to a set of threads
func (m *MailAPI) Actions(ctx context.Context, req ActionRequest) error {
	if len(req.UIDs) == 0 {
		return fmt.Errorf("no uids provided")
	}
	return m.c.call(ctx, request{
		op:       "thread action " + req.Action,
		method:   http.MethodPost,
		path:     m.prefix + "/actions",
		body:     req,
		envelope: true,
	}, nil)
}

// Send posts a draft. A success:false payload is returned as a result,
// not as an error, so the compose view can show the field-level message.
func (m *MailAPI) Send(ctx context.Context, draft mail.Draft) (SendResult, error) {
	raw, err := m.c.send(ctx, request{
		op:     "send message",
		method: http.MethodPost,
		path:   m.prefix + "/send",
		body:   draft,
	})
	if err != nil {
		return SendResult{Success: false, Error: errorMessage(err)}, err
	}
	var res SendResult
	if err := decodeInto("send message", raw, &res); err != nil {
		return SendResult{Success: false, Error: "unexpected response"}, err
	}
	return res, nil
}

func errorMessage(err error) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return "send failed"
}
