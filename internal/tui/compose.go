package tui

import (
	"fmt"
	"strings"

	"github.com/derailed/tview"

	"github.com/nicholasglazer/admin-console/internal/mail"
	"github.com/nicholasglazer/admin-console/internal/render"
)

// syncCompose shows or hides the compose form to match the mailbox
// state; call on the UI goroutine
func (a *App) syncCompose() {
	st := a.svc.Mailbox.Compose()
	switch {
	case st.Open && a.composeShown != st.Draft.ID:
		if a.composeShown != "" {
			a.Pages.RemovePage("compose")
		}
		a.composeShown = st.Draft.ID
		a.navigator.Disable()
		form := a.buildComposeForm(st.Draft)
		a.views["compose"] = form
		a.Pages.AddPage("compose", centered(form, 80, 16), true, true)
		a.SetFocus(form)
	case !st.Open && a.composeShown != "":
		a.composeShown = ""
		a.Pages.RemovePage("compose")
		delete(a.views, "compose")
		a.navigator.Enable()
		a.restoreFocus()
		return
	}
	if form, ok := a.views["compose"].(*tview.Form); ok {
		form.SetTitle(composeTitle(st.Sending, st.LastError))
	}
}

func composeTitle(sending bool, lastError string) string {
	switch {
	case sending:
		return " Sending… "
	case lastError != "":
		return " Compose: " + tview.Escape(lastError) + " "
	}
	return " Compose "
}

// buildComposeForm builds the form editing d. Every change is written
// back into the draft.
func (a *App) buildComposeForm(d mail.Draft) *tview.Form {
	mb := a.svc.Mailbox
	form := tview.NewForm()
	form.SetBorder(true).SetTitleAlign(tview.AlignLeft)

	form.AddInputField("To", strings.Join(d.To, ", "), 0, nil, func(text string) {
		mb.UpdateDraft(mail.DraftPatch{To: splitAddresses(text)})
	})
	form.AddInputField("Cc", strings.Join(d.Cc, ", "), 0, nil, func(text string) {
		mb.UpdateDraft(mail.DraftPatch{Cc: splitAddresses(text)})
	})
	form.AddInputField("Subject", d.Subject, 0, nil, func(text string) {
		mb.UpdateDraft(mail.DraftPatch{Subject: &text})
	})
	form.AddInputField("Body", d.Body, 0, nil, func(text string) {
		mb.UpdateDraft(mail.DraftPatch{Body: &text})
	})
	form.AddButton("Send", func() {
		go mb.SendDraft(a.ctx)
	})
	form.AddButton("Cancel", mb.CloseCompose)
	form.SetCancelFunc(mb.CloseCompose)
	return form
}

// centered wraps p in a fixed size box in the middle of the screen
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

// openReply opens compose prefilled as a reply to the open message
func (a *App) openReply(uid uint32, all bool) {
	msg := a.svc.Mailbox.Message()
	if msg == nil || msg.UID != uid {
		a.errorHandler.ShowWarning(a.ctx, "Message is still loading")
		return
	}
	self := ""
	if acct, ok := a.svc.Mailbox.ActiveAccount(); ok {
		self = acct.Email
	}
	d := replyDraft(msg, all, self)
	a.svc.Mailbox.OpenCompose(&d)
}

// openForward opens compose prefilled with the open message
func (a *App) openForward(uid uint32) {
	msg := a.svc.Mailbox.Message()
	if msg == nil || msg.UID != uid {
		a.errorHandler.ShowWarning(a.ctx, "Message is still loading")
		return
	}
	d := forwardDraft(msg)
	a.svc.Mailbox.OpenCompose(&d)
}

// splitAddresses parses a comma or semicolon separated recipient list.
// An empty list is returned non-nil so it clears the draft field.
func splitAddresses(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// replyDraft addresses a reply to the sender, and with all to every
// other recipient except self
func replyDraft(msg *mail.Message, all bool, self string) mail.Draft {
	d := mail.Draft{
		To:        []string{msg.From.Address},
		Subject:   prefixSubject("Re: ", msg.Subject),
		Body:      "\n\n" + quoteBody(msg),
		BodyType:  mail.BodyPlain,
		InReplyTo: msg.MessageID,
	}
	if !all {
		return d
	}
	seen := map[string]bool{strings.ToLower(msg.From.Address): true}
	if self != "" {
		seen[strings.ToLower(self)] = true
	}
	for _, addr := range append(append([]mail.Address(nil), msg.To...), msg.Cc...) {
		key := strings.ToLower(addr.Address)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		d.Cc = append(d.Cc, addr.Address)
	}
	return d
}

// forwardDraft copies the message below a forwarded header
func forwardDraft(msg *mail.Message) mail.Draft {
	var b strings.Builder
	b.WriteString("\n\n---------- Forwarded message ----------\n")
	fmt.Fprintf(&b, "From: %s\n", msg.From.String())
	fmt.Fprintf(&b, "Date: %s\n", msg.Date.Format("Mon, 2 Jan 2006 15:04"))
	fmt.Fprintf(&b, "Subject: %s\n\n", msg.Subject)
	b.WriteString(messageText(msg))
	return mail.Draft{
		Subject:  prefixSubject("Fwd: ", msg.Subject),
		Body:     b.String(),
		BodyType: mail.BodyPlain,
	}
}

func prefixSubject(prefix, subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	return prefix + subject
}

func quoteBody(msg *mail.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "On %s, %s wrote:\n", msg.Date.Format("Mon, 2 Jan 2006 at 15:04"), msg.From.String())
	for _, line := range strings.Split(messageText(msg), "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func messageText(msg *mail.Message) string {
	return strings.TrimRight(render.FormatMessage(msg, render.FormatOptions{ShowLinks: true}), "\n")
}
