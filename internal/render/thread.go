package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/mail"
)

const (
	starMark   = "★"
	unreadMark = "●"
	dateWidth  = 6
	fromWidth  = 22
)

// ThreadRenderer formats thread list rows
type ThreadRenderer struct {
	UnreadColor  tcell.Color
	ReadColor    tcell.Color
	StarredColor tcell.Color
}

// NewThreadRenderer creates a renderer with the default theme colors
func NewThreadRenderer() *ThreadRenderer {
	r := &ThreadRenderer{}
	r.UpdateFromConfig(config.DefaultColors())
	return r
}

// UpdateFromConfig applies theme colors
func (r *ThreadRenderer) UpdateFromConfig(colors *config.ColorsConfig) {
	if colors == nil {
		return
	}
	r.UnreadColor = colors.Thread.UnreadColor.Color()
	r.ReadColor = colors.Thread.ReadColor.Color()
	r.StarredColor = colors.Thread.StarredColor.Color()
}

// Color picks the row color from the thread flags
func (r *ThreadRenderer) Color(t mail.Thread) tcell.Color {
	switch {
	case t.Flagged():
		return r.StarredColor
	case !t.Seen():
		return r.UnreadColor
	default:
		return r.ReadColor
	}
}

// FormatRow renders "marks | sender | subject - snippet | date" fitted to
// width display cells
func (r *ThreadRenderer) FormatRow(t mail.Thread, width int, now time.Time) (string, tcell.Color) {
	marks := " "
	if !t.Seen() {
		marks = unreadMark
	}
	if t.Flagged() {
		marks += starMark
	} else {
		marks += " "
	}

	from := SenderName(t.From)
	if t.MessageCount > 1 {
		from = fmt.Sprintf("%s (%d)", from, t.MessageCount)
	}

	subject := t.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	if t.Snippet != "" {
		subject += " - " + t.Snippet
	}

	date := RelativeTime(t.Date, now)

	fixed := runewidth.StringWidth(marks) + 1 + fromWidth + 1 + 1 + dateWidth
	subjectWidth := width - fixed
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	row := marks + " " + FitWidth(from, fromWidth) + " " + FitWidth(subject, subjectWidth) + " " + RightFit(date, dateWidth)
	return row, r.Color(t)
}

// SenderName prefers the display name, falling back to the address
func SenderName(a mail.Address) string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if a.Address == "" {
		return "(no sender)"
	}
	return a.Address
}

// RelativeTime renders a compact age like "5m", "3h", "2d" or "Jan 2"
func RelativeTime(date, now time.Time) string {
	if date.IsZero() {
		return ""
	}
	diff := now.Sub(date)
	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(diff.Hours()/24))
	case date.Year() == now.Year():
		return date.Format("Jan 2")
	default:
		return date.Format("01/06")
	}
}

// FitWidth truncates and pads on the right to exactly width cells
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// RightFit truncates from the left and right-aligns to width cells
func RightFit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.TruncateLeft(s, width, "")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}

func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}
