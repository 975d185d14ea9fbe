package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/derailed/tview"
	"golang.org/x/net/html"

	"github.com/nicholasglazer/admin-console/internal/mail"
)

// LinkRef is a hyperlink collected from a message body
type LinkRef struct {
	Index int
	URL   string
	Text  string
}

// FormatOptions controls terminal formatting behavior
type FormatOptions struct {
	WrapWidth int
	// ShowLinks appends a [LINKS] section listing collected URLs
	ShowLinks bool
}

var plainURL = regexp.MustCompile(`(?i)\bhttps?://[\w\-\._~:/%\?#\[\]@!$&'()*+,;=]+`)

// FormatMessage renders a message body for the message pane. HTML bodies
// are converted to text; links are replaced by [n] references.
func FormatMessage(msg *mail.Message, opts FormatOptions) string {
	if msg == nil {
		return ""
	}

	var (
		body  string
		links []LinkRef
	)
	if strings.TrimSpace(msg.HTML) != "" {
		if b, l, err := HTMLToText(msg.HTML); err == nil {
			body, links = b, l
		}
	}
	if strings.TrimSpace(body) == "" {
		body = msg.Text
	}
	body = normalizeNewlines(body)

	if len(links) == 0 {
		links, body = detectPlainTextLinks(body)
	}
	if opts.WrapWidth > 0 {
		body = WrapText(body, opts.WrapWidth)
	}
	body = dedupeConsecutiveLines(sanitizeForTerminal(body))

	var out strings.Builder
	out.WriteString(strings.TrimSpace(body))
	out.WriteString("\n")
	if opts.ShowLinks && len(links) > 0 {
		out.WriteString("\n[LINKS]\n")
		for _, l := range links {
			fmt.Fprintf(&out, "(%d) %s\n", l.Index, l.URL)
		}
	}
	return out.String()
}

// FormatHeader renders the From/To/Cc/Date/Subject block shown above a
// message, with tview color tags on the keys
func FormatHeader(msg *mail.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	line := func(key, val string) {
		if val == "" {
			return
		}
		fmt.Fprintf(&b, "[yellow]%s:[-] %s\n", key, tview.Escape(val))
	}
	line("Subject", msg.Subject)
	line("From", msg.From.String())
	line("To", joinAddresses(msg.To))
	line("Cc", joinAddresses(msg.Cc))
	if !msg.Date.IsZero() {
		line("Date", msg.Date.Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	}
	return b.String()
}

func joinAddresses(addrs []mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

func detectPlainTextLinks(input string) ([]LinkRef, string) {
	var links []LinkRef
	replaced := plainURL.ReplaceAllStringFunc(input, func(m string) string {
		links = append(links, LinkRef{Index: len(links) + 1, URL: m, Text: m})
		return fmt.Sprintf("[%d]", len(links))
	})
	return links, replaced
}

// HTMLToText converts an HTML body into terminal text and collects its
// links in document order
func HTMLToText(src string) (string, []LinkRef, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", nil, err
	}

	w := &htmlWriter{}
	w.visit(doc)
	return strings.TrimSpace(normalizeNewlines(w.b.String())), w.links, nil
}

type htmlWriter struct {
	b          strings.Builder
	links      []LinkRef
	quoteDepth int
	inPre      bool
}

func (w *htmlWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

func (w *htmlWriter) visit(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	switch strings.ToLower(n.Data) {
	case "head", "style", "script", "title", "meta", "link":
		return
	case "br":
		w.b.WriteByte('\n')
	case "hr":
		w.b.WriteString("\n-----\n")
	case "p", "h1", "h2", "h3", "h4", "h5", "h6":
		w.children(n)
		w.b.WriteString("\n\n")
	case "div", "section", "tr":
		w.children(n)
		w.b.WriteByte('\n')
	case "td", "th":
		w.children(n)
		w.b.WriteByte(' ')
	case "li":
		w.b.WriteString("- ")
		w.children(n)
		w.b.WriteByte('\n')
	case "blockquote":
		w.quoteDepth++
		w.children(n)
		w.quoteDepth--
		w.b.WriteByte('\n')
	case "pre":
		was := w.inPre
		w.inPre = true
		w.b.WriteString("\n```\n")
		w.children(n)
		w.b.WriteString("\n```\n")
		w.inPre = was
	case "a":
		w.anchor(n)
	default:
		w.children(n)
	}
}

func (w *htmlWriter) text(data string) {
	if w.inPre {
		w.b.WriteString(data)
		return
	}
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		if data != "" {
			w.space()
		}
		return
	}
	if unicode.IsSpace(rune(data[0])) {
		w.space()
	}
	w.inline(text)
	if unicode.IsSpace(rune(data[len(data)-1])) {
		w.space()
	}
}

// inline writes a run of text, starting quoted lines with "> "
func (w *htmlWriter) inline(s string) {
	if w.quoteDepth > 0 && w.atLineStart() {
		w.b.WriteString(strings.Repeat("> ", min(w.quoteDepth, 3)))
	}
	w.b.WriteString(s)
}

func (w *htmlWriter) atLineStart() bool {
	s := w.b.String()
	return s == "" || s[len(s)-1] == '\n'
}

func (w *htmlWriter) space() {
	s := w.b.String()
	if s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		w.b.WriteByte(' ')
	}
}

func (w *htmlWriter) anchor(n *html.Node) {
	var href string
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, "href") {
			href = strings.TrimSpace(a.Val)
		}
	}
	var inner strings.Builder
	collectText(&inner, n)
	label := strings.Join(strings.Fields(inner.String()), " ")
	if label == "" {
		label = href
	}
	if href == "" || strings.HasPrefix(strings.ToLower(href), "mailto:") {
		w.inline(label)
		return
	}
	w.links = append(w.links, LinkRef{Index: len(w.links) + 1, URL: href, Text: label})
	w.inline(fmt.Sprintf("%s [%d]", label, len(w.links)))
}

func collectText(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
			continue
		}
		collectText(b, c)
	}
}

// sanitizeForTerminal replaces rich-text glyphs that render as tofu
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u00A0', '\u202F':
			b.WriteRune(' ')
		case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u00AD', '\u2060':
			// zero-width, dropped
		case '\u2013', '\u2014':
			b.WriteRune('-')
		case '\u2018', '\u2019':
			b.WriteRune('\'')
		case '\u201C', '\u201D':
			b.WriteRune('"')
		case '\u2022':
			b.WriteRune('-')
		case '\u2026':
			b.WriteString("...")
		default:
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupeConsecutiveLines drops repeated lines and collapses blank runs
func dedupeConsecutiveLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	prev := ""
	for _, ln := range lines {
		cur := strings.TrimRight(ln, " \t")
		trimmed := strings.TrimSpace(cur)
		if trimmed != "" && trimmed == prev {
			continue
		}
		out = append(out, cur)
		prev = trimmed
	}
	return normalizeNewlines(strings.Join(out, "\n"))
}

// WrapText soft-wraps lines to width, keeping quote prefixes, code
// fences and bare URLs intact
func WrapText(input string, width int) string {
	if width <= 0 {
		return input
	}
	lines := strings.Split(input, "\n")
	out := make([]string, 0, len(lines))
	inCode := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
		}
		if inCode || displayWidth(line) <= width {
			out = append(out, line)
			continue
		}

		prefix := ""
		rest := line
		for strings.HasPrefix(rest, "> ") {
			prefix += "> "
			rest = rest[2:]
		}
		cur := prefix
		for _, tok := range strings.Fields(rest) {
			if cur != prefix && displayWidth(cur)+1+displayWidth(tok) > width {
				out = append(out, cur)
				cur = prefix
			}
			if cur == prefix {
				cur += tok
			} else {
				cur += " " + tok
			}
		}
		out = append(out, cur)
	}
	return strings.Join(out, "\n")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
