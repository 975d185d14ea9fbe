package mail

import "strings"

// Filter holds the client-side view predicates over the loaded threads
type Filter struct {
	Query       string
	UnreadOnly  bool
	StarredOnly bool
}

// IsZero reports whether the filter lets every thread through
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && !f.UnreadOnly && !f.StarredOnly
}

// Match applies the filter to a single thread. The query is matched
// case-insensitively against subject, sender address, sender name and
// snippet.
func (f Filter) Match(t Thread) bool {
	if f.UnreadOnly && t.Seen() {
		return false
	}
	if f.StarredOnly && !t.Flagged() {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{t.Subject, t.From.Address, t.From.Name, t.Snippet} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns the matching threads in their original order
func (f Filter) Apply(threads []Thread) []Thread {
	out := make([]Thread, 0, len(threads))
	for _, t := range threads {
		if f.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
