/*
 * backend/compare/ignore/matcher.go
 *
 * Field-ignore matching for comparison paths.
 * - Contains, suffix, prefix and exact-with-descendants modes.
 * - Immutable after construction; safe for concurrent reads.
 */

package ignore

import "strings"

type matchMode int

const (
	modeExact matchMode = iota
	modeContains
	modeSuffix
	modePrefix
)

type rule struct {
	mode matchMode
	text string
}

// Matcher decides whether a dotted/indexed field path is excluded from comparison.
// A nil Matcher never ignores anything.
type Matcher struct {
	patterns []string
	rules    []rule
}

// New builds a matcher from an ordered pattern list. Blank entries are skipped.
func New(patterns []string) *Matcher {
	m := &Matcher{
		patterns: make([]string, 0, len(patterns)),
		rules:    make([]rule, 0, len(patterns)),
	}
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		m.patterns = append(m.patterns, pattern)
		m.rules = append(m.rules, parseRule(pattern))
	}
	return m
}

// Patterns returns a copy of the configured patterns in their original order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Len reports how many usable patterns the matcher holds.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// ShouldIgnore reports whether path matches any configured pattern.
func (m *Matcher) ShouldIgnore(path string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.rules {
		if r.matches(path) {
			return true
		}
	}
	return false
}

// With returns a new matcher holding the receiver's patterns followed by extra.
func (m *Matcher) With(extra ...string) *Matcher {
	return New(append(m.Patterns(), extra...))
}

func (r rule) matches(path string) bool {
	switch r.mode {
	case modeContains:
		return strings.Contains(path, r.text)
	case modeSuffix:
		return strings.HasSuffix(path, r.text)
	default:
		// prefix and exact share descendant semantics: "a" covers "a", "a.b" and "a[0]".
		return coversPath(r.text, path)
	}
}

func coversPath(base, path string) bool {
	if path == base {
		return true
	}
	if !strings.HasPrefix(path, base) {
		return false
	}
	next := path[len(base)]
	return next == '.' || next == '['
}

func parseRule(pattern string) rule {
	leading, rest := trimLeadingWildcard(pattern)
	trailing, inner := trimTrailingWildcard(rest)

	switch {
	case leading && trailing:
		return rule{mode: modeContains, text: inner}
	case leading:
		return rule{mode: modeSuffix, text: inner}
	case trailing:
		return rule{mode: modePrefix, text: inner}
	default:
		return rule{mode: modeExact, text: pattern}
	}
}

func trimLeadingWildcard(s string) (bool, string) {
	switch {
	case strings.HasPrefix(s, ".*"):
		return true, s[2:]
	case strings.HasPrefix(s, "*"):
		return true, s[1:]
	}
	return false, s
}

func trimTrailingWildcard(s string) (bool, string) {
	switch {
	case strings.HasSuffix(s, ".*"):
		return true, s[:len(s)-2]
	case strings.HasSuffix(s, "*"):
		return true, s[:len(s)-1]
	}
	return false, s
}
