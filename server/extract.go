package main

import (
	"regexp"
	"strings"
	"time"
)

// FactCandidate is a structured fact found in a chat message.
type FactCandidate struct {
	Type       string
	Value      string
	Normalized string
	Confidence float64
	Source     string
}

var (
	birthdayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my )?birthday is (?:on )?([A-Za-z0-9,\-\s]+)`),
		regexp.MustCompile(`(?i)(?:i was )?born on ([A-Za-z0-9,\-/\s]+)`),
		regexp.MustCompile(`(?i)birthday: (\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)born (?:on )?([A-Za-z0-9,\-/\s]+)`),
	}
	namePattern = regexp.MustCompile(`(?i)^i(?:'| )?m\s+([A-Z][a-zA-Z\-']+)`)

	savePhrases = []*regexp.Regexp{
		regexp.MustCompile(`\bremember that\b`),
		regexp.MustCompile(`\bplease remember\b`),
		regexp.MustCompile(`\bsave my\b`),
		regexp.MustCompile(`\bdon't forget\b`),
		regexp.MustCompile(`\bdo not forget\b`),
		regexp.MustCompile(`\bremember my\b`),
		regexp.MustCompile(`\bstore my\b`),
		regexp.MustCompile(`\bcan you remember\b`),
	}

	dateLayouts = []string{
		"2006-01-02",
		"02/01/2006",
		"02-01-2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"January 2",
		"Jan 2",
	}
)

// ExtractFacts runs the regex extractors over text. Every matching birthday
// pattern yields a candidate; callers upsert by type so duplicates collapse.
func ExtractFacts(text string) []FactCandidate {
	var out []FactCandidate
	for _, p := range birthdayPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[1])
		out = append(out, FactCandidate{
			Type:       "birthday",
			Value:      raw,
			Normalized: parseDate(raw),
			Confidence: 0.95,
			Source:     "regex",
		})
	}
	if m := namePattern.FindStringSubmatch(text); m != nil {
		out = append(out, FactCandidate{
			Type:       "name",
			Value:      m[1],
			Normalized: m[1],
			Confidence: 0.8,
			Source:     "regex",
		})
	}
	return out
}

// IsExplicitSave reports whether the user asked for something to be kept.
func IsExplicitSave(text string) bool {
	t := strings.ToLower(text)
	for _, p := range savePhrases {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

// parseDate normalizes a date to YYYY-MM-DD, or returns "" when no layout
// fits. Layouts without a year keep year zero.
func parseDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
