package chat

import (
	"strings"
	"unicode"
)

// Mention is a leading "@token rest" addressed to a persona.
type Mention struct {
	Token string
	Rest  string
}

func isTokenByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-'
}

// ParseMention matches "@<token><whitespace><rest>" anchored at the start of
// text. The token is made of ASCII letters, digits, '_' and '-' and must not
// be empty. At least one whitespace character must separate it from a rest
// that contains a non-space character and no line break.
func ParseMention(text string) (Mention, bool) {
	if len(text) < 2 || text[0] != '@' {
		return Mention{}, false
	}
	i := 1
	for i < len(text) && isTokenByte(text[i]) {
		i++
	}
	if i == 1 || i == len(text) {
		return Mention{}, false
	}

	rest := strings.TrimLeftFunc(text[i:], unicode.IsSpace)
	if len(rest) == len(text)-i || rest == "" || strings.ContainsAny(rest, "\r\n") {
		return Mention{}, false
	}
	return Mention{Token: text[1:i], Rest: strings.TrimRightFunc(rest, unicode.IsSpace)}, true
}

// TrailingMention finds "@<token>" at the very end of input, where token may
// be empty. start is the byte offset of the '@'.
func TrailingMention(input string) (token string, start int, ok bool) {
	i := len(input)
	for i > 0 && isTokenByte(input[i-1]) {
		i--
	}
	if i == 0 || input[i-1] != '@' {
		return "", -1, false
	}
	return input[i:], i - 1, true
}

// ReplaceTrailingMention swaps the trailing "@token" for "@id ".
func ReplaceTrailingMention(input, id string) string {
	_, start, ok := TrailingMention(input)
	if !ok {
		return input
	}
	return input[:start] + "@" + id + " "
}

// FilterSuggestions returns the ids matching token by case-insensitive
// prefix, in their original order. An empty token matches everything.
func FilterSuggestions(ids []string, token string) []string {
	prefix := strings.ToLower(token)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id), prefix) {
			out = append(out, id)
		}
	}
	return out
}

// MentionPicker is the autocompletion state behind the input box.
type MentionPicker struct {
	ids         []string
	suggestions []string
	index       int
	dismissed   bool
	lastInput   string
}

// NewMentionPicker returns a picker offering ids.
func NewMentionPicker(ids []string) *MentionPicker {
	return &MentionPicker{ids: append([]string(nil), ids...)}
}

// Update rescans input after a keystroke. Escape dismissal holds until the
// input changes.
func (p *MentionPicker) Update(input string) {
	if p.dismissed && input == p.lastInput {
		return
	}
	p.dismissed = false
	p.lastInput = input
	p.index = 0

	token, _, ok := TrailingMention(input)
	if !ok {
		p.suggestions = nil
		return
	}
	p.suggestions = FilterSuggestions(p.ids, token)
}

// Visible reports whether the suggestion panel should be shown.
func (p *MentionPicker) Visible() bool {
	return !p.dismissed && len(p.suggestions) > 0
}

// Suggestions returns the current matches.
func (p *MentionPicker) Suggestions() []string {
	return append([]string(nil), p.suggestions...)
}

// Index returns the highlighted suggestion.
func (p *MentionPicker) Index() int { return p.index }

// Down moves the highlight one step, stopping at the last suggestion.
func (p *MentionPicker) Down() {
	if p.index < len(p.suggestions)-1 {
		p.index++
	}
}

// Up moves the highlight one step, stopping at the first suggestion.
func (p *MentionPicker) Up() {
	if p.index > 0 {
		p.index--
	}
}

// Commit replaces the trailing mention of input with the highlighted id.
// ok is false when the panel is hidden and input is returned as is.
func (p *MentionPicker) Commit(input string) (string, bool) {
	if !p.Visible() {
		return input, false
	}
	out := ReplaceTrailingMention(input, p.suggestions[p.index])
	p.suggestions = nil
	p.index = 0
	p.lastInput = out
	return out, true
}

// Dismiss hides the panel without touching the input.
func (p *MentionPicker) Dismiss() {
	p.dismissed = true
}
