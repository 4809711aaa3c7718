package composer

import (
	"strings"
	"unicode"
)

// SlashMatch is an in-progress "/query" token ending at the caret.
type SlashMatch struct {
	Query string
	Start int // offset of the '/'
	End   int // caret offset
}

// Token is the matched trigger text including the slash.
func (m SlashMatch) Token() string { return "/" + m.Query }

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// DetectSlash looks for a trigger token that ends exactly at caret. Only the
// caret's own line is scanned. The slash must sit at the start of the line or
// follow whitespace.
func DetectSlash(text []rune, caret int) (SlashMatch, bool) {
	if caret <= 0 || caret > len(text) {
		return SlashMatch{}, false
	}
	i := caret
	for i > 0 && text[i-1] != '\n' && isWordRune(text[i-1]) {
		i--
	}
	if i == 0 || text[i-1] != '/' {
		return SlashMatch{}, false
	}
	slash := i - 1
	if slash > 0 && !unicode.IsSpace(text[slash-1]) {
		return SlashMatch{}, false
	}
	return SlashMatch{Query: string(text[i:caret]), Start: slash, End: caret}, true
}

// triggerRange returns the range a menu commit should replace. Content that
// is only the token is replaced whole. Otherwise the range recorded at
// detection wins while it still holds the token, widened over word runes
// after the caret so a token completed mid-word goes as a whole. A stale
// range falls back to locateToken.
func triggerRange(text []rune, match SlashMatch) (int, int, bool) {
	tok := []rune(match.Token())
	if strings.TrimSpace(string(text)) == match.Token() {
		return 0, len(text), true
	}
	if match.Start >= 0 && match.End == match.Start+len(tok) && match.End <= len(text) &&
		runesEqual(text[match.Start:match.End], tok) {
		end := match.End
		for end < len(text) && isWordRune(text[end]) {
			end++
		}
		return match.Start, end, true
	}
	return locateToken(text, match.Token())
}

// locateToken finds the rune range of token in text for a menu commit:
// the whole content when it is just the token, otherwise the last occurrence
// preceded by whitespace, otherwise a trailing occurrence.
func locateToken(text []rune, token string) (int, int, bool) {
	tok := []rune(token)
	if len(tok) == 0 {
		return 0, 0, false
	}
	if strings.TrimSpace(string(text)) == token {
		return 0, len(text), true
	}
	for i := len(text) - len(tok); i > 0; i-- {
		if unicode.IsSpace(text[i-1]) && runesEqual(text[i:i+len(tok)], tok) {
			return i, i + len(tok), true
		}
	}
	if len(text) >= len(tok) && runesEqual(text[len(text)-len(tok):], tok) {
		return len(text) - len(tok), len(text), true
	}
	return 0, 0, false
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
