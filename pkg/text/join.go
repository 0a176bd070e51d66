package text

import (
	"regexp"
	"strings"
)

var lowerRunRe = regexp.MustCompile(`[a-z]+`)

// Join rebuilds a sentence from tokens: single spaces between tokens and no
// space before a comma or a full stop.
func Join(tokens []string) string {
	out := strings.TrimSpace(strings.Join(tokens, " "))
	out = spacesRe.ReplaceAllString(out, " ")
	out = strings.ReplaceAll(out, " ,", ",")
	out = strings.ReplaceAll(out, " .", ".")
	return out
}

// WordCore returns the first run of ASCII letters in the lowercased word, or ""
// when there is none. "Running!" -> "running", "42" -> "".
//
// Non-ASCII letters end a run, so "Häuser" yields "h".
func WordCore(word string) string {
	return lowerRunRe.FindString(strings.ToLower(word))
}
