package query

import (
	"regexp"
	"strings"
)

// wordBoundary is the regexp the whole-word and wildcard patterns are
// wrapped in. \W and \w are ASCII only.
const (
	wordStart = `(?:^|\W)`
	wordEnd   = `(?:\W|$)`
)

// wordPattern matches text as a whole word (or phrase) inside a value
func wordPattern(text string) string {
	return wordStart + regexp.QuoteMeta(text) + wordEnd
}

// wildcardPattern translates * and ? into regexp, quoting everything else
func wildcardPattern(text string) string {
	var b strings.Builder
	b.WriteString(wordStart)
	for _, r := range text {
		switch r {
		case '*':
			b.WriteString(`\w*`)
		case '?':
			b.WriteString(`\w`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(wordEnd)
	return b.String()
}

// textPattern renders one TextConstraint text as a regexp
func textPattern(text string, pt PatternType, caseSensitive bool) (string, error) {
	var pattern string
	switch pt {
	case PatternRegex:
		pattern = text
	case PatternWildcard:
		pattern = wildcardPattern(text)
	default:
		pattern = wordPattern(text)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return "", err
	}
	return pattern, nil
}
