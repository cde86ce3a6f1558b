package content

import (
	"regexp"
	"strings"
)

// MaxContentLength caps page body content, in characters.
const MaxContentLength = 5000

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

// Normalize converts raw markup into plain text: script and style blocks are dropped
// with their contents, every remaining tag becomes a space, and whitespace runs collapse
// to a single space with both ends trimmed.
//
// Normalize is total over arbitrary input and idempotent. Entities are left encoded,
// since decoding them could produce new tags on a second pass.
func Normalize(markup string) string {
	text := scriptBlockRe.ReplaceAllString(markup, "")
	text = styleBlockRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, " ")
	return normalizeWhitespace(text)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns the first max characters of s.
func Truncate(s string, max int) string {
	if max < 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
