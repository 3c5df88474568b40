package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	rawURLRe       = regexp.MustCompile(`https?://[^\s)]+`)
	domainRe       = regexp.MustCompile(`^https?://([^/\s?]+)`)
	spacesRe       = regexp.MustCompile(`[ \t]+`)
)

// NormalizeLinks replaces markdown links and bare URLs with "(domain)".
func NormalizeLinks(s string) string {
	s = markdownLinkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := markdownLinkRe.FindStringSubmatch(m)
		return "(" + domainOf(sub[2]) + ")"
	})
	s = rawURLRe.ReplaceAllStringFunc(s, func(m string) string {
		return "(" + domainOf(m) + ")"
	})
	s = strings.NewReplacer("（", "(", "）", ")", "　", " ").Replace(s)
	s = spacesRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

func domainOf(url string) string {
	if m := domainRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}

	return "source"
}

// FitPlain normalizes links and cuts s to at most limit characters. Whole
// lines are kept while they fit; when not even the first line fits the text
// is truncated with an ellipsis.
func FitPlain(s string, limit int) string {
	s = NormalizeLinks(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	var acc string
	for _, line := range strings.Split(s, "\n") {
		candidate := line
		if acc != "" {
			candidate = acc + "\n" + line
		}
		if utf8.RuneCountInString(candidate) > limit {
			break
		}
		acc = candidate
	}
	if acc != "" {
		return acc
	}

	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
