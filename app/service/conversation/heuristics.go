package conversation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	releaseWordsJP = regexp.MustCompile(`(リリースノート|変更点|変更履歴|ハイライト|新機能|何が(新しい|変わった)|教えて)`)
	releaseWordsEN = regexp.MustCompile(`(?i)(release\s*notes?|changelog|what'?s\s*new|highlights?|patch\s*notes?)`)
	versionNumber  = regexp.MustCompile(`\b\d+\.\d+(\.\d+)?\b`)
)

// ShouldForceSearch reports whether the text asks about releases or versions,
// which the model must answer from a web search.
func ShouldForceSearch(text string) bool {
	return releaseWordsJP.MatchString(text) ||
		releaseWordsEN.MatchString(text) ||
		versionNumber.MatchString(text)
}

// IsEcho reports whether reply repeats userText, ignoring whitespace.
func IsEcho(userText, reply string) bool {
	u := dropWhitespace(userText)
	r := dropWhitespace(reply)

	return u != "" && r != "" && u == r
}

func dropWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
