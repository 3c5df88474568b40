package textutil

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML turns status markup into plain text. Entities are decoded, <br>
// and paragraph breaks become newlines, everything else between tags is
// dropped.
func StripHTML(markup string) string {
	var sb strings.Builder
	paragraphs := 0

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail, either way the text so far is the result
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br":
				sb.WriteByte('\n')
			case "p":
				if paragraphs > 0 {
					sb.WriteByte('\n')
				}
				paragraphs++
			}
		}
	}
}
