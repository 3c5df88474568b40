package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "mention paragraph",
			markup: `<p><span class="h-card"><a href="https://ex.social/@bot" class="u-url mention">@<span>bot</span></a></span> 今日の天気は？</p>`,
			want:   "@bot 今日の天気は？",
		},
		{
			name:   "entities",
			markup: `<p>Tom &amp; Jerry &lt;3 &quot;cheese&quot; it&#39;s</p>`,
			want:   `Tom & Jerry <3 "cheese" it's`,
		},
		{
			name:   "line breaks and paragraphs",
			markup: `<p>one<br>two</p><p>three</p>`,
			want:   "one\ntwo\nthree",
		},
		{
			name:   "empty",
			markup: `<p></p>`,
			want:   "",
		},
		{
			name:   "plain text",
			markup: "  just text  ",
			want:   "just text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.markup))
		})
	}
}

func TestNormalizeLinks(t *testing.T) {
	assert.Equal(t,
		"Rust 1.91.1 (blog.rust-lang.org)",
		NormalizeLinks("Rust 1.91.1 [release](https://blog.rust-lang.org/2025/11/10/Rust-1.91.1/)"),
	)
	assert.Equal(t,
		"see (example.com) now",
		NormalizeLinks("see https://example.com/x?y=1   now"),
	)
	assert.Equal(t, "(全角)", NormalizeLinks("（全角）"))
}

func TestFitPlain(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello", FitPlain("hello", 10))
	})

	t.Run("keeps whole lines", func(t *testing.T) {
		got := FitPlain("- first line\n- second line\n- third line", 28)
		assert.Equal(t, "- first line\n- second line", got)
	})

	t.Run("truncates single long line", func(t *testing.T) {
		got := FitPlain(strings.Repeat("あ", 20), 10)
		assert.Equal(t, 10, utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, "…"))
	})
}
