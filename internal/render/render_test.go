package render

import (
	"strings"
	"testing"
)

func TestMarkdownToHTML(t *testing.T) {
	t.Run("Links become anchors", func(t *testing.T) {
		got := string(MarkdownToHTML([]byte("See [this post](https://example.com/page).")))
		if !strings.Contains(got, `href="https://example.com/page"`) {
			t.Errorf("Expected an anchor to the link, got %q", got)
		}
	})

	t.Run("Autolinked bare URLs", func(t *testing.T) {
		got := string(MarkdownToHTML([]byte("Go read https://example.com/page now.")))
		if !strings.Contains(got, `href="https://example.com/page"`) {
			t.Errorf("Expected the bare URL to be autolinked, got %q", got)
		}
	})

	t.Run("Fenced code is not linked", func(t *testing.T) {
		got := string(MarkdownToHTML([]byte("```\nhttps://example.com/in-code\n```")))
		if strings.Contains(got, `href=`) {
			t.Errorf("Expected no anchors inside code blocks, got %q", got)
		}
	})

	t.Run("Empty input", func(t *testing.T) {
		got := string(MarkdownToHTML(nil))
		if strings.Contains(got, "href") {
			t.Errorf("Expected no links, got %q", got)
		}
	})
}
