package links

import (
	"fmt"
	"strings"
	"testing"
)

func TestExtract_Basic(t *testing.T) {
	e := NewExtractor("", 0)

	t.Run("Single link", func(t *testing.T) {
		got := e.Extract(`<p>See <a href="https://example.com/page">this</a>.</p>`)
		assertSet(t, got, "https://example.com/page")
	})

	t.Run("Multiple links", func(t *testing.T) {
		got := e.Extract(`
			<a href="https://a.example/one">one</a>
			<a href="https://b.example/two">two</a>`)
		assertSet(t, got, "https://a.example/one", "https://b.example/two")
	})

	t.Run("Empty document", func(t *testing.T) {
		if got := e.Extract(""); len(got) != 0 {
			t.Errorf("Expected empty set, got %v", got)
		}
	})

	t.Run("No anchor elements", func(t *testing.T) {
		if got := e.Extract("<p>Plain paragraph with no links.</p>"); len(got) != 0 {
			t.Errorf("Expected empty set, got %v", got)
		}
	})
}

func TestExtract_Normalization(t *testing.T) {
	e := NewExtractor("", 0)

	t.Run("Duplicates collapse", func(t *testing.T) {
		got := e.Extract(`
			<a href="https://example.com/page">a</a>
			<a href="https://example.com/page">b</a>`)
		assertSet(t, got, "https://example.com/page")
	})

	t.Run("Case-insensitive scheme and host", func(t *testing.T) {
		got := e.Extract(`
			<a href="HTTPS://Example.COM/Page">a</a>
			<a href="https://example.com/Page">b</a>`)
		assertSet(t, got, "https://example.com/Page")
	})

	t.Run("Trailing slash stripped", func(t *testing.T) {
		got := e.Extract(`
			<a href="https://example.com/page/">a</a>
			<a href="https://example.com/page">b</a>`)
		assertSet(t, got, "https://example.com/page")
	})

	t.Run("Fragment stripped", func(t *testing.T) {
		got := e.Extract(`<a href="https://example.com/page#section">a</a>`)
		assertSet(t, got, "https://example.com/page")
	})

	t.Run("Query preserved", func(t *testing.T) {
		got := e.Extract(`<a href="https://example.com/page?q=1">a</a>`)
		assertSet(t, got, "https://example.com/page?q=1")
	})

	t.Run("Port preserved", func(t *testing.T) {
		got := e.Extract(`<a href="https://example.com:8443/page">a</a>`)
		assertSet(t, got, "https://example.com:8443/page")
	})
}

func TestExtract_Filtering(t *testing.T) {
	t.Run("Self-origin links excluded", func(t *testing.T) {
		e := NewExtractor("https://blog.example.com", 0)
		got := e.Extract(`
			<a href="https://blog.example.com/other-post">self</a>
			<a href="https://elsewhere.example/page">external</a>`)
		assertSet(t, got, "https://elsewhere.example/page")
	})

	t.Run("Self-origin match is case-insensitive", func(t *testing.T) {
		e := NewExtractor("https://Blog.Example.com/", 0)
		got := e.Extract(`<a href="https://blog.example.com/post">self</a>`)
		if len(got) != 0 {
			t.Errorf("Expected self-reference to be excluded, got %v", got)
		}
	})

	t.Run("No origin configured includes all", func(t *testing.T) {
		e := NewExtractor("", 0)
		got := e.Extract(`<a href="https://blog.example.com/post">a</a>`)
		assertSet(t, got, "https://blog.example.com/post")
	})

	t.Run("Non-http schemes excluded", func(t *testing.T) {
		e := NewExtractor("", 0)
		got := e.Extract(`
			<a href="mailto:someone@example.com">mail</a>
			<a href="javascript:alert(1)">js</a>
			<a href="ftp://example.com/file">ftp</a>
			<a href="https://kept.example/page">kept</a>`)
		assertSet(t, got, "https://kept.example/page")
	})

	t.Run("Fragment-only and empty hrefs excluded", func(t *testing.T) {
		e := NewExtractor("", 0)
		got := e.Extract(`
			<a href="#section">frag</a>
			<a href="">empty</a>
			<a href="   ">blank</a>`)
		if len(got) != 0 {
			t.Errorf("Expected empty set, got %v", got)
		}
	})

	t.Run("Relative hrefs dropped", func(t *testing.T) {
		e := NewExtractor("", 0)
		got := e.Extract(`<a href="/local/page">rel</a><a href="other.html">rel2</a>`)
		if len(got) != 0 {
			t.Errorf("Expected relative links to be dropped, got %v", got)
		}
	})
}

func TestExtract_Robustness(t *testing.T) {
	e := NewExtractor("", 0)

	t.Run("Malformed HTML is best-effort", func(t *testing.T) {
		got := e.Extract(`<div><a href="https://example.com/ok">ok</a><a href=`)
		assertSet(t, got, "https://example.com/ok")
	})

	t.Run("Unparsable garbage yields empty set", func(t *testing.T) {
		if got := e.Extract("<<<>>>\x00\x01"); len(got) != 0 {
			t.Errorf("Expected empty set, got %v", got)
		}
	})

	t.Run("Oversized input is truncated", func(t *testing.T) {
		small := NewExtractor("", 256)
		var b strings.Builder
		b.WriteString(`<a href="https://early.example/page">x</a>`)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(&b, `<a href="https://late.example/%d">y</a>`, i)
		}
		got := small.Extract(b.String())
		if _, ok := got["https://early.example/page"]; !ok {
			t.Error("Expected link before the cap to survive truncation")
		}
		if len(got) > 8 {
			t.Errorf("Expected links past the cap to be dropped, got %d links", len(got))
		}
	})

	t.Run("No duplicate normalized URLs ever", func(t *testing.T) {
		got := e.Extract(`
			<a href="https://example.com/a/">x</a>
			<a href="HTTPS://EXAMPLE.COM/a">y</a>
			<a href="https://example.com/a#frag">z</a>`)
		assertSet(t, got, "https://example.com/a")
	})
}

func assertSet(t *testing.T, got map[string]struct{}, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d links, got %d: %v", len(want), len(got), got)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("Expected link %q in %v", w, got)
		}
	}
}
