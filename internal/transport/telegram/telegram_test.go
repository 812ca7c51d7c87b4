package telegram

import (
	"strings"
	"testing"

	logx "coinbot/pkg/logx"
)

func TestSplitTextShortPassesThrough(t *testing.T) {
	got := splitText("hello", 10, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitTextPrefersNewlineBoundary(t *testing.T) {
	lines := []string{
		strings.Repeat("a", 8),
		strings.Repeat("b", 8),
		strings.Repeat("c", 8),
	}
	got := splitText(strings.Join(lines, "\n"), 20, "")
	if len(got) < 2 {
		t.Fatalf("expected a split, got %q", got)
	}
	if !strings.HasSuffix(got[0], "\n") {
		t.Fatalf("first chunk should end at a newline: %q", got[0])
	}
}

func TestSplitTextReassemblesLossless(t *testing.T) {
	src := strings.Repeat("line of text\n", 500)
	got := splitText(src, 100, "")
	if strings.Join(got, "") != src {
		t.Fatal("chunks must concatenate back to the original text")
	}
	for i, c := range got {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk %d over limit: %d runes", i, len([]rune(c)))
		}
	}
}

func TestSplitTextAvoidsDanglingHTMLTag(t *testing.T) {
	// A long run with an open tag near the window edge.
	src := strings.Repeat("x", 15) + "<code>abcdef</code>"
	got := splitText(src, 18, "HTML")
	for _, c := range got {
		opens := strings.Count(c, "<")
		closes := strings.Count(c, ">")
		if opens > 0 && strings.LastIndex(c, "<") > strings.LastIndex(c, ">") && opens != closes {
			t.Fatalf("chunk splits inside a tag: %q", c)
		}
	}
	if strings.Join(got, "") != src {
		t.Fatal("chunks must concatenate back to the original text")
	}
}

func TestSplitTextMultibyteRunes(t *testing.T) {
	src := strings.Repeat("⚠", 30)
	got := splitText(src, 10, "")
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	if strings.Join(got, "") != src {
		t.Fatal("rune-aware split must be lossless")
	}
}

func TestNewRejectsEmptyToken(t *testing.T) {
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("empty token should be rejected")
	}
}
