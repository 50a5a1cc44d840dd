package theme

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestBarWidth(t *testing.T) {
	for _, pct := range []float64{-5, 0, 33.3, 100, 250} {
		if w := lipgloss.Width(Bar(pct, 20)); w != 20 {
			t.Errorf("Bar(%v) width = %d, want 20", pct, w)
		}
	}
}

func TestKVAligns(t *testing.T) {
	a := KV("Users", 3)
	b := KV("Active sessions", 12)
	if !strings.Contains(a, "Users") || !strings.Contains(a, "3") {
		t.Fatalf("KV lost its content: %q", a)
	}
	ia := strings.Index(stripped(a), "3")
	ib := strings.Index(stripped(b), "12")
	if ia != labelWidth || ib != labelWidth {
		t.Errorf("values not aligned: %d, %d", ia, ib)
	}
}

func TestHeadingRule(t *testing.T) {
	h := stripped(Heading("Stats"))
	lines := strings.Split(h, "\n")
	if len(lines) != 2 || lines[1] != strings.Repeat("─", 5) {
		t.Errorf("unexpected heading %q", h)
	}
}

// stripped removes ANSI escapes.
func stripped(s string) string {
	var b strings.Builder
	esc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			esc = true
		case esc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			esc = false
		case !esc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
