package capacity

import (
	"strings"
	"testing"

	"github.com/takak2166/pagefit/internal/models"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{name: "Empty content", content: "", expected: 0},
		{name: "Plain text", content: "Hello world", expected: 11},
		{name: "H1", content: "# Heading", expected: 37},
		{name: "H2", content: "## Heading", expected: 37},
		{name: "H3", content: "### Heading", expected: 37},
		{name: "Dash bullet", content: "- item", expected: 16},
		{name: "Dot bullet", content: "• item", expected: 16},
		{name: "Indented bullet keeps full length", content: "  - item", expected: 18},
		{name: "Single blank line", content: "a\n\nb", expected: 1 + 12 + 1},
		{name: "Blank pair", content: "a\n\n\nb", expected: 1 + 24 + 1},
		{name: "Line break between lines", content: "a\nb", expected: 2},
		{name: "Trailing newline", content: "abc\n", expected: 3 + 12},
		{name: "Three blank lines", content: "a\n\n\n\nb", expected: 1 + 24 + 12 + 1},
		{name: "Hash without space is text", content: "#tag", expected: 4},
		{name: "Four hashes is text", content: "#### deep", expected: 9},
		{name: "Spaces count as characters", content: "a b c", expected: 5},
		{name: "Multibyte characters count once", content: "héllo", expected: 5},
		{name: "CRLF line endings", content: "ab\r\ncd", expected: 4},
		{
			name:     "Mixed document",
			content:  "# Title\n\n\nIntro line\n- one\n- two",
			expected: (30 + 5) + 24 + 10 + (10 + 5) + (10 + 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Weight(tt.content); got != tt.expected {
				t.Errorf("Weight(%q) = %d, want %d", tt.content, got, tt.expected)
			}
		})
	}
}

func TestWeightMonotonicOnPlainLine(t *testing.T) {
	content := ""
	prev := Weight(content)
	for i := 0; i < 200; i++ {
		content += string("lorem ipsum"[i%11])
		w := Weight(content)
		if w <= prev {
			t.Fatalf("Weight not increasing at %d: %d after %d", i, w, prev)
		}
		prev = w
	}
}

func TestParseBlocks(t *testing.T) {
	blocks := ParseBlocks("## Part\n- a\n\ntext")

	want := []Block{
		{Kind: Heading, Level: 2, Text: "Part"},
		{Kind: Bullet, Text: "- a"},
		{Kind: LineBreak},
		{Kind: Paragraph, Text: "text"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("Expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("blocks[%d] = %+v, want %+v", i, blocks[i], want[i])
		}
	}
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected int
	}{
		{name: "No title", title: "", expected: 1500},
		{name: "Whitespace title", title: "   ", expected: 1500},
		{name: "Short title", title: "Intro", expected: 1490},
		{name: "Long title", title: strings.Repeat("t", 250), expected: 1000},
		{name: "Floor reached", title: strings.Repeat("t", 350), expected: 800},
		{name: "Very long title stays at floor", title: strings.Repeat("t", 750), expected: 800},
		{name: "Thousand characters", title: strings.Repeat("t", 1000), expected: 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Budget(1500, tt.title); got != tt.expected {
				t.Errorf("Budget(1500, %d chars) = %d, want %d", len(tt.title), got, tt.expected)
			}
		})
	}
}

func TestBudgetFloor(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
	}{
		{name: "Default limits", limits: DefaultLimits},
		{name: "Uncapped title cost", limits: Limits{Base: 1500, TitleCap: 1500, Floor: 800}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 750 characters would cost 1500 without the cap and the floor
			if got := tt.limits.Budget(strings.Repeat("x", 750)); got != 800 {
				t.Errorf("Budget = %d, want 800", got)
			}
			if got := tt.limits.Budget(strings.Repeat("x", 1000)); got != 800 {
				t.Errorf("Budget = %d, want 800", got)
			}
		})
	}
}

func TestBudgetNonIncreasing(t *testing.T) {
	for _, limits := range []Limits{DefaultLimits, {Base: 1500, TitleCap: 1500, Floor: 800}} {
		prev := limits.Budget("")
		title := ""
		for i := 0; i < 1000; i++ {
			title += "x"
			b := limits.Budget(title)
			if b > prev {
				t.Fatalf("Budget increased at title length %d: %d > %d", len(title), b, prev)
			}
			if b < limits.Floor || b > limits.Base {
				t.Fatalf("Budget %d out of [%d, %d]", b, limits.Floor, limits.Base)
			}
			prev = b
		}
	}
}

func TestReport(t *testing.T) {
	page := models.Page{ID: "p1", Title: "", Content: strings.Repeat("a", 5000)}
	r := DefaultLimits.Report(page)

	if r.Weight != 5000 || r.Budget != 1500 {
		t.Errorf("Report = %+v", r)
	}
	if !r.Exceeded {
		t.Error("Expected page to exceed its budget")
	}
	if r.Remaining != -3500 {
		t.Errorf("Remaining = %d, want -3500", r.Remaining)
	}
	if got := DefaultLimits.Remaining("Hello world", ""); got != 1489 {
		t.Errorf("Remaining = %d, want 1489", got)
	}

	titled := models.Page{ID: "p2", Title: strings.Repeat("t", 750), Content: strings.Repeat("a", 900)}
	r = DefaultLimits.Report(titled)
	if r.Budget != 800 || r.Remaining != -100 || !r.Exceeded {
		t.Errorf("Report for long title = %+v, want budget 800 and remaining -100", r)
	}
}
