package capacity

import (
	"strings"
	"unicode/utf8"
)

// Fixed per-block costs of the weight model
const (
	ParagraphBreakCost = 24
	LineBreakCost      = 12
	HeadingCost        = 30
	BulletCost         = 10
)

// BlockKind tags a Block
type BlockKind int

const (
	// ParagraphBreak is two consecutive blank lines consumed as one unit
	ParagraphBreak BlockKind = iota
	// LineBreak is a single blank line
	LineBreak
	// Heading is a line starting with "# ", "## " or "### "
	Heading
	// Bullet is a line whose trimmed form starts with "- " or "• "
	Bullet
	// Paragraph is any other line
	Paragraph
)

func (k BlockKind) String() string {
	switch k {
	case ParagraphBreak:
		return "paragraph-break"
	case LineBreak:
		return "line-break"
	case Heading:
		return "heading"
	case Bullet:
		return "bullet"
	default:
		return "paragraph"
	}
}

// Block is one unit of content as seen by the weight model.
// Level is set for headings only. Text holds the characters that are
// charged per character: the text after the marker for headings, the full
// line for bullets and paragraphs.
type Block struct {
	Kind  BlockKind
	Level int
	Text  string
}

// Weight returns the cost of a single block
func (b Block) Weight() int {
	n := utf8.RuneCountInString(b.Text)
	switch b.Kind {
	case ParagraphBreak:
		return ParagraphBreakCost
	case LineBreak:
		return LineBreakCost
	case Heading:
		return HeadingCost + n
	case Bullet:
		return BulletCost + n
	default:
		return n
	}
}

var headingMarkers = []string{"# ", "## ", "### "}

// ParseBlocks splits content into blocks. Rules are applied first-match-wins
// in this order: blank pair, blank, H1, H2, H3, bullet, paragraph.
func ParseBlocks(content string) []Block {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	blocks := make([]Block, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")

		if line == "" {
			if i+1 < len(lines) && strings.TrimSuffix(lines[i+1], "\r") == "" {
				blocks = append(blocks, Block{Kind: ParagraphBreak})
				i++
				continue
			}
			blocks = append(blocks, Block{Kind: LineBreak})
			continue
		}

		if level, text, ok := parseHeading(line); ok {
			blocks = append(blocks, Block{Kind: Heading, Level: level, Text: text})
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "• ") {
			blocks = append(blocks, Block{Kind: Bullet, Text: line})
			continue
		}

		blocks = append(blocks, Block{Kind: Paragraph, Text: line})
	}

	return blocks
}

func parseHeading(line string) (int, string, bool) {
	for i, marker := range headingMarkers {
		if strings.HasPrefix(line, marker) {
			return i + 1, line[len(marker):], true
		}
	}
	return 0, "", false
}
