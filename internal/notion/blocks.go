package notion

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"
)

const (
	// Notion rejects text objects longer than this
	maxRichTextLength = 2000
	// and more than this many children per request
	maxBlocksPerRequest = 100
)

// richText splits text into as many text objects as the length limit requires
func richText(text string) []notionapi.RichText {
	if text == "" {
		return []notionapi.RichText{}
	}

	var out []notionapi.RichText
	for len(text) > 0 {
		chunk := text
		if utf8.RuneCountInString(chunk) > maxRichTextLength {
			cut := 0
			for i := 0; i < maxRichTextLength; i++ {
				_, size := utf8.DecodeRuneInString(text[cut:])
				cut += size
			}
			chunk = text[:cut]
		}
		out = append(out, notionapi.RichText{
			Text: &notionapi.Text{
				Content: chunk,
			},
		})
		text = text[len(chunk):]
	}
	return out
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		if t.Text != nil {
			b.WriteString(t.Text.Content)
		} else {
			b.WriteString(t.PlainText)
		}
	}
	return b.String()
}

// propertyText reads title and rich text properties as returned by the API
// (pointers) or as built locally (values)
func propertyText(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return plainText(v.Title)
	case notionapi.TitleProperty:
		return plainText(v.Title)
	case *notionapi.RichTextProperty:
		return plainText(v.RichText)
	case notionapi.RichTextProperty:
		return plainText(v.RichText)
	}
	return ""
}

func propertyNumber(p notionapi.Property) int {
	switch v := p.(type) {
	case *notionapi.NumberProperty:
		return int(v.Number)
	case notionapi.NumberProperty:
		return int(v.Number)
	}
	return 0
}

// replaceBlocks deletes the body of a page and rebuilds it from content
func (c *Client) replaceBlocks(ctx context.Context, id notionapi.BlockID, content string) error {
	var existing []notionapi.BlockID
	pagination := &notionapi.Pagination{PageSize: maxBlocksPerRequest}
	for {
		resp, err := c.client.Block().GetChildren(ctx, id, pagination)
		if err != nil {
			return fmt.Errorf("failed to list page blocks: %w", err)
		}
		for _, b := range resp.Results {
			existing = append(existing, b.GetID())
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		pagination.StartCursor = notionapi.Cursor(resp.NextCursor)
	}

	for _, blockID := range existing {
		if _, err := c.client.Block().Delete(ctx, blockID); err != nil {
			return fmt.Errorf("failed to delete block %s: %w", blockID, err)
		}
	}

	return c.appendBlocks(ctx, id, convertMarkdownToBlocks(content))
}

// appendBlocks appends blocks to a page in batches
func (c *Client) appendBlocks(ctx context.Context, id notionapi.BlockID, blocks []notionapi.Block) error {
	for len(blocks) > 0 {
		n := len(blocks)
		if n > maxBlocksPerRequest {
			n = maxBlocksPerRequest
		}
		batch := blocks[:n]
		if err := c.retry(ctx, func() error {
			_, err := c.client.Block().AppendChildren(ctx, id, &notionapi.AppendBlockChildrenRequest{Children: batch})
			return err
		}); err != nil {
			return fmt.Errorf("failed to append blocks: %w", err)
		}
		blocks = blocks[n:]
	}
	return nil
}

// convertMarkdownToBlocks converts page content to Notion blocks
func convertMarkdownToBlocks(content string) []notionapi.Block {
	var blocks []notionapi.Block
	lines := strings.Split(content, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		// Handle headings
		if strings.HasPrefix(line, "# ") {
			blocks = append(blocks, createHeadingBlock(line[2:], 1))
			continue
		}
		if strings.HasPrefix(line, "## ") {
			blocks = append(blocks, createHeadingBlock(line[3:], 2))
			continue
		}
		if strings.HasPrefix(line, "### ") {
			blocks = append(blocks, createHeadingBlock(line[4:], 3))
			continue
		}

		// Handle code blocks
		if strings.HasPrefix(line, "```") {
			codeContent := []string{}
			i++
			for i < len(lines) && !strings.HasPrefix(lines[i], "```") {
				codeContent = append(codeContent, lines[i])
				i++
			}
			blocks = append(blocks, createCodeBlock(strings.Join(codeContent, "\n")))
			continue
		}

		// Handle bullet points
		if strings.HasPrefix(line, "- ") {
			blocks = append(blocks, createBulletedListBlock(line[2:]))
			continue
		}
		if strings.HasPrefix(line, "• ") {
			blocks = append(blocks, createBulletedListBlock(strings.TrimPrefix(line, "• ")))
			continue
		}

		blocks = append(blocks, createParagraphBlock(line))
	}

	return blocks
}

// createHeadingBlock creates a heading block with the specified level
func createHeadingBlock(text string, level int) notionapi.Block {
	switch level {
	case 1:
		return &notionapi.Heading1Block{
			BasicBlock: notionapi.BasicBlock{
				Object: "block",
				Type:   notionapi.BlockTypeHeading1,
			},
			Heading1: notionapi.Heading{
				RichText: richText(text),
			},
		}
	case 2:
		return &notionapi.Heading2Block{
			BasicBlock: notionapi.BasicBlock{
				Object: "block",
				Type:   notionapi.BlockTypeHeading2,
			},
			Heading2: notionapi.Heading{
				RichText: richText(text),
			},
		}
	default:
		return &notionapi.Heading3Block{
			BasicBlock: notionapi.BasicBlock{
				Object: "block",
				Type:   notionapi.BlockTypeHeading3,
			},
			Heading3: notionapi.Heading{
				RichText: richText(text),
			},
		}
	}
}

// createCodeBlock creates a code block
func createCodeBlock(content string) notionapi.Block {
	return &notionapi.CodeBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: "block",
			Type:   notionapi.BlockTypeCode,
		},
		Code: notionapi.Code{
			RichText: richText(content),
			Language: "plain text",
		},
	}
}

// createBulletedListBlock creates a bulleted list item block
func createBulletedListBlock(text string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: "block",
			Type:   notionapi.BlockTypeBulletedListItem,
		},
		BulletedListItem: notionapi.ListItem{
			RichText: richText(text),
		},
	}
}

// createParagraphBlock creates a paragraph block
func createParagraphBlock(text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: "block",
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{
			RichText: richText(text),
		},
	}
}
