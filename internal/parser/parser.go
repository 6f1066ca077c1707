package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
)

// Parser loads a manuscript file and renders its pages as markdown
type Parser struct {
	book *models.Book
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a manuscript JSON file
func (p *Parser) ParseFile(filepath string) error {
	logger.Debug("Reading manuscript file", map[string]interface{}{
		"filepath": filepath,
	})

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	book := &models.Book{}
	if err := json.Unmarshal(data, book); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	p.book = normalize(book)

	logger.Info("Successfully parsed manuscript file", map[string]interface{}{
		"chapters_count": len(p.book.Chapters),
		"pages_count":    len(p.book.Pages()),
	})

	return nil
}

// normalize assigns missing IDs, links pages to their chapter and unifies line endings
func normalize(book *models.Book) *models.Book {
	for i := range book.Chapters {
		ch := &book.Chapters[i]
		if ch.ID == "" {
			ch.ID = models.ChapterID(uuid.NewString())
		}
		for j := range ch.Pages {
			page := &ch.Pages[j]
			if page.ID == "" {
				page.ID = models.PageID(uuid.NewString())
			}
			page.ChapterID = ch.ID
			page.Content = strings.ReplaceAll(page.Content, "\r\n", "\n")
		}
	}
	book.Sort()
	return book
}

// SetBook replaces the parsed book, e.g. after pages were split
func (p *Parser) SetBook(book *models.Book) {
	p.book = book
}

// GetBook returns the parsed book
func (p *Parser) GetBook() *models.Book {
	return p.book
}

// GetPages returns all pages in reading order
func (p *Parser) GetPages() []models.Page {
	if p.book == nil {
		return nil
	}
	return p.book.Pages()
}

// WriteFile saves the book as indented JSON
func (p *Parser) WriteFile(filepath string) error {
	if p.book == nil {
		return fmt.Errorf("no manuscript loaded")
	}

	data, err := json.MarshalIndent(p.book, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manuscript: %w", err)
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ConvertToMarkdown converts a page to markdown format
func (p *Parser) ConvertToMarkdown(page *models.Page) string {
	logger.Debug("Converting page to markdown", map[string]interface{}{
		"page_title": page.Title,
	})

	var md strings.Builder

	if strings.TrimSpace(page.Title) != "" {
		md.WriteString(fmt.Sprintf("# %s\n\n", page.Title))
	}

	var codeBlock bool
	for _, line := range strings.Split(page.Content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			codeBlock = !codeBlock
			md.WriteString(line + "\n")
			continue
		}
		if codeBlock {
			md.WriteString(line + "\n")
			continue
		}
		md.WriteString(convertLineToMarkdown(line) + "\n")
	}

	return strings.TrimRight(md.String(), "\n") + "\n"
}

// convertLineToMarkdown rewrites typographic bullets as markdown list items,
// keeping their indentation
func convertLineToMarkdown(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "• ") {
		return line
	}
	indent := line[:len(line)-len(trimmed)]
	return indent + "- " + strings.TrimPrefix(trimmed, "• ")
}

// FileName returns a markdown file name for the page at position index
func FileName(index int, page models.Page) string {
	name := slug.Make(page.Title)
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("%03d-%s.md", index+1, name)
}
