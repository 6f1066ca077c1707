package paginate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/takak2166/pagefit/internal/layout"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
	"github.com/takak2166/pagefit/internal/store"
)

// DefaultReserve is the height kept free for the title and padding of a page
const DefaultReserve = 200

// ErrCannotSplit means not even the first word fits on the page; the page
// has to be shortened by hand
var ErrCannotSplit = errors.New("cannot auto-split page")

// Result describes the outcome of a split
type Result struct {
	Split    bool
	Index    int
	Words    int
	Original models.PageID
	Created  models.PageID
	Book     *models.Book
}

// Paginator splits overflowing pages in two
type Paginator struct {
	store    store.Store
	measurer layout.Measurer
	reserve  float64
}

// New creates a Paginator. reserve is subtracted from the box height
// before searching for a split point.
func New(s store.Store, m layout.Measurer, reserve float64) *Paginator {
	return &Paginator{store: s, measurer: m, reserve: reserve}
}

// MaxHeight returns the height content may occupy inside box
func (p *Paginator) MaxHeight(box *layout.Box) float64 {
	return box.ClientHeight - p.reserve
}

// Split finds a word-boundary split point for page rendered in box and
// moves the overflow into a new page right after it. Both pages are
// persisted and the regenerated book is returned in the result.
func (p *Paginator) Split(ctx context.Context, page models.Page, box *layout.Box) (*Result, error) {
	if box == nil {
		return nil, fmt.Errorf("failed to split page %s: no page box", page.ID)
	}

	maxHeight := p.MaxHeight(box)
	measure := func(s string) float64 {
		return p.measurer.Measure(s, box.Style)
	}

	words := len(strings.Fields(page.Content))
	index := FindSplitIndex(page.Content, maxHeight, measure)

	logger.Debug("Found split index", map[string]interface{}{
		"page_id":    page.ID,
		"index":      index,
		"words":      words,
		"max_height": maxHeight,
	})

	result := &Result{Index: index, Words: words, Original: page.ID}

	if index >= words {
		return result, nil
	}
	if index == 0 {
		logger.Warn("Page cannot be split automatically", map[string]interface{}{
			"page_id": page.ID,
		})
		return result, fmt.Errorf("page %s: %w", page.ID, ErrCannotSplit)
	}

	first, second := SplitAt(page.Content, index)

	if err := p.store.UpdatePageContent(ctx, page.ID, first); err != nil {
		return nil, fmt.Errorf("failed to update split page: %w", err)
	}

	created, err := p.store.CreatePage(ctx, page.ChapterID, models.PageData{
		Title:   ContinuedTitle(page.Title),
		Content: second,
		Order:   page.Order + 1,
	})
	if err != nil {
		if rbErr := p.store.UpdatePageContent(ctx, page.ID, page.Content); rbErr != nil {
			logger.Error("Failed to restore page after split failure", rbErr, map[string]interface{}{
				"page_id": page.ID,
			})
		}
		return nil, fmt.Errorf("failed to create continuation page: %w", err)
	}

	book, err := p.store.LoadBook(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload book after split: %w", err)
	}

	result.Split = true
	result.Created = created
	result.Book = book

	logger.Info("Split page", map[string]interface{}{
		"page_id":  page.ID,
		"created":  created,
		"index":    index,
		"of_words": words,
	})
	return result, nil
}
