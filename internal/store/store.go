package store

import (
	"context"
	"errors"

	"github.com/takak2166/pagefit/internal/models"
)

var (
	// ErrPageNotFound is returned when a page ID is unknown to the store
	ErrPageNotFound = errors.New("page not found")
	// ErrChapterNotFound is returned when a chapter ID is unknown to the store
	ErrChapterNotFound = errors.New("chapter not found")
)

// Store persists pages and rebuilds the chapter to page structure
type Store interface {
	UpdatePageContent(ctx context.Context, id models.PageID, content string) error
	UpdatePageTitle(ctx context.Context, id models.PageID, title string) error
	// CreatePage inserts a page at data.Order, moving later pages down
	CreatePage(ctx context.Context, chapterID models.ChapterID, data models.PageData) (models.PageID, error)
	// LoadBook returns a fresh copy of the book, sorted for reading
	LoadBook(ctx context.Context) (*models.Book, error)
}
