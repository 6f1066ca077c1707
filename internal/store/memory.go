package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
)

// MemoryStore keeps the book in memory
type MemoryStore struct {
	mu   sync.RWMutex
	book *models.Book
}

// NewMemoryStore creates a store seeded with a copy of book
func NewMemoryStore(book *models.Book) *MemoryStore {
	if book == nil {
		book = &models.Book{}
	}
	b := book.Clone()
	b.Sort()
	return &MemoryStore{book: b}
}

// UpdatePageContent replaces the content of a page
func (s *MemoryStore) UpdatePageContent(ctx context.Context, id models.PageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.book.Page(id)
	if page == nil {
		return fmt.Errorf("failed to update content of %s: %w", id, ErrPageNotFound)
	}
	page.Content = content
	return nil
}

// UpdatePageTitle replaces the title of a page
func (s *MemoryStore) UpdatePageTitle(ctx context.Context, id models.PageID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.book.Page(id)
	if page == nil {
		return fmt.Errorf("failed to update title of %s: %w", id, ErrPageNotFound)
	}
	page.Title = title
	return nil
}

// CreatePage inserts a new page into a chapter and renumbers the pages after it
func (s *MemoryStore) CreatePage(ctx context.Context, chapterID models.ChapterID, data models.PageData) (models.PageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter := s.book.Chapter(chapterID)
	if chapter == nil {
		return "", fmt.Errorf("failed to create page in %s: %w", chapterID, ErrChapterNotFound)
	}

	for i := range chapter.Pages {
		if chapter.Pages[i].Order >= data.Order {
			chapter.Pages[i].Order++
		}
	}

	id := models.PageID(uuid.NewString())
	chapter.Pages = append(chapter.Pages, models.Page{
		ID:        id,
		ChapterID: chapterID,
		Title:     data.Title,
		Content:   data.Content,
		Order:     data.Order,
	})
	s.book.Sort()

	logger.Debug("Created page", map[string]interface{}{
		"page_id": id,
		"chapter": chapterID,
		"order":   data.Order,
	})
	return id, nil
}

// LoadBook returns a copy of the stored book
func (s *MemoryStore) LoadBook(ctx context.Context) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Clone(), nil
}
