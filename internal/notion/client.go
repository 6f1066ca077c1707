package notion

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jomei/notionapi"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
	"github.com/takak2166/pagefit/internal/store"
)

// Property names of the book database
const (
	propName         = "Name"
	propChapter      = "Chapter"
	propChapterTitle = "Chapter Title"
	propChapterOrder = "Chapter Order"
	propOrder        = "Order"
	propContent      = "Content"
)

const maxAttempts = 3

// retryDelay is a variable so tests can run without sleeping
var retryDelay = 1 * time.Second

var _ store.Store = (*Client)(nil)

// Client stores a book in a Notion database, one row per page
type Client struct {
	client     NotionClient
	databaseID notionapi.DatabaseID
	parentID   notionapi.PageID
}

// New creates a new Notion client from the environment
func New() (*Client, error) {
	apiKey := os.Getenv("NOTION_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("NOTION_API_KEY is not set")
	}

	databaseID := os.Getenv("NOTION_DATABASE_ID")
	parentID := os.Getenv("NOTION_PARENT_PAGE_ID")
	if databaseID == "" && parentID == "" {
		return nil, fmt.Errorf("NOTION_DATABASE_ID or NOTION_PARENT_PAGE_ID must be set")
	}

	notionClient := notionapi.NewClient(notionapi.Token(apiKey))

	return &Client{
		client:     newNotionClientAdapter(notionClient),
		databaseID: notionapi.DatabaseID(databaseID),
		parentID:   notionapi.PageID(parentID),
	}, nil
}

// DatabaseID returns the book database the client writes to
func (c *Client) DatabaseID() notionapi.DatabaseID {
	return c.databaseID
}

func (c *Client) retry(ctx context.Context, fn func() error) error {
	err := retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Retrying Notion request", map[string]interface{}{
				"attempt": n + 1,
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
	}
	return nil
}

// UpdatePageContent stores content in the Content property and rebuilds the page body
func (c *Client) UpdatePageContent(ctx context.Context, id models.PageID, content string) error {
	logger.Debug("Updating Notion page content", map[string]interface{}{
		"page_id": id,
	})

	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propContent: notionapi.RichTextProperty{RichText: richText(content)},
		},
	}
	if err := c.retry(ctx, func() error {
		_, err := c.client.Page().Update(ctx, notionapi.PageID(id), req)
		return err
	}); err != nil {
		return fmt.Errorf("failed to update page content: %w", err)
	}

	if err := c.replaceBlocks(ctx, notionapi.BlockID(id), content); err != nil {
		return fmt.Errorf("failed to update page body: %w", err)
	}
	return nil
}

// UpdatePageTitle stores title in the Name property
func (c *Client) UpdatePageTitle(ctx context.Context, id models.PageID, title string) error {
	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propName: notionapi.TitleProperty{Title: richText(title)},
		},
	}
	if err := c.retry(ctx, func() error {
		_, err := c.client.Page().Update(ctx, notionapi.PageID(id), req)
		return err
	}); err != nil {
		return fmt.Errorf("failed to update page title: %w", err)
	}
	return nil
}

// CreatePage adds a row for a new page to the chapter and shifts the pages
// at or after data.Order down by one
func (c *Client) CreatePage(ctx context.Context, chapterID models.ChapterID, data models.PageData) (models.PageID, error) {
	logger.Debug("Creating Notion page", map[string]interface{}{
		"title":   data.Title,
		"chapter": chapterID,
		"order":   data.Order,
	})

	rows, err := c.queryRows(ctx)
	if err != nil {
		return "", err
	}

	var chapter *row
	for i := range rows {
		if rows[i].page.ChapterID != chapterID {
			continue
		}
		if chapter == nil {
			chapter = &rows[i]
		}
		if rows[i].page.Order >= data.Order {
			if err := c.setOrder(ctx, rows[i].page.ID, rows[i].page.Order+1); err != nil {
				return "", err
			}
		}
	}
	if chapter == nil {
		return "", fmt.Errorf("failed to create page in %s: %w", chapterID, store.ErrChapterNotFound)
	}

	id, err := c.createRow(ctx,
		models.Chapter{ID: chapterID, Title: chapter.chapterTitle, Order: chapter.chapterOrder},
		models.Page{Title: data.Title, Content: data.Content, Order: data.Order},
	)
	if err != nil {
		return "", err
	}

	logger.Info("Successfully created Notion page", map[string]interface{}{
		"title":   data.Title,
		"page_id": id,
	})
	return id, nil
}

// LoadBook reads every row of the database and groups them into chapters
func (c *Client) LoadBook(ctx context.Context) (*models.Book, error) {
	rows, err := c.queryRows(ctx)
	if err != nil {
		return nil, err
	}

	book := &models.Book{}
	for _, r := range rows {
		ch := book.Chapter(r.page.ChapterID)
		if ch == nil {
			book.Chapters = append(book.Chapters, models.Chapter{
				ID:    r.page.ChapterID,
				Title: r.chapterTitle,
				Order: r.chapterOrder,
			})
			ch = &book.Chapters[len(book.Chapters)-1]
		}
		ch.Pages = append(ch.Pages, r.page)
	}
	book.Sort()

	logger.Debug("Loaded book from Notion", map[string]interface{}{
		"chapters": len(book.Chapters),
		"pages":    len(rows),
	})
	return book, nil
}

// ExportBook uploads every page of book as a new row
func (c *Client) ExportBook(ctx context.Context, book *models.Book) error {
	for _, ch := range book.Chapters {
		for _, p := range ch.Pages {
			if _, err := c.createRow(ctx, ch, p); err != nil {
				logger.Error("Failed to export page", err, map[string]interface{}{
					"page":    p.Title,
					"chapter": ch.ID,
				})
				return err
			}
		}
	}
	return nil
}

func (c *Client) createRow(ctx context.Context, ch models.Chapter, p models.Page) (models.PageID, error) {
	blocks := convertMarkdownToBlocks(p.Content)
	first, rest := blocks, []notionapi.Block(nil)
	if len(blocks) > maxBlocksPerRequest {
		first, rest = blocks[:maxBlocksPerRequest], blocks[maxBlocksPerRequest:]
	}

	pageParams := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       "database_id",
			DatabaseID: c.databaseID,
		},
		Properties: notionapi.Properties{
			propName:         notionapi.TitleProperty{Title: richText(p.Title)},
			propChapter:      notionapi.RichTextProperty{RichText: richText(string(ch.ID))},
			propChapterTitle: notionapi.RichTextProperty{RichText: richText(ch.Title)},
			propChapterOrder: notionapi.NumberProperty{Number: float64(ch.Order)},
			propOrder:        notionapi.NumberProperty{Number: float64(p.Order)},
			propContent:      notionapi.RichTextProperty{RichText: richText(p.Content)},
		},
		Children: first,
	}

	var page *notionapi.Page
	if err := c.retry(ctx, func() error {
		var err error
		page, err = c.client.Page().Create(ctx, pageParams)
		return err
	}); err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}

	if err := c.appendBlocks(ctx, notionapi.BlockID(page.ID), rest); err != nil {
		return "", err
	}
	return models.PageID(page.ID), nil
}

func (c *Client) setOrder(ctx context.Context, id models.PageID, order int) error {
	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propOrder: notionapi.NumberProperty{Number: float64(order)},
		},
	}
	if err := c.retry(ctx, func() error {
		_, err := c.client.Page().Update(ctx, notionapi.PageID(id), req)
		return err
	}); err != nil {
		return fmt.Errorf("failed to renumber page %s: %w", id, err)
	}
	return nil
}

// row is one database row decoded into a page plus its chapter columns
type row struct {
	page         models.Page
	chapterTitle string
	chapterOrder int
}

func (c *Client) queryRows(ctx context.Context) ([]row, error) {
	var rows []row
	req := &notionapi.DatabaseQueryRequest{PageSize: 100}

	for {
		resp, err := c.client.Database().Query(ctx, c.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("failed to query book database: %w", err)
		}

		for _, p := range resp.Results {
			if p.Archived {
				continue
			}
			rows = append(rows, decodeRow(p))
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].chapterOrder != rows[j].chapterOrder {
			return rows[i].chapterOrder < rows[j].chapterOrder
		}
		return rows[i].page.Order < rows[j].page.Order
	})
	return rows, nil
}

func decodeRow(p notionapi.Page) row {
	props := p.Properties
	return row{
		page: models.Page{
			ID:        models.PageID(p.ID),
			ChapterID: models.ChapterID(propertyText(props[propChapter])),
			Title:     propertyText(props[propName]),
			Content:   propertyText(props[propContent]),
			Order:     propertyNumber(props[propOrder]),
		},
		chapterTitle: propertyText(props[propChapterTitle]),
		chapterOrder: propertyNumber(props[propChapterOrder]),
	}
}

// FindOrCreateDatabase looks up a database called title under the parent
// page and creates it with the book columns when missing
func (c *Client) FindOrCreateDatabase(ctx context.Context, title string) (notionapi.DatabaseID, error) {
	query := &notionapi.SearchRequest{
		Query: title,
		Filter: notionapi.SearchFilter{
			Property: "object",
			Value:    "database",
		},
	}

	results, err := c.client.Search().Do(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to search for existing database: %w", err)
	}

	for _, result := range results.Results {
		if db, ok := result.(*notionapi.Database); ok {
			if len(db.Title) > 0 && db.Title[0].Text != nil && db.Title[0].Text.Content == title {
				c.databaseID = notionapi.DatabaseID(db.ID)
				return c.databaseID, nil
			}
		}
	}

	dbParams := &notionapi.DatabaseCreateRequest{
		Parent: notionapi.Parent{
			Type:   "page_id",
			PageID: c.parentID,
		},
		Title: richText(title),
		Properties: notionapi.PropertyConfigs{
			propName: notionapi.TitlePropertyConfig{
				Type:  "title",
				Title: struct{}{},
			},
			propChapter: notionapi.RichTextPropertyConfig{
				Type:     "rich_text",
				RichText: struct{}{},
			},
			propChapterTitle: notionapi.RichTextPropertyConfig{
				Type:     "rich_text",
				RichText: struct{}{},
			},
			propChapterOrder: notionapi.NumberPropertyConfig{
				Type:   "number",
				Number: notionapi.NumberFormat{Format: "number"},
			},
			propOrder: notionapi.NumberPropertyConfig{
				Type:   "number",
				Number: notionapi.NumberFormat{Format: "number"},
			},
			propContent: notionapi.RichTextPropertyConfig{
				Type:     "rich_text",
				RichText: struct{}{},
			},
		},
		IsInline: true,
	}

	db, err := c.client.Database().Create(ctx, dbParams)
	if err != nil {
		return "", fmt.Errorf("failed to create database: %w", err)
	}

	c.databaseID = notionapi.DatabaseID(db.ID)
	logger.Info("Created book database", map[string]interface{}{
		"title":       title,
		"database_id": db.ID,
	})
	return c.databaseID, nil
}
