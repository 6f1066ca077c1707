package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/takak2166/pagefit/internal/capacity"
	"github.com/takak2166/pagefit/internal/layout"
	"github.com/takak2166/pagefit/internal/llm"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
	"github.com/takak2166/pagefit/internal/paginate"
	"github.com/takak2166/pagefit/internal/store"
	"github.com/takak2166/pagefit/internal/transform"
)

// Options configures an Editor
type Options struct {
	Limits       capacity.Limits
	Style        layout.Style
	ClientHeight float64
	Reserve      float64
	WarningTTL   time.Duration
	Timeout      time.Duration
}

// Editor is the single update channel for a book: manual edits, AI
// transforms and reverts all write through it, and every content change
// is checked for overflow.
type Editor struct {
	store        store.Store
	limits       capacity.Limits
	style        layout.Style
	clientHeight float64

	detector     *layout.Detector
	paginator    *paginate.Paginator
	orchestrator *transform.Orchestrator

	mu   sync.RWMutex
	book *models.Book
}

var _ transform.FieldWriter = (*Editor)(nil)

// New loads the book from s and wires the layout, pagination and
// transform components around it. gen may be nil when AI is disabled.
func New(ctx context.Context, s store.Store, m layout.Measurer, gen llm.Generator, opts Options) (*Editor, error) {
	book, err := s.LoadBook(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}

	e := &Editor{
		store:        s,
		limits:       opts.Limits,
		style:        opts.Style,
		clientHeight: opts.ClientHeight,
		detector:     layout.NewDetector(m, opts.WarningTTL),
		paginator:    paginate.New(s, m, opts.Reserve),
		book:         book,
	}
	e.orchestrator = transform.New(gen, e, transform.WithTimeout(opts.Timeout))
	return e, nil
}

// Book returns a copy of the current book
func (e *Editor) Book() *models.Book {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Clone()
}

// State returns the AI operation state
func (e *Editor) State() transform.State {
	return e.orchestrator.State()
}

// Snapshot returns the outstanding revert snapshot, if any
func (e *Editor) Snapshot() (transform.Snapshot, bool) {
	return e.orchestrator.Snapshot()
}

func (e *Editor) page(id models.PageID) (models.Page, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p := e.book.Page(id)
	if p == nil {
		return models.Page{}, fmt.Errorf("%w: %s", store.ErrPageNotFound, id)
	}
	return *p, nil
}

// WriteField persists content to field and refreshes the in-memory book
func (e *Editor) WriteField(ctx context.Context, field transform.Field, content string) error {
	if _, err := e.page(field.PageID); err != nil {
		return err
	}

	switch field.Kind {
	case transform.FieldContent:
		if err := e.store.UpdatePageContent(ctx, field.PageID, content); err != nil {
			return err
		}
	case transform.FieldTitle:
		if err := e.store.UpdatePageTitle(ctx, field.PageID, content); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown field kind %q", field.Kind)
	}

	e.mu.Lock()
	p := e.book.Page(field.PageID)
	if p != nil {
		if field.Kind == transform.FieldContent {
			p.Content = content
		} else {
			p.Title = content
		}
	}
	e.mu.Unlock()

	if field.Kind == transform.FieldContent {
		if _, err := e.CheckOverflow(field.PageID); err != nil {
			return err
		}
	}
	return nil
}

// EditContent replaces the content of a page
func (e *Editor) EditContent(ctx context.Context, id models.PageID, content string) error {
	return e.WriteField(ctx, transform.Field{PageID: id, Kind: transform.FieldContent}, content)
}

// EditTitle replaces the title of a page
func (e *Editor) EditTitle(ctx context.Context, id models.PageID, title string) error {
	return e.WriteField(ctx, transform.Field{PageID: id, Kind: transform.FieldTitle}, title)
}

// Capacity reports the weight and budget of a page
func (e *Editor) Capacity(id models.PageID) (capacity.Report, error) {
	p, err := e.page(id)
	if err != nil {
		return capacity.Report{}, err
	}
	return e.limits.Report(p), nil
}

func (e *Editor) box(p models.Page) *layout.Box {
	return &layout.Box{
		ID:           string(p.ID),
		Content:      p.Content,
		Style:        e.style,
		ClientHeight: e.clientHeight,
	}
}

// CheckOverflow reports whether the rendered page is taller than its box.
// An overflow also raises the page warning.
func (e *Editor) CheckOverflow(id models.PageID) (bool, error) {
	p, err := e.page(id)
	if err != nil {
		return false, err
	}
	overflow := e.detector.Overflows(e.box(p))
	if overflow {
		logger.Warn("Page content overflows", map[string]interface{}{
			"page_id": id,
		})
	}
	return overflow, nil
}

// Warning reports whether the overflow warning for a page is still raised
func (e *Editor) Warning(id models.PageID) bool {
	return e.detector.Warning(string(id))
}

// AutoSplit splits an overflowing page and then each continuation page
// until the last one fits. It returns the IDs of the pages it created.
// paginate.ErrCannotSplit is returned when a page holds no fitting prefix.
func (e *Editor) AutoSplit(ctx context.Context, id models.PageID) ([]models.PageID, error) {
	if e.orchestrator.State().Processing {
		return nil, transform.ErrBusy
	}

	var created []models.PageID
	for {
		p, err := e.page(id)
		if err != nil {
			return created, err
		}
		if !e.detector.Overflows(e.box(p)) {
			return created, nil
		}

		res, err := e.paginator.Split(ctx, p, e.box(p))
		if err != nil {
			return created, err
		}
		if !res.Split {
			return created, nil
		}

		e.dropSnapshot(id)

		e.mu.Lock()
		e.book = res.Book
		e.mu.Unlock()

		// Clears the warning of the shortened page
		if _, err := e.CheckOverflow(id); err != nil {
			return created, err
		}
		created = append(created, res.Created)
		id = res.Created
	}
}

// dropSnapshot forgets a snapshot of a page whose content was split, since
// restoring it would duplicate the moved text
func (e *Editor) dropSnapshot(id models.PageID) {
	snap, ok := e.orchestrator.Snapshot()
	if !ok || snap.Field.PageID != id || snap.Field.Kind != transform.FieldContent {
		return
	}
	e.orchestrator.Reset()
	logger.Info("Dropped revert snapshot of split page", map[string]interface{}{
		"page_id": id,
	})
}

// SplitOverflowing auto-splits every page of the book that overflows.
// Pages that cannot be split are logged and skipped.
func (e *Editor) SplitOverflowing(ctx context.Context) (int, error) {
	total := 0
	for _, p := range e.Book().Pages() {
		created, err := e.AutoSplit(ctx, p.ID)
		total += len(created)
		if errors.Is(err, paginate.ErrCannotSplit) {
			logger.Warn("Skipping page that cannot be split", map[string]interface{}{
				"page_id": p.ID,
				"title":   p.Title,
			})
			continue
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RunAction applies the named AI action to the content of a page
func (e *Editor) RunAction(ctx context.Context, id models.PageID, name, language string) (string, error) {
	action, err := transform.Lookup(name)
	if err != nil {
		return "", err
	}
	p, err := e.page(id)
	if err != nil {
		return "", err
	}

	return e.orchestrator.Execute(ctx, transform.Request{
		Action:   action,
		Content:  p.Content,
		Field:    transform.Field{PageID: id, Kind: transform.FieldContent},
		Budget:   e.limits.Budget(p.Title),
		Language: language,
	})
}

// Revert undoes the last AI transform
func (e *Editor) Revert(ctx context.Context) (transform.Field, error) {
	return e.orchestrator.Revert(ctx)
}
