package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/takak2166/pagefit/internal/config"
	"github.com/takak2166/pagefit/internal/editor"
	"github.com/takak2166/pagefit/internal/llm"
	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
	"github.com/takak2166/pagefit/internal/notion"
	"github.com/takak2166/pagefit/internal/parser"
	"github.com/takak2166/pagefit/internal/store"
	"github.com/takak2166/pagefit/internal/transform"
)

func main() {
	// Parse command line flags
	inputFile := flag.String("input", "", "Path to manuscript JSON file")
	outputDir := flag.String("output", "", "Directory to save markdown files (optional)")
	storeKind := flag.String("store", "", "Page store: memory or notion (default: notion when configured)")
	actionName := flag.String("action", "", "AI action to run: "+strings.Join(transform.Names(), ", "))
	pageRef := flag.String("page", "", "Page ID or title the action applies to")
	lang := flag.String("lang", "", "Target language for translate, e.g. fr or pt-BR")
	split := flag.Bool("split", false, "Split pages that overflow their box")
	save := flag.Bool("save", false, "Write the edited manuscript back to the input file")
	flag.Parse()

	if *inputFile == "" {
		fmt.Println("Error: input file is required")
		flag.Usage()
		os.Exit(1)
	}

	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: no .env file loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	if *outputDir == "" {
		*outputDir = cfg.OutputDir
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Error("Failed to create output directory", err, nil)
		os.Exit(1)
	}

	// Parse manuscript
	p := parser.New()
	if err := p.ParseFile(*inputFile); err != nil {
		logger.Error("Failed to parse input file", err, nil)
		os.Exit(1)
	}

	ctx := context.Background()

	s, err := openStore(ctx, cfg, *storeKind, p.GetBook())
	if err != nil {
		logger.Error("Failed to open page store", err, map[string]interface{}{
			"store": *storeKind,
		})
		os.Exit(1)
	}

	gen, err := llm.New(cfg.LLM())
	if err != nil {
		logger.Error("Failed to initialize AI provider", err, map[string]interface{}{
			"provider": cfg.AIProvider,
		})
		os.Exit(1)
	}

	ed, err := editor.New(ctx, s, cfg.Measurer(), gen, editor.Options{
		Limits:       cfg.Capacity(),
		Style:        cfg.Style(),
		ClientHeight: cfg.PageHeight,
		Reserve:      cfg.SplitReserve,
		WarningTTL:   cfg.OverflowWarningTTL,
		Timeout:      cfg.AITimeout,
	})
	if err != nil {
		logger.Error("Failed to initialize editor", err, nil)
		os.Exit(1)
	}

	reportCapacity(ed)

	if *split {
		created, err := ed.SplitOverflowing(ctx)
		if err != nil {
			logger.Error("Failed to split overflowing pages", err, nil)
			os.Exit(1)
		}
		logger.Info("Split overflowing pages", map[string]interface{}{
			"created_pages": created,
		})
	}

	if *actionName != "" {
		if err := runAction(ctx, ed, *actionName, *pageRef, *lang); err != nil {
			os.Exit(1)
		}
	}

	// Save markdown files
	pages := ed.Book().Pages()
	successCount := 0
	for i, page := range pages {
		markdown := p.ConvertToMarkdown(&page)

		mdFilePath := filepath.Join(*outputDir, parser.FileName(i, page))
		if err := os.WriteFile(mdFilePath, []byte(markdown), 0644); err != nil {
			logger.Error("Failed to save markdown file", err, map[string]interface{}{
				"page":     page.Title,
				"filepath": mdFilePath,
			})
			continue
		}
		successCount++
	}

	if *save {
		p.SetBook(ed.Book())
		if err := p.WriteFile(*inputFile); err != nil {
			logger.Error("Failed to save manuscript", err, map[string]interface{}{
				"filepath": *inputFile,
			})
			os.Exit(1)
		}
	}

	logger.Info("Processing completed", map[string]interface{}{
		"total_pages":     len(pages),
		"success_count":   successCount,
		"failure_count":   len(pages) - successCount,
		"markdown_output": *outputDir,
	})
}

// openStore returns the page store named by kind, seeding an empty Notion
// database with the parsed book
func openStore(ctx context.Context, cfg *config.Config, kind string, book *models.Book) (store.Store, error) {
	if kind == "" {
		kind = "memory"
		if cfg.NotionEnabled() {
			kind = "notion"
		}
	}

	switch kind {
	case "memory":
		return store.NewMemoryStore(book), nil
	case "notion":
		client, err := notion.New()
		if err != nil {
			return nil, err
		}
		if client.DatabaseID() == "" {
			if _, err := client.FindOrCreateDatabase(ctx, book.Title); err != nil {
				return nil, err
			}
		}

		existing, err := client.LoadBook(ctx)
		if err != nil {
			return nil, err
		}
		if len(existing.Pages()) == 0 {
			logger.Info("Exporting manuscript to Notion", map[string]interface{}{
				"database_id": client.DatabaseID(),
			})
			if err := client.ExportBook(ctx, book); err != nil {
				return nil, err
			}
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

func reportCapacity(ed *editor.Editor) {
	for _, page := range ed.Book().Pages() {
		r, err := ed.Capacity(page.ID)
		if err != nil {
			continue
		}
		overflow, _ := ed.CheckOverflow(page.ID)
		logger.Info("Page capacity", map[string]interface{}{
			"page":      page.Title,
			"page_id":   page.ID,
			"weight":    r.Weight,
			"budget":    r.Budget,
			"remaining": r.Remaining,
			"exceeded":  r.Exceeded,
			"overflow":  overflow,
		})
	}
}

func runAction(ctx context.Context, ed *editor.Editor, name, ref, lang string) error {
	page := findPage(ed.Book(), ref)
	if page == nil {
		err := fmt.Errorf("%w: %q", store.ErrPageNotFound, ref)
		logger.Error("Failed to find page for action", err, nil)
		return err
	}

	if _, err := ed.RunAction(ctx, page.ID, name, lang); err != nil {
		fields := map[string]interface{}{
			"action": name,
			"page":   page.Title,
		}
		switch {
		case transform.IsValidation(err):
			logger.Warn(err.Error(), fields)
		case transform.IsTimeout(err):
			logger.Error("AI provider timed out", err, fields)
		default:
			logger.Error("AI action failed", err, fields)
		}
		return err
	}

	r, err := ed.Capacity(page.ID)
	if err != nil {
		return err
	}
	logger.Info("AI action applied", map[string]interface{}{
		"action":    name,
		"page":      page.Title,
		"weight":    r.Weight,
		"remaining": r.Remaining,
	})
	return nil
}

// findPage looks a page up by ID first and then by title
func findPage(book *models.Book, ref string) *models.Page {
	if p := book.Page(models.PageID(ref)); p != nil {
		return p
	}
	for _, ch := range book.Chapters {
		for i := range ch.Pages {
			if strings.EqualFold(strings.TrimSpace(ch.Pages[i].Title), strings.TrimSpace(ref)) {
				return &ch.Pages[i]
			}
		}
	}
	return nil
}
