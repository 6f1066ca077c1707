package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/takak2166/pagefit/internal/capacity"
	"github.com/takak2166/pagefit/internal/layout"
	"github.com/takak2166/pagefit/internal/llm"
	"github.com/takak2166/pagefit/internal/paginate"
	"github.com/takak2166/pagefit/internal/transform"
)

// Measurement modes
const (
	MeasurePDF   = "pdf"
	MeasureCells = "cells"
)

// DefaultPageHeight is the usable height of an A4 page with 20mm margins, in points
const DefaultPageHeight = 728

// Config holds the settings read from the environment
type Config struct {
	LogLevel string

	PageBaseWeight  int
	TitleCostCap    int
	PageWeightFloor int

	SplitReserve   float64
	PageWidth      float64
	PageColumns    int
	PageHeight     float64
	PageFont       string
	PageFontSize   float64
	PageLineHeight float64
	MeasureMode    string

	AIProvider    string
	AIModel       string
	AIMaxTokens   int
	AnthropicKey  string
	GeminiKey     string
	GeminiBaseURL string
	AITimeout     time.Duration

	OverflowWarningTTL time.Duration

	NotionAPIKey     string
	NotionDatabaseID string

	OutputDir string
}

// Load reads the configuration from environment variables. Call
// godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PageBaseWeight:  l.int("PAGE_BASE_WEIGHT", capacity.DefaultLimits.Base),
		TitleCostCap:    l.int("TITLE_COST_CAP", capacity.DefaultLimits.TitleCap),
		PageWeightFloor: l.int("PAGE_WEIGHT_FLOOR", capacity.DefaultLimits.Floor),

		SplitReserve:   l.float("SPLIT_RESERVE", paginate.DefaultReserve),
		PageWidth:      l.float("PAGE_WIDTH", layout.DefaultStyle.Width),
		PageColumns:    l.int("PAGE_COLUMNS", layout.DefaultColumns),
		PageHeight:     l.float("PAGE_HEIGHT", DefaultPageHeight),
		PageFont:       getEnv("PAGE_FONT", layout.DefaultStyle.FontFamily),
		PageFontSize:   l.float("PAGE_FONT_SIZE", layout.DefaultStyle.FontSize),
		PageLineHeight: l.float("PAGE_LINE_HEIGHT", layout.DefaultStyle.LineHeight),
		MeasureMode:    strings.ToLower(getEnv("MEASURE_MODE", MeasurePDF)),

		AIProvider:    strings.ToLower(getEnv("AI_PROVIDER", "none")),
		AIModel:       getEnv("AI_MODEL", ""),
		AIMaxTokens:   l.int("AI_MAX_TOKENS", 0),
		AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
		GeminiKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		AITimeout:     l.duration("AI_TIMEOUT", transform.DefaultTimeout),

		OverflowWarningTTL: l.duration("OVERFLOW_WARNING_TTL", layout.DefaultWarningTTL),

		NotionAPIKey:     getEnv("NOTION_API_KEY", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		OutputDir: getEnv("OUTPUT_DIR", "output"),
	}

	if cfg.MeasureMode != MeasurePDF && cfg.MeasureMode != MeasureCells {
		l.errs = append(l.errs, fmt.Errorf("MEASURE_MODE must be %q or %q, got %q", MeasurePDF, MeasureCells, cfg.MeasureMode))
	}
	if cfg.PageWeightFloor > cfg.PageBaseWeight {
		l.errs = append(l.errs, fmt.Errorf("PAGE_WEIGHT_FLOOR (%d) exceeds PAGE_BASE_WEIGHT (%d)", cfg.PageWeightFloor, cfg.PageBaseWeight))
	}

	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Capacity returns the page weight limits
func (c *Config) Capacity() capacity.Limits {
	return capacity.Limits{
		Base:     c.PageBaseWeight,
		TitleCap: c.TitleCostCap,
		Floor:    c.PageWeightFloor,
	}
}

// Style returns the page style for the configured measurement mode
func (c *Config) Style() layout.Style {
	width := c.PageWidth
	if c.MeasureMode == MeasureCells {
		width = float64(c.PageColumns)
	}
	return layout.Style{
		Width:      width,
		LineHeight: c.PageLineHeight,
		FontFamily: c.PageFont,
		FontSize:   c.PageFontSize,
	}
}

// Measurer returns the measurer for the configured mode
func (c *Config) Measurer() layout.Measurer {
	if c.MeasureMode == MeasureCells {
		return layout.CellMeasurer{}
	}
	return layout.NewPDFMeasurer()
}

// LLM returns the generator settings
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Provider:     c.AIProvider,
		Model:        c.AIModel,
		AnthropicKey: c.AnthropicKey,
		GeminiKey:    c.GeminiKey,
		GeminiURL:    c.GeminiBaseURL,
		MaxTokens:    c.AIMaxTokens,
	}
}

// NotionEnabled reports whether Notion credentials are configured
func (c *Config) NotionEnabled() bool {
	return c.NotionAPIKey != "" && c.NotionDatabaseID != ""
}

// getEnv returns the environment variable or defaultValue when unset
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// loader parses typed variables and collects every parse error
type loader struct {
	errs []error
}

func (l *loader) int(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		l.errs = append(l.errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, value))
		return defaultValue
	}
	return n
}

func (l *loader) float(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		l.errs = append(l.errs, fmt.Errorf("%s must be a non-negative number, got %q", key, value))
		return defaultValue
	}
	return f
}

func (l *loader) duration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s must be a duration such as 20s, got %q", key, value))
		return defaultValue
	}
	return d
}
