package layout

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/takak2166/pagefit/internal/logger"
)

// DefaultWarningTTL is how long an overflow warning stays visible
const DefaultWarningTTL = 3 * time.Second

// Box is a rendered page container: its content, the style it is laid out
// with and the height that is visible without scrolling
type Box struct {
	ID           string
	Content      string
	Style        Style
	ClientHeight float64
}

// Detector tells whether rendered content exceeds its visible box
type Detector struct {
	measurer Measurer
	warnings *cache.Cache
	ttl      time.Duration
}

// NewDetector creates a detector. Overflowing boxes raise a warning flag
// that expires after ttl; a non-positive ttl disables warnings.
func NewDetector(m Measurer, ttl time.Duration) *Detector {
	cleanup := time.Minute
	if ttl <= 0 {
		cleanup = 0
	}
	return &Detector{
		measurer: m,
		warnings: cache.New(ttl, cleanup),
		ttl:      ttl,
	}
}

// ScrollHeight returns the full rendered height of the box content
func (d *Detector) ScrollHeight(box *Box) float64 {
	if box == nil || d.measurer == nil {
		return 0
	}
	return d.measurer.Measure(box.Content, box.Style)
}

// Overflows reports whether the rendered content is taller than the
// visible box. A missing box or measurer counts as no overflow.
func (d *Detector) Overflows(box *Box) bool {
	if box == nil || d.measurer == nil || box.ClientHeight <= 0 {
		logger.Debug("Skipping overflow check without a measurable box", nil)
		return false
	}

	scroll := d.ScrollHeight(box)
	if scroll <= box.ClientHeight {
		d.warnings.Delete(box.ID)
		return false
	}

	logger.Debug("Content overflows page box", map[string]interface{}{
		"box":           box.ID,
		"scroll_height": scroll,
		"client_height": box.ClientHeight,
	})
	if d.ttl > 0 {
		d.warnings.Set(box.ID, scroll, d.ttl)
	}
	return true
}

// Warning reports whether an overflow warning is currently raised for id
func (d *Detector) Warning(id string) bool {
	_, ok := d.warnings.Get(id)
	return ok
}
