package capacity

import (
	"strings"
	"unicode/utf8"

	"github.com/takak2166/pagefit/internal/logger"
	"github.com/takak2166/pagefit/internal/models"
)

// Limits holds the numbers a page budget is derived from
type Limits struct {
	Base     int // budget of a page without a title
	TitleCap int // maximum cost a title can take away
	Floor    int // budget never goes below this
}

// DefaultLimits are the limits used by the editor unless configured otherwise
var DefaultLimits = Limits{Base: 1500, TitleCap: 700, Floor: 800}

// Report summarizes how much of its budget a page uses
type Report struct {
	Weight    int
	Budget    int
	Remaining int
	Exceeded  bool
}

// Weight converts content into the scalar cost used for capacity checks
func Weight(content string) int {
	total := 0
	for _, b := range ParseBlocks(content) {
		total += b.Weight()
	}
	return total
}

// Budget computes the default-capped budget for a page with the given title
func Budget(base int, title string) int {
	return Limits{Base: base, TitleCap: DefaultLimits.TitleCap, Floor: DefaultLimits.Floor}.Budget(title)
}

// Budget returns the weight budget of a page with the given title.
// Each title character costs 2, capped at TitleCap, and the result never
// drops below Floor.
func (l Limits) Budget(title string) int {
	if strings.TrimSpace(title) == "" {
		return l.Base
	}

	titleCost := utf8.RuneCountInString(title) * 2
	if titleCost > l.TitleCap {
		titleCost = l.TitleCap
	}

	budget := l.Base - titleCost
	if budget < l.Floor {
		budget = l.Floor
	}
	return budget
}

// Remaining returns how much weight can still be added to content under title.
// It is negative when the page is already over budget.
func (l Limits) Remaining(content, title string) int {
	return l.Budget(title) - Weight(content)
}

// Report computes the capacity report of a page
func (l Limits) Report(page models.Page) Report {
	weight := Weight(page.Content)
	budget := l.Budget(page.Title)

	r := Report{
		Weight:    weight,
		Budget:    budget,
		Remaining: budget - weight,
		Exceeded:  weight > budget,
	}

	logger.Debug("Computed page capacity", map[string]interface{}{
		"page_id": page.ID,
		"weight":  r.Weight,
		"budget":  r.Budget,
	})

	return r
}
