package paginate

import (
	"strings"
)

// FindSplitIndex returns the largest number of leading words of content
// whose rendered height, as reported by measure, fits within maxHeight.
// It returns 0 when no prefix fits and len(words) when everything fits.
func FindSplitIndex(content string, maxHeight float64, measure func(string) float64) int {
	words := strings.Fields(content)

	best := 0
	left, right := 0, len(words)
	for left <= right {
		mid := left + (right-left)/2
		if measure(strings.Join(words[:mid], " ")) <= maxHeight {
			best = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return best
}

// SplitAt divides content after the first index words
func SplitAt(content string, index int) (string, string) {
	words := strings.Fields(content)
	if index < 0 {
		index = 0
	}
	if index > len(words) {
		index = len(words)
	}
	return strings.Join(words[:index], " "), strings.Join(words[index:], " ")
}

const continuedSuffix = "(continued)"

// ContinuedTitle derives the title of the page that receives the overflow.
// A title that is already a continuation is kept as is.
func ContinuedTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return continuedSuffix
	}
	if strings.HasSuffix(title, continuedSuffix) {
		return title
	}
	return title + " " + continuedSuffix
}
