package paginator

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 3500

// ErrPageOutOfRange is returned for a page index outside the page list.
var ErrPageOutOfRange = errors.New("page index out of range")

// Paginate splits text into pages of at most maxChars runes without
// breaking words where it can. Concatenating the pages yields text.
//
// A page ends after the last newline in the window if that newline lies
// more than half a page past the page start, else after the last space,
// else at the hard cut.
func Paginate(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultPageSize
	}

	runes := []rune(text)
	var pages []string
	start := 0

	for start < len(runes) {
		end := min(start+maxChars, len(runes))
		if end < len(runes) {
			end = breakPoint(runes, start, end, maxChars)
		}
		pages = append(pages, string(runes[start:end]))
		start = end
	}

	return pages
}

// breakPoint picks where a page starting at start should end, given the
// hard cut at end.
func breakPoint(runes []rune, start, end, maxChars int) int {
	if nl := lastIndex(runes, '\n', start, end); nl >= 0 && 2*(nl-start) > maxChars {
		return nl + 1
	}
	if sp := lastIndex(runes, ' ', start, end); sp > start {
		return sp + 1
	}
	return end
}

// lastIndex finds the last r in runes[start:end], or -1.
func lastIndex(runes []rune, r rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// PageStartOffset returns the rune offset at which page i begins.
func PageStartOffset(pages []string, i int) (int, error) {
	if i < 0 || i >= len(pages) {
		return 0, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(pages))
	}
	offset := 0
	for _, p := range pages[:i] {
		offset += utf8.RuneCountInString(p)
	}
	return offset, nil
}

// Clamp limits i to a valid page index. It returns 0 for an empty page list.
func Clamp(pages []string, i int) int {
	if len(pages) == 0 || i < 0 {
		return 0
	}
	if i >= len(pages) {
		return len(pages) - 1
	}
	return i
}

// RuneLen returns the length of s in runes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
