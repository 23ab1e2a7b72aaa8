// Package offset maps selections inside a rendered page to character
// ranges in the full source text, and back again.
//
// All offsets count runes, not bytes.
package offset

import (
	"sort"
	"unicode/utf8"
)

// RunKind distinguishes plain text from highlighted text in a rendered page.
type RunKind string

const (
	Plain     RunKind = "PLAIN"
	Highlight RunKind = "HIGHLIGHT"
)

// Range is a half-open [Start, End) rune range in the unpaginated text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// Valid reports whether the range is non-empty and non-negative.
func (r Range) Valid() bool { return r.Start >= 0 && r.Start < r.End }

// Anchor is an anchored range owned by an annotation.
type Anchor struct {
	ID    string
	Start int
	End   int
}

// Run is one contiguous piece of a rendered page.
type Run struct {
	Kind         RunKind `json:"kind"`
	Text         string  `json:"text"`
	AnnotationID string  `json:"annotationId,omitempty"`
	Start        int     `json:"start"` // page-local
	End          int     `json:"end"`   // page-local
}

// PageLocalToGlobal converts a page-local offset to a global one.
func PageLocalToGlobal(pageStart, local int) int {
	return pageStart + local
}

// SliceHighlights splits pageText into alternating plain and highlighted
// runs. Anchors overlapping the page window are clipped to it and sorted by
// start (stable). Where anchors overlap, the one later in that order owns
// the contested characters. The runs cover the page exactly once.
func SliceHighlights(pageStart int, pageText string, anchors []Anchor) []Run {
	runes := []rune(pageText)
	n := len(runes)
	if n == 0 {
		return nil
	}
	pageEnd := pageStart + n

	type clipped struct {
		id         string
		start, end int // page-local
		origStart  int
		order      int
	}
	var hits []clipped
	for i, a := range anchors {
		if a.Start >= a.End {
			continue
		}
		if a.End <= pageStart || a.Start >= pageEnd {
			continue
		}
		s := max(a.Start, pageStart) - pageStart
		e := min(a.End, pageEnd) - pageStart
		hits = append(hits, clipped{id: a.ID, start: s, end: e, origStart: a.Start, order: i})
	}
	if len(hits) == 0 {
		return []Run{{Kind: Plain, Text: pageText, Start: 0, End: n}}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].origStart < hits[j].origStart
	})

	bounds := []int{0, n}
	for _, h := range hits {
		bounds = append(bounds, h.start, h.end)
	}
	sort.Ints(bounds)
	bounds = dedupe(bounds)

	var runs []Run
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		owner := -1
		for k := len(hits) - 1; k >= 0; k-- {
			if hits[k].start <= lo && hi <= hits[k].end {
				owner = k
				break
			}
		}
		kind, id := Plain, ""
		if owner >= 0 {
			kind, id = Highlight, hits[owner].id
		}
		if last := len(runs) - 1; last >= 0 && runs[last].Kind == kind && runs[last].AnnotationID == id {
			runs[last].End = hi
			continue
		}
		runs = append(runs, Run{Kind: kind, AnnotationID: id, Start: lo, End: hi})
	}
	for i := range runs {
		runs[i].Text = string(runes[runs[i].Start:runs[i].End])
	}
	return runs
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// Selection describes a UI selection inside the container that renders the
// current page.
type Selection struct {
	// RelativeStart is the number of runes in the container that precede
	// the selection start.
	RelativeStart int
	// Text is the selected text as reported by the UI.
	Text string
	// Collapsed is set when the selection has no extent.
	Collapsed bool
	// Contained is false when the selection reaches outside the container.
	Contained bool
}

// SelectionFromBounds builds a contained selection from page-local rune
// bounds. An invalid window yields a collapsed selection.
func SelectionFromBounds(pageText string, start, end int) Selection {
	runes := []rune(pageText)
	if start < 0 || end > len(runes) || start >= end {
		return Selection{RelativeStart: start, Collapsed: true, Contained: true}
	}
	return Selection{
		RelativeStart: start,
		Text:          string(runes[start:end]),
		Contained:     true,
	}
}

// Capture converts a selection on a page into a global range. It returns
// false when no annotation should be created: empty or collapsed
// selections, selections outside the container, and selections whose text
// does not sit at the reported offset.
func Capture(pageStart int, pageText string, sel Selection) (Range, bool) {
	if !sel.Contained || sel.Collapsed || sel.Text == "" {
		return Range{}, false
	}
	runes := []rune(pageText)
	length := utf8.RuneCountInString(sel.Text)
	if sel.RelativeStart < 0 || sel.RelativeStart+length > len(runes) {
		return Range{}, false
	}
	if string(runes[sel.RelativeStart:sel.RelativeStart+length]) != sel.Text {
		return Range{}, false
	}
	start := PageLocalToGlobal(pageStart, sel.RelativeStart)
	return Range{Start: start, End: start + length}, true
}
