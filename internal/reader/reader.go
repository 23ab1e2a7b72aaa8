// Package reader tracks one reader's position in one paginated text and
// enforces the reading checkpoints while they move through it.
package reader

import (
	"errors"
	"math"
	"sync"

	"github.com/dgallion1/closereader/internal/gate"
	"github.com/dgallion1/closereader/internal/offset"
	"github.com/dgallion1/closereader/internal/paginator"
)

var (
	// ErrPageLocked is returned when the current page is waiting on a
	// checkpoint answer.
	ErrPageLocked = errors.New("page is locked")
	// ErrEmptySelection is returned when a selection cannot become an
	// annotation.
	ErrEmptySelection = errors.New("selection is empty or outside the page")
)

// View is what a client renders for the current page.
type View struct {
	TextID   string       `json:"text_id"`
	Page     int          `json:"page"`
	Pages    int          `json:"pages"`
	Start    int          `json:"start"`
	Text     string       `json:"text"`
	Gate     gate.Status  `json:"gate"`
	Prompt   string       `json:"prompt,omitempty"`
	Progress int          `json:"progress"`
	Runs     []offset.Run `json:"runs,omitempty"`
}

// Session is a cursor over the pages of a text. Safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	textID string
	pages  []string
	starts []int
	page   int
	gate   *gate.Gate
}

// New creates a session positioned on the first page.
func New(textID string, pages []string) *Session {
	starts := make([]int, len(pages))
	pos := 0
	for i, p := range pages {
		starts[i] = pos
		pos += paginator.RuneLen(p)
	}
	return &Session{
		textID: textID,
		pages:  pages,
		starts: starts,
		gate:   gate.New(),
	}
}

// TextID returns the id of the text being read.
func (s *Session) TextID() string { return s.textID }

// Pages returns the page count.
func (s *Session) Pages() int { return len(s.pages) }

// Current returns the current page index.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// View renders the current page with the given annotations highlighted.
func (s *Session) View(anchors []offset.Anchor) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(anchors)
}

func (s *Session) viewLocked(anchors []offset.Anchor) View {
	v := View{
		TextID:   s.textID,
		Page:     s.page,
		Pages:    len(s.pages),
		Progress: s.progressLocked(),
	}
	if len(s.pages) == 0 {
		v.Gate = gate.Unlocked
		return v
	}
	v.Start = s.starts[s.page]
	v.Text = s.pages[s.page]
	v.Gate = s.gate.Status(s.page)
	if v.Gate == gate.Locked {
		v.Prompt = gate.Prompt
	}
	v.Runs = offset.SliceHighlights(v.Start, v.Text, anchors)
	return v
}

// Next moves forward one page. It stays put on the last page.
func (s *Session) Next() (int, error) {
	return s.move(func(cur int) int { return cur + 1 })
}

// Prev moves back one page. It stays put on the first page.
func (s *Session) Prev() (int, error) {
	return s.move(func(cur int) int { return cur - 1 })
}

// Goto jumps to page i.
func (s *Session) Goto(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pages) {
		return s.page, paginator.ErrPageOutOfRange
	}
	if !s.gate.Allows(s.page) {
		return s.page, ErrPageLocked
	}
	s.page = i
	return s.page, nil
}

func (s *Session) move(step func(int) int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) > 0 && !s.gate.Allows(s.page) {
		return s.page, ErrPageLocked
	}
	s.page = paginator.Clamp(s.pages, step(s.page))
	return s.page, nil
}

// Answer submits a checkpoint answer for the current page and reports
// which page it judged.
func (s *Session) Answer(answer string) (int, gate.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.gate.Submit(s.page, answer)
}

// Select converts a selection on the current page into a global range.
func (s *Session) Select(sel offset.Selection) (offset.Range, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(sel)
}

// SelectBounds selects the page-local rune window [start, end) of the
// current page.
func (s *Session) SelectBounds(start, end int) (offset.Range, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 0 {
		return offset.Range{}, "", ErrEmptySelection
	}
	return s.selectLocked(offset.SelectionFromBounds(s.pages[s.page], start, end))
}

func (s *Session) selectLocked(sel offset.Selection) (offset.Range, string, error) {
	if len(s.pages) == 0 {
		return offset.Range{}, "", ErrEmptySelection
	}
	if !s.gate.Allows(s.page) {
		return offset.Range{}, "", ErrPageLocked
	}
	r, ok := offset.Capture(s.starts[s.page], s.pages[s.page], sel)
	if !ok {
		return offset.Range{}, "", ErrEmptySelection
	}
	return r, sel.Text, nil
}

// Progress returns the reading progress as a whole percentage.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() int {
	if len(s.pages) == 0 {
		return 0
	}
	return int(math.Round(float64(s.page+1) / float64(len(s.pages)) * 100))
}

// UnlockedPages lists pages unlocked by an answer.
func (s *Session) UnlockedPages() []int {
	return s.gate.UnlockedPages()
}
