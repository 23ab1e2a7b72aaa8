// Package gate implements the per-page reading checkpoint: every second
// page stays locked until the reader writes a short reflection.
package gate

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// MinAnswerLength is the minimum trimmed length, in runes, of an answer
// that unlocks a page.
const MinAnswerLength = 15

// Prompt is the question the checkpoint asks.
const Prompt = "Identify one rhetorical choice the speaker made on the previous page to advance their purpose."

// Status is the lock state of one page.
type Status string

const (
	Unlocked         Status = "unlocked"
	Locked           Status = "locked"
	UnlockedByAnswer Status = "unlocked_by_answer"
)

// ReasonTooShort is reported for answers under MinAnswerLength.
const ReasonTooShort = "answer_too_short"

// Result is the outcome of a submitted answer.
type Result struct {
	Status   Status `json:"status"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Gate tracks which gated pages have been unlocked in this session.
type Gate struct {
	mu       sync.Mutex
	unlocked map[int]bool
}

// New returns a gate with every gated page locked.
func New() *Gate {
	return &Gate{unlocked: make(map[int]bool)}
}

// Gated reports whether page needs an answer at all: even pages after the
// first.
func Gated(page int) bool {
	return page > 0 && page%2 == 0
}

// Status returns the lock state of page.
func (g *Gate) Status(page int) Status {
	if !Gated(page) {
		return Unlocked
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unlocked[page] {
		return UnlockedByAnswer
	}
	return Locked
}

// Allows reports whether navigation and selection may proceed on page.
func (g *Gate) Allows(page int) bool {
	return g.Status(page) != Locked
}

// Submit offers an answer for page. Answers under the minimum are rejected
// and not recorded. Once unlocked, a page stays unlocked.
func (g *Gate) Submit(page int, answer string) Result {
	if !Gated(page) {
		return Result{Status: Unlocked, Accepted: true}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unlocked[page] {
		return Result{Status: UnlockedByAnswer, Accepted: true}
	}
	if !Sufficient(answer) {
		return Result{Status: Locked, Reason: ReasonTooShort}
	}
	g.unlocked[page] = true
	return Result{Status: UnlockedByAnswer, Accepted: true}
}

// Sufficient reports whether answer meets the minimum length.
func Sufficient(answer string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(answer)) >= MinAnswerLength
}

// UnlockedPages returns the pages unlocked by an answer.
func (g *Gate) UnlockedPages() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int, 0, len(g.unlocked))
	for p := range g.unlocked {
		out = append(out, p)
	}
	return out
}
