// Package annotation holds the annotations a reader attaches to anchored
// ranges of a text.
//
// State is an explicit value. Reduce applies one command to a copy of it
// and never touches anything else; Store serializes commands for callers
// that share a single state.
package annotation

import (
	"time"

	"github.com/dgallion1/closereader/internal/offset"
)

// Annotation is a reader's commentary bound to the rune range
// [AnchorStart, AnchorEnd) of the full source text.
type Annotation struct {
	ID           string        `json:"id"`
	TextID       string        `json:"textId"`
	AnchorStart  int           `json:"anchorStart"`
	AnchorEnd    int           `json:"anchorEnd"`
	SelectedText string        `json:"selectedText"`
	Content      string        `json:"content"`
	Verb         *Verb         `json:"verb,omitempty"`
	Template     *TemplateData `json:"templateData,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Anchor returns the annotation's range in the form the offset model uses.
func (a Annotation) Anchor() offset.Anchor {
	return offset.Anchor{ID: a.ID, Start: a.AnchorStart, End: a.AnchorEnd}
}

func (a Annotation) clone() Annotation {
	if a.Verb != nil {
		v := *a.Verb
		a.Verb = &v
	}
	if a.Template != nil {
		t := a.Template.clone()
		a.Template = &t
	}
	return a
}

// Anchors converts annotations to offset anchors, preserving order.
func Anchors(anns []Annotation) []offset.Anchor {
	out := make([]offset.Anchor, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.Anchor())
	}
	return out
}

// RhetoricalContext is the situation a reader records before reading:
// who speaks, to whom, and why.
type RhetoricalContext struct {
	Speaker     string `json:"speaker" validate:"required"`
	Audience    string `json:"audience" validate:"required"`
	Exigence    string `json:"exigence" validate:"required"`
	Know        string `json:"know,omitempty"`
	WantToLearn string `json:"wantToLearn,omitempty"`
}

// LoadStatus tracks the most recent remote fetch.
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusFailed  LoadStatus = "failed"
)

// State is the full annotation state of one reader.
type State struct {
	Annotations []Annotation       `json:"annotations"`
	ActiveID    string             `json:"activeAnnotationId,omitempty"`
	PanelOpen   bool               `json:"sidebarOpen"`
	Context     *RhetoricalContext `json:"rhetoricalContext,omitempty"`
	Status      LoadStatus         `json:"status"`
}

// NewState returns the initial state: no annotations, panel open.
func NewState() State {
	return State{PanelOpen: true, Status: StatusIdle}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Annotations = make([]Annotation, len(s.Annotations))
	for i, a := range s.Annotations {
		out.Annotations[i] = a.clone()
	}
	if s.Context != nil {
		c := *s.Context
		out.Context = &c
	}
	return out
}

// Get looks up an annotation by id.
func (s State) Get(id string) (Annotation, bool) {
	if i := s.index(id); i >= 0 {
		return s.Annotations[i].clone(), true
	}
	return Annotation{}, false
}

// Active returns the active annotation. A stale active id reports absent.
func (s State) Active() (Annotation, bool) {
	if s.ActiveID == "" {
		return Annotation{}, false
	}
	return s.Get(s.ActiveID)
}

// ForText returns the annotations of textID in display order. An empty
// textID returns all annotations.
func (s State) ForText(textID string) []Annotation {
	out := make([]Annotation, 0, len(s.Annotations))
	for _, a := range s.Annotations {
		if textID == "" || a.TextID == textID {
			out = append(out, a.clone())
		}
	}
	return out
}

func (s State) index(id string) int {
	for i := range s.Annotations {
		if s.Annotations[i].ID == id {
			return i
		}
	}
	return -1
}
