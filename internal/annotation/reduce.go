package annotation

import (
	"slices"
	"strings"
	"time"
)

// Command is one state transition. Commands addressed to an unknown id are
// no-ops.
type Command interface {
	apply(s *State) bool
}

// Create adds a new annotation for a captured selection. ID and At are
// assigned by the caller so that Reduce stays pure.
type Create struct {
	ID     string
	TextID string
	Start  int
	End    int
	Text   string
	At     time.Time
}

// UpdateContent replaces an annotation's analysis text.
type UpdateContent struct {
	ID      string
	Content string
}

// SetVerb replaces an annotation's rhetorical verb.
type SetVerb struct {
	ID   string
	Verb Verb
}

// MergeTemplate merges template fields into an annotation.
type MergeTemplate struct {
	ID     string
	Fields TemplateData
}

// Delete removes an annotation.
type Delete struct {
	ID string
}

// SetActive moves the active pointer. An empty ID clears it. The id is not
// checked; Delete reconciles a pointer left dangling.
type SetActive struct {
	ID string
}

// SetPanelOpen shows or hides the annotation panel.
type SetPanelOpen struct {
	Open bool
}

// SetContext records the rhetorical context of the reading.
type SetContext struct {
	Context RhetoricalContext
}

// LoadStarted marks a remote fetch in flight.
type LoadStarted struct{}

// LoadFailed marks the last remote fetch as failed. Local state is kept.
type LoadFailed struct{}

// Loaded merges a remote fetch result into the annotations of one text.
// Local annotations win over their remote copies and local annotations the
// remote has never seen are kept. Ids in Dropped were deleted locally and
// are not brought back.
type Loaded struct {
	TextID      string
	Annotations []Annotation
	Dropped     map[string]bool
}

// Reduce applies cmd to a copy of s and returns the copy. The second
// result reports whether anything changed.
func Reduce(s State, cmd Command) (State, bool) {
	next := s.Clone()
	if !cmd.apply(&next) {
		return s, false
	}
	return next, true
}

func (c Create) apply(s *State) bool {
	if c.ID == "" || c.Start < 0 || c.Start >= c.End {
		return false
	}
	s.Annotations = append(s.Annotations, Annotation{
		ID:           c.ID,
		TextID:       c.TextID,
		AnchorStart:  c.Start,
		AnchorEnd:    c.End,
		SelectedText: c.Text,
		CreatedAt:    c.At,
	})
	s.ActiveID = c.ID
	s.PanelOpen = true
	return true
}

func (c UpdateContent) apply(s *State) bool {
	i := s.index(c.ID)
	if i < 0 {
		return false
	}
	s.Annotations[i].Content = c.Content
	return true
}

func (c SetVerb) apply(s *State) bool {
	i := s.index(c.ID)
	if i < 0 || !c.Verb.Valid() {
		return false
	}
	v := c.Verb
	s.Annotations[i].Verb = &v
	return true
}

func (c MergeTemplate) apply(s *State) bool {
	i := s.index(c.ID)
	if i < 0 {
		return false
	}
	var base TemplateData
	if s.Annotations[i].Template != nil {
		base = *s.Annotations[i].Template
	}
	merged := base.Merge(c.Fields)
	s.Annotations[i].Template = &merged
	return true
}

func (c Delete) apply(s *State) bool {
	i := s.index(c.ID)
	if i < 0 {
		return false
	}
	s.Annotations = append(s.Annotations[:i], s.Annotations[i+1:]...)
	if s.ActiveID == c.ID {
		s.ActiveID = ""
	}
	return true
}

func (c SetActive) apply(s *State) bool {
	if s.ActiveID == c.ID {
		return false
	}
	s.ActiveID = c.ID
	return true
}

func (c SetPanelOpen) apply(s *State) bool {
	if s.PanelOpen == c.Open {
		return false
	}
	s.PanelOpen = c.Open
	return true
}

func (c SetContext) apply(s *State) bool {
	ctx := c.Context
	s.Context = &ctx
	return true
}

func (LoadStarted) apply(s *State) bool {
	s.Status = StatusLoading
	return true
}

func (LoadFailed) apply(s *State) bool {
	s.Status = StatusFailed
	return true
}

func (c Loaded) apply(s *State) bool {
	kept := s.Annotations[:0:0]
	var text []Annotation
	local := map[string]bool{}
	for _, a := range s.Annotations {
		if a.TextID != c.TextID {
			kept = append(kept, a)
			continue
		}
		local[a.ID] = true
		text = append(text, a)
	}
	for _, a := range c.Annotations {
		if a.TextID != c.TextID || a.AnchorStart < 0 || a.AnchorStart >= a.AnchorEnd {
			continue
		}
		if local[a.ID] || c.Dropped[a.ID] {
			continue
		}
		local[a.ID] = true
		text = append(text, a.clone())
	}
	slices.SortStableFunc(text, ByCreation)
	kept = append(kept, text...)
	s.Annotations = kept
	if s.ActiveID != "" && s.index(s.ActiveID) < 0 {
		s.ActiveID = ""
	}
	s.Status = StatusIdle
	return true
}

// ByCreation orders annotations oldest first, breaking ties on id.
func ByCreation(a, b Annotation) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
