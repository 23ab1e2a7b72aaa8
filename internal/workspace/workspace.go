// Package workspace bundles everything one reader has open: their
// annotations, their argument outline and a reading session per text.
// Local state changes first; remote persistence is brought up to date by
// background sync jobs.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/argument"
	"github.com/dgallion1/closereader/internal/catalog"
	"github.com/dgallion1/closereader/internal/metrics"
	"github.com/dgallion1/closereader/internal/paginator"
	"github.com/dgallion1/closereader/internal/pipeline"
	"github.com/dgallion1/closereader/internal/reader"
)

var (
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrInvalidVerb        = errors.New("unknown rhetorical verb")
	ErrNodeNotFound       = errors.New("argument node not found")
	ErrNodeRejected       = errors.New("node cannot take children")
	ErrRootNode           = errors.New("the thesis cannot be deleted")
)

// Persistence is the remote state a workspace hydrates from.
type Persistence interface {
	FetchAll(ctx context.Context, textID, userID string) ([]annotation.Annotation, error)
	FetchOutline(ctx context.Context, userID string) (argument.Tree, bool, error)
}

// Syncer accepts background sync jobs.
type Syncer interface {
	Submit(job *pipeline.Job) error
}

// Workspace is safe for concurrent use.
type Workspace struct {
	UserID string

	annotations *annotation.Store
	argument    *argument.Store

	mu       sync.Mutex
	sessions map[string]*reader.Session
	loaded   map[string]bool
	// dropped holds ids deleted locally, so a late fetch of a text whose
	// delete job is still pending cannot bring them back.
	dropped map[string]bool

	catalog  *catalog.Catalog
	pages    *paginator.Cache
	pageSize int
	remote   Persistence
	sync     Syncer
	log      *slog.Logger
}

// Annotations exposes the annotation store for reads.
func (w *Workspace) Annotations() *annotation.Store { return w.annotations }

// Argument exposes the argument store for reads.
func (w *Workspace) Argument() *argument.Store { return w.argument }

// submit queues a sync job and returns its id. A job that cannot be queued
// is logged; local state stays as it is.
func (w *Workspace) submit(job *pipeline.Job) string {
	if w.sync == nil {
		return ""
	}
	if err := w.sync.Submit(job); err != nil {
		w.log.Warn("sync submit failed", "job_id", job.ID, "op", job.Task.Op, "error", err)
	}
	return job.ID
}

// LoadText merges the remote annotations of textID into local state.
// Annotations made or edited locally while the remote was unreachable are
// kept. On failure local state is kept and the load status becomes failed.
func (w *Workspace) LoadText(ctx context.Context, textID string) error {
	w.annotations.Dispatch(annotation.LoadStarted{})
	anns, err := w.remote.FetchAll(ctx, textID, w.UserID)
	if err != nil {
		w.annotations.Dispatch(annotation.LoadFailed{})
		return fmt.Errorf("load annotations for %s: %w", textID, err)
	}

	w.mu.Lock()
	dropped := maps.Clone(w.dropped)
	w.mu.Unlock()
	w.annotations.Dispatch(annotation.Loaded{TextID: textID, Annotations: anns, Dropped: dropped})

	w.mu.Lock()
	w.loaded[textID] = true
	w.mu.Unlock()
	return nil
}

// LoadOutline restores the saved argument outline, if there is one.
func (w *Workspace) LoadOutline(ctx context.Context) error {
	tree, found, err := w.remote.FetchOutline(ctx, w.UserID)
	if err != nil {
		return fmt.Errorf("load outline: %w", err)
	}
	if !found {
		return nil
	}
	if err := tree.Validate(); err != nil {
		w.log.Warn("ignoring saved outline", "error", err)
		return nil
	}
	w.argument.Replace(tree)
	return nil
}

// Open returns the reading session for textID, creating it on first use
// and loading the text's annotations if they have not been loaded yet.
func (w *Workspace) Open(ctx context.Context, textID string) (*reader.Session, error) {
	text, err := w.catalog.Get(textID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	s, ok := w.sessions[textID]
	if !ok {
		s = reader.New(textID, w.pages.Pages(text.Body, w.pageSize))
		w.sessions[textID] = s
	}
	loaded := w.loaded[textID]
	w.mu.Unlock()

	if !loaded {
		if err := w.LoadText(ctx, textID); err != nil {
			w.log.Warn("annotation fetch failed", "user_id", w.UserID, "text_id", textID, "error", err)
		}
	}
	return s, nil
}

// View renders the current page of textID with its highlights.
func (w *Workspace) View(ctx context.Context, textID string) (reader.View, error) {
	s, err := w.Open(ctx, textID)
	if err != nil {
		return reader.View{}, err
	}
	return s.View(annotation.Anchors(w.annotations.Annotations(textID))), nil
}

// Select turns the page-local window [start, end) of the current page of
// textID into a new active annotation.
func (w *Workspace) Select(ctx context.Context, textID string, start, end int) (annotation.Annotation, string, error) {
	s, err := w.Open(ctx, textID)
	if err != nil {
		return annotation.Annotation{}, "", err
	}
	r, selected, err := s.SelectBounds(start, end)
	if err != nil {
		return annotation.Annotation{}, "", err
	}
	a, ok := w.annotations.Create(textID, r.Start, r.End, selected)
	if !ok {
		return annotation.Annotation{}, "", reader.ErrEmptySelection
	}
	metrics.AnnotationsCreated.Inc()
	return a, w.submit(pipeline.SaveAnnotationJob(w.UserID, a)), nil
}

// Patch is a partial annotation update. Nil fields are left alone.
type Patch struct {
	Content  *string
	Verb     *annotation.Verb
	Template *annotation.TemplateData
}

// UpdateAnnotation applies p to annotation id.
func (w *Workspace) UpdateAnnotation(id string, p Patch) (annotation.Annotation, string, error) {
	if _, ok := w.annotations.Get(id); !ok {
		return annotation.Annotation{}, "", ErrAnnotationNotFound
	}
	if p.Verb != nil && !p.Verb.Valid() {
		return annotation.Annotation{}, "", ErrInvalidVerb
	}
	if p.Content != nil {
		w.annotations.Dispatch(annotation.UpdateContent{ID: id, Content: *p.Content})
	}
	if p.Verb != nil {
		w.annotations.Dispatch(annotation.SetVerb{ID: id, Verb: *p.Verb})
	}
	if p.Template != nil {
		w.annotations.Dispatch(annotation.MergeTemplate{ID: id, Fields: *p.Template})
	}
	a, ok := w.annotations.Get(id)
	if !ok {
		// Deleted concurrently.
		return annotation.Annotation{}, "", ErrAnnotationNotFound
	}
	return a, w.submit(pipeline.SaveAnnotationJob(w.UserID, a)), nil
}

// DeleteAnnotation removes annotation id.
func (w *Workspace) DeleteAnnotation(id string) (string, error) {
	a, ok := w.annotations.Get(id)
	if !ok || !w.annotations.Dispatch(annotation.Delete{ID: id}) {
		return "", ErrAnnotationNotFound
	}
	w.mu.Lock()
	w.dropped[id] = true
	w.mu.Unlock()
	return w.submit(pipeline.DeleteAnnotationJob(w.UserID, a.TextID, id)), nil
}

// SetActive focuses annotation id; an empty id clears the focus.
func (w *Workspace) SetActive(id string) error {
	if id != "" {
		if _, ok := w.annotations.Get(id); !ok {
			return ErrAnnotationNotFound
		}
	}
	w.annotations.Dispatch(annotation.SetActive{ID: id})
	return nil
}

// SetContext records the rhetorical context of the reading.
func (w *Workspace) SetContext(c annotation.RhetoricalContext) {
	w.annotations.Dispatch(annotation.SetContext{Context: c})
}

// AddNode appends a child under parentID. The child's type follows from
// the parent's.
func (w *Workspace) AddNode(parentID string, requested argument.NodeType) (argument.Node, string, error) {
	if _, ok := w.argument.Snapshot().Get(parentID); !ok {
		return argument.Node{}, "", ErrNodeNotFound
	}
	n, ok := w.argument.AddChild(parentID, requested)
	if !ok {
		return argument.Node{}, "", ErrNodeRejected
	}
	return n, w.saveOutline(), nil
}

// UpdateNode replaces a node's text.
func (w *Workspace) UpdateNode(id, content string) (argument.Node, string, error) {
	if !w.argument.Dispatch(argument.UpdateContent{ID: id, Content: content}) {
		return argument.Node{}, "", ErrNodeNotFound
	}
	n, _ := w.argument.Snapshot().Get(id)
	return n, w.saveOutline(), nil
}

// DeleteNode removes a node and everything under it.
func (w *Workspace) DeleteNode(id string) (string, error) {
	if id == w.argument.Snapshot().RootID {
		return "", ErrRootNode
	}
	if !w.argument.Dispatch(argument.Delete{ID: id}) {
		return "", ErrNodeNotFound
	}
	return w.saveOutline(), nil
}

func (w *Workspace) saveOutline() string {
	return w.submit(pipeline.SaveOutlineJob(w.UserID, w.argument.Snapshot()))
}
