package argument

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Command is one outline edit. Edits that address a missing node, add
// under evidence, or delete the root change nothing.
type Command interface {
	apply(t *Tree) bool
}

// AddChild appends a new node under ParentID. The node's type follows from
// the parent's type; Requested is only a hint from the caller.
type AddChild struct {
	ParentID  string
	Requested NodeType
	ID        string
}

// UpdateContent replaces a node's text.
type UpdateContent struct {
	ID      string
	Content string
}

// Delete removes a node and its whole subtree. The root cannot be deleted.
type Delete struct {
	ID string
}

// Reduce applies cmd to a copy of t.
func Reduce(t Tree, cmd Command) (Tree, bool) {
	next := t.Clone()
	if !cmd.apply(&next) {
		return t, false
	}
	return next, true
}

func (c AddChild) apply(t *Tree) bool {
	parent, ok := t.Nodes[c.ParentID]
	if !ok || c.ID == "" {
		return false
	}
	if _, taken := t.Nodes[c.ID]; taken {
		return false
	}
	typ, ok := ChildType(parent.Type)
	if !ok {
		return false
	}
	t.Nodes[c.ID] = &Node{
		ID:       c.ID,
		Type:     typ,
		ParentID: c.ParentID,
		Children: []string{},
	}
	parent.Children = append(parent.Children, c.ID)
	return true
}

func (c UpdateContent) apply(t *Tree) bool {
	n, ok := t.Nodes[c.ID]
	if !ok {
		return false
	}
	n.Content = c.Content
	return true
}

func (c Delete) apply(t *Tree) bool {
	n, ok := t.Nodes[c.ID]
	if !ok || c.ID == t.RootID {
		return false
	}
	if parent, ok := t.Nodes[n.ParentID]; ok {
		parent.Children = slices.DeleteFunc(parent.Children, func(id string) bool { return id == c.ID })
	}
	for _, id := range t.Descendants(c.ID) {
		delete(t.Nodes, id)
	}
	delete(t.Nodes, c.ID)
	return true
}

// Store owns one outline and applies edits one at a time.
type Store struct {
	mu    sync.Mutex
	tree  Tree
	newID func() string
}

// NewStore creates a store holding a fresh tree. A nil newID uses UUIDs.
func NewStore(newID func() string) *Store {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Store{tree: NewTree(), newID: newID}
}

// Dispatch applies cmd and reports whether the tree changed.
func (s *Store) Dispatch(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cmd.apply(&s.tree)
}

// AddChild appends a node under parentID and returns it.
func (s *Store) AddChild(parentID string, requested NodeType) (Node, bool) {
	cmd := AddChild{ParentID: parentID, Requested: requested, ID: s.newID()}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !cmd.apply(&s.tree) {
		return Node{}, false
	}
	return s.tree.Get(cmd.ID)
}

// Replace swaps in a tree, e.g. one restored from remote persistence. A
// tree that fails Validate is ignored.
func (s *Store) Replace(t Tree) bool {
	if t.Validate() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = t.Clone()
	return true
}

// Snapshot returns a copy of the tree.
func (s *Store) Snapshot() Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

// Outline renders the whole tree.
func (s *Store) Outline() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GenerateOutline(s.tree, s.tree.RootID)
}
