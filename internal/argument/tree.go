// Package argument models an essay outline as a normalized tree of
// THESIS, CLAIM and EVIDENCE nodes.
package argument

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrMalformedTree reports a tree that does not form a single outline
// under a thesis root.
var ErrMalformedTree = errors.New("malformed argument tree")

// NodeType is a hierarchy level of the outline.
type NodeType string

const (
	Thesis   NodeType = "THESIS"
	Claim    NodeType = "CLAIM"
	Evidence NodeType = "EVIDENCE"
)

// RootID is the id of the permanent thesis node of a new tree.
const RootID = "root-node"

// Node is one entry of the outline.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Content  string   `json:"content"`
	ParentID string   `json:"parentId,omitempty"`
	Children []string `json:"children"`
}

// Tree is the flat id → node mapping plus the root id.
type Tree struct {
	Nodes  map[string]*Node `json:"nodes"`
	RootID string           `json:"rootId"`
}

// NewTree returns a tree holding a single empty thesis.
func NewTree() Tree {
	return Tree{
		Nodes: map[string]*Node{
			RootID: {ID: RootID, Type: Thesis, Children: []string{}},
		},
		RootID: RootID,
	}
}

// Clone returns a deep copy of t.
func (t Tree) Clone() Tree {
	out := Tree{Nodes: make(map[string]*Node, len(t.Nodes)), RootID: t.RootID}
	for id, n := range t.Nodes {
		c := *n
		c.Children = slices.Clone(n.Children)
		if c.Children == nil {
			c.Children = []string{}
		}
		out.Nodes[id] = &c
	}
	return out
}

// Validate checks that t is one well-formed outline: a thesis root, every
// listed child present exactly once with a matching parent id, no children
// under evidence, and no node outside the root's subtree.
func (t Tree) Validate() error {
	root := t.Nodes[t.RootID]
	if root == nil {
		return fmt.Errorf("%w: root %q not found", ErrMalformedTree, t.RootID)
	}
	if root.Type != Thesis {
		return fmt.Errorf("%w: root %q is %s, not %s", ErrMalformedTree, t.RootID, root.Type, Thesis)
	}
	for id, n := range t.Nodes {
		if n == nil {
			return fmt.Errorf("%w: node %q is empty", ErrMalformedTree, id)
		}
		if n.ID != id {
			return fmt.Errorf("%w: node %q is stored under %q", ErrMalformedTree, n.ID, id)
		}
	}

	seen := map[string]bool{t.RootID: true}
	queue := []string{t.RootID}
	for len(queue) > 0 {
		n := t.Nodes[queue[0]]
		queue = queue[1:]
		if n.Type == Evidence && len(n.Children) > 0 {
			return fmt.Errorf("%w: evidence %q has children", ErrMalformedTree, n.ID)
		}
		for _, cid := range n.Children {
			c, ok := t.Nodes[cid]
			if !ok {
				return fmt.Errorf("%w: %q lists missing child %q", ErrMalformedTree, n.ID, cid)
			}
			if seen[cid] {
				return fmt.Errorf("%w: node %q is reached twice", ErrMalformedTree, cid)
			}
			if c.ParentID != n.ID {
				return fmt.Errorf("%w: node %q names parent %q but sits under %q", ErrMalformedTree, cid, c.ParentID, n.ID)
			}
			seen[cid] = true
			queue = append(queue, cid)
		}
	}
	if len(seen) != len(t.Nodes) {
		return fmt.Errorf("%w: %d nodes are not under the root", ErrMalformedTree, len(t.Nodes)-len(seen))
	}
	return nil
}

// Get returns a copy of a node.
func (t Tree) Get(id string) (Node, bool) {
	n, ok := t.Nodes[id]
	if !ok {
		return Node{}, false
	}
	c := *n
	c.Children = slices.Clone(n.Children)
	return c, true
}

// ChildType returns the type a child of parent must have. Evidence is
// terminal and has no child type.
func ChildType(parent NodeType) (NodeType, bool) {
	switch parent {
	case Thesis:
		return Claim, true
	case Claim:
		return Evidence, true
	}
	return "", false
}

// Descendants returns the ids under id in breadth-first order, excluding id.
func (t Tree) Descendants(id string) []string {
	n, ok := t.Nodes[id]
	if !ok {
		return nil
	}
	var out []string
	queue := slices.Clone(n.Children)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		if c, ok := t.Nodes[cur]; ok {
			queue = append(queue, c.Children...)
		}
	}
	return out
}

// GenerateOutline renders the subtree at rootID as plain text, pre-order:
//
//	Thesis: {content}\n\n
//	Body Paragraph: {content}\n
//	  - Evidence: {content}\n
//
// Nodes of other types add nothing but their children are still visited.
func GenerateOutline(t Tree, rootID string) string {
	var sb strings.Builder
	var walk func(id string)
	walk = func(id string) {
		n, ok := t.Nodes[id]
		if !ok {
			return
		}
		switch n.Type {
		case Thesis:
			sb.WriteString("Thesis: " + n.Content + "\n\n")
		case Claim:
			sb.WriteString("Body Paragraph: " + n.Content + "\n")
		case Evidence:
			sb.WriteString("  - Evidence: " + n.Content + "\n")
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(rootID)
	return sb.String()
}

// NestedNode is a recursive view of the tree for rendering.
type NestedNode struct {
	ID       string        `json:"id"`
	Type     NodeType      `json:"type"`
	Content  string        `json:"content"`
	Children []*NestedNode `json:"children"`
}

// Nested builds the recursive view rooted at the tree's root.
func Nested(t Tree) *NestedNode {
	var build func(id string) *NestedNode
	build = func(id string) *NestedNode {
		n, ok := t.Nodes[id]
		if !ok {
			return nil
		}
		out := &NestedNode{ID: n.ID, Type: n.Type, Content: n.Content, Children: []*NestedNode{}}
		for _, c := range n.Children {
			if child := build(c); child != nil {
				out.Children = append(out.Children, child)
			}
		}
		return out
	}
	return build(t.RootID)
}
