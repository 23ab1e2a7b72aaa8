package argument

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	n := 0
	return NewStore(func() string {
		n++
		return fmt.Sprintf("node-%d", n)
	})
}

func TestNewTree_SingleThesisRoot(t *testing.T) {
	tree := NewTree()
	require.Len(t, tree.Nodes, 1)
	root := tree.Nodes[tree.RootID]
	assert.Equal(t, Thesis, root.Type)
	assert.Empty(t, root.Content)
	assert.Empty(t, root.ParentID)
	assert.Empty(t, root.Children)
}

func TestAddChild_DerivesType(t *testing.T) {
	s := newTestStore()

	claim, ok := s.AddChild(RootID, Evidence)
	require.True(t, ok)
	assert.Equal(t, Claim, claim.Type, "thesis children are claims")
	assert.Equal(t, RootID, claim.ParentID)

	ev, ok := s.AddChild(claim.ID, Claim)
	require.True(t, ok)
	assert.Equal(t, Evidence, ev.Type, "claim children are evidence")

	tree := s.Snapshot()
	assert.Equal(t, []string{claim.ID}, tree.Nodes[RootID].Children)
	assert.Equal(t, []string{ev.ID}, tree.Nodes[claim.ID].Children)
}

func TestAddChild_AppendsInOrder(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddChild(RootID, Claim)
	b, _ := s.AddChild(RootID, Claim)
	c, _ := s.AddChild(RootID, Claim)

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, s.Snapshot().Nodes[RootID].Children)
}

func TestAddChild_EvidenceIsTerminal(t *testing.T) {
	s := newTestStore()
	claim, _ := s.AddChild(RootID, Claim)
	ev, _ := s.AddChild(claim.ID, Evidence)
	before := s.Snapshot()

	for _, typ := range []NodeType{Thesis, Claim, Evidence, "OTHER"} {
		_, ok := s.AddChild(ev.ID, typ)
		assert.False(t, ok)
	}
	assert.Equal(t, before, s.Snapshot())
}

func TestAddChild_MissingParent(t *testing.T) {
	s := newTestStore()
	_, ok := s.AddChild("nope", Claim)
	assert.False(t, ok)
	assert.Len(t, s.Snapshot().Nodes, 1)
}

func TestUpdateContent(t *testing.T) {
	s := newTestStore()
	assert.True(t, s.Dispatch(UpdateContent{ID: RootID, Content: "Liberty requires vigilance"}))
	assert.False(t, s.Dispatch(UpdateContent{ID: "missing", Content: "x"}))

	root, ok := s.Snapshot().Get(RootID)
	require.True(t, ok)
	assert.Equal(t, "Liberty requires vigilance", root.Content)
}

func TestDelete_Cascades(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddChild(RootID, Claim)
	e1, _ := s.AddChild(a.ID, Evidence)
	e2, _ := s.AddChild(a.ID, Evidence)
	b, _ := s.AddChild(RootID, Claim)

	require.True(t, s.Dispatch(Delete{ID: a.ID}))

	tree := s.Snapshot()
	for _, id := range []string{a.ID, e1.ID, e2.ID} {
		_, ok := tree.Nodes[id]
		assert.False(t, ok, "node %s should be gone", id)
	}
	assert.Equal(t, []string{b.ID}, tree.Nodes[RootID].Children)

	for _, n := range tree.Nodes {
		for _, c := range n.Children {
			_, ok := tree.Nodes[c]
			assert.True(t, ok, "dangling child %s under %s", c, n.ID)
		}
	}
}

func TestDelete_LeafRemovesFromParent(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddChild(RootID, Claim)
	e1, _ := s.AddChild(a.ID, Evidence)
	e2, _ := s.AddChild(a.ID, Evidence)

	require.True(t, s.Dispatch(Delete{ID: e1.ID}))
	assert.Equal(t, []string{e2.ID}, s.Snapshot().Nodes[a.ID].Children)
}

func TestDelete_RootAndMissingAreNoOps(t *testing.T) {
	s := newTestStore()
	s.AddChild(RootID, Claim)
	before := s.Snapshot()

	assert.False(t, s.Dispatch(Delete{ID: RootID}))
	assert.False(t, s.Dispatch(Delete{ID: "missing"}))
	assert.Equal(t, before, s.Snapshot())
}

func TestGenerateOutline_Format(t *testing.T) {
	s := newTestStore()
	s.Dispatch(UpdateContent{ID: RootID, Content: "X"})
	claim, _ := s.AddChild(RootID, Claim)
	s.Dispatch(UpdateContent{ID: claim.ID, Content: "Y"})
	ev, _ := s.AddChild(claim.ID, Evidence)
	s.Dispatch(UpdateContent{ID: ev.ID, Content: "Z"})

	assert.Equal(t, "Thesis: X\n\nBody Paragraph: Y\n  - Evidence: Z\n", s.Outline())
}

func TestGenerateOutline_SiblingOrderAndDepthFirst(t *testing.T) {
	s := newTestStore()
	s.Dispatch(UpdateContent{ID: RootID, Content: "T"})
	c1, _ := s.AddChild(RootID, Claim)
	c2, _ := s.AddChild(RootID, Claim)
	e1, _ := s.AddChild(c1.ID, Evidence)
	e2, _ := s.AddChild(c2.ID, Evidence)
	for id, text := range map[string]string{c1.ID: "C1", c2.ID: "C2", e1.ID: "E1", e2.ID: "E2"} {
		s.Dispatch(UpdateContent{ID: id, Content: text})
	}

	want := "Thesis: T\n\n" +
		"Body Paragraph: C1\n" +
		"  - Evidence: E1\n" +
		"Body Paragraph: C2\n" +
		"  - Evidence: E2\n"
	assert.Equal(t, want, s.Outline())
}

func TestGenerateOutline_UnknownTypeStillDescends(t *testing.T) {
	tree := Tree{
		RootID: "r",
		Nodes: map[string]*Node{
			"r": {ID: "r", Type: "SECTION", Children: []string{"c"}},
			"c": {ID: "c", Type: Claim, Content: "kept", ParentID: "r"},
		},
	}
	assert.Equal(t, "Body Paragraph: kept\n", GenerateOutline(tree, "r"))
	assert.Empty(t, GenerateOutline(tree, "missing"))
}

func TestReduce_IsPure(t *testing.T) {
	tree := NewTree()
	next, changed := Reduce(tree, AddChild{ParentID: RootID, ID: "c1"})
	require.True(t, changed)
	assert.Len(t, tree.Nodes, 1)
	assert.Empty(t, tree.Nodes[RootID].Children)
	assert.Len(t, next.Nodes, 2)

	_, changed = Reduce(next, AddChild{ParentID: RootID, ID: "c1"})
	assert.False(t, changed, "ids are never reused")
}

func TestStore_Replace(t *testing.T) {
	s := newTestStore()
	restored := NewTree()
	restored.Nodes[RootID].Content = "restored"
	assert.True(t, s.Replace(restored))
	assert.Equal(t, "Thesis: restored\n\n", s.Outline())

	bad := Tree{RootID: "x", Nodes: map[string]*Node{"x": {ID: "x", Type: Claim}}}
	assert.False(t, s.Replace(bad))
	assert.Equal(t, "Thesis: restored\n\n", s.Outline())
}

func TestStore_ReplaceRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"null node":       `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":["x"]},"x":null}}`,
		"missing child":   `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":["ghost"]}}}`,
		"evidence parent": `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":["e"]},"e":{"id":"e","type":"EVIDENCE","parentId":"root-node","children":["f"]},"f":{"id":"f","type":"EVIDENCE","parentId":"e","children":[]}}}`,
		"cycle":           `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":["c"]},"c":{"id":"c","type":"CLAIM","parentId":"root-node","children":["root-node"]}}}`,
		"shared child":    `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":["c","c"]},"c":{"id":"c","type":"CLAIM","parentId":"root-node","children":[]}}}`,
		"wrong parent":    `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":["c"]},"c":{"id":"c","type":"CLAIM","parentId":"elsewhere","children":[]}}}`,
		"orphan":          `{"rootId":"root-node","nodes":{"root-node":{"id":"root-node","type":"THESIS","children":[]},"o":{"id":"o","type":"CLAIM","parentId":"root-node","children":[]}}}`,
		"mismatched id":   `{"rootId":"root-node","nodes":{"root-node":{"id":"other","type":"THESIS","children":[]}}}`,
		"no nodes":        `{"rootId":"root-node"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var tree Tree
			require.NoError(t, json.Unmarshal([]byte(raw), &tree))
			assert.ErrorIs(t, tree.Validate(), ErrMalformedTree)

			s := newTestStore()
			assert.False(t, s.Replace(tree))
			assert.Equal(t, "Thesis: \n\n", s.Outline())
		})
	}
}

func TestValidate_AcceptsBuiltTree(t *testing.T) {
	s := newTestStore()
	c, _ := s.AddChild(RootID, Claim)
	s.AddChild(c.ID, Evidence)
	s.AddChild(RootID, Claim)
	assert.NoError(t, s.Snapshot().Validate())
}

func TestNested(t *testing.T) {
	s := newTestStore()
	c, _ := s.AddChild(RootID, Claim)
	s.AddChild(c.ID, Evidence)

	root := Nested(s.Snapshot())
	require.NotNil(t, root)
	require.Len(t, root.Children, 1)
	assert.Equal(t, Claim, root.Children[0].Type)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, Evidence, root.Children[0].Children[0].Type)
}
