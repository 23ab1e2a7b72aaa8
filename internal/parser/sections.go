package parser

import (
	"strings"

	"github.com/dgallion1/closereader/internal/doctree"
)

// sectionBuilder nests paragraphs under the most recent heading of a lower
// level. Every heading-aware parser feeds it blocks in document order.
type sectionBuilder struct {
	root    *doctree.DocNode
	stack   []sectionEntry
	pending []string
}

type sectionEntry struct {
	node  *doctree.DocNode
	level int
}

func newSectionBuilder() *sectionBuilder {
	root := &doctree.DocNode{}
	return &sectionBuilder{root: root, stack: []sectionEntry{{node: root}}}
}

// Paragraph queues a block of body text for the current section.
func (b *sectionBuilder) Paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.pending = append(b.pending, text)
	}
}

// Heading opens a new section at level (1 = top).
func (b *sectionBuilder) Heading(level int, title string) {
	b.flush()
	node := &doctree.DocNode{Title: strings.TrimSpace(title)}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, sectionEntry{node: node, level: level})
}

func (b *sectionBuilder) flush() {
	if len(b.pending) == 0 {
		return
	}
	top := b.stack[len(b.stack)-1].node
	text := strings.Join(b.pending, "\n\n")
	if top.Text != "" {
		top.Text += "\n\n" + text
	} else {
		top.Text = text
	}
	b.pending = b.pending[:0]
}

// Sections returns the top-level nodes. Text ahead of the first heading
// becomes a leading untitled node.
func (b *sectionBuilder) Sections() []*doctree.DocNode {
	b.flush()
	if b.root.Text == "" {
		return b.root.Children
	}
	return append([]*doctree.DocNode{{Text: b.root.Text}}, b.root.Children...)
}
