package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/closereader/internal/doctree"
)

// HTMLParser handles HTML files. Body text is collapsed the way a browser
// renders it; <br> and <pre> keep their line breaks.
type HTMLParser struct{}

var (
	htmlSkipped = map[atom.Atom]bool{
		atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
		atom.Nav: true, atom.Header: true, atom.Footer: true,
	}
	htmlBlocks = map[atom.Atom]bool{
		atom.P: true, atom.Li: true, atom.Td: true, atom.Th: true, atom.Dt: true, atom.Dd: true,
		atom.Blockquote: true, atom.Figcaption: true, atom.Pre: true,
	}
	htmlHeadings = map[atom.Atom]int{
		atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
	}
)

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &doctree.DocTree{Title: titleFromFilename(filename)}
	if t := findElement(doc, atom.Title); t != nil {
		if title := textContent(t); title != "" {
			tree.Title = title
		}
	}

	sections := newSectionBuilder()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case htmlSkipped[n.DataAtom]:
				return
			case htmlHeadings[n.DataAtom] > 0:
				sections.Heading(htmlHeadings[n.DataAtom], textContent(n))
				return
			case htmlBlocks[n.DataAtom]:
				sections.Paragraph(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, atom.Body); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	tree.Children = sections.Sections()

	return tree, nil
}

// textContent returns the rendered text of n.
func textContent(n *html.Node) string {
	pre := n.DataAtom == atom.Pre
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode && pre:
			buf.WriteString(n.Data)
		case n.Type == html.TextNode:
			buf.WriteString(collapseSpace(n.Data))
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	if pre {
		return strings.Trim(buf.String(), "\n")
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// collapseSpace folds every whitespace run, newlines included, into one
// space.
func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	out := strings.Join(strings.Fields(s), " ")
	if out == "" {
		return " "
	}
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
