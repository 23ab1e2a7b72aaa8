package parser

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/closereader/internal/doctree"
)

// PDFParser handles PDF files. It tries the Go library first, then falls
// back to pdftotext if enabled. Hard-wrapped lines are reflowed into
// paragraphs so the reading text does not carry the page layout.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	f, _, cleanup, err := spool(r, "closereader-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := extractPDFPages(f.Name())
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(f.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: titleFromFilename(filename)}
	for i, page := range pages {
		for _, para := range reflow(page) {
			tree.Children = append(tree.Children, &doctree.DocNode{Text: para, Page: i + 1})
		}
	}
	return tree, nil
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPdftotext(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-enc", "UTF-8", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	// pdftotext separates pages with form feeds.
	return strings.Split(string(out), "\f"), nil
}

// reflow splits page text on blank lines and joins the wrapped lines of
// each paragraph. A line ending in a hyphen after a letter is rejoined
// without a space.
func reflow(page string) []string {
	var paras []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			paras = append(paras, cur.String())
			cur.Reset()
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			flush()
			continue
		}
		prev := cur.String()
		switch {
		case prev == "":
		case hyphenated(prev):
			s := prev[:len(prev)-1]
			cur.Reset()
			cur.WriteString(s)
		default:
			cur.WriteByte(' ')
		}
		cur.WriteString(line)
	}
	flush()
	return paras
}

func hyphenated(s string) bool {
	n := len(s)
	if n < 2 || s[n-1] != '-' {
		return false
	}
	c := s[n-2]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
