package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/closereader/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// SupportedExtensions lists the source formats a reading text can be
// loaded from.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Load parses a source document with default settings. See Loader.Load.
func Load(r io.Reader, filename string) (title, text string, err error) {
	return Loader{PDFFallbackPdftotext: true}.Load(r, filename)
}

// Loader turns uploaded files into reading texts.
type Loader struct {
	// PDFFallbackPdftotext shells out to pdftotext when the native PDF
	// reader fails.
	PDFFallbackPdftotext bool
}

// Load parses a source document and returns its title and the flat reading
// text that annotations anchor into.
func (l Loader) Load(r io.Reader, filename string) (title, text string, err error) {
	p, err := ForFile(filename)
	if err != nil {
		return "", "", err
	}
	if pp, ok := p.(*PDFParser); ok {
		pp.FallbackPdftotext = l.PDFFallbackPdftotext
	}
	tree, err := p.Parse(r, filename)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", filename, err)
	}
	return tree.Title, tree.Flatten(), nil
}
