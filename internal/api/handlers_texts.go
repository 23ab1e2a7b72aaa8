package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/closereader/internal/catalog"
	"github.com/dgallion1/closereader/internal/parser"
)

func (s *Server) handleUploadText(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	title, body, err := s.loader.Load(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("text parse failed", "filename", filename, "error", err)
		jsonError(w, "could not read document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if strings.TrimSpace(body) == "" {
		jsonError(w, "document contains no text", http.StatusUnprocessableEntity)
		return
	}
	if t := strings.TrimSpace(r.FormValue("title")); t != "" {
		title = t
	}

	text, dup := s.catalog.Add(title, filename, body)
	code := http.StatusCreated
	if dup {
		code = http.StatusOK
	}
	s.log.Info("text added", "text_id", text.ID, "filename", filename, "runes", text.Runes, "duplicate", dup)
	writeJSON(w, code, text)
}

func (s *Server) handleListTexts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"texts": s.catalog.List()})
}

func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	text, err := s.catalog.Get(chi.URLParam(r, "textID"))
	if err != nil {
		s.textError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, text)
}

func (s *Server) textError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrTextNotFound) {
		jsonError(w, "text not found", http.StatusNotFound)
		return
	}
	s.log.Error("text lookup failed", "error", err)
	jsonError(w, "internal error", http.StatusInternalServerError)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
