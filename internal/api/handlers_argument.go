package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/closereader/internal/argument"
	"github.com/dgallion1/closereader/internal/workspace"
)

type addNodeRequest struct {
	Type argument.NodeType `json:"type" validate:"omitempty,oneof=THESIS CLAIM EVIDENCE"`
}

type updateNodeRequest struct {
	Content *string `json:"content" validate:"required,max=20000"`
}

func (s *Server) handleGetArgument(w http.ResponseWriter, r *http.Request) {
	tree := s.workspace(r).Argument().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"tree":   tree,
		"nested": argument.Nested(tree),
	})
}

// handleOutline returns the plain-text outline exactly as generated.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.workspace(r).Argument().Outline()))
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, jobID, err := s.workspace(r).AddNode(chi.URLParam(r, "id"), req.Type)
	if err != nil {
		s.argumentError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"node": n, "job_id": jobID})
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req updateNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, jobID, err := s.workspace(r).UpdateNode(chi.URLParam(r, "id"), *req.Content)
	if err != nil {
		s.argumentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"node": n, "job_id": jobID})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.workspace(r).DeleteNode(chi.URLParam(r, "id"))
	if err != nil {
		s.argumentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "job_id": jobID})
}

func (s *Server) argumentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrNodeNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, workspace.ErrNodeRejected), errors.Is(err, workspace.ErrRootNode):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.log.Error("argument request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
