package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/workspace"
)

type annotationPatch struct {
	Content  *string                  `json:"content" validate:"omitempty,max=20000"`
	Verb     *annotation.Verb         `json:"verb"`
	Template *annotation.TemplateData `json:"templateData"`
}

type activeRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	textID := r.URL.Query().Get("text_id")
	if textID != "" {
		// Opening loads the text's annotations on first use.
		if _, err := ws.Open(r.Context(), textID); err != nil {
			s.textError(w, err)
			return
		}
	}
	state := ws.Annotations().Snapshot()
	anns := state.Annotations
	if textID != "" {
		anns = state.ForText(textID)
	}
	if anns == nil {
		anns = []annotation.Annotation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"annotations":        anns,
		"activeAnnotationId": state.ActiveID,
		"rhetoricalContext":  state.Context,
		"status":             state.Status,
	})
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req annotationPatch
	if !s.decode(w, r, &req) {
		return
	}
	a, jobID, err := s.workspace(r).UpdateAnnotation(chi.URLParam(r, "id"), workspace.Patch{
		Content:  req.Content,
		Verb:     req.Verb,
		Template: req.Template,
	})
	if err != nil {
		s.annotationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"annotation": a, "job_id": jobID})
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.workspace(r).DeleteAnnotation(chi.URLParam(r, "id"))
	if err != nil {
		s.annotationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "job_id": jobID})
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.workspace(r).SetActive(req.ID); err != nil {
		s.annotationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"activeAnnotationId": req.ID})
}

func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var req annotation.RhetoricalContext
	if !s.decode(w, r, &req) {
		return
	}
	s.workspace(r).SetContext(req)
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) annotationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrAnnotationNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, workspace.ErrInvalidVerb):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("annotation request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
