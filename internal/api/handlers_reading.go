package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/closereader/internal/catalog"
	"github.com/dgallion1/closereader/internal/gate"
	"github.com/dgallion1/closereader/internal/metrics"
	"github.com/dgallion1/closereader/internal/paginator"
	"github.com/dgallion1/closereader/internal/reader"
)

type gotoRequest struct {
	Page *int `json:"page" validate:"required,min=0"`
}

type gateRequest struct {
	Answer string `json:"answer" validate:"max=10000"`
}

type selectionRequest struct {
	Start *int `json:"start" validate:"required,min=0"`
	End   *int `json:"end" validate:"required,min=0"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v, err := s.workspace(r).View(r.Context(), chi.URLParam(r, "textID"))
	if err != nil {
		s.readingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*reader.Session).Next)
}

func (s *Server) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*reader.Session).Prev)
}

func (s *Server) handleGotoPage(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.navigate(w, r, func(sess *reader.Session) (int, error) {
		return sess.Goto(*req.Page)
	})
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, move func(*reader.Session) (int, error)) {
	ws := s.workspace(r)
	textID := chi.URLParam(r, "textID")
	sess, err := ws.Open(r.Context(), textID)
	if err != nil {
		s.readingError(w, err)
		return
	}
	if _, err := move(sess); err != nil {
		s.readingError(w, err)
		return
	}
	v, err := ws.View(r.Context(), textID)
	if err != nil {
		s.readingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ws := s.workspace(r)
	textID := chi.URLParam(r, "textID")
	sess, err := ws.Open(r.Context(), textID)
	if err != nil {
		s.readingError(w, err)
		return
	}

	page, res := sess.Answer(req.Answer)
	metrics.GateSubmissions.WithLabelValues(gateOutcome(page, res)).Inc()

	v, err := ws.View(r.Context(), textID)
	if err != nil {
		s.readingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "view": v})
}

func gateOutcome(page int, res gate.Result) string {
	switch {
	case !gate.Gated(page):
		return "ungated"
	case res.Accepted:
		return "accepted"
	default:
		return "rejected"
	}
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !s.decode(w, r, &req) {
		return
	}
	a, jobID, err := s.workspace(r).Select(r.Context(), chi.URLParam(r, "textID"), *req.Start, *req.End)
	if err != nil {
		s.readingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"annotation": a, "job_id": jobID})
}

func (s *Server) readingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrTextNotFound):
		s.textError(w, err)
	case errors.Is(err, reader.ErrPageLocked):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "prompt": gate.Prompt})
	case errors.Is(err, paginator.ErrPageOutOfRange), errors.Is(err, reader.ErrEmptySelection):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("reading request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
