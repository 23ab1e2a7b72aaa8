package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		jsonError(w, "sync unavailable", http.StatusServiceUnavailable)
		return
	}
	job := s.sync.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.UserID != UserID(r.Context()) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		jsonError(w, "sync stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.sync.Stats(),
		"queue_depth": s.sync.QueueDepth(),
		"deferred":    s.sync.Pending(),
		"workspaces":  s.workspaces.Len(),
	})
}
