package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-conductor/internal/execution"
)

// handleListExecutions returns recent execution logs, newest first.
//
// Query parameters:
//   - user_id: only executions run for this user
//   - limit: page size (default 20, max 100)
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if len(userID) > maxQueryParamLen {
		writeBadRequest(w, "user_id too long")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), execution.DefaultListLimit, execution.MaxListLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	logs, err := s.executions.List(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("failed to list executions", "error", err)
		writeInternalError(w, "failed to list executions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": logs, "count": len(logs)})
}

// handleGetExecution returns one execution log.
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	log, err := s.executions.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		s.logger.Error("failed to get execution", "error", err, "execution_id", id)
		writeInternalError(w, "failed to get execution")
		return
	}
	writeJSON(w, http.StatusOK, log)
}
