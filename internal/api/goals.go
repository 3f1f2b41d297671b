package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-conductor/internal/execution"
)

// maxGoalTextLen bounds the goal text accepted from clients.
const maxGoalTextLen = 500

type createGoalRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type executePlanRequest struct {
	UserID string `json:"user_id"`
	DryRun bool   `json:"dry_run"`
}

// executionResponse is the body returned by POST /plans/{id}/execute.
type executionResponse struct {
	ExecutionID string                  `json:"execution_id"`
	PlanID      string                  `json:"plan_id"`
	Status      execution.OverallStatus `json:"status"`
	DryRun      bool                    `json:"dry_run"`
	Summary     execution.Summary       `json:"summary"`
	Details     []execution.StepResult  `json:"details"`
}

// handleCreateGoal classifies goal text and stores the resulting plan.
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return
	}
	if len(req.UserID) > maxQueryParamLen || len(req.Text) > maxGoalTextLen {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "text or user_id too long")
		return
	}

	p, err := s.planner.CreatePlan(r.Context(), req.Text, req.UserID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		s.logger.Error("failed to create plan", "error", err, "user_id", req.UserID)
		writeInternalError(w, "failed to create plan")
		return
	}

	s.logger.Info("plan created",
		"plan_id", p.ID,
		"goal_type", p.GoalType,
		"steps", len(p.Steps),
		"user_id", p.UserID,
	)
	writeJSON(w, http.StatusCreated, p)
}

// handleGetPlan returns a pending plan without consuming it.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.plans.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		s.logger.Error("failed to get plan", "error", err, "plan_id", id)
		writeInternalError(w, "failed to get plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePlan discards a pending plan.
func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.plans.Delete(r.Context(), id); err != nil {
		if writeDomainError(w, err) {
			return
		}
		s.logger.Error("failed to delete plan", "error", err, "plan_id", id)
		writeInternalError(w, "failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecutePlan runs a pending plan to completion.
// The response is 200 whenever the plan existed, whatever its steps did.
func (s *Server) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The body is optional.
	var req executePlanRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(w, "invalid JSON: "+err.Error())
			return
		}
	}
	if len(req.UserID) > maxQueryParamLen {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "user_id too long")
		return
	}

	log, err := s.executor.Execute(r.Context(), id, req.UserID, req.DryRun)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		s.logger.Error("failed to execute plan", "error", err, "plan_id", id)
		writeInternalError(w, "failed to execute plan")
		return
	}

	writeJSON(w, http.StatusOK, executionResponse{
		ExecutionID: log.ID,
		PlanID:      log.PlanID,
		Status:      log.OverallStatus,
		DryRun:      log.DryRun,
		Summary:     log.Summary(),
		Details:     log.Steps,
	})
}
