package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/snapshot"
)

// AssessmentHandler serves risk assessments and the gym health rollup.
type AssessmentHandler struct {
	runner *snapshot.Runner
}

func NewAssessmentHandler(runner *snapshot.Runner) *AssessmentHandler {
	return &AssessmentHandler{runner: runner}
}

// RunAssessments scores every member of the current snapshot.
// POST /v1/assessments/run
func (h *AssessmentHandler) RunAssessments(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Run(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAssessments returns stored assessments, highest risk first.
// GET /v1/assessments?risk_level=high
func (h *AssessmentHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	level := assessment.RiskLevel(r.URL.Query().Get("risk_level"))
	if level != "" && !level.Valid() {
		valid := make([]string, len(assessment.RiskLevels))
		for i, l := range assessment.RiskLevels {
			valid[i] = string(l)
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "risk_level: invalid value " + string(level),
			"code":  "VALIDATION_ERROR",
			"field": "risk_level",
			"valid": valid,
		})
		return
	}

	all := assessment.Values(h.runner.Store().Assessments())
	list := make([]assessment.RiskAssessment, 0, len(all))
	for _, a := range all {
		if level == "" || a.RiskLevel == level {
			list = append(list, a)
		}
	}
	assessment.ByRisk(list)

	writeJSON(w, http.StatusOK, struct {
		Assessments []assessment.RiskAssessment `json:"assessments"`
		TotalCount  int                         `json:"total_count"`
	}{list, len(list)})
}

// GetAssessment returns the stored assessment of one member.
// GET /v1/assessments/{member_id}
func (h *AssessmentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "member_id")
	a, ok := h.runner.Store().Assessment(memberID)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no assessment for member "+memberID)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// AssessMember scores one member on demand. The result is not stored.
// POST /v1/members/{member_id}/assess
func (h *AssessmentHandler) AssessMember(w http.ResponseWriter, r *http.Request) {
	a, err := h.runner.AssessMember(chi.URLParam(r, "member_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GymHealth aggregates the stored assessments.
// GET /v1/gym-health
func (h *AssessmentHandler) GymHealth(w http.ResponseWriter, r *http.Request) {
	list := assessment.Values(h.runner.Store().Assessments())
	writeJSON(w, http.StatusOK, assessment.ComputeGymHealth(list))
}
