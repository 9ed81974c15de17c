package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/assistant"
	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/snapshot"
	"github.com/matthewbaird/retention/internal/types"
)

// AssistantHandler serves the plain-text context block.
type AssistantHandler struct {
	runner        *snapshot.Runner
	interventions *intervention.Service
	topN          int
}

func NewAssistantHandler(runner *snapshot.Runner, interventions *intervention.Service, topN int) *AssistantHandler {
	return &AssistantHandler{runner: runner, interventions: interventions, topN: topN}
}

// Context renders the current state for an assistant.
// GET /v1/assistant/context
func (h *AssistantHandler) Context(w http.ResponseWriter, r *http.Request) {
	var snap *types.Snapshot
	cur, err := h.runner.Store().Current()
	switch {
	case err == nil:
		snap = cur
	case !errors.Is(err, snapshot.ErrNoSnapshot):
		writeServiceError(w, r, err)
		return
	}

	ivs, err := h.interventions.List(r.Context(), intervention.Filter{})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list := assessment.Values(h.runner.Store().Assessments())

	out := assistant.Render(assistant.Input{
		GeneratedAt:   time.Now().UTC(),
		Snapshot:      snap,
		Assessments:   list,
		Health:        assessment.ComputeGymHealth(list),
		Interventions: ivs,
		TopN:          h.topN,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		pkgLog.Warn("writing assistant context", "error", err)
	}
}
