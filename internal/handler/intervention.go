package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/snapshot"
)

// InterventionHandler implements intervention CRUD.
type InterventionHandler struct {
	svc    *intervention.Service
	runner *snapshot.Runner
}

func NewInterventionHandler(svc *intervention.Service, runner *snapshot.Runner) *InterventionHandler {
	return &InterventionHandler{svc: svc, runner: runner}
}

// ListInterventions returns interventions matching the query filters.
// GET /v1/interventions?member_id=&status=&priority=
func (h *InterventionHandler) ListInterventions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memberID := q.Get("member_id")
	if memberID == "" {
		memberID = q.Get("memberId")
	}
	f, err := intervention.ParseFilter(memberID, q.Get("status"), q.Get("priority"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Interventions []intervention.Intervention `json:"interventions"`
		TotalCount    int                         `json:"total_count"`
	}{list, len(list)})
}

// CreateIntervention creates an intervention in the recommended state.
// POST /v1/interventions
func (h *InterventionHandler) CreateIntervention(w http.ResponseWriter, r *http.Request) {
	var in intervention.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	iv, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

// GetIntervention returns one intervention.
// GET /v1/interventions/{id}
func (h *InterventionHandler) GetIntervention(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	iv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// UpdateIntervention transitions an intervention's status.
// PATCH /v1/interventions/{id}
func (h *InterventionHandler) UpdateIntervention(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var upd intervention.StatusUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	iv, err := h.svc.UpdateStatus(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// CreateFromRecommendations turns the member's current recommendations into
// tracked interventions.
// POST /v1/members/{member_id}/interventions/from-recommendations
func (h *InterventionHandler) CreateFromRecommendations(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "member_id")
	recs, err := h.runner.Recommendations(memberID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.svc.CreateFromRecommendations(r.Context(), memberID, recs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Interventions []intervention.Intervention `json:"interventions"`
	}{list})
}
