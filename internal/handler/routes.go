package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/retention/internal/activity"
	"github.com/matthewbaird/retention/internal/eventbus"
	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/snapshot"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Runner        *snapshot.Runner
	Interventions *intervention.Service
	Activity      activity.Store
	Feed          *eventbus.Broadcaster
	AssistantTopN int
}

// RegisterRoutes registers every route on r.
func RegisterRoutes(r chi.Router, d Deps) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	sh := NewSnapshotHandler(d.Runner)
	ah := NewAssessmentHandler(d.Runner)
	ih := NewInterventionHandler(d.Interventions, d.Runner)
	asst := NewAssistantHandler(d.Runner, d.Interventions, d.AssistantTopN)
	acth := NewActivityHandler(d.Activity)

	r.Route("/v1", func(r chi.Router) {
		r.Put("/snapshot", sh.PutSnapshot)
		r.Get("/snapshot", sh.GetSnapshot)

		r.Post("/assessments/run", ah.RunAssessments)
		r.Get("/assessments", ah.ListAssessments)
		r.Get("/assessments/{member_id}", ah.GetAssessment)
		r.Get("/gym-health", ah.GymHealth)

		r.Post("/members/{member_id}/assess", ah.AssessMember)
		r.Post("/members/{member_id}/interventions/from-recommendations", ih.CreateFromRecommendations)

		r.Get("/assistant/context", asst.Context)

		r.Get("/interventions", ih.ListInterventions)
		r.Post("/interventions", ih.CreateIntervention)
		r.Get("/interventions/{id}", ih.GetIntervention)
		r.Patch("/interventions/{id}", ih.UpdateIntervention)

		r.Get("/activity/members/{member_id}", acth.HandleGetMemberActivity)
		r.Post("/activity/search", acth.HandleSearchActivity)

		if d.Feed != nil {
			r.Get("/feed", NewFeedHandler(d.Feed).ServeHTTP)
		}
	})
}
