package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/retention/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string            `json:"id"`
	EventType        string            `json:"event_type"`
	OccurredAt       time.Time         `json:"occurred_at"`
	AffectedEntities []types.SourceRef `json:"affected_entities"`
	Summary          string            `json:"summary"`
	Category         string            `json:"category"` // "intervention", "assessment", "snapshot"
	Weight           string            `json:"weight"`   // "critical", "major", "minor", "info"
	Polarity         string            `json:"polarity"` // "positive", "negative", "neutral"
	Payload          json.RawMessage   `json:"payload,omitempty"`
}

// Event types.
const (
	TypeInterventionCreated      = "intervention_created"
	TypeInterventionTransitioned = "intervention_transitioned"
	TypeAssessmentRunCompleted   = "assessment_run_completed"
	TypeMemberRiskChanged        = "member_risk_changed"
	TypeSnapshotReplaced         = "snapshot_replaced"
)

// RiskChangeThreshold is the composite delta that raises a MemberRiskChanged event.
const RiskChangeThreshold = 10

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ── Intervention events ──────────────────────────────────────────────────────

// InterventionPayload carries the intervention state at the time of the event.
type InterventionPayload struct {
	InterventionID string `json:"intervention_id"`
	MemberID       string `json:"member_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	AssignedTo     string `json:"assigned_to,omitempty"`
}

func interventionRefs(p InterventionPayload) []types.SourceRef {
	return []types.SourceRef{
		{EntityType: "intervention", EntityID: p.InterventionID, Role: "subject"},
		{EntityType: "member", EntityID: p.MemberID, Role: "target"},
	}
}

func NewInterventionCreated(p InterventionPayload, at time.Time) DomainEvent {
	weight := "minor"
	if p.Priority == string(types.PriorityUrgent) {
		weight = "major"
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeInterventionCreated,
		OccurredAt:       at,
		AffectedEntities: interventionRefs(p),
		Summary:          fmt.Sprintf("%s (%s) created for member %s", p.Title, p.Priority, short(p.MemberID)),
		Category:         "intervention",
		Weight:           weight,
		Polarity:         "neutral",
		Payload:          mustJSON(p),
	}
}

func NewInterventionTransitioned(p InterventionPayload, at time.Time) DomainEvent {
	weight, polarity := "minor", "neutral"
	switch p.Status {
	case "completed":
		weight, polarity = "major", "positive"
	case "failed":
		weight, polarity = "major", "negative"
	case "executing":
		polarity = "positive"
	case "dismissed":
		weight = "info"
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeInterventionTransitioned,
		OccurredAt:       at,
		AffectedEntities: interventionRefs(p),
		Summary:          fmt.Sprintf("%s moved from %s to %s", p.Title, p.PreviousStatus, p.Status),
		Category:         "intervention",
		Weight:           weight,
		Polarity:         polarity,
		Payload:          mustJSON(p),
	}
}

// ── Assessment events ────────────────────────────────────────────────────────

// AssessmentRunPayload summarizes one batch assessment run.
type AssessmentRunPayload struct {
	SnapshotAt  time.Time      `json:"snapshot_at"`
	MemberCount int            `json:"member_count"`
	ByLevel     map[string]int `json:"by_level"`
	GymHealth   int            `json:"gym_health"`
	AtRisk      []string       `json:"at_risk,omitempty"` // high and critical member ids
}

func NewAssessmentRunCompleted(p AssessmentRunPayload, at time.Time) DomainEvent {
	refs := []types.SourceRef{{EntityType: "gym", EntityID: "gym", Role: "subject"}}
	for _, id := range p.AtRisk {
		refs = append(refs, types.SourceRef{EntityType: "member", EntityID: id, Role: "related"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeAssessmentRunCompleted,
		OccurredAt:       at,
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Assessed %d members, %d at high or critical risk, gym health %d", p.MemberCount, len(p.AtRisk), p.GymHealth),
		Category:         "assessment",
		Weight:           "info",
		Polarity:         "neutral",
		Payload:          mustJSON(p),
	}
}

// MemberRiskChangedPayload records a material change in one member's score.
type MemberRiskChangedPayload struct {
	MemberID       string `json:"member_id"`
	PreviousScore  int    `json:"previous_score"`
	CompositeScore int    `json:"composite_score"`
	RiskLevel      string `json:"risk_level"`
	Summary        string `json:"summary"`
}

func NewMemberRiskChanged(p MemberRiskChangedPayload, at time.Time) DomainEvent {
	polarity, verb := "negative", "rose"
	if p.CompositeScore < p.PreviousScore {
		polarity, verb = "positive", "fell"
	}
	weight := "minor"
	if p.RiskLevel == "critical" || p.RiskLevel == "high" {
		weight = "major"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeMemberRiskChanged,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			{EntityType: "member", EntityID: p.MemberID, Role: "subject"},
		},
		Summary:  fmt.Sprintf("Risk %s from %d to %d (%s)", verb, p.PreviousScore, p.CompositeScore, p.RiskLevel),
		Category: "assessment",
		Weight:   weight,
		Polarity: polarity,
		Payload:  mustJSON(p),
	}
}

// ── Snapshot events ──────────────────────────────────────────────────────────

// SnapshotReplacedPayload describes a newly loaded snapshot.
type SnapshotReplacedPayload struct {
	Now     time.Time `json:"now"`
	Members int       `json:"members"`
	Plans   int       `json:"plans"`
}

func NewSnapshotReplaced(p SnapshotReplacedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeSnapshotReplaced,
		OccurredAt:       at,
		AffectedEntities: []types.SourceRef{{EntityType: "gym", EntityID: "gym", Role: "subject"}},
		Summary:          fmt.Sprintf("Snapshot as of %s loaded with %d members", p.Now.Format(time.RFC3339), p.Members),
		Category:         "snapshot",
		Weight:           "info",
		Polarity:         "neutral",
		Payload:          mustJSON(p),
	}
}
