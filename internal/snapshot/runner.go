package snapshot

import (
	"context"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/logger"
	"github.com/matthewbaird/retention/internal/types"
)

// RunResult summarizes one batch run.
type RunResult struct {
	Assessments []assessment.RiskAssessment `json:"assessments"`
	GymHealth   assessment.GymHealthScore   `json:"gym_health"`
}

// Runner ties the store to the engine and records what each run changed.
type Runner struct {
	store    *Store
	engine   *assessment.Engine
	recorder event.Recorder
	log      *logger.Logger
}

func NewRunner(store *Store, engine *assessment.Engine, recorder event.Recorder, log *logger.Logger) *Runner {
	if recorder == nil {
		recorder = event.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{store: store, engine: engine, recorder: recorder, log: log}
}

// Store returns the underlying store.
func (r *Runner) Store() *Store { return r.store }

// Replace loads a new snapshot.
func (r *Runner) Replace(ctx context.Context, snap *types.Snapshot) error {
	if err := r.store.Replace(snap); err != nil {
		return err
	}
	r.log.Info("snapshot replaced", "now", snap.Now, "members", len(snap.Members))
	r.record(ctx, event.NewSnapshotReplaced(event.SnapshotReplacedPayload{
		Now:     snap.Now,
		Members: len(snap.Members),
		Plans:   len(snap.Plans),
	}, snap.Now))
	return nil
}

// Run assesses every member of the current snapshot, carrying forward
// scores from the stored assessments, and replaces the stored set.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	snap, err := r.store.Current()
	if err != nil {
		return RunResult{}, err
	}
	previous := r.store.Assessments()

	all, err := r.engine.ComputeAll(ctx, snap, previous)
	if err != nil {
		return RunResult{}, err
	}
	r.store.SetAssessments(all)

	list := assessment.Values(all)
	assessment.ByRisk(list)
	health := assessment.ComputeGymHealth(list)

	byLevel := make(map[string]int, len(assessment.RiskLevels))
	var atRisk []string
	var evts []event.DomainEvent
	for _, a := range list {
		byLevel[string(a.RiskLevel)]++
		if a.RiskLevel == assessment.RiskHigh || a.RiskLevel == assessment.RiskCritical {
			atRisk = append(atRisk, a.MemberID)
		}
		if a.PreviousScore != nil && abs(a.CompositeScore-*a.PreviousScore) >= event.RiskChangeThreshold {
			evts = append(evts, event.NewMemberRiskChanged(event.MemberRiskChangedPayload{
				MemberID:       a.MemberID,
				PreviousScore:  *a.PreviousScore,
				CompositeScore: a.CompositeScore,
				RiskLevel:      string(a.RiskLevel),
				Summary:        a.Explanation.Summary,
			}, snap.Now))
		}
	}
	evts = append(evts, event.NewAssessmentRunCompleted(event.AssessmentRunPayload{
		SnapshotAt:  snap.Now,
		MemberCount: len(list),
		ByLevel:     byLevel,
		GymHealth:   health.Overall,
		AtRisk:      atRisk,
	}, snap.Now))
	r.record(ctx, evts...)

	r.log.Info("assessment run completed",
		"members", len(list), "at_risk", len(atRisk), "gym_health", health.Overall)
	return RunResult{Assessments: list, GymHealth: health}, nil
}

// AssessMember computes one member on demand without storing the result.
func (r *Runner) AssessMember(memberID string) (assessment.RiskAssessment, error) {
	snap, err := r.store.Current()
	if err != nil {
		return assessment.RiskAssessment{}, err
	}
	m, ok := snap.Member(memberID)
	if !ok {
		return assessment.RiskAssessment{}, ErrMemberNotFound
	}
	var previous *int
	if prev, ok := r.store.Assessment(memberID); ok {
		score := prev.CompositeScore
		previous = &score
	}
	return r.engine.Compute(m, snap, previous), nil
}

// Recommendations returns the recommendations of the stored assessment,
// computing one on demand when the member has not been assessed yet.
func (r *Runner) Recommendations(memberID string) ([]types.Recommendation, error) {
	if a, ok := r.store.Assessment(memberID); ok {
		return a.RecommendedInterventions, nil
	}
	a, err := r.AssessMember(memberID)
	if err != nil {
		return nil, err
	}
	return a.RecommendedInterventions, nil
}

func (r *Runner) record(ctx context.Context, evts ...event.DomainEvent) {
	if err := r.recorder.Record(ctx, evts...); err != nil {
		r.log.Error("recording events failed", "count", len(evts), "error", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
