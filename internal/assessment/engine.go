package assessment

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/retention/internal/signals"
	"github.com/matthewbaird/retention/internal/types"
)

const (
	minConfidence  = 0.3
	churnedScore   = 95
	churnedSummary = "Member has already churned; the membership is no longer active."
	defaultWorkers = 8
)

// Engine scores members. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	policy    Policy
	computers []signals.SignalComputer
	workers   int
}

// New creates an Engine with the given policy. workers bounds the number of
// members scored concurrently by ComputeAll; values below 1 use a default.
func New(policy Policy, workers int) *Engine {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Engine{
		policy:    policy,
		computers: signals.Registry,
		workers:   workers,
	}
}

// Policy returns the engine's scoring policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Compute scores one member against snap. previous is the member's composite
// from an earlier run, or nil.
func (e *Engine) Compute(m types.Member, snap *types.Snapshot, previous *int) RiskAssessment {
	return e.compute(signals.NewInput(m, snap), previous)
}

// ComputeAll scores every member in snap. All members are compared against
// the snapshot's single Now. previous supplies earlier assessments keyed by
// member id so each result carries its previous score. The only error is
// context cancellation.
func (e *Engine) ComputeAll(ctx context.Context, snap *types.Snapshot, previous map[string]RiskAssessment) (map[string]RiskAssessment, error) {
	idx := signals.NewIndex(snap)
	results := make([]RiskAssessment, len(snap.Members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range snap.Members {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := snap.Members[i]
			var prev *int
			if p, ok := previous[m.ID]; ok {
				score := p.CompositeScore
				prev = &score
			}
			results[i] = e.compute(idx.Input(m), prev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]RiskAssessment, len(results))
	for _, a := range results {
		out[a.MemberID] = a
	}
	return out, nil
}

func (e *Engine) compute(in signals.Input, previous *int) RiskAssessment {
	if in.Member.Status == types.MemberChurned {
		return churned(in, previous)
	}

	sigs := make([]signals.RiskSignal, 0, len(e.computers))
	for _, c := range e.computers {
		sigs = append(sigs, c.Compute(in))
	}

	cats := categoryAverages(sigs)
	w := e.policy.CompositeWeights
	raw := w.VisitFrequency*cats[signals.CategoryVisitFrequency] +
		w.Payment*cats[signals.CategoryPayment] +
		w.Engagement*cats[signals.CategoryEngagement] +
		w.Lifecycle*cats[signals.CategoryLifecycle]
	composite := int(math.Round(math.Max(0, math.Min(100, raw))))
	level := e.policy.RiskThresholds.Level(composite)

	return RiskAssessment{
		MemberID:       in.Member.ID,
		CompositeScore: composite,
		PreviousScore:  previous,
		Confidence:     confidence(sigs),
		Signals:        sigs,
		CategoryScores: CategoryScores{
			VisitFrequency: roundInt(cats[signals.CategoryVisitFrequency]),
			Payment:        roundInt(cats[signals.CategoryPayment]),
			Engagement:     roundInt(cats[signals.CategoryEngagement]),
			Lifecycle:      roundInt(cats[signals.CategoryLifecycle]),
		},
		RiskLevel:                level,
		Explanation:              Explain(sigs, composite),
		RecommendedInterventions: Recommend(composite, level, sigs),
		ComputedAt:               in.Now,
	}
}

// churned is the fixed assessment for members who have already cancelled.
func churned(in signals.Input, previous *int) RiskAssessment {
	return RiskAssessment{
		MemberID:       in.Member.ID,
		CompositeScore: churnedScore,
		PreviousScore:  previous,
		Confidence:     1,
		Signals:        []signals.RiskSignal{},
		CategoryScores: CategoryScores{
			VisitFrequency: churnedScore,
			Payment:        churnedScore,
			Engagement:     churnedScore,
			Lifecycle:      churnedScore,
		},
		RiskLevel: RiskCritical,
		Explanation: Explanation{
			Summary: churnedSummary,
			Factors: []Factor{},
		},
		RecommendedInterventions: []types.Recommendation{},
		ComputedAt:               in.Now,
	}
}

// categoryAverages returns the weight-averaged score of each category.
func categoryAverages(sigs []signals.RiskSignal) map[signals.Category]float64 {
	sum := make(map[signals.Category]float64, len(signals.Categories))
	weight := make(map[signals.Category]float64, len(signals.Categories))
	for _, s := range sigs {
		sum[s.Category] += s.Score * s.Weight
		weight[s.Category] += s.Weight
	}
	out := make(map[signals.Category]float64, len(signals.Categories))
	for _, c := range signals.Categories {
		if weight[c] > 0 {
			out[c] = sum[c] / weight[c]
		}
	}
	return out
}

func confidence(sigs []signals.RiskSignal) float64 {
	if len(sigs) == 0 {
		return minConfidence
	}
	var total float64
	for _, s := range sigs {
		total += s.Confidence
	}
	avg := math.Max(minConfidence, total/float64(len(sigs)))
	return math.Round(avg*100) / 100
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
