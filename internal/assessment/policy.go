package assessment

import (
	"errors"
	"fmt"
	"math"
)

// CompositeWeights weights each category score in the composite.
type CompositeWeights struct {
	VisitFrequency float64 `json:"visit_frequency"`
	Payment        float64 `json:"payment"`
	Engagement     float64 `json:"engagement"`
	Lifecycle      float64 `json:"lifecycle"`
}

// Sum returns the total of all weights.
func (w CompositeWeights) Sum() float64 {
	return w.VisitFrequency + w.Payment + w.Engagement + w.Lifecycle
}

// RiskThresholds are the inclusive lower bounds of each level above low.
type RiskThresholds struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Elevated int `json:"elevated"`
	Moderate int `json:"moderate"`
}

// Level classifies score. The bands partition [0,100] without overlap.
func (t RiskThresholds) Level(score int) RiskLevel {
	switch {
	case score >= t.Critical:
		return RiskCritical
	case score >= t.High:
		return RiskHigh
	case score >= t.Elevated:
		return RiskElevated
	case score >= t.Moderate:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Policy holds the tunable parameters of the composite score.
type Policy struct {
	CompositeWeights CompositeWeights `json:"composite_weights"`
	RiskThresholds   RiskThresholds   `json:"risk_thresholds"`
}

// DefaultPolicy returns the standard scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		CompositeWeights: CompositeWeights{
			VisitFrequency: 0.35,
			Payment:        0.25,
			Engagement:     0.25,
			Lifecycle:      0.15,
		},
		RiskThresholds: RiskThresholds{
			Critical: 80,
			High:     65,
			Elevated: 45,
			Moderate: 25,
		},
	}
}

// Validate checks that the weights sum to one and the thresholds descend.
func (p Policy) Validate() error {
	var errs []error
	w := p.CompositeWeights
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"visit_frequency", w.VisitFrequency},
		{"payment", w.Payment},
		{"engagement", w.Engagement},
		{"lifecycle", w.Lifecycle},
	} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("composite weight %s = %v out of [0,1]", f.name, f.v))
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("composite weights sum to %v, want 1", sum))
	}
	t := p.RiskThresholds
	if !(100 >= t.Critical && t.Critical > t.High && t.High > t.Elevated && t.Elevated > t.Moderate && t.Moderate > 0) {
		errs = append(errs, fmt.Errorf("risk thresholds must satisfy 100 >= critical > high > elevated > moderate > 0, got %+v", t))
	}
	return errors.Join(errs...)
}
