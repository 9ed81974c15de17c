package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/retention/internal/signals"
)

type signalScores map[signals.ID]float64

// patternSignals builds a full signal list with the given overrides.
func patternSignals(scores signalScores, tenureMonths float64) []signals.RiskSignal {
	out := make([]signals.RiskSignal, 0, len(signals.Registry))
	for _, c := range signals.Registry {
		var meta signals.Metadata
		if c.ID() == signals.TenureFactor {
			meta = signals.TenureMeta{Months: tenureMonths}
		}
		out = append(out, sig(c.ID(), scores[c.ID()], meta))
	}
	return out
}

func titles(t *testing.T, composite int, level RiskLevel, sigs []signals.RiskSignal) []string {
	t.Helper()
	recs := Recommend(composite, level, sigs)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		assert.NotEmpty(t, r.EstimatedImpact, r.Title)
		assert.True(t, r.Priority.Valid(), r.Title)
		out = append(out, r.Title)
	}
	return out
}

func TestRecommend_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		composite int
		level     RiskLevel
		scores    signalScores
		tenure    float64
		want      []string
	}{
		{
			name:      "critical with payment issues",
			composite: 85, level: RiskCritical,
			scores: signalScores{signals.PaymentFailures: 40},
			tenure: 24,
			want:   []string{"Payment recovery email", "Retention discount offer", "Personal phone call"},
		},
		{
			name:      "critical without payment issues",
			composite: 82, level: RiskCritical,
			scores: signalScores{signals.LatePayments: 30},
			tenure: 24,
			want:   []string{"Personal phone call"},
		},
		{
			name:      "overlapping high and elevated tiers",
			composite: 62, level: RiskElevated,
			scores: signalScores{signals.VisitFrequencyDecay: 80, signals.TenureFactor: 55},
			tenure: 2,
			want:   []string{"Recommend classes", "Re-engagement email", "Free PT consultation"},
		},
		{
			name:      "high with low engagement",
			composite: 70, level: RiskHigh,
			scores: signalScores{signals.ClassParticipation: 70},
			tenure: 24,
			want:   []string{"Staff follow-up"},
		},
		{
			name:      "moderate renewal soon",
			composite: 30, level: RiskModerate,
			scores: signalScores{signals.RenewalProximity: 70},
			tenure: 24,
			want:   []string{"Renewal reminder"},
		},
		{
			name:      "moderate already covered by elevated tier",
			composite: 42, level: RiskModerate,
			scores: signalScores{signals.VisitFrequencyDecay: 60, signals.RenewalProximity: 70},
			tenure: 24,
			want:   []string{"Re-engagement email"},
		},
		{
			name:      "low anniversary",
			composite: 15, level: RiskLow,
			tenure: 12,
			want:   []string{"Anniversary celebration"},
		},
		{
			name:      "low outside anniversary window",
			composite: 15, level: RiskLow,
			tenure: 5,
			want:   []string{},
		},
		{
			name:      "low but composite too high for anniversary",
			composite: 22, level: RiskLow,
			tenure: 12,
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titles(t, tt.composite, tt.level, patternSignals(tt.scores, tt.tenure))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecommend_NoSignalsIsNotAnError(t *testing.T) {
	recs := Recommend(50, RiskElevated, nil)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}
