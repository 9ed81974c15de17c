package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scored(composite, payment, engagement int, level RiskLevel, previous *int) RiskAssessment {
	return RiskAssessment{
		CompositeScore: composite,
		PreviousScore:  previous,
		RiskLevel:      level,
		CategoryScores: CategoryScores{Payment: payment, Engagement: engagement},
	}
}

func intp(v int) *int { return &v }

func TestComputeGymHealth_Empty(t *testing.T) {
	h := ComputeGymHealth(nil)
	assert.Equal(t, GymHealthScore{
		Overall:    50,
		Components: HealthComponents{Retention: 50, Revenue: 50, Engagement: 50, Growth: 50},
		Trend:      HealthStable,
	}, h)
}

func TestComputeGymHealth_Components(t *testing.T) {
	h := ComputeGymHealth([]RiskAssessment{
		scored(20, 10, 30, RiskLow, intp(30)),
		scored(70, 50, 70, RiskHigh, intp(60)),
	})

	assert.Equal(t, HealthComponents{Retention: 55, Revenue: 70, Engagement: 50, Growth: 50}, h.Components)
	// 0.35*55 + 0.25*70 + 0.25*50 + 0.15*50 = 56.75
	assert.Equal(t, 57, h.Overall)
	assert.Equal(t, HealthStable, h.Trend)
	assert.Equal(t, 2, h.MemberCount)
}

func TestComputeGymHealth_Trend(t *testing.T) {
	tests := []struct {
		name string
		in   []RiskAssessment
		want HealthTrend
	}{
		{"mostly improving", []RiskAssessment{
			scored(10, 0, 0, RiskLow, intp(20)),
			scored(10, 0, 0, RiskLow, intp(20)),
			scored(10, 0, 0, RiskLow, intp(20)),
			scored(30, 0, 0, RiskModerate, intp(20)),
		}, HealthImproving},
		{"only declining", []RiskAssessment{
			scored(50, 0, 0, RiskElevated, intp(20)),
			scored(50, 0, 0, RiskElevated, intp(20)),
		}, HealthDeclining},
		{"balanced", []RiskAssessment{
			scored(10, 0, 0, RiskLow, intp(20)),
			scored(10, 0, 0, RiskLow, intp(20)),
			scored(50, 0, 0, RiskElevated, intp(20)),
			scored(50, 0, 0, RiskElevated, intp(20)),
		}, HealthStable},
		{"no history", []RiskAssessment{
			scored(10, 0, 0, RiskLow, nil),
		}, HealthStable},
		{"unchanged scores ignored", []RiskAssessment{
			scored(20, 0, 0, RiskLow, intp(20)),
			scored(10, 0, 0, RiskLow, intp(20)),
		}, HealthImproving},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeGymHealth(tt.in).Trend)
		})
	}
}

func TestComputeGymHealth_Growth(t *testing.T) {
	h := ComputeGymHealth([]RiskAssessment{
		scored(10, 0, 0, RiskLow, nil),
		scored(30, 0, 0, RiskModerate, nil),
		scored(50, 0, 0, RiskElevated, nil),
		scored(95, 95, 95, RiskCritical, nil),
	})
	assert.Equal(t, 50, h.Components.Growth)
}
