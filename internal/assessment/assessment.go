// Package assessment aggregates member signals into a composite churn-risk
// score, classifies it, explains it, recommends interventions, and rolls all
// assessments into a gym-wide health score.
package assessment

import (
	"sort"
	"time"

	"github.com/matthewbaird/retention/internal/signals"
	"github.com/matthewbaird/retention/internal/types"
)

// RiskLevel is the discrete bucket a composite score falls into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskElevated RiskLevel = "elevated"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevels lists every level from lowest to highest.
var RiskLevels = []RiskLevel{RiskLow, RiskModerate, RiskElevated, RiskHigh, RiskCritical}

// Valid reports whether l is a known level.
func (l RiskLevel) Valid() bool {
	for _, v := range RiskLevels {
		if v == l {
			return true
		}
	}
	return false
}

// CategoryScores holds the weighted score of each signal category.
type CategoryScores struct {
	VisitFrequency int `json:"visit_frequency"`
	Payment        int `json:"payment"`
	Engagement     int `json:"engagement"`
	Lifecycle      int `json:"lifecycle"`
}

// Factor is one ranked contributor to a score.
type Factor struct {
	Signal      signals.ID `json:"signal"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Impact      int        `json:"impact"` // percent of total weighted impact
}

// Explanation is the human-readable account of an assessment.
type Explanation struct {
	Summary string   `json:"summary"`
	Factors []Factor `json:"factors"`
}

// RiskAssessment is the result of scoring one member against one snapshot.
// A new run replaces it; it is never updated in place.
type RiskAssessment struct {
	MemberID                 string                 `json:"member_id"`
	CompositeScore           int                    `json:"composite_score"`
	PreviousScore            *int                   `json:"previous_score"`
	Confidence               float64                `json:"confidence"`
	Signals                  []signals.RiskSignal   `json:"signals"`
	CategoryScores           CategoryScores         `json:"category_scores"`
	RiskLevel                RiskLevel              `json:"risk_level"`
	Explanation              Explanation            `json:"explanation"`
	RecommendedInterventions []types.Recommendation `json:"recommended_interventions"`
	ComputedAt               time.Time              `json:"computed_at"`
}

// Values returns the assessments of m ordered by member id.
func Values(m map[string]RiskAssessment) []RiskAssessment {
	out := make([]RiskAssessment, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// ByRisk sorts assessments by composite score descending, then member id.
func ByRisk(list []RiskAssessment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CompositeScore != list[j].CompositeScore {
			return list[i].CompositeScore > list[j].CompositeScore
		}
		return list[i].MemberID < list[j].MemberID
	})
}
