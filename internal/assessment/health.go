package assessment

// HealthTrend is the direction of the gym-wide score.
type HealthTrend string

const (
	HealthImproving HealthTrend = "improving"
	HealthStable    HealthTrend = "stable"
	HealthDeclining HealthTrend = "declining"
)

// trendRatio is how many times larger one side must be to call a trend.
const trendRatio = 1.5

// HealthComponents are the four inputs of the gym health score.
type HealthComponents struct {
	Retention  int `json:"retention"`
	Revenue    int `json:"revenue"`
	Engagement int `json:"engagement"`
	Growth     int `json:"growth"`
}

// GymHealthScore is the organization-wide rollup of member assessments.
type GymHealthScore struct {
	Overall     int              `json:"overall"`
	Components  HealthComponents `json:"components"`
	Trend       HealthTrend      `json:"trend"`
	MemberCount int              `json:"member_count"`
}

// ComputeGymHealth reduces the current assessment set to one score. With no
// assessments every value is a neutral 50.
func ComputeGymHealth(assessments []RiskAssessment) GymHealthScore {
	n := len(assessments)
	if n == 0 {
		return GymHealthScore{
			Overall:    50,
			Components: HealthComponents{Retention: 50, Revenue: 50, Engagement: 50, Growth: 50},
			Trend:      HealthStable,
		}
	}

	var composite, payment, engagement float64
	var healthy, improved, declined int
	for _, a := range assessments {
		composite += float64(a.CompositeScore)
		payment += float64(a.CategoryScores.Payment)
		engagement += float64(a.CategoryScores.Engagement)
		if a.RiskLevel == RiskLow || a.RiskLevel == RiskModerate {
			healthy++
		}
		if a.PreviousScore != nil {
			switch {
			case a.CompositeScore < *a.PreviousScore:
				improved++
			case a.CompositeScore > *a.PreviousScore:
				declined++
			}
		}
	}

	count := float64(n)
	retention := 100 - composite/count
	revenue := 100 - payment/count
	engage := 100 - engagement/count
	growth := 100 * float64(healthy) / count
	overall := 0.35*retention + 0.25*revenue + 0.25*engage + 0.15*growth

	trend := HealthStable
	switch {
	case float64(improved) > trendRatio*float64(declined):
		trend = HealthImproving
	case float64(declined) > trendRatio*float64(improved):
		trend = HealthDeclining
	}

	return GymHealthScore{
		Overall: roundInt(overall),
		Components: HealthComponents{
			Retention:  roundInt(retention),
			Revenue:    roundInt(revenue),
			Engagement: roundInt(engage),
			Growth:     roundInt(growth),
		},
		Trend:       trend,
		MemberCount: n,
	}
}
