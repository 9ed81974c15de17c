package signals

import "math"

// daysPerMonth converts tenure days to months.
const daysPerMonth = 30.0

// TenureMonths returns how many months the member has been with the gym at
// the snapshot instant.
func TenureMonths(in Input) float64 {
	if in.Member.MemberSince.IsZero() {
		return 0
	}
	months := in.Now.Sub(in.Member.MemberSince).Hours() / 24 / daysPerMonth
	return math.Max(0, months)
}

func computeTenure(in Input) RiskSignal {
	months := TenureMonths(in)
	var score float64
	switch {
	case months < 1:
		score = 70
	case months < 3:
		score = 55
	case months < 6:
		score = 35
	case months < 12:
		score = 20
	default:
		score = 10
	}
	conf := 1.0
	if in.Member.MemberSince.IsZero() {
		conf = 0.3
	}
	return RiskSignal{
		Score:      score,
		Confidence: conf,
		DataPoints: 1,
		Trend:      TrendStable,
		Metadata:   TenureMeta{Months: math.Round(months*10) / 10},
	}
}

func computeRenewalProximity(in Input) RiskSignal {
	sub := in.Subscription
	if sub == nil {
		return RiskSignal{
			Score:      60,
			Confidence: 0.3,
			Trend:      TrendStable,
			Metadata:   RenewalMeta{},
		}
	}

	days := wholeDays(in.Now, sub.CurrentPeriodEnd)
	var score float64
	switch {
	case days > 14:
		score = 10
	case days > 7:
		score = 30
	case days > 3:
		score = 50
	default:
		score = 70
	}
	if sub.CancelAtPeriodEnd {
		score = math.Max(score, 85)
	}
	return RiskSignal{
		Score:      score,
		Confidence: 1,
		DataPoints: 1,
		Trend:      trendFromScore(score),
		Metadata: RenewalMeta{
			HasSubscription:   true,
			DaysUntilRenewal:  days,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		},
	}
}
