package signals

import (
	"math"
	"sort"
	"time"
)

func computeVisitDecay(in Input) RiskSignal {
	var recent, prior int
	for _, t := range in.Member.CheckIns {
		switch {
		case inWindow(t, in.Now, 14*day, 0):
			recent++
		case inWindow(t, in.Now, 28*day, 14*day):
			prior++
		}
	}

	meta := VisitDecayMeta{Recent: recent, Prior: prior}
	sig := RiskSignal{
		DataPoints: recent + prior,
		Confidence: dataConfidence(recent + prior),
	}

	switch {
	case recent == 0 && prior == 0:
		sig.Score, sig.Trend = 75, TrendStable
	case prior == 0:
		sig.Score, sig.Trend = 15, TrendImproving
	default:
		ratio := float64(recent) / float64(prior)
		meta.Ratio = math.Round(ratio*100) / 100
		switch {
		case ratio >= 1.1:
			sig.Score, sig.Trend = clamp(20-(ratio-1)*30, 0, 20), TrendImproving
		case ratio >= 0.8:
			sig.Score, sig.Trend = clamp(30+(1-ratio)*50, 20, 40), TrendStable
		default:
			sig.Score, sig.Trend = clamp(40+(1-ratio)*80, 40, 100), TrendDeclining
		}
	}
	sig.Metadata = meta
	return sig
}

func computeDaysSinceVisit(in Input) RiskSignal {
	threshold := 7
	if in.IncludesPersonalTraining() {
		threshold = 4
	}
	last, ok := latest(in.Member.CheckIns, in.Now)
	if !ok {
		return RiskSignal{
			Score:      90,
			Confidence: 0.3,
			Trend:      TrendDeclining,
			Metadata:   DaysSinceVisitMeta{Threshold: threshold},
		}
	}

	days := wholeDays(last, in.Now)
	if days < 0 {
		days = 0
	}
	var score float64
	switch {
	case days <= threshold:
		score = 5
	case days <= 2*threshold:
		score = 30
	case days <= 3*threshold:
		score = 55
	case days <= 4*threshold:
		score = 75
	default:
		score = clamp(75+2*float64(days-4*threshold), 75, 100)
	}
	return RiskSignal{
		Score:      score,
		Confidence: 1,
		DataPoints: len(in.Member.CheckIns),
		Trend:      trendFromScore(score),
		Metadata:   DaysSinceVisitMeta{HasHistory: true, Days: days, Threshold: threshold},
	}
}

func computeVisitConsistency(in Input) RiskSignal {
	n := len(in.Member.CheckIns)
	if n < 3 {
		return RiskSignal{
			Score:      50,
			Confidence: 0.3,
			DataPoints: n,
			Trend:      TrendStable,
			Metadata:   ConsistencyMeta{Visits: n},
		}
	}

	sorted := make([]time.Time, n)
	copy(sorted, in.Member.CheckIns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, n-1)
	var sum float64
	for i := 1; i < n; i++ {
		g := sorted[i].Sub(sorted[i-1]).Hours() / 24
		gaps = append(gaps, g)
		sum += g
	}
	mean := sum / float64(len(gaps))
	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	sigma := math.Sqrt(variance / float64(len(gaps)))

	trend := TrendStable
	if sigma > 5 {
		trend = TrendDeclining
	}
	return RiskSignal{
		Score:      clamp(sigma*8, 0, 100),
		Confidence: dataConfidence(n),
		DataPoints: n,
		Trend:      trend,
		Metadata: ConsistencyMeta{
			Visits:     n,
			StdDevDays: round1(sigma),
			MeanGap:    round1(mean),
		},
	}
}

// latest returns the most recent check-in that is not after now.
func latest(checkIns []time.Time, now time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, t := range checkIns {
		if t.After(now) {
			continue
		}
		if !found || t.After(best) {
			best, found = t, true
		}
	}
	return best, found
}
