package signals

import (
	"math"

	"github.com/matthewbaird/retention/internal/types"
)

func computeClassParticipation(in Input) RiskSignal {
	var recent, prior int
	for _, b := range in.Bookings {
		if b.Status == types.BookingCancelled {
			continue
		}
		switch {
		case inWindow(b.ScheduledAt, in.Now, 30*day, 0):
			recent++
		case inWindow(b.ScheduledAt, in.Now, 60*day, 30*day):
			prior++
		}
	}

	meta := ParticipationMeta{Recent: recent, Prior: prior}
	sig := RiskSignal{
		DataPoints: recent + prior,
		Confidence: dataConfidence(recent + prior),
	}
	switch {
	case recent == 0 && prior == 0:
		sig.Score, sig.Trend = 45, TrendStable
	case prior == 0:
		sig.Score, sig.Trend = 10, TrendImproving
	default:
		ratio := float64(recent) / float64(prior)
		meta.Ratio = math.Round(ratio*100) / 100
		switch {
		case ratio >= 1:
			sig.Score, sig.Trend = 10, TrendImproving
		case ratio >= 0.5:
			sig.Score, sig.Trend = 40, TrendStable
		default:
			sig.Score, sig.Trend = 70, TrendDeclining
		}
	}
	sig.Metadata = meta
	return sig
}

func computeEngagementDiversity(in Input) RiskSignal {
	meta := DiversityMeta{
		HasCheckIns:              len(in.Member.CheckIns) > 0,
		IncludesPersonalTraining: in.IncludesPersonalTraining(),
	}
	for _, b := range in.Bookings {
		if b.Status != types.BookingCancelled {
			meta.HasBookings = true
			break
		}
	}
	for _, on := range []bool{meta.HasCheckIns, meta.HasBookings, meta.IncludesPersonalTraining} {
		if on {
			meta.Channels++
		}
	}

	var score float64
	switch meta.Channels {
	case 0:
		score = 80
	case 1:
		score = 50
	case 2:
		score = 25
	default:
		score = 10
	}
	return RiskSignal{
		Score:      score,
		Confidence: 1,
		DataPoints: meta.Channels,
		Trend:      trendFromScore(score),
		Metadata:   meta,
	}
}
