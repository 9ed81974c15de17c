// Package signals provides the signal computers that turn one behavioral or
// financial dimension of a member into a normalized 0-100 sub-risk score,
// and the ordered registry the assessment engine iterates.
package signals

// SignalComputer computes one signal for one member. Implementations are pure:
// the same Input always yields the same RiskSignal.
type SignalComputer interface {
	ID() ID
	Category() Category
	Weight() float64
	Label() string
	Compute(in Input) RiskSignal
}

// computer adapts a compute function to SignalComputer. It stamps identity
// fields and clamps the score so individual functions cannot escape [0,100].
type computer struct {
	id       ID
	category Category
	weight   float64
	label    string
	compute  func(in Input) RiskSignal
}

func (c computer) ID() ID             { return c.id }
func (c computer) Category() Category { return c.category }
func (c computer) Weight() float64    { return c.weight }
func (c computer) Label() string      { return c.label }

func (c computer) Compute(in Input) RiskSignal {
	s := c.compute(in)
	s.ID = c.id
	s.Category = c.category
	s.Weight = c.weight
	s.Label = c.label
	s.Score = round1(clamp(s.Score, 0, 100))
	s.Confidence = clamp(s.Confidence, 0, 1)
	if s.Trend == "" {
		s.Trend = TrendStable
	}
	return s
}

// Registry is the ordered set of signal computers. Order is significant: it
// is the tie-break order when signals are ranked.
var Registry = []SignalComputer{
	computer{VisitFrequencyDecay, CategoryVisitFrequency, 0.45, "Visit Frequency Decay", computeVisitDecay},
	computer{DaysSinceLastVisit, CategoryVisitFrequency, 0.35, "Days Since Last Visit", computeDaysSinceVisit},
	computer{VisitConsistency, CategoryVisitFrequency, 0.20, "Visit Consistency", computeVisitConsistency},
	computer{PaymentFailures, CategoryPayment, 0.45, "Payment Failures", computePaymentFailures},
	computer{LatePayments, CategoryPayment, 0.35, "Late Payments", computeLatePayments},
	computer{PlanDowngrade, CategoryPayment, 0.20, "Plan Downgrade", computePlanDowngrade},
	computer{ClassParticipation, CategoryEngagement, 0.50, "Class Participation", computeClassParticipation},
	computer{EngagementDiversity, CategoryEngagement, 0.50, "Engagement Diversity", computeEngagementDiversity},
	computer{TenureFactor, CategoryLifecycle, 0.50, "Tenure", computeTenure},
	computer{RenewalProximity, CategoryLifecycle, 0.50, "Renewal Proximity", computeRenewalProximity},
}

// Lookup returns the registered computer with the given id.
func Lookup(id ID) (SignalComputer, bool) {
	for _, c := range Registry {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// ComputeAll runs every registered computer over in, in registry order.
func ComputeAll(in Input) []RiskSignal {
	out := make([]RiskSignal, 0, len(Registry))
	for _, c := range Registry {
		out = append(out, c.Compute(in))
	}
	return out
}

// CategoryWeightSums returns the total signal weight per category. Every
// value is expected to be 1.
func CategoryWeightSums() map[Category]float64 {
	sums := make(map[Category]float64, len(Categories))
	for _, c := range Registry {
		sums[c.Category()] += c.Weight()
	}
	return sums
}
