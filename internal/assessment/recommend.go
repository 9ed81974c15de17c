package assessment

import (
	"github.com/matthewbaird/retention/internal/signals"
	"github.com/matthewbaird/retention/internal/types"
)

// flagThreshold is the signal score above which a pattern flag is raised.
const flagThreshold = 40

var (
	recPaymentRecovery = types.Recommendation{
		Type:            types.InterventionEmail,
		Title:           "Payment recovery email",
		Description:     "Send a friendly reminder with a secure link to update the payment method on file.",
		Priority:        types.PriorityUrgent,
		EstimatedImpact: "Recovers 30-40% of failed payments",
	}
	recDiscount = types.Recommendation{
		Type:            types.InterventionDiscount,
		Title:           "Retention discount offer",
		Description:     "Offer 20% off the next two months to keep the membership active while billing is resolved.",
		Priority:        types.PriorityUrgent,
		EstimatedImpact: "Reduces churn probability by 15-25%",
	}
	recPhoneCall = types.Recommendation{
		Type:            types.InterventionCall,
		Title:           "Personal phone call",
		Description:     "Have the membership manager call to understand concerns and offer support.",
		Priority:        types.PriorityUrgent,
		EstimatedImpact: "Personal outreach retains 20-30% of critical-risk members",
	}
	recClasses = types.Recommendation{
		Type:            types.InterventionClassRecommendation,
		Title:           "Recommend classes",
		Description:     "Suggest classes that match past attendance at the times the member used to visit.",
		Priority:        types.PriorityHigh,
		EstimatedImpact: "Can restore visit frequency within 2-3 weeks",
	}
	recStaffFollowUp = types.Recommendation{
		Type:            types.InterventionStaffTask,
		Title:           "Staff follow-up",
		Description:     "Assign a coach to check in at the member's next visit or by message.",
		Priority:        types.PriorityHigh,
		EstimatedImpact: "Improves engagement for roughly 1 in 3 members contacted",
	}
	recReengagement = types.Recommendation{
		Type:            types.InterventionEmail,
		Title:           "Re-engagement email",
		Description:     "Send a personalized note highlighting new classes and the member's progress so far.",
		Priority:        types.PriorityMedium,
		EstimatedImpact: "10-15% of recipients return within two weeks",
	}
	recPTConsult = types.Recommendation{
		Type:            types.InterventionPTSession,
		Title:           "Free PT consultation",
		Description:     "Offer a complimentary personal training session to set goals and build a routine.",
		Priority:        types.PriorityMedium,
		EstimatedImpact: "New members with a PT session are twice as likely to stay past 90 days",
	}
	recRenewalReminder = types.Recommendation{
		Type:            types.InterventionEmail,
		Title:           "Renewal reminder",
		Description:     "Remind the member of the upcoming renewal and what the plan includes.",
		Priority:        types.PriorityLow,
		EstimatedImpact: "Reduces passive cancellations at renewal",
	}
	recAnniversary = types.Recommendation{
		Type:            types.InterventionEmail,
		Title:           "Anniversary celebration",
		Description:     "Congratulate the member on one year with the gym and include a small thank-you perk.",
		Priority:        types.PriorityLow,
		EstimatedImpact: "Reinforces loyalty at a common decision point",
	}
)

// patterns are the boolean flags derived from individual signal scores.
type patterns struct {
	paymentIssues  bool
	visitDecay     bool
	lowEngagement  bool
	newMember      bool
	renewalSoon    bool
	tenureMonths   float64
	tenureObserved bool
}

func detectPatterns(sigs []signals.RiskSignal) patterns {
	score := make(map[signals.ID]float64, len(sigs))
	var p patterns
	for _, s := range sigs {
		score[s.ID] = s.Score
		if m, ok := s.Metadata.(signals.TenureMeta); ok {
			p.tenureMonths, p.tenureObserved = m.Months, true
		}
	}
	p.paymentIssues = score[signals.PaymentFailures] > 30 || score[signals.LatePayments] > 30
	p.visitDecay = score[signals.VisitFrequencyDecay] > flagThreshold
	p.lowEngagement = score[signals.ClassParticipation] > flagThreshold
	p.newMember = score[signals.TenureFactor] > flagThreshold
	p.renewalSoon = score[signals.RenewalProximity] > flagThreshold
	return p
}

// Recommend maps a score, level and signal pattern to suggested actions.
// Tiers are not exclusive. An empty result means no action is warranted.
func Recommend(composite int, level RiskLevel, sigs []signals.RiskSignal) []types.Recommendation {
	p := detectPatterns(sigs)
	recs := []types.Recommendation{}

	if composite >= 80 {
		if p.paymentIssues {
			recs = append(recs, recPaymentRecovery, recDiscount)
		}
		recs = append(recs, recPhoneCall)
	}

	if (composite >= 60 && composite < 80) || level == RiskHigh {
		if p.visitDecay {
			recs = append(recs, recClasses)
		}
		if p.lowEngagement {
			recs = append(recs, recStaffFollowUp)
		}
	}

	if (composite >= 40 && composite < 65) || level == RiskElevated {
		if p.visitDecay || p.lowEngagement {
			recs = append(recs, recReengagement)
		}
		if p.newMember {
			recs = append(recs, recPTConsult)
		}
	}

	if level == RiskModerate && len(recs) == 0 && p.renewalSoon {
		recs = append(recs, recRenewalReminder)
	}

	if level == RiskLow && composite < 20 && p.tenureObserved && p.tenureMonths >= 11 && p.tenureMonths <= 13 {
		recs = append(recs, recAnniversary)
	}

	return recs
}
