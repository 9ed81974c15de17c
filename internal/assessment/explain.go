package assessment

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/matthewbaird/retention/internal/signals"
)

const (
	summarySignals  = 3
	summaryMinScore = 20
	goodStanding    = "Member is in good standing with no significant risk factors."
	minorRisk       = "Minor risk factors detected, but no single signal stands out."
)

type ranked struct {
	signal signals.RiskSignal
	impact float64
}

// Explain ranks signals by weighted impact and builds the summary.
func Explain(sigs []signals.RiskSignal, composite int) Explanation {
	order := rank(sigs)
	pct := impactPercents(order)

	factors := make([]Factor, 0, len(order))
	for i, r := range order {
		factors = append(factors, Factor{
			Signal:      r.signal.ID,
			Label:       r.signal.Label,
			Description: describe(r.signal),
			Impact:      pct[i],
		})
	}

	var clauses []string
	for _, r := range order {
		if len(clauses) == summarySignals {
			break
		}
		if r.signal.Score >= summaryMinScore {
			clauses = append(clauses, phrase(r.signal))
		}
	}

	summary := goodStanding
	switch {
	case len(clauses) > 0:
		summary = capitalize(joinClauses(clauses)) + "."
	case composite >= 25:
		summary = minorRisk
	}
	return Explanation{Summary: summary, Factors: factors}
}

// rank orders signals by score*weight descending. Ties keep input order.
func rank(sigs []signals.RiskSignal) []ranked {
	out := make([]ranked, len(sigs))
	for i, s := range sigs {
		out[i] = ranked{signal: s, impact: s.Score * s.Weight}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].impact > out[j].impact })
	return out
}

// impactPercents normalizes impacts to integer percentages that sum to
// exactly 100 using the largest-remainder method. With no impact at all the
// share is split evenly.
func impactPercents(order []ranked) []int {
	n := len(order)
	if n == 0 {
		return nil
	}
	var total float64
	for _, r := range order {
		total += r.impact
	}
	exact := make([]float64, n)
	for i, r := range order {
		if total > 0 {
			exact[i] = r.impact / total * 100
		} else {
			exact[i] = 100 / float64(n)
		}
	}

	out := make([]int, n)
	assigned := 0
	for i, v := range exact {
		out[i] = int(math.Floor(v))
		assigned += out[i]
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return exact[idx[a]]-math.Floor(exact[idx[a]]) > exact[idx[b]]-math.Floor(exact[idx[b]])
	})
	for k := 0; assigned < 100; k++ {
		out[idx[k%n]]++
		assigned++
	}
	return out
}

// describe renders a factor description from the signal's metadata.
func describe(s signals.RiskSignal) string {
	switch m := s.Metadata.(type) {
	case signals.VisitDecayMeta:
		switch {
		case m.Recent == 0 && m.Prior == 0:
			return "No visits in the last 28 days"
		case m.Prior == 0:
			return fmt.Sprintf("%s in the last 14 days after none before", plural(m.Recent, "visit"))
		default:
			return fmt.Sprintf("%s in the last 14 days vs %d in the prior 14 days", plural(m.Recent, "visit"), m.Prior)
		}
	case signals.DaysSinceVisitMeta:
		if !m.HasHistory {
			return "No check-in history"
		}
		return fmt.Sprintf("Last visited %s ago", plural(m.Days, "day"))
	case signals.ConsistencyMeta:
		if m.Visits < 3 {
			return "Not enough visits to judge consistency"
		}
		return fmt.Sprintf("Visit gaps vary by %.1f days on average", m.StdDevDays)
	case signals.PaymentFailuresMeta:
		if m.Failed == 0 {
			return fmt.Sprintf("No failed payments in last %d days", m.WindowDays)
		}
		return fmt.Sprintf("%s in last %d days", plural(m.Failed, "failed payment"), m.WindowDays)
	case signals.LatePaymentsMeta:
		if m.Overdue == 0 {
			return "No overdue invoices"
		}
		return plural(m.Overdue, "overdue invoice")
	case signals.PlanDowngradeMeta:
		switch m.Change {
		case signals.PlanChangeCancelAtPeriodEnd:
			return "Subscription set to cancel at period end"
		case signals.PlanChangePastDue:
			return "Subscription is past due"
		case signals.PlanChangePaused:
			return "Subscription is paused"
		case signals.PlanChangeNoSubscription:
			return "No subscription on file"
		default:
			return "No plan changes"
		}
	case signals.ParticipationMeta:
		if m.Recent == 0 && m.Prior == 0 {
			return "No class bookings in the last 60 days"
		}
		return fmt.Sprintf("%s in the last 30 days vs %d in the prior 30 days", plural(m.Recent, "class booking"), m.Prior)
	case signals.DiversityMeta:
		return fmt.Sprintf("Uses %d of 3 gym services", m.Channels)
	case signals.TenureMeta:
		return fmt.Sprintf("Member for %.1f months", m.Months)
	case signals.RenewalMeta:
		if !m.HasSubscription {
			return "No renewal date on file"
		}
		d := fmt.Sprintf("Renews in %s", plural(m.DaysUntilRenewal, "day"))
		if m.CancelAtPeriodEnd {
			d += ", cancellation requested"
		}
		return d
	default:
		return s.Label
	}
}

// phrase renders the summary clause of a signal.
func phrase(s signals.RiskSignal) string {
	switch m := s.Metadata.(type) {
	case signals.VisitDecayMeta:
		if m.Recent == 0 && m.Prior == 0 {
			return "no visits in four weeks"
		}
		if m.Prior > 0 && m.Recent < m.Prior {
			drop := int(math.Round((1 - float64(m.Recent)/float64(m.Prior)) * 100))
			return fmt.Sprintf("visit frequency down %d%% over the last two weeks", drop)
		}
		return "visit frequency has shifted recently"
	case signals.DaysSinceVisitMeta:
		if !m.HasHistory {
			return "no recorded check-ins"
		}
		return fmt.Sprintf("last visited %s ago", plural(m.Days, "day"))
	case signals.ConsistencyMeta:
		if m.Visits < 3 {
			return "too few visits to establish a routine"
		}
		return "irregular visit pattern"
	case signals.PaymentFailuresMeta:
		return fmt.Sprintf("%s in the last %d days", plural(m.Failed, "failed payment"), m.WindowDays)
	case signals.LatePaymentsMeta:
		return plural(m.Overdue, "overdue invoice")
	case signals.PlanDowngradeMeta:
		switch m.Change {
		case signals.PlanChangeCancelAtPeriodEnd:
			return "subscription set to cancel"
		case signals.PlanChangePastDue:
			return "subscription past due"
		case signals.PlanChangePaused:
			return "membership paused"
		default:
			return "plan status changed"
		}
	case signals.ParticipationMeta:
		if m.Recent == 0 && m.Prior == 0 {
			return "no class bookings"
		}
		return "fewer class bookings than last month"
	case signals.DiversityMeta:
		if m.Channels == 0 {
			return "not using any gym services"
		}
		return fmt.Sprintf("using only %d of 3 gym services", m.Channels)
	case signals.TenureMeta:
		if m.Months < 3 {
			return fmt.Sprintf("new member (%.1f months)", m.Months)
		}
		return fmt.Sprintf("member for only %.1f months", m.Months)
	case signals.RenewalMeta:
		if !m.HasSubscription {
			return "no active subscription"
		}
		if m.CancelAtPeriodEnd {
			return "cancellation pending at renewal"
		}
		return fmt.Sprintf("renewal due in %s", plural(m.DaysUntilRenewal, "day"))
	default:
		return strings.ToLower(s.Label)
	}
}

// joinClauses joins with "and" for two and an Oxford comma for three or more.
func joinClauses(c []string) string {
	switch len(c) {
	case 0:
		return ""
	case 1:
		return c[0]
	case 2:
		return c[0] + " and " + c[1]
	default:
		return strings.Join(c[:len(c)-1], ", ") + ", and " + c[len(c)-1]
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
