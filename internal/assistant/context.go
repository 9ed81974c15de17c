// Package assistant renders the current retention state as a plain-text
// context block for a conversational assistant.
package assistant

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/types"
)

// DefaultTopN is how many at-risk members are listed when Input.TopN is unset.
const DefaultTopN = 10

const maxFactors = 3

// Input is everything Render reads. Snapshot may be nil.
type Input struct {
	GeneratedAt   time.Time
	Snapshot      *types.Snapshot
	Assessments   []assessment.RiskAssessment
	Health        assessment.GymHealthScore
	Interventions []intervention.Intervention
	TopN          int
}

// Render produces the context block. It does not modify its input.
func Render(in Input) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	at := in.GeneratedAt
	if at.IsZero() && in.Snapshot != nil {
		at = in.Snapshot.Now
	}
	p.Fprintf(&b, "Retention context generated %s\n", at.UTC().Format(time.RFC3339))

	writeHealth(&b, p, in.Health)
	writeDistribution(&b, p, in.Assessments)
	writeTopMembers(&b, p, in)
	writeInterventions(&b, p, in.Interventions)
	writeBusiness(&b, p, in.Snapshot)
	return b.String()
}

func writeHealth(b *strings.Builder, p *message.Printer, h assessment.GymHealthScore) {
	b.WriteString("\nGYM HEALTH\n")
	p.Fprintf(b, "Overall %d/100, trend %s, %d members assessed\n", h.Overall, h.Trend, h.MemberCount)
	c := h.Components
	p.Fprintf(b, "Components: retention %d, revenue %d, engagement %d, growth %d\n",
		c.Retention, c.Revenue, c.Engagement, c.Growth)
}

func writeDistribution(b *strings.Builder, p *message.Printer, list []assessment.RiskAssessment) {
	counts := make(map[assessment.RiskLevel]int, len(assessment.RiskLevels))
	for _, a := range list {
		counts[a.RiskLevel]++
	}
	parts := make([]string, 0, len(assessment.RiskLevels))
	for i := len(assessment.RiskLevels) - 1; i >= 0; i-- {
		l := assessment.RiskLevels[i]
		parts = append(parts, p.Sprintf("%s %d", l, counts[l]))
	}
	b.WriteString("\nRISK DISTRIBUTION\n")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString("\n")
}

func writeTopMembers(b *strings.Builder, p *message.Printer, in Input) {
	n := in.TopN
	if n <= 0 {
		n = DefaultTopN
	}
	list := append([]assessment.RiskAssessment(nil), in.Assessments...)
	assessment.ByRisk(list)
	if len(list) > n {
		list = list[:n]
	}

	p.Fprintf(b, "\nTOP AT-RISK MEMBERS (%d of %d)\n", len(list), len(in.Assessments))
	if len(list) == 0 {
		b.WriteString("No assessments computed yet.\n")
		return
	}
	for i, a := range list {
		p.Fprintf(b, "%d. %s: score %d (%s), confidence %.2f\n",
			i+1, memberLabel(in.Snapshot, a.MemberID), a.CompositeScore, a.RiskLevel, a.Confidence)
		p.Fprintf(b, "   Summary: %s\n", a.Explanation.Summary)
		if fs := factorList(p, a.Explanation.Factors); fs != "" {
			p.Fprintf(b, "   Factors: %s\n", fs)
		}
		if len(a.RecommendedInterventions) > 0 {
			actions := make([]string, len(a.RecommendedInterventions))
			for j, r := range a.RecommendedInterventions {
				actions[j] = p.Sprintf("%s [%s]", r.Title, r.Priority)
			}
			p.Fprintf(b, "   Actions: %s\n", strings.Join(actions, "; "))
		}
	}
}

func memberLabel(snap *types.Snapshot, id string) string {
	if snap != nil {
		if m, ok := snap.Member(id); ok && m.Name != "" {
			return m.Name + " (" + id + ")"
		}
	}
	return id
}

func factorList(p *message.Printer, factors []assessment.Factor) string {
	parts := make([]string, 0, maxFactors)
	for _, f := range factors {
		if len(parts) == maxFactors {
			break
		}
		parts = append(parts, p.Sprintf("%s %d%%", f.Label, f.Impact))
	}
	return strings.Join(parts, ", ")
}

func writeInterventions(b *strings.Builder, p *message.Printer, ivs []intervention.Intervention) {
	byStatus := make(map[intervention.Status][]intervention.Intervention)
	open := 0
	for _, iv := range ivs {
		if iv.Status.Terminal() {
			continue
		}
		byStatus[iv.Status] = append(byStatus[iv.Status], iv)
		open++
	}

	p.Fprintf(b, "\nOPEN INTERVENTIONS (%d)\n", open)
	if open == 0 {
		b.WriteString("None.\n")
		return
	}
	for _, s := range intervention.Statuses {
		group := byStatus[s]
		if len(group) == 0 {
			continue
		}
		p.Fprintf(b, "%s (%d):\n", s, len(group))
		for _, iv := range group {
			p.Fprintf(b, "  - %s for %s [%s]", iv.Title, iv.MemberID, iv.Priority)
			if iv.AssignedTo != "" {
				p.Fprintf(b, ", assigned to %s", iv.AssignedTo)
			}
			b.WriteString("\n")
		}
	}
}

// paying reports whether a member counts towards active totals and revenue.
func paying(s types.MemberStatus) bool {
	return s != types.MemberChurned && s != types.MemberPaused
}

func writeBusiness(b *strings.Builder, p *message.Printer, snap *types.Snapshot) {
	b.WriteString("\nBUSINESS OVERVIEW\n")
	if snap == nil {
		b.WriteString("No snapshot loaded.\n")
		return
	}

	var active int
	var mrr int64
	mix := make(map[string]int)
	for _, m := range snap.Members {
		if !paying(m.Status) {
			continue
		}
		active++
		name := "no plan"
		if plan, ok := snap.Plan(m.PlanID); ok {
			name = plan.Name
			mrr += plan.PriceCents
		}
		mix[name]++
	}

	p.Fprintf(b, "Members: %d total, %d active\n", len(snap.Members), active)
	if len(mix) > 0 {
		names := make([]string, 0, len(mix))
		for name := range mix {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if mix[names[i]] != mix[names[j]] {
				return mix[names[i]] > mix[names[j]]
			}
			return names[i] < names[j]
		})
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = p.Sprintf("%s %d", name, mix[name])
		}
		p.Fprintf(b, "Plan mix: %s\n", strings.Join(parts, ", "))
	}
	p.Fprintf(b, "Monthly recurring revenue: $%.2f\n", float64(mrr)/100)
}
