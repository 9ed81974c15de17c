package assistant

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testInput() Input {
	snap := &types.Snapshot{
		Now: testNow,
		Plans: []types.Plan{
			{ID: "std", Name: "Premium", Type: types.PlanStandard, PriceCents: 4900},
			{ID: "pt", Name: "PT Package", Type: types.PlanPremium, PriceCents: 12900},
		},
		Members: []types.Member{
			{ID: "m-1", Name: "Jordan Reyes", PlanID: "std", Status: types.MemberAtRisk},
			{ID: "m-2", Name: "Avery Chen", PlanID: "pt", Status: types.MemberActive},
			{ID: "m-3", PlanID: "std", Status: types.MemberActive},
			{ID: "m-4", PlanID: "pt", Status: types.MemberChurned},
			{ID: "m-5", PlanID: "std", Status: types.MemberPaused},
		},
	}
	return Input{
		Snapshot: snap,
		Assessments: []assessment.RiskAssessment{
			{MemberID: "m-2", CompositeScore: 6, RiskLevel: assessment.RiskLow, Confidence: 0.9,
				Explanation: assessment.Explanation{Summary: "Member is in good standing."}},
			{MemberID: "m-1", CompositeScore: 73, RiskLevel: assessment.RiskHigh, Confidence: 0.74,
				Explanation: assessment.Explanation{
					Summary: "3 failed payments in the last 90 days.",
					Factors: []assessment.Factor{
						{Label: "Payment failures", Impact: 40},
						{Label: "Days since visit", Impact: 30},
						{Label: "Renewal proximity", Impact: 20},
						{Label: "Tenure", Impact: 10},
					},
				},
				RecommendedInterventions: []types.Recommendation{
					{Title: "Payment recovery email", Priority: types.PriorityUrgent},
					{Title: "Personal phone call", Priority: types.PriorityUrgent},
				}},
			{MemberID: "m-3", CompositeScore: 45, RiskLevel: assessment.RiskElevated,
				Explanation: assessment.Explanation{Summary: "Visits declining."}},
		},
		Health: assessment.GymHealthScore{
			Overall: 57, Trend: assessment.HealthStable, MemberCount: 3,
			Components: assessment.HealthComponents{Retention: 55, Revenue: 70, Engagement: 50, Growth: 50},
		},
		Interventions: []intervention.Intervention{
			{ID: uuid.New(), MemberID: "m-1", Title: "Personal phone call", Priority: types.PriorityUrgent, Status: intervention.StatusApproved, AssignedTo: "coach-sam"},
			{ID: uuid.New(), MemberID: "m-1", Title: "Payment recovery email", Priority: types.PriorityUrgent, Status: intervention.StatusRecommended},
			{ID: uuid.New(), MemberID: "m-3", Title: "Re-engagement email", Priority: types.PriorityHigh, Status: intervention.StatusCompleted},
		},
	}
}

func TestRender_Sections(t *testing.T) {
	out := Render(testInput())

	for _, want := range []string{
		"Retention context generated 2026-03-01T12:00:00Z\n",
		"GYM HEALTH\nOverall 57/100, trend stable, 3 members assessed\n",
		"Components: retention 55, revenue 70, engagement 50, growth 50\n",
		"RISK DISTRIBUTION\ncritical 0, high 1, elevated 1, moderate 0, low 1\n",
		"TOP AT-RISK MEMBERS (3 of 3)\n",
		"1. Jordan Reyes (m-1): score 73 (high), confidence 0.74\n",
		"   Summary: 3 failed payments in the last 90 days.\n",
		"   Factors: Payment failures 40%, Days since visit 30%, Renewal proximity 20%\n",
		"   Actions: Payment recovery email [urgent]; Personal phone call [urgent]\n",
		"2. m-3: score 45 (elevated), confidence 0.00\n",
		"3. Avery Chen (m-2): score 6 (low)",
		"OPEN INTERVENTIONS (2)\nrecommended (1):\n  - Payment recovery email for m-1 [urgent]\napproved (1):\n  - Personal phone call for m-1 [urgent], assigned to coach-sam\n",
		"Members: 5 total, 3 active\n",
		"Plan mix: Premium 2, PT Package 1\n",
		"Monthly recurring revenue: $227.00\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Re-engagement email", "terminal interventions are not open")
	assert.NotContains(t, out, "Tenure 10%", "only the top factors are listed")
}

func TestRender_TopNLimits(t *testing.T) {
	in := testInput()
	in.TopN = 1
	out := Render(in)
	assert.Contains(t, out, "TOP AT-RISK MEMBERS (1 of 3)\n1. Jordan Reyes (m-1)")
	assert.NotContains(t, out, "2. m-3")
}

func TestRender_DefaultTopN(t *testing.T) {
	in := Input{GeneratedAt: testNow}
	for i := 0; i < DefaultTopN+5; i++ {
		in.Assessments = append(in.Assessments, assessment.RiskAssessment{
			MemberID: fmt.Sprintf("m-%02d", i), CompositeScore: i, RiskLevel: assessment.RiskLow,
		})
	}
	out := Render(in)
	assert.Contains(t, out, "TOP AT-RISK MEMBERS (10 of 15)\n1. m-14: score 14")
	assert.Contains(t, out, "10. m-05: score 5")
	assert.NotContains(t, out, "m-04")
}

func TestRender_Empty(t *testing.T) {
	out := Render(Input{GeneratedAt: testNow, Health: assessment.ComputeGymHealth(nil)})
	assert.Contains(t, out, "Overall 50/100, trend stable, 0 members assessed")
	assert.Contains(t, out, "No assessments computed yet.")
	assert.Contains(t, out, "OPEN INTERVENTIONS (0)\nNone.\n")
	assert.True(t, strings.HasSuffix(out, "BUSINESS OVERVIEW\nNo snapshot loaded.\n"))
}

func TestRender_ThousandsSeparators(t *testing.T) {
	snap := &types.Snapshot{
		Now:   testNow,
		Plans: []types.Plan{{ID: "std", Name: "Standard", PriceCents: 4900}},
	}
	for i := 0; i < 1200; i++ {
		snap.Members = append(snap.Members, types.Member{ID: fmt.Sprintf("m-%d", i), PlanID: "std", Status: types.MemberActive})
	}
	out := Render(Input{Snapshot: snap})
	require.Contains(t, out, "Retention context generated 2026-03-01T12:00:00Z")
	assert.Contains(t, out, "Members: 1,200 total, 1,200 active\n")
	assert.Contains(t, out, "Plan mix: Standard 1,200\n")
	assert.Contains(t, out, "Monthly recurring revenue: $58,800.00\n")
}
