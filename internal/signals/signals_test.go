package signals

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/retention/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * day)
}

func checkInsAt(days ...int) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		out = append(out, daysAgo(d))
	}
	return out
}

func testInput(m types.Member) Input {
	return Input{Now: testNow, Member: m}
}

func compute(t *testing.T, id ID, in Input) RiskSignal {
	t.Helper()
	c, ok := Lookup(id)
	require.True(t, ok, "computer %s not registered", id)
	return c.Compute(in)
}

func TestRegistry_CategoryWeightsSumToOne(t *testing.T) {
	sums := CategoryWeightSums()
	require.Len(t, sums, len(Categories))
	for _, cat := range Categories {
		assert.InDelta(t, 1.0, sums[cat], 1e-9, "category %s", cat)
	}
}

func TestRegistry_UniqueIDs(t *testing.T) {
	seen := make(map[ID]bool)
	for _, c := range Registry {
		assert.False(t, seen[c.ID()], "duplicate id %s", c.ID())
		seen[c.ID()] = true
	}
	assert.Len(t, seen, 10)
}

func TestComputeAll_MetadataMatchesSignal(t *testing.T) {
	in := testInput(types.Member{ID: "m1", CheckIns: checkInsAt(1, 5, 9)})
	for _, s := range ComputeAll(in) {
		require.NotNil(t, s.Metadata, s.ID)
		assert.Equal(t, s.ID, s.Metadata.SignalID())
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 100.0)
	}
}

func TestRiskSignal_JSONRoundTrip(t *testing.T) {
	in := testInput(types.Member{ID: "m1", CheckIns: checkInsAt(1, 5, 9, 20), MemberSince: daysAgo(400)})
	in.Bookings = []types.ClassBooking{{Status: types.BookingAttended, ScheduledAt: daysAgo(3)}}
	want := ComputeAll(in)

	raw, err := json.Marshal(want)
	require.NoError(t, err)
	var got []RiskSignal
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, want, got)

	meta, ok := got[0].Metadata.(VisitDecayMeta)
	require.True(t, ok, "metadata decodes to %T", got[0].Metadata)
	assert.Equal(t, 3, meta.Recent)
}

func TestRiskSignal_UnmarshalJSONErrors(t *testing.T) {
	var s RiskSignal
	require.NoError(t, json.Unmarshal([]byte(`{"id":"tenure_factor","metadata":null}`), &s))
	assert.Nil(t, s.Metadata)

	err := json.Unmarshal([]byte(`{"id":"mood","metadata":{}}`), &s)
	assert.ErrorContains(t, err, `unknown signal "mood"`)

	err = json.Unmarshal([]byte(`{"id":"tenure_factor","metadata":{"months":"many"}}`), &s)
	assert.ErrorContains(t, err, "decoding tenure_factor metadata")
}

func TestInWindow_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		t          time.Time
		start, end time.Duration
		want       bool
	}{
		{"exactly 14 days is recent", daysAgo(14), 14 * day, 0, true},
		{"exactly 14 days is not prior", daysAgo(14), 28 * day, 14 * day, false},
		{"just past 14 days is prior", daysAgo(14).Add(-time.Second), 28 * day, 14 * day, true},
		{"exactly 28 days is prior", daysAgo(28), 28 * day, 14 * day, true},
		{"past 28 days is out", daysAgo(28).Add(-time.Second), 28 * day, 14 * day, false},
		{"now is recent", testNow, 14 * day, 0, true},
		{"future is out", testNow.Add(time.Second), 14 * day, 0, false},
		{"exactly 90 days counts", daysAgo(90), 90 * day, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inWindow(tt.t, testNow, tt.start, tt.end))
		})
	}
}

func TestVisitDecay_WindowEdges(t *testing.T) {
	s := compute(t, VisitFrequencyDecay, testInput(types.Member{CheckIns: checkInsAt(14, 28, 29)}))
	meta := s.Metadata.(VisitDecayMeta)
	assert.Equal(t, 1, meta.Recent)
	assert.Equal(t, 1, meta.Prior)
}

func TestComputeAll_Deterministic(t *testing.T) {
	in := testInput(types.Member{ID: "m1", CheckIns: checkInsAt(2, 4, 20, 30), MemberSince: daysAgo(200)})
	assert.Equal(t, ComputeAll(in), ComputeAll(in))
}

func TestVisitDecay_ScenarioA(t *testing.T) {
	m := types.Member{ID: "m1", CheckIns: checkInsAt(15, 17, 19, 21, 23, 25, 27, 28, 3, 10)}
	s := compute(t, VisitFrequencyDecay, testInput(m))

	assert.Equal(t, 100.0, s.Score)
	assert.Equal(t, TrendDeclining, s.Trend)
	meta := s.Metadata.(VisitDecayMeta)
	assert.Equal(t, 2, meta.Recent)
	assert.Equal(t, 8, meta.Prior)
	assert.Equal(t, 0.25, meta.Ratio)
}

func TestVisitDecay_Bands(t *testing.T) {
	tests := []struct {
		name      string
		checkIns  []int
		wantScore float64
		wantTrend Trend
	}{
		{"no visits", nil, 75, TrendStable},
		{"new activity", []int{2, 5}, 15, TrendImproving},
		{"ratio 1.5", []int{1, 2, 3, 20, 21}, 5, TrendImproving},
		{"ratio 1.0", []int{1, 2, 20, 21}, 30, TrendStable},
		{"ratio 0.5", []int{1, 20, 21}, 80, TrendDeclining},
		{"only old visits", []int{20, 21}, 100, TrendDeclining},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := compute(t, VisitFrequencyDecay, testInput(types.Member{CheckIns: checkInsAt(tt.checkIns...)}))
			assert.Equal(t, tt.wantScore, s.Score)
			assert.Equal(t, tt.wantTrend, s.Trend)
		})
	}
}

func TestDaysSinceLastVisit(t *testing.T) {
	premium := &types.Plan{ID: "pt", Type: types.PlanPremium}
	standard := &types.Plan{ID: "std", Name: "Premium", Type: types.PlanStandard}

	tests := []struct {
		name      string
		plan      *types.Plan
		lastVisit int
		want      float64
		threshold int
	}{
		{"recent", standard, 3, 5, 7},
		{"within 2x", standard, 10, 30, 7},
		{"premium within 3x", premium, 10, 55, 4},
		{"within 4x", standard, 25, 75, 7},
		{"beyond 4x", standard, 34, 87, 7},
		{"long absent", standard, 60, 100, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(types.Member{CheckIns: checkInsAt(tt.lastVisit, tt.lastVisit+30)})
			in.Plan = tt.plan
			s := compute(t, DaysSinceLastVisit, in)
			assert.Equal(t, tt.want, s.Score)
			meta := s.Metadata.(DaysSinceVisitMeta)
			assert.Equal(t, tt.lastVisit, meta.Days)
			assert.Equal(t, tt.threshold, meta.Threshold)
		})
	}
}

func TestDaysSinceLastVisit_NoHistory(t *testing.T) {
	s := compute(t, DaysSinceLastVisit, testInput(types.Member{}))
	assert.Equal(t, 90.0, s.Score)
	assert.Equal(t, 0.3, s.Confidence)
	assert.False(t, s.Metadata.(DaysSinceVisitMeta).HasHistory)
}

func TestVisitConsistency(t *testing.T) {
	t.Run("sparse history", func(t *testing.T) {
		s := compute(t, VisitConsistency, testInput(types.Member{CheckIns: checkInsAt(1, 8)}))
		assert.Equal(t, 50.0, s.Score)
		assert.Equal(t, 0.3, s.Confidence)
	})
	t.Run("regular weekly visits", func(t *testing.T) {
		s := compute(t, VisitConsistency, testInput(types.Member{CheckIns: checkInsAt(1, 8, 15, 22)}))
		assert.Equal(t, 0.0, s.Score)
		assert.Equal(t, TrendStable, s.Trend)
	})
	t.Run("erratic visits", func(t *testing.T) {
		// Gaps of 1 and 21 days: mean 11, population sigma 10.
		s := compute(t, VisitConsistency, testInput(types.Member{CheckIns: checkInsAt(0, 21, 22)}))
		assert.Equal(t, 80.0, s.Score)
		assert.Equal(t, TrendDeclining, s.Trend)
		assert.Equal(t, 10.0, s.Metadata.(ConsistencyMeta).StdDevDays)
	})
}

func TestPaymentSignals_ScenarioB(t *testing.T) {
	in := testInput(types.Member{ID: "m1"})
	in.Transactions = []types.Transaction{
		{ID: "t1", Status: types.TransactionFailed, CreatedAt: daysAgo(10)},
		{ID: "t2", Status: types.TransactionFailed, CreatedAt: daysAgo(40)},
		{ID: "t3", Status: types.TransactionSucceeded, CreatedAt: daysAgo(41)},
		{ID: "t4", Status: types.TransactionFailed, CreatedAt: daysAgo(120)},
	}
	in.Invoices = []types.Invoice{{ID: "i1", Status: types.InvoicePaid}}

	failures := compute(t, PaymentFailures, in)
	late := compute(t, LatePayments, in)

	assert.Equal(t, 70.0, failures.Score)
	assert.Equal(t, 2, failures.Metadata.(PaymentFailuresMeta).Failed)
	assert.Equal(t, 0.0, late.Score)
}

func TestLatePayments_Bands(t *testing.T) {
	for overdue, want := range map[int]float64{0: 0, 1: 45, 2: 75, 3: 95, 5: 95} {
		in := testInput(types.Member{})
		for i := 0; i < overdue; i++ {
			in.Invoices = append(in.Invoices, types.Invoice{Status: types.InvoiceOverdue})
		}
		s := compute(t, LatePayments, in)
		if s.Score != want {
			t.Errorf("overdue=%d: score = %v, want %v", overdue, s.Score, want)
		}
	}
}

func TestPlanDowngrade(t *testing.T) {
	tests := []struct {
		name string
		sub  *types.Subscription
		want float64
	}{
		{"cancel wins over past due", &types.Subscription{Status: types.SubscriptionPastDue, CancelAtPeriodEnd: true}, 80},
		{"past due", &types.Subscription{Status: types.SubscriptionPastDue}, 60},
		{"paused", &types.Subscription{Status: types.SubscriptionPaused}, 45},
		{"active", &types.Subscription{Status: types.SubscriptionActive}, 0},
		{"none", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(types.Member{})
			in.Subscription = tt.sub
			assert.Equal(t, tt.want, compute(t, PlanDowngrade, in).Score)
		})
	}
}

func TestClassParticipation(t *testing.T) {
	booking := func(d int, status types.BookingStatus) types.ClassBooking {
		return types.ClassBooking{Status: status, ScheduledAt: daysAgo(d)}
	}
	tests := []struct {
		name     string
		bookings []types.ClassBooking
		want     float64
		trend    Trend
	}{
		{"none", nil, 45, TrendStable},
		{"new", []types.ClassBooking{booking(3, types.BookingAttended)}, 10, TrendImproving},
		{"steady", []types.ClassBooking{booking(3, types.BookingAttended), booking(40, types.BookingAttended)}, 10, TrendImproving},
		{"halved", []types.ClassBooking{
			booking(3, types.BookingAttended),
			booking(35, types.BookingAttended), booking(45, types.BookingAttended),
		}, 40, TrendStable},
		{"collapsed", []types.ClassBooking{
			booking(3, types.BookingAttended),
			booking(31, types.BookingAttended), booking(35, types.BookingAttended),
			booking(40, types.BookingAttended), booking(50, types.BookingAttended),
		}, 70, TrendDeclining},
		{"cancelled ignored", []types.ClassBooking{booking(3, types.BookingCancelled)}, 45, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(types.Member{})
			in.Bookings = tt.bookings
			s := compute(t, ClassParticipation, in)
			assert.Equal(t, tt.want, s.Score)
			assert.Equal(t, tt.trend, s.Trend)
		})
	}
}

func TestEngagementDiversity(t *testing.T) {
	in := testInput(types.Member{})
	assert.Equal(t, 80.0, compute(t, EngagementDiversity, in).Score)

	in.Member.CheckIns = checkInsAt(2)
	assert.Equal(t, 50.0, compute(t, EngagementDiversity, in).Score)

	in.Bookings = []types.ClassBooking{{Status: types.BookingBooked, ScheduledAt: daysAgo(1)}}
	assert.Equal(t, 25.0, compute(t, EngagementDiversity, in).Score)

	// Display name "PT Package" carries no meaning; the type flag does.
	in.Plan = &types.Plan{Name: "PT Package", Type: types.PlanPremium}
	s := compute(t, EngagementDiversity, in)
	assert.Equal(t, 10.0, s.Score)
	assert.True(t, s.Metadata.(DiversityMeta).IncludesPersonalTraining)
}

func TestTenure_ScenarioD(t *testing.T) {
	in := testInput(types.Member{MemberSince: daysAgo(15)})
	s := compute(t, TenureFactor, in)
	assert.Equal(t, 70.0, s.Score)
	assert.Equal(t, 0.5, s.Metadata.(TenureMeta).Months)
}

func TestTenure_Bands(t *testing.T) {
	for days, want := range map[int]float64{60: 55, 120: 35, 300: 20, 400: 10} {
		s := compute(t, TenureFactor, testInput(types.Member{MemberSince: daysAgo(days)}))
		assert.Equal(t, want, s.Score, "tenure %d days", days)
	}
}

func TestRenewalProximity_ScenarioC(t *testing.T) {
	in := testInput(types.Member{})
	in.Subscription = &types.Subscription{
		Status:            types.SubscriptionActive,
		CurrentPeriodEnd:  testNow.Add(20 * day),
		CancelAtPeriodEnd: true,
	}
	s := compute(t, RenewalProximity, in)
	assert.Equal(t, 85.0, s.Score)
	assert.Equal(t, 20, s.Metadata.(RenewalMeta).DaysUntilRenewal)
}

func TestRenewalProximity_Bands(t *testing.T) {
	for days, want := range map[int]float64{30: 10, 10: 30, 5: 50, 2: 70, -3: 70} {
		in := testInput(types.Member{})
		in.Subscription = &types.Subscription{CurrentPeriodEnd: testNow.Add(time.Duration(days) * day)}
		assert.Equal(t, want, compute(t, RenewalProximity, in).Score, "days=%d", days)
	}

	s := compute(t, RenewalProximity, testInput(types.Member{}))
	assert.Equal(t, 60.0, s.Score)
	assert.Equal(t, 0.3, s.Confidence)
}

func TestIndex_ResolvesMemberRecords(t *testing.T) {
	snap := &types.Snapshot{
		Now:   testNow,
		Plans: []types.Plan{{ID: "p1", Type: types.PlanPremium}},
		Subscriptions: []types.Subscription{
			{ID: "s1", MemberID: "m1", PlanID: "p1"},
			{ID: "s2", MemberID: "m2", PlanID: "p1"},
		},
		Invoices:     []types.Invoice{{ID: "i1", MemberID: "m1"}, {ID: "i2", MemberID: "m2"}},
		Transactions: []types.Transaction{{ID: "t1", MemberID: "m1"}},
	}
	in := NewIndex(snap).Input(types.Member{ID: "m1"})

	require.NotNil(t, in.Subscription)
	assert.Equal(t, "s1", in.Subscription.ID)
	require.NotNil(t, in.Plan)
	assert.True(t, in.IncludesPersonalTraining())
	assert.Len(t, in.Invoices, 1)
	assert.Len(t, in.Transactions, 1)
	assert.Empty(t, in.Bookings)
	assert.Equal(t, testNow, in.Now)
}

func TestClampAlwaysApplied(t *testing.T) {
	c := computer{id: "x", category: CategoryPayment, weight: 1, compute: func(Input) RiskSignal {
		return RiskSignal{Score: 250, Confidence: 3}
	}}
	s := c.Compute(Input{})
	assert.Equal(t, 100.0, s.Score)
	assert.Equal(t, 1.0, s.Confidence)
	assert.False(t, math.IsNaN(s.Score))
}
