package signals

import (
	"encoding/json"
	"math"
	"time"

	"github.com/matthewbaird/retention/internal/types"
)

// ID identifies a signal computer.
type ID string

const (
	VisitFrequencyDecay ID = "visit_frequency_decay"
	DaysSinceLastVisit  ID = "days_since_last_visit"
	VisitConsistency    ID = "visit_consistency"
	PaymentFailures     ID = "payment_failures"
	LatePayments        ID = "late_payments"
	PlanDowngrade       ID = "plan_downgrade"
	ClassParticipation  ID = "class_participation"
	EngagementDiversity ID = "engagement_diversity"
	TenureFactor        ID = "tenure_factor"
	RenewalProximity    ID = "renewal_proximity"
)

// Category groups signals that share one aggregate score.
type Category string

const (
	CategoryVisitFrequency Category = "visit_frequency"
	CategoryPayment        Category = "payment"
	CategoryEngagement     Category = "engagement"
	CategoryLifecycle      Category = "lifecycle"
)

// Categories lists every category in aggregation order.
var Categories = []Category{
	CategoryVisitFrequency,
	CategoryPayment,
	CategoryEngagement,
	CategoryLifecycle,
}

// Trend is the direction a signal is moving.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// RiskSignal is one normalized sub-score. Score is in [0,100], higher means
// more likely to cancel.
type RiskSignal struct {
	ID         ID       `json:"id"`
	Category   Category `json:"category"`
	Label      string   `json:"label"`
	Score      float64  `json:"score"`
	Weight     float64  `json:"weight"`
	Confidence float64  `json:"confidence"`
	DataPoints int      `json:"data_points"`
	Trend      Trend    `json:"trend"`
	Metadata   Metadata `json:"metadata"`
}

// UnmarshalJSON restores Metadata as the concrete type owned by the signal id.
func (s *RiskSignal) UnmarshalJSON(data []byte) error {
	type plain RiskSignal
	var aux struct {
		plain
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	meta, err := decodeMetadata(aux.ID, aux.Metadata)
	if err != nil {
		return err
	}
	*s = RiskSignal(aux.plain)
	s.Metadata = meta
	return nil
}

// Input is the slice of a snapshot that belongs to one member.
type Input struct {
	Now          time.Time
	Member       types.Member
	Plan         *types.Plan
	Subscription *types.Subscription
	Invoices     []types.Invoice
	Transactions []types.Transaction
	Bookings     []types.ClassBooking
}

// IncludesPersonalTraining reports whether the member's plan bundles PT.
func (in Input) IncludesPersonalTraining() bool {
	return in.Plan != nil && in.Plan.IncludesPersonalTraining()
}

// Index groups a snapshot's collections by member so a batch run does not
// rescan every collection per member.
type Index struct {
	snap          *types.Snapshot
	plans         map[string]*types.Plan
	subscriptions map[string]*types.Subscription
	byMemberSub   map[string]*types.Subscription
	invoices      map[string][]types.Invoice
	transactions  map[string][]types.Transaction
	bookings      map[string][]types.ClassBooking
}

// NewIndex builds an Index over snap. The snapshot is read, never modified.
func NewIndex(snap *types.Snapshot) *Index {
	idx := &Index{
		snap:          snap,
		plans:         make(map[string]*types.Plan, len(snap.Plans)),
		subscriptions: make(map[string]*types.Subscription, len(snap.Subscriptions)),
		byMemberSub:   make(map[string]*types.Subscription, len(snap.Subscriptions)),
		invoices:      make(map[string][]types.Invoice),
		transactions:  make(map[string][]types.Transaction),
		bookings:      make(map[string][]types.ClassBooking),
	}
	for i := range snap.Plans {
		idx.plans[snap.Plans[i].ID] = &snap.Plans[i]
	}
	for i := range snap.Subscriptions {
		sub := &snap.Subscriptions[i]
		idx.subscriptions[sub.ID] = sub
		// First subscription wins when a member has several.
		if _, ok := idx.byMemberSub[sub.MemberID]; !ok {
			idx.byMemberSub[sub.MemberID] = sub
		}
	}
	for _, inv := range snap.Invoices {
		idx.invoices[inv.MemberID] = append(idx.invoices[inv.MemberID], inv)
	}
	for _, tx := range snap.Transactions {
		idx.transactions[tx.MemberID] = append(idx.transactions[tx.MemberID], tx)
	}
	for _, b := range snap.Bookings {
		idx.bookings[b.MemberID] = append(idx.bookings[b.MemberID], b)
	}
	return idx
}

// Input resolves the member's plan, subscription and records.
func (idx *Index) Input(m types.Member) Input {
	in := Input{
		Now:          idx.snap.Now,
		Member:       m,
		Invoices:     idx.invoices[m.ID],
		Transactions: idx.transactions[m.ID],
		Bookings:     idx.bookings[m.ID],
	}
	if m.SubscriptionID != "" {
		in.Subscription = idx.subscriptions[m.SubscriptionID]
	}
	if in.Subscription == nil {
		in.Subscription = idx.byMemberSub[m.ID]
	}
	planID := m.PlanID
	if planID == "" && in.Subscription != nil {
		planID = in.Subscription.PlanID
	}
	if planID != "" {
		in.Plan = idx.plans[planID]
	}
	return in
}

// NewInput resolves a single member against snap.
func NewInput(m types.Member, snap *types.Snapshot) Input {
	return NewIndex(snap).Input(m)
}

const day = 24 * time.Hour

// wholeDays returns the number of complete days from `from` to `to`.
func wholeDays(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// inWindow reports whether t falls in [now-start, now-end) when end > 0, or
// in [now-start, now] when end == 0. A timestamp exactly `end` old belongs to
// the newer window.
func inWindow(t, now time.Time, start, end time.Duration) bool {
	if t.Before(now.Add(-start)) {
		return false
	}
	if end == 0 {
		return !t.After(now)
	}
	return t.Before(now.Add(-end))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// dataConfidence scales confidence with the number of observations seen.
func dataConfidence(n int) float64 {
	return math.Min(1, 0.4+0.06*float64(n))
}

// trendFromScore is used by signals without their own direction rule.
func trendFromScore(score float64) Trend {
	if score >= 50 {
		return TrendDeclining
	}
	return TrendStable
}
