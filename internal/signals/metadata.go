package signals

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is the typed payload a signal carries alongside its score. Each
// signal id owns exactly one concrete type; consumers switch on the type.
type Metadata interface {
	SignalID() ID
}

// VisitDecayMeta compares two consecutive 14-day windows of check-ins.
type VisitDecayMeta struct {
	Recent int     `json:"recent_visits"`
	Prior  int     `json:"prior_visits"`
	Ratio  float64 `json:"ratio"`
}

// DaysSinceVisitMeta records the gap since the latest check-in.
type DaysSinceVisitMeta struct {
	HasHistory bool `json:"has_history"`
	Days       int  `json:"days"`
	Threshold  int  `json:"threshold"`
}

// ConsistencyMeta is the spread of gaps between visits.
type ConsistencyMeta struct {
	Visits     int     `json:"visits"`
	StdDevDays float64 `json:"std_dev_days"`
	MeanGap    float64 `json:"mean_gap_days"`
}

// PaymentFailuresMeta counts failed charges in the lookback window.
type PaymentFailuresMeta struct {
	Failed       int `json:"failed"`
	WindowDays   int `json:"window_days"`
	Transactions int `json:"transactions"`
}

// LatePaymentsMeta counts overdue invoices.
type LatePaymentsMeta struct {
	Overdue int `json:"overdue"`
}

// PlanChange is the subscription state that drove plan_downgrade.
type PlanChange string

const (
	PlanChangeNone              PlanChange = "none"
	PlanChangeCancelAtPeriodEnd PlanChange = "cancel_at_period_end"
	PlanChangePastDue           PlanChange = "past_due"
	PlanChangePaused            PlanChange = "paused"
	PlanChangeNoSubscription    PlanChange = "no_subscription"
)

// PlanDowngradeMeta records why plan_downgrade scored as it did.
type PlanDowngradeMeta struct {
	Change PlanChange `json:"change"`
}

// ParticipationMeta compares two consecutive 30-day windows of bookings.
type ParticipationMeta struct {
	Recent int     `json:"recent_bookings"`
	Prior  int     `json:"prior_bookings"`
	Ratio  float64 `json:"ratio"`
}

// DiversityMeta lists which parts of the gym the member uses.
type DiversityMeta struct {
	HasCheckIns              bool `json:"has_check_ins"`
	HasBookings              bool `json:"has_bookings"`
	IncludesPersonalTraining bool `json:"includes_personal_training"`
	Channels                 int  `json:"channels"`
}

// TenureMeta is the member's tenure in months.
type TenureMeta struct {
	Months float64 `json:"months"`
}

// RenewalMeta records the distance to the next renewal.
type RenewalMeta struct {
	HasSubscription   bool `json:"has_subscription"`
	DaysUntilRenewal  int  `json:"days_until_renewal"`
	CancelAtPeriodEnd bool `json:"cancel_at_period_end"`
}

func (VisitDecayMeta) SignalID() ID      { return VisitFrequencyDecay }
func (DaysSinceVisitMeta) SignalID() ID  { return DaysSinceLastVisit }
func (ConsistencyMeta) SignalID() ID     { return VisitConsistency }
func (PaymentFailuresMeta) SignalID() ID { return PaymentFailures }
func (LatePaymentsMeta) SignalID() ID    { return LatePayments }
func (PlanDowngradeMeta) SignalID() ID   { return PlanDowngrade }
func (ParticipationMeta) SignalID() ID   { return ClassParticipation }
func (DiversityMeta) SignalID() ID       { return EngagementDiversity }
func (TenureMeta) SignalID() ID          { return TenureFactor }
func (RenewalMeta) SignalID() ID         { return RenewalProximity }

// decodeMetadata decodes raw into the concrete metadata type owned by id.
func decodeMetadata(id ID, raw json.RawMessage) (Metadata, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var (
		m   Metadata
		err error
	)
	switch id {
	case VisitFrequencyDecay:
		m, err = decodeAs[VisitDecayMeta](raw)
	case DaysSinceLastVisit:
		m, err = decodeAs[DaysSinceVisitMeta](raw)
	case VisitConsistency:
		m, err = decodeAs[ConsistencyMeta](raw)
	case PaymentFailures:
		m, err = decodeAs[PaymentFailuresMeta](raw)
	case LatePayments:
		m, err = decodeAs[LatePaymentsMeta](raw)
	case PlanDowngrade:
		m, err = decodeAs[PlanDowngradeMeta](raw)
	case ClassParticipation:
		m, err = decodeAs[ParticipationMeta](raw)
	case EngagementDiversity:
		m, err = decodeAs[DiversityMeta](raw)
	case TenureFactor:
		m, err = decodeAs[TenureMeta](raw)
	case RenewalProximity:
		m, err = decodeAs[RenewalMeta](raw)
	default:
		return nil, fmt.Errorf("unknown signal %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s metadata: %w", id, err)
	}
	return m, nil
}

func decodeAs[T Metadata](raw json.RawMessage) (Metadata, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
