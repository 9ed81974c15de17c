// Package types provides the Go structs for the member snapshot the retention
// engine reads and the assessment values it produces. Every type here is a
// plain value type serialized as JSON at the service boundary.
package types

import "time"

// MemberStatus is the lifecycle status the business tracks for a member.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberAtRisk   MemberStatus = "at-risk"
	MemberPaused   MemberStatus = "paused"
	MemberChurned  MemberStatus = "churned"
	MemberCritical MemberStatus = "critical"
)

// Valid reports whether s is a known member status.
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberAtRisk, MemberPaused, MemberChurned, MemberCritical:
		return true
	}
	return false
}

// Member is one customer of the gym.
type Member struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email,omitempty"`
	PlanID         string       `json:"plan_id,omitempty"`
	SubscriptionID string       `json:"subscription_id,omitempty"`
	Status         MemberStatus `json:"status"`
	MemberSince    time.Time    `json:"member_since"`
	CheckIns       []time.Time  `json:"check_ins"` // append-only history
}

// PlanType is the pricing tier of a plan.
type PlanType string

const (
	PlanBase     PlanType = "base"
	PlanStandard PlanType = "standard"
	PlanPremium  PlanType = "premium"
	PlanDiscount PlanType = "discount"
	PlanB2B      PlanType = "b2b"
)

// Plan is a membership product. The display name is free text and carries no
// semantics; only Type is inspected by the engine.
type Plan struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       PlanType `json:"type"`
	PriceCents int64    `json:"price_cents"`
}

// IncludesPersonalTraining reports whether the plan bundles personal
// training sessions. Only the premium tier does.
func (p Plan) IncludesPersonalTraining() bool {
	return p.Type == PlanPremium
}

// SubscriptionStatus mirrors the billing provider's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionPaused   SubscriptionStatus = "paused"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription binds a member to a plan for a billing period.
type Subscription struct {
	ID                string             `json:"id"`
	MemberID          string             `json:"member_id"`
	PlanID            string             `json:"plan_id"`
	Status            SubscriptionStatus `json:"status"`
	CurrentPeriodEnd  time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
}

// InvoiceStatus is the collection state of an invoice.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOpen    InvoiceStatus = "open"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

// Invoice is an amount billed to a member.
type Invoice struct {
	ID          string        `json:"id"`
	MemberID    string        `json:"member_id"`
	AmountCents int64         `json:"amount_cents"`
	Status      InvoiceStatus `json:"status"`
	DueDate     time.Time     `json:"due_date"`
}

// TransactionStatus is the outcome of a charge attempt.
type TransactionStatus string

const (
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
	TransactionPending   TransactionStatus = "pending"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is a single charge attempt against a member's payment method.
type Transaction struct {
	ID          string            `json:"id"`
	MemberID    string            `json:"member_id"`
	AmountCents int64             `json:"amount_cents"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// BookingStatus is the state of a class booking.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingAttended  BookingStatus = "attended"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

// ClassBooking is a reservation for a scheduled group class.
type ClassBooking struct {
	ID          string        `json:"id"`
	MemberID    string        `json:"member_id"`
	ClassName   string        `json:"class_name"`
	Status      BookingStatus `json:"status"`
	ScheduledAt time.Time     `json:"scheduled_at"`
}

// Snapshot is the immutable point-in-time context every assessment reads.
// Callers must not mutate a Snapshot once it has been handed to the engine.
type Snapshot struct {
	Now           time.Time      `json:"now"`
	Members       []Member       `json:"members"`
	Plans         []Plan         `json:"plans"`
	Subscriptions []Subscription `json:"subscriptions"`
	Invoices      []Invoice      `json:"invoices"`
	Transactions  []Transaction  `json:"transactions"`
	Bookings      []ClassBooking `json:"bookings"`
}

// Member returns the member with the given id.
func (s *Snapshot) Member(id string) (Member, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Plan returns the plan with the given id.
func (s *Snapshot) Plan(id string) (Plan, bool) {
	for _, p := range s.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
