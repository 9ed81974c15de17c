// Package intervention tracks retention actions from recommendation to
// outcome. The lifecycle is a closed state machine; persistence is behind
// the Repository interface.
package intervention

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/retention/internal/types"
)

// Status is a lifecycle state of an intervention.
type Status string

const (
	StatusRecommended Status = "recommended"
	StatusApproved    Status = "approved"
	StatusExecuting   Status = "executing"
	StatusCompleted   Status = "completed"
	StatusDismissed   Status = "dismissed"
	StatusFailed      Status = "failed"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{
	StatusRecommended, StatusApproved, StatusExecuting,
	StatusCompleted, StatusDismissed, StatusFailed,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Allowed returns the states reachable from s in one step. Terminal and
// unknown states have none.
func (s Status) Allowed() []Status {
	switch s {
	case StatusRecommended:
		return []Status{StatusApproved, StatusDismissed}
	case StatusApproved:
		return []Status{StatusExecuting, StatusDismissed}
	case StatusExecuting:
		return []Status{StatusCompleted, StatusFailed}
	case StatusFailed:
		return []Status{StatusRecommended}
	case StatusCompleted, StatusDismissed:
		return nil
	default:
		return nil
	}
}

// CanTransition reports whether to is reachable from s in one step.
func (s Status) CanTransition(to Status) bool {
	for _, a := range s.Allowed() {
		if a == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s.Valid() && len(s.Allowed()) == 0
}

// Intervention is a tracked retention action for one member.
type Intervention struct {
	ID              uuid.UUID              `json:"id"`
	MemberID        string                 `json:"member_id"`
	Type            types.InterventionType `json:"type"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Priority        types.Priority         `json:"priority"`
	EstimatedImpact string                 `json:"estimated_impact,omitempty"`
	Status          Status                 `json:"status"`
	AssignedTo      string                 `json:"assigned_to,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	ExecutedAt      *time.Time             `json:"executed_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	Current   Status
	Requested Status
	Allowed   []Status
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("cannot transition from %s to %s (allowed: %s)", e.Current, e.Requested, allowed)
}

// Transition moves iv to status to and applies the timestamp side effects:
// entering executing sets ExecutedAt, entering completed sets CompletedAt.
// A rejected transition leaves iv untouched.
func Transition(iv *Intervention, to Status, now time.Time) error {
	if !iv.Status.CanTransition(to) {
		return &TransitionError{Current: iv.Status, Requested: to, Allowed: iv.Status.Allowed()}
	}
	iv.Status = to
	iv.UpdatedAt = now
	switch to {
	case StatusExecuting:
		t := now
		iv.ExecutedAt = &t
	case StatusCompleted:
		t := now
		iv.CompletedAt = &t
	}
	return nil
}

// FromRecommendation builds a new recommended intervention for memberID.
func FromRecommendation(memberID string, rec types.Recommendation, now time.Time) Intervention {
	return Intervention{
		ID:              uuid.New(),
		MemberID:        memberID,
		Type:            rec.Type,
		Title:           rec.Title,
		Description:     rec.Description,
		Priority:        rec.Priority,
		EstimatedImpact: rec.EstimatedImpact,
		Status:          StatusRecommended,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
