package types

// InterventionType is the kind of retention action.
type InterventionType string

const (
	InterventionEmail               InterventionType = "email"
	InterventionDiscount            InterventionType = "discount"
	InterventionCall                InterventionType = "call"
	InterventionClassRecommendation InterventionType = "class_recommendation"
	InterventionStaffTask           InterventionType = "staff_task"
	InterventionPTSession           InterventionType = "pt_session"
)

// InterventionTypes lists every intervention type.
var InterventionTypes = []InterventionType{
	InterventionEmail,
	InterventionDiscount,
	InterventionCall,
	InterventionClassRecommendation,
	InterventionStaffTask,
	InterventionPTSession,
}

// Valid reports whether t is a known intervention type.
func (t InterventionType) Valid() bool {
	for _, v := range InterventionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Priority orders interventions by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// Rank returns 0 for low through 3 for urgent, -1 if unknown.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return -1
}

// Recommendation is an advisory action. It becomes a tracked intervention
// only when a caller creates one from it.
type Recommendation struct {
	Type            InterventionType `json:"type"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Priority        Priority         `json:"priority"`
	EstimatedImpact string           `json:"estimated_impact"`
}
