package intervention

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/matthewbaird/retention/internal/types"
)

// Filter narrows a List call. Zero fields match everything.
type Filter struct {
	MemberID string
	Status   Status
	Priority types.Priority
}

// Match reports whether iv passes every set field of f.
func (f Filter) Match(iv Intervention) bool {
	if f.MemberID != "" && iv.MemberID != f.MemberID {
		return false
	}
	if f.Status != "" && iv.Status != f.Status {
		return false
	}
	if f.Priority != "" && iv.Priority != f.Priority {
		return false
	}
	return true
}

// Repository persists interventions. Get and Update return ErrNotFound for
// unknown ids. List returns results ordered by creation time, then id.
type Repository interface {
	Create(ctx context.Context, iv Intervention) error
	Get(ctx context.Context, id uuid.UUID) (Intervention, error)
	List(ctx context.Context, f Filter) ([]Intervention, error)
	Update(ctx context.Context, iv Intervention) error
}

func sortByCreated(list []Intervention) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
}
