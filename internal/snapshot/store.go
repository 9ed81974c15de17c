// Package snapshot holds the current point-in-time view of the gym and the
// assessments last computed against it.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/types"
)

var (
	ErrNoSnapshot     = errors.New("no snapshot loaded")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalid        = errors.New("invalid snapshot")
)

// Store keeps the current snapshot and assessment set. Snapshots are
// treated as immutable once stored; Replace swaps the pointer.
type Store struct {
	mu          sync.RWMutex
	snap        *types.Snapshot
	assessments map[string]assessment.RiskAssessment
}

func NewStore() *Store {
	return &Store{assessments: make(map[string]assessment.RiskAssessment)}
}

// Validate checks the invariants every computation relies on.
func Validate(snap *types.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: empty body", ErrInvalid)
	}
	if snap.Now.IsZero() {
		return fmt.Errorf("%w: now is required", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(snap.Members))
	for i, m := range snap.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: members[%d] has no id", ErrInvalid, i)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate member id %q", ErrInvalid, m.ID)
		}
		seen[m.ID] = struct{}{}
		if !m.Status.Valid() {
			return fmt.Errorf("%w: member %q has unknown status %q", ErrInvalid, m.ID, m.Status)
		}
	}
	return nil
}

// Replace validates and stores snap. Assessments from the previous snapshot
// are kept so the next run can carry their scores forward.
func (s *Store) Replace(snap *types.Snapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}

// Current returns the stored snapshot or ErrNoSnapshot.
func (s *Store) Current() (*types.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, ErrNoSnapshot
	}
	return s.snap, nil
}

// HasMember implements intervention.MemberLookup.
func (s *Store) HasMember(_ context.Context, memberID string) (bool, error) {
	snap, err := s.Current()
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	_, ok := snap.Member(memberID)
	return ok, nil
}

// SetAssessments replaces the stored assessment set.
func (s *Store) SetAssessments(all map[string]assessment.RiskAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = all
}

// Assessments returns a copy of the stored assessment set.
func (s *Store) Assessments() map[string]assessment.RiskAssessment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]assessment.RiskAssessment, len(s.assessments))
	for k, v := range s.assessments {
		out[k] = v
	}
	return out
}

// Assessment returns the stored assessment for one member.
func (s *Store) Assessment(memberID string) (assessment.RiskAssessment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[memberID]
	return a, ok
}
