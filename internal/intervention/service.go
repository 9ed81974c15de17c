package intervention

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/logger"
	"github.com/matthewbaird/retention/internal/types"
)

// MemberLookup reports whether a member exists in the current snapshot.
type MemberLookup interface {
	HasMember(ctx context.Context, memberID string) (bool, error)
}

// CreateInput is the body of a create request.
type CreateInput struct {
	MemberID        string                 `json:"member_id"`
	Type            types.InterventionType `json:"type"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Priority        types.Priority         `json:"priority"`
	EstimatedImpact string                 `json:"estimated_impact"`
	Status          Status                 `json:"status,omitempty"`
	AssignedTo      string                 `json:"assigned_to,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

// Validate checks the shape of the request. The member is checked by the service.
func (in CreateInput) Validate() error {
	switch {
	case strings.TrimSpace(in.MemberID) == "":
		return required("member_id")
	case !in.Type.Valid():
		return invalidEnum("type", in.Type, types.InterventionTypes)
	case strings.TrimSpace(in.Title) == "":
		return required("title")
	case !in.Priority.Valid():
		return invalidEnum("priority", in.Priority, types.Priorities)
	case in.Status != "" && in.Status != StatusRecommended:
		return &ValidationError{
			Field:  "status",
			Reason: "new interventions start as recommended",
			Valid:  []string{string(StatusRecommended)},
		}
	}
	return nil
}

// StatusUpdate is the body of an update request. Nil fields are left as is.
type StatusUpdate struct {
	Status     Status  `json:"status"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// ParseFilter validates raw query values into a Filter.
func ParseFilter(memberID, status, priority string) (Filter, error) {
	f := Filter{MemberID: memberID, Status: Status(status), Priority: types.Priority(priority)}
	if f.Status != "" && !f.Status.Valid() {
		return Filter{}, invalidEnum("status", f.Status, Statuses)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return Filter{}, invalidEnum("priority", f.Priority, types.Priorities)
	}
	return f, nil
}

// Service is the CRUD boundary for interventions. Status changes for one
// intervention are serialised; different interventions proceed in parallel.
type Service struct {
	repo     Repository
	members  MemberLookup
	recorder event.Recorder
	log      *logger.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder records lifecycle events through r.
func WithRecorder(r event.Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(repo Repository, members MemberLookup, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		members:  members,
		recorder: event.Discard,
		log:      logger.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    make(map[uuid.UUID]*keyLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns interventions matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Intervention, error) {
	return s.repo.List(ctx, f)
}

// Get returns one intervention or ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Intervention, error) {
	return s.repo.Get(ctx, id)
}

// Create validates in, checks the member exists and stores a new
// recommended intervention.
func (s *Service) Create(ctx context.Context, in CreateInput) (Intervention, error) {
	if err := in.Validate(); err != nil {
		return Intervention{}, err
	}
	if err := s.requireMember(ctx, in.MemberID); err != nil {
		return Intervention{}, err
	}

	now := s.now()
	iv := FromRecommendation(in.MemberID, types.Recommendation{
		Type:            in.Type,
		Title:           in.Title,
		Description:     in.Description,
		Priority:        in.Priority,
		EstimatedImpact: in.EstimatedImpact,
	}, now)
	iv.AssignedTo = in.AssignedTo
	iv.Notes = in.Notes

	if err := s.repo.Create(ctx, iv); err != nil {
		return Intervention{}, err
	}
	s.record(ctx, event.NewInterventionCreated(payload(iv, ""), now))
	return iv, nil
}

// CreateFromRecommendations stores one recommended intervention per rec.
func (s *Service) CreateFromRecommendations(ctx context.Context, memberID string, recs []types.Recommendation) ([]Intervention, error) {
	if err := s.requireMember(ctx, memberID); err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Intervention, 0, len(recs))
	for _, rec := range recs {
		iv := FromRecommendation(memberID, rec, now)
		if err := s.repo.Create(ctx, iv); err != nil {
			return out, err
		}
		s.record(ctx, event.NewInterventionCreated(payload(iv, ""), now))
		out = append(out, iv)
	}
	return out, nil
}

// UpdateStatus applies a lifecycle transition. An invalid target state is
// a validation error; a disallowed transition is a *TransitionError and
// leaves the stored intervention unchanged. The status is checked before
// the lookup, so a bad status on an unknown id reports the validation error.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (Intervention, error) {
	if !upd.Status.Valid() {
		return Intervention{}, invalidEnum("status", upd.Status, Statuses)
	}

	unlock := s.lock(id)
	defer unlock()

	iv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Intervention{}, err
	}
	previous := iv.Status

	now := s.now()
	if err := Transition(&iv, upd.Status, now); err != nil {
		return Intervention{}, err
	}
	if upd.AssignedTo != nil {
		iv.AssignedTo = *upd.AssignedTo
	}
	if upd.Notes != nil {
		iv.Notes = *upd.Notes
	}
	if err := s.repo.Update(ctx, iv); err != nil {
		return Intervention{}, err
	}

	s.log.Info("intervention transitioned",
		"intervention_id", iv.ID.String(), "member_id", iv.MemberID,
		"from", previous, "to", iv.Status)
	s.record(ctx, event.NewInterventionTransitioned(payload(iv, previous), now))
	return iv, nil
}

func (s *Service) requireMember(ctx context.Context, memberID string) error {
	ok, err := s.members.HasMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMemberNotFound
	}
	return nil
}

// lock takes the per-intervention mutex and returns its release func.
func (s *Service) lock(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &keyLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// record is best effort: a failed activity write never fails the request.
func (s *Service) record(ctx context.Context, evt event.DomainEvent) {
	if err := s.recorder.Record(ctx, evt); err != nil {
		s.log.Error("recording event failed", "event_type", evt.EventType, "error", err)
	}
}

func payload(iv Intervention, previous Status) event.InterventionPayload {
	return event.InterventionPayload{
		InterventionID: iv.ID.String(),
		MemberID:       iv.MemberID,
		Type:           string(iv.Type),
		Title:          iv.Title,
		Priority:       string(iv.Priority),
		Status:         string(iv.Status),
		PreviousStatus: string(previous),
		AssignedTo:     iv.AssignedTo,
	}
}
