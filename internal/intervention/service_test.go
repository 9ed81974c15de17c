package intervention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/types"
)

type members map[string]bool

func (m members) HasMember(_ context.Context, id string) (bool, error) { return m[id], nil }

type captureRecorder struct {
	mu   sync.Mutex
	evts []event.DomainEvent
}

func (c *captureRecorder) Record(_ context.Context, evts ...event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evts = append(c.evts, evts...)
	return nil
}

func (c *captureRecorder) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.evts))
	for i, e := range c.evts {
		out[i] = e.EventType
	}
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestService(t *testing.T) (*Service, *captureRecorder) {
	t.Helper()
	rec := &captureRecorder{}
	c := &clock{t: t0}
	return NewService(NewMemoryStore(), members{"m-1": true}, WithRecorder(rec), WithClock(c.now)), rec
}

func validInput() CreateInput {
	return CreateInput{
		MemberID: "m-1",
		Type:     types.InterventionCall,
		Title:    "Personal phone call",
		Priority: types.PriorityUrgent,
	}
}

func TestService_Create(t *testing.T) {
	svc, rec := newTestService(t)
	iv, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, StatusRecommended, iv.Status)
	assert.NotEqual(t, uuid.Nil, iv.ID)
	assert.Equal(t, t0.Add(time.Minute), iv.CreatedAt)
	assert.Equal(t, []string{event.TypeInterventionCreated}, rec.eventTypes())

	got, err := svc.Get(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, iv, got)
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*CreateInput)
		field string
		valid []string
	}{
		{"missing member", func(in *CreateInput) { in.MemberID = " " }, "member_id", nil},
		{"bad type", func(in *CreateInput) { in.Type = "sms" }, "type", []string{"email", "discount", "call", "class_recommendation", "staff_task", "pt_session"}},
		{"missing title", func(in *CreateInput) { in.Title = "" }, "title", nil},
		{"bad priority", func(in *CreateInput) { in.Priority = "asap" }, "priority", []string{"low", "medium", "high", "urgent"}},
		{"non-initial status", func(in *CreateInput) { in.Status = StatusApproved }, "status", []string{"recommended"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rec := newTestService(t)
			in := validInput()
			tt.edit(&in)
			_, err := svc.Create(context.Background(), in)

			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.valid, ve.Valid)
			assert.Empty(t, rec.eventTypes())
		})
	}
}

func TestService_CreateExplicitRecommendedStatus(t *testing.T) {
	svc, _ := newTestService(t)
	in := validInput()
	in.Status = StatusRecommended
	_, err := svc.Create(context.Background(), in)
	assert.NoError(t, err)
}

func TestService_CreateUnknownMember(t *testing.T) {
	svc, _ := newTestService(t)
	in := validInput()
	in.MemberID = "m-404"
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = svc.CreateFromRecommendations(context.Background(), "m-404", nil)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestService_Lifecycle(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	iv, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	coach := "coach-sam"
	iv, err = svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: StatusApproved, AssignedTo: &coach})
	require.NoError(t, err)
	assert.Equal(t, "coach-sam", iv.AssignedTo)

	iv, err = svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: StatusExecuting})
	require.NoError(t, err)
	iv, err = svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: StatusCompleted})
	require.NoError(t, err)

	require.NotNil(t, iv.ExecutedAt)
	require.NotNil(t, iv.CompletedAt)
	assert.True(t, iv.CompletedAt.After(*iv.ExecutedAt))
	assert.Equal(t, "coach-sam", iv.AssignedTo, "unset fields are preserved")

	_, err = svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: StatusApproved})
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusCompleted, te.Current)
	assert.Empty(t, te.Allowed)

	stored, err := svc.Get(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	assert.Equal(t, []string{
		event.TypeInterventionCreated,
		event.TypeInterventionTransitioned,
		event.TypeInterventionTransitioned,
		event.TypeInterventionTransitioned,
	}, rec.eventTypes())
}

func TestService_UpdateStatusErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, uuid.New(), StatusUpdate{Status: StatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateStatus(ctx, uuid.New(), StatusUpdate{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation, "status is validated before the lookup")

	iv, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: StatusCompleted})
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []Status{StatusApproved, StatusDismissed}, te.Allowed)
}

func TestService_ConcurrentTransitionsApplyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	iv, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStatus(ctx, iv.ID, StatusUpdate{Status: StatusApproved})
			mu.Lock()
			defer mu.Unlock()
			var te *TransitionError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &te):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Empty(t, svc.locks, "locks are released")
}

func TestService_CreateFromRecommendations(t *testing.T) {
	svc, rec := newTestService(t)
	recs := []types.Recommendation{
		{Type: types.InterventionEmail, Title: "Payment recovery email", Priority: types.PriorityUrgent},
		{Type: types.InterventionCall, Title: "Personal phone call", Priority: types.PriorityUrgent},
	}
	out, err := svc.CreateFromRecommendations(context.Background(), "m-1", recs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i, iv := range out {
		assert.Equal(t, recs[i].Title, iv.Title)
		assert.Equal(t, StatusRecommended, iv.Status)
	}
	assert.Len(t, rec.eventTypes(), 2)

	list, err := svc.List(context.Background(), Filter{MemberID: "m-1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("m-1", "approved", "high")
	require.NoError(t, err)
	assert.Equal(t, Filter{MemberID: "m-1", Status: StatusApproved, Priority: types.PriorityHigh}, f)

	_, err = ParseFilter("", "archived", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"recommended", "approved", "executing", "completed", "dismissed", "failed"}, ve.Valid)

	_, err = ParseFilter("", "", "asap")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "priority", ve.Field)
}
