package intervention

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/retention/internal/types"
)

func openSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "interventions.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewSQLiteStore(db)
	require.NoError(t, s.CreateTable(context.Background()))
	require.NoError(t, s.CreateTable(context.Background()), "CreateTable is idempotent")
	return s
}

func TestSQLiteStore_CreateTable(t *testing.T) {
	s := openSQLiteStore(t)

	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_interventions_member_created'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.db.Exec(`INSERT INTO interventions (id) VALUES ('x')`)
	assert.Error(t, err, "required columns are NOT NULL")
}

func forEachRepo(t *testing.T, fn func(t *testing.T, r Repository)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLiteStore(t)) })
}

func seeded(memberID string, prio types.Priority, offset time.Duration) Intervention {
	iv := FromRecommendation(memberID, types.Recommendation{
		Type: types.InterventionEmail, Title: "Re-engagement email", Description: "Send a note",
		Priority: prio, EstimatedImpact: "10-15%",
	}, t0.Add(offset))
	return iv
}

func TestRepository_CreateGetUpdate(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		iv := seeded("m-1", types.PriorityHigh, 0)
		iv.Notes = "first contact"
		require.NoError(t, r.Create(ctx, iv))

		got, err := r.Get(ctx, iv.ID)
		require.NoError(t, err)
		assert.Equal(t, iv, got)

		require.NoError(t, Transition(&got, StatusApproved, t0.Add(time.Hour)))
		require.NoError(t, Transition(&got, StatusExecuting, t0.Add(2*time.Hour)))
		got.AssignedTo = "coach-sam"
		require.NoError(t, r.Update(ctx, got))

		again, err := r.Get(ctx, iv.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusExecuting, again.Status)
		assert.Equal(t, "coach-sam", again.AssignedTo)
		require.NotNil(t, again.ExecutedAt)
		assert.True(t, again.ExecutedAt.Equal(t0.Add(2*time.Hour)))
		assert.Nil(t, again.CompletedAt)
	})
}

func TestRepository_NotFound(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		_, err := r.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, r.Update(ctx, seeded("m-1", types.PriorityLow, 0)), ErrNotFound)
	})
}

func TestRepository_DuplicateCreate(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		iv := seeded("m-1", types.PriorityLow, 0)
		require.NoError(t, r.Create(ctx, iv))
		assert.Error(t, r.Create(ctx, iv))
	})
}

func TestRepository_ListFiltersAndOrder(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		a := seeded("m-1", types.PriorityHigh, 2*time.Minute)
		b := seeded("m-1", types.PriorityLow, time.Minute)
		c := seeded("m-2", types.PriorityHigh, 3*time.Minute)
		c.Status = StatusDismissed
		for _, iv := range []Intervention{a, b, c} {
			require.NoError(t, r.Create(ctx, iv))
		}

		ids := func(list []Intervention) []uuid.UUID {
			out := make([]uuid.UUID, len(list))
			for i, iv := range list {
				out[i] = iv.ID
			}
			return out
		}

		all, err := r.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID, a.ID, c.ID}, ids(all))

		byMember, err := r.List(ctx, Filter{MemberID: "m-1"})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID, a.ID}, ids(byMember))

		byStatus, err := r.List(ctx, Filter{Status: StatusDismissed})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c.ID}, ids(byStatus))

		both, err := r.List(ctx, Filter{MemberID: "m-1", Priority: types.PriorityHigh})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, ids(both))

		none, err := r.List(ctx, Filter{MemberID: "nobody"})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	iv := seeded("m-1", types.PriorityLow, 0)
	executed := t0
	iv.ExecutedAt = &executed
	require.NoError(t, s.Create(ctx, iv))

	got, err := s.Get(ctx, iv.ID)
	require.NoError(t, err)
	*got.ExecutedAt = t0.Add(time.Hour)

	again, err := s.Get(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, t0, *again.ExecutedAt)
}
