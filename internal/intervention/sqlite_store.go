package intervention

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/matthewbaird/retention/internal/types"
)

const table = "interventions"

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var columns = []string{
	"id", "member_id", "type", "title", "description", "priority",
	"estimated_impact", "status", "assigned_to", "notes",
	"created_at", "updated_at", "executed_at", "completed_at",
}

// SQLiteStore implements Repository on a SQLite database. Queries are built
// with ent's dialect-aware SQL builder and run on the shared *sql.DB.
type SQLiteStore struct {
	db *sql.DB
	sb *entsql.DialectBuilder
}

// NewSQLiteStore creates a store over db. Call CreateTable before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, sb: entsql.Dialect(dialect.SQLite)}
}

// CreateTable creates the interventions table and its member index.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS interventions (
			id               TEXT NOT NULL PRIMARY KEY,
			member_id        TEXT NOT NULL,
			type             TEXT NOT NULL,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL,
			priority         TEXT NOT NULL,
			estimated_impact TEXT NOT NULL,
			status           TEXT NOT NULL,
			assigned_to      TEXT NOT NULL,
			notes            TEXT NOT NULL,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL,
			executed_at      TEXT,
			completed_at     TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_interventions_member_created
			ON interventions (member_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating %s table: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, iv Intervention) error {
	query, args := s.sb.Insert(table).
		Columns(columns...).
		Values(
			iv.ID.String(), iv.MemberID, string(iv.Type), iv.Title, iv.Description, string(iv.Priority),
			iv.EstimatedImpact, string(iv.Status), iv.AssignedTo, iv.Notes,
			formatTime(iv.CreatedAt), formatTime(iv.UpdatedAt), nullTime(iv.ExecutedAt), nullTime(iv.CompletedAt),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting intervention: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (Intervention, error) {
	query, args := s.sb.Select(columns...).
		From(s.sb.Table(table)).
		Where(entsql.EQ("id", id.String())).
		Query()
	iv, err := scanIntervention(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Intervention{}, ErrNotFound
	}
	if err != nil {
		return Intervention{}, fmt.Errorf("loading intervention %s: %w", id, err)
	}
	return iv, nil
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Intervention, error) {
	sel := s.sb.Select(columns...).From(s.sb.Table(table))
	var preds []*entsql.Predicate
	if f.MemberID != "" {
		preds = append(preds, entsql.EQ("member_id", f.MemberID))
	}
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	if f.Priority != "" {
		preds = append(preds, entsql.EQ("priority", string(f.Priority)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing interventions: %w", err)
	}
	defer rows.Close()

	out := make([]Intervention, 0)
	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning intervention: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, iv Intervention) error {
	query, args := s.sb.Update(table).
		Set("status", string(iv.Status)).
		Set("assigned_to", iv.AssignedTo).
		Set("notes", iv.Notes).
		Set("updated_at", formatTime(iv.UpdatedAt)).
		Set("executed_at", nullTime(iv.ExecutedAt)).
		Set("completed_at", nullTime(iv.CompletedAt)).
		Where(entsql.EQ("id", iv.ID.String())).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating intervention %s: %w", iv.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating intervention %s: %w", iv.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntervention(r rowScanner) (Intervention, error) {
	var (
		iv                    Intervention
		id, typ, prio, status string
		created, updated      string
		executed, completed   sql.NullString
	)
	err := r.Scan(
		&id, &iv.MemberID, &typ, &iv.Title, &iv.Description, &prio,
		&iv.EstimatedImpact, &status, &iv.AssignedTo, &iv.Notes,
		&created, &updated, &executed, &completed,
	)
	if err != nil {
		return Intervention{}, err
	}
	if iv.ID, err = uuid.Parse(id); err != nil {
		return Intervention{}, fmt.Errorf("parsing id %q: %w", id, err)
	}
	iv.Type = types.InterventionType(typ)
	iv.Priority = types.Priority(prio)
	iv.Status = Status(status)
	if iv.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Intervention{}, err
	}
	if iv.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Intervention{}, err
	}
	if iv.ExecutedAt, err = parseNullTime(executed); err != nil {
		return Intervention{}, err
	}
	if iv.CompletedAt, err = parseNullTime(completed); err != nil {
		return Intervention{}, err
	}
	return iv, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
