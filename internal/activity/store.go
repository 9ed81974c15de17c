package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matthewbaird/retention/internal/types"
)

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries writes one or more activity entries (one event, many entries).
	WriteEntries(ctx context.Context, entries []types.ActivityEntry) error

	// QueryByEntity returns activity entries for one entity, newest first.
	// totalCount ignores the cursor and limit.
	QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) (entries []types.ActivityEntry, nextCursor string, totalCount int, err error)

	// Search performs a case-insensitive substring search across summaries.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []types.ActivityEntry, totalCount int, err error)
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `event_id, event_type, occurred_at, indexed_entity_type, indexed_entity_id,
	entity_role, source_refs, summary, category, weight, polarity, payload`

// SQLiteStore implements Store on the service's SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the activity_entries table and its indexes.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activity_entries (
			event_id            TEXT NOT NULL,
			event_type          TEXT NOT NULL,
			occurred_at         TEXT NOT NULL,
			indexed_entity_type TEXT NOT NULL,
			indexed_entity_id   TEXT NOT NULL,
			entity_role         TEXT NOT NULL,
			source_refs         TEXT NOT NULL DEFAULT '[]',
			summary             TEXT NOT NULL,
			category            TEXT NOT NULL,
			weight              TEXT NOT NULL,
			polarity            TEXT NOT NULL,
			payload             TEXT,
			PRIMARY KEY (indexed_entity_type, indexed_entity_id, occurred_at, event_id)
		);

		CREATE INDEX IF NOT EXISTS idx_activity_entity_category_time
			ON activity_entries (indexed_entity_type, indexed_entity_id, category, occurred_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating activity_entries: %w", err)
	}
	return nil
}

// WriteEntries inserts activity entries in one statement. Duplicates are ignored.
func (s *SQLiteStore) WriteEntries(ctx context.Context, entries []types.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT OR IGNORE INTO activity_entries (` + selectColumns + `) VALUES `)
	args := make([]any, 0, len(entries)*12)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")

		refs, err := json.Marshal(e.SourceRefs)
		if err != nil {
			return fmt.Errorf("encoding source refs: %w", err)
		}
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		args = append(args,
			e.EventID, e.EventType, e.OccurredAt.UTC().Format(timeLayout), e.IndexedEntityType, e.IndexedEntityID,
			e.EntityRole, string(refs), e.Summary, e.Category, e.Weight, e.Polarity, payload,
		)
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("writing activity entries: %w", err)
	}
	return nil
}

// QueryByEntity returns activity entries for one entity with filtering and pagination.
func (s *SQLiteStore) QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	limit := clampLimit(opts.Limit, 100, 500)

	conditions := []string{"indexed_entity_type = ?", "indexed_entity_id = ?"}
	args := []any{entityType, entityID}

	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	if opts.Until != nil {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, opts.Until.UTC().Format(timeLayout))
	}
	if len(opts.Categories) > 0 {
		conditions = append(conditions, "category IN ("+placeholders(len(opts.Categories))+")")
		for _, c := range opts.Categories {
			args = append(args, c)
		}
	}
	if opts.MinWeight != "" && opts.MinWeight != "info" {
		weights := weightsFrom(opts.MinWeight)
		conditions = append(conditions, "weight IN ("+placeholders(len(weights))+")")
		for _, w := range weights {
			args = append(args, w)
		}
	}

	where := strings.Join(conditions, " AND ")
	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_entries WHERE "+where, args...).Scan(&totalCount); err != nil {
		return nil, "", 0, fmt.Errorf("counting activity entries: %w", err)
	}

	if opts.Cursor != "" {
		if t, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			where += " AND occurred_at < ?"
			args = append(args, t.UTC().Format(timeLayout))
		}
	}
	query := "SELECT " + selectColumns + " FROM activity_entries WHERE " + where +
		" ORDER BY occurred_at DESC, event_id LIMIT ?"
	args = append(args, limit+1) // one extra to detect another page

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, "", 0, err
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return entries, nextCursor, totalCount, nil
}

// Search performs a case-insensitive substring search across summaries.
func (s *SQLiteStore) Search(ctx context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	limit := clampLimit(opts.Limit, 20, 0)

	conditions := []string{"summary LIKE '%' || ? || '%'"}
	args := []any{query}
	if opts.EntityType != "" {
		conditions = append(conditions, "indexed_entity_type = ?")
		args = append(args, opts.EntityType)
	}
	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	if len(opts.Categories) > 0 {
		conditions = append(conditions, "category IN ("+placeholders(len(opts.Categories))+")")
		for _, c := range opts.Categories {
			args = append(args, c)
		}
	}

	where := strings.Join(conditions, " AND ")
	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_entries WHERE "+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("counting search results: %w", err)
	}

	entries, err := s.queryEntries(ctx,
		"SELECT "+selectColumns+" FROM activity_entries WHERE "+where+" ORDER BY occurred_at DESC, event_id LIMIT ?",
		append(args, limit)...)
	if err != nil {
		return nil, 0, err
	}
	return entries, totalCount, nil
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]types.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]types.ActivityEntry, 0)
	for rows.Next() {
		var (
			e        types.ActivityEntry
			occurred string
			refs     string
			payload  sql.NullString
		)
		err := rows.Scan(
			&e.EventID, &e.EventType, &occurred, &e.IndexedEntityType, &e.IndexedEntityID,
			&e.EntityRole, &refs, &e.Summary, &e.Category, &e.Weight, &e.Polarity, &payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		if e.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, fmt.Errorf("parsing occurred_at %q: %w", occurred, err)
		}
		if refs != "" {
			if err := json.Unmarshal([]byte(refs), &e.SourceRefs); err != nil {
				return nil, fmt.Errorf("decoding source_refs of event %s: %w", e.EventID, err)
			}
		}
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
