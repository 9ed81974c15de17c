// Package activity stores the per-entity activity trail derived from domain
// events: every intervention change and notable assessment outcome for a
// member can be replayed newest first.
package activity

import "time"

// QueryOptions controls filtering and pagination for entity activity queries.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	Categories []string // "intervention", "assessment", "snapshot"
	MinWeight  string   // minimum weight, default "info"
	Limit      int      // default 100, max 500
	Cursor     string   // occurred_at of the last entry of the previous page
}

// SearchOptions controls filtering for full-text activity search.
type SearchOptions struct {
	EntityType string
	Since      *time.Time
	Categories []string
	Limit      int // default 20
}

// DefaultQueryOptions returns QueryOptions covering the last six months.
func DefaultQueryOptions() QueryOptions {
	sixMonthsAgo := time.Now().AddDate(0, -6, 0)
	return QueryOptions{
		Since:     &sixMonthsAgo,
		MinWeight: "info",
		Limit:     100,
	}
}

// DefaultSearchOptions returns SearchOptions with sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: 20}
}

// weightOrder maps event weights to severity, higher is more severe.
var weightOrder = map[string]int{
	"info":     1,
	"minor":    2,
	"major":    3,
	"critical": 4,
}

// AtLeastWeight reports whether weight is at least as severe as min.
// Unknown weights rank below info.
func AtLeastWeight(weight, min string) bool {
	return weightOrder[weight] >= weightOrder[min]
}

// weightsFrom returns every known weight at least as severe as min.
func weightsFrom(min string) []string {
	var out []string
	for _, w := range []string{"info", "minor", "major", "critical"} {
		if AtLeastWeight(w, min) {
			out = append(out, w)
		}
	}
	return out
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 || (max > 0 && limit > max) {
		return def
	}
	return limit
}
