package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/matthewbaird/retention/internal/snapshot"
	"github.com/matthewbaird/retention/internal/types"
)

// SnapshotHandler loads and describes the current snapshot.
type SnapshotHandler struct {
	runner *snapshot.Runner
}

func NewSnapshotHandler(runner *snapshot.Runner) *SnapshotHandler {
	return &SnapshotHandler{runner: runner}
}

type snapshotSummary struct {
	Now           time.Time `json:"now"`
	Members       int       `json:"members"`
	Plans         int       `json:"plans"`
	Subscriptions int       `json:"subscriptions"`
	Invoices      int       `json:"invoices"`
	Transactions  int       `json:"transactions"`
	Bookings      int       `json:"bookings"`
	Assessed      int       `json:"assessed"`
}

func (h *SnapshotHandler) summary(snap *types.Snapshot) snapshotSummary {
	return snapshotSummary{
		Now:           snap.Now,
		Members:       len(snap.Members),
		Plans:         len(snap.Plans),
		Subscriptions: len(snap.Subscriptions),
		Invoices:      len(snap.Invoices),
		Transactions:  len(snap.Transactions),
		Bookings:      len(snap.Bookings),
		Assessed:      len(h.runner.Store().Assessments()),
	}
}

// PutSnapshot replaces the current snapshot.
// PUT /v1/snapshot
func (h *SnapshotHandler) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap types.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	if err := h.runner.Replace(r.Context(), &snap); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.summary(&snap))
}

// GetSnapshot returns counts for the current snapshot.
// GET /v1/snapshot
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.runner.Store().Current()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, "NO_SNAPSHOT", err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.summary(snap))
}
