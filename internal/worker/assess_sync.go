// Package worker contains event consumers that keep derived state current.
package worker

import (
	"context"
	"fmt"

	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/logger"
	"github.com/matthewbaird/retention/internal/snapshot"
)

// Assessor runs a batch assessment against the current snapshot.
type Assessor interface {
	Run(ctx context.Context) (snapshot.RunResult, error)
}

// AssessSyncWorker re-runs assessments whenever a new snapshot is loaded, so
// stored assessments never describe a replaced snapshot for long.
type AssessSyncWorker struct {
	assessor Assessor
	log      *logger.Logger
}

// NewAssessSyncWorker creates a new assessment sync worker.
func NewAssessSyncWorker(a Assessor, log *logger.Logger) *AssessSyncWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &AssessSyncWorker{assessor: a, log: log}
}

// HandleEvent runs assessments for snapshot_replaced events and ignores the rest.
func (w *AssessSyncWorker) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.TypeSnapshotReplaced {
		return nil
	}
	w.log.Debug("assess_sync: snapshot replaced, running assessments", "event_id", evt.ID)
	res, err := w.assessor.Run(ctx)
	if err != nil {
		return fmt.Errorf("assess_sync: %w", err)
	}
	w.log.Info("assess_sync: assessments refreshed",
		"members", len(res.Assessments), "gym_health", res.GymHealth.Overall)
	return nil
}
