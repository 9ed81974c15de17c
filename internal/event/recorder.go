// Package event defines the domain events of the retention service and the
// recorder that turns them into a per-entity activity trail before handing
// them to the event bus.
package event

import (
	"context"
	"errors"

	"github.com/matthewbaird/retention/internal/activity"
	"github.com/matthewbaird/retention/internal/types"
)

// Recorder persists domain events.
type Recorder interface {
	Record(ctx context.Context, evts ...DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, ...DomainEvent) error { return nil }

// ActivityRecorder writes each event to an activity.Store, one entry per
// affected entity, and then publishes it when a Publisher is attached.
// Events whose write failed are not published.
type ActivityRecorder struct {
	store activity.Store
	bus   Publisher
}

// NewActivityRecorder returns a recorder over store. bus may be nil.
func NewActivityRecorder(store activity.Store, bus Publisher) *ActivityRecorder {
	return &ActivityRecorder{store: store, bus: bus}
}

func (r *ActivityRecorder) Record(ctx context.Context, evts ...DomainEvent) error {
	var errs []error
	for _, evt := range evts {
		if err := r.store.WriteEntries(ctx, Entries(evt)); err != nil {
			errs = append(errs, err)
			continue
		}
		if r.bus != nil {
			r.bus.Publish(ctx, evt)
		}
	}
	return errors.Join(errs...)
}

// Entries fans evt out into one activity entry per affected entity.
func Entries(evt DomainEvent) []types.ActivityEntry {
	entries := make([]types.ActivityEntry, 0, len(evt.AffectedEntities))
	for _, ref := range evt.AffectedEntities {
		entries = append(entries, types.ActivityEntry{
			EventID:           evt.ID,
			EventType:         evt.EventType,
			OccurredAt:        evt.OccurredAt,
			IndexedEntityType: ref.EntityType,
			IndexedEntityID:   ref.EntityID,
			EntityRole:        ref.Role,
			SourceRefs:        evt.AffectedEntities,
			Summary:           evt.Summary,
			Category:          evt.Category,
			Weight:            evt.Weight,
			Polarity:          evt.Polarity,
			Payload:           evt.Payload,
		})
	}
	return entries
}
