package eventbus

import (
	"context"

	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/logger"
)

// LogConsumer writes every domain event to the structured log.
type LogConsumer struct {
	log *logger.Logger
}

func NewLogConsumer(log *logger.Logger) *LogConsumer { return &LogConsumer{log: log} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	entities := make([]string, len(evt.AffectedEntities))
	for i, ref := range evt.AffectedEntities {
		entities[i] = ref.EntityType + ":" + ref.EntityID
	}
	kv := []interface{}{
		"event_type", evt.EventType,
		"category", evt.Category,
		"weight", evt.Weight,
		"entities", entities,
	}
	if evt.Weight == "critical" || evt.Weight == "major" {
		c.log.Info(evt.Summary, kv...)
	} else {
		c.log.Debug(evt.Summary, kv...)
	}
	return nil
}
