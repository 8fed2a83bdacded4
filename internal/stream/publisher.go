package stream

import (
	"context"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// Publisher fans one event out to its per-aggregate stream and the
// fleet-wide broadcast stream for its namespace.
type Publisher struct {
	bus Bus
	log *logger.Logger
}

func NewPublisher(bus Bus, baseLog *logger.Logger) *Publisher {
	return &Publisher{bus: bus, log: baseLog.With("service", "StreamPublisher")}
}

func (p *Publisher) Publish(ctx context.Context, evt domain.Event) error {
	ns := NamespaceOf(evt)
	if err := p.bus.Publish(ctx, PerAggregate(ns, evt.AggregateID), evt); err != nil {
		return err
	}
	return p.bus.Publish(ctx, Broadcast(ns), evt)
}

// PublishBestEffort logs and swallows publish failures. Used where a durable
// commit already happened and the projections will self-heal via rebuild.
func (p *Publisher) PublishBestEffort(ctx context.Context, evt domain.Event) {
	if err := p.Publish(ctx, evt); err != nil {
		p.log.Warn("event publish failed",
			"kind", evt.Kind,
			"aggregate_id", evt.AggregateID,
			"version", evt.Version,
			"trace_id", evt.TraceID,
			"error", err)
	}
}
