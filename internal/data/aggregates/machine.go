package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/data/repos"
	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// EventPublisher is the stream fan-out the executors hand accepted and
// rejected events to.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

type MachineDeps struct {
	Base BaseDeps

	Machines  repos.MachineRepo
	Events    repos.EventRepo
	Purchases repos.PurchaseRepo
	Publisher EventPublisher
}

type machineExecutor struct {
	deps MachineDeps
}

// NewMachineExecutor builds the machine command executor. It expects to run
// behind an Arena so that command execution per machine id is serialized.
func NewMachineExecutor(deps MachineDeps) Executor {
	deps.Base = deps.Base.withDefaults()
	return &machineExecutor{deps: deps}
}

func (e *machineExecutor) Execute(ctx context.Context, id uuid.UUID, cmd domain.Command) (domain.Event, error) {
	op := string(cmd.Kind)
	log := e.deps.Base.Log.With("machine_id", id, "op", op, "trace_id", cmd.Op.TraceID)

	m, err := e.deps.Machines.LoadAggregate(ctx, nil, id)
	if err != nil {
		if !domain.IsCode(err, domain.CodeNotFound) {
			return domain.Event{}, MapError(op, err)
		}
		m = domain.NewMachine(id)
	}

	// Apply to a copy; the pre-command state stays untouched until the write
	// below commits.
	next := m.Clone()
	evt, cmdErr := next.Execute(cmd)
	if cmdErr != nil {
		mapped := MapError(op, cmdErr)
		e.publishFailure(ctx, id, m.Version, cmd.Op, mapped)
		return domain.Event{}, mapped
	}

	expected := m.Version
	err = executeWrite(ctx, e.deps.Base, op, func(wc WriteCtx) error {
		if err := e.deps.Events.Append(wc.Ctx, wc.Tx, evt); err != nil {
			return err
		}
		return e.deps.Machines.SaveAggregate(wc.Ctx, wc.Tx, next, expected)
	})
	if err != nil {
		e.publishFailure(ctx, id, m.Version, cmd.Op, err)
		return domain.Event{}, err
	}

	if evt.Kind == domain.EvtMachineSnackBought {
		e.recordPurchase(ctx, cmd, evt, log)
	}

	if pubErr := e.deps.Publisher.Publish(ctx, evt); pubErr != nil {
		log.Warn("event publish failed after commit", "kind", evt.Kind, "version", evt.Version, "error", pubErr)
	}
	return evt, nil
}

// recordPurchase is a best-effort side effect: a failure here does not undo
// the sale.
func (e *machineExecutor) recordPurchase(ctx context.Context, cmd domain.Command, evt domain.Event, log *logger.Logger) {
	if evt.SnackID == nil || evt.BoughtPrice == nil {
		return
	}
	p := &domain.Purchase{
		MachineID:   evt.AggregateID,
		Position:    cmd.Position,
		SnackID:     *evt.SnackID,
		BoughtPrice: *evt.BoughtPrice,
		BoughtAt:    evt.OperatedAt,
		BoughtBy:    evt.OperatedBy,
	}
	if err := e.deps.Purchases.Create(ctx, nil, p); err != nil {
		log.Warn("purchase record failed", "snack_id", p.SnackID, "error", err)
	}
}

func (e *machineExecutor) publishFailure(ctx context.Context, id uuid.UUID, version int, op domain.Operation, cause error) {
	evt := domain.NewErrorEvent(domain.EvtMachineCommandFailed, id, version, op, domain.CodeOf(cause), domain.ReasonsOf(cause))
	if err := e.deps.Publisher.Publish(ctx, evt); err != nil {
		e.deps.Base.Log.Warn("error event publish failed", "machine_id", id, "error", err)
	}
}
