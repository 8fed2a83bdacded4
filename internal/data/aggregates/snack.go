package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/data/repos"
	"github.com/yungbote/snackfleet-backend/internal/domain"
)

type SnackDeps struct {
	Base BaseDeps

	Snacks    repos.SnackRepo
	Events    repos.EventRepo
	Publisher EventPublisher
}

type snackExecutor struct {
	deps SnackDeps
}

func NewSnackExecutor(deps SnackDeps) Executor {
	deps.Base = deps.Base.withDefaults()
	return &snackExecutor{deps: deps}
}

func (e *snackExecutor) Execute(ctx context.Context, id uuid.UUID, cmd domain.Command) (domain.Event, error) {
	op := string(cmd.Kind)

	s, err := e.deps.Snacks.LoadAggregate(ctx, nil, id)
	if err != nil {
		if !domain.IsCode(err, domain.CodeNotFound) {
			return domain.Event{}, MapError(op, err)
		}
		s = domain.NewSnack(id)
	}

	// Uniqueness among non-deleted snacks cannot be checked inside the
	// aggregate; this pre-check is the accepted eventual-consistency gap
	// (concurrent creates with the same name can both pass it).
	if cmd.Kind == domain.CmdInitializeSnack || cmd.Kind == domain.CmdUpdateSnack {
		inUse, nameErr := e.deps.Snacks.NameInUse(ctx, nil, cmd.Name, id)
		if nameErr != nil {
			return domain.Event{}, MapError(op, nameErr)
		}
		if inUse {
			mapped := domain.NewValidationError(op, []string{"snack name is already in use"})
			e.publishFailure(ctx, id, s.Version, cmd.Op, mapped)
			return domain.Event{}, mapped
		}
	}

	next := s.Clone()
	evt, cmdErr := next.Execute(cmd)
	if cmdErr != nil {
		mapped := MapError(op, cmdErr)
		e.publishFailure(ctx, id, s.Version, cmd.Op, mapped)
		return domain.Event{}, mapped
	}

	expected := s.Version
	err = executeWrite(ctx, e.deps.Base, op, func(wc WriteCtx) error {
		if err := e.deps.Events.Append(wc.Ctx, wc.Tx, evt); err != nil {
			return err
		}
		return e.deps.Snacks.SaveAggregate(wc.Ctx, wc.Tx, next, expected)
	})
	if err != nil {
		e.publishFailure(ctx, id, s.Version, cmd.Op, err)
		return domain.Event{}, err
	}

	if pubErr := e.deps.Publisher.Publish(ctx, evt); pubErr != nil {
		e.deps.Base.Log.Warn("event publish failed after commit",
			"snack_id", id, "kind", evt.Kind, "version", evt.Version, "error", pubErr)
	}
	return evt, nil
}

func (e *snackExecutor) publishFailure(ctx context.Context, id uuid.UUID, version int, op domain.Operation, cause error) {
	evt := domain.NewErrorEvent(domain.EvtSnackCommandFailed, id, version, op, domain.CodeOf(cause), domain.ReasonsOf(cause))
	if err := e.deps.Publisher.Publish(ctx, evt); err != nil {
		e.deps.Base.Log.Warn("error event publish failed", "snack_id", id, "error", err)
	}
}
