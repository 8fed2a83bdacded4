package projection

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/snackfleet-backend/internal/data/repos"
	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
	"github.com/yungbote/snackfleet-backend/internal/stream"
)

// MachineReader re-reads the authoritative machine state. It is only called
// on the fallback (rebuild) path, never for incremental deltas.
type MachineReader interface {
	CurrentState(ctx context.Context, id uuid.UUID) (*domain.Machine, error)
}

// SnackReader re-reads the authoritative snack state on the fallback path.
type SnackReader interface {
	CurrentState(ctx context.Context, id uuid.UUID) (*domain.Snack, error)
}

const rebuildMaxAttempts = 3

type SynchronizerDeps struct {
	Log *logger.Logger

	Machines MachineReader
	Snacks   SnackReader

	MachineViews repos.MachineViewRepo
	SnackViews   repos.SnackViewRepo

	SnackInfo *SnackInfoCache

	// Backoff returns the wait before rebuild attempt n (1-based). Defaults
	// to linear `attempt` seconds.
	Backoff func(attempt int) time.Duration
}

// Synchronizer consumes broadcast events and keeps the read model in step.
// Incremental deltas are version-gated; any gap, duplicate past the gate, or
// missing row falls back to a full rebuild from the authoritative aggregate.
type Synchronizer struct {
	deps SynchronizerDeps
}

func NewSynchronizer(deps SynchronizerDeps) *Synchronizer {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "ProjectionSynchronizer")
	if deps.Backoff == nil {
		deps.Backoff = func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		}
	}
	return &Synchronizer{deps: deps}
}

// Run subscribes to both broadcast streams and applies events until ctx is
// done. Per-event failures are logged and swallowed; they self-heal on the
// next successfully processed event for the same aggregate.
func (s *Synchronizer) Run(ctx context.Context, bus stream.Bus, from map[string]stream.Token) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, ns := range []string{stream.NamespaceMachine, stream.NamespaceSnack} {
		ch, err := bus.Subscribe(ctx, stream.Broadcast(ns), from[ns])
		if err != nil {
			return err
		}
		g.Go(func() error {
			for d := range ch {
				if err := s.HandleEvent(ctx, d.Event); err != nil {
					s.deps.Log.Warn("projection apply failed",
						"kind", d.Event.Kind,
						"aggregate_id", d.Event.AggregateID,
						"version", d.Event.Version,
						"token", d.Token,
						"error", err)
				}
			}
			return ctx.Err()
		})
	}
	return g.Wait()
}

// HandleEvent routes one event to the projection for its aggregate type.
func (s *Synchronizer) HandleEvent(ctx context.Context, evt domain.Event) error {
	if evt.IsError() {
		return nil
	}
	switch stream.NamespaceOf(evt) {
	case stream.NamespaceSnack:
		return s.handleSnackEvent(ctx, evt)
	default:
		return s.handleMachineEvent(ctx, evt)
	}
}

func (s *Synchronizer) handleMachineEvent(ctx context.Context, evt domain.Event) error {
	view, err := s.deps.MachineViews.Get(ctx, nil, evt.AggregateID)
	switch {
	case domain.IsCode(err, domain.CodeNotFound):
		if !evt.IsInitialize() {
			return s.rebuildMachine(ctx, evt.AggregateID)
		}
		view = &domain.MachineView{ID: evt.AggregateID}
	case err != nil:
		return err
	case view.Version != evt.Version-1:
		// Duplicate delivery lands here too (row already at evt.Version);
		// the rebuild overwrites with an identical result.
		return s.rebuildMachine(ctx, evt.AggregateID)
	}

	switch evt.Kind {
	case domain.EvtMachineInitialized:
		if err := s.setMachineMoney(view, evt.MoneyInside); err != nil {
			return err
		}
		view.AmountInTransaction = deref(evt.AmountInTransaction)
		if err := s.setMachineSlots(ctx, view, evt.Slots); err != nil {
			return err
		}
		setMachineStats(view, evt.Stats)
	case domain.EvtMachineRemoved:
		return s.deps.MachineViews.Delete(ctx, nil, evt.AggregateID)
	case domain.EvtMachineMoneyLoaded, domain.EvtMachineMoneyUnloaded:
		if err := s.setMachineMoney(view, evt.MoneyInside); err != nil {
			return err
		}
	case domain.EvtMachineMoneyInserted, domain.EvtMachineMoneyReturned:
		if err := s.setMachineMoney(view, evt.MoneyInside); err != nil {
			return err
		}
		view.AmountInTransaction = deref(evt.AmountInTransaction)
	case domain.EvtMachineSnacksLoaded, domain.EvtMachineSnacksUnloaded:
		if err := s.applyMachineSlot(ctx, view, evt.Slot); err != nil {
			return err
		}
		setMachineStats(view, evt.Stats)
	case domain.EvtMachineSnackBought:
		if err := s.applyMachineSlot(ctx, view, evt.Slot); err != nil {
			return err
		}
		if err := s.setMachineMoney(view, evt.MoneyInside); err != nil {
			return err
		}
		view.AmountInTransaction = deref(evt.AmountInTransaction)
		setMachineStats(view, evt.Stats)
	default:
		s.deps.Log.Debug("ignoring unknown machine event kind", "kind", evt.Kind)
		return nil
	}

	view.Version = evt.Version
	view.UpdatedAt = evt.OperatedAt
	return s.deps.MachineViews.Upsert(ctx, nil, view)
}

func (s *Synchronizer) handleSnackEvent(ctx context.Context, evt domain.Event) error {
	// Whatever happens below, a snack change makes cached lookup data stale.
	if evt.Kind == domain.EvtSnackUpdated || evt.Kind == domain.EvtSnackDeleted {
		if s.deps.SnackInfo != nil {
			s.deps.SnackInfo.Invalidate(evt.AggregateID)
		}
	}

	view, err := s.deps.SnackViews.Get(ctx, nil, evt.AggregateID)
	switch {
	case domain.IsCode(err, domain.CodeNotFound):
		if !evt.IsInitialize() {
			return s.rebuildSnack(ctx, evt.AggregateID)
		}
		view = &domain.SnackView{ID: evt.AggregateID}
	case err != nil:
		return err
	case view.Version != evt.Version-1:
		return s.rebuildSnack(ctx, evt.AggregateID)
	}

	switch evt.Kind {
	case domain.EvtSnackInitialized, domain.EvtSnackUpdated:
		view.Name = deref(evt.Name)
		view.PictureURL = deref(evt.PictureURL)
	case domain.EvtSnackDeleted:
		return s.deps.SnackViews.Delete(ctx, nil, evt.AggregateID)
	default:
		s.deps.Log.Debug("ignoring unknown snack event kind", "kind", evt.Kind)
		return nil
	}

	view.Version = evt.Version
	view.UpdatedAt = evt.OperatedAt
	return s.deps.SnackViews.Upsert(ctx, nil, view)
}

// rebuildMachine discards incremental logic and overwrites the read row from
// the aggregate's current authoritative state, retrying on write conflicts
// with linear backoff. Non-conflict errors abort; a later event will correct
// the row.
func (s *Synchronizer) rebuildMachine(ctx context.Context, id uuid.UUID) error {
	return s.withRebuildRetry(ctx, func() error {
		m, err := s.deps.Machines.CurrentState(ctx, id)
		if domain.IsCode(err, domain.CodeNotFound) {
			return s.deps.MachineViews.Delete(ctx, nil, id)
		}
		if err != nil {
			return err
		}
		if m.IsDeleted {
			return s.deps.MachineViews.Delete(ctx, nil, id)
		}
		view := &domain.MachineView{ID: m.ID}
		money := m.MoneyInside
		if err := s.setMachineMoney(view, &money); err != nil {
			return err
		}
		view.AmountInTransaction = m.AmountInTransaction
		if err := s.setMachineSlots(ctx, view, m.SortedSlots()); err != nil {
			return err
		}
		stats := m.Stats
		setMachineStats(view, &stats)
		view.Version = m.Version
		view.UpdatedAt = m.LastModifiedAt
		return s.deps.MachineViews.Upsert(ctx, nil, view)
	})
}

func (s *Synchronizer) rebuildSnack(ctx context.Context, id uuid.UUID) error {
	return s.withRebuildRetry(ctx, func() error {
		snack, err := s.deps.Snacks.CurrentState(ctx, id)
		if domain.IsCode(err, domain.CodeNotFound) {
			return s.deps.SnackViews.Delete(ctx, nil, id)
		}
		if err != nil {
			return err
		}
		if snack.IsDeleted {
			return s.deps.SnackViews.Delete(ctx, nil, id)
		}
		view := &domain.SnackView{
			ID:         snack.ID,
			Name:       snack.Name,
			PictureURL: snack.PictureURL,
			Version:    snack.Version,
			UpdatedAt:  snack.LastModifiedAt,
		}
		return s.deps.SnackViews.Upsert(ctx, nil, view)
	})
}

func (s *Synchronizer) withRebuildRetry(ctx context.Context, rebuild func() error) error {
	var lastErr error
	for attempt := 1; attempt <= rebuildMaxAttempts; attempt++ {
		err := rebuild()
		if err == nil {
			return nil
		}
		if !domain.IsCode(err, domain.CodeConflict) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.deps.Backoff(attempt)):
		}
	}
	return lastErr
}

func (s *Synchronizer) setMachineMoney(view *domain.MachineView, money *domain.Money) error {
	if money == nil {
		return nil
	}
	raw, err := json.Marshal(*money)
	if err != nil {
		return err
	}
	view.MoneyInside = raw
	view.MoneyAmount = money.Amount()
	return nil
}

func (s *Synchronizer) setMachineSlots(ctx context.Context, view *domain.MachineView, slots []domain.Slot) error {
	entries := make([]domain.SlotView, 0, len(slots))
	for _, slot := range slots {
		entries = append(entries, s.slotView(ctx, slot))
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	view.Slots = raw
	return nil
}

// applyMachineSlot replaces a single position inside the denormalized slots
// JSON, keeping the rest of the entries untouched.
func (s *Synchronizer) applyMachineSlot(ctx context.Context, view *domain.MachineView, slot *domain.Slot) error {
	if slot == nil {
		return nil
	}
	var entries []domain.SlotView
	if len(view.Slots) > 0 {
		if err := json.Unmarshal(view.Slots, &entries); err != nil {
			return err
		}
	}
	next := s.slotView(ctx, *slot)
	replaced := false
	for i := range entries {
		if entries[i].Position == slot.Position {
			entries[i] = next
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, next)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	view.Slots = raw
	return nil
}

func (s *Synchronizer) slotView(ctx context.Context, slot domain.Slot) domain.SlotView {
	entry := domain.SlotView{Position: slot.Position}
	if slot.Pile == nil {
		return entry
	}
	id := slot.Pile.SnackID
	entry.SnackID = &id
	entry.Quantity = slot.Pile.Quantity
	entry.Price = slot.Pile.Price
	entry.Amount = slot.Pile.Amount()
	if s.deps.SnackInfo != nil {
		info, err := s.deps.SnackInfo.Get(ctx, id)
		if err != nil {
			s.deps.Log.Debug("snack info lookup failed", "snack_id", id, "error", err)
		} else {
			entry.SnackName = info.Name
		}
	}
	return entry
}

func setMachineStats(view *domain.MachineView, stats *domain.MachineStats) {
	if stats == nil {
		return
	}
	view.SlotCount = stats.SlotCount
	view.SnackCount = stats.SnackCount
	view.SnackQuantity = stats.SnackQuantity
	view.SnackAmount = stats.SnackAmount
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
