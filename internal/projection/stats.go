package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
	"github.com/yungbote/snackfleet-backend/internal/stream"
)

// PurchaseScanner answers the authoritative full scan a counter activates
// from. Satisfied by repos.PurchaseRepo.
type PurchaseScanner interface {
	TotalsForSnack(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (count int64, amount int64, err error)
}

// SnackMachineCounter counts machines currently carrying a snack. Satisfied
// by repos.MachineRepo.
type SnackMachineCounter interface {
	MachineCountForSnack(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (int, error)
}

// SnackStatStore is the durable counter row store. Satisfied by
// repos.SnackStatRepo.
type SnackStatStore interface {
	Upsert(ctx context.Context, tx *gorm.DB, stat *domain.SnackStat) error
}

type StatsAggregatorDeps struct {
	Log       *logger.Logger
	Purchases PurchaseScanner
	Machines  SnackMachineCounter
	Stats     SnackStatStore
}

// StatsAggregator maintains per-snack purchase counters from broadcast
// events. Accumulated deltas alone would drift under missed events, so a
// counter is recomputed from a full store scan on first touch after start or
// after invalidation, and only then maintained incrementally.
type StatsAggregator struct {
	deps StatsAggregatorDeps

	mu     sync.Mutex
	active map[uuid.UUID]*domain.SnackStat
}

func NewStatsAggregator(deps StatsAggregatorDeps) *StatsAggregator {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "SnackStatsAggregator")
	return &StatsAggregator{
		deps:   deps,
		active: map[uuid.UUID]*domain.SnackStat{},
	}
}

// Run consumes both broadcast streams until ctx is done, swallowing
// per-event failures.
func (a *StatsAggregator) Run(ctx context.Context, bus stream.Bus, from map[string]stream.Token) error {
	chans := make([]<-chan stream.Delivery, 0, 2)
	for _, ns := range []string{stream.NamespaceMachine, stream.NamespaceSnack} {
		ch, err := bus.Subscribe(ctx, stream.Broadcast(ns), from[ns])
		if err != nil {
			return err
		}
		chans = append(chans, ch)
	}
	done := make(chan struct{}, len(chans))
	for _, ch := range chans {
		go func(ch <-chan stream.Delivery) {
			for d := range ch {
				if err := a.HandleEvent(ctx, d.Event); err != nil {
					a.deps.Log.Warn("stats apply failed",
						"kind", d.Event.Kind,
						"aggregate_id", d.Event.AggregateID,
						"error", err)
				}
			}
			done <- struct{}{}
		}(ch)
	}
	for range chans {
		<-done
	}
	return ctx.Err()
}

func (a *StatsAggregator) HandleEvent(ctx context.Context, evt domain.Event) error {
	switch evt.Kind {
	case domain.EvtMachineSnackBought:
		if evt.SnackID == nil || evt.BoughtPrice == nil {
			return nil
		}
		return a.applyPurchase(ctx, evt)
	case domain.EvtMachineSnacksLoaded:
		if evt.Slot == nil || evt.Slot.Pile == nil {
			return nil
		}
		return a.refreshMachineCount(ctx, evt.Slot.Pile.SnackID)
	case domain.EvtMachineSnacksUnloaded:
		// The cleared slot no longer says which snack left it; drop every
		// live counter and recompute lazily on next touch.
		a.InvalidateAll()
		return nil
	case domain.EvtSnackDeleted:
		a.Invalidate(evt.AggregateID)
		return nil
	default:
		return nil
	}
}

func (a *StatsAggregator) applyPurchase(ctx context.Context, evt domain.Event) error {
	snackID := *evt.SnackID
	stat, freshlyActivated, err := a.activate(ctx, snackID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if !freshlyActivated {
		// An activation scan already counts the purchase that triggered it;
		// increments only apply once the counter is live.
		stat.BoughtCount++
		stat.BoughtAmount += *evt.BoughtPrice
	}
	stat.UpdatedAt = evt.OperatedAt
	row := *stat
	a.mu.Unlock()

	return a.deps.Stats.Upsert(ctx, nil, &row)
}

// activate returns the live counter for snackID, recomputing it from the
// durable store when no trusted value exists.
func (a *StatsAggregator) activate(ctx context.Context, snackID uuid.UUID) (*domain.SnackStat, bool, error) {
	a.mu.Lock()
	if stat, ok := a.active[snackID]; ok {
		a.mu.Unlock()
		return stat, false, nil
	}
	a.mu.Unlock()

	count, amount, err := a.deps.Purchases.TotalsForSnack(ctx, nil, snackID)
	if err != nil {
		return nil, false, err
	}
	machines, err := a.deps.Machines.MachineCountForSnack(ctx, nil, snackID)
	if err != nil {
		return nil, false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if stat, ok := a.active[snackID]; ok {
		return stat, false, nil
	}
	stat := &domain.SnackStat{
		SnackID:      snackID,
		BoughtCount:  count,
		BoughtAmount: amount,
		MachineCount: machines,
	}
	a.active[snackID] = stat
	return stat, true, nil
}

func (a *StatsAggregator) refreshMachineCount(ctx context.Context, snackID uuid.UUID) error {
	stat, _, err := a.activate(ctx, snackID)
	if err != nil {
		return err
	}
	machines, err := a.deps.Machines.MachineCountForSnack(ctx, nil, snackID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	stat.MachineCount = machines
	row := *stat
	a.mu.Unlock()
	return a.deps.Stats.Upsert(ctx, nil, &row)
}

func (a *StatsAggregator) Invalidate(snackID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, snackID)
}

func (a *StatsAggregator) InvalidateAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = map[uuid.UUID]*domain.SnackStat{}
}
