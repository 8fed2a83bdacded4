package aggregates

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
)

// memTxRunner runs the write closure without a real transaction so executor
// tests can use in-memory repos.
type memTxRunner struct{}

func (memTxRunner) InTx(ctx context.Context, fn func(wc WriteCtx) error) error {
	return fn(WriteCtx{Ctx: ctx})
}

type fakeMachineRepo struct {
	mu       sync.Mutex
	machines map[uuid.UUID]*domain.Machine
	saveErr  error
}

func newFakeMachineRepo() *fakeMachineRepo {
	return &fakeMachineRepo{machines: map[uuid.UUID]*domain.Machine{}}
}

func (r *fakeMachineRepo) LoadAggregate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "machine.load", "machine not found", nil)
	}
	return m.Clone(), nil
}

func (r *fakeMachineRepo) SaveAggregate(_ context.Context, _ *gorm.DB, m *domain.Machine, expectedVersion int) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current := 0
	if existing, ok := r.machines[m.ID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return domain.NewError(domain.CodeConflict, "machine.save", "version mismatch", nil)
	}
	r.machines[m.ID] = m.Clone()
	return nil
}

func (r *fakeMachineRepo) MachineCountForSnack(_ context.Context, _ *gorm.DB, snackID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.machines {
		for _, s := range m.Slots {
			if s.Pile != nil && s.Pile.SnackID == snackID && s.Pile.Quantity > 0 {
				count++
				break
			}
		}
	}
	return count, nil
}

type fakeSnackRepo struct {
	mu        sync.Mutex
	snacks    map[uuid.UUID]*domain.Snack
	nameInUse bool
}

func newFakeSnackRepo() *fakeSnackRepo {
	return &fakeSnackRepo{snacks: map[uuid.UUID]*domain.Snack{}}
}

func (r *fakeSnackRepo) LoadAggregate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.Snack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snacks[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "snack.load", "snack not found", nil)
	}
	return s.Clone(), nil
}

func (r *fakeSnackRepo) SaveAggregate(_ context.Context, _ *gorm.DB, s *domain.Snack, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := 0
	if existing, ok := r.snacks[s.ID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return domain.NewError(domain.CodeConflict, "snack.save", "version mismatch", nil)
	}
	r.snacks[s.ID] = s.Clone()
	return nil
}

func (r *fakeSnackRepo) NameInUse(_ context.Context, _ *gorm.DB, _ string, _ uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nameInUse, nil
}

type fakeEventRepo struct {
	mu        sync.Mutex
	appended  []domain.Event
	appendErr error
}

func (r *fakeEventRepo) Append(_ context.Context, _ *gorm.DB, evt domain.Event) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, evt)
	return nil
}

func (r *fakeEventRepo) ListByAggregate(_ context.Context, _ *gorm.DB, aggregateID uuid.UUID) ([]domain.EventRecord, error) {
	return nil, nil
}

type fakePurchaseRepo struct {
	mu        sync.Mutex
	created   []domain.Purchase
	createErr error
}

func (r *fakePurchaseRepo) Create(_ context.Context, _ *gorm.DB, p *domain.Purchase) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *p)
	return nil
}

func (r *fakePurchaseRepo) ListByMachine(_ context.Context, _ *gorm.DB, machineID uuid.UUID) ([]domain.Purchase, error) {
	return nil, nil
}

func (r *fakePurchaseRepo) TotalsForSnack(_ context.Context, _ *gorm.DB, snackID uuid.UUID) (int64, int64, error) {
	return 0, 0, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) all() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *capturePublisher) last() (domain.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return domain.Event{}, false
	}
	return p.events[len(p.events)-1], true
}
