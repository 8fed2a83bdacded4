package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
)

type fakeMachineSource struct {
	mu       sync.Mutex
	machines map[uuid.UUID]*domain.Machine
	reads    int
}

func newFakeMachineSource() *fakeMachineSource {
	return &fakeMachineSource{machines: map[uuid.UUID]*domain.Machine{}}
}

func (s *fakeMachineSource) put(m *domain.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[m.ID] = m.Clone()
}

func (s *fakeMachineSource) CurrentState(_ context.Context, id uuid.UUID) (*domain.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	m, ok := s.machines[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "machine.load", "machine not found", nil)
	}
	return m.Clone(), nil
}

type fakeSnackSource struct {
	mu     sync.Mutex
	snacks map[uuid.UUID]*domain.Snack
	reads  int
}

func newFakeSnackSource() *fakeSnackSource {
	return &fakeSnackSource{snacks: map[uuid.UUID]*domain.Snack{}}
}

func (s *fakeSnackSource) put(snack *domain.Snack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snacks[snack.ID] = snack.Clone()
}

func (s *fakeSnackSource) CurrentState(_ context.Context, id uuid.UUID) (*domain.Snack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	snack, ok := s.snacks[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "snack.load", "snack not found", nil)
	}
	return snack.Clone(), nil
}

type fakeMachineViewStore struct {
	mu         sync.Mutex
	views      map[uuid.UUID]domain.MachineView
	upsertErrs []error
	upserts    int
}

func newFakeMachineViewStore() *fakeMachineViewStore {
	return &fakeMachineViewStore{views: map[uuid.UUID]domain.MachineView{}}
}

func (s *fakeMachineViewStore) Get(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.MachineView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "machine_view.get", "machine view not found", nil)
	}
	out := view
	return &out, nil
}

func (s *fakeMachineViewStore) Upsert(_ context.Context, _ *gorm.DB, view *domain.MachineView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if len(s.upsertErrs) > 0 {
		err := s.upsertErrs[0]
		s.upsertErrs = s.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.views[view.ID] = *view
	return nil
}

func (s *fakeMachineViewStore) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, id)
	return nil
}

func (s *fakeMachineViewStore) List(_ context.Context, _ *gorm.DB) ([]domain.MachineView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MachineView, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	return out, nil
}

type fakeSnackViewStore struct {
	mu    sync.Mutex
	views map[uuid.UUID]domain.SnackView
}

func newFakeSnackViewStore() *fakeSnackViewStore {
	return &fakeSnackViewStore{views: map[uuid.UUID]domain.SnackView{}}
}

func (s *fakeSnackViewStore) Get(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.SnackView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "snack_view.get", "snack view not found", nil)
	}
	out := view
	return &out, nil
}

func (s *fakeSnackViewStore) Upsert(_ context.Context, _ *gorm.DB, view *domain.SnackView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view.ID] = *view
	return nil
}

func (s *fakeSnackViewStore) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, id)
	return nil
}

func (s *fakeSnackViewStore) List(_ context.Context, _ *gorm.DB) ([]domain.SnackView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SnackView, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	return out, nil
}

type fakePurchaseScanner struct {
	mu     sync.Mutex
	count  int64
	amount int64
	scans  int
}

func (s *fakePurchaseScanner) TotalsForSnack(_ context.Context, _ *gorm.DB, _ uuid.UUID) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	return s.count, s.amount, nil
}

func (s *fakePurchaseScanner) set(count, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = count
	s.amount = amount
}

type fakeMachineCounter struct {
	mu    sync.Mutex
	count int
}

func (c *fakeMachineCounter) MachineCountForSnack(_ context.Context, _ *gorm.DB, _ uuid.UUID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, nil
}

func (c *fakeMachineCounter) set(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = count
}

type fakeStatStore struct {
	mu       sync.Mutex
	upserted []domain.SnackStat
}

func (s *fakeStatStore) Upsert(_ context.Context, _ *gorm.DB, stat *domain.SnackStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted = append(s.upserted, *stat)
	return nil
}

func (s *fakeStatStore) last() (domain.SnackStat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.upserted) == 0 {
		return domain.SnackStat{}, false
	}
	return s.upserted[len(s.upserted)-1], true
}
