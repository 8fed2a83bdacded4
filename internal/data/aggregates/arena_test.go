package aggregates

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// blockingExecutor parks every call until released and tracks per-id overlap.
type blockingExecutor struct {
	started chan uuid.UUID
	release chan struct{}

	mu       sync.Mutex
	inFlight map[uuid.UUID]int
	overlap  atomic.Bool
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{
		started:  make(chan uuid.UUID, 64),
		release:  make(chan struct{}),
		inFlight: map[uuid.UUID]int{},
	}
}

func (e *blockingExecutor) Execute(ctx context.Context, id uuid.UUID, cmd domain.Command) (domain.Event, error) {
	e.mu.Lock()
	e.inFlight[id]++
	if e.inFlight[id] > 1 {
		e.overlap.Store(true)
	}
	e.mu.Unlock()

	e.started <- id
	select {
	case <-e.release:
	case <-ctx.Done():
	}

	e.mu.Lock()
	e.inFlight[id]--
	e.mu.Unlock()
	return domain.Event{AggregateID: id, Version: 1}, nil
}

type countingExecutor struct {
	calls atomic.Int64
}

func (e *countingExecutor) Execute(_ context.Context, id uuid.UUID, _ domain.Command) (domain.Event, error) {
	e.calls.Add(1)
	return domain.Event{AggregateID: id, Version: 1}, nil
}

func TestArenaSerializesPerID(t *testing.T) {
	exec := newBlockingExecutor()
	arena := NewArena(exec, time.Minute, logger.NewNop())
	id := uuid.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := arena.Execute(ctx, id, domain.Command{Kind: domain.CmdUnloadMoney}); err != nil {
				t.Errorf("execute: %v", err)
			}
		}()
	}

	// Only the command in flight may reach the executor; the rest queue on
	// the mailbox.
	<-exec.started
	select {
	case <-exec.started:
		t.Fatalf("second command started before first finished")
	case <-time.After(100 * time.Millisecond):
	}

	close(exec.release)
	wg.Wait()
	if exec.overlap.Load() {
		t.Fatalf("commands for one id overlapped")
	}
}

func TestArenaRunsDistinctIDsInParallel(t *testing.T) {
	exec := newBlockingExecutor()
	arena := NewArena(exec, time.Minute, logger.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := arena.Execute(ctx, uuid.New(), domain.Command{Kind: domain.CmdUnloadMoney}); err != nil {
				t.Errorf("execute: %v", err)
			}
		}()
	}

	// Both must reach the executor while neither has been released.
	for i := 0; i < 2; i++ {
		select {
		case <-exec.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("distinct ids did not run in parallel")
		}
	}
	close(exec.release)
	wg.Wait()
}

func TestArenaEvictsIdleWorkers(t *testing.T) {
	exec := &countingExecutor{}
	arena := NewArena(exec, 20*time.Millisecond, logger.NewNop())
	id := uuid.New()
	ctx := context.Background()

	if _, err := arena.Execute(ctx, id, domain.Command{Kind: domain.CmdUnloadMoney}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := arena.WorkerCount(); got != 1 {
		t.Fatalf("worker count: want=1 got=%d", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for arena.WorkerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle worker was not evicted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A later command respawns the worker transparently.
	if _, err := arena.Execute(ctx, id, domain.Command{Kind: domain.CmdUnloadMoney}); err != nil {
		t.Fatalf("execute after eviction: %v", err)
	}
	if got := exec.calls.Load(); got != 2 {
		t.Fatalf("executor calls: want=2 got=%d", got)
	}
}

func TestArenaRejectsNilID(t *testing.T) {
	arena := NewArena(&countingExecutor{}, time.Minute, logger.NewNop())
	_, err := arena.Execute(context.Background(), uuid.Nil, domain.Command{Kind: domain.CmdUnloadMoney})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("want=%s got=%v", domain.CodeValidation, err)
	}
}

func TestArenaHonorsContextWhileQueued(t *testing.T) {
	exec := newBlockingExecutor()
	arena := NewArena(exec, time.Minute, logger.NewNop())
	id := uuid.New()

	go func() {
		_, _ = arena.Execute(context.Background(), id, domain.Command{Kind: domain.CmdUnloadMoney})
	}()
	<-exec.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := arena.Execute(ctx, id, domain.Command{Kind: domain.CmdUnloadMoney})
	if !domain.IsCode(err, domain.CodeRetryable) {
		t.Fatalf("want=%s got=%v", domain.CodeRetryable, err)
	}
	close(exec.release)
}
