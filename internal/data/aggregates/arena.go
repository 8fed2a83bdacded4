package aggregates

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// Executor applies one command to the aggregate owning id. Implementations
// are not required to be safe for concurrent calls with the same id; the
// arena guarantees per-id serialization.
type Executor interface {
	Execute(ctx context.Context, id uuid.UUID, cmd domain.Command) (domain.Event, error)
}

const defaultIdleTTL = 2 * time.Minute

// Arena is the single-writer-per-id runtime: it lazily spawns one worker
// goroutine per aggregate id, each owning an unbuffered mailbox that
// serializes command execution. Different ids run fully in parallel. Idle
// workers are evicted after idleTTL.
type Arena struct {
	log     *logger.Logger
	exec    Executor
	idleTTL time.Duration

	mu      sync.Mutex
	workers map[uuid.UUID]*worker
}

type request struct {
	ctx   context.Context
	cmd   domain.Command
	reply chan response
}

type response struct {
	evt domain.Event
	err error
}

type worker struct {
	mailbox chan request
	done    chan struct{}
}

func NewArena(exec Executor, idleTTL time.Duration, baseLog *logger.Logger) *Arena {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &Arena{
		log:     baseLog.With("service", "AggregateArena"),
		exec:    exec,
		idleTTL: idleTTL,
		workers: map[uuid.UUID]*worker{},
	}
}

// Execute routes the command to the worker owning id, spawning it if needed,
// and waits for the outcome. Commands against the same id queue behind the
// one in flight.
func (a *Arena) Execute(ctx context.Context, id uuid.UUID, cmd domain.Command) (domain.Event, error) {
	if id == uuid.Nil {
		return domain.Event{}, domain.NewError(domain.CodeValidation, string(cmd.Kind), "aggregate id is required", nil)
	}
	for {
		w := a.acquire(id)
		req := request{ctx: ctx, cmd: cmd, reply: make(chan response, 1)}
		select {
		case w.mailbox <- req:
			select {
			case resp := <-req.reply:
				return resp.evt, resp.err
			case <-ctx.Done():
				return domain.Event{}, domain.Wrap(domain.CodeRetryable, string(cmd.Kind), ctx.Err())
			}
		case <-w.done:
			// Worker evicted between lookup and send; route again.
		case <-ctx.Done():
			return domain.Event{}, domain.Wrap(domain.CodeRetryable, string(cmd.Kind), ctx.Err())
		}
	}
}

// WorkerCount reports the number of live workers. Test helper.
func (a *Arena) WorkerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.workers)
}

func (a *Arena) acquire(id uuid.UUID) *worker {
	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok := a.workers[id]; ok {
		return w
	}
	w := &worker{
		mailbox: make(chan request),
		done:    make(chan struct{}),
	}
	a.workers[id] = w
	go a.run(id, w)
	return w
}

func (a *Arena) run(id uuid.UUID, w *worker) {
	timer := time.NewTimer(a.idleTTL)
	defer timer.Stop()
	for {
		select {
		case req := <-w.mailbox:
			evt, err := a.exec.Execute(req.ctx, id, req.cmd)
			req.reply <- response{evt: evt, err: err}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(a.idleTTL)
		case <-timer.C:
			// The mailbox is unbuffered, so no send can complete while this
			// branch holds the arena lock and removes the worker.
			a.mu.Lock()
			delete(a.workers, id)
			a.mu.Unlock()
			close(w.done)
			return
		}
	}
}
