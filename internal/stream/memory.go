package stream

import (
	"context"
	"strconv"
	"sync"

	"github.com/yungbote/snackfleet-backend/internal/domain"
)

// MemoryBus is an in-process Bus used by tests and single-node local runs.
// Tokens are 1-based entry indexes rendered as strings.
type MemoryBus struct {
	mu      sync.Mutex
	streams map[StreamKey]*memStream
}

type memStream struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []Delivery
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{streams: map[StreamKey]*memStream{}}
}

func (b *MemoryBus) stream(key StreamKey) *memStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.streams[key]
	if s == nil {
		s = &memStream{}
		s.cond = sync.NewCond(&s.mu)
		b.streams[key] = s
	}
	return s
}

func (b *MemoryBus) Publish(_ context.Context, key StreamKey, evt domain.Event) error {
	s := b.stream(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	token := Token(strconv.Itoa(len(s.entries) + 1))
	s.entries = append(s.entries, Delivery{Event: evt, Token: token})
	s.cond.Broadcast()
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, key StreamKey, from Token) (<-chan Delivery, error) {
	s := b.stream(key)
	cursor := 0
	if from != "" {
		n, err := strconv.Atoi(string(from))
		if err != nil {
			return nil, domain.NewError(domain.CodeValidation, "stream.subscribe", "malformed sequence token", err)
		}
		cursor = n
	}

	out := make(chan Delivery)
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})

	go func() {
		defer close(out)
		defer stop()
		for {
			s.mu.Lock()
			for cursor >= len(s.entries) && ctx.Err() == nil {
				s.cond.Wait()
			}
			if ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			d := s.entries[cursor]
			s.mu.Unlock()
			cursor++
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Entries returns a snapshot of a stream's contents. Test helper.
func (b *MemoryBus) Entries(key StreamKey) []Delivery {
	s := b.stream(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.entries))
	copy(out, s.entries)
	return out
}
