package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
	"github.com/yungbote/snackfleet-backend/internal/stream"
)

const eventField = "event"

// StreamBus implements stream.Bus on Redis Streams. The Redis entry ID is
// the sequence token, which makes subscriptions resumable across restarts.
type StreamBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewStreamBus(log *logger.Logger) (*StreamBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_STREAM_PREFIX"))
	if prefix == "" {
		prefix = "snackfleet"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &StreamBus{
		log:    log.With("service", "RedisStreamBus"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (b *StreamBus) streamName(key stream.StreamKey) string {
	return b.prefix + ":" + key.String()
}

func (b *StreamBus) Publish(ctx context.Context, key stream.StreamKey, evt domain.Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis stream bus not initialized")
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: b.streamName(key),
		Values: map[string]interface{}{eventField: raw},
	}).Err()
}

func (b *StreamBus) Subscribe(ctx context.Context, key stream.StreamKey, from stream.Token) (<-chan stream.Delivery, error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis stream bus not initialized")
	}
	last := string(from)
	if last == "" {
		last = "0"
	}
	name := b.streamName(key)
	out := make(chan stream.Delivery)

	go func() {
		defer close(out)
		for {
			res, err := b.rdb.XRead(ctx, &goredis.XReadArgs{
				Streams: []string{name, last},
				Count:   64,
				Block:   5 * time.Second,
			}).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if err == goredis.Nil {
					continue
				}
				b.log.Warn("stream read failed", "stream", name, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			for _, s := range res {
				for _, msg := range s.Messages {
					last = msg.ID
					raw, ok := msg.Values[eventField].(string)
					if !ok {
						b.log.Warn("stream entry missing event field", "stream", name, "entry", msg.ID)
						continue
					}
					var evt domain.Event
					if err := json.Unmarshal([]byte(raw), &evt); err != nil {
						b.log.Warn("bad stream event payload", "stream", name, "entry", msg.ID, "error", err)
						continue
					}
					select {
					case out <- stream.Delivery{Event: evt, Token: stream.Token(msg.ID)}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func (b *StreamBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
