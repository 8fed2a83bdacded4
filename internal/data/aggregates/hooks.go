package aggregates

import (
	"time"

	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type logHooks struct {
	log *logger.Logger
}

// NewLogHooks records aggregate operation outcomes on the structured log.
func NewLogHooks(baseLog *logger.Logger) Hooks {
	if baseLog == nil {
		return noopHooks{}
	}
	return &logHooks{log: baseLog.With("service", "AggregateHooks")}
}

func (h *logHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.log.Debug("aggregate operation", "op", name, "status", status, "duration", dur)
}

func (h *logHooks) IncConflict(name string) {
	h.log.Warn("aggregate conflict", "op", name)
}

func (h *logHooks) IncRetry(name string) {
	h.log.Debug("aggregate retryable failure", "op", name)
}
