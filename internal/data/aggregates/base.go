package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// WriteCtx bundles a request context with the transaction an aggregate write
// runs inside.
type WriteCtx struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// TxRunner provides the shared transaction boundary primitive for aggregate
// writes: event append and snapshot save commit together or not at all.
type TxRunner interface {
	InTx(ctx context.Context, fn func(wc WriteCtx) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(wc WriteCtx) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domain.NewError(domain.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WriteCtx{Ctx: ctx, Tx: tx})
	})
}

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(wc WriteCtx) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = writeStatus(mapped)
		if domain.IsCode(mapped, domain.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domain.IsCode(mapped, domain.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func writeStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domain.CodeOf(err)))
	if code == "" {
		return "failure"
	}
	return code
}
