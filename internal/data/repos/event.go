package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// EventRepo is the append-only durable event log.
type EventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, evt domain.Event) error
	ListByAggregate(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID) ([]domain.EventRecord, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) Append(ctx context.Context, tx *gorm.DB, evt domain.Event) error {
	t := tx
	if t == nil {
		t = r.db
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	rec := &domain.EventRecord{
		AggregateID: evt.AggregateID,
		Kind:        string(evt.Kind),
		Version:     evt.Version,
		TraceID:     evt.TraceID,
		OperatedAt:  evt.OperatedAt,
		OperatedBy:  evt.OperatedBy,
		Payload:     payload,
	}
	return t.WithContext(ctx).Create(rec).Error
}

func (r *eventRepo) ListByAggregate(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID) ([]domain.EventRecord, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.EventRecord
	err := t.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
