package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// PurchaseRepo stores the immutable purchase records and answers the full
// scans the stats aggregator runs on activation.
type PurchaseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, p *domain.Purchase) error
	ListByMachine(ctx context.Context, tx *gorm.DB, machineID uuid.UUID) ([]domain.Purchase, error)
	TotalsForSnack(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (count int64, amount int64, err error)
}

type purchaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPurchaseRepo(db *gorm.DB, baseLog *logger.Logger) PurchaseRepo {
	return &purchaseRepo{db: db, log: baseLog.With("repo", "PurchaseRepo")}
}

func (r *purchaseRepo) Create(ctx context.Context, tx *gorm.DB, p *domain.Purchase) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return t.WithContext(ctx).Create(p).Error
}

func (r *purchaseRepo) ListByMachine(ctx context.Context, tx *gorm.DB, machineID uuid.UUID) ([]domain.Purchase, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.Purchase
	err := t.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("bought_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *purchaseRepo) TotalsForSnack(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (int64, int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var agg struct {
		Count  int64
		Amount int64
	}
	err := t.WithContext(ctx).
		Model(&domain.Purchase{}).
		Select("COUNT(*) AS count, COALESCE(SUM(bought_price), 0) AS amount").
		Where("snack_id = ?", snackID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	return agg.Count, agg.Amount, nil
}
