package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// MachineViewRepo is the denormalized machine read model. Get returns a
// not_found coded error when the row is absent so the synchronizer can tell
// "missing" apart from infrastructure failure.
type MachineViewRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.MachineView, error)
	Upsert(ctx context.Context, tx *gorm.DB, view *domain.MachineView) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB) ([]domain.MachineView, error)
}

type machineViewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMachineViewRepo(db *gorm.DB, baseLog *logger.Logger) MachineViewRepo {
	return &machineViewRepo{db: db, log: baseLog.With("repo", "MachineViewRepo")}
}

func (r *machineViewRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.MachineView, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var view domain.MachineView
	err := t.WithContext(ctx).First(&view, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewError(domain.CodeNotFound, "machine_view.get", "machine view not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *machineViewRepo) Upsert(ctx context.Context, tx *gorm.DB, view *domain.MachineView) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(view).Error
}

func (r *machineViewRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Delete(&domain.MachineView{}, "id = ?", id).Error
}

func (r *machineViewRepo) List(ctx context.Context, tx *gorm.DB) ([]domain.MachineView, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.MachineView
	if err := t.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SnackViewRepo is the denormalized snack read model.
type SnackViewRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.SnackView, error)
	Upsert(ctx context.Context, tx *gorm.DB, view *domain.SnackView) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB) ([]domain.SnackView, error)
}

type snackViewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnackViewRepo(db *gorm.DB, baseLog *logger.Logger) SnackViewRepo {
	return &snackViewRepo{db: db, log: baseLog.With("repo", "SnackViewRepo")}
}

func (r *snackViewRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.SnackView, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var view domain.SnackView
	err := t.WithContext(ctx).First(&view, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewError(domain.CodeNotFound, "snack_view.get", "snack view not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *snackViewRepo) Upsert(ctx context.Context, tx *gorm.DB, view *domain.SnackView) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(view).Error
}

func (r *snackViewRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).Delete(&domain.SnackView{}, "id = ?", id).Error
}

func (r *snackViewRepo) List(ctx context.Context, tx *gorm.DB) ([]domain.SnackView, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.SnackView
	if err := t.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SnackStatRepo stores the derived per-snack counters.
type SnackStatRepo interface {
	Get(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (*domain.SnackStat, error)
	Upsert(ctx context.Context, tx *gorm.DB, stat *domain.SnackStat) error
	List(ctx context.Context, tx *gorm.DB) ([]domain.SnackStat, error)
}

type snackStatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnackStatRepo(db *gorm.DB, baseLog *logger.Logger) SnackStatRepo {
	return &snackStatRepo{db: db, log: baseLog.With("repo", "SnackStatRepo")}
}

func (r *snackStatRepo) Get(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (*domain.SnackStat, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var stat domain.SnackStat
	err := t.WithContext(ctx).First(&stat, "snack_id = ?", snackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewError(domain.CodeNotFound, "snack_stat.get", "snack stat not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *snackStatRepo) Upsert(ctx context.Context, tx *gorm.DB, stat *domain.SnackStat) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snack_id"}},
			UpdateAll: true,
		}).
		Create(stat).Error
}

func (r *snackStatRepo) List(ctx context.Context, tx *gorm.DB) ([]domain.SnackStat, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.SnackStat
	if err := t.WithContext(ctx).Order("snack_id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
