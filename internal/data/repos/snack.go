package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// SnackRepo persists snack aggregate snapshots. NameInUse backs the
// repository-level uniqueness pre-check; it is a read outside the aggregate
// boundary and therefore racy by design.
type SnackRepo interface {
	LoadAggregate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Snack, error)
	SaveAggregate(ctx context.Context, tx *gorm.DB, s *domain.Snack, expectedVersion int) error
	NameInUse(ctx context.Context, tx *gorm.DB, name string, excludeID uuid.UUID) (bool, error)
}

type snackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnackRepo(db *gorm.DB, baseLog *logger.Logger) SnackRepo {
	return &snackRepo{db: db, log: baseLog.With("repo", "SnackRepo")}
}

func (r *snackRepo) LoadAggregate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Snack, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var row domain.SnackRow
	err := t.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewError(domain.CodeNotFound, "snack.load", "snack not found", err)
	}
	if err != nil {
		return nil, err
	}
	s := domain.NewSnack(row.ID)
	s.Name = row.Name
	s.PictureURL = row.PictureURL
	s.CreatedAt = row.CreatedAt
	s.CreatedBy = row.CreatedBy
	s.LastModifiedAt = row.LastModifiedAt
	s.LastModifiedBy = row.LastModifiedBy
	s.DeletedAt = row.DeletedAt
	s.DeletedBy = row.DeletedBy
	s.IsDeleted = row.IsDeleted
	s.Version = row.Version
	return s, nil
}

func (r *snackRepo) SaveAggregate(ctx context.Context, tx *gorm.DB, s *domain.Snack, expectedVersion int) error {
	t := tx
	if t == nil {
		t = r.db
	}
	t = t.WithContext(ctx)

	row := &domain.SnackRow{
		ID:             s.ID,
		Name:           s.Name,
		PictureURL:     s.PictureURL,
		CreatedAt:      s.CreatedAt,
		CreatedBy:      s.CreatedBy,
		LastModifiedAt: s.LastModifiedAt,
		LastModifiedBy: s.LastModifiedBy,
		DeletedAt:      s.DeletedAt,
		DeletedBy:      s.DeletedBy,
		IsDeleted:      s.IsDeleted,
		Version:        s.Version,
	}

	if expectedVersion == 0 {
		return t.Create(row).Error
	}
	res := t.Model(&domain.SnackRow{}).
		Where("id = ? AND version = ?", s.ID, expectedVersion).
		Updates(map[string]any{
			"name":             row.Name,
			"picture_url":      row.PictureURL,
			"last_modified_at": row.LastModifiedAt,
			"last_modified_by": row.LastModifiedBy,
			"deleted_at":       row.DeletedAt,
			"deleted_by":       row.DeletedBy,
			"is_deleted":       row.IsDeleted,
			"version":          row.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewError(domain.CodeConflict, "snack.save", "stored version does not match expected version", nil)
	}
	return nil
}

func (r *snackRepo) NameInUse(ctx context.Context, tx *gorm.DB, name string, excludeID uuid.UUID) (bool, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(ctx).
		Model(&domain.SnackRow{}).
		Where("LOWER(name) = ? AND is_deleted = ? AND id <> ?", strings.ToLower(strings.TrimSpace(name)), false, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
