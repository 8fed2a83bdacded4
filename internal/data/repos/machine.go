package repos

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
)

// MachineRepo persists machine aggregate snapshots with compare-and-set
// version gating. Load/Save speak domain.Machine; the row mapping stays
// inside the repo.
type MachineRepo interface {
	LoadAggregate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Machine, error)
	SaveAggregate(ctx context.Context, tx *gorm.DB, m *domain.Machine, expectedVersion int) error
	MachineCountForSnack(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (int, error)
}

type machineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMachineRepo(db *gorm.DB, baseLog *logger.Logger) MachineRepo {
	return &machineRepo{db: db, log: baseLog.With("repo", "MachineRepo")}
}

func (r *machineRepo) LoadAggregate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Machine, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var row domain.MachineRow
	err := t.WithContext(ctx).Preload("Slots").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewError(domain.CodeNotFound, "machine.load", "machine not found", err)
	}
	if err != nil {
		return nil, err
	}
	return machineFromRow(&row)
}

func (r *machineRepo) SaveAggregate(ctx context.Context, tx *gorm.DB, m *domain.Machine, expectedVersion int) error {
	t := tx
	if t == nil {
		t = r.db
	}
	t = t.WithContext(ctx)

	row, err := machineToRow(m)
	if err != nil {
		return err
	}
	slots := row.Slots
	row.Slots = nil

	if expectedVersion == 0 {
		if err := t.Create(row).Error; err != nil {
			return err
		}
	} else {
		res := t.Model(&domain.MachineRow{}).
			Where("id = ? AND version = ?", m.ID, expectedVersion).
			Updates(map[string]any{
				"money_inside":          row.MoneyInside,
				"amount_in_transaction": row.AmountInTransaction,
				"slot_count":            row.SlotCount,
				"snack_count":           row.SnackCount,
				"snack_quantity":        row.SnackQuantity,
				"snack_amount":          row.SnackAmount,
				"last_modified_at":      row.LastModifiedAt,
				"last_modified_by":      row.LastModifiedBy,
				"deleted_at":            row.DeletedAt,
				"deleted_by":            row.DeletedBy,
				"is_deleted":            row.IsDeleted,
				"version":               row.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewError(domain.CodeConflict, "machine.save", "stored version does not match expected version", nil)
		}
	}

	// Slots are owned by the machine; replace them wholesale with the
	// snapshot's set.
	if err := t.Where("machine_id = ?", m.ID).Delete(&domain.SlotRow{}).Error; err != nil {
		return err
	}
	if len(slots) > 0 {
		if err := t.Create(&slots).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *machineRepo) MachineCountForSnack(ctx context.Context, tx *gorm.DB, snackID uuid.UUID) (int, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(ctx).
		Model(&domain.SlotRow{}).
		Distinct("machine_slots.machine_id").
		Joins("JOIN machines ON machines.id = machine_slots.machine_id AND machines.is_deleted = ?", false).
		Where("machine_slots.snack_id = ? AND machine_slots.quantity > 0", snackID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func machineToRow(m *domain.Machine) (*domain.MachineRow, error) {
	money, err := json.Marshal(m.MoneyInside)
	if err != nil {
		return nil, err
	}
	row := &domain.MachineRow{
		ID:                  m.ID,
		MoneyInside:         money,
		AmountInTransaction: m.AmountInTransaction,
		SlotCount:           m.Stats.SlotCount,
		SnackCount:          m.Stats.SnackCount,
		SnackQuantity:       m.Stats.SnackQuantity,
		SnackAmount:         m.Stats.SnackAmount,
		CreatedAt:           m.CreatedAt,
		CreatedBy:           m.CreatedBy,
		LastModifiedAt:      m.LastModifiedAt,
		LastModifiedBy:      m.LastModifiedBy,
		DeletedAt:           m.DeletedAt,
		DeletedBy:           m.DeletedBy,
		IsDeleted:           m.IsDeleted,
		Version:             m.Version,
	}
	for _, s := range m.SortedSlots() {
		slot := domain.SlotRow{MachineID: m.ID, Position: s.Position}
		if s.Pile != nil {
			id := s.Pile.SnackID
			slot.SnackID = &id
			slot.Quantity = s.Pile.Quantity
			slot.Price = s.Pile.Price
		}
		row.Slots = append(row.Slots, slot)
	}
	return row, nil
}

func machineFromRow(row *domain.MachineRow) (*domain.Machine, error) {
	m := domain.NewMachine(row.ID)
	if len(row.MoneyInside) > 0 {
		if err := json.Unmarshal(row.MoneyInside, &m.MoneyInside); err != nil {
			return nil, err
		}
	}
	m.AmountInTransaction = row.AmountInTransaction
	m.Stats = domain.MachineStats{
		SlotCount:     row.SlotCount,
		SnackCount:    row.SnackCount,
		SnackQuantity: row.SnackQuantity,
		SnackAmount:   row.SnackAmount,
	}
	m.CreatedAt = row.CreatedAt
	m.CreatedBy = row.CreatedBy
	m.LastModifiedAt = row.LastModifiedAt
	m.LastModifiedBy = row.LastModifiedBy
	m.DeletedAt = row.DeletedAt
	m.DeletedBy = row.DeletedBy
	m.IsDeleted = row.IsDeleted
	m.Version = row.Version
	for _, s := range row.Slots {
		slot := &domain.Slot{MachineID: row.ID, Position: s.Position}
		if s.SnackID != nil {
			slot.Pile = &domain.SnackPile{SnackID: *s.SnackID, Quantity: s.Quantity, Price: s.Price}
		}
		m.Slots[s.Position] = slot
	}
	return m, nil
}
