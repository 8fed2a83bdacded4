package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Write-side rows. MachineRow/SlotRow/SnackRow are the relational snapshots
// the aggregate runtime persists next to the event record; the aggregate in
// memory is the source of truth between load and save.

type MachineRow struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MoneyInside         datatypes.JSON `gorm:"type:jsonb" json:"money_inside"`
	AmountInTransaction int64          `json:"amount_in_transaction"`
	SlotCount           int            `json:"slot_count"`
	SnackCount          int            `json:"snack_count"`
	SnackQuantity       int            `json:"snack_quantity"`
	SnackAmount         int64          `json:"snack_amount"`
	CreatedAt           time.Time      `json:"created_at"`
	CreatedBy           string         `json:"created_by"`
	LastModifiedAt      time.Time      `json:"last_modified_at"`
	LastModifiedBy      string         `json:"last_modified_by"`
	DeletedAt           *time.Time     `json:"deleted_at,omitempty"`
	DeletedBy           string         `json:"deleted_by"`
	IsDeleted           bool           `gorm:"index" json:"is_deleted"`
	Version             int            `json:"version"`

	Slots []SlotRow `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE" json:"slots"`
}

func (MachineRow) TableName() string { return "machines" }

type SlotRow struct {
	MachineID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"machine_id"`
	Position  int        `gorm:"primaryKey" json:"position"`
	SnackID   *uuid.UUID `gorm:"type:uuid;index" json:"snack_id,omitempty"`
	Quantity  int        `json:"quantity"`
	Price     int64      `json:"price"`
}

func (SlotRow) TableName() string { return "machine_slots" }

type SnackRow struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string     `gorm:"size:200;index" json:"name"`
	PictureURL     string     `gorm:"size:500" json:"picture_url"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedBy      string     `json:"created_by"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	LastModifiedBy string     `json:"last_modified_by"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	DeletedBy      string     `json:"deleted_by"`
	IsDeleted      bool       `gorm:"index" json:"is_deleted"`
	Version        int        `json:"version"`
}

func (SnackRow) TableName() string { return "snacks" }

// EventRecord is the append-only durable copy of every published event.
type EventRecord struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	AggregateID uuid.UUID      `gorm:"type:uuid;index:idx_events_aggregate" json:"aggregate_id"`
	Kind        string         `gorm:"size:64" json:"kind"`
	Version     int            `gorm:"index:idx_events_aggregate" json:"version"`
	TraceID     uuid.UUID      `gorm:"type:uuid" json:"trace_id"`
	OperatedAt  time.Time      `json:"operated_at"`
	OperatedBy  string         `json:"operated_by"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
}

func (EventRecord) TableName() string { return "events" }

// Purchase is the immutable record created as a side effect of a successful
// buy. It is never mutated afterward.
type Purchase struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MachineID   uuid.UUID `gorm:"type:uuid;index" json:"machine_id"`
	Position    int       `json:"position"`
	SnackID     uuid.UUID `gorm:"type:uuid;index" json:"snack_id"`
	BoughtPrice int64     `json:"bought_price"`
	BoughtAt    time.Time `json:"bought_at"`
	BoughtBy    string    `json:"bought_by"`
}

func (Purchase) TableName() string { return "purchases" }

// Read-model rows. Version gates incremental projection updates; rows are
// overwritten wholesale on rebuild.

// SlotView is the denormalized slot entry embedded (as JSON) in MachineView.
type SlotView struct {
	Position  int        `json:"position"`
	SnackID   *uuid.UUID `json:"snack_id,omitempty"`
	SnackName string     `json:"snack_name,omitempty"`
	Quantity  int        `json:"quantity"`
	Price     int64      `json:"price"`
	Amount    int64      `json:"amount"`
}

type MachineView struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MoneyInside         datatypes.JSON `gorm:"type:jsonb" json:"money_inside"`
	MoneyAmount         int64          `json:"money_amount"`
	AmountInTransaction int64          `json:"amount_in_transaction"`
	Slots               datatypes.JSON `gorm:"type:jsonb" json:"slots"`
	SlotCount           int            `json:"slot_count"`
	SnackCount          int            `json:"snack_count"`
	SnackQuantity       int            `json:"snack_quantity"`
	SnackAmount         int64          `json:"snack_amount"`
	Version             int            `json:"version"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (MachineView) TableName() string { return "machine_views" }

type SnackView struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"size:200" json:"name"`
	PictureURL string    `gorm:"size:500" json:"picture_url"`
	Version    int       `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SnackView) TableName() string { return "snack_views" }

// SnackStat holds the derived per-snack counters maintained by the stats
// aggregator.
type SnackStat struct {
	SnackID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"snack_id"`
	BoughtCount  int64     `json:"bought_count"`
	BoughtAmount int64     `json:"bought_amount"`
	MachineCount int       `json:"machine_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SnackStat) TableName() string { return "snack_stats" }
