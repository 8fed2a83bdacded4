package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EvtMachineInitialized    EventKind = "machine.initialized"
	EvtMachineRemoved        EventKind = "machine.removed"
	EvtMachineMoneyLoaded    EventKind = "machine.money_loaded"
	EvtMachineMoneyUnloaded  EventKind = "machine.money_unloaded"
	EvtMachineMoneyInserted  EventKind = "machine.money_inserted"
	EvtMachineMoneyReturned  EventKind = "machine.money_returned"
	EvtMachineSnacksLoaded   EventKind = "machine.snacks_loaded"
	EvtMachineSnacksUnloaded EventKind = "machine.snacks_unloaded"
	EvtMachineSnackBought    EventKind = "machine.snack_bought"
	EvtMachineCommandFailed  EventKind = "machine.command_failed"

	EvtSnackInitialized   EventKind = "snack.initialized"
	EvtSnackUpdated       EventKind = "snack.updated"
	EvtSnackDeleted       EventKind = "snack.deleted"
	EvtSnackCommandFailed EventKind = "snack.command_failed"
)

// MachineStats are the derived counters recomputed after every accepted
// machine command and denormalized onto the read model.
type MachineStats struct {
	SlotCount     int   `json:"slot_count"`
	SnackCount    int   `json:"snack_count"`
	SnackQuantity int   `json:"snack_quantity"`
	SnackAmount   int64 `json:"snack_amount"`
}

// Event is the tagged union published on the per-aggregate and broadcast
// streams. Kind decides which payload fields are set; delta payloads carry
// the new values (not increments) so redelivery overwrites instead of
// double-applying.
type Event struct {
	Kind        EventKind `json:"kind"`
	AggregateID uuid.UUID `json:"aggregate_id"`
	Version     int       `json:"version"`
	TraceID     uuid.UUID `json:"trace_id"`
	OperatedAt  time.Time `json:"operated_at"`
	OperatedBy  string    `json:"operated_by"`

	// machine payloads
	MoneyInside         *Money        `json:"money_inside,omitempty"`
	AmountInTransaction *int64        `json:"amount_in_transaction,omitempty"`
	Slot                *Slot         `json:"slot,omitempty"`
	Slots               []Slot        `json:"slots,omitempty"`
	Stats               *MachineStats `json:"stats,omitempty"`
	BoughtPrice         *int64        `json:"bought_price,omitempty"`
	SnackID             *uuid.UUID    `json:"snack_id,omitempty"`

	// snack payloads
	Name       *string `json:"name,omitempty"`
	PictureURL *string `json:"picture_url,omitempty"`

	// error payloads
	Code    string   `json:"code,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// IsError reports whether the event is a failure notification rather than a
// state change.
func (e Event) IsError() bool {
	return e.Kind == EvtMachineCommandFailed || e.Kind == EvtSnackCommandFailed
}

// IsInitialize reports whether the event creates its aggregate's read row.
func (e Event) IsInitialize() bool {
	return e.Kind == EvtMachineInitialized || e.Kind == EvtSnackInitialized
}

// NewErrorEvent builds the failure event published in place of a success
// event when a command is rejected or cannot be persisted.
func NewErrorEvent(kind EventKind, aggregateID uuid.UUID, version int, op Operation, code ErrorCode, reasons []string) Event {
	return Event{
		Kind:        kind,
		AggregateID: aggregateID,
		Version:     version,
		TraceID:     op.TraceID,
		OperatedAt:  op.OperatedAt,
		OperatedBy:  op.OperatedBy,
		Code:        string(code),
		Reasons:     reasons,
	}
}
