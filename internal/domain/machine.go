package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Machine is the vending machine aggregate. It owns its slots exclusively
// and holds custody of the cash inside plus the amount of the in-progress
// transaction. Lifecycle: uninitialized -> created -> removed (terminal).
type Machine struct {
	ID                  uuid.UUID
	MoneyInside         Money
	AmountInTransaction int64
	Slots               map[int]*Slot

	Stats MachineStats

	CreatedAt      time.Time
	CreatedBy      string
	LastModifiedAt time.Time
	LastModifiedBy string
	DeletedAt      *time.Time
	DeletedBy      string
	IsDeleted      bool

	Version int
}

func NewMachine(id uuid.UUID) *Machine {
	return &Machine{ID: id, Slots: map[int]*Slot{}}
}

func (m *Machine) created() bool {
	return m.Version > 0
}

// SortedSlots returns the slots ordered by position. Events and snapshots
// always carry slots in this order.
func (m *Machine) SortedSlots() []Slot {
	out := make([]Slot, 0, len(m.Slots))
	for _, s := range m.Slots {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Clone deep-copies the aggregate so a command can be applied tentatively
// and discarded if persistence fails.
func (m *Machine) Clone() *Machine {
	out := *m
	out.Slots = make(map[int]*Slot, len(m.Slots))
	for pos, s := range m.Slots {
		c := s.clone()
		out.Slots[pos] = &c
	}
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}

// Execute validates and applies one command, returning the event it emits.
// Exactly one of (event, error) is meaningful; the aggregate is only mutated
// on success.
func (m *Machine) Execute(cmd Command) (Event, error) {
	if m.IsDeleted {
		return Event{}, NewValidationError(string(cmd.Kind), []string{"machine has been removed"})
	}
	switch cmd.Kind {
	case CmdInitializeMachine:
		return m.initialize(cmd)
	case CmdRemoveMachine:
		return m.remove(cmd)
	case CmdLoadMoney:
		return m.loadMoney(cmd)
	case CmdUnloadMoney:
		return m.unloadMoney(cmd)
	case CmdInsertMoney:
		return m.insertMoney(cmd)
	case CmdReturnMoney:
		return m.returnMoney(cmd)
	case CmdLoadSnacks:
		return m.loadSnacks(cmd)
	case CmdUnloadSnacks:
		return m.unloadSnacks(cmd)
	case CmdBuySnack:
		return m.buySnack(cmd)
	default:
		return Event{}, NewError(CodeValidation, string(cmd.Kind), "unknown machine command", nil)
	}
}

func (m *Machine) requireCreated(reasons []string) []string {
	if !m.created() {
		return append(reasons, "machine has not been initialized")
	}
	return reasons
}

func (m *Machine) initialize(cmd Command) (Event, error) {
	var reasons []string
	if m.created() {
		reasons = append(reasons, "machine is already initialized")
	}
	if len(cmd.Slots) == 0 {
		reasons = append(reasons, "at least one slot is required")
	}
	seen := map[int]bool{}
	for _, s := range cmd.Slots {
		if s.MachineID != m.ID {
			reasons = append(reasons, fmt.Sprintf("slot %d belongs to another machine", s.Position))
		}
		if s.Position < 0 {
			reasons = append(reasons, fmt.Sprintf("slot position %d is negative", s.Position))
		}
		if seen[s.Position] {
			reasons = append(reasons, fmt.Sprintf("duplicate slot position %d", s.Position))
		}
		seen[s.Position] = true
	}
	if isBlank(cmd.Op.OperatedBy) {
		reasons = append(reasons, "operator is required")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	if cmd.MoneyInside != nil {
		m.MoneyInside = *cmd.MoneyInside
	}
	m.Slots = make(map[int]*Slot, len(cmd.Slots))
	for _, s := range cmd.Slots {
		c := s.clone()
		m.Slots[s.Position] = &c
	}
	m.CreatedAt = cmd.Op.OperatedAt
	m.CreatedBy = cmd.Op.OperatedBy
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineInitialized, cmd.Op)
	money := m.MoneyInside
	evt.MoneyInside = &money
	evt.Slots = m.SortedSlots()
	amount := m.AmountInTransaction
	evt.AmountInTransaction = &amount
	stats := m.Stats
	evt.Stats = &stats
	return evt, nil
}

func (m *Machine) remove(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	if m.AmountInTransaction != 0 {
		reasons = append(reasons, "machine has a transaction in progress")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	now := cmd.Op.OperatedAt
	m.IsDeleted = true
	m.DeletedAt = &now
	m.DeletedBy = cmd.Op.OperatedBy
	m.accept(cmd.Op)

	return m.newEvent(EvtMachineRemoved, cmd.Op), nil
}

func (m *Machine) loadMoney(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	if cmd.Money == nil || cmd.Money.IsZero() {
		reasons = append(reasons, "loaded money must not be zero")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	sum, err := m.MoneyInside.Add(*cmd.Money)
	if err != nil {
		return Event{}, err
	}
	m.MoneyInside = sum
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineMoneyLoaded, cmd.Op)
	money := m.MoneyInside
	evt.MoneyInside = &money
	return evt, nil
}

func (m *Machine) unloadMoney(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	m.MoneyInside = ZeroMoney
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineMoneyUnloaded, cmd.Op)
	money := m.MoneyInside
	evt.MoneyInside = &money
	return evt, nil
}

func (m *Machine) insertMoney(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	if cmd.Money == nil || !cmd.Money.IsSingleUnit() {
		reasons = append(reasons, "inserted money must be a single coin or note")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	sum, err := m.MoneyInside.Add(*cmd.Money)
	if err != nil {
		return Event{}, err
	}
	m.MoneyInside = sum
	m.AmountInTransaction += cmd.Money.Amount()
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineMoneyInserted, cmd.Op)
	money := m.MoneyInside
	evt.MoneyInside = &money
	amount := m.AmountInTransaction
	evt.AmountInTransaction = &amount
	return evt, nil
}

func (m *Machine) returnMoney(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	change, ok := m.MoneyInside.CanAllocate(m.AmountInTransaction)
	if !ok {
		reasons = append(reasons, "machine cannot allocate exact change")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	left, err := m.MoneyInside.Sub(change)
	if err != nil {
		return Event{}, err
	}
	m.MoneyInside = left
	m.AmountInTransaction -= change.Amount()
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineMoneyReturned, cmd.Op)
	money := m.MoneyInside
	evt.MoneyInside = &money
	amount := m.AmountInTransaction
	evt.AmountInTransaction = &amount
	return evt, nil
}

func (m *Machine) loadSnacks(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	slot := m.Slots[cmd.Position]
	if slot == nil {
		reasons = append(reasons, fmt.Sprintf("slot %d does not exist", cmd.Position))
	}
	if cmd.Pile == nil {
		reasons = append(reasons, "snack pile is required")
	}
	if slot != nil && slot.Pile != nil && cmd.Pile != nil && slot.Pile.SnackID != cmd.Pile.SnackID {
		reasons = append(reasons, fmt.Sprintf("slot %d already holds a different snack", cmd.Position))
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	if slot.Pile == nil {
		pile := *cmd.Pile
		slot.Pile = &pile
	} else {
		merged, err := slot.Pile.Add(cmd.Pile.Quantity)
		if err != nil {
			return Event{}, err
		}
		slot.Pile = &merged
	}
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineSnacksLoaded, cmd.Op)
	s := slot.clone()
	evt.Slot = &s
	stats := m.Stats
	evt.Stats = &stats
	return evt, nil
}

func (m *Machine) unloadSnacks(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	slot := m.Slots[cmd.Position]
	if slot == nil {
		reasons = append(reasons, fmt.Sprintf("slot %d does not exist", cmd.Position))
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	slot.Pile = nil
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineSnacksUnloaded, cmd.Op)
	s := slot.clone()
	evt.Slot = &s
	stats := m.Stats
	evt.Stats = &stats
	return evt, nil
}

func (m *Machine) buySnack(cmd Command) (Event, error) {
	var reasons []string
	reasons = m.requireCreated(reasons)
	slot := m.Slots[cmd.Position]
	if slot == nil {
		reasons = append(reasons, fmt.Sprintf("slot %d does not exist", cmd.Position))
	}
	var price int64
	switch {
	case slot == nil:
	case slot.Pile == nil || slot.Pile.Quantity < 1:
		reasons = append(reasons, fmt.Sprintf("slot %d has no snacks left", cmd.Position))
	default:
		price = slot.Pile.Price
		if m.AmountInTransaction < price {
			reasons = append(reasons, "not enough money deposited")
		} else if _, ok := m.MoneyInside.CanAllocate(m.AmountInTransaction - price); !ok {
			reasons = append(reasons, "machine cannot allocate change for the remaining amount")
		}
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	sold, err := slot.Pile.Sub(1)
	if err != nil {
		return Event{}, err
	}
	snackID := slot.Pile.SnackID
	slot.Pile = &sold
	m.AmountInTransaction -= price
	m.accept(cmd.Op)

	evt := m.newEvent(EvtMachineSnackBought, cmd.Op)
	s := slot.clone()
	evt.Slot = &s
	amount := m.AmountInTransaction
	evt.AmountInTransaction = &amount
	money := m.MoneyInside
	evt.MoneyInside = &money
	stats := m.Stats
	evt.Stats = &stats
	evt.BoughtPrice = &price
	evt.SnackID = &snackID
	return evt, nil
}

// accept finalizes a successful command: audit stamp, version bump, derived
// stat recomputation.
func (m *Machine) accept(op Operation) {
	m.LastModifiedAt = op.OperatedAt
	m.LastModifiedBy = op.OperatedBy
	m.Version++
	m.recomputeStats()
}

func (m *Machine) recomputeStats() {
	stats := MachineStats{SlotCount: len(m.Slots)}
	distinct := map[uuid.UUID]bool{}
	for _, s := range m.Slots {
		if s.Pile == nil || s.Pile.Quantity == 0 {
			continue
		}
		distinct[s.Pile.SnackID] = true
		stats.SnackQuantity += s.Pile.Quantity
		stats.SnackAmount += s.Pile.Amount()
	}
	stats.SnackCount = len(distinct)
	m.Stats = stats
}

func (m *Machine) newEvent(kind EventKind, op Operation) Event {
	return Event{
		Kind:        kind,
		AggregateID: m.ID,
		Version:     m.Version,
		TraceID:     op.TraceID,
		OperatedAt:  op.OperatedAt,
		OperatedBy:  op.OperatedBy,
	}
}
