package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testOp() Operation {
	return Operation{TraceID: uuid.New(), OperatedAt: time.Now().UTC(), OperatedBy: "tester"}
}

func initializedMachine(t *testing.T, positions ...int) *Machine {
	t.Helper()
	m := NewMachine(uuid.New())
	slots := make([]Slot, 0, len(positions))
	for _, pos := range positions {
		slots = append(slots, Slot{MachineID: m.ID, Position: pos})
	}
	evt, err := m.Execute(Command{Kind: CmdInitializeMachine, Op: testOp(), Slots: slots})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if evt.Kind != EvtMachineInitialized {
		t.Fatalf("initialize: want=%s got=%s", EvtMachineInitialized, evt.Kind)
	}
	return m
}

func loadPile(t *testing.T, m *Machine, position int, pile SnackPile) {
	t.Helper()
	if _, err := m.Execute(Command{Kind: CmdLoadSnacks, Op: testOp(), Position: position, Pile: &pile}); err != nil {
		t.Fatalf("load snacks: %v", err)
	}
}

func insertMoney(t *testing.T, m *Machine, units ...Money) {
	t.Helper()
	for _, u := range units {
		money := u
		if _, err := m.Execute(Command{Kind: CmdInsertMoney, Op: testOp(), Money: &money}); err != nil {
			t.Fatalf("insert money: %v", err)
		}
	}
}

func TestMachineInitialize(t *testing.T) {
	m := NewMachine(uuid.New())
	inside, _ := NewMoney(10, 0, 0, 0, 0, 0, 0)
	evt, err := m.Execute(Command{
		Kind:        CmdInitializeMachine,
		Op:          testOp(),
		MoneyInside: &inside,
		Slots: []Slot{
			{MachineID: m.ID, Position: 2},
			{MachineID: m.ID, Position: 1},
		},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if m.Version != 1 {
		t.Fatalf("version: want=1 got=%d", m.Version)
	}
	if m.MoneyInside != inside {
		t.Fatalf("money inside: want=%+v got=%+v", inside, m.MoneyInside)
	}
	if evt.Version != 1 || evt.MoneyInside == nil || *evt.MoneyInside != inside {
		t.Fatalf("event payload: %+v", evt)
	}
	if len(evt.Slots) != 2 || evt.Slots[0].Position != 1 || evt.Slots[1].Position != 2 {
		t.Fatalf("event slots not sorted: %+v", evt.Slots)
	}
	if evt.Stats == nil || evt.Stats.SlotCount != 2 || evt.Stats.SnackCount != 0 {
		t.Fatalf("event stats: %+v", evt.Stats)
	}
}

func TestMachineInitializeCollectsAllReasons(t *testing.T) {
	m := initializedMachine(t, 1)
	_, err := m.Execute(Command{
		Kind: CmdInitializeMachine,
		Op:   Operation{TraceID: uuid.New(), OperatedAt: time.Now().UTC()},
		Slots: []Slot{
			{MachineID: uuid.New(), Position: 0},
			{MachineID: m.ID, Position: 0},
			{MachineID: m.ID, Position: -1},
		},
	})
	if !IsCode(err, CodeValidation) {
		t.Fatalf("want=%s got=%v", CodeValidation, err)
	}
	reasons := ReasonsOf(err)
	if len(reasons) != 5 {
		t.Fatalf("reasons: want=5 got=%d (%v)", len(reasons), reasons)
	}
	if m.Version != 1 {
		t.Fatalf("rejected command mutated machine: version=%d", m.Version)
	}
}

func TestMachineRemoveIsTerminal(t *testing.T) {
	m := initializedMachine(t, 1)
	evt, err := m.Execute(Command{Kind: CmdRemoveMachine, Op: testOp()})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if evt.Kind != EvtMachineRemoved || !m.IsDeleted || m.DeletedAt == nil {
		t.Fatalf("remove: %+v deleted=%v", evt, m.IsDeleted)
	}

	money := OneYuan
	if _, err := m.Execute(Command{Kind: CmdLoadMoney, Op: testOp(), Money: &money}); !IsCode(err, CodeValidation) {
		t.Fatalf("command after remove: want=%s got=%v", CodeValidation, err)
	}
}

func TestMachineRemoveRejectedMidTransaction(t *testing.T) {
	m := initializedMachine(t, 1)
	insertMoney(t, m, OneYuan)
	_, err := m.Execute(Command{Kind: CmdRemoveMachine, Op: testOp()})
	if !IsCode(err, CodeValidation) {
		t.Fatalf("want=%s got=%v", CodeValidation, err)
	}
	if !strings.Contains(err.Error(), "transaction in progress") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestMachineLoadAndUnloadMoney(t *testing.T) {
	m := initializedMachine(t, 1)
	load, _ := NewMoney(0, 0, 2, 0, 0, 0, 0)
	evt, err := m.Execute(Command{Kind: CmdLoadMoney, Op: testOp(), Money: &load})
	if err != nil {
		t.Fatalf("load money: %v", err)
	}
	if m.MoneyInside != load || evt.MoneyInside == nil || *evt.MoneyInside != load {
		t.Fatalf("load money: machine=%+v event=%+v", m.MoneyInside, evt.MoneyInside)
	}

	if _, err := m.Execute(Command{Kind: CmdLoadMoney, Op: testOp(), Money: &ZeroMoney}); !IsCode(err, CodeValidation) {
		t.Fatalf("load zero: want=%s got=%v", CodeValidation, err)
	}

	evt, err = m.Execute(Command{Kind: CmdUnloadMoney, Op: testOp()})
	if err != nil {
		t.Fatalf("unload money: %v", err)
	}
	if !m.MoneyInside.IsZero() || evt.MoneyInside == nil || !evt.MoneyInside.IsZero() {
		t.Fatalf("unload money left cash behind: %+v", m.MoneyInside)
	}
}

func TestMachineInsertMoney(t *testing.T) {
	m := initializedMachine(t, 1)
	insertMoney(t, m, TenYuan, FiveYuan)
	if m.AmountInTransaction != 15 {
		t.Fatalf("amount in transaction: want=15 got=%d", m.AmountInTransaction)
	}
	if got := m.MoneyInside.Amount(); got != 15 {
		t.Fatalf("money inside: want=15 got=%d", got)
	}

	two, _ := NewMoney(2, 0, 0, 0, 0, 0, 0)
	if _, err := m.Execute(Command{Kind: CmdInsertMoney, Op: testOp(), Money: &two}); !IsCode(err, CodeValidation) {
		t.Fatalf("insert non-unit: want=%s got=%v", CodeValidation, err)
	}
}

func TestMachineReturnMoney(t *testing.T) {
	m := initializedMachine(t, 1)
	insertMoney(t, m, TenYuan, FiveYuan)

	evt, err := m.Execute(Command{Kind: CmdReturnMoney, Op: testOp()})
	if err != nil {
		t.Fatalf("return money: %v", err)
	}
	if m.AmountInTransaction != 0 {
		t.Fatalf("amount in transaction: want=0 got=%d", m.AmountInTransaction)
	}
	if got := m.MoneyInside.Amount(); got != 0 {
		t.Fatalf("money inside: want=0 got=%d", got)
	}
	if evt.AmountInTransaction == nil || *evt.AmountInTransaction != 0 {
		t.Fatalf("event amount: %+v", evt.AmountInTransaction)
	}
}

func TestMachineReturnMoneyUnallocatable(t *testing.T) {
	m := initializedMachine(t, 1)
	// Deposit 2 as two single yuan coins, then drain the cash box so no
	// change can be picked.
	insertMoney(t, m, OneYuan, OneYuan)
	if _, err := m.Execute(Command{Kind: CmdUnloadMoney, Op: testOp()}); err != nil {
		t.Fatalf("unload money: %v", err)
	}
	if _, err := m.Execute(Command{Kind: CmdReturnMoney, Op: testOp()}); !IsCode(err, CodeValidation) {
		t.Fatalf("return with empty box: want=%s got=%v", CodeValidation, err)
	}
	if m.AmountInTransaction != 2 {
		t.Fatalf("rejected return mutated amount: got=%d", m.AmountInTransaction)
	}
}

func TestMachineLoadSnacks(t *testing.T) {
	m := initializedMachine(t, 1, 2)
	snackID := uuid.New()
	pile, _ := NewSnackPile(snackID, 5, 3)

	evt, err := m.Execute(Command{Kind: CmdLoadSnacks, Op: testOp(), Position: 1, Pile: &pile})
	if err != nil {
		t.Fatalf("load snacks: %v", err)
	}
	if evt.Slot == nil || evt.Slot.Pile == nil || evt.Slot.Pile.Quantity != 5 {
		t.Fatalf("event slot: %+v", evt.Slot)
	}
	if evt.Stats == nil || evt.Stats.SnackQuantity != 5 || evt.Stats.SnackAmount != 15 || evt.Stats.SnackCount != 1 {
		t.Fatalf("event stats: %+v", evt.Stats)
	}

	// Same snack merges quantities at the slot price.
	more, _ := NewSnackPile(snackID, 2, 3)
	if _, err := m.Execute(Command{Kind: CmdLoadSnacks, Op: testOp(), Position: 1, Pile: &more}); err != nil {
		t.Fatalf("reload snacks: %v", err)
	}
	if got := m.Slots[1].Pile.Quantity; got != 7 {
		t.Fatalf("merged quantity: want=7 got=%d", got)
	}

	other, _ := NewSnackPile(uuid.New(), 1, 3)
	if _, err := m.Execute(Command{Kind: CmdLoadSnacks, Op: testOp(), Position: 1, Pile: &other}); !IsCode(err, CodeValidation) {
		t.Fatalf("different snack in occupied slot: want=%s got=%v", CodeValidation, err)
	}
	if _, err := m.Execute(Command{Kind: CmdLoadSnacks, Op: testOp(), Position: 9, Pile: &pile}); !IsCode(err, CodeValidation) {
		t.Fatalf("missing slot: want=%s got=%v", CodeValidation, err)
	}
}

func TestMachineUnloadSnacks(t *testing.T) {
	m := initializedMachine(t, 1)
	pile, _ := NewSnackPile(uuid.New(), 5, 3)
	loadPile(t, m, 1, pile)

	evt, err := m.Execute(Command{Kind: CmdUnloadSnacks, Op: testOp(), Position: 1})
	if err != nil {
		t.Fatalf("unload snacks: %v", err)
	}
	if m.Slots[1].Pile != nil {
		t.Fatalf("slot still holds pile: %+v", m.Slots[1].Pile)
	}
	if evt.Slot == nil || evt.Slot.Pile != nil {
		t.Fatalf("event slot: %+v", evt.Slot)
	}
	if evt.Stats == nil || evt.Stats.SnackQuantity != 0 {
		t.Fatalf("event stats: %+v", evt.Stats)
	}
}

func TestMachineBuySnack(t *testing.T) {
	m := initializedMachine(t, 1)
	snackID := uuid.New()
	pile, _ := NewSnackPile(snackID, 2, 3)
	loadPile(t, m, 1, pile)
	insertMoney(t, m, FiveYuan)

	evt, err := m.Execute(Command{Kind: CmdBuySnack, Op: testOp(), Position: 1})
	if err != nil {
		t.Fatalf("buy snack: %v", err)
	}
	if m.AmountInTransaction != 2 {
		t.Fatalf("amount in transaction: want=2 got=%d", m.AmountInTransaction)
	}
	if got := m.Slots[1].Pile.Quantity; got != 1 {
		t.Fatalf("slot quantity: want=1 got=%d", got)
	}
	if evt.BoughtPrice == nil || *evt.BoughtPrice != 3 {
		t.Fatalf("bought price: %+v", evt.BoughtPrice)
	}
	if evt.SnackID == nil || *evt.SnackID != snackID {
		t.Fatalf("snack id: %+v", evt.SnackID)
	}
	if evt.Stats == nil || evt.Stats.SnackQuantity != 1 {
		t.Fatalf("event stats: %+v", evt.Stats)
	}
}

func TestMachineBuySnackRejections(t *testing.T) {
	m := initializedMachine(t, 1, 2)
	pile, _ := NewSnackPile(uuid.New(), 1, 3)
	loadPile(t, m, 1, pile)

	if _, err := m.Execute(Command{Kind: CmdBuySnack, Op: testOp(), Position: 2}); !IsCode(err, CodeValidation) {
		t.Fatalf("empty slot: want=%s got=%v", CodeValidation, err)
	}
	if _, err := m.Execute(Command{Kind: CmdBuySnack, Op: testOp(), Position: 1}); !IsCode(err, CodeValidation) {
		t.Fatalf("no money deposited: want=%s got=%v", CodeValidation, err)
	}

	// Deposit a 5 note for a 3-yuan snack: the box holds just that note, so
	// the 2-yuan remainder cannot be picked as change.
	insertMoney(t, m, FiveYuan)
	_, err := m.Execute(Command{Kind: CmdBuySnack, Op: testOp(), Position: 1})
	if !IsCode(err, CodeValidation) {
		t.Fatalf("unallocatable remainder: want=%s got=%v", CodeValidation, err)
	}
	if got := m.Slots[1].Pile.Quantity; got != 1 {
		t.Fatalf("rejected buy mutated slot: quantity=%d", got)
	}
}

func TestMachineVersionBumpsOncePerCommand(t *testing.T) {
	m := initializedMachine(t, 1)
	insertMoney(t, m, OneYuan)
	if m.Version != 2 {
		t.Fatalf("version: want=2 got=%d", m.Version)
	}
	evt, err := m.Execute(Command{Kind: CmdReturnMoney, Op: testOp()})
	if err != nil {
		t.Fatalf("return money: %v", err)
	}
	if m.Version != 3 || evt.Version != 3 {
		t.Fatalf("version: want=3 got machine=%d event=%d", m.Version, evt.Version)
	}
}

func TestMachineCloneIsIndependent(t *testing.T) {
	m := initializedMachine(t, 1)
	pile, _ := NewSnackPile(uuid.New(), 5, 3)
	loadPile(t, m, 1, pile)

	c := m.Clone()
	c.Slots[1].Pile.Quantity = 99
	c.Version = 42
	if m.Slots[1].Pile.Quantity != 5 || m.Version == 42 {
		t.Fatalf("clone shares state: quantity=%d version=%d", m.Slots[1].Pile.Quantity, m.Version)
	}
}
