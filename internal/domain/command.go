package domain

import (
	"time"

	"github.com/google/uuid"
)

type CommandKind string

const (
	CmdInitializeMachine CommandKind = "machine.initialize"
	CmdRemoveMachine     CommandKind = "machine.remove"
	CmdLoadMoney         CommandKind = "machine.load_money"
	CmdUnloadMoney       CommandKind = "machine.unload_money"
	CmdInsertMoney       CommandKind = "machine.insert_money"
	CmdReturnMoney       CommandKind = "machine.return_money"
	CmdLoadSnacks        CommandKind = "machine.load_snacks"
	CmdUnloadSnacks      CommandKind = "machine.unload_snacks"
	CmdBuySnack          CommandKind = "machine.buy_snack"

	CmdInitializeSnack CommandKind = "snack.initialize"
	CmdUpdateSnack     CommandKind = "snack.update"
	CmdDeleteSnack     CommandKind = "snack.delete"
)

// Operation is the metadata every command carries.
type Operation struct {
	TraceID    uuid.UUID `json:"trace_id"`
	OperatedAt time.Time `json:"operated_at"`
	OperatedBy string    `json:"operated_by"`
}

// NewOperation stamps a fresh trace id and timestamp for an operator.
func NewOperation(operatedBy string) Operation {
	return Operation{
		TraceID:    uuid.New(),
		OperatedAt: time.Now().UTC(),
		OperatedBy: operatedBy,
	}
}

// Command is the tagged union dispatched through the aggregate arena.
// Kind decides which payload fields are meaningful.
type Command struct {
	Kind CommandKind `json:"kind"`
	Op   Operation   `json:"op"`

	// machine payloads
	MoneyInside *Money     `json:"money_inside,omitempty"` // Initialize
	Money       *Money     `json:"money,omitempty"`        // LoadMoney, InsertMoney
	Slots       []Slot     `json:"slots,omitempty"`        // Initialize
	Position    int        `json:"position"`               // slot commands
	Pile        *SnackPile `json:"pile,omitempty"`         // LoadSnacks

	// snack payloads
	Name       string `json:"name,omitempty"`
	PictureURL string `json:"picture_url,omitempty"`
}
