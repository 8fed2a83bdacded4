package domain

import "github.com/google/uuid"

// SnackPile is the quantity x price inventory unit held inside one slot.
// It is a value type; mutation always goes through Add/Sub so the derived
// amount stays consistent.
type SnackPile struct {
	SnackID  uuid.UUID `json:"snack_id"`
	Quantity int       `json:"quantity"`
	Price    int64     `json:"price"`
}

func NewSnackPile(snackID uuid.UUID, quantity int, price int64) (SnackPile, error) {
	if snackID == uuid.Nil {
		return SnackPile{}, NewError(CodeValidation, "snack_pile", "snack id is required", nil)
	}
	if quantity < 0 {
		return SnackPile{}, NewError(CodeInvariantViolation, "snack_pile", "quantity is negative", nil)
	}
	if price < 0 {
		return SnackPile{}, NewError(CodeInvariantViolation, "snack_pile", "price is negative", nil)
	}
	return SnackPile{SnackID: snackID, Quantity: quantity, Price: price}, nil
}

// Amount is the derived value of the whole pile.
func (p SnackPile) Amount() int64 {
	return int64(p.Quantity) * p.Price
}

func (p SnackPile) Add(quantity int) (SnackPile, error) {
	return NewSnackPile(p.SnackID, p.Quantity+quantity, p.Price)
}

func (p SnackPile) Sub(quantity int) (SnackPile, error) {
	return NewSnackPile(p.SnackID, p.Quantity-quantity, p.Price)
}

// Slot is a physical machine position. It is owned exclusively by its
// machine; Pile is nil while the slot sits empty.
type Slot struct {
	MachineID uuid.UUID  `json:"machine_id"`
	Position  int        `json:"position"`
	Pile      *SnackPile `json:"pile,omitempty"`
}

func (s Slot) clone() Slot {
	out := Slot{MachineID: s.MachineID, Position: s.Position}
	if s.Pile != nil {
		pile := *s.Pile
		out.Pile = &pile
	}
	return out
}
