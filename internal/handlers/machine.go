package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/data/aggregates"
	"github.com/yungbote/snackfleet-backend/internal/domain"
)

type MachineHandler struct {
	arena *aggregates.Arena
}

func NewMachineHandler(arena *aggregates.Arena) *MachineHandler {
	return &MachineHandler{arena: arena}
}

type slotRequest struct {
	Position int        `json:"position"`
	SnackID  *uuid.UUID `json:"snack_id,omitempty"`
	Quantity int        `json:"quantity"`
	Price    int64      `json:"price"`
}

func (mh *MachineHandler) Initialize(c *gin.Context) {
	var req struct {
		ID          *uuid.UUID    `json:"id,omitempty"`
		MoneyInside *moneyRequest `json:"money_inside,omitempty"`
		Slots       []slotRequest `json:"slots"`
		OperatedBy  string        `json:"operated_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id := uuid.New()
	if req.ID != nil {
		id = *req.ID
	}

	cmd := domain.Command{
		Kind: domain.CmdInitializeMachine,
		Op:   domain.NewOperation(req.OperatedBy),
	}
	if req.MoneyInside != nil {
		money, err := req.MoneyInside.toMoney()
		if err != nil {
			respondError(c, err)
			return
		}
		cmd.MoneyInside = &money
	}
	for _, s := range req.Slots {
		slot := domain.Slot{MachineID: id, Position: s.Position}
		if s.SnackID != nil {
			pile, err := domain.NewSnackPile(*s.SnackID, s.Quantity, s.Price)
			if err != nil {
				respondError(c, err)
				return
			}
			slot.Pile = &pile
		}
		cmd.Slots = append(cmd.Slots, slot)
	}

	evt, err := mh.arena.Execute(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "version": evt.Version, "trace_id": evt.TraceID})
}

func (mh *MachineHandler) Remove(c *gin.Context) {
	mh.execute(c, func(_ *gin.Context) (domain.Command, error) {
		return domain.Command{Kind: domain.CmdRemoveMachine}, nil
	})
}

func (mh *MachineHandler) LoadMoney(c *gin.Context) {
	mh.execute(c, func(c *gin.Context) (domain.Command, error) {
		var req struct {
			Money moneyRequest `json:"money"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return domain.Command{}, domain.NewValidationError(string(domain.CmdLoadMoney), []string{"invalid request body"})
		}
		money, err := req.Money.toMoney()
		if err != nil {
			return domain.Command{}, err
		}
		return domain.Command{Kind: domain.CmdLoadMoney, Money: &money}, nil
	})
}

func (mh *MachineHandler) UnloadMoney(c *gin.Context) {
	mh.execute(c, func(_ *gin.Context) (domain.Command, error) {
		return domain.Command{Kind: domain.CmdUnloadMoney}, nil
	})
}

func (mh *MachineHandler) InsertMoney(c *gin.Context) {
	mh.execute(c, func(c *gin.Context) (domain.Command, error) {
		var req struct {
			Money moneyRequest `json:"money"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return domain.Command{}, domain.NewValidationError(string(domain.CmdInsertMoney), []string{"invalid request body"})
		}
		money, err := req.Money.toMoney()
		if err != nil {
			return domain.Command{}, err
		}
		return domain.Command{Kind: domain.CmdInsertMoney, Money: &money}, nil
	})
}

func (mh *MachineHandler) ReturnMoney(c *gin.Context) {
	mh.execute(c, func(_ *gin.Context) (domain.Command, error) {
		return domain.Command{Kind: domain.CmdReturnMoney}, nil
	})
}

func (mh *MachineHandler) LoadSnacks(c *gin.Context) {
	mh.execute(c, func(c *gin.Context) (domain.Command, error) {
		var req struct {
			Position int       `json:"position"`
			SnackID  uuid.UUID `json:"snack_id"`
			Quantity int       `json:"quantity"`
			Price    int64     `json:"price"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return domain.Command{}, domain.NewValidationError(string(domain.CmdLoadSnacks), []string{"invalid request body"})
		}
		pile, err := domain.NewSnackPile(req.SnackID, req.Quantity, req.Price)
		if err != nil {
			return domain.Command{}, err
		}
		return domain.Command{Kind: domain.CmdLoadSnacks, Position: req.Position, Pile: &pile}, nil
	})
}

func (mh *MachineHandler) UnloadSnacks(c *gin.Context) {
	mh.execute(c, func(c *gin.Context) (domain.Command, error) {
		var req struct {
			Position int `json:"position"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return domain.Command{}, domain.NewValidationError(string(domain.CmdUnloadSnacks), []string{"invalid request body"})
		}
		return domain.Command{Kind: domain.CmdUnloadSnacks, Position: req.Position}, nil
	})
}

func (mh *MachineHandler) BuySnack(c *gin.Context) {
	mh.execute(c, func(c *gin.Context) (domain.Command, error) {
		var req struct {
			Position int `json:"position"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return domain.Command{}, domain.NewValidationError(string(domain.CmdBuySnack), []string{"invalid request body"})
		}
		return domain.Command{Kind: domain.CmdBuySnack, Position: req.Position}, nil
	})
}

// execute handles the shared path: id from route, operator from header,
// command through the arena.
func (mh *MachineHandler) execute(c *gin.Context, build func(c *gin.Context) (domain.Command, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	cmd, err := build(c)
	if err != nil {
		respondError(c, err)
		return
	}
	cmd.Op = domain.NewOperation(c.GetHeader("X-Operator"))

	evt, err := mh.arena.Execute(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "version": evt.Version, "trace_id": evt.TraceID})
}
