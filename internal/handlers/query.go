package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/data/repos"
)

// QueryHandler serves the denormalized read models. These are eventually
// consistent and must never feed command validation.
type QueryHandler struct {
	machineViews repos.MachineViewRepo
	snackViews   repos.SnackViewRepo
	snackStats   repos.SnackStatRepo
	purchases    repos.PurchaseRepo
}

func NewQueryHandler(
	machineViews repos.MachineViewRepo,
	snackViews repos.SnackViewRepo,
	snackStats repos.SnackStatRepo,
	purchases repos.PurchaseRepo,
) *QueryHandler {
	return &QueryHandler{
		machineViews: machineViews,
		snackViews:   snackViews,
		snackStats:   snackStats,
		purchases:    purchases,
	}
}

func (qh *QueryHandler) ListMachines(c *gin.Context) {
	views, err := qh.machineViews.List(c.Request.Context(), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machines": views})
}

func (qh *QueryHandler) GetMachine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	view, err := qh.machineViews.Get(c.Request.Context(), nil, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (qh *QueryHandler) ListMachinePurchases(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return
	}
	purchases, err := qh.purchases.ListByMachine(c.Request.Context(), nil, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

func (qh *QueryHandler) ListSnacks(c *gin.Context) {
	views, err := qh.snackViews.List(c.Request.Context(), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snacks": views})
}

func (qh *QueryHandler) GetSnack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snack id"})
		return
	}
	view, err := qh.snackViews.Get(c.Request.Context(), nil, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (qh *QueryHandler) ListSnackStats(c *gin.Context) {
	stats, err := qh.snackStats.List(c.Request.Context(), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
