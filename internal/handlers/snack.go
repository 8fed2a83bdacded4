package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/data/aggregates"
	"github.com/yungbote/snackfleet-backend/internal/domain"
)

type SnackHandler struct {
	arena *aggregates.Arena
}

func NewSnackHandler(arena *aggregates.Arena) *SnackHandler {
	return &SnackHandler{arena: arena}
}

func (sh *SnackHandler) Initialize(c *gin.Context) {
	var req struct {
		ID         *uuid.UUID `json:"id,omitempty"`
		Name       string     `json:"name"`
		PictureURL string     `json:"picture_url"`
		OperatedBy string     `json:"operated_by"`
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
		Kind:       domain.CmdInitializeSnack,
		Op:         domain.NewOperation(req.OperatedBy),
		Name:       req.Name,
		PictureURL: req.PictureURL,
	}
	evt, err := sh.arena.Execute(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "version": evt.Version, "trace_id": evt.TraceID})
}

func (sh *SnackHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snack id"})
		return
	}
	var req struct {
		Name       string `json:"name"`
		PictureURL string `json:"picture_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cmd := domain.Command{
		Kind:       domain.CmdUpdateSnack,
		Op:         domain.NewOperation(c.GetHeader("X-Operator")),
		Name:       req.Name,
		PictureURL: req.PictureURL,
	}
	evt, err := sh.arena.Execute(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "version": evt.Version, "trace_id": evt.TraceID})
}

func (sh *SnackHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snack id"})
		return
	}

	cmd := domain.Command{
		Kind: domain.CmdDeleteSnack,
		Op:   domain.NewOperation(c.GetHeader("X-Operator")),
	}
	evt, err := sh.arena.Execute(c.Request.Context(), id, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "version": evt.Version, "trace_id": evt.TraceID})
}
