package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skirent/internal/app/commands"
	cartapp "skirent/internal/app/handlers/cart"
)

type CartHTTP interface {
	AddItem(c *gin.Context)
	UpdateItem(c *gin.Context)
}

type CartHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type addToCartRequest struct {
	ProductID      string    `json:"product_id"`
	VariantID      string    `json:"variant_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	DeliveryMethod string    `json:"delivery_method"`
	PickupWindow   string    `json:"pickup_window"`
	ReturnWindow   string    `json:"return_window"`
}

func (h CartHandler) AddItem(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := cartapp.AddToCartCommand{
		CommandID:       uuid.NewString(),
		UserID:          user.ID,
		ProductID:       req.ProductID,
		VariantID:       req.VariantID,
		Start:           req.Start,
		End:             req.End,
		DeliveryMethod:  req.DeliveryMethod,
		PickupWindow:    req.PickupWindow,
		ReturnWindow:    req.ReturnWindow,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[cartapp.AddToCartCommand, *cartapp.AddToCartResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type updateDetailRequest struct {
	DeliveryMethod string `json:"delivery_method"`
	PickupWindow   string `json:"pickup_window"`
	ReturnWindow   string `json:"return_window"`
}

func (h CartHandler) UpdateItem(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req updateDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := cartapp.UpdateDetailCommand{
		UserID:         user.ID,
		DetailID:       c.Param("id"),
		DeliveryMethod: req.DeliveryMethod,
		PickupWindow:   req.PickupWindow,
		ReturnWindow:   req.ReturnWindow,
	}
	if _, err := commands.Dispatch[cartapp.UpdateDetailCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ CartHTTP = (*CartHandler)(nil)
