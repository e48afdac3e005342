package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skirent/internal/app/commands"
	checkoutapp "skirent/internal/app/handlers/checkout"
	"skirent/internal/app/handlers/payments"
	domainbooking "skirent/internal/domain/booking"
)

type CheckoutHTTP interface {
	Begin(c *gin.Context)
	Status(c *gin.Context)
}

type CheckoutHandler struct {
	Commands   commands.Bus
	Reconciler *payments.Reconciler
	Logger     *slog.Logger
}

func (h CheckoutHandler) Begin(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := checkoutapp.BeginCheckoutCommand{UserID: user.ID}
	result, err := commands.Dispatch[checkoutapp.BeginCheckoutCommand, *checkoutapp.BeginCheckoutResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Status is the post-redirect landing call. It triggers the synchronous
// reconciliation path so the customer sees a confirmed booking even when
// the webhook has not arrived yet.
func (h CheckoutHandler) Status(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Reconciler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments unavailable"})
		return
	}
	booking, err := h.Reconciler.CheckAndConfirm(c.Request.Context(), domainbooking.BookingID(c.Param("id")), user.ID)
	if err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking_id": string(booking.ID),
		"reference":  booking.Reference,
		"status":     string(booking.Status),
	})
}

var _ CheckoutHTTP = (*CheckoutHandler)(nil)
