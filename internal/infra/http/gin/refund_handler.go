package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"skirent/internal/app/handlers/refunds"
	domainbooking "skirent/internal/domain/booking"
)

type RefundHTTP interface {
	Request(c *gin.Context)
}

type RefundHandler struct {
	Service *refunds.Service
	Logger  *slog.Logger
}

func (h RefundHandler) Request(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refunds unavailable"})
		return
	}
	result, err := h.Service.Request(c.Request.Context(), refunds.RequestParams{
		BookingID:        domainbooking.BookingID(c.Param("id")),
		RequestingUserID: user.ID,
		AsAdmin:          user.HasRole("admin"),
	})
	if err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

var _ RefundHTTP = (*RefundHandler)(nil)
