package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	cartapp "skirent/internal/app/handlers/cart"
	refundsapp "skirent/internal/app/handlers/refunds"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainrefund "skirent/internal/domain/refund"
	domainrange "skirent/internal/domain/shared/daterange"
)

// respondDomainError translates application and domain errors into HTTP
// status codes. Anything unmapped is logged and answered with a 500 so
// internals do not leak.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domaincatalog.ErrProductNotFound),
		errors.Is(err, domaincatalog.ErrVariantNotFound),
		errors.Is(err, domaincatalog.ErrUnitNotFound),
		errors.Is(err, domaincatalog.ErrPeriodNotFound),
		errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainbooking.ErrDetailNotFound),
		errors.Is(err, domainrefund.ErrRefundNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrNoUnitsAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainrefund.ErrPendingRefundExists),
		errors.Is(err, domaincatalog.ErrDuplicateVariant),
		errors.Is(err, domaincatalog.ErrPeriodRangeOverlap),
		errors.Is(err, domainbooking.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrTimeWindowsRequired),
		errors.Is(err, domainbooking.ErrDeliveryMethodNeeded),
		errors.Is(err, domainbooking.ErrEmptyCart),
		errors.Is(err, domainbooking.ErrNotCart),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domaincatalog.ErrVariantNotOfProduct),
		errors.Is(err, cartapp.ErrProductInactive),
		errors.Is(err, refundsapp.ErrNotRefundable),
		errors.Is(err, refundsapp.ErrNoPaymentIntent),
		errors.Is(err, domainrefund.ErrWindowClosed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, cartapp.ErrDetailNotOwned),
		errors.Is(err, refundsapp.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
