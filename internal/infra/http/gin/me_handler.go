package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	meapp "skirent/internal/app/handlers/me"
	"skirent/internal/app/queries"
)

// MeHTTP serves the authenticated customer's own data.
type MeHTTP interface {
	ListBookings(c *gin.Context)
}

// MeHandler answers /me routes. Any authenticated role may call them; the
// views are already scoped to the requesting user.
type MeHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

var _ MeHTTP = (*MeHandler)(nil)

// ListBookings returns the caller's rental history, carts included.
func (h MeHandler) ListBookings(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[meapp.MyBookingsQuery, []meapp.BookingView](
		c.Request.Context(), h.Queries, meapp.MyBookingsQuery{UserID: user.ID})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("me bookings query failed", "error", err, "user_id", user.ID)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}
