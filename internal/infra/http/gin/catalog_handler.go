package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	catalogview "skirent/internal/app/handlers/catalogview"
	"skirent/internal/app/queries"
)

type CatalogHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
}

type CatalogHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h CatalogHandler) List(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	start, end, ok := parseOptionalRange(c)
	if !ok {
		return
	}
	query := catalogview.ListProductsQuery{
		Start:            start,
		End:              end,
		RequestingUserID: principalID(c),
	}
	result, err := queries.Ask[catalogview.ListProductsQuery, []catalogview.ProductView](c.Request.Context(), h.Queries, query)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("catalog listing failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

func (h CatalogHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	start, end, ok := parseOptionalRange(c)
	if !ok {
		return
	}
	query := catalogview.GetProductQuery{
		ProductID:        c.Param("id"),
		Start:            start,
		End:              end,
		RequestingUserID: principalID(c),
	}
	result, err := queries.Ask[catalogview.GetProductQuery, *catalogview.ProductDetailView](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseOptionalRange reads start/end query params as RFC 3339 dates. Both or
// neither must be present.
func parseOptionalRange(c *gin.Context) (time.Time, time.Time, bool) {
	startRaw := c.Query("start")
	endRaw := c.Query("end")
	if startRaw == "" && endRaw == "" {
		return time.Time{}, time.Time{}, true
	}
	start, err := parseTimeParam(startRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return time.Time{}, time.Time{}, false
	}
	end, err := parseTimeParam(endRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func principalID(c *gin.Context) string {
	if p, ok := currentPrincipal(c); ok {
		return p.ID
	}
	return ""
}

var _ CatalogHTTP = (*CatalogHandler)(nil)
