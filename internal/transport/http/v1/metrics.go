package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// MetricsSummary returns the headline counters as JSON.
// GET /api/metrics/summary
func (h *Handler) MetricsSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.MetricsSummary())
}
