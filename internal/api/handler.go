package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tickerpulse/tickerpulse/internal/domain/dto"
	"github.com/tickerpulse/tickerpulse/internal/service"
)

// Handler provides HTTP handlers for derived ticker metrics endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Interact with the service layer for data access
//   - Translate snapshots into response DTOs
//   - Return structured JSON responses with appropriate HTTP status codes
type Handler struct {
	svc service.MetricsService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.MetricsService) *Handler {
	return &Handler{svc: svc}
}

// GetMetrics handles GET /api/v1/metrics requests.
//
// Query Parameters:
//   - symbol (string, optional): Ticker symbol (e.g., "AAPL"). When present,
//     the response holds that symbol's latest snapshot; when absent, the
//     response is the latest snapshot of every tracked symbol.
//
// Responses:
//   - 200 OK: MetricsResponse, or an array of MetricsResponse without a symbol.
//   - 404 Not Found: The requested symbol has never been tracked.
//   - 500 Internal Server Error: Failure in the service or database layer.
func (h *Handler) GetMetrics(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		h.listMetrics(c)
		return
	}

	snap, err := h.svc.GetSnapshot(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch metrics", err))
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no metrics found for symbol", nil))
		return
	}

	c.JSON(http.StatusOK, dto.NewMetricsResponse(*snap))
}

func (h *Handler) listMetrics(c *gin.Context) {
	snaps, err := h.svc.ListSnapshots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch metrics", err))
		return
	}

	out := make([]dto.MetricsResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, dto.NewMetricsResponse(s))
	}
	c.JSON(http.StatusOK, out)
}
