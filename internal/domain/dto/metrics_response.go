package dto

import (
	"time"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
)

// MetricsResponse represents the JSON structure returned by the
// GET /api/v1/metrics endpoint.
//
// Nullable indicators serialize as JSON null when the metric could not be
// derived, mirroring how the rows are stored.
type MetricsResponse struct {
	Symbol      string    `json:"symbol" example:"AAPL"`
	LastPrice   float64   `json:"last_price" example:"170.50"`
	SMA150      *float64  `json:"sma150" example:"158.32"`
	Hi52W       *float64  `json:"hi52w" example:"182.10"`
	PctVsSMA150 *float64  `json:"pct_vs_sma150" example:"7.69"`
	PctVs52W    *float64  `json:"pct_vs_52w" example:"-6.37"`
	UpdatedAt   time.Time `json:"updated_at" example:"2025-06-02T14:00:00Z"`
}

// NewMetricsResponse maps a stored snapshot onto the API contract.
func NewMetricsResponse(s models.Snapshot) MetricsResponse {
	return MetricsResponse{
		Symbol:      s.Symbol,
		LastPrice:   s.LastPrice,
		SMA150:      s.SMA150,
		Hi52W:       s.Hi52W,
		PctVsSMA150: s.PctVsSMA150,
		PctVs52W:    s.PctVs52W,
		UpdatedAt:   s.UpdatedAt,
	}
}
