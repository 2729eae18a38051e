// Package provider fetches price data from external market-data APIs.
package provider

import (
	"context"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
)

// Provider is the capability interface the batch pipeline depends on. Retry
// policy lives inside implementations; callers never see transient failures
// that a retry absorbed.
type Provider interface {
	// LatestQuote returns the most recent closing-price observation for a symbol.
	LatestQuote(ctx context.Context, symbol string) (models.Observation, error)

	// DailyHistory returns the daily bar history for a symbol, ascending by date.
	DailyHistory(ctx context.Context, symbol string) ([]models.Bar, error)

	Name() string
}
