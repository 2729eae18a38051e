// Package indicator computes point-in-time technical indicators from a price
// history. Every function is pure and total: degenerate input (empty series,
// short window, zero divisor) yields a nil result, never an error.
package indicator

import (
	"github.com/tickerpulse/tickerpulse/internal/domain/models"
)

const (
	// SMAWindow is the moving-average window used for derived snapshots.
	SMAWindow = 150
	// HighLookback approximates 52 weeks of trading days.
	HighLookback = 252
)

// MovingAverage returns the arithmetic mean of the trailing window ending at
// the last element of closes. It returns nil when closes is shorter than the
// window or the window is not positive.
func MovingAverage(closes []float64, window int) *float64 {
	if window <= 0 || len(closes) < window {
		return nil
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	avg := sum / float64(window)
	return &avg
}

// TrailingHigh returns the maximum of the last min(lookback, len(highs))
// elements, or nil when highs is empty. A series shorter than the lookback is
// not an error: all available highs are considered.
func TrailingHigh(highs []float64, lookback int) *float64 {
	if len(highs) == 0 || lookback <= 0 {
		return nil
	}
	start := len(highs) - lookback
	if start < 0 {
		start = 0
	}
	max := highs[start]
	for _, h := range highs[start+1:] {
		if h > max {
			max = h
		}
	}
	return &max
}

// PercentDeviation returns the signed percentage of current relative to
// reference: (current-reference)/reference*100. Negative means current is
// below the reference. A nil or zero reference yields nil (the zero case is a
// division guard, not an error path).
func PercentDeviation(current float64, reference *float64) *float64 {
	if reference == nil || *reference == 0 {
		return nil
	}
	pct := (current - *reference) / *reference * 100
	return &pct
}

// Derive builds a fully populated snapshot from an ascending daily history and
// the most recent price. It returns nil when the history is empty or any bar
// is missing its close or high. UpdatedAt is left zero; the caller stamps it
// at write time.
func Derive(history []models.Bar, currentPrice float64) *models.Snapshot {
	if len(history) == 0 {
		return nil
	}

	closes := make([]float64, len(history))
	highs := make([]float64, len(history))
	for i, bar := range history {
		if !bar.Valid() {
			return nil
		}
		closes[i] = bar.Close
		highs[i] = bar.High
	}

	sma := MovingAverage(closes, SMAWindow)
	hi := TrailingHigh(highs, HighLookback)

	return &models.Snapshot{
		LastPrice:   currentPrice,
		SMA150:      sma,
		Hi52W:       hi,
		PctVsSMA150: PercentDeviation(currentPrice, sma),
		PctVs52W:    PercentDeviation(currentPrice, hi),
	}
}
