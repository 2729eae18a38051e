// Package reconcile applies a single new price observation per symbol to the
// most recent stored snapshot, producing a new internally consistent snapshot
// without access to the full price history.
package reconcile

import (
	"time"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
	"github.com/tickerpulse/tickerpulse/internal/indicator"
	"github.com/tickerpulse/tickerpulse/internal/logger"
)

// Reconcile produces one candidate snapshot per valid observation.
//
// Symbols are evaluated independently:
//   - No prior snapshot: the first observation is trivially its own running
//     high, so hi52w = price and pctVs52w = 0; sma150 stays nil until a full
//     derivation runs.
//   - Prior snapshot exists: sma150 is carried forward unchanged (it cannot be
//     recomputed without history, so it goes stale between full-derivation
//     runs), hi52w ratchets to max(prior, price), and both percentage fields
//     are recomputed against the values actually in the new row.
//
// Observations without a symbol or price are dropped and counted in the
// returned skip count; they never abort the batch.
//
// Each emitted snapshot is stamped with now; when now is not after the prior
// row's UpdatedAt the timestamp is bumped just past it, so UpdatedAt strictly
// increases per symbol. Replayed observations therefore create new rows rather
// than overwriting old ones; deduplication, if needed, belongs upstream.
//
// Output order is unspecified. Nothing is written here; persistence is a
// separate, explicit step.
func Reconcile(priors map[string]*models.Snapshot, observations []models.Observation, now time.Time) ([]models.Snapshot, int) {
	out := make([]models.Snapshot, 0, len(observations))
	skipped := 0

	for _, obs := range observations {
		if !obs.Valid() {
			skipped++
			logger.L().Warn().
				Str("symbol", obs.Symbol).
				Bool("has_price", obs.Price != nil).
				Msg("invalid observation skipped")
			continue
		}
		out = append(out, apply(priors[obs.Symbol], obs, now))
	}

	return out, skipped
}

// apply folds one observation into the prior snapshot for that symbol.
func apply(prior *models.Snapshot, obs models.Observation, now time.Time) models.Snapshot {
	price := *obs.Price

	hi := price
	var sma *float64
	if prior != nil {
		if prior.Hi52W != nil && *prior.Hi52W > price {
			hi = *prior.Hi52W
		}
		if prior.SMA150 != nil {
			v := *prior.SMA150
			sma = &v
		}
	}

	ts := now
	if prior != nil && !ts.After(prior.UpdatedAt) {
		ts = prior.UpdatedAt.Add(time.Microsecond)
	}

	return models.Snapshot{
		Symbol:      obs.Symbol,
		LastPrice:   price,
		SMA150:      sma,
		Hi52W:       &hi,
		PctVsSMA150: indicator.PercentDeviation(price, sma),
		PctVs52W:    indicator.PercentDeviation(price, &hi),
		UpdatedAt:   ts,
	}
}
