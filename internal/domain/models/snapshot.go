package models

import "time"

// Snapshot is one persisted row of derived indicators for a single symbol.
//
// Nullable metric fields are pointers: a nil value means the metric could not
// be computed from the data at hand (short history, zero divisor) and is stored
// as SQL NULL. The percentage fields are always derived from their base metric
// and are nil exactly when the base is nil or zero.
//
// Rows are never mutated in place. An "update" inserts a new row with a newer
// UpdatedAt; the current state of a symbol is the row with the maximum
// UpdatedAt. UpdatedAt therefore acts as the logical clock of the
// (updated_at, symbol) time-partition key and strictly increases across
// successive snapshots of the same symbol.
type Snapshot struct {
	Symbol      string    `json:"symbol"`
	LastPrice   float64   `json:"last_price"`
	SMA150      *float64  `json:"sma150"`
	Hi52W       *float64  `json:"hi52w"`
	PctVsSMA150 *float64  `json:"pct_vs_sma150"`
	PctVs52W    *float64  `json:"pct_vs_52w"`
	UpdatedAt   time.Time `json:"updated_at"`
}
