package models

import "time"

// Bar is one daily OHLC-style entry of a price history, reduced to the two
// fields the indicator engine consumes. Histories are ordered ascending by
// date and are transient input only; bars are never persisted.
type Bar struct {
	Date  time.Time
	Close float64
	High  float64
}

// Valid reports whether the bar carries usable price data. A zero close or
// high marks a missing value; one malformed bar poisons the whole derivation
// it belongs to.
func (b Bar) Valid() bool {
	return b.Close != 0 && b.High != 0
}
