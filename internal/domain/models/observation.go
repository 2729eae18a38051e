package models

import "time"

// Observation is a single latest-price reading for a symbol, produced by a
// price provider and consumed once per reconciliation cycle.
//
// Price is a pointer so that a provider returning a row without a price (a
// delisted or halted symbol, a partial API response) can be represented and
// rejected per-item instead of silently becoming a zero price.
type Observation struct {
	Symbol string
	Price  *float64
	AsOf   time.Time
}

// Valid reports whether the observation can be applied to a snapshot.
func (o Observation) Valid() bool {
	return o.Symbol != "" && o.Price != nil
}
