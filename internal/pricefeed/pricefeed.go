// Package pricefeed provides the market-data capability: live quotes for
// equity symbols, with an HTTP client implementation and a Redis cache that
// serves bounded-stale prices when the upstream feed fails.
package pricefeed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when no price can be produced for a symbol.
// Valuation falls back to cost basis on this error; trade execution treats
// it as fatal — a trade cannot fill without a live quote.
var ErrUnavailable = errors.New("pricefeed: price unavailable")

// Source produces a current price for one symbol.
type Source interface {
	Quote(ctx context.Context, sym string) (decimal.Decimal, error)
}

// BatchSource is an optional extension for sources that can quote several
// symbols in one round trip. Symbols missing from the result are simply
// absent — callers fall back per symbol.
type BatchSource interface {
	Source
	QuoteBatch(ctx context.Context, syms []string) (map[string]decimal.Decimal, error)
}
