// Package valuation computes instantaneous portfolio value, net worth, and
// percentage return from a ledger snapshot plus a price source.
package valuation

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mockvest/trading-engine/internal/model"
	"github.com/mockvest/trading-engine/internal/pricefeed"
)

var hundred = decimal.NewFromInt(100)

// Holding is one position marked to market. Stale is set when the feed had
// no price and the position was valued at its average cost instead.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Shares       int64           `json:"shares"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	Stale        bool            `json:"stale,omitempty"`
}

// Valuator marks positions to market against an injected price source.
type Valuator struct {
	src pricefeed.Source
}

// New creates a valuator over the given price source.
func New(src pricefeed.Source) *Valuator {
	return &Valuator{src: src}
}

// Holdings marks every position to market, ordered by symbol.
//
// Prices are fetched once per symbol, batched when the source supports it.
// If the batch call fails the valuator degrades to per-symbol quotes. A
// symbol the feed cannot price at all is valued at its average cost and
// flagged Stale.
func (v *Valuator) Holdings(ctx context.Context, acct model.Account) []Holding {
	if len(acct.Positions) == 0 {
		return nil
	}

	syms := make([]string, 0, len(acct.Positions))
	for sym := range acct.Positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	prices := v.batchPrices(ctx, syms)

	holdings := make([]Holding, 0, len(syms))
	for _, sym := range syms {
		pos := acct.Positions[sym]
		stale := false

		price, ok := prices[sym]
		if !ok {
			price, stale = v.singlePrice(ctx, pos)
		}

		holdings = append(holdings, Holding{
			Symbol:       sym,
			Shares:       pos.Shares,
			AverageCost:  pos.AverageCost,
			CurrentPrice: price,
			MarketValue:  price.Mul(decimal.NewFromInt(pos.Shares)),
			Stale:        stale,
		})
	}
	return holdings
}

// PortfolioValue sums shares × current price over every position.
// An account with no positions is worth exactly zero.
func (v *Valuator) PortfolioValue(ctx context.Context, acct model.Account) decimal.Decimal {
	total := decimal.Zero
	for _, h := range v.Holdings(ctx, acct) {
		total = total.Add(h.MarketValue)
	}
	return total
}

// NetWorth is cash balance plus portfolio value.
func (v *Valuator) NetWorth(ctx context.Context, acct model.Account) decimal.Decimal {
	return acct.CashBalance.Add(v.PortfolioValue(ctx, acct))
}

// ReturnPct is the percentage return on initial capital. A zero initial
// capital yields zero rather than a division panic.
func ReturnPct(netWorth, initialCapital decimal.Decimal) decimal.Decimal {
	if initialCapital.IsZero() {
		return decimal.Zero
	}
	return netWorth.Sub(initialCapital).Div(initialCapital).Mul(hundred)
}

// batchPrices attempts one round trip for all symbols. Any failure returns
// an empty map and the caller re-fetches per symbol.
func (v *Valuator) batchPrices(ctx context.Context, syms []string) map[string]decimal.Decimal {
	bs, ok := v.src.(pricefeed.BatchSource)
	if !ok {
		return nil
	}
	prices, err := bs.QuoteBatch(ctx, syms)
	if err != nil {
		slog.Warn("batch quote failed, falling back per symbol", "err", err)
		return nil
	}
	return prices
}

// singlePrice quotes one symbol, falling back to the position's average cost.
func (v *Valuator) singlePrice(ctx context.Context, pos model.Position) (decimal.Decimal, bool) {
	price, err := v.src.Quote(ctx, pos.Symbol)
	if err != nil {
		slog.Warn("quote unavailable, valuing at cost basis",
			"symbol", pos.Symbol, "err", err)
		return pos.AverageCost, true
	}
	return price, false
}
