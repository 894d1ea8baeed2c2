package valuation_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mockvest/trading-engine/internal/model"
	"github.com/mockvest/trading-engine/internal/pricefeed"
	"github.com/mockvest/trading-engine/internal/valuation"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// stubSource serves fixed prices per symbol, counting calls.
type stubSource struct {
	prices     map[string]decimal.Decimal
	quoteCalls int
}

func (s *stubSource) Quote(_ context.Context, sym string) (decimal.Decimal, error) {
	s.quoteCalls++
	p, ok := s.prices[sym]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", pricefeed.ErrUnavailable, sym)
	}
	return p, nil
}

// stubBatchSource adds a batch path that can be forced to fail.
type stubBatchSource struct {
	stubSource
	batchErr   error
	batchCalls int
}

func (s *stubBatchSource) QuoteBatch(_ context.Context, syms []string) (map[string]decimal.Decimal, error) {
	s.batchCalls++
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	out := make(map[string]decimal.Decimal)
	for _, sym := range syms {
		if p, ok := s.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

func account(positions ...model.Position) model.Account {
	acct := model.Account{
		Username:       "alice",
		CashBalance:    d(97000),
		InitialCapital: d(100000),
		Positions:      make(map[string]model.Position),
	}
	for _, p := range positions {
		acct.Positions[p.Symbol] = p
	}
	return acct
}

func TestPortfolioValue_EmptyIsZero(t *testing.T) {
	v := valuation.New(&stubSource{})

	got := v.PortfolioValue(context.Background(), account())
	if !got.IsZero() {
		t.Errorf("expected 0 for empty portfolio, got %s", got)
	}
}

func TestPortfolioValue_UsesBatchPath(t *testing.T) {
	src := &stubBatchSource{stubSource: stubSource{prices: map[string]decimal.Decimal{
		"AAPL": d(200),
		"GOOG": d(150),
	}}}
	v := valuation.New(src)

	acct := account(
		model.Position{Symbol: "AAPL", Shares: 10, AverageCost: d(150)},
		model.Position{Symbol: "GOOG", Shares: 2, AverageCost: d(100)},
	)

	got := v.PortfolioValue(context.Background(), acct)
	if !got.Equal(d(2300)) {
		t.Errorf("expected 2300, got %s", got)
	}
	if src.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", src.batchCalls)
	}
	if src.quoteCalls != 0 {
		t.Errorf("batch succeeded, expected no per-symbol calls, got %d", src.quoteCalls)
	}
}

func TestPortfolioValue_BatchFailureFallsBackPerSymbol(t *testing.T) {
	src := &stubBatchSource{
		stubSource: stubSource{prices: map[string]decimal.Decimal{"AAPL": d(200)}},
		batchErr:   fmt.Errorf("%w: feed down", pricefeed.ErrUnavailable),
	}
	v := valuation.New(src)

	acct := account(model.Position{Symbol: "AAPL", Shares: 10, AverageCost: d(150)})

	got := v.PortfolioValue(context.Background(), acct)
	if !got.Equal(d(2000)) {
		t.Errorf("expected 2000 from per-symbol fallback, got %s", got)
	}
	if src.quoteCalls != 1 {
		t.Errorf("expected 1 per-symbol call, got %d", src.quoteCalls)
	}
}

func TestPortfolioValue_UnavailableSymbolValuedAtCost(t *testing.T) {
	// No batch support, no price for DELIST — value it at average cost.
	src := &stubSource{prices: map[string]decimal.Decimal{"AAPL": d(200)}}
	v := valuation.New(src)

	acct := account(
		model.Position{Symbol: "AAPL", Shares: 10, AverageCost: d(150)},
		model.Position{Symbol: "DELIST", Shares: 4, AverageCost: d(25)},
	)

	got := v.PortfolioValue(context.Background(), acct)
	if !got.Equal(d(2100)) {
		t.Errorf("expected 2100 (2000 live + 100 at cost), got %s", got)
	}
}

func TestHoldings_SortedAndStaleFlagged(t *testing.T) {
	src := &stubSource{prices: map[string]decimal.Decimal{"AAPL": d(200)}}
	v := valuation.New(src)

	acct := account(
		model.Position{Symbol: "DELIST", Shares: 4, AverageCost: d(25)},
		model.Position{Symbol: "AAPL", Shares: 10, AverageCost: d(150)},
	)

	holdings := v.Holdings(context.Background(), acct)
	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(holdings))
	}
	if holdings[0].Symbol != "AAPL" || holdings[1].Symbol != "DELIST" {
		t.Errorf("holdings not sorted by symbol: %s, %s", holdings[0].Symbol, holdings[1].Symbol)
	}
	if holdings[0].Stale {
		t.Error("live-priced holding flagged stale")
	}
	if !holdings[1].Stale {
		t.Error("cost-basis holding not flagged stale")
	}
	if !holdings[1].CurrentPrice.Equal(d(25)) {
		t.Errorf("stale holding should be priced at cost, got %s", holdings[1].CurrentPrice)
	}
}

func TestNetWorth(t *testing.T) {
	src := &stubSource{prices: map[string]decimal.Decimal{"AAPL": d(200)}}
	v := valuation.New(src)

	acct := account(model.Position{Symbol: "AAPL", Shares: 10, AverageCost: d(150)})

	got := v.NetWorth(context.Background(), acct)
	if !got.Equal(d(99000)) { // 97000 cash + 2000 positions
		t.Errorf("expected 99000, got %s", got)
	}

	empty := account()
	if !v.NetWorth(context.Background(), empty).Equal(empty.CashBalance) {
		t.Error("net worth of empty portfolio should equal cash")
	}
}

func TestReturnPct(t *testing.T) {
	cases := []struct {
		netWorth, capital, want decimal.Decimal
	}{
		{d(110000), d(100000), d(10)},
		{d(95000), d(100000), d(-5)},
		{d(100000), d(100000), d(0)},
		{d(12345), decimal.Zero, d(0)}, // zero capital guard
	}
	for _, c := range cases {
		got := valuation.ReturnPct(c.netWorth, c.capital)
		if !got.Equal(c.want) {
			t.Errorf("ReturnPct(%s, %s) = %s, want %s", c.netWorth, c.capital, got, c.want)
		}
	}
}

func TestReturnPct_MonotonicInNetWorth(t *testing.T) {
	capital := d(100000)
	prev := valuation.ReturnPct(d(90000), capital)
	for _, nw := range []decimal.Decimal{d(95000), d(100000), d(130000)} {
		cur := valuation.ReturnPct(nw, capital)
		if !cur.GreaterThan(prev) {
			t.Errorf("return not increasing: %s then %s", prev, cur)
		}
		prev = cur
	}
}
