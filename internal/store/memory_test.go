package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mockvest/trading-engine/internal/model"
	"github.com/mockvest/trading-engine/internal/store"
)

func trade(user, sym, action string, shares int64) *model.Trade {
	price := decimal.NewFromInt(100)
	return &model.Trade{
		ID:        user + "-" + sym + "-" + action,
		Username:  user,
		Symbol:    sym,
		Action:    action,
		Shares:    shares,
		Price:     price,
		Cost:      price.Mul(decimal.NewFromInt(shares)),
		Timestamp: time.Now().UTC(),
	}
}

func TestMemoryStore_TradesByUser(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.InsertTrade(ctx, trade("alice", "AAPL", model.ActionBuy, 10))
	s.InsertTrade(ctx, trade("bob", "GOOG", model.ActionBuy, 5))
	s.InsertTrade(ctx, trade("alice", "AAPL", model.ActionSell, 4))

	trades, err := s.TradesByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("trades by user: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	// Insertion order is execution order.
	if trades[0].Action != model.ActionBuy || trades[1].Action != model.ActionSell {
		t.Errorf("trades out of order: %s then %s", trades[0].Action, trades[1].Action)
	}

	none, err := s.TradesByUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("trades by unknown user: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no trades, got %d", len(none))
	}
}

func TestMemoryStore_TradesBySymbol(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.InsertTrade(ctx, trade("alice", "AAPL", model.ActionBuy, 10))
	s.InsertTrade(ctx, trade("bob", "AAPL", model.ActionBuy, 5))
	s.InsertTrade(ctx, trade("bob", "GOOG", model.ActionBuy, 5))

	trades, err := s.TradesBySymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("trades by symbol: %v", err)
	}
	if len(trades) != 2 {
		t.Errorf("expected 2 AAPL trades, got %d", len(trades))
	}
}
