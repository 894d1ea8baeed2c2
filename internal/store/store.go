// Package store defines persistence for the immutable trade journal.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing). The journal is history, not account
// state — the ledger remains authoritative for balances and positions.
package store

import (
	"context"

	"github.com/mockvest/trading-engine/internal/model"
)

// Store is the trade journal interface.
type Store interface {
	// InsertTrade appends an immutable executed-trade record.
	InsertTrade(ctx context.Context, t *model.Trade) error

	// TradesByUser returns a user's trades in execution order.
	TradesByUser(ctx context.Context, username string) ([]model.Trade, error)

	// TradesBySymbol returns all trades in one symbol in execution order.
	TradesBySymbol(ctx context.Context, sym string) ([]model.Trade, error)
}
