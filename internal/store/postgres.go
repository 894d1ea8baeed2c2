package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mockvest/trading-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed journal.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, username, symbol, action, shares, price, cost, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8)`,
		t.ID, t.Username, t.Symbol, t.Action, t.Shares,
		t.Price.String(), t.Cost.String(), t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) TradesByUser(ctx context.Context, username string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, symbol, action, shares,
		        price::TEXT, cost::TEXT, timestamp
		 FROM trades WHERE username = $1 ORDER BY timestamp`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) TradesBySymbol(ctx context.Context, sym string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, symbol, action, shares,
		        price::TEXT, cost::TEXT, timestamp
		 FROM trades WHERE symbol = $1 ORDER BY timestamp`, sym)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades reads pgx rows into Trade slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTrades(rows pgxRows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var priceS, costS string

		if err := rows.Scan(&t.ID, &t.Username, &t.Symbol, &t.Action, &t.Shares,
			&priceS, &costS, &t.Timestamp); err != nil {
			return nil, err
		}

		t.Price, _ = decimal.NewFromString(priceS)
		t.Cost, _ = decimal.NewFromString(costS)

		trades = append(trades, t)
	}
	return trades, rows.Err()
}
