// Package model defines the core domain types shared across the trading engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a user's virtual cash and open positions. InitialCapital is
// fixed at registration and is the denominator for return calculations.
type Account struct {
	Username       string              `json:"username"`
	CashBalance    decimal.Decimal     `json:"cash_balance"`
	InitialCapital decimal.Decimal     `json:"initial_capital"`
	Positions      map[string]Position `json:"positions"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Position is a holding in one symbol. A position with zero shares does not
// exist — it is removed from the account on full liquidation.
type Position struct {
	Symbol      string          `json:"symbol"`
	Shares      int64           `json:"shares"`
	AverageCost decimal.Decimal `json:"average_cost"` // shares-weighted buy price
}

// Trade is an immutable record of an executed buy or sell.
// Once created, these are never modified or deleted.
type Trade struct {
	ID        string          `json:"id" db:"id"`
	Username  string          `json:"username" db:"username"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Action    string          `json:"action" db:"action"` // "buy" or "sell"
	Shares    int64           `json:"shares" db:"shares"`
	Price     decimal.Decimal `json:"price" db:"price"` // fill price per share
	Cost      decimal.Decimal `json:"cost" db:"cost"`   // shares * price
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// Trade actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Contest is a paper-trading competition with a one-time entry fee.
// Participants are stored in join order; membership is append-only.
// The date window is informational — trades are never gated on it.
type Contest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	EntryFee     decimal.Decimal `json:"entry_fee"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	Participants []string        `json:"participants"`
}

// LeaderboardEntry is a derived standing — recomputed per request, never stored.
type LeaderboardEntry struct {
	Rank      int             `json:"rank"`
	Username  string          `json:"username"`
	NetWorth  decimal.Decimal `json:"net_worth"`
	ReturnPct decimal.Decimal `json:"return_pct"`
}
