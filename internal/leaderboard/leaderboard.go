// Package leaderboard derives ranked contest standings. Nothing here is
// stored — standings are recomputed on every request from live valuations.
package leaderboard

import (
	"context"
	"log/slog"
	"sort"

	"github.com/mockvest/trading-engine/internal/contest"
	"github.com/mockvest/trading-engine/internal/ledger"
	"github.com/mockvest/trading-engine/internal/model"
	"github.com/mockvest/trading-engine/internal/valuation"
)

// Ranker produces contest standings from the registry, ledger, and valuator.
type Ranker struct {
	registry *contest.Registry
	ledger   *ledger.Ledger
	valuator *valuation.Valuator
}

// NewRanker creates a ranker over the given collaborators.
func NewRanker(reg *contest.Registry, led *ledger.Ledger, val *valuation.Valuator) *Ranker {
	return &Ranker{registry: reg, ledger: led, valuator: val}
}

// Rank returns the full standings for a contest, sorted by percentage
// return descending. The sort is stable, so participants with equal returns
// keep their join order. Rank is 1-based and positional.
func (r *Ranker) Rank(ctx context.Context, contestID string) ([]model.LeaderboardEntry, error) {
	c, err := r.registry.Get(contestID)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(c.Participants))
	for _, username := range c.Participants {
		acct, err := r.ledger.Snapshot(username)
		if err != nil {
			// Participants reference the account registry by name; a missing
			// account would be a defect, not a rankable state.
			slog.Error("contest participant has no account", "username", username, "err", err)
			continue
		}

		netWorth := r.valuator.NetWorth(ctx, acct)
		entries = append(entries, model.LeaderboardEntry{
			Username:  username,
			NetWorth:  netWorth,
			ReturnPct: valuation.ReturnPct(netWorth, acct.InitialCapital),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ReturnPct.GreaterThan(entries[j].ReturnPct)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
