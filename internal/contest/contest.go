// Package contest holds the static contest catalog and entry handling.
// Joining is one-way: the entry fee is debited and the username appended to
// the participant list in join order. There is no leave.
package contest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mockvest/trading-engine/internal/model"
)

var (
	// ErrContestNotFound is returned for unknown contest ids.
	ErrContestNotFound = errors.New("contest: not found")

	// ErrAlreadyJoined is returned when a user joins a contest twice.
	ErrAlreadyJoined = errors.New("contest: already joined")
)

// FeeDebiter charges the entry fee against an account. Satisfied by
// *ledger.Ledger.
type FeeDebiter interface {
	Debit(username string, amount decimal.Decimal) error
}

// Registry is the contest catalog, loaded once at process start.
// Definitions are read-only; only the participant sets mutate.
type Registry struct {
	mu       sync.Mutex
	contests map[string]*model.Contest
	order    []string // catalog order for listing
}

// NewRegistry builds a registry from a catalog. Contest ids must be unique.
func NewRegistry(catalog []model.Contest) (*Registry, error) {
	r := &Registry{contests: make(map[string]*model.Contest, len(catalog))}
	for _, c := range catalog {
		if _, ok := r.contests[c.ID]; ok {
			return nil, fmt.Errorf("duplicate contest id %q", c.ID)
		}
		copy := c
		r.contests[c.ID] = &copy
		r.order = append(r.order, c.ID)
	}
	return r, nil
}

// Get returns a copy of one contest.
func (r *Registry) Get(id string) (model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contests[id]
	if !ok {
		return model.Contest{}, fmt.Errorf("%w: %s", ErrContestNotFound, id)
	}
	return copyContest(c), nil
}

// List returns all contests in catalog order.
func (r *Registry) List() []model.Contest {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Contest, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyContest(r.contests[id]))
	}
	return out
}

// Join debits the entry fee and appends the user to the participant list.
// The registry lock covers the membership check, the debit, and the append,
// so concurrent joins for the same user cannot both get in.
func (r *Registry) Join(username, contestID string, fees FeeDebiter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contests[contestID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrContestNotFound, contestID)
	}
	for _, p := range c.Participants {
		if p == username {
			return fmt.Errorf("%w: %s in %s", ErrAlreadyJoined, username, contestID)
		}
	}

	if err := fees.Debit(username, c.EntryFee); err != nil {
		return err
	}
	c.Participants = append(c.Participants, username)
	return nil
}

func copyContest(c *model.Contest) model.Contest {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	return out
}
