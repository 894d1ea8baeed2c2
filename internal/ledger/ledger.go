// Package ledger owns account state: cash balances and open positions.
//
// The Ledger is the single mutable shared resource in the engine. Mutations
// are serialized per account, so concurrent trades on one account cannot
// interleave the balance check with the deduction, while trades on different
// accounts proceed in parallel.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mockvest/trading-engine/internal/model"
)

var (
	// ErrDuplicateUser is returned when registering an existing username.
	ErrDuplicateUser = errors.New("ledger: username already exists")

	// ErrUnknownUser is returned when an operation references a username
	// that was never registered.
	ErrUnknownUser = errors.New("ledger: unknown user")

	// ErrInvalidCredentials is returned on a failed login. Unknown users
	// get the same error as a wrong password.
	ErrInvalidCredentials = errors.New("ledger: invalid username or password")

	// ErrInvalidShares is returned for non-positive share counts.
	ErrInvalidShares = errors.New("ledger: share count must be positive")

	// ErrInsufficientBalance is returned when a buy or debit exceeds the
	// cash balance. No partial fills — the trade is rejected whole.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrNoPosition is returned when selling a symbol the account does not hold.
	ErrNoPosition = errors.New("ledger: no position in symbol")

	// ErrInsufficientShares is returned when selling more shares than held.
	ErrInsufficientShares = errors.New("ledger: insufficient shares")
)

// InitialCapital is the virtual cash every account starts with.
var InitialCapital = decimal.RequireFromString("100000.00")

// account pairs the public state with its credentials and lock.
// The mutex serializes every mutation and snapshot of this account.
type account struct {
	mu           sync.Mutex
	passwordHash []byte
	state        model.Account
}

// Ledger is the account registry. The outer RWMutex guards the map only;
// each account carries its own lock.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

// Register creates an account seeded with InitialCapital.
func (l *Ledger) Register(username, password string) (model.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[username]; ok {
		return model.Account{}, fmt.Errorf("%w: %s", ErrDuplicateUser, username)
	}

	a := &account{
		passwordHash: hash,
		state: model.Account{
			Username:       username,
			CashBalance:    InitialCapital,
			InitialCapital: InitialCapital,
			Positions:      make(map[string]model.Position),
			CreatedAt:      time.Now().UTC(),
		},
	}
	l.accounts[username] = a
	return copyState(&a.state), nil
}

// Authenticate checks credentials and returns the account snapshot.
func (l *Ledger) Authenticate(username, password string) (model.Account, error) {
	a, err := l.lookup(username)
	if err != nil {
		return model.Account{}, ErrInvalidCredentials
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) != nil {
		return model.Account{}, ErrInvalidCredentials
	}
	return copyState(&a.state), nil
}

// Buy executes an all-or-nothing purchase at the given fill price.
// On the first buy of a symbol the average cost is the fill price; on
// subsequent buys it is recomputed as the shares-weighted total cost.
// No rounding happens here — display layers round, the ledger does not.
func (l *Ledger) Buy(username, sym string, shares int64, price decimal.Decimal) (model.Position, error) {
	if shares <= 0 {
		return model.Position{}, fmt.Errorf("%w: got %d", ErrInvalidShares, shares)
	}
	a, err := l.lookup(username)
	if err != nil {
		return model.Position{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cost := price.Mul(decimal.NewFromInt(shares))
	if cost.GreaterThan(a.state.CashBalance) {
		return model.Position{}, fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientBalance, cost, a.state.CashBalance)
	}
	a.state.CashBalance = a.state.CashBalance.Sub(cost)

	pos, ok := a.state.Positions[sym]
	if !ok {
		pos = model.Position{Symbol: sym, Shares: shares, AverageCost: price}
	} else {
		oldCost := pos.AverageCost.Mul(decimal.NewFromInt(pos.Shares))
		pos.Shares += shares
		pos.AverageCost = oldCost.Add(cost).Div(decimal.NewFromInt(pos.Shares))
	}
	a.state.Positions[sym] = pos
	return pos, nil
}

// Sell liquidates shares at the given fill price. The average cost of the
// remaining shares is unchanged; selling the full position removes it.
func (l *Ledger) Sell(username, sym string, shares int64, price decimal.Decimal) error {
	if shares <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidShares, shares)
	}
	a, err := l.lookup(username)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.state.Positions[sym]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, sym)
	}
	if shares > pos.Shares {
		return fmt.Errorf("%w: want %d, hold %d", ErrInsufficientShares, shares, pos.Shares)
	}

	a.state.CashBalance = a.state.CashBalance.Add(price.Mul(decimal.NewFromInt(shares)))
	pos.Shares -= shares
	if pos.Shares == 0 {
		delete(a.state.Positions, sym)
		return nil
	}
	a.state.Positions[sym] = pos
	return nil
}

// Debit withdraws a flat amount, used for contest entry fees.
func (l *Ledger) Debit(username string, amount decimal.Decimal) error {
	a, err := l.lookup(username)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if amount.GreaterThan(a.state.CashBalance) {
		return fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientBalance, amount, a.state.CashBalance)
	}
	a.state.CashBalance = a.state.CashBalance.Sub(amount)
	return nil
}

// Snapshot returns a consistent deep copy of an account. Callers value or
// serialize the copy without holding any ledger lock.
func (l *Ledger) Snapshot(username string) (model.Account, error) {
	a, err := l.lookup(username)
	if err != nil {
		return model.Account{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return copyState(&a.state), nil
}

func (l *Ledger) lookup(username string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return a, nil
}

// copyState clones the account including its position map.
// Caller must hold the account lock.
func copyState(s *model.Account) model.Account {
	out := *s
	out.Positions = make(map[string]model.Position, len(s.Positions))
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	return out
}
