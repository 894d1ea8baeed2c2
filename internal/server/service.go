// Package server provides the HTTP handlers for account registration,
// trade execution, portfolio valuation, contests, and leaderboards.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Decimals round to two places here, at the presentation edge, and nowhere
// upstream of it.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mockvest/trading-engine/internal/contest"
	"github.com/mockvest/trading-engine/internal/leaderboard"
	"github.com/mockvest/trading-engine/internal/ledger"
	"github.com/mockvest/trading-engine/internal/metrics"
	"github.com/mockvest/trading-engine/internal/model"
	"github.com/mockvest/trading-engine/internal/pricefeed"
	"github.com/mockvest/trading-engine/internal/store"
	"github.com/mockvest/trading-engine/internal/symbol"
	"github.com/mockvest/trading-engine/internal/valuation"
)

// DefaultWatchlist is the market snapshot shown when no symbols are requested.
var DefaultWatchlist = []string{"AAPL", "GOOG", "MSFT", "AMZN"}

// Service handles the engine's HTTP surface. The ledger serializes account
// mutations internally, so handlers hold no locks of their own.
type Service struct {
	ledger   *ledger.Ledger
	registry *contest.Registry
	valuator *valuation.Valuator
	ranker   *leaderboard.Ranker
	feed     pricefeed.Source
	journal  store.Store
	wsHub    *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates the HTTP service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(led *ledger.Ledger, reg *contest.Registry, val *valuation.Valuator,
	ranker *leaderboard.Ranker, feed pricefeed.Source, journal store.Store, hub *WSHub) *Service {
	return &Service{
		ledger:   led,
		registry: reg,
		valuator: val,
		ranker:   ranker,
		feed:     feed,
		journal:  journal,
		wsHub:    hub,
	}
}

// Mount registers the API routes on a router.
func (s *Service) Mount(r chi.Router) {
	r.Post("/register", s.Register)
	r.Post("/login", s.Login)
	r.Post("/trade", s.ExecuteTrade)
	r.Get("/portfolio/{username}", s.GetPortfolio)
	r.Get("/quotes", s.GetQuotes)
	r.Get("/trades/{username}", s.GetTradeHistory)
	r.Get("/contests", s.ListContests)
	r.Post("/contests/{contestID}/join", s.JoinContest)
	r.Get("/leaderboard/{contestID}", s.GetLeaderboard)
	if s.wsHub != nil {
		r.Get("/ws", s.wsHub.HandleWS)
	}
}

// --- Request/Response types ---

// CredentialsRequest is the JSON body for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccountResponse is the account summary returned from register and login.
type AccountResponse struct {
	Username       string          `json:"username"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
}

// TradeRequest is the JSON body for POST /trade.
type TradeRequest struct {
	Username string `json:"username"`
	Symbol   string `json:"symbol"`
	Shares   int64  `json:"shares"`
	Action   string `json:"action"` // "buy" or "sell"
}

// TradeResponse is the JSON body returned from POST /trade.
type TradeResponse struct {
	TradeID     string           `json:"trade_id"`
	Username    string           `json:"username"`
	Symbol      string           `json:"symbol"`
	Action      string           `json:"action"`
	Shares      int64            `json:"shares"`
	Price       decimal.Decimal  `json:"price"`
	Cost        decimal.Decimal  `json:"cost"`
	CashBalance decimal.Decimal  `json:"cash_balance"`
	Position    *PositionSummary `json:"position"` // nil after full liquidation
}

// PositionSummary is the position snapshot included in trade responses.
type PositionSummary struct {
	Symbol      string          `json:"symbol"`
	Shares      int64           `json:"shares"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

// PortfolioResponse is the valuation view of one account.
type PortfolioResponse struct {
	Username       string              `json:"username"`
	CashBalance    decimal.Decimal     `json:"cash_balance"`
	Holdings       []valuation.Holding `json:"holdings"`
	PortfolioValue decimal.Decimal     `json:"portfolio_value"`
	NetWorth       decimal.Decimal     `json:"net_worth"`
}

// ContestResponse is one catalog entry with its participant roster.
type ContestResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	EntryFee         decimal.Decimal `json:"entry_fee"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	Participants     []string        `json:"participants"`
	ParticipantCount int             `json:"participant_count"`
}

// --- HTTP Handlers ---

// Register handles POST /api/v1/register
func (s *Service) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	acct, err := s.ledger.Register(req.Username, req.Password)
	if err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}
	metrics.RegisteredUsers.Inc()

	slog.Info("account registered", "username", acct.Username)

	writeJSON(w, http.StatusCreated, AccountResponse{
		Username:       acct.Username,
		CashBalance:    acct.CashBalance.Round(2),
		InitialCapital: acct.InitialCapital.Round(2),
	})
}

// Login handles POST /api/v1/login
func (s *Service) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	acct, err := s.ledger.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		Username:       acct.Username,
		CashBalance:    acct.CashBalance.Round(2),
		InitialCapital: acct.InitialCapital.Round(2),
	})
}

// ExecuteTrade handles POST /api/v1/trade
// Fetches a live quote and executes an all-or-nothing buy or sell against it.
func (s *Service) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// --- Input validation ---
	if req.Username == "" {
		writeError(w, "username is required", http.StatusBadRequest)
		return
	}
	if req.Action != model.ActionBuy && req.Action != model.ActionSell {
		writeError(w, "action must be buy or sell", http.StatusBadRequest)
		return
	}
	if req.Shares <= 0 {
		writeError(w, "shares must be positive", http.StatusBadRequest)
		return
	}

	sym, err := symbol.Normalize(req.Symbol)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	start := time.Now()

	// A trade cannot fill without a live quote. Valuation may fall back to
	// cost basis; execution must not.
	price, err := s.feed.Quote(ctx, sym)
	if err != nil {
		metrics.QuoteFailures.Inc()
		writeError(w, "price unavailable for "+sym, http.StatusBadGateway)
		return
	}

	if req.Action == model.ActionBuy {
		_, err = s.ledger.Buy(req.Username, sym, req.Shares, price)
	} else {
		err = s.ledger.Sell(req.Username, sym, req.Shares, price)
	}
	if err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}

	acct, err := s.ledger.Snapshot(req.Username)
	if err != nil {
		writeError(w, "failed to load account", http.StatusInternalServerError)
		return
	}

	cost := price.Mul(decimal.NewFromInt(req.Shares))
	trade := &model.Trade{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Symbol:    sym,
		Action:    req.Action,
		Shares:    req.Shares,
		Price:     price,
		Cost:      cost,
		Timestamp: time.Now().UTC(),
	}

	// The journal is history, not account state. The ledger already moved,
	// so a write failure degrades history rather than voiding the trade.
	if err := s.journal.InsertTrade(ctx, trade); err != nil {
		slog.Error("failed to journal trade", "trade_id", trade.ID, "err", err)
	}

	metrics.TradesTotal.WithLabelValues(req.Action).Inc()
	metrics.TradeLatency.WithLabelValues(req.Action).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"trade_id", trade.ID,
		"username", req.Username,
		"symbol", sym,
		"action", req.Action,
		"shares", req.Shares,
		"price", price.String(),
		"cost", cost.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "trade_executed",
			Username: req.Username,
			Symbol:   sym,
			Action:   req.Action,
			Shares:   req.Shares,
			Price:    price.Round(2).String(),
		})
	}

	resp := TradeResponse{
		TradeID:     trade.ID,
		Username:    req.Username,
		Symbol:      sym,
		Action:      req.Action,
		Shares:      req.Shares,
		Price:       price.Round(2),
		Cost:        cost.Round(2),
		CashBalance: acct.CashBalance.Round(2),
	}
	if pos, ok := acct.Positions[sym]; ok {
		resp.Position = &PositionSummary{
			Symbol:      pos.Symbol,
			Shares:      pos.Shares,
			AverageCost: pos.AverageCost.Round(2),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetPortfolio handles GET /api/v1/portfolio/{username}
// Returns cash, marked-to-market holdings, portfolio value, and net worth.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	acct, err := s.ledger.Snapshot(username)
	if err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}

	holdings := s.valuator.Holdings(r.Context(), acct)
	portfolioValue := decimal.Zero
	for i := range holdings {
		portfolioValue = portfolioValue.Add(holdings[i].MarketValue)
		holdings[i].AverageCost = holdings[i].AverageCost.Round(2)
		holdings[i].CurrentPrice = holdings[i].CurrentPrice.Round(2)
		holdings[i].MarketValue = holdings[i].MarketValue.Round(2)
	}
	if holdings == nil {
		holdings = []valuation.Holding{}
	}

	writeJSON(w, http.StatusOK, PortfolioResponse{
		Username:       username,
		CashBalance:    acct.CashBalance.Round(2),
		Holdings:       holdings,
		PortfolioValue: portfolioValue.Round(2),
		NetWorth:       acct.CashBalance.Add(portfolioValue).Round(2),
	})
}

// GetQuotes handles GET /api/v1/quotes?symbols=AAPL,GOOG
// Returns a market snapshot; symbols the feed cannot price map to null.
func (s *Service) GetQuotes(w http.ResponseWriter, r *http.Request) {
	raw := DefaultWatchlist
	if q := r.URL.Query().Get("symbols"); q != "" {
		raw = strings.Split(q, ",")
	}

	syms := make([]string, 0, len(raw))
	for _, rs := range raw {
		sym, err := symbol.Normalize(rs)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		syms = append(syms, sym)
	}

	ctx := r.Context()
	prices := make(map[string]decimal.Decimal, len(syms))
	if bs, ok := s.feed.(pricefeed.BatchSource); ok {
		if batch, err := bs.QuoteBatch(ctx, syms); err == nil {
			prices = batch
		}
	}

	quotes := make(map[string]*decimal.Decimal, len(syms))
	for _, sym := range syms {
		price, ok := prices[sym]
		if !ok {
			var err error
			price, err = s.feed.Quote(ctx, sym)
			if err != nil {
				metrics.QuoteFailures.Inc()
				quotes[sym] = nil
				continue
			}
		}
		rounded := price.Round(2)
		quotes[sym] = &rounded
	}

	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// GetTradeHistory handles GET /api/v1/trades/{username}
// Returns the user's executed trades from the journal.
func (s *Service) GetTradeHistory(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	trades, err := s.journal.TradesByUser(r.Context(), username)
	if err != nil {
		writeError(w, "failed to load trade history", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	writeJSON(w, http.StatusOK, trades)
}

// ListContests handles GET /api/v1/contests
func (s *Service) ListContests(w http.ResponseWriter, r *http.Request) {
	contests := s.registry.List()

	out := make([]ContestResponse, 0, len(contests))
	for _, c := range contests {
		out = append(out, contestResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// JoinContest handles POST /api/v1/contests/{contestID}/join
// Debits the entry fee and adds the user to the roster; joining is one-way.
func (s *Service) JoinContest(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		writeError(w, "username is required", http.StatusBadRequest)
		return
	}

	if err := s.registry.Join(req.Username, contestID, s.ledger); err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}
	metrics.ContestJoins.WithLabelValues(contestID).Inc()

	slog.Info("contest joined", "username", req.Username, "contest", contestID)

	c, err := s.registry.Get(contestID)
	if err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}
	writeJSON(w, http.StatusOK, contestResponse(c))
}

// GetLeaderboard handles GET /api/v1/leaderboard/{contestID}
// Returns the full standings, best return first.
func (s *Service) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	entries, err := s.ranker.Rank(r.Context(), contestID)
	if err != nil {
		writeError(w, err.Error(), statusFromErr(err))
		return
	}

	for i := range entries {
		entries[i].NetWorth = entries[i].NetWorth.Round(2)
		entries[i].ReturnPct = entries[i].ReturnPct.Round(2)
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func contestResponse(c model.Contest) ContestResponse {
	participants := c.Participants
	if participants == nil {
		participants = []string{}
	}
	return ContestResponse{
		ID:               c.ID,
		Name:             c.Name,
		EntryFee:         c.EntryFee.Round(2),
		StartDate:        c.StartDate.Format("2006-01-02"),
		EndDate:          c.EndDate.Format("2006-01-02"),
		Participants:     participants,
		ParticipantCount: len(participants),
	}
}

// statusFromErr maps domain sentinels to HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidShares),
		errors.Is(err, symbol.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrUnknownUser),
		errors.Is(err, contest.ErrContestNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateUser),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrNoPosition),
		errors.Is(err, contest.ErrAlreadyJoined):
		return http.StatusConflict
	case errors.Is(err, pricefeed.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
