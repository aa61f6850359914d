package portfolio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock-simulator/models"
	"stock-simulator/quotes"
)

var (
	ErrInvalidShares      = errors.New("share count must be a positive integer")
	ErrInvalidAmount      = errors.New("deposit amount must be a positive integer")
	ErrInsufficientFunds  = errors.New("not enough cash for this purchase")
	ErrInsufficientShares = errors.New("cannot sell more shares than owned")
)

// Store is the ledger the engine reads and mutates. Implemented by
// ledger.Store; tests use an in-memory fake.
type Store interface {
	Cash(ctx context.Context, userID uint) (decimal.Decimal, error)
	AddCash(ctx context.Context, userID uint, amount decimal.Decimal) error
	ApplyTrade(ctx context.Context, t *models.Transaction, cashDelta decimal.Decimal) error
	HoldingsBySymbol(ctx context.Context, userID uint) ([]models.Holding, error)
	SharesOwned(ctx context.Context, userID uint, symbol string) (int, error)
	History(ctx context.Context, userID uint) ([]models.Transaction, error)
}

// Receipt summarizes one executed trade.
type Receipt struct {
	Symbol  string          `json:"symbol"`
	Company string          `json:"company"`
	Shares  int             `json:"shares"`
	Price   decimal.Decimal `json:"price"`
	Total   decimal.Decimal `json:"total"`
	OldCash decimal.Decimal `json:"old_cash"`
	NewCash decimal.Decimal `json:"new_cash"`
}

// Position is one holdings row priced at the current quote.
type Position struct {
	Symbol  string          `json:"symbol"`
	Company string          `json:"company"`
	Shares  int             `json:"shares"`
	Price   decimal.Decimal `json:"price"`
	Value   decimal.Decimal `json:"value"`
}

// Summary is the portfolio view: live-priced positions, cash and net worth.
type Summary struct {
	Positions []Position      `json:"positions"`
	Cash      decimal.Decimal `json:"cash"`
	NetWorth  decimal.Decimal `json:"net_worth"`
}

// Engine validates trades against the ledger and applies them. Buy, Sell
// and Deposit serialize per user so the validate-then-apply sequence never
// races a concurrent request for the same account.
type Engine struct {
	store  Store
	quotes quotes.Provider
	locks  sync.Map // user id -> *sync.Mutex
}

func New(store Store, provider quotes.Provider) *Engine {
	return &Engine{store: store, quotes: provider}
}

func (e *Engine) lock(userID uint) func() {
	v, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Quote delegates to the quote provider.
func (e *Engine) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	return e.quotes.Lookup(ctx, symbol)
}

// Holdings returns the user's current positions, net of all buys and sells.
func (e *Engine) Holdings(ctx context.Context, userID uint) ([]models.Holding, error) {
	return e.store.HoldingsBySymbol(ctx, userID)
}

// History returns the user's full transaction log in execution order.
func (e *Engine) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return e.store.History(ctx, userID)
}

// Buy purchases shares at the current quote price. It fails with
// ErrInsufficientFunds when the total cost exceeds the user's cash, leaving
// the ledger untouched.
func (e *Engine) Buy(ctx context.Context, userID uint, symbol string, shares int) (*Receipt, error) {
	if shares <= 0 {
		return nil, ErrInvalidShares
	}

	quote, err := e.quotes.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	unlock := e.lock(userID)
	defer unlock()

	cash, err := e.store.Cash(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := quote.Price.Mul(decimal.NewFromInt(int64(shares)))
	if total.GreaterThan(cash) {
		return nil, ErrInsufficientFunds
	}

	t := &models.Transaction{
		UserID:    userID,
		Symbol:    quote.Symbol,
		Company:   quote.Name,
		Shares:    shares,
		Price:     quote.Price,
		Timestamp: time.Now(),
	}
	if err := e.store.ApplyTrade(ctx, t, total.Neg()); err != nil {
		return nil, err
	}

	return &Receipt{
		Symbol:  quote.Symbol,
		Company: quote.Name,
		Shares:  shares,
		Price:   quote.Price,
		Total:   total,
		OldCash: cash,
		NewCash: cash.Sub(total),
	}, nil
}

// Sell sells shares at the current quote price. The price is re-fetched
// live even for an owned symbol, and the net position may never go negative:
// selling more than the ledger sum fails with ErrInsufficientShares.
func (e *Engine) Sell(ctx context.Context, userID uint, symbol string, shares int) (*Receipt, error) {
	if shares <= 0 {
		return nil, ErrInvalidShares
	}

	// Stored rows carry the provider-normalized symbol.
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	unlock := e.lock(userID)
	defer unlock()

	owned, err := e.store.SharesOwned(ctx, userID, symbol)
	if err != nil {
		return nil, err
	}
	if shares > owned {
		return nil, ErrInsufficientShares
	}

	quote, err := e.quotes.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	cash, err := e.store.Cash(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := quote.Price.Mul(decimal.NewFromInt(int64(shares)))

	t := &models.Transaction{
		UserID:    userID,
		Symbol:    quote.Symbol,
		Company:   quote.Name,
		Shares:    -shares,
		Price:     quote.Price,
		Timestamp: time.Now(),
	}
	if err := e.store.ApplyTrade(ctx, t, total); err != nil {
		return nil, err
	}

	return &Receipt{
		Symbol:  quote.Symbol,
		Company: quote.Name,
		Shares:  shares,
		Price:   quote.Price,
		Total:   total,
		OldCash: cash,
		NewCash: cash.Add(total),
	}, nil
}

// Deposit adds whole dollars to the cash balance. Deposits write no ledger
// row; only trades appear in the transaction history.
func (e *Engine) Deposit(ctx context.Context, userID uint, amount int) (decimal.Decimal, error) {
	if amount <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	unlock := e.lock(userID)
	defer unlock()

	cash, err := e.store.Cash(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	added := decimal.NewFromInt(int64(amount))
	if err := e.store.AddCash(ctx, userID, added); err != nil {
		return decimal.Zero, err
	}

	return cash.Add(added), nil
}

// Portfolio prices every held position at its live quote and totals the
// account. If any constituent quote fails the whole computation fails; a
// partial net worth is never reported.
func (e *Engine) Portfolio(ctx context.Context, userID uint) (*Summary, error) {
	holdings, err := e.store.HoldingsBySymbol(ctx, userID)
	if err != nil {
		return nil, err
	}

	cash, err := e.store.Cash(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Positions: make([]Position, 0, len(holdings)),
		Cash:      cash,
		NetWorth:  cash,
	}

	for _, h := range holdings {
		quote, err := e.quotes.Lookup(ctx, h.Symbol)
		if err != nil {
			return nil, err
		}

		value := quote.Price.Mul(decimal.NewFromInt(int64(h.Shares)))
		summary.Positions = append(summary.Positions, Position{
			Symbol:  h.Symbol,
			Company: h.Company,
			Shares:  h.Shares,
			Price:   quote.Price,
			Value:   value,
		})
		summary.NetWorth = summary.NetWorth.Add(value)
	}

	return summary, nil
}

// NetWorth is cash plus the live value of every held position.
func (e *Engine) NetWorth(ctx context.Context, userID uint) (decimal.Decimal, error) {
	summary, err := e.Portfolio(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.NetWorth, nil
}
