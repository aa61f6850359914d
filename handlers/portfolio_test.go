package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-simulator/config"
	"stock-simulator/middleware"
	"stock-simulator/models"
	"stock-simulator/portfolio"
	"stock-simulator/quotes"
)

// memStore is a single-user in-memory ledger for handler tests.
type memStore struct {
	cash decimal.Decimal
	txs  []models.Transaction
}

func (m *memStore) Cash(ctx context.Context, userID uint) (decimal.Decimal, error) {
	return m.cash, nil
}

func (m *memStore) AddCash(ctx context.Context, userID uint, amount decimal.Decimal) error {
	m.cash = m.cash.Add(amount)
	return nil
}

func (m *memStore) ApplyTrade(ctx context.Context, t *models.Transaction, cashDelta decimal.Decimal) error {
	t.ID = uint(len(m.txs) + 1)
	m.txs = append(m.txs, *t)
	m.cash = m.cash.Add(cashDelta)
	return nil
}

func (m *memStore) HoldingsBySymbol(ctx context.Context, userID uint) ([]models.Holding, error) {
	sums := make(map[string]models.Holding)
	var order []string
	for _, t := range m.txs {
		h, seen := sums[t.Symbol]
		if !seen {
			order = append(order, t.Symbol)
			h = models.Holding{Symbol: t.Symbol}
		}
		if t.Company > h.Company {
			h.Company = t.Company
		}
		h.Shares += t.Shares
		sums[t.Symbol] = h
	}

	var holdings []models.Holding
	for _, symbol := range order {
		if sums[symbol].Shares > 0 {
			holdings = append(holdings, sums[symbol])
		}
	}
	return holdings, nil
}

func (m *memStore) SharesOwned(ctx context.Context, userID uint, symbol string) (int, error) {
	total := 0
	for _, t := range m.txs {
		if t.Symbol == symbol {
			total += t.Shares
		}
	}
	return total, nil
}

func (m *memStore) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return m.txs, nil
}

type staticProvider struct {
	prices map[string]decimal.Decimal
}

func (p *staticProvider) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	price, ok := p.prices[symbol]
	if !ok {
		return nil, quotes.ErrSymbolNotFound
	}
	return &models.Quote{Symbol: symbol, Name: symbol + " Inc", Price: price}, nil
}

func setupEngineRouter(t *testing.T, store *memStore, provider *staticProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	config.Rdb = nil

	engine := portfolio.New(store, provider)

	router := gin.New()
	auth := router.Group("/")
	auth.Use(middleware.JWTAuth())
	auth.GET("/portfolio", GetPortfolio(engine))
	auth.GET("/quote/:symbol", GetQuote(engine))
	auth.POST("/buy", Buy(engine))
	auth.POST("/sell", Sell(engine))
	auth.GET("/history", History(engine))
	auth.POST("/deposit", Deposit(engine))

	return router
}

func testToken(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestGetQuoteEndpoint(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("151.25")}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodGet, "/quote/AAPL", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp["symbol"])
	assert.Equal(t, "AAPL Inc", resp["name"])
	assert.Equal(t, "$151.25", resp["price_usd"])
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	router := setupEngineRouter(t, &memStore{}, &staticProvider{})
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodGet, "/quote/NOPE", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuyEndpoint(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(20)}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "XYZ", "shares": 10})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "$200.00", resp["total_usd"])
	assert.Equal(t, "Bought 10 share(s) of XYZ at $20.00", resp["message"])

	assert.True(t, store.cash.Equal(decimal.NewFromInt(800)), "cash %s", store.cash)
	require.Len(t, store.txs, 1)
}

func TestBuyInsufficientFunds(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(100)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(50)}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "XYZ", "shares": 3})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Empty(t, store.txs)
}

func TestBuyInvalidShares(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(20)}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	// Zero fails binding, negative fails engine validation; both are 400.
	rr := doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "XYZ", "shares": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "XYZ", "shares": -3})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Empty(t, store.txs)
}

func TestSellEndpoint(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(20)}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "XYZ", "shares": 5})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/sell", token, gin.H{"symbol": "XYZ", "shares": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Sold 2 share(s) of XYZ at $20.00", resp["message"])

	require.Len(t, store.txs, 2)
	assert.Equal(t, -2, store.txs[1].Shares)
	assert.True(t, store.cash.Equal(decimal.NewFromInt(940)), "cash %s", store.cash)
}

func TestSellInsufficientShares(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(20)}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/sell", token, gin.H{"symbol": "XYZ", "shares": 1})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
}

func TestDepositEndpoint(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(100)}
	router := setupEngineRouter(t, store, &staticProvider{})
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/deposit", token, gin.H{"amount": 500})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "$500.00 has been added to your account", resp["message"])
	assert.Equal(t, "$600.00", resp["cash_usd"])

	rr = doJSON(t, router, http.MethodPost, "/deposit", token, gin.H{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPortfolioEndpoint(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{
		"AAA": decimal.NewFromInt(10),
		"BBB": decimal.NewFromInt(5),
	}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "AAA", "shares": 10})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "BBB", "shares": 20})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/portfolio", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Positions   []map[string]interface{} `json:"positions"`
		CashUSD     string                   `json:"cash_usd"`
		NetWorthUSD string                   `json:"net_worth_usd"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Positions, 2)
	// 1000 − 100 − 100 cash, plus 100 + 100 in positions.
	assert.Equal(t, "$800.00", resp.CashUSD)
	assert.Equal(t, "$1,000.00", resp.NetWorthUSD)
	assert.Equal(t, "$100.00", resp.Positions[0]["value_usd"])
}

func TestHistoryEndpoint(t *testing.T) {
	store := &memStore{cash: decimal.NewFromInt(1000)}
	provider := &staticProvider{prices: map[string]decimal.Decimal{"XYZ": decimal.NewFromInt(20)}}
	router := setupEngineRouter(t, store, provider)
	token := testToken(t, 1)

	rr := doJSON(t, router, http.MethodPost, "/buy", token, gin.H{"symbol": "XYZ", "shares": 5})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/sell", token, gin.H{"symbol": "XYZ", "shares": 5})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/history", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, 5, resp.Transactions[0].Shares)
	assert.Equal(t, -5, resp.Transactions[1].Shares)
}

func TestEngineRoutesRequireToken(t *testing.T) {
	router := setupEngineRouter(t, &memStore{}, &staticProvider{})

	rr := doJSON(t, router, http.MethodGet, "/portfolio", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
