package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"stock-simulator/models"
)

const (
	defaultBaseURL  = "https://www.alphavantage.co"
	cacheExpiration = 5 * time.Minute
)

var (
	// ErrSymbolNotFound means the provider answered but has no data for
	// the ticker.
	ErrSymbolNotFound = errors.New("stock not found")
	// ErrProviderUnavailable means the lookup failed in transit; the
	// symbol may still exist.
	ErrProviderUnavailable = errors.New("quote provider unavailable")
)

// Provider returns the current price and company name for a ticker symbol.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*models.Quote, error)
}

// AlphaVantage fetches quotes from the Alpha Vantage REST API and caches
// them in Redis for a few minutes. A nil cache disables caching.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *redis.Client
}

func NewAlphaVantage(apiKey string, cache *redis.Client) *AlphaVantage {
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrSymbolNotFound
	}

	cacheKey := fmt.Sprintf("stock:%s:quote", symbol)
	if a.cache != nil {
		if cached, err := a.cache.Get(ctx, cacheKey).Result(); err == nil {
			var quote models.Quote
			if err := json.Unmarshal([]byte(cached), &quote); err == nil {
				return &quote, nil
			}
		}
	}

	price, err := a.globalQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	name, err := a.companyName(ctx, symbol)
	if err != nil {
		return nil, err
	}

	quote := &models.Quote{Symbol: symbol, Name: name, Price: price}

	if a.cache != nil {
		// Cache is best effort; a failed write must not fail the lookup.
		if data, err := json.Marshal(quote); err == nil {
			a.cache.Set(ctx, cacheKey, data, cacheExpiration)
		}
	}

	return quote, nil
}

func (a *AlphaVantage) globalQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", a.baseURL, symbol, a.apiKey)

	var result globalQuoteResponse
	if err := a.getJSON(ctx, url, &result); err != nil {
		return decimal.Zero, err
	}

	if result.GlobalQuote.Price == "" {
		return decimal.Zero, ErrSymbolNotFound
	}

	price, err := decimal.NewFromString(result.GlobalQuote.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad price %q", ErrProviderUnavailable, result.GlobalQuote.Price)
	}

	return price, nil
}

// companyName resolves the company behind a symbol via SYMBOL_SEARCH. When
// the search has no exact match the symbol itself is used as the name.
func (a *AlphaVantage) companyName(ctx context.Context, symbol string) (string, error) {
	url := fmt.Sprintf("%s/query?function=SYMBOL_SEARCH&keywords=%s&apikey=%s", a.baseURL, symbol, a.apiKey)

	var result symbolSearchResponse
	if err := a.getJSON(ctx, url, &result); err != nil {
		return "", err
	}

	for _, match := range result.BestMatches {
		if strings.EqualFold(match.Symbol, symbol) {
			return match.Name, nil
		}
	}

	return symbol, nil
}

func (a *AlphaVantage) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return nil
}
