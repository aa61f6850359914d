package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stock-simulator/models"
	"stock-simulator/portfolio"
	"stock-simulator/quotes"
)

type TradeInput struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int    `json:"shares" binding:"required"`
}

type DepositInput struct {
	Amount int `json:"amount" binding:"required"`
}

func GetPortfolio(engine *portfolio.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("user_id").(uint)

		summary, err := engine.Portfolio(c.Request.Context(), userID)
		if err != nil {
			engineError(c, err)
			return
		}

		positions := make([]gin.H, 0, len(summary.Positions))
		for _, p := range summary.Positions {
			positions = append(positions, gin.H{
				"symbol":    p.Symbol,
				"company":   p.Company,
				"shares":    p.Shares,
				"price":     p.Price,
				"price_usd": models.USD(p.Price),
				"value":     p.Value,
				"value_usd": models.USD(p.Value),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"positions":     positions,
			"cash":          summary.Cash,
			"cash_usd":      models.USD(summary.Cash),
			"net_worth":     summary.NetWorth,
			"net_worth_usd": models.USD(summary.NetWorth),
		})
	}
}

func GetQuote(engine *portfolio.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := engine.Quote(c.Request.Context(), c.Param("symbol"))
		if err != nil {
			engineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"symbol":    quote.Symbol,
			"name":      quote.Name,
			"price":     quote.Price,
			"price_usd": models.USD(quote.Price),
		})
	}
}

func Buy(engine *portfolio.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("user_id").(uint)

		var input TradeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		receipt, err := engine.Buy(c.Request.Context(), userID, input.Symbol, input.Shares)
		if err != nil {
			engineError(c, err)
			return
		}

		c.JSON(http.StatusOK, receiptView(receipt, "Bought"))
	}
}

func Sell(engine *portfolio.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("user_id").(uint)

		var input TradeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		receipt, err := engine.Sell(c.Request.Context(), userID, input.Symbol, input.Shares)
		if err != nil {
			engineError(c, err)
			return
		}

		c.JSON(http.StatusOK, receiptView(receipt, "Sold"))
	}
}

func History(engine *portfolio.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("user_id").(uint)

		transactions, err := engine.History(c.Request.Context(), userID)
		if err != nil {
			engineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"transactions": transactions})
	}
}

func Deposit(engine *portfolio.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("user_id").(uint)

		var input DepositInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cash, err := engine.Deposit(c.Request.Context(), userID, input.Amount)
		if err != nil {
			engineError(c, err)
			return
		}

		added := decimal.NewFromInt(int64(input.Amount))
		c.JSON(http.StatusOK, gin.H{
			"message":  fmt.Sprintf("%s has been added to your account", models.USD(added)),
			"cash":     cash,
			"cash_usd": models.USD(cash),
		})
	}
}

func receiptView(r *portfolio.Receipt, action string) gin.H {
	return gin.H{
		"message":   fmt.Sprintf("%s %d share(s) of %s at %s", action, r.Shares, r.Symbol, models.USD(r.Price)),
		"symbol":    r.Symbol,
		"company":   r.Company,
		"shares":    r.Shares,
		"price":     r.Price,
		"price_usd": models.USD(r.Price),
		"total":     r.Total,
		"total_usd": models.USD(r.Total),
		"old_cash":  r.OldCash,
		"new_cash":  r.NewCash,
	}
}

// engineError maps engine and provider failures onto HTTP statuses.
func engineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, portfolio.ErrInvalidShares), errors.Is(err, portfolio.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, quotes.ErrSymbolNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quotes.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, portfolio.ErrInsufficientFunds), errors.Is(err, portfolio.ErrInsufficientShares):
		status = http.StatusPaymentRequired
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
