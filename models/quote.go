package models

import "github.com/shopspring/decimal"

// Quote is a point-in-time price for a symbol. It is never persisted; the
// price is only meaningful for the request that fetched it.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}
