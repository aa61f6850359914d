package models

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// USD renders an amount for display, two-decimal fixed point with a dollar
// sign, e.g. "$1,234.56". Internal arithmetic stays in decimal.Decimal.
func USD(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	return money.New(cents, money.USD).Display()
}
