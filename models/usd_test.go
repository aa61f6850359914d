package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUSD(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"0", "$0.00"},
		{"20", "$20.00"},
		{"151.25", "$151.25"},
		{"1234.567", "$1,234.57"},
		{"10000", "$10,000.00"},
		{"-42.5", "-$42.50"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, USD(decimal.RequireFromString(tc.amount)), "amount %s", tc.amount)
	}
}
