package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is one row of the append-only trade ledger. Shares is signed:
// positive for a buy, negative for a sell. Price is the per-share quote at
// execution time. Rows are never updated or deleted.
type Transaction struct {
	gorm.Model
	UserID    uint            `gorm:"index" json:"user_id"`
	Symbol    string          `gorm:"index" json:"symbol"`
	Company   string          `json:"company"`
	Shares    int             `json:"shares"`
	Price     decimal.Decimal `gorm:"type:numeric" json:"price"`
	Timestamp time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
}

// Holding is the derived net position of a user in one symbol.
type Holding struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
	Shares  int    `json:"shares"`
}
