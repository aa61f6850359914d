package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StartingCash is credited to every new account.
var StartingCash = decimal.NewFromInt(10000)

type User struct {
	gorm.Model
	Username     string          `gorm:"uniqueIndex" json:"username"`
	PasswordHash string          `json:"-"`
	Cash         decimal.Decimal `gorm:"type:numeric" json:"cash"`
}
