package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stock-simulator/models"
)

// Store is the durable ledger: the append-only transaction table plus the
// per-user cash scalar. The cash column is a cached aggregate of the
// ledger, so every trade updates both inside a single database transaction.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         models.StartingCash,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Cash reads the user's current cash balance.
func (s *Store) Cash(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("cash").First(&user, userID).Error; err != nil {
		return decimal.Zero, err
	}
	return user.Cash, nil
}

// AddCash adjusts the cash balance by amount without writing a ledger row.
// Deposits are out-of-band of the trade ledger.
func (s *Store) AddCash(ctx context.Context, userID uint, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("cash", gorm.Expr("cash + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("add cash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApplyTrade appends one ledger row and adjusts cash by cashDelta. Both
// writes happen inside one database transaction: either the row exists and
// cash moved, or neither.
func (s *Store) ApplyTrade(ctx context.Context, t *models.Transaction, cashDelta decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", t.UserID).
			Update("cash", gorm.Expr("cash + ?", cashDelta))
		if res.Error != nil {
			return fmt.Errorf("update cash: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// HoldingsBySymbol sums signed share counts per symbol. Positions that net
// to zero or negative are filtered out, matching the portfolio view. The
// company snapshot can differ between rows of the same symbol, so grouping
// is by symbol alone and one snapshot is picked per position.
func (s *Store) HoldingsBySymbol(ctx context.Context, userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("symbol, MAX(company) AS company, SUM(shares) AS shares").
		Where("user_id = ?", userID).
		Group("symbol").
		Having("SUM(shares) > 0").
		Order("symbol").
		Scan(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("sum holdings: %w", err)
	}
	return holdings, nil
}

// SharesOwned is the raw net share count for one symbol, zero included.
// Sell validation consults this sum, not the filtered holdings view.
func (s *Store) SharesOwned(ctx context.Context, userID uint, symbol string) (int, error) {
	var shares int
	row := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(shares), 0)").
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Row()
	if err := row.Scan(&shares); err != nil {
		return 0, fmt.Errorf("sum shares: %w", err)
	}
	return shares, nil
}

// History returns the user's full ledger, ordered by execution time with
// ties broken by insertion id so the ordering is deterministic.
func (s *Store) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp, id").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return transactions, nil
}
