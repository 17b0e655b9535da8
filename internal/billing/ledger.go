// Package billing manages the credit balances spent on expressing
// interest. The CreditLedger interface is the seam for external
// billing deployments; the default Ledger charges the users table
// directly with guarded single-statement updates.
package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/veiledapp/veiled-backend/internal/db"
)

// ErrInsufficientFunds is returned when a deduction would take a
// balance below zero. No partial deduction happens.
var ErrInsufficientFunds = errors.New("insufficient funds")

// CreditLedger debits and credits user balances.
type CreditLedger interface {
	Deduct(ctx context.Context, userID uint64, amount int64) error
	Refund(ctx context.Context, userID uint64, amount int64) error
	Balance(ctx context.Context, userID uint64) (int64, error)
}

// Ledger is the GORM-backed CreditLedger over users.credits.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(gdb *gorm.DB) *Ledger {
	return &Ledger{db: gdb}
}

func (l *Ledger) Deduct(ctx context.Context, userID uint64, amount int64) error {
	return DeductWithin(l.db.WithContext(ctx), userID, amount)
}

func (l *Ledger) Refund(ctx context.Context, userID uint64, amount int64) error {
	return RefundWithin(l.db.WithContext(ctx), userID, amount)
}

func (l *Ledger) Balance(ctx context.Context, userID uint64) (int64, error) {
	var u db.User
	if err := l.db.WithContext(ctx).Select("credits").Take(&u, userID).Error; err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// DeductWithin runs the guarded deduction on the given handle, which
// may be a transaction. Repositories use this to make the charge and
// their own writes a single atomic unit.
func DeductWithin(tx *gorm.DB, userID uint64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deduct amount must be positive, got %d", amount)
	}
	res := tx.Model(&db.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		Update("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&db.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

// RefundWithin credits amount back on the given handle.
func RefundWithin(tx *gorm.DB, userID uint64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	res := tx.Model(&db.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
