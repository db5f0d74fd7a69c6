package engine

import (
	"context"
	"errors"

	"github.com/open-townhall/townhall/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger enforces the per-citizen daily action budget.
type Ledger struct {
	db    *gorm.DB
	cfg   *ConfigStore
	clock Clock
}

func NewLedger(db *gorm.DB, cfg *ConfigStore, clock Clock) *Ledger {
	return &Ledger{db: db, cfg: cfg, clock: clock}
}

// TrySpend consumes one unit of today's budget for userID, or returns
// ErrBudgetExhausted without mutating anything.
//
// The check-and-increment is a single conditional UPDATE keyed on
// (user, day), so concurrent spends by the same citizen serialize on the
// row and can never overshoot the cap. Spends by different citizens touch
// different rows and do not contend. The cap is read from config at spend
// time, never frozen into the row.
func (l *Ledger) TrySpend(ctx context.Context, userID string) error {
	day := Day(l.clock.Now())
	cap := l.cfg.GetInt(KeyDailyEnergyLimit)

	row := types.DailyUsage{UserID: userID, UsageDate: day}
	if err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return storage("budget row create", err)
	}

	res := l.db.WithContext(ctx).Model(&types.DailyUsage{}).
		Where("user_id = ? AND usage_date = ? AND actions_spent < ?", userID, day, cap).
		UpdateColumn("actions_spent", gorm.Expr("actions_spent + 1"))
	if res.Error != nil {
		return storage("budget spend", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBudgetExhausted
	}
	return nil
}

// Remaining reports how many actions userID still has today.
func (l *Ledger) Remaining(ctx context.Context, userID string) (int, error) {
	day := Day(l.clock.Now())
	cap := l.cfg.GetInt(KeyDailyEnergyLimit)

	var row types.DailyUsage
	err := l.db.WithContext(ctx).
		First(&row, "user_id = ? AND usage_date = ?", userID, day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cap, nil
	}
	if err != nil {
		return 0, storage("budget read", err)
	}

	left := cap - int(row.ActionsSpent)
	if left < 0 {
		left = 0
	}
	return left, nil
}
