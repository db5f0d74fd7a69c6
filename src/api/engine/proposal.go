package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/open-townhall/townhall/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Proposals manages binding rule-change proposals. A resolved proposal is
// the only path by which runtime parameters change, which feeds back into
// the Ledger and the Elections machine.
type Proposals struct {
	db    *gorm.DB
	cfg   *ConfigStore
	clock Clock
}

func NewProposals(db *gorm.DB, cfg *ConfigStore, clock Clock) *Proposals {
	return &Proposals{db: db, cfg: cfg, clock: clock}
}

// Create opens a proposal with a voting window of proposal_window_days.
// Only recognized config keys may be targeted, and both recognized keys
// are day/count parameters, so the value must be a positive integer.
func (p *Proposals) Create(ctx context.Context, title, description, key, value, creatorID string) (*types.Proposal, error) {
	if !ProposalKey(key) {
		return nil, ErrUnknownConfigKey
	}
	if n, err := strconv.Atoi(value); err != nil || n < 1 {
		return nil, ErrInvalidConfigValue
	}

	now := p.clock.Now()
	prop := &types.Proposal{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		TargetKey:   key,
		TargetValue: value,
		CreatorID:   creatorID,
		Status:      types.ProposalActive,
		EndDate:     now.AddDate(0, 0, p.cfg.GetInt(KeyProposalWindowDays)),
	}
	if err := p.db.WithContext(ctx).Create(prop).Error; err != nil {
		return nil, storage("proposal create", err)
	}
	return prop, nil
}

// Resolve applies the outcome of an expired proposal: if yes outweighs no,
// the target config entry is overwritten. Idempotent and externally
// triggerable; while the window is still open or once the proposal is
// already resolved it is a no-op, and the config write happens only on the
// single call that flips the status.
func (p *Proposals) Resolve(ctx context.Context, proposalID string) error {
	now := p.clock.Now()
	var appliedKey, appliedValue string

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prop types.Proposal
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&prop, "id = ?", proposalID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storage("proposal lookup", err)
		}
		if prop.Status != types.ProposalActive {
			return nil
		}
		if now.Before(prop.EndDate) {
			return nil
		}

		res := tx.Model(&types.Proposal{}).
			Where("id = ? AND status = ?", proposalID, types.ProposalActive).
			Update("status", types.ProposalResolved)
		if res.Error != nil {
			return storage("proposal resolve", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if prop.YesCount > prop.NoCount {
			if err := p.cfg.upsert(tx, prop.TargetKey, prop.TargetValue); err != nil {
				return err
			}
			appliedKey, appliedValue = prop.TargetKey, prop.TargetValue
		}
		return nil
	})
	if err != nil {
		return err
	}
	if appliedKey != "" {
		p.cfg.apply(appliedKey, appliedValue)
	}
	return nil
}
