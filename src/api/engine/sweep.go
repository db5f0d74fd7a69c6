package engine

import (
	"context"

	"github.com/open-townhall/townhall/src/api/types"
	"github.com/rs/zerolog/log"
)

// Sweep closes every election and resolves every proposal whose window has
// elapsed. Close and Resolve are idempotent, so overlapping sweeps or a
// sweep racing an explicit trigger are harmless. Returns how many of each
// were processed.
func (e *Engine) Sweep(ctx context.Context) (closed, resolved int, err error) {
	now := e.clock.Now()

	var elections []types.Election
	err = e.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", types.ElectionActive, now).
		Find(&elections).Error
	if err != nil {
		return 0, 0, storage("expired election scan", err)
	}
	for _, el := range elections {
		if err := e.Elections.Close(ctx, el.ID); err != nil {
			log.Warn().Err(err).Str("election", el.ID).Msg("sweep: close failed")
			continue
		}
		closed++
	}

	var proposals []types.Proposal
	err = e.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", types.ProposalActive, now).
		Find(&proposals).Error
	if err != nil {
		return closed, 0, storage("expired proposal scan", err)
	}
	for _, p := range proposals {
		if err := e.Proposals.Resolve(ctx, p.ID); err != nil {
			log.Warn().Err(err).Str("proposal", p.ID).Msg("sweep: resolve failed")
			continue
		}
		resolved++
	}

	return closed, resolved, nil
}
