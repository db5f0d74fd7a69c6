package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-townhall/townhall/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tally records votes and keeps the derived counts consistent. Insert and
// increment always travel in one transaction, so a crash can never leave a
// vote row without its tally bump or the other way around.
type Tally struct {
	db    *gorm.DB
	clock Clock
}

func NewTally(db *gorm.DB, clock Clock) *Tally {
	return &Tally{db: db, clock: clock}
}

// CastVote records one vote per (election, voter) and bumps the candidate
// tally. The unique vote key rejects a racing double vote; the increment
// is a relative UPDATE, not read-modify-write, so simultaneous votes for
// the same candidate all land.
func (t *Tally) CastVote(ctx context.Context, electionID, candidateID, voterID string) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var el types.Election
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&el, "id = ?", electionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storage("election lookup", err)
		}
		if el.Status != types.ElectionActive {
			return ErrElectionClosed
		}

		var candidate types.Candidate
		err = tx.First(&candidate, "id = ? AND election_id = ?", candidateID, electionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storage("candidate lookup", err)
		}

		vote := types.ElectionVote{
			ElectionID:  electionID,
			VoterID:     voterID,
			CandidateID: candidateID,
		}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return storage("vote create", err)
		}

		res := tx.Model(&types.Candidate{}).Where("id = ?", candidateID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + 1"))
		if res.Error != nil {
			return storage("tally increment", res.Error)
		}
		return nil
	})
}

// VoteOnProposal is CastVote's twin for the yes/no tally on a proposal.
// Voting closes when the window elapses even if the proposal has not been
// resolved yet.
func (t *Tally) VoteOnProposal(ctx context.Context, proposalID, choice, voterID string) error {
	var column string
	switch choice {
	case types.VoteYes:
		column = "yes_count"
	case types.VoteNo:
		column = "no_count"
	default:
		return fmt.Errorf("invalid choice %q", choice)
	}

	now := t.clock.Now()
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prop types.Proposal
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&prop, "id = ?", proposalID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storage("proposal lookup", err)
		}
		if prop.Status != types.ProposalActive || !now.Before(prop.EndDate) {
			return ErrProposalClosed
		}

		vote := types.ProposalVote{
			ProposalID: proposalID,
			VoterID:    voterID,
			Choice:     choice,
		}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return storage("proposal vote create", err)
		}

		res := tx.Model(&types.Proposal{}).Where("id = ?", proposalID).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if res.Error != nil {
			return storage("proposal tally increment", res.Error)
		}
		return nil
	})
}
