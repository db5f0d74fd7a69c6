package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/open-townhall/townhall/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResolutionPolicy decides which candidates take office when an election
// closes. Evaluated exactly once, by the call that performs the close.
type ResolutionPolicy interface {
	Winners(candidates []types.Candidate) []types.Candidate
}

// TopN seats the N highest tallies; ties break by earliest candidacy.
type TopN struct {
	N int
}

func (p TopN) Winners(candidates []types.Candidate) []types.Candidate {
	sorted := make([]types.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VoteCount != sorted[j].VoteCount {
			return sorted[i].VoteCount > sorted[j].VoteCount
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	if p.N >= 0 && len(sorted) > p.N {
		sorted = sorted[:p.N]
	}
	return sorted
}

// Elections runs the community election lifecycle:
// no-active-election -> active -> closed.
type Elections struct {
	db     *gorm.DB
	cfg    *ConfigStore
	clock  Clock
	policy ResolutionPolicy // nil: TopN with election_seats from config
}

func NewElections(db *gorm.DB, cfg *ConfigStore, clock Clock, policy ResolutionPolicy) *Elections {
	return &Elections{db: db, cfg: cfg, clock: clock, policy: policy}
}

func (e *Elections) resolutionPolicy() ResolutionPolicy {
	if e.policy != nil {
		return e.policy
	}
	return TopN{N: e.cfg.GetInt(KeyElectionSeats)}
}

// Start opens a new election for the community. At most one election per
// community may be active; the community row is locked for the duration
// of the check so two concurrent starts serialize and the loser sees
// ErrElectionInProgress.
func (e *Elections) Start(ctx context.Context, communityID string) (*types.Election, error) {
	now := e.clock.Now()
	el := &types.Election{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, e.cfg.GetInt(KeyElectionTermDays)),
		Status:      types.ElectionActive,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var community types.Community
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&community, "id = ?", communityID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storage("community lookup", err)
		}

		var active int64
		err = tx.Model(&types.Election{}).
			Where("community_id = ? AND status = ?", communityID, types.ElectionActive).
			Count(&active).Error
		if err != nil {
			return storage("active election count", err)
		}
		if active > 0 {
			return ErrElectionInProgress
		}

		if err := tx.Create(el).Error; err != nil {
			return storage("election create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return el, nil
}

// DeclareCandidacy registers userID in an active election. The unique
// (election, user) index backs the AlreadyCandidate rejection even when
// two declarations race.
func (e *Elections) DeclareCandidacy(ctx context.Context, electionID, userID, manifesto string) (*types.Candidate, error) {
	candidate := &types.Candidate{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		UserID:     userID,
		Manifesto:  manifesto,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

		if err := tx.Create(candidate).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCandidate
			}
			return storage("candidate create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// Close flips an election to closed and seats the winners for the next
// term. Idempotent and externally triggerable: closing an already-closed
// election is a no-op, and only the call that performs the flip runs the
// resolution policy, so a timer or retried trigger can invoke it freely.
func (e *Elections) Close(ctx context.Context, electionID string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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
			return nil
		}

		res := tx.Model(&types.Election{}).
			Where("id = ? AND status = ?", electionID, types.ElectionActive).
			Update("status", types.ElectionClosed)
		if res.Error != nil {
			return storage("election close", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var candidates []types.Candidate
		if err := tx.Find(&candidates, "election_id = ?", electionID).Error; err != nil {
			return storage("candidate list", err)
		}

		now := e.clock.Now()
		termEnd := now.AddDate(0, 0, e.cfg.GetInt(KeyElectionTermDays))
		for _, w := range e.resolutionPolicy().Winners(candidates) {
			role := types.ModeratorRole{
				CommunityID: el.CommunityID,
				UserID:      w.UserID,
				Role:        types.RoleElected,
				TermStart:   &now,
				TermEnd:     &termEnd,
			}
			if err := tx.Create(&role).Error; err != nil {
				return storage("moderator seat", err)
			}
		}
		return nil
	})
}
