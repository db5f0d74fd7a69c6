package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/open-townhall/townhall/src/api/types"
	"gorm.io/gorm"
)

// Engine wires the governance components behind the operations the HTTP
// layer calls.
//
// Ordering on community-scoped writes is fixed everywhere: the ban check
// runs before the budget spend, so a banned attempt never consumes energy.
// Deterministic rejections (closed election, elapsed proposal window,
// obvious duplicates) are likewise pre-checked before the spend; the
// authoritative enforcement stays inside the component transactions, so a
// unit of budget can still be consumed by an attempt that loses a
// photo-finish race. Moderator actions (delete, ban) exercise power rather
// than citizenship and do not spend budget.
type Engine struct {
	db        *gorm.DB
	clock     Clock
	Config    *ConfigStore
	Ledger    *Ledger
	Guard     *Guard
	Elections *Elections
	Tally     *Tally
	Proposals *Proposals
}

func New(db *gorm.DB, cfg *ConfigStore, clock Clock, policy ResolutionPolicy) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{
		db:        db,
		clock:     clock,
		Config:    cfg,
		Ledger:    NewLedger(db, cfg, clock),
		Guard:     NewGuard(db, clock),
		Elections: NewElections(db, cfg, clock, policy),
		Tally:     NewTally(db, clock),
		Proposals: NewProposals(db, cfg, clock),
	}
}

func (e *Engine) community(ctx context.Context, id string) (*types.Community, error) {
	var c types.Community
	err := e.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage("community lookup", err)
	}
	return &c, nil
}

func (e *Engine) post(ctx context.Context, id string) (*types.Post, error) {
	var p types.Post
	err := e.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage("post lookup", err)
	}
	return &p, nil
}

// CreateCommunity spends one action and founds a community; the founder
// takes the permanent creator role in the same transaction.
func (e *Engine) CreateCommunity(ctx context.Context, name, description, creatorID string) (*types.Community, error) {
	if err := e.Ledger.TrySpend(ctx, creatorID); err != nil {
		return nil, err
	}

	community := &types.Community{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatorID:   creatorID,
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrNameTaken
			}
			return storage("community create", err)
		}
		role := types.ModeratorRole{
			CommunityID: community.ID,
			UserID:      creatorID,
			Role:        types.RoleCreator,
		}
		if err := tx.Create(&role).Error; err != nil {
			return storage("creator role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

// CreatePost: ban check, spend, insert.
func (e *Engine) CreatePost(ctx context.Context, communityID, authorID, title, body string) (*types.Post, error) {
	if _, err := e.community(ctx, communityID); err != nil {
		return nil, err
	}
	if err := e.Guard.CheckBan(ctx, authorID, communityID); err != nil {
		return nil, err
	}
	if err := e.Ledger.TrySpend(ctx, authorID); err != nil {
		return nil, err
	}

	post := &types.Post{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		AuthorID:    authorID,
		Title:       title,
		Body:        body,
	}
	if err := e.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, storage("post create", err)
	}
	return post, nil
}

// CreateComment: ban check against the post's community, spend, insert.
func (e *Engine) CreateComment(ctx context.Context, postID, authorID, body string) (*types.Comment, error) {
	post, err := e.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := e.Guard.CheckBan(ctx, authorID, post.CommunityID); err != nil {
		return nil, err
	}
	if err := e.Ledger.TrySpend(ctx, authorID); err != nil {
		return nil, err
	}

	comment := &types.Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := e.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, storage("comment create", err)
	}
	return comment, nil
}

// UpvotePost: ban check against the post's community, duplicate pre-check,
// spend, then insert-plus-increment in one transaction. One upvote per
// (post, citizen), enforced by the composite key; the upvotes column is a
// relative increment so concurrent upvotes from different citizens all land.
func (e *Engine) UpvotePost(ctx context.Context, postID, userID string) error {
	post, err := e.post(ctx, postID)
	if err != nil {
		return err
	}
	if err := e.Guard.CheckBan(ctx, userID, post.CommunityID); err != nil {
		return err
	}

	var dup int64
	err = e.db.WithContext(ctx).Model(&types.PostUpvote{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&dup).Error
	if err != nil {
		return storage("upvote pre-check", err)
	}
	if dup > 0 {
		return ErrAlreadyVoted
	}

	if err := e.Ledger.TrySpend(ctx, userID); err != nil {
		return err
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upvote := types.PostUpvote{PostID: postID, UserID: userID}
		if err := tx.Create(&upvote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return storage("upvote create", err)
		}
		res := tx.Model(&types.Post{}).Where("id = ?", postID).
			UpdateColumn("upvotes", gorm.Expr("upvotes + 1"))
		if res.Error != nil {
			return storage("upvote increment", res.Error)
		}
		return nil
	})
}

// DeletePost removes a post and its comments; moderator only. The audit
// row lands in the same transaction as the delete.
func (e *Engine) DeletePost(ctx context.Context, postID, modID, reason string) error {
	post, err := e.post(ctx, postID)
	if err != nil {
		return err
	}
	mod, err := e.Guard.IsModerator(ctx, modID, post.CommunityID)
	if err != nil {
		return err
	}
	if !mod {
		return ErrUnauthorized
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&types.Comment{}, "post_id = ?", postID).Error; err != nil {
			return storage("comment delete", err)
		}
		if err := tx.Delete(&types.Post{}, "id = ?", postID).Error; err != nil {
			return storage("post delete", err)
		}
		entry := types.ModLog{
			CommunityID: post.CommunityID,
			ModeratorID: modID,
			ActionType:  types.ModActionDeletePost,
			TargetID:    postID,
			Reason:      reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return storage("mod log", err)
		}
		return nil
	})
}

// BanUser exiles a citizen from a community; moderator only. Banning an
// already-banned citizen is a no-op.
func (e *Engine) BanUser(ctx context.Context, targetUsername, communityID, modID, reason string) error {
	mod, err := e.Guard.IsModerator(ctx, modID, communityID)
	if err != nil {
		return err
	}
	if !mod {
		return ErrUnauthorized
	}

	var target types.Citizen
	err = e.db.WithContext(ctx).First(&target, "username = ?", targetUsername).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storage("citizen lookup", err)
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ban := types.CommunityBan{
			CommunityID: communityID,
			UserID:      target.ID,
			Reason:      reason,
			BannedBy:    modID,
		}
		if err := tx.Create(&ban).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return storage("ban create", err)
		}
		entry := types.ModLog{
			CommunityID: communityID,
			ModeratorID: modID,
			ActionType:  types.ModActionBanUser,
			TargetID:    target.ID,
			Reason:      reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return storage("mod log", err)
		}
		return nil
	})
}

// UnbanUser lifts a ban; moderator only. Not exposed over HTTP yet, but
// the lifecycle is complete: ban rows are only ever removed here.
func (e *Engine) UnbanUser(ctx context.Context, targetUserID, communityID, modID string) error {
	mod, err := e.Guard.IsModerator(ctx, modID, communityID)
	if err != nil {
		return err
	}
	if !mod {
		return ErrUnauthorized
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&types.CommunityBan{}, "community_id = ? AND user_id = ?", communityID, targetUserID)
		if res.Error != nil {
			return storage("ban delete", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		entry := types.ModLog{
			CommunityID: communityID,
			ModeratorID: modID,
			ActionType:  types.ModActionUnbanUser,
			TargetID:    targetUserID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return storage("mod log", err)
		}
		return nil
	})
}

// StartElection: ban check, spend, then the state machine.
func (e *Engine) StartElection(ctx context.Context, communityID, starterID string) (*types.Election, error) {
	if _, err := e.community(ctx, communityID); err != nil {
		return nil, err
	}
	if err := e.Guard.CheckBan(ctx, starterID, communityID); err != nil {
		return nil, err
	}
	if err := e.Ledger.TrySpend(ctx, starterID); err != nil {
		return nil, err
	}
	return e.Elections.Start(ctx, communityID)
}

// DeclareCandidacy: closed check, ban check, duplicate pre-check, spend,
// register.
func (e *Engine) DeclareCandidacy(ctx context.Context, electionID, userID, manifesto string) (*types.Candidate, error) {
	var el types.Election
	err := e.db.WithContext(ctx).First(&el, "id = ?", electionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage("election lookup", err)
	}
	if el.Status != types.ElectionActive {
		return nil, ErrElectionClosed
	}
	if err := e.Guard.CheckBan(ctx, userID, el.CommunityID); err != nil {
		return nil, err
	}

	var dup int64
	err = e.db.WithContext(ctx).Model(&types.Candidate{}).
		Where("election_id = ? AND user_id = ?", electionID, userID).
		Count(&dup).Error
	if err != nil {
		return nil, storage("candidate pre-check", err)
	}
	if dup > 0 {
		return nil, ErrAlreadyCandidate
	}

	if err := e.Ledger.TrySpend(ctx, userID); err != nil {
		return nil, err
	}
	return e.Elections.DeclareCandidacy(ctx, electionID, userID, manifesto)
}

// CastVote: closed check, ban check, duplicate pre-check, spend, tally.
func (e *Engine) CastVote(ctx context.Context, electionID, candidateID, voterID string) error {
	var el types.Election
	err := e.db.WithContext(ctx).First(&el, "id = ?", electionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storage("election lookup", err)
	}
	if el.Status != types.ElectionActive {
		return ErrElectionClosed
	}
	if err := e.Guard.CheckBan(ctx, voterID, el.CommunityID); err != nil {
		return err
	}

	var dup int64
	err = e.db.WithContext(ctx).Model(&types.ElectionVote{}).
		Where("election_id = ? AND voter_id = ?", electionID, voterID).
		Count(&dup).Error
	if err != nil {
		return storage("vote pre-check", err)
	}
	if dup > 0 {
		return ErrAlreadyVoted
	}

	if err := e.Ledger.TrySpend(ctx, voterID); err != nil {
		return err
	}
	return e.Tally.CastVote(ctx, electionID, candidateID, voterID)
}

// CreateProposal spends one action and opens a proposal. Proposals are
// platform-wide, so there is no community ban to check.
func (e *Engine) CreateProposal(ctx context.Context, title, description, key, value, creatorID string) (*types.Proposal, error) {
	if !ProposalKey(key) {
		return nil, ErrUnknownConfigKey
	}
	if n, err := strconv.Atoi(value); err != nil || n < 1 {
		return nil, ErrInvalidConfigValue
	}
	if err := e.Ledger.TrySpend(ctx, creatorID); err != nil {
		return nil, err
	}
	return e.Proposals.Create(ctx, title, description, key, value, creatorID)
}

// VoteOnProposal: window check, duplicate pre-check, spend, tally.
func (e *Engine) VoteOnProposal(ctx context.Context, proposalID, choice, voterID string) error {
	var prop types.Proposal
	err := e.db.WithContext(ctx).First(&prop, "id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storage("proposal lookup", err)
	}
	if prop.Status != types.ProposalActive || !e.clock.Now().Before(prop.EndDate) {
		return ErrProposalClosed
	}

	var dup int64
	err = e.db.WithContext(ctx).Model(&types.ProposalVote{}).
		Where("proposal_id = ? AND voter_id = ?", proposalID, voterID).
		Count(&dup).Error
	if err != nil {
		return storage("proposal vote pre-check", err)
	}
	if dup > 0 {
		return ErrAlreadyVoted
	}

	if err := e.Ledger.TrySpend(ctx, voterID); err != nil {
		return err
	}
	return e.Tally.VoteOnProposal(ctx, proposalID, choice, voterID)
}
