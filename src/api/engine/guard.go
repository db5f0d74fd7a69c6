package engine

import (
	"context"
	"errors"

	"github.com/open-townhall/townhall/src/api/types"
	"gorm.io/gorm"
)

// Guard answers ban and moderator questions. Pure reads; every
// community-scoped write consults it before anything else mutates.
type Guard struct {
	db    *gorm.DB
	clock Clock
}

func NewGuard(db *gorm.DB, clock Clock) *Guard {
	return &Guard{db: db, clock: clock}
}

// CheckBan returns a *BannedError when userID is banned from the community.
func (g *Guard) CheckBan(ctx context.Context, userID, communityID string) error {
	var ban types.CommunityBan
	err := g.db.WithContext(ctx).
		First(&ban, "community_id = ? AND user_id = ?", communityID, userID).Error
	if err == nil {
		return &BannedError{Reason: ban.Reason}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return storage("ban lookup", err)
}

// IsModerator reports whether userID currently moderates the community:
// either the permanent creator role or an elected role whose term covers
// the present moment.
func (g *Guard) IsModerator(ctx context.Context, userID, communityID string) (bool, error) {
	var roles []types.ModeratorRole
	err := g.db.WithContext(ctx).
		Find(&roles, "community_id = ? AND user_id = ?", communityID, userID).Error
	if err != nil {
		return false, storage("role lookup", err)
	}

	now := g.clock.Now()
	for _, r := range roles {
		if r.Role == types.RoleCreator {
			return true, nil
		}
		if r.TermStart != nil && r.TermEnd != nil &&
			!now.Before(*r.TermStart) && now.Before(*r.TermEnd) {
			return true, nil
		}
	}
	return false, nil
}
