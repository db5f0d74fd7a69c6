package types

import "time"

// Citizens
type Citizen struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"size:32;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:72;not null"`
	CreatedAt    time.Time
}

// Communities
type Community struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:64;uniqueIndex;not null"`
	Description string `gorm:"size:512"`
	CreatorID   string `gorm:"size:36;not null"`
	CreatedAt   time.Time
}

type Post struct {
	ID          string `gorm:"primaryKey;size:36"`
	CommunityID string `gorm:"index;size:36;not null"`
	AuthorID    string `gorm:"index;size:36;not null"`
	Title       string `gorm:"size:255;not null"`
	Body        string `gorm:"type:text"`
	Upvotes     uint32 `gorm:"not null;default:0"` // derived; always equals count of PostUpvote rows
	CreatedAt   time.Time
}

// One row per (post, citizen); immutable once written. The sum of a
// citizen's post upvotes is their karma.
type PostUpvote struct {
	PostID    string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

type Comment struct {
	ID        string `gorm:"primaryKey;size:36"`
	PostID    string `gorm:"index;size:36;not null"`
	AuthorID  string `gorm:"size:36;not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// Daily action ledger. One row per citizen per UTC day, created on first
// spend and kept forever. The composite key is what the conditional
// increment in engine.Ledger races against.
type DailyUsage struct {
	UserID       string `gorm:"primaryKey;size:36"`
	UsageDate    string `gorm:"primaryKey;size:10"` // YYYY-MM-DD, UTC
	ActionsSpent uint32 `gorm:"not null;default:0"`
	UpdatedAt    time.Time
}

type CommunityBan struct {
	CommunityID string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"primaryKey;size:36"`
	Reason      string `gorm:"size:255;not null"`
	BannedBy    string `gorm:"size:36;not null"`
	BannedAt    time.Time
}

// Moderator roles
const (
	RoleCreator = "creator"
	RoleElected = "elected"
)

type ModeratorRole struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID string `gorm:"index:idx_mod_roles_member;size:36;not null"`
	UserID      string `gorm:"index:idx_mod_roles_member;size:36;not null"`
	Role        string `gorm:"size:16;not null"` // creator|elected
	TermStart   *time.Time
	TermEnd     *time.Time // nil for creator (permanent)
	CreatedAt   time.Time
}

// Moderation audit log
const (
	ModActionBanUser    = "ban_user"
	ModActionUnbanUser  = "unban_user"
	ModActionDeletePost = "delete_post"
)

type ModLog struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID string `gorm:"index;size:36;not null"`
	ModeratorID string `gorm:"size:36;not null"`
	ActionType  string `gorm:"size:32;not null"`
	TargetID    string `gorm:"size:36"`
	Reason      string `gorm:"size:255"`
	CreatedAt   time.Time
}

// Elections
const (
	ElectionActive = "active"
	ElectionClosed = "closed"
)

type Election struct {
	ID          string `gorm:"primaryKey;size:36"`
	CommunityID string `gorm:"index;size:36;not null"`
	StartDate   time.Time
	EndDate     time.Time
	Status      string `gorm:"index;size:16;not null"` // active|closed
	CreatedAt   time.Time
}

type Candidate struct {
	ID         string `gorm:"primaryKey;size:36"`
	ElectionID string `gorm:"uniqueIndex:idx_candidates_once,priority:1;size:36;not null"`
	UserID     string `gorm:"uniqueIndex:idx_candidates_once,priority:2;size:36;not null"`
	Manifesto  string `gorm:"type:text"`
	VoteCount  uint32 `gorm:"not null;default:0"` // derived; always equals count of ElectionVote rows
	CreatedAt  time.Time
}

// One row per (election, voter); immutable once written.
type ElectionVote struct {
	ElectionID  string `gorm:"primaryKey;size:36"`
	VoterID     string `gorm:"primaryKey;size:36"`
	CandidateID string `gorm:"index;size:36;not null"`
	CreatedAt   time.Time
}

// Proposals (binding config changes)
const (
	ProposalActive   = "active"
	ProposalResolved = "resolved"

	VoteYes = "yes"
	VoteNo  = "no"
)

type Proposal struct {
	ID          string `gorm:"primaryKey;size:36"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	TargetKey   string `gorm:"size:64;not null"`
	TargetValue string `gorm:"size:256;not null"`
	CreatorID   string `gorm:"size:36;not null"`
	Status      string `gorm:"index;size:16;not null"` // active|resolved
	YesCount    uint32 `gorm:"not null;default:0"`
	NoCount     uint32 `gorm:"not null;default:0"`
	EndDate     time.Time
	CreatedAt   time.Time
}

type ProposalVote struct {
	ProposalID string `gorm:"primaryKey;size:36"`
	VoterID    string `gorm:"primaryKey;size:36"`
	Choice     string `gorm:"size:8;not null"` // yes|no
	CreatedAt  time.Time
}

// Settings (runtime parameters; mutated only by proposal resolution or
// administrative seed)
type Setting struct {
	ID        uint32 `gorm:"primaryKey"`
	Name      string `gorm:"size:64;uniqueIndex;not null"`
	Value     string `gorm:"size:256;not null"`
	UpdatedAt time.Time
}
