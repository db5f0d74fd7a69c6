package engine

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-townhall/townhall/src/api/types"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	cfg := newTestConfig(t, db, mock, nil)
	return New(db, cfg, fixedClock{testDay}, nil), mock
}

// A banned citizen's post attempt is rejected before the budget is touched:
// no daily_usage statement may reach the database.
func TestCreatePostBannedSpendsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `communities`").
		WillReturnRows(communityRows().AddRow("c1", "plaza", "", "u9", testDay))
	mock.ExpectQuery("SELECT \\* FROM `community_bans`").
		WillReturnRows(sqlmock.NewRows([]string{"community_id", "user_id", "reason", "banned_by", "banned_at"}).
			AddRow("c1", "u1", "trolling", "m1", testDay))

	_, err := eng.CreatePost(context.Background(), "c1", "u1", "hello", "world")
	var banned *BannedError
	require.ErrorAs(t, err, &banned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePostBudgetExhausted(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `communities`").
		WillReturnRows(communityRows().AddRow("c1", "plaza", "", "u9", testDay))
	mock.ExpectQuery("SELECT \\* FROM `community_bans`").
		WillReturnRows(sqlmock.NewRows([]string{"community_id", "user_id", "reason", "banned_by", "banned_at"}))
	mock.ExpectExec("INSERT INTO `daily_usage`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE `daily_usage` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := eng.CreatePost(context.Background(), "c1", "u1", "hello", "world")
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	// No post row was attempted.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePost(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `communities`").
		WillReturnRows(communityRows().AddRow("c1", "plaza", "", "u9", testDay))
	mock.ExpectQuery("SELECT \\* FROM `community_bans`").
		WillReturnRows(sqlmock.NewRows([]string{"community_id", "user_id", "reason", "banned_by", "banned_at"}))
	mock.ExpectExec("INSERT INTO `daily_usage`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `daily_usage` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `posts`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	post, err := eng.CreatePost(context.Background(), "c1", "u1", "hello", "world")
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The duplicate pre-check fires before the spend, so an obvious repeat vote
// costs nothing.
func TestVoteOnProposalRepeatCostsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `proposals`").
		WillReturnRows(proposalRows().
			AddRow("p1", "more energy", "", KeyDailyEnergyLimit, "15", "u1", types.ProposalActive, 0, 0, testDay.AddDate(0, 0, 3), testDay))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `proposal_votes`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	err := eng.VoteOnProposal(context.Background(), "p1", "yes", "v1")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Deterministic closed-state rejections are pre-checked before the spend:
// voting on a visibly closed election, declaring into one, or voting on an
// expired proposal window returns the rejection with the budget untouched.
func TestCastVoteClosedElectionCostsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `elections`").
		WillReturnRows(electionRows().AddRow("e1", "c1", testDay.AddDate(0, 0, -40), testDay.AddDate(0, 0, -10), types.ElectionClosed, testDay))

	err := eng.CastVote(context.Background(), "e1", "ca", "v1")
	assert.ErrorIs(t, err, ErrElectionClosed)
	// No ban lookup, no daily_usage statement, no tally transaction.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareCandidacyClosedElectionCostsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `elections`").
		WillReturnRows(electionRows().AddRow("e1", "c1", testDay.AddDate(0, 0, -40), testDay.AddDate(0, 0, -10), types.ElectionClosed, testDay))

	_, err := eng.DeclareCandidacy(context.Background(), "e1", "u1", "late manifesto")
	assert.ErrorIs(t, err, ErrElectionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteOnProposalElapsedWindowCostsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `proposals`").
		WillReturnRows(proposalRows().
			AddRow("p1", "more energy", "", KeyDailyEnergyLimit, "15", "u1", types.ProposalActive, 5, 2, testDay.AddDate(0, 0, -1), testDay))

	err := eng.VoteOnProposal(context.Background(), "p1", "yes", "v1")
	assert.ErrorIs(t, err, ErrProposalClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func postRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "community_id", "author_id", "title", "body", "upvotes", "created_at"})
}

func TestUpvotePost(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(postRows().AddRow("p1", "c1", "u9", "hello", "world", 3, testDay))
	mock.ExpectQuery("SELECT \\* FROM `community_bans`").
		WillReturnRows(sqlmock.NewRows([]string{"community_id", "user_id", "reason", "banned_by", "banned_at"}))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `post_upvotes`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `daily_usage`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `daily_usage` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `post_upvotes`").
		WithArgs("p1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `posts` SET `upvotes`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, eng.UpvotePost(context.Background(), "p1", "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpvotePostRepeatCostsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(postRows().AddRow("p1", "c1", "u9", "hello", "world", 3, testDay))
	mock.ExpectQuery("SELECT \\* FROM `community_bans`").
		WillReturnRows(sqlmock.NewRows([]string{"community_id", "user_id", "reason", "banned_by", "banned_at"}))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `post_upvotes`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	err := eng.UpvotePost(context.Background(), "p1", "u1")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpvotePostBannedSpendsNothing(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(postRows().AddRow("p1", "c1", "u9", "hello", "world", 3, testDay))
	mock.ExpectQuery("SELECT \\* FROM `community_bans`").
		WillReturnRows(sqlmock.NewRows([]string{"community_id", "user_id", "reason", "banned_by", "banned_at"}).
			AddRow("c1", "u1", "trolling", "m1", testDay))

	err := eng.UpvotePost(context.Background(), "p1", "u1")
	var banned *BannedError
	require.ErrorAs(t, err, &banned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostRequiresModerator(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "community_id", "author_id", "title", "body", "created_at"}).
			AddRow("p1", "c1", "u1", "hello", "world", testDay))
	mock.ExpectQuery("SELECT \\* FROM `moderator_roles`").
		WillReturnRows(roleRows())

	err := eng.DeletePost(context.Background(), "p1", "intruder", "cleanup")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBanUserRequiresModerator(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT \\* FROM `moderator_roles`").
		WillReturnRows(roleRows())

	err := eng.BanUser(context.Background(), "troll", "c1", "intruder", "because")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateProposalValidatesBeforeSpending(t *testing.T) {
	eng, mock := newTestEngine(t)

	_, err := eng.CreateProposal(context.Background(), "t", "d", "not_a_key", "5", "u1")
	assert.ErrorIs(t, err, ErrUnknownConfigKey)

	_, err = eng.CreateProposal(context.Background(), "t", "d", KeyDailyEnergyLimit, "zero", "u1")
	assert.ErrorIs(t, err, ErrInvalidConfigValue)

	// Neither attempt may have reached the ledger.
	assert.NoError(t, mock.ExpectationsWereMet())
}
