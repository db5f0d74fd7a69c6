package engine

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsWhenTableEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := newTestConfig(t, db, mock, nil)

	assert.Equal(t, "10", cfg.Get(KeyDailyEnergyLimit))
	assert.Equal(t, 30, cfg.GetInt(KeyElectionTermDays))
	assert.Equal(t, 7, cfg.GetInt(KeyProposalWindowDays))
	assert.Equal(t, 3, cfg.GetInt(KeyElectionSeats))
}

func TestConfigStoredValueWins(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := newTestConfig(t, db, mock, map[string]string{
		KeyDailyEnergyLimit: "15",
	})

	assert.Equal(t, 15, cfg.GetInt(KeyDailyEnergyLimit))
	// Untouched keys still fall back.
	assert.Equal(t, 30, cfg.GetInt(KeyElectionTermDays))
}

func TestConfigUnparsableFallsBack(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := newTestConfig(t, db, mock, map[string]string{
		KeyDailyEnergyLimit: "lots",
	})

	assert.Equal(t, 10, cfg.GetInt(KeyDailyEnergyLimit))
}

func TestConfigSetWritesThroughToCache(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := newTestConfig(t, db, mock, nil)

	mock.ExpectExec("INSERT INTO `settings`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, cfg.Set(context.Background(), KeyDailyEnergyLimit, "20"))
	assert.Equal(t, 20, cfg.GetInt(KeyDailyEnergyLimit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A parameter legislated by another process (the sweeper resolves
// proposals) reaches this cache on the next reload, not at restart.
func TestReloadPicksUpExternalWrites(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := newTestConfig(t, db, mock, nil)
	require.Equal(t, 10, cfg.GetInt(KeyDailyEnergyLimit))

	mock.ExpectQuery("SELECT \\* FROM `settings`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "value", "updated_at"}).
			AddRow(1, KeyDailyEnergyLimit, "15", testDay))

	require.NoError(t, cfg.Reload())
	assert.Equal(t, 15, cfg.GetInt(KeyDailyEnergyLimit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalKey(t *testing.T) {
	assert.True(t, ProposalKey(KeyDailyEnergyLimit))
	assert.True(t, ProposalKey(KeyElectionTermDays))
	assert.False(t, ProposalKey(KeyElectionSeats))
	assert.False(t, ProposalKey("jwt_secret"))
}
