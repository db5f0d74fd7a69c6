package engine

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB opens gorm over a sqlmock connection with the same error
// translation the production dialector uses.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// newTestConfig builds a ConfigStore whose initial load returns the given
// settings rows.
func newTestConfig(t *testing.T, db *gorm.DB, mock sqlmock.Sqlmock, values map[string]string) *ConfigStore {
	t.Helper()

	rows := sqlmock.NewRows([]string{"id", "name", "value", "updated_at"})
	id := 1
	for name, value := range values {
		rows.AddRow(id, name, value, time.Now())
		id++
	}
	mock.ExpectQuery("SELECT \\* FROM `settings`").WillReturnRows(rows)

	cfg, err := NewConfigStore(db)
	require.NoError(t, err)
	return cfg
}

var testDay = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
