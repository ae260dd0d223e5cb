package billing

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB opens a GORM handle over a sqlmock connection. The simple protocol
// keeps the emitted SQL close to what the expectations match on.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return db, mock
}

func userRows(discordID string, customerID *string, totalSlots int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"discord_id", "stripe_customer_id", "total_slots", "created_at", "updated_at"}).
		AddRow(discordID, customerID, totalSlots, time.Now(), time.Now())
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"discord_id", "stripe_customer_id", "total_slots", "created_at", "updated_at"})
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func strptr(s string) *string {
	return &s
}
