package billing

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateBoostGrantsSlot(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE discord_id = \$1 .* FOR UPDATE`).
		WithArgs("user-1", 1).
		WillReturnRows(userRows("user-1", strptr("cus_1"), 2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "guild_boosts" WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(countRows(1))
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "guild_boosts" WHERE guild_id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(countRows(0))
	mock.ExpectQuery(`INSERT INTO "guild_boosts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	ok, err := svc.ActivateBoost(context.Background(), 100, "user-1", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateBoostUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE discord_id = \$1 .* FOR UPDATE`).
		WithArgs("nobody", 1).
		WillReturnRows(emptyUserRows())
	mock.ExpectRollback()

	ok, err := svc.ActivateBoost(context.Background(), 100, "nobody", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateBoostSlotsExhausted(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE discord_id = \$1 .* FOR UPDATE`).
		WithArgs("user-1", 1).
		WillReturnRows(userRows("user-1", strptr("cus_1"), 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "guild_boosts" WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(countRows(1))
	mock.ExpectRollback()

	ok, err := svc.ActivateBoost(context.Background(), 100, "user-1", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateBoostGuildAtCapacity(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE discord_id = \$1 .* FOR UPDATE`).
		WithArgs("user-1", 1).
		WillReturnRows(userRows("user-1", strptr("cus_1"), 5))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "guild_boosts" WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(countRows(0))
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "guild_boosts" WHERE guild_id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(countRows(2))
	mock.ExpectRollback()

	ok, err := svc.ActivateBoost(context.Background(), 100, "user-1", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateBoostRemovesSingleRow(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM guild_boosts WHERE guild_id = \$1 AND user_id = \$2 ORDER BY id LIMIT 1 FOR UPDATE`).
		WithArgs(int64(100), "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`DELETE FROM guild_boosts WHERE id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := svc.DeactivateBoost(context.Background(), 100, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateBoostNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM guild_boosts WHERE guild_id = \$1 AND user_id = \$2 ORDER BY id LIMIT 1 FOR UPDATE`).
		WithArgs(int64(100), "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	ok, err := svc.DeactivateBoost(context.Background(), 100, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuildBoostCountsBatchZeroFills(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery(`SELECT guild_id, COUNT\(\*\) as count FROM "guild_boosts" WHERE guild_id IN \(\$1,\$2,\$3\) GROUP BY`).
		WithArgs(int64(1), int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"guild_id", "count"}).AddRow(1, 2).AddRow(3, 1))

	counts, err := svc.GuildBoostCountsBatch(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 2, 2: 0, 3: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuildBoostCountsBatchEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, nil)

	counts, err := svc.GuildBoostCountsBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
