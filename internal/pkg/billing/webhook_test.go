package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxaria/voxpremium/app/models"
)

func TestProcessEventAlreadyProcessed(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_1").
		WillReturnRows(countRows(1))
	mock.ExpectCommit()

	ev := &Event{ID: "evt_1", Type: eventTypeCheckoutCompleted, Kind: EventCheckoutCompleted,
		CheckoutCompleted: &CheckoutCompleted{CustomerID: "cus_1", DiscordID: "user-1"}}
	res, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventCheckoutCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_2").
		WillReturnRows(countRows(0))
	mock.ExpectExec(`INSERT INTO "users" .* ON CONFLICT \("discord_id"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET total_slots = total_slots \+ 1 WHERE stripe_customer_id = \$1`).
		WithArgs("cus_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "processed_stripe_events" \("event_id","processed_at"\) VALUES \(\$1,\$2\)$`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := &Event{ID: "evt_2", Type: eventTypeCheckoutCompleted, Kind: EventCheckoutCompleted,
		CheckoutCompleted: &CheckoutCompleted{CustomerID: "cus_1", DiscordID: "user-1"}}
	res, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)
	assert.False(t, res.Ignored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventUnknownTypeIgnored(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_3").
		WillReturnRows(countRows(0))
	mock.ExpectCommit()

	ev := &Event{ID: "evt_3", Type: "invoice.paid", Kind: EventUnknown}
	res, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventSubscriptionDeletedResetsUser(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_4").
		WillReturnRows(countRows(0))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE stripe_customer_id = \$1 .* FOR UPDATE`).
		WithArgs("cus_1", 1).
		WillReturnRows(userRows("user-1", strptr("cus_1"), 3))
	mock.ExpectExec(`DELETE FROM "guild_boosts" WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE "users" SET "total_slots"=\$1 WHERE discord_id = \$2`).
		WithArgs(0, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "processed_stripe_events" \("event_id","processed_at"\) VALUES \(\$1,\$2\)$`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := &Event{ID: "evt_4", Type: eventTypeSubscriptionDeleted, Kind: EventSubscriptionDeleted,
		SubscriptionDeleted: &SubscriptionDeleted{CustomerID: "cus_1"}}
	res, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, res.Ignored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventSubscriptionDeletedUnknownCustomerStillConsumed(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_5").
		WillReturnRows(countRows(0))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE stripe_customer_id = \$1 .* FOR UPDATE`).
		WithArgs("cus_ghost", 1).
		WillReturnRows(emptyUserRows())
	mock.ExpectExec(`INSERT INTO "processed_stripe_events" \("event_id","processed_at"\) VALUES \(\$1,\$2\)$`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := &Event{ID: "evt_5", Type: eventTypeSubscriptionDeleted, Kind: EventSubscriptionDeleted,
		SubscriptionDeleted: &SubscriptionDeleted{CustomerID: "cus_ghost"}}
	_, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventChargeRefundedEvictsNewestBoost(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_6").
		WillReturnRows(countRows(0))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE stripe_customer_id = \$1 .* FOR UPDATE`).
		WithArgs("cus_1", 1).
		WillReturnRows(userRows("user-1", strptr("cus_1"), 2))
	mock.ExpectExec(`UPDATE "users" SET "total_slots"=\$1 WHERE discord_id = \$2`).
		WithArgs(1, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "guild_boosts" WHERE user_id = \$1 ORDER BY created_at DESC, id DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "guild_id", "user_id", "created_at"}).
			AddRow(11, int64(100), "user-1", now).
			AddRow(10, int64(200), "user-1", now.Add(-time.Hour)))
	mock.ExpectExec(`DELETE FROM "guild_boosts" WHERE "guild_boosts"\."id" = \$1`).
		WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "processed_stripe_events" \("event_id","processed_at"\) VALUES \(\$1,\$2\)$`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := &Event{ID: "evt_6", Type: eventTypeChargeRefunded, Kind: EventChargeRefunded,
		ChargeRefunded: &ChargeRefunded{CustomerID: "cus_1"}}
	res, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, res.RemovedGuilds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventChargeRefundedUnknownCustomerNotConsumed(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_7").
		WillReturnRows(countRows(0))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE stripe_customer_id = \$1 .* FOR UPDATE`).
		WithArgs("cus_ghost", 1).
		WillReturnRows(emptyUserRows())
	mock.ExpectCommit()

	ev := &Event{ID: "evt_7", Type: eventTypeChargeRefunded, Kind: EventChargeRefunded,
		ChargeRefunded: &ChargeRefunded{CustomerID: "cus_ghost"}}
	res, err := svc.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A concurrent delivery that lost the race hits the marker's primary key. The
// insert must be a plain INSERT (asserted by the anchored expectations above)
// so the conflict errors and rolls the duplicate mutation back.
func TestProcessEventDuplicateDeliveryRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "processed_stripe_events" WHERE event_id = \$1`).
		WithArgs("evt_8").
		WillReturnRows(countRows(0))
	mock.ExpectExec(`INSERT INTO "users" .* ON CONFLICT \("discord_id"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET total_slots = total_slots \+ 1 WHERE stripe_customer_id = \$1`).
		WithArgs("cus_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "processed_stripe_events" \("event_id","processed_at"\) VALUES \(\$1,\$2\)$`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "processed_stripe_events_pkey"`))
	mock.ExpectRollback()

	ev := &Event{ID: "evt_8", Type: eventTypeCheckoutCompleted, Kind: EventCheckoutCompleted,
		CheckoutCompleted: &CheckoutCompleted{CustomerID: "cus_1", DiscordID: "user-1"}}
	_, err := svc.ProcessEvent(context.Background(), ev)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvictionPlan(t *testing.T) {
	newestFirst := []models.GuildBoost{
		{ID: 3, GuildID: 30},
		{ID: 2, GuildID: 20},
		{ID: 1, GuildID: 10},
	}

	tests := []struct {
		name string
		keep int
		want []uint
	}{
		{"keep all", 3, nil},
		{"keep more than held", 5, nil},
		{"evict one", 2, []uint{3}},
		{"evict all", 0, []uint{3, 2, 1}},
		{"negative keep clamps to zero", -1, []uint{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []uint
			for _, b := range evictionPlan(newestFirst, tt.keep) {
				got = append(got, b.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPurgeProcessedEvents(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "processed_stripe_events" WHERE processed_at < \$1`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	purged, err := svc.PurgeProcessedEvents(context.Background(), ProcessedEventRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
