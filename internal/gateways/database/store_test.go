package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStore(db), mock
}

func TestStore_UpsertUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "users" .* ON CONFLICT \(id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpsertUser(context.Background(), 42, "alice"))
}

func TestStore_GetUser(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM "users" AS "u" WHERE \(u.id = 42\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "balance", "last_draw_at", "created_at"}).
			AddRow(42, "alice", 25, nil, created))

	user, err := store.GetUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Handle)
	assert.Equal(t, int64(25), user.Balance)
	assert.True(t, user.LastDrawAt.IsZero())
}

func TestStore_GetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "balance", "last_draw_at", "created_at"}))

	_, err := store.GetUser(context.Background(), 42)
	require.ErrorIs(t, err, economy.ErrUserNotFound)
}

func TestStore_RecordDraw(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" AS "u" SET last_draw_at = .* WHERE \(id = 42\) AND \(last_draw_at IS NULL OR last_draw_at <= .*\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "user_cards" .* RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	id, err := store.RecordDraw(context.Background(), economy.NewCard{
		UserID: 42,
		Name:   "cat",
		Rarity: rarity.Common,
		Path:   "Обычный/cat.png",
	}, now, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestStore_RecordDrawCooldownRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "balance", "last_draw_at", "created_at"}).
			AddRow(42, "alice", 0, now, now))
	mock.ExpectRollback()

	_, err := store.RecordDraw(context.Background(), economy.NewCard{UserID: 42, Rarity: rarity.Rare}, now, now.Add(-time.Hour))
	require.ErrorIs(t, err, economy.ErrCooldownActive)
}

func TestStore_RecordDrawMissingUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "balance", "last_draw_at", "created_at"}))
	mock.ExpectRollback()

	_, err := store.RecordDraw(context.Background(), economy.NewCard{UserID: 42, Rarity: rarity.Rare}, now, now.Add(-time.Hour))
	require.ErrorIs(t, err, economy.ErrOrphanCard)
}

func TestStore_RecordDrawLookupFailure(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := store.RecordDraw(context.Background(), economy.NewCard{UserID: 42, Rarity: rarity.Rare}, now, now.Add(-time.Hour))
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, economy.ErrCooldownActive)
	assert.NotErrorIs(t, err, economy.ErrOrphanCard)
}

func TestStore_SellCard(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "user_cards" AS "uc" SET sold = TRUE WHERE \(id = 7\) AND \(user_id = 42\) AND \(sold = FALSE\) RETURNING rarity`).
		WillReturnRows(sqlmock.NewRows([]string{"rarity"}).AddRow("legendary"))
	mock.ExpectQuery(`UPDATE "users" AS "u" SET balance = balance \+ 50 WHERE \(id = 42\) RETURNING balance`).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(60))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_cards"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	sale, err := store.SellCard(context.Background(), 7, 42, rarity.DefaultTable())
	require.NoError(t, err)
	assert.Equal(t, rarity.Legendary, sale.Rarity)
	assert.Equal(t, int64(50), sale.Price)
	assert.Equal(t, int64(60), sale.Balance)
	assert.Equal(t, 2, sale.Remaining)
}

func TestStore_SellCardAlreadySold(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "user_cards"`).
		WillReturnRows(sqlmock.NewRows([]string{"rarity"}))
	mock.ExpectRollback()

	_, err := store.SellCard(context.Background(), 7, 42, rarity.DefaultTable())
	require.ErrorIs(t, err, economy.ErrNotFound)
}

func TestStore_SellCardCreditFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "user_cards"`).
		WillReturnRows(sqlmock.NewRows([]string{"rarity"}).AddRow("common"))
	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := store.SellCard(context.Background(), 7, 42, rarity.DefaultTable())
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, economy.ErrNotFound)
}

func TestStore_ListCards(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM "user_cards" AS "uc" WHERE \(user_id = 42\) AND \(sold = FALSE\) ORDER BY "obtained_at" DESC, "id" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "rarity", "path", "obtained_at", "sold"}).
			AddRow(9, 42, "dragon", "secret", "Секрет/dragon.png", now, false).
			AddRow(3, 42, "cat", "common", "Обычный/cat.png", now.Add(-time.Hour), false))

	cards, err := store.ListCards(context.Background(), 42, true)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, int64(9), cards[0].ID)
	assert.Equal(t, rarity.Secret, cards[0].Rarity)
	assert.Equal(t, "cat", cards[1].Name)
}

func TestStore_Leaderboard(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT u.id AS user_id, u.handle, u.balance, COUNT\(uc.id\) FILTER \(WHERE uc.sold = FALSE\) AS card_count FROM users AS u LEFT JOIN user_cards AS uc .* ORDER BY u.balance DESC, card_count DESC, u.id ASC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "handle", "balance", "card_count"}).
			AddRow(2, "", 100, 0).
			AddRow(1, "ann", 50, 3))

	entries, err := store.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].UserID)
	assert.Equal(t, 3, entries[1].CardCount)
}

func TestCreateSchema(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "user_cards" .* FOREIGN KEY \("user_id"\) REFERENCES "users" \("id"\) ON DELETE CASCADE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for range schemaIndexes {
		mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, CreateSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
