package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashbook/backend/internal/models"
)

func TestPostgresSlotStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresSlotStore(db)
	ctx := context.Background()

	t.Run("ensure schema", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS cashbook_slots").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, s.EnsureSchema(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get existing slot", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM cashbook_slots WHERE slot_key = \\$1").
			WithArgs("SHIVAS_ACTIVE_BOOK_ID").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("SHIVA-AB12"))

		value, err := s.Get(ctx, "SHIVAS_ACTIVE_BOOK_ID")
		assert.NoError(t, err)
		assert.Equal(t, "SHIVA-AB12", string(value))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing slot", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM cashbook_slots WHERE slot_key = \\$1").
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrSlotNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("put upserts", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO cashbook_slots").
			WithArgs("k", "v", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, s.Put(ctx, "k", []byte("v")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("put failure", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO cashbook_slots").
			WithArgs("k", "v", sqlmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		err := s.Put(ctx, "k", []byte("v"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestRedisSlotStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedisSlotStore(client, "book:")
	ctx := context.Background()

	t.Run("put", func(t *testing.T) {
		mock.ExpectSet("book:SHIVA-AB12", []byte(`{"a":1}`), 0).SetVal("OK")

		assert.NoError(t, s.Put(ctx, "SHIVA-AB12", []byte(`{"a":1}`)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get", func(t *testing.T) {
		mock.ExpectGet("book:SHIVA-AB12").SetVal(`{"a":1}`)

		value, err := s.Get(ctx, "SHIVA-AB12")
		assert.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(value))
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectGet("book:NONE").RedisNil()

		_, err := s.Get(ctx, "NONE")
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("transport failure", func(t *testing.T) {
		mock.ExpectGet("book:DOWN").SetErr(errors.New("dial tcp: refused"))

		_, err := s.Get(ctx, "DOWN")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrSlotNotFound))
	})
}

func TestLocalState(t *testing.T) {
	ctx := context.Background()
	local := NewLocalState(NewMemorySlotStore())

	t.Run("empty store", func(t *testing.T) {
		id, err := local.ActiveBookID(ctx)
		assert.NoError(t, err)
		assert.Empty(t, id)

		role, err := local.Role(ctx)
		assert.NoError(t, err)
		assert.Empty(t, role)

		_, err = local.LoadState(ctx, "SHIVA-AB12")
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		state := models.NewAppState("10/19/2026")
		state.ActiveDay.OpeningBalance = decimal.NewFromInt(1000)
		state.ActiveDay.LastUpdated = 42

		require.NoError(t, local.SaveState(ctx, "SHIVA-AB12", state))
		require.NoError(t, local.SetActiveBookID(ctx, "SHIVA-AB12"))
		require.NoError(t, local.SetRole(ctx, models.RoleViewer))

		loaded, err := local.LoadState(ctx, "SHIVA-AB12")
		require.NoError(t, err)
		assert.Equal(t, "10/19/2026", loaded.ActiveDay.Date)
		assert.Equal(t, int64(42), loaded.ActiveDay.LastUpdated)
		assert.Equal(t, "1000", loaded.ActiveDay.OpeningBalance.String())

		id, _ := local.ActiveBookID(ctx)
		assert.Equal(t, "SHIVA-AB12", id)
		role, _ := local.Role(ctx)
		assert.Equal(t, models.RoleViewer, role)
	})
}
