package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/services"
)

func TestLedgerHandler_OutPartyEntries(t *testing.T) {
	rs := newMemoryRemote()
	session := newTestSession(t, models.RoleAdmin, rs)
	router := newLedgerRouter(session)

	t.Run("valid entry", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/v1/ledger/out-party", map[string]any{"amount": 100, "method": "CASH"})
		require.Equal(t, http.StatusCreated, w.Code)

		var entry models.OutPartyEntry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
		assert.Equal(t, 1, entry.Index)
		assert.Equal(t, models.Cash, entry.Method)
		assert.Equal(t, "100", entry.Amount.String())
	})

	t.Run("lenient method spelling", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/v1/ledger/out-party", map[string]any{"amount": 5, "method": "paypal"})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"method":"PAY PAL"`)
	})

	t.Run("invalid amount", func(t *testing.T) {
		for _, amount := range []float64{0, -3} {
			w := doJSON(t, router, "POST", "/api/v1/ledger/out-party", map[string]any{"amount": amount, "method": "CASH"})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"amount"`)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/v1/ledger/out-party", map[string]any{"amount": 5, "method": "CHEQUE"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"method"`)
	})

	t.Run("unknown fields", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/v1/ledger/out-party", map[string]any{"amount": 5, "method": "CASH", "note": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.Len(t, session.Ledger.Snapshot().ActiveDay.OutPartyEntries, 2)

	t.Run("delete reindexes", func(t *testing.T) {
		first := session.Ledger.Snapshot().ActiveDay.OutPartyEntries[0]
		w := doJSON(t, router, "DELETE", "/api/v1/ledger/out-party/"+first.ID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		entries := session.Ledger.Snapshot().ActiveDay.OutPartyEntries
		require.Len(t, entries, 1)
		assert.Equal(t, 1, entries[0].Index)
		assert.Equal(t, models.PayPal, entries[0].Method)
	})
}

func TestLedgerHandler_MainEntriesAndTotals(t *testing.T) {
	session := newTestSession(t, models.RoleAdmin, newMemoryRemote())
	router := newLedgerRouter(session)

	w := doJSON(t, router, "POST", "/api/v1/ledger/main", map[string]any{
		"roomNo": "12", "description": "Room 12 stay", "method": "CARD", "cashIn": 200,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/ledger/main", map[string]any{"method": "bogus", "cashOut": 30})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"method":"CASH"`)

	w = doJSON(t, router, "GET", "/api/v1/ledger/totals", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var totals services.Totals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.Equal(t, "200", totals.TotalIn.String())
	assert.Equal(t, "30", totals.TotalOut.String())
	assert.Equal(t, "170", totals.FinalBalance.String())
	assert.Equal(t, "200", totals.MainIn.Card.String())

	w = doJSON(t, router, "GET", "/api/v1/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view LedgerView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "SHIVA-TEST", view.BookID)
	assert.Equal(t, models.RoleAdmin, view.Role)
	assert.Len(t, view.State.ActiveDay.MainEntries, 2)
	assert.Equal(t, "170", view.Totals.FinalBalance.String())
}

func TestLedgerHandler_MainEntryFormAmounts(t *testing.T) {
	session := newTestSession(t, models.RoleAdmin, newMemoryRemote())
	router := newLedgerRouter(session)

	for _, tc := range []struct {
		name   string
		cashIn any
		want   string
	}{
		{"empty string", "", "0"},
		{"not a number", "abc", "0"},
		{"numeric string", "1000", "1000"},
		{"padded numeric string", " 12.5 ", "12.5"},
		{"null", nil, "0"},
		{"negative", -40, "0"},
		{"object", map[string]any{"v": 1}, "0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/v1/ledger/main", map[string]any{"method": "CASH", "cashIn": tc.cashIn, "cashOut": "abc"})
			require.Equal(t, http.StatusCreated, w.Code)

			var entry models.MainEntry
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
			assert.Equal(t, tc.want, entry.CashIn.String())
			assert.True(t, entry.CashOut.IsZero())
		})
	}
}

func TestLedgerHandler_DayEnd(t *testing.T) {
	session := newTestSession(t, models.RoleAdmin, newMemoryRemote())
	router := newLedgerRouter(session)

	doJSON(t, router, "POST", "/api/v1/ledger/main", map[string]any{"method": "CASH", "cashIn": 50})

	w := doJSON(t, router, "POST", "/api/v1/ledger/day-end", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var record models.HistoryRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "50", record.FinalBalance.String())

	w = doJSON(t, router, "GET", "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		History []models.HistoryRecord `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.History, 1)

	w = doJSON(t, router, "GET", "/api/v1/history/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"finalBalance":50`)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", "/api/v1/history/1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, "GET", "/api/v1/history/x", nil).Code)

	active := session.Ledger.Snapshot().ActiveDay
	assert.Empty(t, active.MainEntries)
	assert.Equal(t, "50", active.OpeningBalance.String())
}

func TestLedgerHandler_ViewerIsReadOnly(t *testing.T) {
	session := newTestSession(t, models.RoleViewer, newMemoryRemote())
	router := newLedgerRouter(session)

	for _, path := range []string{"/api/v1/ledger/out-party", "/api/v1/ledger/main", "/api/v1/ledger/day-end", "/api/v1/sync/push"} {
		w := doJSON(t, router, "POST", path, map[string]any{})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w := doJSON(t, router, "GET", "/api/v1/ledger", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, session.Ledger.Snapshot().ActiveDay.MainEntries)
}

func TestLedgerHandler_SwitchBook(t *testing.T) {
	session := newTestSession(t, models.RoleAdmin, newMemoryRemote())
	router := newLedgerRouter(session)

	w := doJSON(t, router, "PUT", "/api/v1/book", map[string]any{"bookId": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SHIVA-TEST", session.Ledger.BookID())

	w = doJSON(t, router, "PUT", "/api/v1/book", map[string]any{"bookId": " shiva-ab12 "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SHIVA-AB12", session.Ledger.BookID())

	w = doJSON(t, router, "GET", "/api/v1/book", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"bookId":"SHIVA-AB12"`))
}
