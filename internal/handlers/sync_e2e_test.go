package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/remote"
	"github.com/cashbook/backend/internal/services"
	"github.com/cashbook/backend/internal/store"
)

// A writer device pushes through the HTTP book store and a viewer device
// polling the same Book ID converges on its state.
func TestWriterToViewerOverBookStore(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/v1", NewBookStoreHandler(store.NewMemorySlotStore(), nil).Routes)
	srv := httptest.NewServer(r)
	defer srv.Close()

	newClient := func() *remote.Client {
		return remote.NewClient(remote.Config{BaseURL: srv.URL + "/api/v1/books", Timeout: time.Second})
	}

	writer := newTestSession(t, models.RoleAdmin, newClient())
	viewer := newTestSession(t, models.RoleViewer, newClient())

	ctx := context.Background()
	_, err := writer.Ledger.AddOutPartyEntry(ctx, 40, models.Card)
	require.NoError(t, err)
	writer.Ledger.AddMainEntry(ctx, services.MainEntryInput{RoomNo: "7", Method: models.Cash, CashIn: 120})

	assert.Eventually(t, func() bool {
		return viewer.Ledger.LastUpdated() == writer.Ledger.LastUpdated()
	}, 2*time.Second, 10*time.Millisecond)

	got := viewer.Ledger.Snapshot().ActiveDay
	assert.Len(t, got.OutPartyEntries, 1)
	assert.Len(t, got.MainEntries, 1)
	assert.Equal(t, writer.Ledger.GetTotals().FinalBalance.String(), viewer.Ledger.GetTotals().FinalBalance.String())
}
