package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/remote"
	"github.com/cashbook/backend/internal/services"
	"github.com/cashbook/backend/internal/store"
)

// memoryRemote is an in-process book store
type memoryRemote struct {
	mu    sync.Mutex
	books map[string]models.AppState
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{books: make(map[string]models.AppState)}
}

func (m *memoryRemote) Fetch(_ context.Context, bookID string) (*models.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.books[bookID]
	if !ok {
		return nil, remote.ErrNotFoundOnRemote
	}
	clone := state.Clone()
	return &clone, nil
}

func (m *memoryRemote) Push(_ context.Context, bookID string, state models.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[bookID] = state.Clone()
	return nil
}

func (m *memoryRemote) get(bookID string) (models.AppState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.books[bookID]
	return state, ok
}

func newTestSession(t *testing.T, role models.Role, rs services.RemoteStore) *services.Session {
	t.Helper()
	ctx := context.Background()
	session, err := services.NewSession(ctx, store.NewLocalState(store.NewMemorySlotStore()), rs, services.SessionConfig{
		BookID:       "SHIVA-TEST",
		Role:         role,
		PollInterval: 10 * time.Millisecond,
		Timeout:      time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, session.Start(ctx))
	t.Cleanup(session.Close)
	return session
}

func newLedgerRouter(session *services.Session) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", NewLedgerHandler(session).Routes)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
