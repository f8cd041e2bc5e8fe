package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/store"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Fetch(ctx context.Context, bookID string) (*models.AppState, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppState), args.Error(1)
}

func (m *MockRemote) Push(ctx context.Context, bookID string, state models.AppState) error {
	args := m.Called(ctx, bookID, state)
	return args.Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingSlots is a SlotStore whose writes always fail
type failingSlots struct {
	*store.MemorySlotStore
	err error
}

func (f *failingSlots) Put(context.Context, string, []byte) error { return f.err }

func newTestLedger(clock Clock) (*LedgerService, *store.LocalState) {
	local := store.NewLocalState(store.NewMemorySlotStore())
	ledger := NewLedgerService(local, LedgerConfig{Clock: clock})
	if err := ledger.Open(context.Background(), "SHIVA-TEST"); err != nil {
		panic(err)
	}
	return ledger, local
}
