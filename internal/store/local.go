package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cashbook/backend/internal/models"
)

const (
	bookKeyPrefix = "SHIVAS_CASH_BOOK_"
	activeBookKey = "SHIVAS_ACTIVE_BOOK_ID"
	deviceRoleKey = "SHIVAS_DEVICE_ROLE"
)

// LocalState lays out a device's persisted data over a SlotStore: one slot
// per Book ID holding the AppState, plus the active Book ID and the role.
type LocalState struct {
	slots SlotStore
}

func NewLocalState(slots SlotStore) *LocalState {
	return &LocalState{slots: slots}
}

// BookKey is the slot holding the AppState of bookID
func BookKey(bookID string) string {
	return bookKeyPrefix + bookID
}

// LoadState returns the persisted state of bookID, or ErrSlotNotFound
func (l *LocalState) LoadState(ctx context.Context, bookID string) (models.AppState, error) {
	var state models.AppState
	data, err := l.slots.Get(ctx, BookKey(bookID))
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("error decoding book %s: %w", bookID, err)
	}
	return state, nil
}

func (l *LocalState) SaveState(ctx context.Context, bookID string, state models.AppState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error encoding book %s: %w", bookID, err)
	}
	return l.slots.Put(ctx, BookKey(bookID), data)
}

// ActiveBookID returns the last selected Book ID, "" if none was saved
func (l *LocalState) ActiveBookID(ctx context.Context) (string, error) {
	data, err := l.slots.Get(ctx, activeBookKey)
	if errors.Is(err, ErrSlotNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *LocalState) SetActiveBookID(ctx context.Context, bookID string) error {
	return l.slots.Put(ctx, activeBookKey, []byte(bookID))
}

// Role returns the stored device role, "" if none was saved
func (l *LocalState) Role(ctx context.Context) (models.Role, error) {
	data, err := l.slots.Get(ctx, deviceRoleKey)
	if errors.Is(err, ErrSlotNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return models.Role(data), nil
}

func (l *LocalState) SetRole(ctx context.Context, role models.Role) error {
	return l.slots.Put(ctx, deviceRoleKey, []byte(role))
}
