package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const createSlotsTable = `
	CREATE TABLE IF NOT EXISTS cashbook_slots (
		slot_key   TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`

// PostgresSlotStore keeps slots in the cashbook_slots table
type PostgresSlotStore struct {
	db *sql.DB
}

func NewPostgresSlotStore(db *sql.DB) *PostgresSlotStore {
	return &PostgresSlotStore{db: db}
}

// EnsureSchema creates the slots table if it does not exist yet
func (s *PostgresSlotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSlotsTable); err != nil {
		return fmt.Errorf("error creating cashbook_slots: %w", err)
	}
	return nil
}

func (s *PostgresSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM cashbook_slots WHERE slot_key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading slot %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *PostgresSlotStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cashbook_slots (slot_key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value), time.Now())
	if err != nil {
		return fmt.Errorf("error writing slot %s: %w", key, err)
	}
	return nil
}
