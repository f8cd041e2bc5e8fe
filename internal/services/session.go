package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cashbook/backend/internal/audit"
	"github.com/cashbook/backend/internal/metrics"
	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/store"
)

// SessionConfig selects the book and role of a device session
type SessionConfig struct {
	BookID       string
	Role         models.Role
	DeviceType   models.DeviceType
	PollInterval time.Duration
	Timeout      time.Duration
	DateLayout   string
	Clock        Clock
	Audit        *audit.AuditLogger
	Metrics      *metrics.Registry
}

// Session is the state handle of one device: the ledger it edits or
// watches and the reconciler keeping it in step with the book store. It is
// created at startup, handed to the HTTP layer and closed on shutdown.
type Session struct {
	Ledger *LedgerService
	Sync   *SyncService

	local  *store.LocalState
	bookID string
}

// NewSession resolves the role and Book ID from cfg, falling back to what
// the device persisted last time, and wires the ledger to the reconciler.
// A role that is neither configured nor stored comes from the device type.
func NewSession(ctx context.Context, local *store.LocalState, rs RemoteStore, cfg SessionConfig) (*Session, error) {
	role := cfg.Role
	if !role.Valid() {
		stored, err := local.Role(ctx)
		if err != nil {
			return nil, err
		}
		role = stored
	}
	if !role.Valid() {
		role = models.RoleForDevice(cfg.DeviceType)
	}
	if err := local.SetRole(ctx, role); err != nil {
		log.Error().Err(err).Msg("Failed to persist device role")
	}

	bookID := NormalizeBookID(cfg.BookID)
	if bookID == "" {
		stored, err := local.ActiveBookID(ctx)
		if err != nil {
			return nil, err
		}
		bookID = NormalizeBookID(stored)
	}
	if bookID == "" {
		bookID = GenerateBookID()
	}

	if cfg.Audit == nil {
		cfg.Audit = audit.NewAuditLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRegistry(nil)
	}

	ledger := NewLedgerService(local, LedgerConfig{
		DateLayout: cfg.DateLayout,
		Clock:      cfg.Clock,
		Audit:      cfg.Audit,
		Metrics:    cfg.Metrics,
	})
	reconciler := NewSyncService(ledger, local, rs, SyncConfig{
		Role:         role,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.Timeout,
		Clock:        cfg.Clock,
		Audit:        cfg.Audit,
		Metrics:      cfg.Metrics,
	})

	return &Session{Ledger: ledger, Sync: reconciler, local: local, bookID: bookID}, nil
}

// Start opens the initial book and starts background sync
func (s *Session) Start(ctx context.Context) error {
	log.Info().Str("book_id", s.bookID).Str("role", string(s.Sync.Role())).Msg("Starting cash book session")
	return s.Sync.Start(ctx, s.bookID)
}

// Close stops background sync. The ledger stays readable.
func (s *Session) Close() {
	s.Sync.Close()
}

func (s *Session) Role() models.Role { return s.Sync.Role() }
