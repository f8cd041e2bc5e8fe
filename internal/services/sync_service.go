package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cashbook/backend/internal/audit"
	"github.com/cashbook/backend/internal/metrics"
	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/remote"
	"github.com/cashbook/backend/internal/store"
)

// RemoteStore is the shared book store as seen by a device
type RemoteStore interface {
	Fetch(ctx context.Context, bookID string) (*models.AppState, error)
	Push(ctx context.Context, bookID string, state models.AppState) error
}

type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncError   SyncState = "error"
)

// SyncStatus is the display signal for the last sync activity
type SyncStatus struct {
	State        SyncState `json:"state"`
	Message      string    `json:"message,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt,omitempty"`
}

// SyncConfig tunes a SyncService
type SyncConfig struct {
	Role         models.Role
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        Clock
	Audit        *audit.AuditLogger
	Metrics      *metrics.Registry
}

type pushJob struct {
	bookID string
	state  models.AppState
}

// SyncService reconciles the ledger with the book store. A writer pushes
// every committed mutation as a whole-state overwrite, so concurrent
// writers on one Book ID race and the last write wins. A reader polls and
// applies a fetched state only when it is strictly newer than its own.
// Transport failures only ever reach the status signal.
type SyncService struct {
	ledger   *LedgerService
	local    *store.LocalState
	remote   RemoteStore
	role     models.Role
	interval time.Duration
	timeout  time.Duration
	clock    Clock
	audit    *audit.AuditLogger
	metrics  *metrics.Registry

	statusMu sync.Mutex
	status   SyncStatus

	pushes chan pushJob

	switchMu   sync.Mutex
	pollMu     sync.Mutex
	cancelPoll context.CancelFunc
	pollDone   chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewSyncService(ledger *LedgerService, local *store.LocalState, rs RemoteStore, cfg SyncConfig) *SyncService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewAuditLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRegistry(nil)
	}
	return &SyncService{
		ledger:   ledger,
		local:    local,
		remote:   rs,
		role:     cfg.Role,
		interval: cfg.PollInterval,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		status:   SyncStatus{State: SyncIdle},
		pushes:   make(chan pushJob, 1),
		done:     make(chan struct{}),
	}
}

// Role is the role this device was started with
func (s *SyncService) Role() models.Role { return s.role }

// Start opens bookID and begins pushing (writer) or polling (reader)
// until Close. The parent context bounds every background task.
func (s *SyncService) Start(ctx context.Context, bookID string) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.role.IsWriter() {
		s.ledger.OnChange(s.enqueuePush)
		s.wg.Add(1)
		go s.pushWorker()
	}

	_, err := s.SwitchBook(ctx, bookID)
	return err
}

// Close stops polling, flushes a pending push and waits for the workers
func (s *SyncService) Close() {
	s.closeOnce.Do(func() {
		s.switchMu.Lock()
		defer s.switchMu.Unlock()

		s.stopPolling()
		close(s.done)
		s.wg.Wait()
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Status returns the current sync status
func (s *SyncService) Status() SyncStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

func (s *SyncService) setStatus(state SyncState, message string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.State = state
	s.status.Message = message
	if state == SyncIdle {
		s.status.LastSyncedAt = s.clock.Now()
	}
}

// abandonSync drops a syncing status left by a fetch that was cancelled.
// LastSyncedAt keeps the time of the last real exchange.
func (s *SyncService) abandonSync() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if s.status.State == SyncSyncing {
		s.status.State = SyncIdle
		s.status.Message = ""
	}
}

// SwitchBook makes rawID the active book. The previous poll loop is
// stopped before anything is loaded, so no late response for the old key
// can land. The locally persisted state (or a fresh one) is opened and a
// fetch is made right away instead of waiting for the next tick.
func (s *SyncService) SwitchBook(ctx context.Context, rawID string) (string, error) {
	bookID := NormalizeBookID(rawID)
	if bookID == "" {
		return "", &ValidationError{Field: "bookId", Reason: "must not be blank"}
	}

	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	s.stopPolling()

	if err := s.ledger.Open(ctx, bookID); err != nil {
		log.Warn().Err(err).Str("book_id", bookID).Msg("Local book unreadable, starting fresh")
		s.ledger.Replace(ctx, bookID, models.NewAppState(s.ledger.today()))
	}
	if err := s.local.SetActiveBookID(ctx, bookID); err != nil {
		log.Error().Err(err).Str("book_id", bookID).Msg("Failed to persist active book id")
	}
	s.audit.LogOperation(audit.EventBookSwitch, bookID, string(s.role))

	s.setStatus(SyncSyncing, "")
	s.pollOnce(s.lifetime(ctx), bookID)

	if !s.role.IsWriter() {
		s.startPolling(bookID)
	}
	return bookID, nil
}

func (s *SyncService) lifetime(fallback context.Context) context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return fallback
}

func (s *SyncService) startPolling(bookID string) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	ctx, cancel := context.WithCancel(s.lifetime(context.Background()))
	done := make(chan struct{})
	s.cancelPoll, s.pollDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollOnce(ctx, bookID)
			}
		}
	}()
}

// stopPolling cancels the poll loop and waits for an in-flight poll to end
func (s *SyncService) stopPolling() {
	s.pollMu.Lock()
	cancel, done := s.cancelPoll, s.pollDone
	s.cancelPoll, s.pollDone = nil, nil
	s.pollMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// pollOnce fetches bookID and applies it if newer. It reports whether the
// local state was replaced.
func (s *SyncService) pollOnce(ctx context.Context, bookID string) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state, err := s.remote.Fetch(fetchCtx, bookID)
	if ctx.Err() != nil {
		s.abandonSync()
		return false
	}

	switch {
	case errors.Is(err, remote.ErrNotFoundOnRemote):
		s.metrics.SyncPolls.WithLabelValues("not_found").Inc()
		s.setStatus(SyncIdle, "")
		return false
	case err != nil:
		s.metrics.SyncPolls.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("book_id", bookID).Msg("Book store fetch failed")
		s.setStatus(SyncError, err.Error())
		return false
	}

	if !s.ledger.ApplyRemote(ctx, bookID, *state) {
		s.metrics.SyncPolls.WithLabelValues("stale").Inc()
		s.setStatus(SyncIdle, "")
		return false
	}

	s.metrics.SyncPolls.WithLabelValues("applied").Inc()
	s.metrics.RemoteApplied.Inc()
	s.setStatus(SyncIdle, "")
	return true
}

// enqueuePush keeps only the newest pending snapshot. It never blocks.
func (s *SyncService) enqueuePush(bookID string, state models.AppState) {
	job := pushJob{bookID: bookID, state: state}
	for {
		select {
		case s.pushes <- job:
			return
		default:
		}
		select {
		case <-s.pushes:
		default:
		}
	}
}

// pushWorker sends snapshots one at a time so they reach the book store in
// commit order.
func (s *SyncService) pushWorker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.pushes:
			s.push(s.ctx, job)
		case <-s.done:
			select {
			case job := <-s.pushes:
				ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
				s.push(ctx, job)
				cancel()
			default:
			}
			return
		}
	}
}

func (s *SyncService) push(ctx context.Context, job pushJob) {
	s.setStatus(SyncSyncing, "")

	pushCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.remote.Push(pushCtx, job.bookID, job.state)
	s.metrics.PushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.SyncPushes.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("book_id", job.bookID).Msg("Book store push failed")
		s.setStatus(SyncError, err.Error())
		return
	}
	s.metrics.SyncPushes.WithLabelValues("ok").Inc()
	s.setStatus(SyncIdle, "")
}

// Repush sends the current state again. Used to retry after a failed push.
func (s *SyncService) Repush() {
	if !s.role.IsWriter() {
		return
	}
	s.enqueuePush(s.ledger.BookID(), s.ledger.Snapshot())
}

// NormalizeBookID trims and upper-cases a user supplied key
func NormalizeBookID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

const bookIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateBookID returns a new SHIVA-XXXX key
func GenerateBookID() string {
	b := make([]byte, 4)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookIDAlphabet))))
		if err != nil {
			panic(err)
		}
		b[i] = bookIDAlphabet[n.Int64()]
	}
	return "SHIVA-" + string(b)
}
