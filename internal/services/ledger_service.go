package services

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/cashbook/backend/internal/audit"
	"github.com/cashbook/backend/internal/metrics"
	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/store"
)

// DefaultDateLayout matches the en-US short date shown on the till
const DefaultDateLayout = "1/2/2006"

// ChangeFunc observes every committed local mutation. It runs while the
// ledger is locked and must not block.
type ChangeFunc func(bookID string, state models.AppState)

// LedgerConfig carries the optional collaborators of a LedgerService
type LedgerConfig struct {
	DateLayout string
	Clock      Clock
	Audit      *audit.AuditLogger
	Metrics    *metrics.Registry
}

// LedgerService owns the AppState of the selected Book ID. Every mutation
// updates memory, persists the whole state locally and then notifies the
// change observer. Local persistence failures are logged and never undo a
// mutation.
type LedgerService struct {
	mu         sync.Mutex
	bookID     string
	state      models.AppState
	local      *store.LocalState
	clock      Clock
	audit      *audit.AuditLogger
	metrics    *metrics.Registry
	validator  *ValidationHelper
	dateLayout string
	onChange   ChangeFunc
}

// MainEntryInput is what a cashier types for a room transaction
type MainEntryInput struct {
	RoomNo      string               `json:"roomNo"`
	Description string               `json:"description"`
	Method      models.PaymentMethod `json:"method"`
	CashIn      float64              `json:"cashIn"`
	CashOut     float64              `json:"cashOut"`
}

type outPartyInput struct {
	Amount float64              `validate:"gt=0"`
	Method models.PaymentMethod `validate:"required,paymentmethod"`
}

func NewLedgerService(local *store.LocalState, cfg LedgerConfig) *LedgerService {
	if cfg.DateLayout == "" {
		cfg.DateLayout = DefaultDateLayout
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
	s := &LedgerService{
		local:      local,
		clock:      cfg.Clock,
		audit:      cfg.Audit,
		metrics:    cfg.Metrics,
		validator:  NewValidationHelper(),
		dateLayout: cfg.DateLayout,
	}
	s.state = models.NewAppState(s.today())
	return s
}

// OnChange registers the observer notified after each local mutation
func (s *LedgerService) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Open selects bookID and loads its locally persisted state, or a fresh
// state when the device has never seen that book.
func (s *LedgerService) Open(ctx context.Context, bookID string) error {
	state, err := s.local.LoadState(ctx, bookID)
	if errors.Is(err, store.ErrSlotNotFound) {
		state = models.NewAppState(s.today())
	} else if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookID = bookID
	s.state = normalize(state)
	return nil
}

// Replace swaps in state for bookID without notifying the change
// observer. Used when switching books.
func (s *LedgerService) Replace(ctx context.Context, bookID string, state models.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookID = bookID
	s.state = normalize(state)
	s.persist(ctx)
}

// ApplyRemote replaces the local state with a snapshot fetched for bookID.
// The snapshot is dropped when the ledger has moved to another book or when
// it is not strictly newer than what the ledger holds.
func (s *LedgerService) ApplyRemote(ctx context.Context, bookID string, state models.AppState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bookID != s.bookID {
		return false
	}
	if state.ActiveDay.LastUpdated <= s.state.ActiveDay.LastUpdated {
		return false
	}

	s.state = normalize(state)
	s.persist(ctx)
	s.audit.LogOperation(audit.EventRemoteApplied, bookID, state.ActiveDay.Date)
	return true
}

func (s *LedgerService) BookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookID
}

// Snapshot returns a deep copy of the current AppState
func (s *LedgerService) Snapshot() models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// View returns the active Book ID together with a deep copy of its state
func (s *LedgerService) View() (string, models.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookID, s.state.Clone()
}

// LastUpdated is the timestamp of the last mutation the ledger has seen
func (s *LedgerService) LastUpdated() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveDay.LastUpdated
}

// History returns the archived days, most recent first
func (s *LedgerService) History() []models.HistoryRecord {
	return s.Snapshot().History
}

// HistoryAt returns the archived day at index i, 0 being the most recent
func (s *LedgerService) HistoryAt(i int) (models.HistoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.state.History) {
		return models.HistoryRecord{}, false
	}
	record := s.state.History[i]
	record.DailyRecord = record.DailyRecord.Clone()
	return record, true
}

func (s *LedgerService) AddOutPartyEntry(ctx context.Context, amount float64, method models.PaymentMethod) (models.OutPartyEntry, error) {
	if math.IsInf(amount, 0) {
		return models.OutPartyEntry{}, &ValidationError{Field: "amount", Reason: "must be a finite positive number"}
	}
	if err := s.validator.ValidateStruct(&outPartyInput{Amount: amount, Method: method}); err != nil {
		return models.OutPartyEntry{}, toValidationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.OutPartyEntry{
		ID:     uuid.NewString(),
		Index:  len(s.state.ActiveDay.OutPartyEntries) + 1,
		Method: method,
		Amount: decimal.NewFromFloat(amount),
	}
	s.state.ActiveDay.OutPartyEntries = append(s.state.ActiveDay.OutPartyEntries, entry)
	s.commit(ctx, "add_out_party")
	s.audit.LogEntry(audit.EventAddOutParty, s.bookID, entry.ID, entry.Amount)
	return entry, nil
}

// DeleteOutPartyEntry removes the entry and renumbers the rest. Unknown
// ids are ignored.
func (s *LedgerService) DeleteOutPartyEntry(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.state.ActiveDay.OutPartyEntries
	i := slices.IndexFunc(entries, func(e models.OutPartyEntry) bool { return e.ID == id })
	if i < 0 {
		return
	}
	removed := entries[i]
	s.state.ActiveDay.OutPartyEntries = Reindex(slices.Delete(slices.Clone(entries), i, i+1))
	s.commit(ctx, "delete_out_party")
	s.audit.LogEntry(audit.EventDeleteOutParty, s.bookID, id, removed.Amount)
}

// AddMainEntry never rejects input: amounts that are negative or not
// finite are recorded as zero and an unknown method as cash.
func (s *LedgerService) AddMainEntry(ctx context.Context, in MainEntryInput) models.MainEntry {
	method := in.Method
	if !method.Valid() {
		method = models.Cash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.MainEntry{
		ID:          uuid.NewString(),
		RoomNo:      in.RoomNo,
		Description: in.Description,
		Method:      method,
		CashIn:      nonNegative(in.CashIn),
		CashOut:     nonNegative(in.CashOut),
	}
	s.state.ActiveDay.MainEntries = append(s.state.ActiveDay.MainEntries, entry)
	s.commit(ctx, "add_main")
	s.audit.LogEntry(audit.EventAddMain, s.bookID, entry.ID, entry.CashIn.Sub(entry.CashOut))
	return entry
}

// DeleteMainEntry removes the entry. Unknown ids are ignored.
func (s *LedgerService) DeleteMainEntry(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.state.ActiveDay.MainEntries
	i := slices.IndexFunc(entries, func(e models.MainEntry) bool { return e.ID == id })
	if i < 0 {
		return
	}
	s.state.ActiveDay.MainEntries = slices.Delete(slices.Clone(entries), i, i+1)
	s.commit(ctx, "delete_main")
	s.audit.LogEntry(audit.EventDeleteMain, s.bookID, id, decimal.Zero)
}

// GetTotals recomputes the active day's totals from its entries
func (s *LedgerService) GetTotals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.state.ActiveDay)
}

// commit stamps, persists and publishes the state. Callers hold s.mu.
func (s *LedgerService) commit(ctx context.Context, op string) {
	s.state.ActiveDay.LastUpdated = s.nextStamp()
	s.persist(ctx)
	s.metrics.LedgerMutations.WithLabelValues(op).Inc()
	if s.onChange != nil {
		s.onChange(s.bookID, s.state.Clone())
	}
}

func (s *LedgerService) persist(ctx context.Context) {
	if s.bookID == "" {
		return
	}
	if err := s.local.SaveState(ctx, s.bookID, s.state); err != nil {
		log.Error().Err(err).Str("book_id", s.bookID).Msg("Failed to persist ledger locally")
		s.audit.LogError(s.bookID, err)
	}
}

// nextStamp returns the wall clock in unix millis, forced to move forward
func (s *LedgerService) nextStamp() int64 {
	now := s.clock.Now().UnixMilli()
	if prev := s.state.ActiveDay.LastUpdated; now <= prev {
		now = prev + 1
	}
	return now
}

func (s *LedgerService) today() string {
	return s.clock.Now().Format(s.dateLayout)
}

func nonNegative(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// normalize guarantees non-nil slices so snapshots encode as [] not null
func normalize(state models.AppState) models.AppState {
	state = state.Clone()
	if state.History == nil {
		state.History = []models.HistoryRecord{}
	}
	return state
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "input", Reason: err.Error(), Err: err}
	}
	switch verrs[0].Field() {
	case "Amount":
		return &ValidationError{Field: "amount", Reason: "must be a finite positive number", Err: err}
	case "Method":
		return &ValidationError{Field: "method", Reason: "must be one of CASH, CARD, PAY PAL", Err: err}
	}
	return &ValidationError{Field: verrs[0].Field(), Reason: verrs[0].Tag(), Err: err}
}
