package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventAddOutParty    = "ADD_OUT_PARTY"
	EventDeleteOutParty = "DELETE_OUT_PARTY"
	EventAddMain        = "ADD_MAIN"
	EventDeleteMain     = "DELETE_MAIN"
	EventDayEnd         = "DAY_END"
	EventBookSwitch     = "BOOK_SWITCH"
	EventRemoteApplied  = "REMOTE_APPLIED"
	EventError          = "ERROR"
)

type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	BookID    string            `json:"book_id"`
	EntryID   string            `json:"entry_id,omitempty"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditLogger writes one structured line per ledger event
type AuditLogger struct {
	logger zerolog.Logger
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: log.With().Str("component", "audit").Logger()}
}

// NewAuditLoggerWith writes events to logger instead of the global one
func NewAuditLoggerWith(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) LogEntry(eventType, bookID, entryID string, amount decimal.Decimal) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		BookID:    bookID,
		EntryID:   entryID,
		Amount:    amount,
		Status:    "SUCCESS",
	})
}

func (a *AuditLogger) LogDayEnd(bookID, date string, totalIn, totalOut, finalBalance decimal.Decimal) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: EventDayEnd,
		BookID:    bookID,
		Amount:    finalBalance,
		Status:    "SUCCESS",
		Details: map[string]string{
			"date":      date,
			"total_in":  totalIn.String(),
			"total_out": totalOut.String(),
		},
	})
}

func (a *AuditLogger) LogOperation(eventType, bookID, details string) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		BookID:    bookID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	})
}

func (a *AuditLogger) LogError(bookID string, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: EventError,
		BookID:    bookID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	e := a.logger.Info()
	if event.Status == "FAILED" {
		e = a.logger.Warn()
	}
	e.Time("at", event.Timestamp).
		Str("event_type", event.EventType).
		Str("book_id", event.BookID).
		Str("entry_id", event.EntryID).
		Str("amount", event.Amount.String()).
		Str("status", event.Status).
		Interface("details", event.Details).
		Msg("AUDIT")
}
