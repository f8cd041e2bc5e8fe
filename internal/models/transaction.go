package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Snapshots travel between devices as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentMethod is how a settlement or room transaction was paid
type PaymentMethod string

const (
	Cash   PaymentMethod = "CASH"
	Card   PaymentMethod = "CARD"
	PayPal PaymentMethod = "PAY PAL"
)

// PaymentMethods lists every accepted method in display order
var PaymentMethods = []PaymentMethod{Cash, Card, PayPal}

// Valid reports whether m is one of the known payment methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case Cash, Card, PayPal:
		return true
	}
	return false
}

// ParsePaymentMethod accepts the wire literal as well as the spelling
// "PAYPAL" used by some cashier keyboards.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch s {
	case "CASH", "cash":
		return Cash, true
	case "CARD", "card":
		return Card, true
	case "PAY PAL", "PAYPAL", "paypal", "pay pal":
		return PayPal, true
	}
	return "", false
}

// OutPartyEntry is a settlement received outside the room ledger.
// Index is 1-based and dense over the day's out-party entries.
type OutPartyEntry struct {
	ID     string          `json:"id" validate:"required"`
	Index  int             `json:"index" validate:"gte=1"`
	Method PaymentMethod   `json:"method" validate:"paymentmethod"`
	Amount decimal.Decimal `json:"amount"`
}

// MainEntry is a room-linked transaction line
type MainEntry struct {
	ID          string          `json:"id" validate:"required"`
	RoomNo      string          `json:"roomNo"`
	Description string          `json:"description"`
	Method      PaymentMethod   `json:"method" validate:"paymentmethod"`
	CashIn      decimal.Decimal `json:"cashIn"`
	CashOut     decimal.Decimal `json:"cashOut"`
}

// Field names a summable amount column of an entry
type Field string

const (
	FieldAmount  Field = "amount"
	FieldCashIn  Field = "cashIn"
	FieldCashOut Field = "cashOut"
)

func (e OutPartyEntry) EntryMethod() PaymentMethod { return e.Method }

// FieldValue returns the amount for FieldAmount and zero otherwise
func (e OutPartyEntry) FieldValue(f Field) decimal.Decimal {
	if f == FieldAmount {
		return e.Amount
	}
	return decimal.Zero
}

func (e MainEntry) EntryMethod() PaymentMethod { return e.Method }

func (e MainEntry) FieldValue(f Field) decimal.Decimal {
	switch f {
	case FieldCashIn:
		return e.CashIn
	case FieldCashOut:
		return e.CashOut
	}
	return decimal.Zero
}
