package services

import (
	"github.com/shopspring/decimal"

	"github.com/cashbook/backend/internal/models"
)

// Entry is anything that carries a payment method and summable fields
type Entry interface {
	EntryMethod() models.PaymentMethod
	FieldValue(models.Field) decimal.Decimal
}

// ComputeTotalByMethod sums field across the entries paid with method.
// An empty slice sums to zero.
func ComputeTotalByMethod[E Entry](entries []E, method models.PaymentMethod, field models.Field) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.EntryMethod() == method {
			total = total.Add(e.FieldValue(field))
		}
	}
	return total
}

// computeTotal sums field across all entries regardless of method
func computeTotal[E Entry](entries []E, field models.Field) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.FieldValue(field))
	}
	return total
}

// Reindex renumbers out-party entries 1..N in their current order.
// The input slice is not modified.
func Reindex(entries []models.OutPartyEntry) []models.OutPartyEntry {
	out := make([]models.OutPartyEntry, len(entries))
	for i, e := range entries {
		e.Index = i + 1
		out[i] = e
	}
	return out
}

// MethodTotals is a per payment method breakdown
type MethodTotals struct {
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	PayPal decimal.Decimal `json:"payPal"`
}

// Totals is derived from a day's entries on demand and never stored
type Totals struct {
	OutParty     MethodTotals    `json:"outParty"`
	MainIn       MethodTotals    `json:"mainIn"`
	MainOut      MethodTotals    `json:"mainOut"`
	TotalIn      decimal.Decimal `json:"totalIn"`
	TotalOut     decimal.Decimal `json:"totalOut"`
	FinalBalance decimal.Decimal `json:"finalBalance"`
}

func methodTotals[E Entry](entries []E, field models.Field) MethodTotals {
	return MethodTotals{
		Cash:   ComputeTotalByMethod(entries, models.Cash, field),
		Card:   ComputeTotalByMethod(entries, models.Card, field),
		PayPal: ComputeTotalByMethod(entries, models.PayPal, field),
	}
}

// ComputeTotals applies the day-end arithmetic to a record.
//
// Every out-party settlement counts as cash in. Card and PayPal
// settlements are owed onward, so they count as cash out as well; out-party
// cash does not. The opening balance is carried for display only and is
// not part of the final balance.
func ComputeTotals(day models.DailyRecord) Totals {
	t := Totals{
		OutParty: methodTotals(day.OutPartyEntries, models.FieldAmount),
		MainIn:   methodTotals(day.MainEntries, models.FieldCashIn),
		MainOut:  methodTotals(day.MainEntries, models.FieldCashOut),
	}

	t.TotalIn = computeTotal(day.MainEntries, models.FieldCashIn).
		Add(computeTotal(day.OutPartyEntries, models.FieldAmount))
	t.TotalOut = computeTotal(day.MainEntries, models.FieldCashOut).
		Add(t.OutParty.Card).
		Add(t.OutParty.PayPal)
	t.FinalBalance = t.TotalIn.Sub(t.TotalOut)
	return t
}
