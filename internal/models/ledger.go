package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

// DailyRecord is the active day of a cash book.
// LastUpdated is unix milliseconds of the last mutation and is only used
// to order snapshots between devices.
type DailyRecord struct {
	Date            string          `json:"date" validate:"required"`
	OutPartyEntries []OutPartyEntry `json:"outPartyEntries" validate:"dive"`
	MainEntries     []MainEntry     `json:"mainEntries" validate:"dive"`
	OpeningBalance  decimal.Decimal `json:"openingBalance"`
	LastUpdated     int64           `json:"lastUpdated,omitempty"`
}

// HistoryRecord is an archived day. It is never modified once created.
type HistoryRecord struct {
	DailyRecord
	TotalIn      decimal.Decimal `json:"totalIn"`
	TotalOut     decimal.Decimal `json:"totalOut"`
	FinalBalance decimal.Decimal `json:"finalBalance"`
}

// AppState is the unit of persistence and sync for a Book ID.
// History is ordered most recent first.
type AppState struct {
	ActiveDay DailyRecord     `json:"activeDay"`
	History   []HistoryRecord `json:"history" validate:"dive"`
}

// NewDailyRecord returns an empty day labelled date
func NewDailyRecord(date string, openingBalance decimal.Decimal) DailyRecord {
	return DailyRecord{
		Date:            date,
		OutPartyEntries: []OutPartyEntry{},
		MainEntries:     []MainEntry{},
		OpeningBalance:  openingBalance,
	}
}

// NewAppState returns a fresh state with an empty active day and no history
func NewAppState(date string) AppState {
	return AppState{
		ActiveDay: NewDailyRecord(date, decimal.Zero),
		History:   []HistoryRecord{},
	}
}

// Clone returns a copy sharing no slices with r
func (r DailyRecord) Clone() DailyRecord {
	c := r
	c.OutPartyEntries = slices.Clone(r.OutPartyEntries)
	c.MainEntries = slices.Clone(r.MainEntries)
	if c.OutPartyEntries == nil {
		c.OutPartyEntries = []OutPartyEntry{}
	}
	if c.MainEntries == nil {
		c.MainEntries = []MainEntry{}
	}
	return c
}

// Clone returns a deep copy of s
func (s AppState) Clone() AppState {
	c := AppState{
		ActiveDay: s.ActiveDay.Clone(),
		History:   make([]HistoryRecord, len(s.History)),
	}
	for i, h := range s.History {
		h.DailyRecord = h.DailyRecord.Clone()
		c.History[i] = h
	}
	return c
}
