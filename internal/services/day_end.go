package services

import (
	"context"
	"slices"

	"github.com/cashbook/backend/internal/models"
)

// PerformDayEnd closes the active day. The day is archived at the head of
// the history with its totals, and a fresh day dated tomorrow opens with the
// archived final balance. History and active day change together in one
// commit, so observers never see one without the other.
func (s *LedgerService) PerformDayEnd(ctx context.Context) models.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	closing := s.state.ActiveDay.Clone()
	totals := ComputeTotals(closing)
	record := models.HistoryRecord{
		DailyRecord:  closing,
		TotalIn:      totals.TotalIn,
		TotalOut:     totals.TotalOut,
		FinalBalance: totals.FinalBalance,
	}

	next := models.NewDailyRecord(
		s.clock.Now().AddDate(0, 0, 1).Format(s.dateLayout),
		totals.FinalBalance,
	)
	next.LastUpdated = s.state.ActiveDay.LastUpdated

	s.state = models.AppState{
		ActiveDay: next,
		History:   slices.Insert(slices.Clone(s.state.History), 0, record),
	}
	s.commit(ctx, "day_end")
	s.audit.LogDayEnd(s.bookID, closing.Date, totals.TotalIn, totals.TotalOut, totals.FinalBalance)

	archived := record
	archived.DailyRecord = record.DailyRecord.Clone()
	return archived
}
