package verify

import (
	"fmt"
	"sync"

	"matchwitness/internal/match"
)

// BatchReport builds reports for many records concurrently. Records are
// independent, so the work fans out one goroutine per record; the indexed
// result slice preserves the input order regardless of completion order.
// A failure on one record becomes an error entry in its slot and never
// aborts the siblings.
func (s *Service) BatchReport(records []match.VerifiedMatchRecord, participantID string, history []match.MatchRecord) []*Report {
	reports := make([]*Report, len(records))

	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = s.buildReportSafe(&records[i], participantID, history)
		}(i)
	}
	wg.Wait()

	return reports
}

// buildReportSafe converts a panic on a malformed record into an error
// entry so one bad item cannot take down the batch.
func (s *Service) buildReportSafe(v *match.VerifiedMatchRecord, participantID string, history []match.MatchRecord) (report *Report) {
	defer func() {
		if r := recover(); r != nil {
			report = &Report{
				RecordID: v.ID,
				Error:    fmt.Sprintf("record could not be processed: %v", r),
			}
		}
	}()
	return s.BuildReport(v, participantID, history)
}
