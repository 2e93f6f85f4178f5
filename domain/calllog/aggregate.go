package calllog

import "time"

// Aggregate combines multiple events into a summary.
// This is a PURE function.
func Aggregate(events []Event, periodStart, periodEnd time.Time) Summary {
	if len(events) == 0 {
		return Summary{
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		}
	}

	var (
		resource      string
		callCount     int64
		errorCount    int64
		noContent     int64
		retried       int64
		totalAttempts int64
		totalLatency  int64
	)

	for _, e := range events {
		if resource == "" {
			resource = e.Resource
		}

		callCount++
		totalAttempts += int64(e.Attempts)
		totalLatency += e.LatencyMs

		switch e.Status {
		case StatusError:
			errorCount++
		case StatusNoContent:
			noContent++
		}
		if e.Retried() {
			retried++
		}
	}

	var avgLatency int64
	if callCount > 0 {
		avgLatency = totalLatency / callCount
	}

	return Summary{
		Resource:       resource,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		CallCount:      callCount,
		ErrorCount:     errorCount,
		NoContentCount: noContent,
		RetriedCount:   retried,
		TotalAttempts:  totalAttempts,
		AvgLatencyMs:   avgLatency,
	}
}

// MergeSummaries combines multiple summaries.
// This is a PURE function.
func MergeSummaries(summaries ...Summary) Summary {
	if len(summaries) == 0 {
		return Summary{}
	}

	result := summaries[0]
	for _, s := range summaries[1:] {
		// Weighted average for latency before the counts move.
		if result.CallCount+s.CallCount > 0 {
			total := result.AvgLatencyMs*result.CallCount + s.AvgLatencyMs*s.CallCount
			result.AvgLatencyMs = total / (result.CallCount + s.CallCount)
		}

		result.CallCount += s.CallCount
		result.ErrorCount += s.ErrorCount
		result.NoContentCount += s.NoContentCount
		result.RetriedCount += s.RetriedCount
		result.TotalAttempts += s.TotalAttempts

		if s.PeriodStart.Before(result.PeriodStart) {
			result.PeriodStart = s.PeriodStart
		}
		if s.PeriodEnd.After(result.PeriodEnd) {
			result.PeriodEnd = s.PeriodEnd
		}
	}

	return result
}
