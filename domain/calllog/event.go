// Package calllog provides call audit event types and aggregation
// functions. All functions are pure - no side effects.
package calllog

import "time"

// Status records how a call finished.
type Status string

const (
	StatusOK        Status = "ok"         // resolved with a value
	StatusNoContent Status = "no_content" // resolved with no value
	StatusError     Status = "error"      // failed terminally
)

// Event represents a single executed call (immutable value type).
// One event is recorded per call, not per attempt; Attempts carries
// the attempt count.
type Event struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Operation string    `json:"operation"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	HTTPCode  int       `json:"http_code"`
	Attempts  int       `json:"attempts"`
	Status    Status    `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Retried returns true if the call consumed at least one retry.
func (e Event) Retried() bool {
	return e.Attempts > 1
}

// NewEvent creates an event for one finished call.
func NewEvent(id, resource, operation, method, url string, httpCode, attempts int, status Status, latencyMs int64, callErr error, timestamp time.Time) Event {
	errText := ""
	if callErr != nil {
		errText = callErr.Error()
	}
	if attempts < 1 {
		attempts = 1
	}
	return Event{
		ID:        id,
		Resource:  resource,
		Operation: operation,
		Method:    method,
		URL:       url,
		HTTPCode:  httpCode,
		Attempts:  attempts,
		Status:    status,
		LatencyMs: latencyMs,
		Error:     errText,
		Timestamp: timestamp,
	}
}

// Summary represents aggregated call activity for a period (value type).
type Summary struct {
	Resource       string    `json:"resource"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	CallCount      int64     `json:"call_count"`
	ErrorCount     int64     `json:"error_count"`
	NoContentCount int64     `json:"no_content_count"`
	RetriedCount   int64     `json:"retried_count"`
	TotalAttempts  int64     `json:"total_attempts"`
	AvgLatencyMs   int64     `json:"avg_latency_ms"`
}
