package call

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name               string
		notFound, hasStatus bool
		want               Outcome
	}{
		{"not found", true, true, OutcomeNoContent},
		{"server error", false, true, OutcomeRetry},
		{"no status", false, false, OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.notFound, tt.hasStatus); got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.notFound, tt.hasStatus, got, tt.want)
			}
		})
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 200 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{7, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.attempt); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryBudget(t *testing.T) {
	if got := RetryBudget(3, true); got != 3 {
		t.Errorf("RetryBudget(3, true) = %d, want 3", got)
	}
	if got := RetryBudget(3, false); got != 0 {
		t.Errorf("RetryBudget(3, false) = %d, want 0", got)
	}
	if got := RetryBudget(-1, true); got != 0 {
		t.Errorf("RetryBudget(-1, true) = %d, want 0", got)
	}
}
