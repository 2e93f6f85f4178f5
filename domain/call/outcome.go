package call

import "time"

// Outcome classifies a failed transport exchange and drives the retry
// state machine.
type Outcome int

const (
	// OutcomeNoContent resolves the call to an absent value without
	// consuming the retry budget.
	OutcomeNoContent Outcome = iota
	// OutcomeRetry re-sends the request if budget remains.
	OutcomeRetry
	// OutcomeError fails the call terminally.
	OutcomeError
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoContent:
		return "no_content"
	case OutcomeRetry:
		return "retry"
	default:
		return "error"
	}
}

// Classify maps a transport failure to an outcome using the default
// rules: not-found resolves to no content, any other status-bearing
// failure is retried, and failures with no status (connection refused,
// timeouts, malformed responses) are terminal.
func Classify(notFound, hasStatus bool) Outcome {
	switch {
	case notFound:
		return OutcomeNoContent
	case hasStatus:
		return OutcomeRetry
	default:
		return OutcomeError
	}
}

// Retry delay tiers. The first two retries wait a short beat; later
// ones back off further.
const (
	retryDelayEarly = 200 * time.Millisecond
	retryDelayLate  = 500 * time.Millisecond
)

// RetryDelay returns the pause before the given retry. attempt counts
// completed attempts, so the first retry passes 1.
func RetryDelay(attempt int) time.Duration {
	if attempt <= 2 {
		return retryDelayEarly
	}
	return retryDelayLate
}

// RetryBudget caps how many retries a call may consume. A budget of n
// allows n+1 total attempts. Disallowed retries zero the budget no
// matter what the call declares.
func RetryBudget(declared int, allowRetries bool) int {
	if !allowRetries || declared < 0 {
		return 0
	}
	return declared
}
