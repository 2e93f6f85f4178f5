// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/domain/calllog"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts retry pauses so tests never wait on real timers.
type Sleeper interface {
	// Sleep pauses for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Transport Ports
// -----------------------------------------------------------------------------

// Request describes one outgoing exchange (value type).
type Request struct {
	Method      string
	URL         string
	Query       call.Params // nil means no query string at all
	RawQuery    string      // pre-encoded query override; wins over Query
	Headers     map[string]string
	Body        any    // nil means no body
	ContentType string // empty when Body is nil
	Credential  *call.Credential
}

// Response is a successful upstream answer (value type).
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// HasBody returns true if the response carried any payload.
func (r Response) HasBody() bool { return len(r.Body) > 0 }

// TransportError describes a failed exchange. A zero Status means no
// response arrived at all (connection refused, timeout, bad URL).
type TransportError struct {
	Status int
	URL    string
	Body   []byte // error response payload, when the upstream sent one
	Err    error
}

// Error returns the error message.
func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport: %s returned status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error, if any.
func (e *TransportError) Unwrap() error { return e.Err }

// HasStatus returns true if the upstream answered with an HTTP status.
func (e *TransportError) HasStatus() bool { return e.Status > 0 }

// IsNotFound returns true for a 404 response.
func (e *TransportError) IsNotFound() bool { return e.Status == 404 }

// Transport sends requests to the remote data service.
type Transport interface {
	// Do performs one exchange. Non-2xx statuses surface as
	// *TransportError, never as a Response.
	Do(ctx context.Context, req Request) (Response, error)
}

// CredentialCarrier is implemented by transports that hold a default
// credential applied to requests without their own.
type CredentialCarrier interface {
	// SetCredential installs the default credential.
	SetCredential(c call.Credential)
}

// -----------------------------------------------------------------------------
// Interception Ports
// -----------------------------------------------------------------------------

// Interception carries everything an interceptor may inspect about one
// resolved response (value type). Original is the raw body before
// filtering, Filtered the post-filter string form; both are nil when
// the response had no body or validation failed.
type Interception struct {
	Original      any
	Filtered      any
	Valid         bool
	CallParams    call.Params // merged outgoing parameters
	RequestParams call.Params // caller-supplied input parameters
}

// OutputInterceptor observes every resolved response before coercion.
// It runs for valid, invalid and empty outputs alike; it never runs
// when the exchange failed without a usable response.
type OutputInterceptor interface {
	// Intercept errors are logged by the caller and never affect the
	// call result.
	Intercept(ctx context.Context, o Interception) error
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// CallStore persists call audit events and summaries.
type CallStore interface {
	// RecordBatch stores multiple call events.
	RecordBatch(ctx context.Context, events []calllog.Event) error

	// GetSummary returns aggregated call activity for a period.
	GetSummary(ctx context.Context, resource string, start, end time.Time) (calllog.Summary, error)

	// GetRecent returns the latest call events for a resource.
	// An empty resource matches all resources.
	GetRecent(ctx context.Context, resource string, limit int) ([]calllog.Event, error)
}

// -----------------------------------------------------------------------------
// Event Ports
// -----------------------------------------------------------------------------

// CallRecorder accepts call events for async processing.
type CallRecorder interface {
	// Record queues a call event for processing.
	// This should be non-blocking.
	Record(event calllog.Event)

	// Flush forces immediate processing of queued events.
	Flush(ctx context.Context) error

	// Close stops the recorder and flushes remaining events.
	Close() error
}
