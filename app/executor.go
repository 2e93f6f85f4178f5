package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/domain/calllog"
	"github.com/artpar/datagate/ports"
)

// ValidateFunc decides whether a raw response body is acceptable.
type ValidateFunc func(raw any, params, request call.Params) (bool, error)

// FilterFunc transforms a raw response body before coercion.
type FilterFunc func(raw any, params, request call.Params) (any, error)

// ClassifyFunc maps a transport failure to an outcome, overriding the
// default classification.
type ClassifyFunc func(err error) call.Outcome

// HTTPOptions configures one HTTP-backed call operation.
type HTTPOptions struct {
	// Resource and Operation label audit events, metrics and log lines.
	Resource  string
	Operation string

	// Method defaults to GET. Path may carry {{name}} markers filled
	// from the outgoing and then the input parameters. When FullPath
	// is set (or Path carries its own scheme), BaseURL is ignored.
	Method   string
	BaseURL  string
	Path     string
	FullPath bool

	// Query is a pre-encoded query-string template. When set it is
	// substituted like Path and used verbatim instead of encoding the
	// outgoing parameters.
	Query string

	// Headers are added to every request this executor sends.
	Headers map[string]string

	// Rules assemble the outgoing parameters from the input ones.
	Rules call.ParamRules

	// Credential is the fixed authorization for every call. When nil,
	// AuthFields may derive a basic credential from the outgoing
	// parameters instead. A credential installed later via
	// SetCredential replaces the fixed one.
	Credential *call.Credential
	AuthFields []string

	// Body is a literal request body and wins over BodyBuilder.
	// BodyType is the short media tag (or full MIME type) attached
	// when a body is present.
	Body        any
	BodyBuilder call.Body
	BodyType    string

	// Validate short-circuits invalid bodies to "no value". At most
	// one of Filter, JSONFilter and FilterPattern then reshapes the
	// body, in that precedence order, before coercion.
	Validate      ValidateFunc
	Filter        FilterFunc
	JSONFilter    FilterFunc
	FilterPattern string

	// Interceptor observes every resolved response.
	Interceptor ports.OutputInterceptor

	// ErrorResponse is the fallback output when the call fails
	// terminally; it is coerced like a real body. MaxRetries caps the
	// retry budget, consulted only when the contract allows retries.
	// OnError replaces the default outcome classification.
	ErrorResponse any
	MaxRetries    int
	OnError       ClassifyFunc
}

// HTTPExecutor performs calls against a remote HTTP data service. One
// executor instance may back many call contracts; its credential is
// the only mutable state and may be replaced between calls by a
// credential-refresh interceptor.
type HTTPExecutor struct {
	opts      HTTPOptions
	transport ports.Transport
	clock     ports.Clock
	sleeper   ports.Sleeper
	ids       ports.IDGenerator
	recorder  ports.CallRecorder // optional
	logger    zerolog.Logger

	credMu sync.RWMutex
	cred   *call.Credential
}

// NewHTTPExecutor creates an executor. recorder may be nil when call
// auditing is disabled.
func NewHTTPExecutor(
	opts HTTPOptions,
	transport ports.Transport,
	clock ports.Clock,
	sleeper ports.Sleeper,
	ids ports.IDGenerator,
	recorder ports.CallRecorder,
	logger zerolog.Logger,
) *HTTPExecutor {
	if opts.Method == "" {
		opts.Method = "GET"
	}
	return &HTTPExecutor{
		opts:      opts,
		transport: transport,
		clock:     clock,
		sleeper:   sleeper,
		ids:       ids,
		recorder:  recorder,
		logger:    logger,
		cred:      opts.Credential,
	}
}

// SetCredential installs a new default credential for future calls and
// propagates it to the transport when the transport carries one.
func (e *HTTPExecutor) SetCredential(c call.Credential) {
	e.credMu.Lock()
	e.cred = &c
	e.credMu.Unlock()

	if carrier, ok := e.transport.(ports.CredentialCarrier); ok {
		carrier.SetCredential(c)
	}
}

func (e *HTTPExecutor) credential() *call.Credential {
	e.credMu.RLock()
	defer e.credMu.RUnlock()
	return e.cred
}

// Execute runs the full pipeline for one logical call: assemble
// parameters, credential and body, send, classify failures, retry
// within budget and coerce the final output.
//
// Transport failures never surface as errors; they resolve to the
// configured fallback output. Coercion failures do surface: a
// malformed body on an accepted response is a contract bug.
func (e *HTTPExecutor) Execute(ctx context.Context, c *Call, request call.Params) (any, error) {
	started := e.clock.Now()

	params, failed := call.BuildParams(request, e.opts.Rules)
	for key, perr := range failed {
		e.logger.Warn().Err(perr).
			Str("resource", e.opts.Resource).
			Str("param", key).
			Msg("parameter provider failed")
	}

	req := e.buildRequest(c, params, request)

	budget := call.RetryBudget(e.opts.MaxRetries, c.AllowRetries)
	attempts := 0
	errorCount := 0

	var (
		out      any
		err      error
		status   int
		logStat  = calllog.StatusOK
		finished bool
	)

	for !finished {
		attempts++
		resp, terr := e.transport.Do(ctx, req)
		if terr == nil {
			status = resp.Status
			var raw any
			if resp.HasBody() {
				raw = string(resp.Body)
			}
			out, err = e.processResponse(ctx, c, raw, params, request)
			if out == nil && err == nil {
				logStat = calllog.StatusNoContent
			}
			break
		}

		var te *ports.TransportError
		if errors.As(terr, &te) {
			status = te.Status
		}

		switch e.classify(terr) {
		case call.OutcomeNoContent:
			out, err = e.processResponse(ctx, c, nil, params, request)
			logStat = calllog.StatusNoContent
			finished = true

		case call.OutcomeRetry:
			if budget > 0 {
				budget--
				errorCount++
				delay := call.RetryDelay(errorCount)
				e.logger.Warn().Err(terr).
					Str("resource", e.opts.Resource).
					Str("operation", e.opts.Operation).
					Str("url", req.URL).
					Int("attempt", attempts).
					Dur("backoff", delay).
					Msg("call failed, retrying")
				if serr := e.sleeper.Sleep(ctx, delay); serr != nil {
					out, err = nil, serr
					logStat = calllog.StatusError
					finished = true
				}
				continue
			}
			out, err = e.fallback(c, terr)
			logStat = calllog.StatusError
			finished = true

		default: // call.OutcomeError
			out, err = e.fallback(c, terr)
			logStat = calllog.StatusError
			finished = true
		}
	}

	if err != nil {
		logStat = calllog.StatusError
	}
	e.record(req, status, attempts, logStat, started, err)
	return out, err
}

// buildRequest assembles the outgoing request from the merged
// parameters. Path markers see the outgoing parameters first and fall
// back to the raw inputs.
func (e *HTTPExecutor) buildRequest(c *Call, params, request call.Params) ports.Request {
	path, missing := call.SubstituteReport(e.opts.Path, params, request)
	if len(missing) > 0 {
		e.logger.Warn().
			Str("resource", e.opts.Resource).
			Str("path", e.opts.Path).
			Strs("missing", missing).
			Msg("path pattern names unresolved, substituted empty")
	}

	url := path
	if !e.opts.FullPath && e.opts.BaseURL != "" && !strings.Contains(path, "://") {
		url = strings.TrimSuffix(e.opts.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	body, hasBody := call.BuildBody(e.opts.Body, e.opts.BodyBuilder, params, request)
	contentType := ""
	if hasBody {
		contentType = call.ContentType(e.opts.BodyType)
	}

	req := ports.Request{
		Method:      e.opts.Method,
		URL:         url,
		Query:       params,
		Headers:     e.opts.Headers,
		Body:        body,
		ContentType: contentType,
	}
	if e.opts.Query != "" {
		req.Query = nil
		req.RawQuery = call.Substitute(e.opts.Query, params, request)
	}

	rules := call.CredentialRules{Fixed: e.credential(), Fields: e.opts.AuthFields}
	if cred, ok := call.BuildCredential(params, rules); ok {
		req.Credential = &cred
	}
	return req
}

// classify maps one transport failure to an outcome.
func (e *HTTPExecutor) classify(err error) call.Outcome {
	if e.opts.OnError != nil {
		return e.opts.OnError(err)
	}
	var te *ports.TransportError
	if errors.As(err, &te) {
		return call.Classify(te.IsNotFound(), te.HasStatus())
	}
	return call.OutcomeError
}

// processResponse runs one accepted response (or the empty no-content
// body) through validation, filtering, interception and coercion.
func (e *HTTPExecutor) processResponse(ctx context.Context, c *Call, raw any, params, request call.Params) (any, error) {
	valid := true
	if e.opts.Validate != nil {
		ok, verr := e.opts.Validate(raw, params, request)
		if verr != nil {
			return nil, fmt.Errorf("validate output: %w", verr)
		}
		valid = ok
	}

	var filtered any
	if valid {
		var ferr error
		filtered, ferr = e.filterOutput(c, raw, params, request)
		if ferr != nil {
			return nil, ferr
		}
	}

	e.intercept(ctx, ports.Interception{
		Original:      raw,
		Filtered:      filtered,
		Valid:         valid,
		CallParams:    params,
		RequestParams: request,
	})

	if !valid {
		return nil, nil
	}
	return call.ParseOutput(c.Kind, filtered)
}

// filterOutput applies at most one of the three filter shapes and
// yields the string form fed to the output parser. Absent bodies stay
// absent unless a pattern produces text.
func (e *HTTPExecutor) filterOutput(c *Call, raw any, params, request call.Params) (any, error) {
	switch {
	case e.opts.Filter != nil:
		v, err := e.opts.Filter(raw, params, request)
		if err != nil {
			return nil, fmt.Errorf("filter output: %w", err)
		}
		if v == nil {
			return nil, nil
		}
		return call.Stringify(v), nil

	case e.opts.JSONFilter != nil:
		parsed, err := call.ParseOutput(call.KindJSON, raw)
		if err != nil {
			return nil, err
		}
		v, err := e.opts.JSONFilter(parsed, params, request)
		if err != nil {
			return nil, fmt.Errorf("filter output: %w", err)
		}
		if v == nil {
			return nil, nil
		}
		return call.Stringify(v), nil

	case e.opts.FilterPattern != "":
		contexts := []call.Params{params}
		if c.Kind == call.KindJSON {
			if parsed, err := call.ParseOutput(call.KindJSON, raw); err == nil {
				if obj, ok := parsed.(map[string]any); ok {
					contexts = append(contexts, call.Params(obj))
				}
			}
			contexts = append(contexts, request)
		}
		out, missing := call.SubstituteReport(e.opts.FilterPattern, contexts...)
		if len(missing) > 0 {
			e.logger.Warn().
				Str("resource", e.opts.Resource).
				Strs("missing", missing).
				Msg("output pattern names unresolved, substituted empty")
		}
		return out, nil

	default:
		return raw, nil
	}
}

// intercept notifies the interceptor, swallowing its failures.
func (e *HTTPExecutor) intercept(ctx context.Context, o ports.Interception) {
	if e.opts.Interceptor == nil {
		return
	}
	if err := e.opts.Interceptor.Intercept(ctx, o); err != nil {
		e.logger.Error().Err(err).
			Str("resource", e.opts.Resource).
			Str("operation", e.opts.Operation).
			Msg("output interceptor failed")
	}
}

// fallback resolves a terminally failed call to the configured error
// response, coerced like a real body. The transport error itself is
// absorbed, never returned.
func (e *HTTPExecutor) fallback(c *Call, cause error) (any, error) {
	e.logger.Warn().Err(cause).
		Str("resource", e.opts.Resource).
		Str("operation", e.opts.Operation).
		Msg("call failed terminally, using error response")
	return call.ParseOutput(c.Kind, e.opts.ErrorResponse)
}

// record emits one audit event per finished call.
func (e *HTTPExecutor) record(req ports.Request, status, attempts int, logStat calllog.Status, started time.Time, callErr error) {
	if e.recorder == nil {
		return
	}
	latency := e.clock.Now().Sub(started).Milliseconds()
	e.recorder.Record(calllog.NewEvent(
		e.ids.New(),
		e.opts.Resource,
		e.opts.Operation,
		req.Method,
		req.URL,
		status,
		attempts,
		logStat,
		latency,
		callErr,
		started,
	))
}
