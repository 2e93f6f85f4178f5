// Package app contains the call engine: the typed call contract, the
// executors that fulfil it and the resource facade built on top.
package app

import (
	"context"
	"sync"

	"github.com/artpar/datagate/domain/call"
)

// Executor fulfils one call: it receives the bound contract and the
// caller's declared input parameters and resolves a raw output, already
// coerced to the contract's output kind.
type Executor interface {
	Execute(ctx context.Context, c *Call, params call.Params) (any, error)
}

// Call is the reusable definition of one logical remote operation: the
// input fields it accepts, the output kind it yields and an optional
// output filter. Configure the exported fields before first use; only
// the executor binding may change afterwards.
type Call struct {
	// Fields names the input parameters the call accepts. Keys outside
	// this set are dropped before the executor sees them. A nil set
	// accepts nothing.
	Fields []string

	// Kind is the output kind every result is coerced to.
	Kind call.OutputKind

	// AllowRetries gates whether a bound executor may consult its
	// retry budget at all.
	AllowRetries bool

	// Filter maps the coerced output to the caller's final shape.
	// It is not applied to nil outputs.
	Filter func(any) any

	mu   sync.RWMutex
	exec Executor
}

// NewCall creates a call contract for the given input fields and
// output kind.
func NewCall(fields []string, kind call.OutputKind) *Call {
	return &Call{Fields: fields, Kind: kind}
}

// Bind installs the executor. Binding is rebindable but intended for
// setup; it returns the call for chaining.
func (c *Call) Bind(e Executor) *Call {
	c.mu.Lock()
	c.exec = e
	c.mu.Unlock()
	return c
}

// Executor returns the currently bound executor, or nil.
func (c *Call) Executor() Executor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exec
}

// Do performs the call. An unbound call resolves immediately to the
// output kind's empty value (false for bool, nil otherwise) without
// touching any transport.
func (c *Call) Do(ctx context.Context, params call.Params) (any, error) {
	exec := c.Executor()
	if exec == nil {
		return call.ParseOutput(c.Kind, nil)
	}

	out, err := exec.Execute(ctx, c, c.pickFields(params))
	if err != nil {
		return nil, err
	}
	if c.Filter != nil && out != nil {
		out = c.Filter(out)
	}
	return out, nil
}

// pickFields keeps only the declared input fields, dropping absent and
// nil entries.
func (c *Call) pickFields(params call.Params) call.Params {
	if len(c.Fields) == 0 || params == nil {
		return nil
	}
	picked := make(call.Params, len(c.Fields))
	for _, f := range c.Fields {
		if v, ok := params[f]; ok && v != nil {
			picked[f] = v
		}
	}
	return picked
}

// StaticExecutor resolves every call to a fixed value, coerced to the
// contract's output kind.
type StaticExecutor struct {
	Value any
}

// Execute returns the fixed value in the call's declared kind.
func (s StaticExecutor) Execute(_ context.Context, c *Call, _ call.Params) (any, error) {
	return call.ParseOutput(c.Kind, s.Value)
}

// FuncExecutor delegates to a supplied function and coerces its result
// to the contract's output kind.
type FuncExecutor func(ctx context.Context, params call.Params) (any, error)

// Execute invokes the function.
func (f FuncExecutor) Execute(ctx context.Context, c *Call, params call.Params) (any, error) {
	v, err := f(ctx, params)
	if err != nil {
		return nil, err
	}
	return call.ParseOutput(c.Kind, v)
}
