package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/domain/resource"
)

// ErrOperationNotSupported is returned when a facade verb has no bound
// call. This is a wiring error, fatal at call time.
var ErrOperationNotSupported = errors.New("operation not supported")

// Operation names as they appear in configuration, audit events and
// error messages.
const (
	OpGet           = "get"
	OpFind          = "find"
	OpFindByID      = "findById"
	OpFindByIDRange = "findByIdRange"
	OpPut           = "put"
)

// Operations binds the facade verbs to call contracts. A nil entry
// means the resource does not offer that verb.
type Operations struct {
	Get           *Call
	Find          *Call
	FindByID      *Call
	FindByIDRange *Call
	Put           *Call
}

// Handler exposes get/find/put semantics over one named resource. All
// operations return item lists: single outputs are wrapped, absent
// outputs become an empty list.
type Handler struct {
	domain string
	name   string
	ops    Operations
}

// NewHandler creates the facade for domain:name.
func NewHandler(domain, name string, ops Operations) *Handler {
	return &Handler{domain: domain, name: name, ops: ops}
}

// Domain returns the resource's domain.
func (h *Handler) Domain() string { return h.domain }

// Name returns the resource's name within its domain.
func (h *Handler) Name() string { return h.name }

// ID returns the registry key, the case-insensitive "domain:name"
// composite.
func (h *Handler) ID() string {
	return strings.ToLower(h.domain + ":" + h.name)
}

// Supports lists the bound operation names in canonical order.
func (h *Handler) Supports() []string {
	var ops []string
	if h.ops.Get != nil {
		ops = append(ops, OpGet)
	}
	if h.ops.Find != nil {
		ops = append(ops, OpFind)
	}
	if h.ops.FindByID != nil {
		ops = append(ops, OpFindByID)
	}
	if h.ops.FindByIDRange != nil {
		ops = append(ops, OpFindByIDRange)
	}
	if h.ops.Put != nil {
		ops = append(ops, OpPut)
	}
	return ops
}

// Call returns the contract bound to the named operation, or nil.
func (h *Handler) Call(op string) *Call {
	switch op {
	case OpGet:
		return h.ops.Get
	case OpFind:
		return h.ops.Find
	case OpFindByID:
		return h.ops.FindByID
	case OpFindByIDRange:
		return h.ops.FindByIDRange
	case OpPut:
		return h.ops.Put
	default:
		return nil
	}
}

// Get fetches the resource's items with the given parameters.
func (h *Handler) Get(ctx context.Context, params call.Params) ([]any, error) {
	return h.invoke(ctx, h.ops.Get, OpGet, params)
}

// Find fetches items matching the filter parameters.
func (h *Handler) Find(ctx context.Context, filter call.Params) ([]any, error) {
	return h.invoke(ctx, h.ops.Find, OpFind, filter)
}

// FindByID fetches the item with the given identifier.
func (h *Handler) FindByID(ctx context.Context, id any) ([]any, error) {
	rid, err := resource.ParseID(id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", h.ID(), OpFindByID, err)
	}
	return h.invoke(ctx, h.ops.FindByID, OpFindByID, call.Params{"id": int64(rid)})
}

// FindByIDRange fetches the items with identifiers in [from, to].
func (h *Handler) FindByIDRange(ctx context.Context, from, to any) ([]any, error) {
	fromID, err := resource.ParseID(from)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", h.ID(), OpFindByIDRange, err)
	}
	toID, err := resource.ParseID(to)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", h.ID(), OpFindByIDRange, err)
	}
	return h.invoke(ctx, h.ops.FindByIDRange, OpFindByIDRange, call.Params{
		"fromId": int64(fromID),
		"toId":   int64(toID),
	})
}

// Put stores items. The data list travels as the "data" parameter in
// JSON text form, alongside any caller parameters.
func (h *Handler) Put(ctx context.Context, params call.Params, data []any) ([]any, error) {
	p := params.Clone()
	if p == nil {
		p = call.Params{}
	}
	if data != nil {
		p["data"] = call.Stringify(data)
	}
	return h.invoke(ctx, h.ops.Put, OpPut, p)
}

// Do dispatches to the named operation with a flat parameter bag; the
// id/fromId/toId/data keys feed the verbs that need them. This is the
// entry point for callers addressing operations by name (CLI, admin).
func (h *Handler) Do(ctx context.Context, op string, params call.Params) ([]any, error) {
	switch op {
	case OpGet:
		return h.Get(ctx, params)
	case OpFind:
		return h.Find(ctx, params)
	case OpFindByID:
		return h.FindByID(ctx, params["id"])
	case OpFindByIDRange:
		return h.FindByIDRange(ctx, params["fromId"], params["toId"])
	case OpPut:
		var data []any
		p := params.Clone()
		if p != nil {
			if d, ok := p["data"].([]any); ok {
				data = d
				delete(p, "data")
			}
		}
		return h.Put(ctx, p, data)
	default:
		return nil, fmt.Errorf("%s %s: %w", h.ID(), op, ErrOperationNotSupported)
	}
}

func (h *Handler) invoke(ctx context.Context, c *Call, op string, params call.Params) ([]any, error) {
	if c == nil {
		return nil, fmt.Errorf("%s %s: %w", h.ID(), op, ErrOperationNotSupported)
	}
	out, err := c.Do(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", h.ID(), op, err)
	}
	return resource.Normalize(out), nil
}
