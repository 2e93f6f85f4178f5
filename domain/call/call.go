// Package call provides the pure core of the dynamic call engine:
// output coercion, pattern substitution, parameter merging, credential
// derivation, body construction and outcome classification.
// All functions are deterministic; side effects (transport, logging,
// clocks) live in app/ and adapters/.
package call

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OutputKind declares the type a raw response is coerced into.
type OutputKind int

const (
	KindBool OutputKind = iota
	KindString
	KindInteger
	KindDecimal
	KindJSON
)

// String returns the lowercase name of the kind.
func (k OutputKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseOutputKind parses a kind name (case-insensitive).
func ParseOutputKind(s string) (OutputKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return KindBool, nil
	case "string", "text":
		return KindString, nil
	case "integer", "int":
		return KindInteger, nil
	case "decimal", "float", "number":
		return KindDecimal, nil
	case "json":
		return KindJSON, nil
	default:
		return KindString, fmt.Errorf("unknown output kind %q", s)
	}
}

// CoercionError reports a raw value that could not be coerced to the
// declared output kind. It is deliberately fatal: a malformed body on a
// successful response is a contract bug, not a transient fault.
type CoercionError struct {
	Kind  OutputKind
	Value any
	Err   error
}

// Error returns the coercion error message.
func (e *CoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("coerce %v to %s: %v", e.Value, e.Kind, e.Err)
	}
	return fmt.Sprintf("coerce %v to %s: unsupported value", e.Value, e.Kind)
}

// Unwrap returns the underlying parse error, if any.
func (e *CoercionError) Unwrap() error { return e.Err }

// truthy strings accepted for KindBool (matched case-insensitively).
var truthy = map[string]bool{
	"true": true, "1": true, "yes": true, "t": true, "y": true,
}

// ParseOutput coerces a raw value to the given output kind.
//
// Coercion rules:
//   - BOOL: nil→false; bool passthrough; numeric ≥1 → true; string in
//     {true,1,yes,t,y} (case-insensitive) → true, else false.
//   - STRING: nil→nil; string passthrough; else stringified.
//   - INTEGER/DECIMAL: nil→nil; numeric cast; string parsed, parse
//     failures surface as *CoercionError.
//   - JSON: nil→nil; string/[]byte parsed as JSON text; structured
//     values (map/slice/bool/number) pass through.
func ParseOutput(kind OutputKind, raw any) (any, error) {
	switch kind {
	case KindBool:
		return parseBool(raw), nil
	case KindString:
		if raw == nil {
			return nil, nil
		}
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return Stringify(raw), nil
	case KindInteger:
		return parseInteger(raw)
	case KindDecimal:
		return parseDecimal(raw)
	case KindJSON:
		return parseJSON(raw)
	default:
		return nil, &CoercionError{Kind: kind, Value: raw}
	}
}

func parseBool(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v >= 1
	case int64:
		return v >= 1
	case float32:
		return v >= 1
	case float64:
		return v >= 1
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(v))]
	default:
		return false
	}
}

func parseInteger(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, &CoercionError{Kind: KindInteger, Value: raw, Err: err}
		}
		return n, nil
	default:
		return nil, &CoercionError{Kind: KindInteger, Value: raw}
	}
}

func parseDecimal(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &CoercionError{Kind: KindDecimal, Value: raw, Err: err}
		}
		return f, nil
	default:
		return nil, &CoercionError{Kind: KindDecimal, Value: raw}
	}
}

func parseJSON(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		var out any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, &CoercionError{Kind: KindJSON, Value: raw, Err: err}
		}
		return out, nil
	case []byte:
		var out any
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, &CoercionError{Kind: KindJSON, Value: raw, Err: err}
		}
		return out, nil
	default:
		// Already structured (map/slice/bool/number from a prior decode).
		return v, nil
	}
}

// Stringify renders a value in its natural text form: scalars via
// strconv, maps and slices as compact JSON text, nil as the empty
// string. This is the form used for pattern substitution and for
// re-serializing filtered JSON outputs.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
