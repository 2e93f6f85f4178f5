package call

// Params is a free-form parameter bag. A nil Params means "no
// parameters at all", which callers distinguish from an empty bag: a
// request built from nil params carries no query string, while an
// empty bag still counts as configured.
type Params map[string]any

// Clone returns a shallow copy. Clone of nil is nil.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ProviderFunc produces a parameter value on demand. Provider failures
// are reported to the caller and the key is left absent; they never
// abort the merge.
type ProviderFunc func() (any, error)

// ParamRules configures how outgoing parameters are assembled from the
// caller's input parameters.
//
// The three sources apply in order:
//  1. Static entries seed the result.
//  2. Map renames input keys to outgoing keys. An empty or "*" target
//     keeps the input key's own name. The special entry "*": "*"
//     copies every input key not consumed by an explicit mapping.
//  3. Providers fill outgoing keys that no earlier rule consumed.
type ParamRules struct {
	Static    Params
	Map       map[string]string
	Providers map[string]ProviderFunc
}

// Empty reports whether no parameter source is configured at all.
func (r ParamRules) Empty() bool {
	return len(r.Static) == 0 && len(r.Map) == 0 && len(r.Providers) == 0
}

// BuildParams merges static, mapped and provided parameters into the
// outgoing bag. It returns nil when the result is empty and no source
// was configured, so callers can tell "no parameters" from "empty".
//
// The returned map of provider failures is keyed by outgoing key;
// failed keys are absent from the result.
//
// Merge invariants:
//   - An explicit mapping only fires when the input value is non-nil.
//   - The wildcard copies only input keys no explicit mapping consumed.
//   - A provider only fires for keys no earlier rule consumed, and its
//     nil result never overwrites an existing non-nil value.
func BuildParams(inputs Params, rules ParamRules) (Params, map[string]error) {
	if rules.Empty() {
		return nil, nil
	}

	out := make(Params, len(rules.Static)+len(inputs))
	for k, v := range rules.Static {
		out[k] = v
	}

	// Input keys consumed by an explicit mapping. The wildcard and the
	// providers both skip consumed keys.
	processed := make(map[string]bool, len(rules.Map))

	wildcard := false
	for key, renamed := range rules.Map {
		if key == "*" {
			wildcard = true
			continue
		}
		v, ok := inputs[key]
		if !ok || v == nil {
			continue
		}
		target := renamed
		if target == "" || target == "*" {
			target = key
		}
		out[target] = v
		processed[key] = true
	}

	if wildcard {
		for key, v := range inputs {
			if processed[key] {
				continue
			}
			out[key] = v
			processed[key] = true
		}
	}

	var failed map[string]error
	for key, provide := range rules.Providers {
		if provide == nil || processed[key] {
			continue
		}
		v, err := provide()
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[key] = err
			continue
		}
		if prev, ok := out[key]; ok && prev != nil && v == nil {
			continue
		}
		out[key] = v
	}

	return out, failed
}
