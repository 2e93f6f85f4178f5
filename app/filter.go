package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/artpar/datagate/domain/call"
)

// FilterService compiles Expr expressions declared in configuration
// into the validator, filter and provider hooks the executors run.
// Compiled programs are cached by source text.
type FilterService struct {
	cache   map[string]*vm.Program
	cacheMu sync.RWMutex

	envOptions []expr.Option
}

// NewFilterService creates a filter service with the custom Expr
// functions available in all expressions.
func NewFilterService() *FilterService {
	s := &FilterService{
		cache: make(map[string]*vm.Program),
	}

	s.envOptions = []expr.Option{
		expr.Function("lower", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("lower requires 1 argument")
			}
			return strings.ToLower(exprString(params[0])), nil
		}),
		expr.Function("upper", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("upper requires 1 argument")
			}
			return strings.ToUpper(exprString(params[0])), nil
		}),
		expr.Function("trim", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("trim requires 1 argument")
			}
			return strings.TrimSpace(exprString(params[0])), nil
		}),
		expr.Function("replace", func(params ...any) (any, error) {
			if len(params) != 3 {
				return nil, fmt.Errorf("replace requires 3 arguments (str, old, new)")
			}
			return strings.ReplaceAll(exprString(params[0]), exprString(params[1]), exprString(params[2])), nil
		}),
		expr.Function("str", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("str requires 1 argument")
			}
			return call.Stringify(params[0]), nil
		}),
		expr.Function("parseJson", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("parseJson requires 1 argument")
			}
			return call.ParseOutput(call.KindJSON, params[0])
		}),
	}

	return s
}

// Validator compiles a boolean expression over {output, params,
// request}. The returned hook errors when the expression does not
// yield a bool.
func (s *FilterService) Validator(code string) (ValidateFunc, error) {
	if _, err := s.getOrCompile(code, validatorEnv(nil, nil, nil)); err != nil {
		return nil, fmt.Errorf("compile validator: %w", err)
	}
	return func(raw any, params, request call.Params) (bool, error) {
		result, err := s.eval(code, validatorEnv(raw, params, request))
		if err != nil {
			return false, err
		}
		ok, isBool := result.(bool)
		if !isBool {
			return false, fmt.Errorf("validator yielded %T, want bool", result)
		}
		return ok, nil
	}, nil
}

// OutputFilter compiles an expression over {output, params, request}
// whose result replaces the raw output.
func (s *FilterService) OutputFilter(code string) (FilterFunc, error) {
	if _, err := s.getOrCompile(code, validatorEnv(nil, nil, nil)); err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return func(raw any, params, request call.Params) (any, error) {
		return s.eval(code, validatorEnv(raw, params, request))
	}, nil
}

// Provider compiles a zero-input expression producing one parameter
// value on demand.
func (s *FilterService) Provider(code string) (call.ProviderFunc, error) {
	if _, err := s.getOrCompile(code, map[string]any{}); err != nil {
		return nil, fmt.Errorf("compile provider: %w", err)
	}
	return func() (any, error) {
		return s.eval(code, map[string]any{})
	}, nil
}

func validatorEnv(raw any, params, request call.Params) map[string]any {
	return map[string]any{
		"output":  raw,
		"params":  map[string]any(params),
		"request": map[string]any(request),
	}
}

// eval runs a cached program against the environment.
func (s *FilterService) eval(code string, env map[string]any) (any, error) {
	program, err := s.getOrCompile(code, env)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("run expression: %w", err)
	}
	return result, nil
}

// getOrCompile returns a cached compiled program or compiles a new one.
func (s *FilterService) getOrCompile(code string, env any) (*vm.Program, error) {
	s.cacheMu.RLock()
	program, ok := s.cache[code]
	s.cacheMu.RUnlock()

	if ok {
		return program, nil
	}

	opts := append([]expr.Option{expr.Env(env)}, s.envOptions...)
	program, err := expr.Compile(code, opts...)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cache[code] = program
	s.cacheMu.Unlock()

	return program, nil
}

// ClearCache drops all compiled programs, forcing recompilation.
func (s *FilterService) ClearCache() {
	s.cacheMu.Lock()
	s.cache = make(map[string]*vm.Program)
	s.cacheMu.Unlock()
}

func exprString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
