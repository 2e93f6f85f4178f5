package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/artpar/datagate/domain/call"
)

func TestCallUnboundResolvesEmptyValue(t *testing.T) {
	tests := []struct {
		name string
		kind call.OutputKind
		want any
	}{
		{"bool", call.KindBool, false},
		{"string", call.KindString, nil},
		{"json", call.KindJSON, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCall(nil, tt.kind)
			got, err := c.Do(context.Background(), call.Params{"ignored": 1})
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Do() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCallStaticExecutor(t *testing.T) {
	c := NewCall(nil, call.KindInteger).Bind(StaticExecutor{Value: "42"})
	got, err := c.Do(context.Background(), nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != int64(42) {
		t.Errorf("Do() = %v, want coerced 42", got)
	}
}

func TestCallFuncExecutor(t *testing.T) {
	c := NewCall([]string{"name"}, call.KindString).Bind(FuncExecutor(
		func(_ context.Context, params call.Params) (any, error) {
			return "hello " + params["name"].(string), nil
		}))

	got, err := c.Do(context.Background(), call.Params{"name": "ada"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "hello ada" {
		t.Errorf("Do() = %v, want hello ada", got)
	}
}

func TestCallFuncExecutorError(t *testing.T) {
	boom := errors.New("backend gone")
	c := NewCall(nil, call.KindString).Bind(FuncExecutor(
		func(context.Context, call.Params) (any, error) {
			return nil, boom
		}))

	if _, err := c.Do(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("Do() error = %v, want %v", err, boom)
	}
}

func TestCallPicksDeclaredFields(t *testing.T) {
	var seen call.Params
	c := NewCall([]string{"id", "q"}, call.KindString).Bind(FuncExecutor(
		func(_ context.Context, params call.Params) (any, error) {
			seen = params
			return "", nil
		}))

	_, err := c.Do(context.Background(), call.Params{"id": 1, "q": "x", "extra": true, "niled": nil})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	want := call.Params{"id": 1, "q": "x"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("executor saw %v, want only declared non-nil fields %v", seen, want)
	}
}

func TestCallOutputFilter(t *testing.T) {
	c := NewCall(nil, call.KindJSON).Bind(StaticExecutor{Value: `[1,2,3]`})
	c.Filter = func(out any) any {
		return len(out.([]any))
	}

	got, err := c.Do(context.Background(), nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 3 {
		t.Errorf("Do() = %v, want filtered count 3", got)
	}
}

func TestCallFilterSkippedForNilOutput(t *testing.T) {
	called := false
	c := NewCall(nil, call.KindJSON) // unbound resolves to nil
	c.Filter = func(out any) any {
		called = true
		return out
	}

	if _, err := c.Do(context.Background(), nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if called {
		t.Error("filter ran on nil output, want skipped")
	}
}

func TestCallRebind(t *testing.T) {
	c := NewCall(nil, call.KindString).Bind(StaticExecutor{Value: "first"})
	c.Bind(StaticExecutor{Value: "second"})

	got, err := c.Do(context.Background(), nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Do() = %v, want rebound executor's value", got)
	}
}
