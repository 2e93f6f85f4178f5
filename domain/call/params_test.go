package call

import (
	"errors"
	"testing"
)

func TestBuildParamsNoConfiguration(t *testing.T) {
	out, failed := BuildParams(Params{"ignored": 1}, ParamRules{})
	if out != nil {
		t.Errorf("BuildParams() = %v, want nil for unconfigured rules", out)
	}
	if failed != nil {
		t.Errorf("failed = %v, want nil", failed)
	}
}

func TestBuildParamsStaticSeed(t *testing.T) {
	rules := ParamRules{Static: Params{"version": "2"}}
	out, _ := BuildParams(nil, rules)
	if out == nil {
		t.Fatal("BuildParams() = nil, want configured empty-capable bag")
	}
	if out["version"] != "2" {
		t.Errorf("version = %v, want 2", out["version"])
	}
}

func TestBuildParamsMapping(t *testing.T) {
	inputs := Params{"id": 7, "q": "abc", "absent": nil}
	rules := ParamRules{Map: map[string]string{
		"id":     "item_id",
		"q":      "*", // keep own name
		"absent": "gone",
		"never":  "x",
	}}
	out, _ := BuildParams(inputs, rules)

	if out["item_id"] != 7 {
		t.Errorf("item_id = %v, want 7", out["item_id"])
	}
	if out["q"] != "abc" {
		t.Errorf("q = %v, want abc", out["q"])
	}
	if _, ok := out["gone"]; ok {
		t.Error("nil input must not fire an explicit mapping")
	}
	if _, ok := out["x"]; ok {
		t.Error("absent input must not fire an explicit mapping")
	}
}

func TestBuildParamsWildcard(t *testing.T) {
	inputs := Params{"id": 7, "extra": "keep", "other": true}
	rules := ParamRules{Map: map[string]string{
		"id": "item_id",
		"*":  "*",
	}}
	out, _ := BuildParams(inputs, rules)

	if out["item_id"] != 7 {
		t.Errorf("item_id = %v, want 7", out["item_id"])
	}
	if _, ok := out["id"]; ok {
		t.Error("wildcard must skip keys an explicit mapping consumed")
	}
	if out["extra"] != "keep" || out["other"] != true {
		t.Errorf("wildcard copy = %v, want extra and other preserved", out)
	}
}

func TestBuildParamsProviders(t *testing.T) {
	calls := 0
	rules := ParamRules{
		Static: Params{"seeded": "old"},
		Map:    map[string]string{"token": "token"},
		Providers: map[string]ProviderFunc{
			"token":  func() (any, error) { calls++; return "generated", nil },
			"seeded": func() (any, error) { return nil, nil },
			"fresh":  func() (any, error) { return "new", nil },
		},
	}

	// token consumed by the mapping, so its provider must not run.
	out, failed := BuildParams(Params{"token": "from-input"}, rules)
	if calls != 0 {
		t.Errorf("provider for consumed key ran %d times, want 0", calls)
	}
	if out["token"] != "from-input" {
		t.Errorf("token = %v, want from-input", out["token"])
	}
	// nil provider result must not clobber a present non-nil value.
	if out["seeded"] != "old" {
		t.Errorf("seeded = %v, want old", out["seeded"])
	}
	if out["fresh"] != "new" {
		t.Errorf("fresh = %v, want new", out["fresh"])
	}
	if failed != nil {
		t.Errorf("failed = %v, want nil", failed)
	}
}

func TestBuildParamsProviderFailure(t *testing.T) {
	boom := errors.New("backend down")
	rules := ParamRules{Providers: map[string]ProviderFunc{
		"ok":  func() (any, error) { return 1, nil },
		"bad": func() (any, error) { return nil, boom },
	}}
	out, failed := BuildParams(nil, rules)

	if out["ok"] != 1 {
		t.Errorf("ok = %v, want 1", out["ok"])
	}
	if _, ok := out["bad"]; ok {
		t.Error("failed provider key must stay absent")
	}
	if !errors.Is(failed["bad"], boom) {
		t.Errorf("failed[bad] = %v, want %v", failed["bad"], boom)
	}
}

func TestBuildParamsIdempotent(t *testing.T) {
	inputs := Params{"a": 1, "b": 2}
	rules := ParamRules{
		Static: Params{"s": "x"},
		Map:    map[string]string{"a": "renamed", "*": "*"},
	}
	first, _ := BuildParams(inputs, rules)
	second, _ := BuildParams(inputs, rules)
	if len(first) != len(second) {
		t.Fatalf("len(first) = %d, len(second) = %d", len(first), len(second))
	}
	for k, v := range first {
		if second[k] != v {
			t.Errorf("second[%s] = %v, want %v", k, second[k], v)
		}
	}
}
