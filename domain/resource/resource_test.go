package resource

import (
	"reflect"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    ID
		wantErr bool
	}{
		{"int", 7, 7, false},
		{"int64", int64(8), 8, false},
		{"float64 from json", 9.0, 9, false},
		{"string", "10", 10, false},
		{"padded string", " 11 ", 11, false},
		{"bad string", "ten", 0, true},
		{"nil", nil, 0, true},
		{"unsupported", map[string]any{}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseID(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidName(t *testing.T) {
	valid := []string{"items", "user-profiles", "a", "orders.v2", "x_y"}
	for _, s := range valid {
		if !ValidName(s) {
			t.Errorf("ValidName(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "Items", "9lives", "has space", "-leading"}
	for _, s := range invalid {
		if ValidName(s) {
			t.Errorf("ValidName(%q) = true, want false", s)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}

	list := []any{"a", "b"}
	if got := Normalize(list); !reflect.DeepEqual(got, list) {
		t.Errorf("Normalize(list) = %v, want %v", got, list)
	}

	obj := map[string]any{"id": 1.0}
	got := Normalize(obj)
	if len(got) != 1 || !reflect.DeepEqual(got[0], obj) {
		t.Errorf("Normalize(obj) = %v, want single-item list", got)
	}

	if got := Normalize(true); len(got) != 1 || got[0] != true {
		t.Errorf("Normalize(true) = %v, want [true]", got)
	}
}
