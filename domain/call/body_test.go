package call

import "testing"

func TestBuildBodyLiteralWins(t *testing.T) {
	builder := BodyProducer{Fn: func() any { return "from-builder" }}
	got, ok := BuildBody(`{"fixed":true}`, builder, nil, nil)
	if !ok {
		t.Fatal("BuildBody() ok = false, want true")
	}
	if got != `{"fixed":true}` {
		t.Errorf("body = %v, want literal", got)
	}
}

func TestBuildBodyPattern(t *testing.T) {
	builder := BodyPattern{Template: `{"id": {{id}}, "who": "{{user}}"}`}
	got, ok := BuildBody(nil, builder, Params{"id": 9}, Params{"user": "ada"})
	if !ok {
		t.Fatal("BuildBody() ok = false, want true")
	}
	if got != `{"id": 9, "who": "ada"}` {
		t.Errorf("body = %v, want substituted template", got)
	}
}

func TestBuildBodyContextProducer(t *testing.T) {
	builder := BodyContextProducer{Fn: func(params, request Params) any {
		return map[string]any{"id": params["id"], "tenant": request["tenant"]}
	}}
	got, ok := BuildBody(nil, builder, Params{"id": 1}, Params{"tenant": "acme"})
	if !ok {
		t.Fatal("BuildBody() ok = false, want true")
	}
	m := got.(map[string]any)
	if m["id"] != 1 || m["tenant"] != "acme" {
		t.Errorf("body = %v, want both contexts visible", m)
	}
}

func TestBuildBodyAbsent(t *testing.T) {
	tests := []struct {
		name    string
		literal any
		builder Body
	}{
		{"nothing configured", nil, nil},
		{"producer returns nil", nil, BodyProducer{Fn: func() any { return nil }}},
		{"pattern renders empty", nil, BodyPattern{Template: "{{missing}}"}},
		{"empty literal", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := BuildBody(tt.literal, tt.builder, nil, nil); ok {
				t.Error("BuildBody() ok = true, want false for absent body")
			}
		})
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"json", "application/json"},
		{"JSON", "application/json"},
		{"text", "text/plain"},
		{"png", "image/png"},
		{"application/pdf", "application/pdf"},
		{"", ""},
		{"custom-tag", "custom-tag"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.tag); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
