package call

import "strings"

// Body is the declared request body builder for a call. Exactly one
// concrete shape applies; the zero case (nil Body) means no builder.
// A separate literal body configured on the call always wins over the
// builder.
type Body interface {
	buildBody(params, request Params) (any, bool)
}

// BodyPattern renders a template with {{name}} markers against the
// outgoing parameters and the original request parameters.
type BodyPattern struct {
	Template string
}

func (b BodyPattern) buildBody(params, request Params) (any, bool) {
	s := Substitute(b.Template, params, request)
	return s, s != ""
}

// BodyProducer produces the body with no inputs.
type BodyProducer struct {
	Fn func() any
}

func (b BodyProducer) buildBody(Params, Params) (any, bool) {
	if b.Fn == nil {
		return nil, false
	}
	return present(b.Fn())
}

// BodyContextProducer produces the body from the outgoing parameters
// and the original request parameters.
type BodyContextProducer struct {
	Fn func(params, request Params) any
}

func (b BodyContextProducer) buildBody(params, request Params) (any, bool) {
	if b.Fn == nil {
		return nil, false
	}
	return present(b.Fn(params, request))
}

func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, false
	}
	return v, true
}

// BuildBody resolves the outgoing request body. The literal wins over
// the builder when both are set. The boolean is false when no body was
// produced; an absent body must never acquire a content type, so
// callers gate the content-type header on it.
func BuildBody(literal any, builder Body, params, request Params) (any, bool) {
	if literal != nil {
		return present(literal)
	}
	if builder == nil {
		return nil, false
	}
	return builder.buildBody(params, request)
}

// contentTypes maps the short media tags accepted in call
// configuration to full MIME types.
var contentTypes = map[string]string{
	"json": "application/json",
	"text": "text/plain",
	"html": "text/html",
	"xml":  "application/xml",
	"form": "application/x-www-form-urlencoded",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// ContentType expands a short media tag to a MIME type. Tags already
// containing a slash pass through unchanged, as do unknown tags. The
// empty tag yields no content type.
func ContentType(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return ""
	}
	if full, ok := contentTypes[t]; ok {
		return full
	}
	return tag
}
