package call

import (
	"regexp"
	"strings"
)

// placeholder matches {{name}} markers. Names may contain word
// characters, dots and dashes; surrounding whitespace is ignored.
var placeholder = regexp.MustCompile(`\{\{\s*([\w.\-]+)\s*\}\}`)

// Substitute replaces every {{name}} marker in template with the
// stringified value of name, looked up in each context in order (first
// context wins). Names found in no context become the empty string.
func Substitute(template string, contexts ...Params) string {
	out, _ := SubstituteReport(template, contexts...)
	return out
}

// SubstituteReport is Substitute plus a report of the marker names that
// resolved in no context, in order of first appearance. Callers log the
// missing names; substitution itself never fails.
func SubstituteReport(template string, contexts ...Params) (string, []string) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}
	var missing []string
	seen := make(map[string]bool)
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := strings.TrimSpace(m[2 : len(m)-2])
		for _, ctx := range contexts {
			if v, ok := ctx[name]; ok && v != nil {
				return Stringify(v)
			}
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return ""
	})
	return out, missing
}

// PatternNames returns the distinct marker names referenced by a
// template, in order of first appearance.
func PatternNames(template string) []string {
	matches := placeholder.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
