// Package resource holds the small value types shared by the resource
// facade: identifiers, name rules and result-shape normalization.
package resource

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ID identifies one item within a resource.
type ID int64

// String returns the decimal form of the ID.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID coerces a caller-supplied value to an ID. Accepts the
// numeric shapes JSON decoding produces plus decimal strings.
func ParseID(v any) (ID, error) {
	switch val := v.(type) {
	case ID:
		return val, nil
	case int:
		return ID(val), nil
	case int64:
		return ID(val), nil
	case float64:
		return ID(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse id %q: %w", val, err)
		}
		return ID(n), nil
	case nil:
		return 0, fmt.Errorf("parse id: value is nil")
	default:
		return 0, fmt.Errorf("parse id: unsupported type %T", v)
	}
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_.\-]{0,63}$`)

// ValidName reports whether s is usable as a resource name: lowercase,
// starts with a letter, up to 64 characters of [a-z0-9_.-].
func ValidName(s string) bool { return namePattern.MatchString(s) }

// Normalize shapes a raw call output into the item list the facade
// returns. A nil output means no items; a list passes through; any
// other value becomes a single-item list.
func Normalize(out any) []any {
	switch v := out.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
