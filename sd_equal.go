package llsd

import (
	"bytes"
	"math"
	"time"

	"github.com/google/uuid"
)

// Equal reports whether a and b hold the same structured value. Reals compare
// by bit pattern, so two NaNs are equal and 0 and -0 are not; dates compare
// by instant.
func Equal(a, b SD) bool {
	if a.kind != b.kind {
		return false
	}
	switch x := a.v.(type) {
	case nil:
		return true
	case bool:
		return x == b.v.(bool)
	case int32:
		return x == b.v.(int32)
	case float64:
		y := b.v.(float64)
		return math.Float64bits(x) == math.Float64bits(y) || math.IsNaN(x) && math.IsNaN(y)
	case string:
		return x == b.v.(string)
	case uuid.UUID:
		return x == b.v.(uuid.UUID)
	case time.Time:
		return x.Equal(b.v.(time.Time))
	case URI:
		return x == b.v.(URI)
	case []byte:
		return bytes.Equal(x, b.v.([]byte))
	case *mapBlock:
		y := b.v.(*mapBlock)
		if x == y {
			return true
		}
		if len(x.entries) != len(y.entries) {
			return false
		}
		for k, e := range x.entries {
			o, ok := y.entries[k]
			if !ok || !Equal(*e, *o) {
				return false
			}
		}
		return true
	case *arrayBlock:
		y := b.v.(*arrayBlock)
		if x == y {
			return true
		}
		if len(x.items) != len(y.items) {
			return false
		}
		for i, e := range x.items {
			if !Equal(*e, *y.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
