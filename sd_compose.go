package llsd

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/constraints"
)

func Boolean(v bool) SD { return SD{kind: TypeBoolean, v: v} }

// Integer builds an integer value, saturating v to the int32 range.
func Integer[T constraints.Integer](v T) SD {
	var n int32
	if v < 0 {
		n = int32(max(int64(v), math.MinInt32))
	} else {
		n = int32(min(uint64(v), math.MaxInt32))
	}
	return SD{kind: TypeInteger, v: n}
}

func Real[T constraints.Float](v T) SD { return SD{kind: TypeReal, v: float64(v)} }

func String(v string) SD { return SD{kind: TypeString, v: v} }

func UUID(v uuid.UUID) SD { return SD{kind: TypeUUID, v: v} }

// Date builds a date value. Dates carry whole seconds in UTC; any fraction is
// dropped. Instants before year 0000 or after 9999 clamp to those years.
func Date(v time.Time) SD { return SD{kind: TypeDate, v: truncDate(v)} }

func NewURI(v URI) SD { return SD{kind: TypeURI, v: v} }

// Binary builds a binary value holding a copy of v.
func Binary(v []byte) SD {
	if v == nil {
		v = []byte{}
	}
	return SD{kind: TypeBinary, v: slices.Clone(v)}
}

func EmptyMap() SD { return SD{kind: TypeMap, v: &mapBlock{refs: 1, entries: map[string]*SD{}}} }

func EmptyArray() SD { return SD{kind: TypeArray, v: &arrayBlock{refs: 1}} }

// MapOf builds a map holding copies of the given entries.
func MapOf(entries map[string]SD) SD {
	sd := EmptyMap()
	for k, v := range entries {
		sd.InsertKey(k, v)
	}
	return sd
}

// ArrayOf builds an array holding copies of items.
func ArrayOf(items ...SD) SD {
	sd := EmptyArray()
	for _, v := range items {
		sd.Append(v)
	}
	return sd
}

// epoch is the date every unparseable or empty date text maps to.
var epoch = time.Unix(0, 0).UTC()

// Dates are kept within four-digit years so their text form always reads back.
var (
	minDateSeconds = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxDateSeconds = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

func truncDate(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return time.Unix(clamp(t.Unix(), minDateSeconds, maxDateSeconds), 0).UTC()
}
