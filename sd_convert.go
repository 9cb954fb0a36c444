package llsd

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// The As conversions never fail. A source without a sensible conversion
// yields the zero value of the target: false, 0, "", uuid.Nil, the epoch,
// an empty URI or nil.

func (sd SD) AsBoolean() bool {
	switch v := sd.v.(type) {
	case bool:
		return v
	case int32:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	}
	return false
}

func (sd SD) AsInteger() int32 {
	switch v := sd.v.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case int32:
		return v
	case float64:
		return realToInteger(v)
	case string:
		return realToInteger(parseReal(v))
	case time.Time:
		return int32(clamp(v.Unix(), math.MinInt32, math.MaxInt32))
	}
	return 0
}

func (sd SD) AsReal() float64 {
	switch v := sd.v.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case int32:
		return float64(v)
	case float64:
		return v
	case string:
		return parseReal(v)
	case time.Time:
		return float64(v.Unix())
	}
	return 0
}

func (sd SD) AsString() string {
	switch v := sd.v.(type) {
	case bool:
		if v {
			return "true"
		}
		return ""
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case float64:
		return formatReal(v)
	case string:
		return v
	case uuid.UUID:
		return v.String()
	case time.Time:
		return formatDate(v)
	case URI:
		return string(v)
	}
	return ""
}

func (sd SD) AsUUID() uuid.UUID {
	switch v := sd.v.(type) {
	case uuid.UUID:
		return v
	case string:
		return parseUUID(v)
	}
	return uuid.Nil
}

func (sd SD) AsDate() time.Time {
	switch v := sd.v.(type) {
	case time.Time:
		return v
	case string:
		t, _ := parseDate(v)
		return t
	}
	return epoch
}

func (sd SD) AsURI() URI {
	switch v := sd.v.(type) {
	case URI:
		return v
	case string:
		return URI(v)
	}
	return ""
}

// AsBinary returns a copy of a binary value's bytes, nil for anything else.
func (sd SD) AsBinary() []byte {
	if v, ok := sd.v.([]byte); ok {
		return slices.Clone(v)
	}
	return nil
}

// rawBinary returns the stored bytes without copying.
func (sd SD) rawBinary() []byte {
	v, _ := sd.v.([]byte)
	return v
}

func realToInteger(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	return int32(clamp(math.Trunc(v), math.MinInt32, math.MaxInt32))
}

// parseReal reads the whole string, ignoring surrounding blanks, as a real.
// Anything that is not a number reads as 0.
func parseReal(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return f
}

// formatReal renders the shortest text that reads back as the same value.
func formatReal(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseUUID(s string) uuid.UUID {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil
	}
	return u
}

const dateLayout = "2006-01-02T15:04:05Z"

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// parseDate reads an ISO-8601 timestamp. Empty text is the epoch; text that
// does not parse is the epoch and reports false.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return epoch, true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return truncDate(t), true
		}
	}
	return epoch, false
}
