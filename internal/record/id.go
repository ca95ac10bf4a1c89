package record

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseID converts a caller-supplied identifier to a record key.
// The second result is false when v has no finite integral numeric value;
// callers treat that as "not found" rather than an error.
//
// Accepted: Go integer kinds, integral finite floats, json.Number and
// numeric strings (surrounding whitespace ignored, exponent notation allowed).
func ParseID(v any) (int64, bool) {
	switch id := v.(type) {
	case int:
		return int64(id), true
	case int8:
		return int64(id), true
	case int16:
		return int64(id), true
	case int32:
		return int64(id), true
	case int64:
		return id, true
	case uint:
		return fromUint(uint64(id))
	case uint8:
		return int64(id), true
	case uint16:
		return int64(id), true
	case uint32:
		return int64(id), true
	case uint64:
		return fromUint(id)
	case float32:
		return fromFloat(float64(id))
	case float64:
		return fromFloat(id)
	case Int:
		return int64(id), true
	case json.Number:
		return parseIDString(string(id))
	case string:
		return parseIDString(id)
	case []byte:
		return parseIDString(string(id))
	default:
		return 0, false
	}
}

func parseIDString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return fromFloat(f)
}

func fromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func fromUint(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}
