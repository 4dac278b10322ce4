package questionnaire

import (
	"fmt"
	"strconv"
	"strings"
)

// AnswerSet maps question codes to answer values as decoded from JSON:
// strings, float64, bool, []any, map[string]any or nil. A code that is absent
// is treated exactly like an empty value.
type AnswerSet map[string]any

// Get returns the value for code, or nil.
func (a AnswerSet) Get(code string) any {
	if a == nil {
		return nil
	}
	return a[code]
}

// Has reports whether code carries a non-empty answer.
func (a AnswerSet) Has(code string) bool {
	return !IsEmpty(a.Get(code))
}

// Clone returns a deep copy so callers can hand the set to another goroutine.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// IsEmpty is the single definition of "unanswered": nil, a blank string, an
// empty array, or an object whose members are all empty.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		for _, inner := range val {
			if !IsEmpty(inner) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Coordinates is a latitude/longitude pair; either half may be missing.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Complete reports whether both halves are present.
func (c Coordinates) Complete() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Location is the composite answer of GEO_FULL and LOCATION questions.
type Location struct {
	Provinsi  string      `json:"provinsi"`
	Kabupaten string      `json:"kabupaten"`
	Kecamatan string      `json:"kecamatan"`
	Desa      string      `json:"desa"`
	Koordinat Coordinates `json:"koordinat"`
}

// LocationOf decodes a composite location answer. Missing or malformed parts
// are left zero.
func LocationOf(v any) Location {
	m, _ := v.(map[string]any)
	return Location{
		Provinsi:  stringOf(m["provinsi"]),
		Kabupaten: stringOf(m["kabupaten"]),
		Kecamatan: stringOf(m["kecamatan"]),
		Desa:      stringOf(m["desa"]),
		Koordinat: CoordinatesOf(m["koordinat"]),
	}
}

// CoordinatesOf decodes a GPS answer or the koordinat part of a location.
func CoordinatesOf(v any) Coordinates {
	m, _ := v.(map[string]any)
	return Coordinates{
		Latitude:  floatOf(m["latitude"]),
		Longitude: floatOf(m["longitude"]),
	}
}

func stringOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}

func floatOf(v any) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
