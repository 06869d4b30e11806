package renderpayload

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	v1 "tixel/internal/contracts/renderer/v1"
)

// Coercion helpers for the editor's weakly-typed parameter bag. Values arrive
// from JSON as float64, string, bool or nil, and numeric fields are routinely
// sent as strings. None of these functions ever fail: unrecognized input
// degrades to the stated fallback and validation happens downstream.

// NumOrNull converts v to a finite float64, or nil when v is absent,
// unparseable, or non-finite. Used for optional position fields where null
// means "auto".
func NumOrNull(v any) *float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// NumOr converts v to a finite float64, substituting fallback when v is
// absent, unparseable, or non-finite.
func NumOr(v any, fallback float64) float64 {
	if f := NumOrNull(v); f != nil {
		return *f
	}
	return fallback
}

// AlignmentOf maps v onto the closed alignment set. Anything unrecognized
// maps to center.
func AlignmentOf(v any) string {
	switch strings.ToLower(strings.TrimSpace(Str(v))) {
	case v1.AlignLeft:
		return v1.AlignLeft
	case v1.AlignRight:
		return v1.AlignRight
	default:
		return v1.AlignCenter
	}
}

// BoolStrict accepts only an actual boolean true; truthy strings and numbers
// coerce to false.
func BoolStrict(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// Str renders v as a string with empty-for-falsy semantics: nil, false, zero
// and NaN all become "". Strings pass through verbatim; callers trim where
// the field requires it, series text keeps its spaces.
func Str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return ""
	case json.Number:
		return Str(string(t))
	case float64:
		if t == 0 || math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return Str(float64(t))
	case int:
		return Str(float64(t))
	case int32:
		return Str(float64(t))
	case int64:
		return Str(float64(t))
	default:
		return ""
	}
}

// toFloat attempts numeric conversion of the types JSON decoding and callers
// actually produce. Blank strings do not convert (the JS Number('') == 0
// quirk is deliberately not reproduced).
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
