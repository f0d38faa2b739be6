package playback

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/melodeck/melodeck/fault"
)

// ParseNumber accepts a JSON number, a Go numeric value or a numeric string.
// Anything else, including NaN and infinities, is a ValidationError.
func ParseNumber(v any) (float64, error) {
	const op = "playback.number"

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fault.Newf(fault.ValidationError, op, "%q is not a number", n.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fault.Newf(fault.ValidationError, op, "%q is not a number", n)
		}
		f = parsed
	case nil:
		return 0, fault.New(fault.ValidationError, op, "a number is required")
	default:
		return 0, fault.Newf(fault.ValidationError, op, "%v is not a number", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fault.New(fault.ValidationError, op, "number must be finite")
	}

	return f, nil
}
