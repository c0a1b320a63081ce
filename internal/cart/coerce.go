package cart

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Coerce converts an arbitrary price value to a non-negative decimal.
// Non-numeric input, nil, NaN, infinities and negative values all become zero.
func Coerce(v any) decimal.Decimal {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		d = *x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case float32:
		return Coerce(float64(x))
	case int:
		d = decimal.NewFromInt(int64(x))
	case int32:
		d = decimal.NewFromInt32(x)
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		return Coerce(string(x))
	case json.RawMessage:
		var inner any
		if err := json.Unmarshal(x, &inner); err != nil {
			return decimal.Zero
		}
		return Coerce(inner)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
