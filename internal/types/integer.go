package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vtable/vtable/internal/errs"
)

// Integer accepts integer-like values, optionally bounded by inclusive
// min and max options.
type Integer struct {
	min *int64
	max *int64
}

// NewInteger builds an Integer from options "min" and "max".
func NewInteger(option map[string]any) (ValueType, error) {
	lo, err := intOption(option, "min")
	if err != nil {
		return nil, err
	}
	hi, err := intOption(option, "max")
	if err != nil {
		return nil, err
	}
	if lo != nil && hi != nil && *lo > *hi {
		return nil, fmt.Errorf("%w: min %d greater than max %d", errs.ErrValidation, *lo, *hi)
	}
	return &Integer{min: lo, max: hi}, nil
}

func (i *Integer) Name() string { return "Integer" }

func (i *Integer) Stringify(v any) (string, error) {
	n, err := toInt64(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v is not like an integer", errs.ErrValidation, v)
	}
	if i.max != nil && n > *i.max {
		return "", fmt.Errorf("%w: %d is greater than max %d", errs.ErrValidation, n, *i.max)
	}
	if i.min != nil && n < *i.min {
		return "", fmt.Errorf("%w: %d is less than min %d", errs.ErrValidation, n, *i.min)
	}
	return strconv.FormatInt(n, 10), nil
}

func (i *Integer) Destringify(s string) (any, error) {
	return s, nil
}

func intOption(option map[string]any, key string) (*int64, error) {
	v, ok := option[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("%w: option %s: %v is not an integer", errs.ErrValidation, key, v)
	}
	return &n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", n)
	}
	return int64(n), nil
}

// floatToInt64 accepts whole numbers only; JSON decoding produces float64 for every number.
func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, fmt.Errorf("%v is not integral", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}
