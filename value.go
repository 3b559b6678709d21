package videocfg

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the value type of a registered option.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	// KindEnum values are stored as int indexes into Option.Values.
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// coerce converts raw into the canonical Go type for opt: bool, int,
// float64 or string. Persisted layers come back from stores with whatever
// types their encoding produces (int64 from TOML, float64 from JSON), so the
// conversions are deliberately lenient while never losing information.
func coerce(opt Option, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: %s is nil", ErrTypeMismatch, opt.Key)
	}
	switch opt.Kind {
	case KindBool:
		return coerceBool(opt.Key, raw)
	case KindInt:
		return coerceInt(opt.Key, raw)
	case KindFloat:
		return coerceFloat(opt.Key, raw)
	case KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return nil, mismatch(opt.Key, opt.Kind, raw)
	case KindEnum:
		if s, ok := raw.(string); ok {
			for i, label := range opt.Values {
				if strings.EqualFold(label, strings.TrimSpace(s)) {
					return i, nil
				}
			}
		}
		return coerceInt(opt.Key, raw)
	default:
		return nil, fmt.Errorf("%w: %s has no kind", ErrInvalidOption, opt.Key)
	}
}

func coerceBool(key string, raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, mismatch(key, KindBool, raw)
		}
		return b, nil
	}
	if n, ok := integral(raw); ok {
		return n != 0, nil
	}
	return nil, mismatch(key, KindBool, raw)
}

func coerceInt(key string, raw any) (any, error) {
	if n, ok := integral(raw); ok {
		return int(n), nil
	}
	if s, ok := raw.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err == nil {
			return int(n), nil
		}
	}
	return nil, mismatch(key, KindInt, raw)
}

func coerceFloat(key string, raw any) (any, error) {
	f, err := parseFloat(key, raw)
	if err != nil {
		return nil, err
	}
	// Non-finite values never compare equal to a baseline.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, mismatch(key, KindFloat, raw)
	}
	return f, nil
}

func parseFloat(key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		// Round-trip through the decimal form so 1.1f stays 1.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
		return f, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, mismatch(key, KindFloat, raw)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, mismatch(key, KindFloat, raw)
		}
		return f, nil
	}
	if n, ok := integral(raw); ok {
		return float64(n), nil
	}
	return 0, mismatch(key, KindFloat, raw)
}

// integral reports raw as an int64 when it holds a whole number.
func integral(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return int64(v), true
	case float32:
		return integral(float64(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func mismatch(key string, kind Kind, raw any) error {
	return fmt.Errorf("%w: %s wants %s, got %T(%v)", ErrTypeMismatch, key, kind, raw, raw)
}

// equalValues compares two canonical option values.
func equalValues(a, b any) bool {
	return a == b
}
