package value

import (
	"errors"
	"fmt"
	"math"
	"time"

	"relcore/internal/core"
)

const maxInt64 = uint64(math.MaxInt64)

var (
	errU64TooLarge  = errors.New("u64 too large")
	errDeferredBind = errors.New("deferred time value reached parameter binding")
	errBinary       = errors.New("binary values are not supported")
)

// ToEngine converts v into the value handed to the driver.
//
// Integers narrower than 64 bits widen to int64, UInt64 values above
// math.MaxInt64 fail, Decimal and Uuid bind as their canonical text and
// DateTime binds as DateTimeLayout text.
func ToEngine(v Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.kind {
	case KindBool, KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i, nil
	case KindUInt8, KindUInt16, KindUInt32:
		return int64(v.u), nil
	case KindUInt64:
		if v.u > maxInt64 {
			return nil, core.NewError(core.KindUnsupportedType, fmt.Sprintf("bind %d", v.u), errU64TooLarge)
		}
		return int64(v.u), nil
	case KindReal32, KindReal64:
		return v.f, nil
	case KindString:
		return v.s, nil
	case KindDateTime:
		return v.t.Format(DateTimeLayout), nil
	case KindDecimal:
		return v.d.String(), nil
	case KindUUID:
		return v.id.String(), nil
	case KindNow, KindNowPlus:
		return nil, core.NewError(core.KindUnsupportedType, "bind "+v.kind.String(), errDeferredBind)
	default:
		return nil, core.Errorf(core.KindUnsupportedType, "unknown value kind %v", v.kind)
	}
}

// ToEngineAll converts a parameter list, failing on the first unsupported value.
func ToEngineAll(params []Value) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		a, err := ToEngine(p)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	return args, nil
}

// FromEngine maps a driver value back to the closest Value.
// Binary data fails loudly instead of being truncated or dropped.
func FromEngine(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Int64(v), nil
	case int:
		return Int64(int64(v)), nil
	case int32:
		return Int64(int64(v)), nil
	case float64:
		return Real64(v), nil
	case float32:
		return Real64(float64(v)), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case time.Time:
		return DateTime(v), nil
	case []byte:
		return Value{}, core.NewError(core.KindUnsupportedType, fmt.Sprintf("read %d byte blob", len(v)), errBinary)
	default:
		return Value{}, core.Errorf(core.KindUnsupportedType, "unsupported engine value %T", x)
	}
}
