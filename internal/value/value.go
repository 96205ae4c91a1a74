// Package value contains the typed scalar union used for statement parameters,
// DDL defaults and row results, together with its conversion to and from the
// engine's native kinds.
package value

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindReal32
	KindReal64
	KindString
	KindDateTime
	KindDecimal
	KindUUID
	KindNow
	KindNowPlus
)

var kindNames = [...]string{
	KindNull:     "Null",
	KindBool:     "Bool",
	KindInt8:     "Int8",
	KindInt16:    "Int16",
	KindInt32:    "Int32",
	KindInt64:    "Int64",
	KindUInt8:    "UInt8",
	KindUInt16:   "UInt16",
	KindUInt32:   "UInt32",
	KindUInt64:   "UInt64",
	KindReal32:   "Real32",
	KindReal64:   "Real64",
	KindString:   "String",
	KindDateTime: "DateTime",
	KindDecimal:  "Decimal",
	KindUUID:     "Uuid",
	KindNow:      "Now",
	KindNowPlus:  "NowPlus",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// DateTimeLayout is the text form DateTime values bind as.
const DateTimeLayout = "2006-01-02 15:04:05"

// Value is a closed tagged union. The zero Value is Null.
//
// Every scalar kind can also be a typed null (see the *Ptr constructors).
// A typed null and Null are identical once bound.
type Value struct {
	kind  Kind
	valid bool

	i  int64
	u  uint64
	f  float64
	s  string
	t  time.Time
	d  decimal.Decimal
	id uuid.UUID
	iv Interval
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, valid: true, i: boolInt(b)} }
func Int8(v int8) Value { return Value{kind: KindInt8, valid: true, i: int64(v)} }
func Int16(v int16) Value { return Value{kind: KindInt16, valid: true, i: int64(v)} }
func Int32(v int32) Value { return Value{kind: KindInt32, valid: true, i: int64(v)} }
func Int64(v int64) Value { return Value{kind: KindInt64, valid: true, i: v} }
func UInt8(v uint8) Value { return Value{kind: KindUInt8, valid: true, u: uint64(v)} }
func UInt16(v uint16) Value { return Value{kind: KindUInt16, valid: true, u: uint64(v)} }
func UInt32(v uint32) Value { return Value{kind: KindUInt32, valid: true, u: uint64(v)} }
func UInt64(v uint64) Value { return Value{kind: KindUInt64, valid: true, u: v} }
func Real32(v float32) Value { return Value{kind: KindReal32, valid: true, f: float64(v)} }
func Real64(v float64) Value { return Value{kind: KindReal64, valid: true, f: v} }
func String(s string) Value { return Value{kind: KindString, valid: true, s: s} }
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, valid: true, t: t} }
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, valid: true, d: d} }
func UUID(id uuid.UUID) Value { return Value{kind: KindUUID, valid: true, id: id} }

// Now is evaluated by the engine at statement execution time.
func Now() Value { return Value{kind: KindNow, valid: true} }

// NowPlus is the engine's current time shifted by iv.
func NowPlus(iv Interval) Value { return Value{kind: KindNowPlus, valid: true, iv: iv} }

func BoolPtr(p *bool) Value { return nullable(KindBool, p, Bool) }
func Int8Ptr(p *int8) Value { return nullable(KindInt8, p, Int8) }
func Int16Ptr(p *int16) Value { return nullable(KindInt16, p, Int16) }
func Int32Ptr(p *int32) Value { return nullable(KindInt32, p, Int32) }
func Int64Ptr(p *int64) Value { return nullable(KindInt64, p, Int64) }
func UInt8Ptr(p *uint8) Value { return nullable(KindUInt8, p, UInt8) }
func UInt16Ptr(p *uint16) Value { return nullable(KindUInt16, p, UInt16) }
func UInt32Ptr(p *uint32) Value { return nullable(KindUInt32, p, UInt32) }
func UInt64Ptr(p *uint64) Value { return nullable(KindUInt64, p, UInt64) }
func Real32Ptr(p *float32) Value { return nullable(KindReal32, p, Real32) }
func Real64Ptr(p *float64) Value { return nullable(KindReal64, p, Real64) }
func StringPtr(p *string) Value { return nullable(KindString, p, String) }
func DateTimePtr(p *time.Time) Value { return nullable(KindDateTime, p, DateTime) }
func DecimalPtr(p *decimal.Decimal) Value {
	return nullable(KindDecimal, p, Decimal)
}
func UUIDPtr(p *uuid.UUID) Value { return nullable(KindUUID, p, UUID) }

func nullable[T any](kind Kind, p *T, mk func(T) Value) Value {
	if p == nil {
		return Value{kind: kind}
	}
	return mk(*p)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Kind returns the tag of the value. A typed null keeps its scalar kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null or a typed null.
func (v Value) IsNull() bool { return v.kind == KindNull || !v.valid }

// IsDeferred reports whether v is Now or NowPlus.
func (v Value) IsDeferred() bool { return v.kind == KindNow || v.kind == KindNowPlus }

// Interval returns the offset of a NowPlus value.
func (v Value) Interval() Interval { return v.iv }

// AsInt64 returns the value as int64 for signed, unsigned (when in range) and bool kinds.
func (v Value) AsInt64() (int64, bool) {
	if v.IsNull() {
		return 0, false
	}
	switch v.kind {
	case KindBool, KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i, true
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		if v.u > maxInt64 {
			return 0, false
		}
		return int64(v.u), true
	default:
		return 0, false
	}
}

// AsFloat64 returns the value of a real kind.
func (v Value) AsFloat64() (float64, bool) {
	if v.IsNull() || (v.kind != KindReal32 && v.kind != KindReal64) {
		return 0, false
	}
	return v.f, true
}

// AsString returns the value of a String kind.
func (v Value) AsString() (string, bool) {
	if v.IsNull() || v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsTime returns the value of a DateTime kind.
func (v Value) AsTime() (time.Time, bool) {
	if v.IsNull() || v.kind != KindDateTime {
		return time.Time{}, false
	}
	return v.t, true
}

// AsDecimal returns the value of a Decimal kind.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	if v.IsNull() || v.kind != KindDecimal {
		return decimal.Decimal{}, false
	}
	return v.d, true
}

// AsUUID returns the value of a Uuid kind.
func (v Value) AsUUID() (uuid.UUID, bool) {
	if v.IsNull() || v.kind != KindUUID {
		return uuid.UUID{}, false
	}
	return v.id, true
}

// Any returns the closest native Go value, nil for nulls.
func (v Value) Any() any {
	if v.IsNull() {
		return nil
	}
	switch v.kind {
	case KindBool:
		return v.i != 0
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return v.u
	case KindReal32, KindReal64:
		return v.f
	case KindString:
		return v.s
	case KindDateTime:
		return v.t
	case KindDecimal:
		return v.d.String()
	case KindUUID:
		return v.id.String()
	default:
		return v.String()
	}
}

// Equal reports whether two values hold the same kind and content.
// Null and typed nulls are all equal to each other.
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindDateTime:
		return v.t.Equal(o.t)
	case KindDecimal:
		return v.d.Equal(o.d)
	default:
		return v.i == o.i && v.u == o.u && v.f == o.f && v.s == o.s && v.id == o.id && v.iv == o.iv
	}
}

func (v Value) String() string {
	if v.IsNull() {
		return "NULL"
	}
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return strconv.FormatUint(v.u, 10)
	case KindReal32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case KindReal64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	case KindDecimal:
		return v.d.String()
	case KindUUID:
		return v.id.String()
	case KindNow:
		return "NOW"
	case KindNowPlus:
		return fmt.Sprintf("NOW%v", v.iv.Modifiers())
	default:
		return v.kind.String()
	}
}
