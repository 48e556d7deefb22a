package wdc2

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Type is the destination type a field is decoded as.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeInt8:
		return "int8"
	case TypeUint8:
		return "uint8"
	case TypeInt16:
		return "int16"
	case TypeUint16:
		return "uint16"
	case TypeInt32:
		return "int32"
	case TypeUint32:
		return "uint32"
	case TypeInt64:
		return "int64"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType maps a type name as written in layout files to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "int8", "sbyte":
		return TypeInt8, nil
	case "uint8", "byte":
		return TypeUint8, nil
	case "int16", "short":
		return TypeInt16, nil
	case "uint16", "ushort":
		return TypeUint16, nil
	case "int32", "int":
		return TypeInt32, nil
	case "uint32", "uint":
		return TypeUint32, nil
	case "int64", "long":
		return TypeInt64, nil
	case "uint64", "ulong":
		return TypeUint64, nil
	case "float32", "float":
		return TypeFloat32, nil
	case "string":
		return TypeString, nil
	}
	return TypeInvalid, fmt.Errorf("%w %q", ErrUnsupportedType, name)
}

func (t Type) valid() bool {
	return t >= TypeInt8 && t <= TypeString
}

func (t Type) signed() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// Value is one decoded cell. The zero Value has TypeInvalid.
type Value struct {
	typ  Type
	bits uint64
	str  string
}

// makeValue narrows raw decoded bits to t.
func makeValue(t Type, raw uint64) Value {
	switch t {
	case TypeInt8, TypeUint8:
		raw = uint64(uint8(raw))
	case TypeInt16, TypeUint16:
		raw = uint64(uint16(raw))
	case TypeInt32, TypeUint32, TypeFloat32:
		raw = uint64(uint32(raw))
	}
	return Value{typ: t, bits: raw}
}

// fromValue32 widens a pallet or common cell. 64-bit signed destinations
// are sign-extended; everything else is zero-extended.
func fromValue32(t Type, v Value32) Value {
	if t == TypeInt64 {
		return makeValue(t, uint64(int64(int32(v))))
	}
	return makeValue(t, uint64(v))
}

func stringValue(s string) Value {
	return Value{typ: TypeString, str: s}
}

// Coerce converts an integer into a Value of type t, the way a plain
// integer is assigned into a field of that type.
func Coerce(t Type, v int64) Value {
	switch t {
	case TypeFloat32:
		return Value{typ: t, bits: uint64(math.Float32bits(float32(v)))}
	case TypeString:
		return stringValue(strconv.FormatInt(v, 10))
	}
	return makeValue(t, uint64(v))
}

// Type reports the destination type the value was decoded as.
func (v Value) Type() Type { return v.typ }

// Int64 returns the value as a signed integer. Unsigned values are
// reinterpreted, floats truncated.
func (v Value) Int64() int64 {
	switch v.typ {
	case TypeInt8:
		return int64(int8(v.bits))
	case TypeInt16:
		return int64(int16(v.bits))
	case TypeInt32:
		return int64(int32(v.bits))
	case TypeFloat32:
		return int64(v.Float32())
	case TypeString:
		n, _ := strconv.ParseInt(v.str, 10, 64)
		return n
	}
	return int64(v.bits)
}

// Uint64 returns the raw bits of integer values.
func (v Value) Uint64() uint64 {
	if v.typ.signed() {
		return uint64(v.Int64())
	}
	if v.typ == TypeFloat32 {
		return uint64(v.Float32())
	}
	return v.bits
}

// Int32 is shorthand for int32(v.Int64()).
func (v Value) Int32() int32 { return int32(v.Int64()) }

// Uint32 is shorthand for uint32(v.Uint64()).
func (v Value) Uint32() uint32 { return uint32(v.Uint64()) }

// Float32 returns float values as-is and converts integers.
func (v Value) Float32() float32 {
	switch {
	case v.typ == TypeFloat32:
		return math.Float32frombits(uint32(v.bits))
	case v.typ.signed():
		return float32(v.Int64())
	}
	return float32(v.bits)
}

// Str returns the decoded string of a string value.
func (v Value) Str() string { return v.str }

// Any returns the value as the matching Go type.
func (v Value) Any() any {
	switch v.typ {
	case TypeInt8:
		return int8(v.bits)
	case TypeUint8:
		return uint8(v.bits)
	case TypeInt16:
		return int16(v.bits)
	case TypeUint16:
		return uint16(v.bits)
	case TypeInt32:
		return int32(v.bits)
	case TypeUint32:
		return uint32(v.bits)
	case TypeInt64:
		return int64(v.bits)
	case TypeUint64:
		return v.bits
	case TypeFloat32:
		return v.Float32()
	case TypeString:
		return v.str
	}
	return nil
}

func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeFloat32:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case TypeInvalid:
		return "<invalid>"
	}
	if v.typ.signed() {
		return strconv.FormatInt(v.Int64(), 10)
	}
	return strconv.FormatUint(v.bits, 10)
}

// MarshalJSON encodes the value as a JSON number or string. Non-finite
// floats are encoded as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.typ == TypeFloat32 {
		f := float64(v.Float32())
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return json.Marshal(v.String())
		}
	}
	return json.Marshal(v.Any())
}
