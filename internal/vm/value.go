package vm

import (
	"fmt"
	"math"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValBool ValueType = iota
	ValNil
	ValNumber
	ValObj // Heap object (String)
)

var valueTypeNames = [...]string{
	ValBool:   "bool",
	ValNil:    "nil",
	ValNumber: "number",
	ValObj:    "object",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// Value is a stack-allocated tagged union.
// Scalars (Bool, Nil, Number) live in Data and never allocate; heap objects
// are referenced through Obj and copied by reference.
type Value struct {
	Type ValueType
	Data uint64 // float64 bits or bool (0/1)
	Obj  Obj
}

// Constructors

func NilVal() Value {
	return Value{Type: ValNil}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func ObjVal(o Obj) Value {
	return Value{Type: ValObj, Obj: o}
}

// Accessors

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) AsNumber() float64 {
	return math.Float64frombits(v.Data)
}

// AsString returns the string object, or nil if v does not hold one.
func (v Value) AsString() *ObjString {
	s, _ := v.Obj.(*ObjString)
	return s
}

// Type checking helpers

func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsString() bool {
	if v.Type != ValObj {
		return false
	}
	_, ok := v.Obj.(*ObjString)
	return ok
}

// IsFalsey reports whether v counts as false in a condition: nil and false do.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equals compares two values.
// Numbers use float comparison, so NaN is never equal to itself. Objects
// compare by identity; strings are interned, which makes that content equality.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValBool:
		return v.Data == other.Data
	case ValNil:
		return true
	case ValNumber:
		return v.AsNumber() == other.AsNumber()
	case ValObj:
		return v.Obj == other.Obj
	default:
		return false
	}
}

// String returns the printed form of the value
func (v Value) String() string {
	switch v.Type {
	case ValBool:
		return fmt.Sprintf("%t", v.AsBool())
	case ValNil:
		return "nil"
	case ValNumber:
		return fmt.Sprintf("%g", v.AsNumber())
	case ValObj:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "<nil obj>"
	default:
		return "<?>"
	}
}

// TypeName returns the user-facing type name, used in diagnostics.
func (v Value) TypeName() string {
	if v.Type == ValObj && v.Obj != nil {
		return v.Obj.Type().String()
	}
	return v.Type.String()
}
