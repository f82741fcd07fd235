package loxvm

import (
	"fmt"
	"reflect"

	"github.com/funvibe/loxvm/internal/vm"
)

// Marshaller converts between Go values and VM values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a VM value. Strings are interned into heap
// but not pinned; use Interpreter.Value for values held across evaluations.
func (m *Marshaller) ToValue(heap *vm.Heap, val interface{}) (vm.Value, error) {
	if val == nil {
		return vm.NilVal(), nil
	}

	// Check if already a Value
	if v, ok := val.(vm.Value); ok {
		return v, nil
	}

	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return vm.NilVal(), nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.NumberVal(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return vm.NumberVal(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.NumberVal(v.Float()), nil
	case reflect.Bool:
		return vm.BoolVal(v.Bool()), nil
	case reflect.String:
		return vm.ObjVal(heap.CopyString(v.String())), nil
	default:
		return vm.NilVal(), fmt.Errorf("unsupported Go type for conversion: %s", v.Type())
	}
}

// FromValue converts a VM value to a Go value.
// targetType is optional; if provided, numbers are converted to that kind.
func (m *Marshaller) FromValue(val vm.Value, targetType reflect.Type) (interface{}, error) {
	switch val.Type {
	case vm.ValNil:
		return nil, nil
	case vm.ValBool:
		return val.AsBool(), nil
	case vm.ValNumber:
		n := val.AsNumber()
		if targetType != nil {
			switch targetType.Kind() {
			case reflect.Int:
				return int(n), nil
			case reflect.Int64:
				return int64(n), nil
			case reflect.Float32:
				return float32(n), nil
			}
		}
		return n, nil
	case vm.ValObj:
		switch o := val.Obj.(type) {
		case *vm.ObjString:
			return o.Chars, nil
		default:
			return nil, fmt.Errorf("unsupported type for conversion: %s", val.TypeName())
		}
	default:
		return nil, fmt.Errorf("unsupported type for conversion: %s", val.TypeName())
	}
}
