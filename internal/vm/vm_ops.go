package vm

import (
	"math"
)

// binaryOp performs numeric arithmetic. Operands are checked before they
// are popped so a failed operation leaves the stack untouched.
func (vm *VM) binaryOp(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	var result float64
	switch op {
	case OP_SUBTRACT:
		result = a - b
	case OP_MULTIPLY:
		result = a * b
	case OP_DIVIDE:
		// IEEE semantics: x/0 is ±Inf, 0/0 is NaN
		result = a / b
	case OP_MODULO:
		result = math.Mod(a, b)
	}
	vm.push(NumberVal(result))
	return nil
}

// addOp adds two numbers or concatenates two strings
func (vm *VM) addOp() error {
	a, b := vm.peek(1), vm.peek(0)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.concatenate()
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

func (vm *VM) concatenate() {
	b := vm.peek(0).AsString()
	a := vm.peek(1).AsString()

	result := vm.heap.TakeString(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(ObjVal(result))

	vm.collectGarbage()
}

// comparisonOp performs < and > on numbers
func (vm *VM) comparisonOp(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case OP_GREATER:
		vm.push(BoolVal(a > b))
	case OP_LESS:
		vm.push(BoolVal(a < b))
	}
	return nil
}
