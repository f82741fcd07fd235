package vm

// executeOneOp executes a single opcode (except RETURN)
func (vm *VM) executeOneOp(op Opcode) error {
	switch op {
	case OP_CONSTANT:
		vm.push(vm.readConstant())

	case OP_NIL:
		vm.push(NilVal())

	case OP_TRUE:
		vm.push(BoolVal(true))

	case OP_FALSE:
		vm.push(BoolVal(false))

	case OP_EQUAL:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(a.Equals(b)))

	case OP_GREATER, OP_LESS:
		if err := vm.comparisonOp(op); err != nil {
			return err
		}

	case OP_ADD:
		if err := vm.addOp(); err != nil {
			return err
		}

	case OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_MODULO:
		if err := vm.binaryOp(op); err != nil {
			return err
		}

	case OP_NOT:
		vm.push(BoolVal(vm.pop().IsFalsey()))

	case OP_NEGATE:
		if !vm.peek(0).IsNumber() {
			return vm.runtimeError("Operand must be a number.")
		}
		vm.push(NumberVal(-vm.pop().AsNumber()))

	default:
		return vm.runtimeError("Unknown opcode %d.", byte(op))
	}
	return nil
}
