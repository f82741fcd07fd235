// Package vm implements the single-pass bytecode compiler and the stack
// virtual machine that executes its output.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	OP_CONSTANT Opcode = iota // Push constant from pool: idx (1 byte)
	OP_NIL                    // Push nil
	OP_TRUE                   // Push true
	OP_FALSE                  // Push false

	// Comparison
	OP_EQUAL   // ==
	OP_GREATER // >
	OP_LESS    // <

	// Arithmetic
	OP_ADD      // +
	OP_SUBTRACT // -
	OP_MULTIPLY // *
	OP_DIVIDE   // /
	OP_MODULO   // %

	// Unary
	OP_NOT    // !
	OP_NEGATE // Unary minus

	OP_RETURN // Pop the result and halt
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONSTANT: "OP_CONSTANT",
	OP_NIL:      "OP_NIL",
	OP_TRUE:     "OP_TRUE",
	OP_FALSE:    "OP_FALSE",

	OP_EQUAL:   "OP_EQUAL",
	OP_GREATER: "OP_GREATER",
	OP_LESS:    "OP_LESS",

	OP_ADD:      "OP_ADD",
	OP_SUBTRACT: "OP_SUBTRACT",
	OP_MULTIPLY: "OP_MULTIPLY",
	OP_DIVIDE:   "OP_DIVIDE",
	OP_MODULO:   "OP_MODULO",

	OP_NOT:    "OP_NOT",
	OP_NEGATE: "OP_NEGATE",

	OP_RETURN: "OP_RETURN",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}
