package vm

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "== %s ==\n", name)

	offset := 0
	for offset < len(chunk.Code) {
		offset = DisassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// DisassembleInstruction writes the instruction at offset and returns the
// offset of the next one.
func DisassembleInstruction(w io.Writer, chunk *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	// Print line number
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		io.WriteString(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])

	switch op {
	case OP_CONSTANT:
		return constantInstruction(w, op.String(), chunk, offset)

	case OP_NIL, OP_TRUE, OP_FALSE,
		OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_MODULO,
		OP_NOT, OP_NEGATE, OP_RETURN:
		return simpleInstruction(w, op.String(), offset)

	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, name string, offset int) int {
	fmt.Fprintf(w, "%s\n", name)
	return offset + 1
}

func constantInstruction(w io.Writer, name string, chunk *Chunk, offset int) int {
	if offset+1 >= len(chunk.Code) {
		fmt.Fprintf(w, "%-16s (truncated)\n", name)
		return offset + 1
	}

	idx := int(chunk.Code[offset+1])
	if idx < len(chunk.Constants) {
		fmt.Fprintf(w, "%-16s %4d '%s'\n", name, idx, chunk.Constants[idx])
	} else {
		fmt.Fprintf(w, "%-16s %4d (invalid)\n", name, idx)
	}

	return offset + 2
}
