package vm

import "errors"

// MaxConstants is the constant pool capacity; indices are one-byte operands.
const MaxConstants = 256

// ErrTooManyConstants is returned by AddConstant when the pool is full.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Lines maps bytecode offset to source line number (for errors)
	Lines []int

	// Constants pool - number and string literals
	Constants []Value
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Lines:     make([]int, 0, 64),
		Constants: make([]Value, 0, 16),
	}
}

// Write adds a byte to the chunk with line info
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant adds a constant to the pool and returns its index.
// The pool is left unchanged when it already holds MaxConstants entries.
func (c *Chunk) AddConstant(value Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1, nil
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}
