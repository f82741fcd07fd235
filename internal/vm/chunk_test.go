package vm

import (
	"errors"
	"testing"
)

func TestChunkWrite(t *testing.T) {
	chunk := NewChunk()
	chunk.WriteOp(OP_CONSTANT, 1)
	chunk.Write(0, 1)
	chunk.WriteOp(OP_RETURN, 2)

	if chunk.Len() != 3 {
		t.Fatalf("expected 3 bytes, got %d", chunk.Len())
	}
	if len(chunk.Lines) != 3 || chunk.Lines[2] != 2 {
		t.Errorf("unexpected lines: %v", chunk.Lines)
	}
}

func TestChunkConstantLimit(t *testing.T) {
	chunk := NewChunk()
	for i := 0; i < MaxConstants; i++ {
		idx, err := chunk.AddConstant(NumberVal(float64(i)))
		if err != nil {
			t.Fatalf("constant %d: %v", i, err)
		}
		if idx != i {
			t.Fatalf("expected index %d, got %d", i, idx)
		}
	}

	if _, err := chunk.AddConstant(NumberVal(256)); !errors.Is(err, ErrTooManyConstants) {
		t.Errorf("expected ErrTooManyConstants, got %v", err)
	}
	if len(chunk.Constants) != MaxConstants {
		t.Errorf("pool grew past capacity: %d", len(chunk.Constants))
	}
}
