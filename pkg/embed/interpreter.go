// Package loxvm is the embedding API: it compiles and evaluates expressions
// from Go and converts results to plain Go values.
package loxvm

import (
	"context"
	"fmt"
	"os"

	"github.com/funvibe/loxvm/internal/vm"
)

// Interpreter evaluates expressions against a private heap. Strings interned
// by one Eval stay interned for later ones.
//
// An Interpreter is not safe for concurrent use; create one per goroutine.
type Interpreter struct {
	heap       *vm.Heap
	marshaller *Marshaller
	maxStack   int
}

// New creates a new interpreter with an empty heap.
func New() *Interpreter {
	return &Interpreter{
		heap:       vm.NewHeap(),
		marshaller: NewMarshaller(),
	}
}

// SetMaxStack bounds the operand stack of every later evaluation.
func (in *Interpreter) SetMaxStack(n int) {
	in.maxStack = n
}

// Heap returns the heap the interpreter allocates into.
func (in *Interpreter) Heap() *vm.Heap {
	return in.heap
}

// Eval compiles and runs code. The result is float64, bool, string or nil.
func (in *Interpreter) Eval(code string) (interface{}, error) {
	return in.EvalContext(context.Background(), code)
}

// EvalContext is Eval with cancellation.
func (in *Interpreter) EvalContext(ctx context.Context, code string) (interface{}, error) {
	result, _, err := vm.Interpret(in.heap, code, vm.Options{
		MaxStack: in.maxStack,
		Context:  ctx,
	})
	if err != nil {
		return nil, err
	}
	return in.marshaller.FromValue(result, nil)
}

// LoadFile evaluates the contents of path.
func (in *Interpreter) LoadFile(path string) (interface{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return in.Eval(string(content))
}

// Value converts a Go value into a VM value allocated in the interpreter's
// heap. The result is pinned so later evaluations cannot collect it; call
// Release once it is no longer held.
func (in *Interpreter) Value(val interface{}) (vm.Value, error) {
	v, err := in.marshaller.ToValue(in.heap, val)
	if err != nil {
		return v, err
	}
	in.heap.Pin(v)
	return v, nil
}

// Release drops the pin taken by Value.
func (in *Interpreter) Release(v vm.Value) {
	in.heap.Unpin(v)
}
