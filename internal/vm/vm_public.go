package vm

import (
	"context"
	"io"
)

// InterpretResult classifies the outcome of compiling and running a program.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// Options configures Interpret. A nil writer disables the corresponding output.
type Options struct {
	ErrOut   io.Writer // compile diagnostics
	CodeOut  io.Writer // disassembly of the compiled chunk
	Trace    io.Writer // execution trace
	MaxStack int
	Context  context.Context
}

// Interpret compiles source into heap and runs it on a fresh VM.
func Interpret(heap *Heap, source string, opts Options) (Value, InterpretResult, error) {
	compiler := NewCompiler(heap)
	compiler.SetErrorOutput(opts.ErrOut)
	compiler.SetCodeOutput(opts.CodeOut)

	chunk, err := compiler.Compile(source)
	if err != nil {
		return NilVal(), InterpretCompileError, err
	}

	return RunChunk(heap, chunk, opts)
}

// RunChunk runs an already compiled chunk on a fresh VM.
func RunChunk(heap *Heap, chunk *Chunk, opts Options) (Value, InterpretResult, error) {
	machine := New(heap)
	machine.SetTrace(opts.Trace)
	machine.SetMaxStack(opts.MaxStack)
	if opts.Context != nil {
		machine.SetContext(opts.Context)
	}

	result, err := machine.Run(chunk)
	if err != nil {
		return NilVal(), InterpretRuntimeError, err
	}
	return result, InterpretOK, nil
}
