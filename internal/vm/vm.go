package vm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"
)

var errTruncatedBytecode = errors.New("truncated bytecode")
var errStackUnderflow = errors.New("stack underflow")
var errStackOverflow = errors.New("stack overflow")
var errInvalidConstantIndex = errors.New("invalid constant index")

// ErrVMReused is returned when Run is called on a VM that has already run.
var ErrVMReused = errors.New("vm has already executed a chunk")

// Initial size for the operand stack
const InitialStackSize = 256

// Growth increment when the stack needs to expand
const StackGrowthIncrement = 256

// Maximum operand stack size to prevent OOM
const MaxStackSize = 64 * 1024

// RuntimeError is a type error or machine fault raised while executing.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}

// VM is the virtual machine that executes bytecode. A VM executes at most one
// chunk; create a new one per run and share the Heap instead.
type VM struct {
	chunk *Chunk
	ip    int // Offset of the next byte to read
	op    int // Offset of the instruction being executed

	stack    []Value
	sp       int // Stack pointer (points to next free slot)
	maxStack int

	heap *Heap
	used bool

	// Trace writer: when set, every instruction is printed with the stack
	trace io.Writer

	// Context for cancellation
	Context context.Context

	log commonlog.Logger
}

// New creates a new VM allocating into heap
func New(heap *Heap) *VM {
	return &VM{
		stack:    make([]Value, InitialStackSize),
		maxStack: MaxStackSize,
		heap:     heap,
		log:      commonlog.GetLogger("loxvm.vm"),
	}
}

// SetTrace enables execution tracing to w
func (vm *VM) SetTrace(w io.Writer) {
	vm.trace = w
}

// SetContext sets the context for cancellation
func (vm *VM) SetContext(ctx context.Context) {
	vm.Context = ctx
}

// SetMaxStack bounds the operand stack; values below 1 keep the default.
func (vm *VM) SetMaxStack(n int) {
	if n > 0 {
		vm.maxStack = n
	}
}

// Heap returns the heap the VM allocates into
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// Run executes chunk and returns the value of its expression.
// Errors are *RuntimeError, a context error, or ErrVMReused.
func (vm *VM) Run(chunk *Chunk) (Value, error) {
	if vm.used {
		return NilVal(), ErrVMReused
	}
	vm.used = true

	vm.chunk = chunk
	vm.ip = 0
	vm.sp = 0

	result, err := vm.execute()
	if err != nil {
		vm.log.Debugf("heap %s: run failed after %d bytes: %s", vm.heap.ID, vm.ip, err)
		return NilVal(), err
	}
	// Literals allocated by the compiler are only reclaimed here
	vm.collectGarbage(result)
	return result, nil
}

// execute is the main interpreter loop
func (vm *VM) execute() (Value, error) {
	// Instruction counter for periodic context checks
	opsSinceCheck := 0
	const checkInterval = 1000

	for {
		opsSinceCheck++
		if opsSinceCheck >= checkInterval {
			opsSinceCheck = 0
			if vm.Context != nil {
				select {
				case <-vm.Context.Done():
					return NilVal(), vm.Context.Err()
				default:
				}
			}
		}

		result, done, err := vm.step()
		if err != nil {
			return NilVal(), vm.formatError(err)
		}
		if done {
			return result, nil
		}
	}
}

// step executes one instruction and returns (result, done, error)
// done is true once OP_RETURN has executed
func (vm *VM) step() (res Value, done bool, err error) {
	// Machine faults surface as errors rather than crashing the host
	defer func() {
		if r := recover(); r != nil {
			if r == errTruncatedBytecode || r == errStackUnderflow || r == errStackOverflow || r == errInvalidConstantIndex {
				err = r.(error)
				res = NilVal()
				done = false
			} else {
				panic(r) // Re-panic other errors
			}
		}
	}()

	if vm.ip >= len(vm.chunk.Code) {
		// Fell off the end without OP_RETURN
		return NilVal(), true, nil
	}

	if vm.trace != nil {
		vm.traceInstruction()
	}

	vm.op = vm.ip
	op := Opcode(vm.readByte())

	if op == OP_RETURN {
		if vm.sp == 0 {
			return NilVal(), true, nil
		}
		return vm.pop(), true, nil
	}

	return NilVal(), false, vm.executeOneOp(op)
}

func (vm *VM) traceInstruction() {
	io.WriteString(vm.trace, "          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(vm.trace, "[ %s ]", vm.stack[i])
	}
	io.WriteString(vm.trace, "\n")
	DisassembleInstruction(vm.trace, vm.chunk, vm.ip)
}

// Stack operations

func (vm *VM) push(v Value) {
	if vm.sp >= vm.maxStack {
		panic(errStackOverflow)
	}
	// Grow stack if needed
	if vm.sp >= len(vm.stack) {
		growBy := StackGrowthIncrement
		if len(vm.stack) > growBy {
			growBy = len(vm.stack)
		}
		newStack := make([]Value, len(vm.stack)+growBy)
		copy(newStack, vm.stack[:vm.sp])
		vm.stack = newStack
	}

	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	if vm.sp <= 0 {
		panic(errStackUnderflow)
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = Value{}
	return v
}

func (vm *VM) peek(distance int) Value {
	idx := vm.sp - 1 - distance
	if idx < 0 {
		panic(errStackUnderflow)
	}
	return vm.stack[idx]
}

// Read helpers

func (vm *VM) readByte() byte {
	if vm.ip >= len(vm.chunk.Code) {
		panic(errTruncatedBytecode)
	}
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readConstant() Value {
	idx := int(vm.readByte())
	if idx >= len(vm.chunk.Constants) {
		panic(errInvalidConstantIndex)
	}
	return vm.chunk.Constants[idx]
}

// Errors

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	// Just return the formatted message - formatError will add line info
	return fmt.Errorf(format, args...)
}

// formatError attaches the source line of the instruction being executed.
func (vm *VM) formatError(err error) error {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return err
	}
	line := 0
	if vm.op < len(vm.chunk.Lines) {
		line = vm.chunk.Lines[vm.op]
	}
	return &RuntimeError{Line: line, Message: err.Error()}
}

// collectGarbage reclaims unreachable objects once the heap passes its threshold.
// Roots are the operand stack, the constant pool, extra and the heap's pinned values.
func (vm *VM) collectGarbage(extra ...Value) {
	if !vm.heap.ShouldCollect() {
		return
	}
	roots := make([]Value, 0, vm.sp+len(vm.chunk.Constants)+len(extra))
	roots = append(roots, vm.stack[:vm.sp]...)
	roots = append(roots, vm.chunk.Constants...)
	roots = append(roots, extra...)
	vm.heap.Collect(roots...)
}
