package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/loxvm/internal/lexer"
	"github.com/funvibe/loxvm/internal/token"
)

// Precedence is the binding power of an operator, lowest first.
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * / %
	PREC_UNARY                 // ! -
	PREC_CALL                  // . ()
	PREC_PRIMARY
)

type parseFn func()

// parseRule says how a token is parsed when it starts an expression (prefix)
// and when it continues one (infix, binding at precedence).
type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// parser is the token window and error state of one compilation.
type parser struct {
	current  token.Token
	previous token.Token

	// hadError is sticky for the whole compilation.
	hadError bool
	// panicMode suppresses further reports after the first error.
	panicMode bool
}

// CompileError is a single syntax diagnostic.
type CompileError struct {
	Line    int
	Where   string // " at end", " at '<lexeme>'" or empty for scanner errors
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// CompileErrors is the list of diagnostics reported by one compilation.
type CompileErrors []*CompileError

func (e CompileErrors) Error() string {
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Compiler compiles source text straight to bytecode in a single pass.
// Strings it meets are interned into the heap it was created with.
type Compiler struct {
	heap   *Heap
	lexer  *lexer.Lexer
	parser parser
	chunk  *Chunk

	rules [token.NumTypes]parseRule

	errors CompileErrors

	// Diagnostics are reported here as they are found (defaults to os.Stderr)
	errOut io.Writer
	// When set, the disassembled chunk of every successful compilation
	codeOut io.Writer
}

// NewCompiler creates a compiler allocating into heap
func NewCompiler(heap *Heap) *Compiler {
	c := &Compiler{
		heap:   heap,
		errOut: os.Stderr,
	}
	c.registerRules()
	return c
}

// SetErrorOutput sets where diagnostics are printed. nil silences them.
func (c *Compiler) SetErrorOutput(w io.Writer) {
	c.errOut = w
}

// SetCodeOutput enables printing the disassembled chunk after compilation.
func (c *Compiler) SetCodeOutput(w io.Writer) {
	c.codeOut = w
}

func (c *Compiler) registerRules() {
	c.rules[token.LEFT_PAREN] = parseRule{c.grouping, nil, PREC_NONE}
	c.rules[token.MINUS] = parseRule{c.unary, c.binary, PREC_TERM}
	c.rules[token.PLUS] = parseRule{nil, c.binary, PREC_TERM}
	c.rules[token.SLASH] = parseRule{nil, c.binary, PREC_FACTOR}
	c.rules[token.STAR] = parseRule{nil, c.binary, PREC_FACTOR}
	c.rules[token.PERCENT] = parseRule{nil, c.binary, PREC_FACTOR}
	c.rules[token.BANG] = parseRule{c.unary, nil, PREC_NONE}
	c.rules[token.BANG_EQUAL] = parseRule{nil, c.binary, PREC_EQUALITY}
	c.rules[token.EQUAL_EQUAL] = parseRule{nil, c.binary, PREC_EQUALITY}
	c.rules[token.GREATER] = parseRule{nil, c.binary, PREC_COMPARISON}
	c.rules[token.GREATER_EQUAL] = parseRule{nil, c.binary, PREC_COMPARISON}
	c.rules[token.LESS] = parseRule{nil, c.binary, PREC_COMPARISON}
	c.rules[token.LESS_EQUAL] = parseRule{nil, c.binary, PREC_COMPARISON}
	c.rules[token.STRING] = parseRule{c.stringLiteral, nil, PREC_NONE}
	c.rules[token.NUMBER] = parseRule{c.number, nil, PREC_NONE}
	c.rules[token.FALSE] = parseRule{c.literal, nil, PREC_NONE}
	c.rules[token.NIL] = parseRule{c.literal, nil, PREC_NONE}
	c.rules[token.TRUE] = parseRule{c.literal, nil, PREC_NONE}
}

func (c *Compiler) getRule(t token.Type) *parseRule {
	return &c.rules[t]
}

// Compile compiles one expression. The returned chunk is populated even when
// compilation fails, but it must only be executed when err is nil; err is then
// a CompileErrors.
func (c *Compiler) Compile(source string) (*Chunk, error) {
	c.lexer = lexer.New(source)
	c.parser = parser{}
	c.chunk = NewChunk()
	c.errors = nil

	// Load the first real token into current
	c.advance()
	c.expression()
	c.consume(token.EOF, "Expected end of expression.")
	c.endCompiler()

	if c.parser.hadError {
		return c.chunk, c.errors
	}
	return c.chunk, nil
}

func (c *Compiler) currentChunk() *Chunk {
	return c.chunk
}

// Token handling

func (c *Compiler) advance() {
	c.parser.previous = c.parser.current
	for {
		c.parser.current = c.lexer.ScanToken()
		if c.parser.current.Type != token.ERROR {
			break
		}
		// Report and skip error tokens from the scanner
		c.errorAtCurrent(c.parser.current.Lexeme)
	}
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.parser.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// Error reporting

func (c *Compiler) error(message string) {
	c.errorAt(c.parser.previous, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.parser.current, message)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.parser.panicMode {
		return
	}
	c.parser.panicMode = true
	c.parser.hadError = true

	err := &CompileError{Line: tok.Line, Message: message}
	switch tok.Type {
	case token.EOF:
		err.Where = " at end"
	case token.ERROR:
		// The message already describes the bad token
	default:
		err.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errors = append(c.errors, err)

	if c.errOut != nil {
		fmt.Fprintln(c.errOut, err.Error())
	}
}

// Emission

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.parser.previous.Line)
}

func (c *Compiler) emitOp(op Opcode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOps(op1, op2 Opcode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *Compiler) makeConstant(value Value) byte {
	idx, err := c.currentChunk().AddConstant(value)
	if err != nil {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(value Value) {
	idx := c.makeConstant(value)
	c.emitOp(OP_CONSTANT)
	c.emitByte(idx)
}

func (c *Compiler) endCompiler() {
	c.emitOp(OP_RETURN)
	if !c.parser.hadError && c.codeOut != nil {
		io.WriteString(c.codeOut, Disassemble(c.currentChunk(), "code"))
	}
}
