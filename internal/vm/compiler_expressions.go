package vm

import (
	"strconv"

	"github.com/funvibe/loxvm/internal/token"
)

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence parses an expression whose operators all bind at least as
// tightly as precedence. Each loop iteration folds the expression parsed so
// far into the left operand of the next infix operator.
func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	prefix := c.getRule(c.parser.previous.Type).prefix
	if prefix == nil {
		c.error("Expected expression")
		return
	}
	prefix()

	for precedence <= c.getRule(c.parser.current.Type).precedence {
		c.advance()
		infix := c.getRule(c.parser.previous.Type).infix
		infix()
	}
}

func (c *Compiler) number() {
	value, err := strconv.ParseFloat(c.parser.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(NumberVal(value))
}

func (c *Compiler) stringLiteral() {
	lexeme := c.parser.previous.Lexeme
	// Strip the surrounding quotes
	s := c.heap.CopyString(lexeme[1 : len(lexeme)-1])
	c.emitConstant(ObjVal(s))
}

func (c *Compiler) literal() {
	switch c.parser.previous.Type {
	case token.TRUE:
		c.emitOp(OP_TRUE)
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NIL:
		c.emitOp(OP_NIL)
	}
}

// grouping assumes the opening parenthesis has been consumed.
// Parentheses shape the parse only; they emit no code.
func (c *Compiler) grouping() {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expected ')' after expression.")
}

func (c *Compiler) unary() {
	operator := c.parser.previous.Type

	// Compile the operand
	c.parsePrecedence(PREC_UNARY)

	switch operator {
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	case token.BANG:
		c.emitOp(OP_NOT)
	}
}

func (c *Compiler) binary() {
	operator := c.parser.previous.Type
	rule := c.getRule(operator)

	// One level higher than the operator itself makes it left-associative:
	// 1 - 2 - 3 parses as (1 - 2) - 3.
	c.parsePrecedence(rule.precedence + 1)

	switch operator {
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	case token.PERCENT:
		c.emitOp(OP_MODULO)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.BANG_EQUAL:
		c.emitOps(OP_EQUAL, OP_NOT)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOps(OP_LESS, OP_NOT)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOps(OP_GREATER, OP_NOT)
	}
}
