// Package lexer turns source text into a stream of line-numbered tokens.
//
// The lexer is pull-based: each ScanToken call yields the next token and
// nothing is buffered. Once the input is exhausted every further call
// returns an EOF token.
package lexer

import (
	"github.com/funvibe/loxvm/internal/token"
)

type Lexer struct {
	input    string
	start    int // start of the lexeme being scanned
	position int // next unread byte
	line     int // current line number
}

func New(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// ScanToken returns the next token in the input.
func (l *Lexer) ScanToken() token.Token {
	l.skipWhitespace()
	l.start = l.position

	if l.isAtEnd() {
		return l.makeToken(token.EOF)
	}

	ch := l.readChar()
	switch {
	case isAlpha(ch):
		return l.readIdentifier()
	case isDigit(ch):
		return l.readNumber()
	}

	switch ch {
	case '(':
		return l.makeToken(token.LEFT_PAREN)
	case ')':
		return l.makeToken(token.RIGHT_PAREN)
	case '{':
		return l.makeToken(token.LEFT_BRACE)
	case '}':
		return l.makeToken(token.RIGHT_BRACE)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case ',':
		return l.makeToken(token.COMMA)
	case '.':
		return l.makeToken(token.DOT)
	case '-':
		return l.makeToken(token.MINUS)
	case '+':
		return l.makeToken(token.PLUS)
	case '/':
		return l.makeToken(token.SLASH)
	case '*':
		return l.makeToken(token.STAR)
	case '%':
		return l.makeToken(token.PERCENT)
	case '!':
		return l.makeToken(l.either('=', token.BANG_EQUAL, token.BANG))
	case '=':
		return l.makeToken(l.either('=', token.EQUAL_EQUAL, token.EQUAL))
	case '<':
		return l.makeToken(l.either('=', token.LESS_EQUAL, token.LESS))
	case '>':
		return l.makeToken(l.either('=', token.GREATER_EQUAL, token.GREATER))
	case '"':
		return l.readString()
	}

	return l.errorToken("Unexpected character.")
}

func (l *Lexer) isAtEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) readChar() byte {
	ch := l.input[l.position]
	l.position++
	return ch
}

func (l *Lexer) peekChar() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.position]
}

func (l *Lexer) peekNext() byte {
	if l.position+1 >= len(l.input) {
		return 0
	}
	return l.input[l.position+1]
}

// either consumes expected if it is next and returns matched, otherwise single.
func (l *Lexer) either(expected byte, matched, single token.Type) token.Type {
	if l.isAtEnd() || l.input[l.position] != expected {
		return single
	}
	l.position++
	return matched
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peekChar() {
		case ' ', '\r', '\t':
			l.position++
		case '\n':
			l.line++
			l.position++
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for l.peekChar() != '\n' && !l.isAtEnd() {
				l.position++
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() token.Token {
	for isAlpha(l.peekChar()) || isDigit(l.peekChar()) {
		l.position++
	}
	return l.makeToken(token.LookupIdent(l.input[l.start:l.position]))
}

func (l *Lexer) readNumber() token.Token {
	for isDigit(l.peekChar()) {
		l.position++
	}

	// Fractional part needs at least one digit after the dot
	if l.peekChar() == '.' && isDigit(l.peekNext()) {
		l.position++
		for isDigit(l.peekChar()) {
			l.position++
		}
	}

	return l.makeToken(token.NUMBER)
}

func (l *Lexer) readString() token.Token {
	startLine := l.line
	for l.peekChar() != '"' && !l.isAtEnd() {
		if l.peekChar() == '\n' {
			l.line++
		}
		l.position++
	}

	if l.isAtEnd() {
		return l.errorToken("Unterminated string.")
	}

	l.position++ // closing quote
	return token.Token{Type: token.STRING, Lexeme: l.input[l.start:l.position], Line: startLine}
}

func (l *Lexer) makeToken(t token.Type) token.Token {
	return token.Token{Type: t, Lexeme: l.input[l.start:l.position], Line: l.line}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{Type: token.ERROR, Lexeme: message, Line: l.line}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isAlpha(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}
