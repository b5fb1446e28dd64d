package expression

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies the kind of a lexical token
type TokenType int

const (
	// TokenEOF marks the end of input
	TokenEOF TokenType = iota
	// TokenIllegal is invalid UTF-8 or an unterminated string
	TokenIllegal
	// TokenIdent is a bare identifier: db, Cars, find, $cmd
	TokenIdent
	// TokenString is a single or double quoted string; Value holds the unquoted content
	TokenString
	// TokenDot is '.'
	TokenDot
	// TokenLeftBracket is '['
	TokenLeftBracket
	// TokenRightBracket is ']'
	TokenRightBracket
	// TokenLeftParen is '('
	TokenLeftParen
	// TokenSpace is a run of whitespace
	TokenSpace
	// TokenOther is any other single rune
	TokenOther
)

func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenIdent:
		return "IDENT"
	case TokenString:
		return "STRING"
	case TokenDot:
		return "DOT"
	case TokenLeftBracket:
		return "LEFT_BRACKET"
	case TokenRightBracket:
		return "RIGHT_BRACKET"
	case TokenLeftParen:
		return "LEFT_PAREN"
	case TokenSpace:
		return "SPACE"
	case TokenOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// Token is a lexical token with its byte offset in the input
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s(%s)", t.Type, t.Value)
}

// Lexer splits a shell expression into tokens on demand. Whitespace is reported
// as a token rather than skipped because it ends an accessor chain.
type Lexer struct {
	input   string
	pos     int  // byte offset of ch
	readPos int  // byte offset after ch
	ch      rune // 0 at end of input
}

// NewLexer creates a lexer positioned at the start of input
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken returns the next token. Once EOF is reached every call returns EOF.
func (l *Lexer) NextToken() Token {
	pos := l.pos

	switch {
	case l.pos >= len(l.input):
		return Token{Type: TokenEOF, Position: pos}
	case l.ch == utf8.RuneError:
		l.readChar()
		return Token{Type: TokenIllegal, Value: l.input[pos:l.pos], Position: pos}
	case isIdentStart(l.ch):
		return Token{Type: TokenIdent, Value: l.readIdent(), Position: pos}
	case isSpace(l.ch):
		return Token{Type: TokenSpace, Value: l.readSpace(), Position: pos}
	case l.ch == '\'' || l.ch == '"':
		value, ok := l.readQuoted()
		if !ok {
			return Token{Type: TokenIllegal, Value: l.input[pos:], Position: pos}
		}
		return Token{Type: TokenString, Value: value, Position: pos}
	}

	tok := Token{Type: TokenOther, Value: l.input[pos:l.readPos], Position: pos}
	switch l.ch {
	case '.':
		tok.Type = TokenDot
	case '[':
		tok.Type = TokenLeftBracket
	case ']':
		tok.Type = TokenRightBracket
	case '(':
		tok.Type = TokenLeftParen
	}
	l.readChar()
	return tok
}

func (l *Lexer) readChar() {
	l.pos = l.readPos
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	r, width := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.readPos += width
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readSpace() string {
	start := l.pos
	for l.pos < len(l.input) && isSpace(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readQuoted consumes a quoted string including both quotes. Escapes are not
// interpreted, so the first matching quote closes the string.
func (l *Lexer) readQuoted() (string, bool) {
	quote := l.ch
	start := l.pos + 1
	for {
		l.readChar()
		if l.pos >= len(l.input) {
			return "", false
		}
		if l.ch == quote {
			value := l.input[start:l.pos]
			l.readChar()
			return value, true
		}
	}
}

// Identifiers follow the shell's rules: letters of any script, '_' and '$',
// plus digits after the first rune.
func isIdentStart(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isSpace(ch rune) bool {
	return unicode.IsSpace(ch)
}
