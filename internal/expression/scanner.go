package expression

// Anchor is the identifier every recognized expression starts with
const Anchor = "db"

// Notation identifies how an accessor unit was written
type Notation int

const (
	// Dot is member access written as .name
	Dot Notation = iota
	// Bracket is member access written as ['name'] or ["name"]
	Bracket
)

func (n Notation) String() string {
	if n == Bracket {
		return "bracket"
	}
	return "dot"
}

// Accessor is a single member-access step following the db anchor
type Accessor struct {
	Notation Notation
	Name     string
	Position int // byte offset of the '.' or '['
}

// Scanner walks the accessor chain of an expression one unit at a time.
// The chain ends at the first token that does not continue it: a call,
// whitespace, an operator or the end of input. Nothing after that point is read.
type Scanner struct {
	lex     *Lexer
	peeked  *Token
	started bool
	done    bool
}

// NewScanner creates a scanner over expr
func NewScanner(expr string) *Scanner {
	return &Scanner{lex: NewLexer(expr)}
}

// Next returns the next accessor unit. It returns false once the chain has
// ended, and keeps returning false afterwards. If expr does not start with
// the db anchor the first call returns false.
func (s *Scanner) Next() (Accessor, bool) {
	if s.done {
		return Accessor{}, false
	}

	if !s.started {
		s.started = true
		tok := s.next()
		if tok.Type != TokenIdent || tok.Value != Anchor {
			return s.stop()
		}
	}

	tok := s.next()
	switch tok.Type {
	case TokenDot:
		name := s.next()
		if name.Type != TokenIdent {
			return s.stop()
		}
		return Accessor{Notation: Dot, Name: name.Value, Position: tok.Position}, true

	case TokenLeftBracket:
		s.skipSpace()
		name := s.next()
		if name.Type != TokenString || name.Value == "" {
			return s.stop()
		}
		s.skipSpace()
		if s.next().Type != TokenRightBracket {
			return s.stop()
		}
		return Accessor{Notation: Bracket, Name: name.Value, Position: tok.Position}, true

	default:
		return s.stop()
	}
}

// Accessors returns up to n accessor units of expr. A non-positive n returns
// the whole chain.
func Accessors(expr string, n int) []Accessor {
	var chain []Accessor
	s := NewScanner(expr)
	for n <= 0 || len(chain) < n {
		acc, ok := s.Next()
		if !ok {
			break
		}
		chain = append(chain, acc)
	}
	return chain
}

func (s *Scanner) stop() (Accessor, bool) {
	s.done = true
	return Accessor{}, false
}

func (s *Scanner) next() Token {
	if s.peeked != nil {
		tok := *s.peeked
		s.peeked = nil
		return tok
	}
	return s.lex.NextToken()
}

func (s *Scanner) skipSpace() {
	tok := s.next()
	if tok.Type != TokenSpace {
		s.peeked = &tok
	}
}
