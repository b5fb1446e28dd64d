package sse

import (
	"strings"

	"github.com/piske-alex/mongoexpr/internal/history"
)

// Wildcard matches any collection or method
const Wildcard = "*"

// Filter selects history entries by collection and method
type Filter struct {
	Expression string
	Collection string
	Method     string
}

// NewFilter parses "<collection>.<method>". Either side may be "*"; a bare
// collection means every method on it. The method is split at the last dot
// because collection names may themselves contain dots.
func NewFilter(expr string) *Filter {
	expr = strings.TrimSpace(expr)
	f := &Filter{Expression: expr, Collection: Wildcard, Method: Wildcard}

	if expr == "" || expr == Wildcard {
		return f
	}

	if i := strings.LastIndex(expr, "."); i >= 0 {
		f.Collection = orWildcard(expr[:i])
		f.Method = orWildcard(expr[i+1:])
	} else {
		f.Collection = expr
	}
	return f
}

// IsMatch reports whether entry passes the filter. Unrecognized entries only
// match a filter with wildcards on both sides.
func (f *Filter) IsMatch(entry history.Entry) bool {
	if !entry.Recognized {
		return f.Collection == Wildcard && f.Method == Wildcard
	}
	if f.Collection != Wildcard && f.Collection != entry.Collection {
		return false
	}
	if f.Method != Wildcard && f.Method != entry.Method {
		return false
	}
	return true
}

func orWildcard(s string) string {
	if s == "" {
		return Wildcard
	}
	return s
}
