// Package tagquery compiles and evaluates the boolean tag-query language
// used by alert criteria. A query matches against a single alert's tag map:
// a bare tag name tests presence, comparisons test the tag value against
// literals or single-quoted regular expressions, and and/or/not combine
// sub-expressions.
package tagquery

import (
	"regexp"
	"strings"
)

// Expr is a compiled tag-query expression. Compiled expressions are
// immutable and safe for concurrent evaluation against any number of tag
// maps.
type Expr interface {
	// Matches reports whether the expression holds for the given tag map.
	Matches(tags map[string]string) bool

	// String renders the canonical parenthesized form of the expression.
	String() string

	// rank orders operands when folding binary connectors: positive leaves
	// before negated leaves before composites.
	rank() int
}

// valueMatcher matches a single tag value, either by literal equality or by
// an anchored regular expression (from a single-quoted query value).
type valueMatcher struct {
	raw string
	re  *regexp.Regexp // nil for literal matchers
}

func (m valueMatcher) match(v string) bool {
	if m.re != nil {
		return m.re.MatchString(v)
	}
	return v == m.raw
}

func (m valueMatcher) String() string {
	if m.re != nil {
		return "/" + m.raw + "/"
	}
	return "'" + m.raw + "'"
}

type tagExpr struct {
	name string
}

func (e *tagExpr) Matches(tags map[string]string) bool {
	_, ok := tags[e.name]
	return ok
}

func (e *tagExpr) String() string { return "('" + e.name + "')" }
func (e *tagExpr) rank() int      { return 0 }

type compareExpr struct {
	name     string
	negate   bool
	matchers []valueMatcher
}

func (e *compareExpr) Matches(tags map[string]string) bool {
	v, ok := tags[e.name]
	if !ok {
		return false
	}
	matched := false
	for _, m := range e.matchers {
		if m.match(v) {
			matched = true
			break
		}
	}
	if e.negate {
		return !matched
	}
	return matched
}

func (e *compareExpr) String() string {
	var sb strings.Builder
	sb.WriteString("('")
	sb.WriteString(e.name)
	sb.WriteString("' and (")
	for i, m := range e.matchers {
		if i > 0 {
			if e.negate {
				sb.WriteString(" and ")
			} else {
				sb.WriteString(" or ")
			}
		}
		if e.negate {
			sb.WriteString("not ")
		}
		sb.WriteString(m.String())
	}
	sb.WriteString("))")
	return sb.String()
}

func (e *compareExpr) rank() int { return 0 }

type notExpr struct {
	expr Expr
}

func (e *notExpr) Matches(tags map[string]string) bool {
	return !e.expr.Matches(tags)
}

func (e *notExpr) String() string {
	if t, ok := e.expr.(*tagExpr); ok {
		return "(not '" + t.name + "')"
	}
	return "(not " + e.expr.String() + ")"
}

func (e *notExpr) rank() int {
	if e.expr.rank() == 0 {
		return 1
	}
	return 2
}

type andExpr struct {
	left, right Expr
}

func (e *andExpr) Matches(tags map[string]string) bool {
	return e.left.Matches(tags) && e.right.Matches(tags)
}

func (e *andExpr) String() string {
	return "(" + e.left.String() + " and " + e.right.String() + ")"
}

func (e *andExpr) rank() int { return 2 }

type orExpr struct {
	left, right Expr
}

func (e *orExpr) Matches(tags map[string]string) bool {
	return e.left.Matches(tags) || e.right.Matches(tags)
}

func (e *orExpr) String() string {
	return "(" + e.left.String() + " or " + e.right.String() + ")"
}

func (e *orExpr) rank() int { return 2 }
