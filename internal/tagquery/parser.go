package tagquery

import (
	"regexp"
	"strings"
)

// Parse compiles a tag query into an Expr. It returns a *SyntaxError when
// the query violates the grammar, including the rule that a bare '*' value
// must be single-quoted to be treated as a regex.
func Parse(query string) (Expr, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "unexpected trailing input"}
	}
	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) peek2() token { return p.toks[min(p.pos+1, len(p.toks)-1)] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) keyword(tok token, kw string) bool {
	return tok.kind == tokIdent && strings.EqualFold(tok.text, kw)
}

// parseExpr folds connectors eagerly left-to-right. There is no and-over-or
// precedence climbing: the query language's canonical trees for mixed
// connector chains are pinned to this historical fold order, and the fold
// reorders each node's operands by shape (see fold).
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		isAnd := p.keyword(tok, "and")
		isOr := p.keyword(tok, "or")
		if !isAnd && !isOr {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = fold(isAnd, left, right)
	}
}

// fold builds the binary node for a connector. Operands are ordered by rank
// (positive leaf, negated leaf, composite), preserving source order on ties.
// This ordering, together with the eager left fold in parseExpr, reproduces
// the canonical trees the query language has always produced.
func fold(and bool, left, right Expr) Expr {
	if right.rank() < left.rank() {
		left, right = right, left
	}
	if and {
		return &andExpr{left: left, right: right}
	}
	return &orExpr{left: left, right: right}
}

func (p *parser) parseTerm() (Expr, error) {
	if p.keyword(p.peek(), "not") {
		p.next()
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &notExpr{expr: atom}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	tok := p.peek()
	switch {
	case tok.kind == tokLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Token: closing.text, Msg: "expected ')'"}
		}
		return expr, nil

	case tok.kind == tokIdent:
		if p.keyword(tok, "and") || p.keyword(tok, "or") || p.keyword(tok, "in") || p.keyword(tok, "not") {
			return nil, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "expected tag name"}
		}
		p.next()
		return p.parseComparison(tok.text)

	default:
		return nil, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "expected tag name or '('"}
	}
}

// parseComparison parses the optional operator and value(s) following a tag
// name. A bare tag name compiles to a presence test.
func (p *parser) parseComparison(name string) (Expr, error) {
	tok := p.peek()
	switch {
	case tok.kind == tokEq || tok.kind == tokNeq:
		p.next()
		m, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &compareExpr{name: name, negate: tok.kind == tokNeq, matchers: []valueMatcher{m}}, nil

	case p.keyword(tok, "in"):
		p.next()
		return p.parseValueList(name, false)

	case p.keyword(tok, "not") && p.keyword(p.peek2(), "in"):
		p.next()
		p.next()
		return p.parseValueList(name, true)

	default:
		return &tagExpr{name: name}, nil
	}
}

func (p *parser) parseValueList(name string, negate bool) (Expr, error) {
	if tok := p.next(); tok.kind != tokLBracket {
		return nil, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "expected '['"}
	}
	var matchers []valueMatcher
	for {
		m, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
		tok := p.next()
		if tok.kind == tokRBracket {
			break
		}
		if tok.kind != tokComma {
			return nil, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "expected ',' or ']'"}
		}
	}
	return &compareExpr{name: name, negate: negate, matchers: matchers}, nil
}

// parseValue parses a single comparison value. Single-quoted values compile
// to anchored regular expressions (a quoted '*' means match-any); barewords
// are literal equality. An unquoted '*' is rejected.
func (p *parser) parseValue() (valueMatcher, error) {
	tok := p.next()
	switch tok.kind {
	case tokQuoted:
		pattern := tok.text
		if pattern == "*" {
			pattern = ".*"
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return valueMatcher{}, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "invalid regex: " + err.Error()}
		}
		return valueMatcher{raw: pattern, re: re}, nil

	case tokIdent:
		if p.keyword(tok, "and") || p.keyword(tok, "or") || p.keyword(tok, "not") || p.keyword(tok, "in") {
			return valueMatcher{}, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "expected value"}
		}
		return valueMatcher{raw: tok.text}, nil

	case tokStar:
		return valueMatcher{}, &SyntaxError{Pos: tok.pos, Token: "*", Msg: "'*' must be single-quoted to be used as a regex value"}

	default:
		return valueMatcher{}, &SyntaxError{Pos: tok.pos, Token: tok.text, Msg: "expected value"}
	}
}
