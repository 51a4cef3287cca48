package tagquery

import "fmt"

// SyntaxError reports a malformed tag query. Pos is the byte offset of the
// offending token in the query string.
type SyntaxError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("tag query syntax error at offset %d near %q: %s", e.Pos, e.Token, e.Msg)
	}
	return fmt.Sprintf("tag query syntax error at offset %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokQuoted
	tokEq
	tokNeq
	tokStar
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string // ident text or quoted content (without quotes)
	pos  int
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '-'
}

// lex splits a tag query into tokens. Tag names and barewords match
// [a-zA-Z_0-9][-a-zA-Z_0-9]*; single-quoted runs are returned unescaped as
// tokQuoted.
func lex(query string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, text: "[", pos: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, text: "]", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '=':
			toks = append(toks, token{kind: tokEq, text: "=", pos: i})
			i++
		case c == '!':
			if i+1 >= len(query) || query[i+1] != '=' {
				return nil, &SyntaxError{Pos: i, Token: "!", Msg: "expected '=' after '!'"}
			}
			toks = append(toks, token{kind: tokNeq, text: "!=", pos: i})
			i += 2
		case c == '*':
			toks = append(toks, token{kind: tokStar, text: "*", pos: i})
			i++
		case c == '\'':
			start := i
			i++
			for i < len(query) && query[i] != '\'' {
				i++
			}
			if i >= len(query) {
				return nil, &SyntaxError{Pos: start, Msg: "unterminated quoted value"}
			}
			toks = append(toks, token{kind: tokQuoted, text: query[start+1 : i], pos: start})
			i++
		case isIdentStart(c):
			start := i
			for i < len(query) && isIdentPart(query[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: query[start:i], pos: start})
		default:
			return nil, &SyntaxError{Pos: i, Token: string(c), Msg: "unknown token"}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(query)})
	return toks, nil
}
