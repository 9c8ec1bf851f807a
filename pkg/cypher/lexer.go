// Package cypher implements the Cypher query subset: a recursive-descent
// parser (C12), a logical/physical query planner (C13), and a pull-based
// executor (C14).
package cypher

import (
	"strconv"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokInt
	TokFloat
	TokString
	TokParam
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokColon
	TokComma
	TokDot
	TokSemicolon
	TokEq
	TokNeq
	TokLt
	TokLe
	TokGt
	TokGe
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokArrowRight
	TokArrowLeft
)

// Token is one lexical unit. Text carries the original-case source text for
// identifiers and strings; IntVal/FloatVal hold decoded numeric literals.
type Token struct {
	Kind     TokenKind
	Text     string
	IntVal   int64
	FloatVal float64
	Pos      int
}

var keywords = map[string]bool{
	"match": true, "where": true, "return": true, "create": true,
	"delete": true, "detach": true, "set": true, "merge": true,
	"distinct": true, "order": true, "by": true, "limit": true, "skip": true,
	"and": true, "or": true, "not": true, "true": true, "false": true,
	"null": true, "as": true, "optional": true,
}

// IsKeyword reports whether text (compared case-insensitively) is a Cypher
// keyword recognized by this subset.
func IsKeyword(text string) bool {
	return keywords[strings.ToLower(text)]
}

// lex tokenizes a Cypher statement, tracking quote state and rune position
// for Parser errors the way the storage-executor string scanner in the
// reference parser tracks bracket depth and quote state.
func lex(src string) ([]Token, error) {
	var tokens []Token
	r := []rune(src)
	i := 0
	n := len(r)

	for i < n {
		c := r[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, Token{Kind: TokLParen, Pos: i})
			i++
		case c == ')':
			tokens = append(tokens, Token{Kind: TokRParen, Pos: i})
			i++
		case c == '[':
			tokens = append(tokens, Token{Kind: TokLBracket, Pos: i})
			i++
		case c == ']':
			tokens = append(tokens, Token{Kind: TokRBracket, Pos: i})
			i++
		case c == '{':
			tokens = append(tokens, Token{Kind: TokLBrace, Pos: i})
			i++
		case c == '}':
			tokens = append(tokens, Token{Kind: TokRBrace, Pos: i})
			i++
		case c == ':':
			tokens = append(tokens, Token{Kind: TokColon, Pos: i})
			i++
		case c == ',':
			tokens = append(tokens, Token{Kind: TokComma, Pos: i})
			i++
		case c == ';':
			tokens = append(tokens, Token{Kind: TokSemicolon, Pos: i})
			i++
		case c == '.':
			tokens = append(tokens, Token{Kind: TokDot, Pos: i})
			i++
		case c == '+':
			tokens = append(tokens, Token{Kind: TokPlus, Pos: i})
			i++
		case c == '*':
			tokens = append(tokens, Token{Kind: TokStar, Pos: i})
			i++
		case c == '/':
			tokens = append(tokens, Token{Kind: TokSlash, Pos: i})
			i++
		case c == '=':
			tokens = append(tokens, Token{Kind: TokEq, Pos: i})
			i++
		case c == '<':
			if i+1 < n && r[i+1] == '>' {
				tokens = append(tokens, Token{Kind: TokNeq, Pos: i})
				i += 2
			} else if i+1 < n && r[i+1] == '=' {
				tokens = append(tokens, Token{Kind: TokLe, Pos: i})
				i += 2
			} else if i+1 < n && r[i+1] == '-' {
				tokens = append(tokens, Token{Kind: TokArrowLeft, Pos: i})
				i += 2
			} else {
				tokens = append(tokens, Token{Kind: TokLt, Pos: i})
				i++
			}
		case c == '>':
			if i+1 < n && r[i+1] == '=' {
				tokens = append(tokens, Token{Kind: TokGe, Pos: i})
				i += 2
			} else {
				tokens = append(tokens, Token{Kind: TokGt, Pos: i})
				i++
			}
		case c == '-':
			if i+1 < n && r[i+1] == '>' {
				tokens = append(tokens, Token{Kind: TokArrowRight, Pos: i})
				i += 2
			} else {
				tokens = append(tokens, Token{Kind: TokMinus, Pos: i})
				i++
			}
		case c == '$':
			start := i + 1
			j := start
			for j < n && isIdentRune(r[j]) {
				j++
			}
			if j == start {
				return nil, graph.NewError(graph.KindParser, "expected parameter name after '$'").WithPos(i)
			}
			tokens = append(tokens, Token{Kind: TokParam, Text: string(r[start:j]), Pos: i})
			i = j
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			var sb strings.Builder
			closed := false
			for j < n {
				if r[j] == '\\' && j+1 < n {
					sb.WriteRune(r[j+1])
					j += 2
					continue
				}
				if r[j] == quote {
					closed = true
					j++
					break
				}
				sb.WriteRune(r[j])
				j++
			}
			if !closed {
				return nil, graph.NewError(graph.KindParser, "unterminated string literal").WithPos(i)
			}
			tokens = append(tokens, Token{Kind: TokString, Text: sb.String(), Pos: i})
			i = j
		case c >= '0' && c <= '9':
			j := i
			isFloat := false
			for j < n && (r[j] >= '0' && r[j] <= '9') {
				j++
			}
			if j < n && r[j] == '.' && j+1 < n && r[j+1] >= '0' && r[j+1] <= '9' {
				isFloat = true
				j++
				for j < n && r[j] >= '0' && r[j] <= '9' {
					j++
				}
			}
			text := string(r[i:j])
			if isFloat {
				v, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, graph.NewError(graph.KindParser, "invalid float literal "+text).WithPos(i)
				}
				tokens = append(tokens, Token{Kind: TokFloat, FloatVal: v, Pos: i})
			} else {
				v, err := strconv.ParseInt(text, 10, 64)
				if err != nil {
					return nil, graph.NewError(graph.KindParser, "invalid integer literal "+text).WithPos(i)
				}
				tokens = append(tokens, Token{Kind: TokInt, IntVal: v, Pos: i})
			}
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentRune(r[j]) {
				j++
			}
			tokens = append(tokens, Token{Kind: TokIdent, Text: string(r[i:j]), Pos: i})
			i = j
		default:
			return nil, graph.NewError(graph.KindParser, "unexpected character '"+string(c)+"'").WithPos(i)
		}
	}
	tokens = append(tokens, Token{Kind: TokEOF, Pos: n})
	return tokens, nil
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentRune(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
