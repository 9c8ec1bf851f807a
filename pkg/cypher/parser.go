package cypher

import (
	"strings"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Parser turns a token stream into a Statement AST via recursive descent.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse lexes and parses a single Cypher statement.
func Parse(src string) (*Statement, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == TokSemicolon {
		p.pos++
	}
	if p.peek().Kind != TokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmt, nil
}

func (p *Parser) peek() Token { return p.tokens[p.pos] }

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(msg string) error {
	return graph.NewError(graph.KindParser, msg).WithPos(p.peek().Pos)
}

func (p *Parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.Kind == TokIdent && strings.EqualFold(t.Text, kw)
}

func (p *Parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errorf("expected keyword " + kw)
	}
	return nil
}

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if p.peek().Kind != k {
		return Token{}, p.errorf("expected " + what)
	}
	return p.advance(), nil
}

func (p *Parser) parseStatement() (*Statement, error) {
	var matchPatterns []Pattern
	var matchWhere Expr

	if p.isKeyword("match") || p.isKeyword("optional") {
		// A leading OPTIONAL is accepted but treated as a plain MATCH —
		// outer joins are not in scope for this subset.
		p.acceptKeyword("optional")
		if err := p.expectKeyword("match"); err != nil {
			return nil, err
		}
		patterns, err := p.parsePatternList()
		if err != nil {
			return nil, err
		}
		matchPatterns = patterns
		if p.acceptKeyword("where") {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			matchWhere = expr
		}
	}

	switch {
	case p.isKeyword("return"):
		ret, err := p.parseReturnClause()
		if err != nil {
			return nil, err
		}
		if matchPatterns == nil {
			return nil, p.errorf("RETURN requires a preceding MATCH")
		}
		return &Statement{Read: &ReadQuery{Patterns: matchPatterns, Where: matchWhere, Return: ret}}, nil
	case p.isKeyword("create"):
		wq, err := p.parseCreate()
		if err != nil {
			return nil, err
		}
		wq.MatchPatterns, wq.MatchWhere = matchPatterns, matchWhere
		return &Statement{Write: wq}, nil
	case p.isKeyword("delete") || p.isKeyword("detach"):
		wq, err := p.parseDelete()
		if err != nil {
			return nil, err
		}
		wq.MatchPatterns, wq.MatchWhere = matchPatterns, matchWhere
		return &Statement{Write: wq}, nil
	case p.isKeyword("set"):
		wq, err := p.parseSet()
		if err != nil {
			return nil, err
		}
		wq.MatchPatterns, wq.MatchWhere = matchPatterns, matchWhere
		return &Statement{Write: wq}, nil
	case p.isKeyword("merge"):
		wq, err := p.parseMerge()
		if err != nil {
			return nil, err
		}
		wq.MatchPatterns, wq.MatchWhere = matchPatterns, matchWhere
		return &Statement{Write: wq}, nil
	default:
		return nil, p.errorf("expected RETURN, CREATE, DELETE, SET or MERGE")
	}
}

func (p *Parser) parseCreate() (*WriteQuery, error) {
	if err := p.expectKeyword("create"); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	return &WriteQuery{Kind: WriteCreate, Patterns: patterns}, nil
}

func (p *Parser) parseMerge() (*WriteQuery, error) {
	if err := p.expectKeyword("merge"); err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	return &WriteQuery{Kind: WriteMerge, Patterns: []Pattern{pattern}}, nil
}

func (p *Parser) parseDelete() (*WriteQuery, error) {
	detach := p.acceptKeyword("detach")
	if err := p.expectKeyword("delete"); err != nil {
		return nil, err
	}
	var vars []string
	for {
		tok, err := p.expect(TokIdent, "variable name")
		if err != nil {
			return nil, err
		}
		if IsKeyword(tok.Text) {
			return nil, p.errorf("expected variable name, got keyword " + tok.Text)
		}
		vars = append(vars, tok.Text)
		if p.peek().Kind != TokComma {
			break
		}
		p.advance()
	}
	return &WriteQuery{Kind: WriteDelete, Detach: detach, DeleteVars: vars}, nil
}

func (p *Parser) parseSet() (*WriteQuery, error) {
	if err := p.expectKeyword("set"); err != nil {
		return nil, err
	}
	var items []SetItem
	for {
		varTok, err := p.expect(TokIdent, "variable name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokDot, "'.'"); err != nil {
			return nil, err
		}
		propTok, err := p.expect(TokIdent, "property name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokEq, "'='"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, SetItem{Variable: varTok.Text, Property: propTok.Text, Value: value})
		if p.peek().Kind != TokComma {
			break
		}
		p.advance()
	}
	return &WriteQuery{Kind: WriteSet, SetItems: items}, nil
}

func (p *Parser) parsePatternList() ([]Pattern, error) {
	var patterns []Pattern
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		if p.peek().Kind != TokComma {
			break
		}
		p.advance()
	}
	return patterns, nil
}

func (p *Parser) parsePattern() (Pattern, error) {
	var pat Pattern
	node, err := p.parseNodePattern()
	if err != nil {
		return pat, err
	}
	pat.Nodes = append(pat.Nodes, node)

	for p.peek().Kind == TokMinus || p.peek().Kind == TokArrowLeft {
		edge, err := p.parseEdgePattern()
		if err != nil {
			return pat, err
		}
		pat.Edges = append(pat.Edges, edge)

		node, err := p.parseNodePattern()
		if err != nil {
			return pat, err
		}
		pat.Nodes = append(pat.Nodes, node)
	}
	return pat, nil
}

func (p *Parser) parseNodePattern() (NodePattern, error) {
	var np NodePattern
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return np, err
	}
	if p.peek().Kind == TokIdent && !IsKeyword(p.peek().Text) {
		np.Variable = p.advance().Text
	}
	for p.peek().Kind == TokColon {
		p.advance()
		tok, err := p.expect(TokIdent, "label")
		if err != nil {
			return np, err
		}
		np.Labels = append(np.Labels, tok.Text)
	}
	if p.peek().Kind == TokLBrace {
		props, err := p.parseProperties()
		if err != nil {
			return np, err
		}
		np.Properties = props
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return np, err
	}
	return np, nil
}

func (p *Parser) parseEdgePattern() (EdgePattern, error) {
	var ep EdgePattern
	var leadingLeft bool
	switch p.peek().Kind {
	case TokArrowLeft:
		leadingLeft = true
		p.advance()
	case TokMinus:
		p.advance()
	default:
		return ep, p.errorf("expected '-' or '<-'")
	}

	if _, err := p.expect(TokLBracket, "'['"); err != nil {
		return ep, err
	}
	if p.peek().Kind == TokIdent && !IsKeyword(p.peek().Text) {
		ep.Variable = p.advance().Text
	}
	if p.peek().Kind == TokColon {
		p.advance()
		tok, err := p.expect(TokIdent, "relationship type")
		if err != nil {
			return ep, err
		}
		ep.Type = tok.Text
	}
	if p.peek().Kind == TokLBrace {
		props, err := p.parseProperties()
		if err != nil {
			return ep, err
		}
		ep.Properties = props
	}
	if _, err := p.expect(TokRBracket, "']'"); err != nil {
		return ep, err
	}

	switch p.peek().Kind {
	case TokArrowRight:
		p.advance()
		if leadingLeft {
			return ep, p.errorf("relationship cannot point both directions")
		}
		ep.Direction = DirRight
	case TokMinus:
		p.advance()
		if leadingLeft {
			ep.Direction = DirLeft
		} else {
			ep.Direction = DirEither
		}
	default:
		return ep, p.errorf("expected '->' or '-'")
	}
	return ep, nil
}

func (p *Parser) parseProperties() (map[string]Expr, error) {
	props := make(map[string]Expr)
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	if p.peek().Kind == TokRBrace {
		p.advance()
		return props, nil
	}
	for {
		tok, err := p.expect(TokIdent, "property key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		props[tok.Text] = value
		if p.peek().Kind != TokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *Parser) parseReturnClause() (ReturnClause, error) {
	var rc ReturnClause
	if err := p.expectKeyword("return"); err != nil {
		return rc, err
	}
	rc.Distinct = p.acceptKeyword("distinct")

	for {
		expr, err := p.parseExpr()
		if err != nil {
			return rc, err
		}
		item := ReturnItem{Expr: expr}
		if p.acceptKeyword("as") {
			tok, err := p.expect(TokIdent, "alias")
			if err != nil {
				return rc, err
			}
			item.Alias = tok.Text
		}
		rc.Items = append(rc.Items, item)
		if p.peek().Kind != TokComma {
			break
		}
		p.advance()
	}

	if p.acceptKeyword("order") {
		if err := p.expectKeyword("by"); err != nil {
			return rc, err
		}
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return rc, err
			}
			oi := OrderItem{Expr: expr}
			if p.acceptKeyword("desc") {
				oi.Descending = true
			} else {
				p.acceptKeyword("asc")
			}
			rc.OrderBy = append(rc.OrderBy, oi)
			if p.peek().Kind != TokComma {
				break
			}
			p.advance()
		}
	}

	if p.acceptKeyword("skip") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return rc, err
		}
		rc.Skip = &n
	}

	if p.acceptKeyword("limit") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return rc, err
		}
		rc.Limit = &n
	}
	return rc, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	tok, err := p.expect(TokInt, "integer")
	if err != nil {
		return 0, err
	}
	return tok.IntVal, nil
}

// parseExpr is the OrExpr entry point — OR binds loosest.
func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.isKeyword("not") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenKind]string{
	TokEq: "=", TokNeq: "<>", TokLt: "<", TokLe: "<=", TokGt: ">", TokGe: ">=",
}

// parseComparison implements non-associative comparison: at most one
// comparison operator per expression, per the precedence table.
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.peek().Kind]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokPlus || p.peek().Kind == TokMinus {
		op := "+"
		if p.peek().Kind == TokMinus {
			op = "-"
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokStar || p.peek().Kind == TokSlash {
		op := "*"
		if p.peek().Kind == TokSlash {
			op = "/"
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.peek().Kind == TokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokInt:
		p.advance()
		return &Literal{Value: graph.Int(tok.IntVal)}, nil
	case TokFloat:
		p.advance()
		return &Literal{Value: graph.Float(tok.FloatVal)}, nil
	case TokString:
		p.advance()
		return &Literal{Value: graph.String(tok.Text)}, nil
	case TokParam:
		p.advance()
		return &Parameter{Name: tok.Text}, nil
	case TokLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case TokIdent:
		switch strings.ToLower(tok.Text) {
		case "true":
			p.advance()
			return &Literal{Value: graph.Bool(true)}, nil
		case "false":
			p.advance()
			return &Literal{Value: graph.Bool(false)}, nil
		case "null":
			p.advance()
			return &Literal{Value: graph.Null()}, nil
		}
		p.advance()
		name := tok.Text

		if p.peek().Kind == TokLParen {
			p.advance()
			var args []Expr
			if p.peek().Kind != TokRParen {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.peek().Kind != TokComma {
						break
					}
					p.advance()
				}
			}
			if _, err := p.expect(TokRParen, "')'"); err != nil {
				return nil, err
			}
			return &FunctionCallExpr{Name: name, Args: args}, nil
		}

		if p.peek().Kind == TokDot {
			p.advance()
			keyTok, err := p.expect(TokIdent, "property name")
			if err != nil {
				return nil, err
			}
			return &Property{Variable: name, Key: keyTok.Text}, nil
		}
		return &Variable{Name: name}, nil
	default:
		return nil, p.errorf("expected an expression")
	}
}
