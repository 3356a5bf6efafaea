package parser

import (
	"strconv"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/lexer"
)

func (p *Parser) parseExpression() (ast.Node, error) {
	return p.parseAssignment()
}

// parseAssignment is the lowest-precedence level: "=" is right-associative
// and, grammatically, an expression in its own right. Whether a given "="
// is actually acceptable at this position in the program is a semantic
// question the transpiler answers, not this parser.
func (p *Parser) parseAssignment() (ast.Node, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.ASSIGN) {
		p.advance()
		right, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: "=", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (ast.Node, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.OR_OR) {
		p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.AND_AND) {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

var equalityOps = map[lexer.TokenType]string{
	lexer.EQ:         "==",
	lexer.STRICT_EQ:  "===",
	lexer.NEQ:        "!=",
	lexer.STRICT_NEQ: "!==",
}

func (p *Parser) parseEquality() (ast.Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := equalityOps[p.peek().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

var relationalOps = map[lexer.TokenType]string{
	lexer.LT:  "<",
	lexer.LTE: "<=",
	lexer.GT:  ">",
	lexer.GTE: ">=",
}

func (p *Parser) parseRelational() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := relationalOps[p.peek().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.PLUS) || p.check(lexer.MINUS) {
		op := "+"
		if p.peek().Type == lexer.MINUS {
			op = "-"
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

var multiplicativeOps = map[lexer.TokenType]string{
	lexer.STAR:    "*",
	lexer.SLASH:   "/",
	lexer.PERCENT: "%",
}

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := multiplicativeOps[p.peek().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Node, error) {
	switch p.peek().Type {
	case lexer.BANG:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.PrefixUnary{Op: "!", Operand: operand}, nil
	case lexer.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.PrefixUnary{Op: "-", Operand: operand}, nil
	case lexer.PLUS_PLUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.PrefixUnary{Op: "++", Operand: operand}, nil
	case lexer.MINUS_MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.PrefixUnary{Op: "--", Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case lexer.DOT:
			p.advance()
			prop, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpr{Object: expr, Property: prop.Lexeme}
		case lexer.LBRACKET:
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Object: expr, Index: idx}
		case lexer.LPAREN:
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{Callee: expr, Args: args}
		case lexer.PLUS_PLUS:
			p.advance()
			expr = &ast.PostfixUnary{Op: "++", Operand: expr}
		case lexer.MINUS_MINUS:
			p.advance()
			expr = &ast.PostfixUnary{Op: "--", Operand: expr}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.Node, error) {
	p.advance() // "("
	var args []ast.Node
	for !p.check(lexer.RPAREN) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.fmtError(tok, "invalid numeric literal %q", tok.Lexeme)
		}
		return &ast.NumberLit{Value: n}, nil
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{Value: tok.Lexeme, Quote: '"'}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false}, nil
	case lexer.NULL:
		p.advance()
		return &ast.NullLit{}, nil
	case lexer.IDENT:
		p.advance()
		return &ast.Ident{Name: tok.Lexeme}, nil
	case lexer.LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.LBRACKET:
		return p.parseArrayLit()
	case lexer.LBRACE:
		return p.parseObjectLit()
	default:
		return nil, p.fmtError(tok, "unexpected token %s (%q)", tok.Type, tok.Lexeme)
	}
}

func (p *Parser) parseArrayLit() (ast.Node, error) {
	p.advance() // "["
	lit := &ast.ArrayLit{}
	for !p.check(lexer.RBRACKET) {
		el, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, el)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseObjectLit() (ast.Node, error) {
	p.advance() // "{"
	lit := &ast.ObjectLit{}
	for !p.check(lexer.RBRACE) {
		key, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		lit.Fields = append(lit.Fields, ast.ObjectField{Key: key.Lexeme, Value: val})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return lit, nil
}
