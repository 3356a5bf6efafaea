package parser

import (
	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/lexer"
)

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.peek().Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.LET, lexer.CONST:
		return p.parseVarDeclStmt()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.DO:
		return p.parseDoWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.SEMICOLON:
		p.advance()
		return &ast.Block{}, nil
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	block := &ast.Block{}
	for !p.check(lexer.RBRACE) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseVarDecl parses one "let"/"const" binding without the trailing
// semicolon, used both for an ordinary statement and for a for-loop's
// init clause.
func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	p.advance() // "let" or "const"
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	declared := ast.Unknown
	if p.match(lexer.COLON) {
		declared, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	var init ast.Node
	if p.match(lexer.ASSIGN) {
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return &ast.VarDecl{Name: name.Lexeme, Declared: declared, Init: init}, nil
}

func (p *Parser) parseVarDeclStmt() (ast.Node, error) {
	vd, err := p.parseVarDecl()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return vd, nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	p.advance() // "if"
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Node
	if p.match(lexer.ELSE) {
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{Cond: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	p.advance() // "while"
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (ast.Node, error) {
	p.advance() // "do"
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.DoWhile{Cond: cond, Body: body}, nil
}

// parseFor disambiguates a "for (let x of ...)"/"for (let x in ...)" loop
// from a classic three-clause loop by looking past the bound name for
// "of"/"in" before committing to either path.
func (p *Parser) parseFor() (ast.Node, error) {
	p.advance() // "for"
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	if p.check(lexer.LET) && p.peekAt(1).Type == lexer.IDENT {
		switch p.peekAt(2).Type {
		case lexer.OF:
			return p.parseForOf()
		case lexer.IN:
			return p.parseForIn()
		}
	}

	var inits []*ast.VarDecl
	if p.check(lexer.LET) || p.check(lexer.CONST) {
		vd, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		inits = append(inits, vd)
		for p.match(lexer.COMMA) {
			name, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			var init ast.Node
			if p.match(lexer.ASSIGN) {
				init, err = p.parseExpression()
				if err != nil {
					return nil, err
				}
			}
			inits = append(inits, &ast.VarDecl{Name: name.Lexeme, Init: init})
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}

	var cond ast.Node
	if !p.check(lexer.SEMICOLON) {
		var err error
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}

	var post ast.Node
	if !p.check(lexer.RPAREN) {
		var err error
		post, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.For{Inits: inits, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) parseForOf() (ast.Node, error) {
	p.advance() // "let"
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	p.advance() // "of"
	iterand, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForOf{VarName: name.Lexeme, Iterand: iterand, Body: body}, nil
}

func (p *Parser) parseForIn() (ast.Node, error) {
	p.advance() // "let"
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	p.advance() // "in"
	iterand, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForIn{VarName: name.Lexeme, Iterand: iterand, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	p.advance() // "return"
	if p.check(lexer.SEMICOLON) {
		p.advance()
		return &ast.Return{}, nil
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.Return{Value: val}, nil
}

func (p *Parser) parseExprStmt() (ast.Node, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: expr}, nil
}
