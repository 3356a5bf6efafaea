// Package parser builds an *ast.Program from the token stream lexer
// produces. It is a straightforward recursive-descent/precedence-climbing
// parser over the source language's statement and expression grammar.
//
// Grammar (informal):
//
//	program    = (funcDecl | statement)* EOF
//	funcDecl   = "function" IDENT "(" params ")" (":" type)? block
//	params     = (param ("," param)*)?
//	param      = IDENT (":" type)?
//	type       = ("number" | "string" | "boolean" | objectType) ("[" INTEGER? "]")?
//	objectType = "{" (IDENT ":" type ("," IDENT ":" type)*)? "}"
//	statement  = varDecl | block | ifStmt | whileStmt | doWhileStmt | forStmt
//	           | returnStmt | exprStmt
//	varDecl    = ("let" | "const") IDENT (":" type)? ("=" expression)? ";"
//	forStmt    = "for" "(" forHeader ")" statement
//	forHeader  = "let" IDENT "of" expression
//	           | "let" IDENT "in" expression
//	           | varDeclList? ";" expression? ";" expression?
//	expression = assignment
//	assignment = logicalOr ("=" assignment)?
//	logicalOr  = logicalAnd ("||" logicalAnd)*
//	logicalAnd = equality ("&&" equality)*
//	equality   = relational (("=="|"==="|"!="|"!==") relational)*
//	relational = additive (("<"|"<="|">"|">=") additive)*
//	additive   = multiplicative (("+"|"-") multiplicative)*
//	multiplicative = unary (("*"|"/"|"%") unary)*
//	unary      = ("!"|"-"|"++"|"--") unary | postfix
//	postfix    = primary ("." IDENT | "[" expression "]" | "(" args ")" | "++" | "--")*
//	primary    = NUMBER | STRING | TRUE | FALSE | NULL | IDENT
//	           | "(" expression ")" | arrayLit | objectLit
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/lexer"
)

// Parser consumes the flat token slice the lexer produces and builds an
// *ast.Program.
type Parser struct {
	tokens      []lexer.Token
	pos         int
	sourceLines []string
}

// New creates a Parser over tokens. rawSource is only used to render
// source snippets in error messages.
func New(tokens []lexer.Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

func (p *Parser) fmtError(tok lexer.Token, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1
	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}
	return fmt.Errorf("line %d: %s\n  |> %s", tok.Line, msg, snippet)
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) lexer.Token {
	if p.pos+offset >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt lexer.TokenType) bool {
	return p.peek().Type == tt
}

func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

// Parse tokenizes source via the lexer and parses the result into an
// *ast.Program.
func Parse(source string) (*ast.Program, error) {
	tokens, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	return New(tokens, source).ParseProgram()
}

// ParseProgram is the grammar's entry point: a flat list of top-level
// function declarations and statements.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.check(lexer.EOF) {
		n, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, n)
	}
	return prog, nil
}

func (p *Parser) parseTopLevel() (ast.Node, error) {
	if p.check(lexer.FUNCTION) {
		return p.parseFuncDecl()
	}
	return p.parseStatement()
}

func (p *Parser) parseFuncDecl() (ast.Node, error) {
	p.advance() // "function"
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(lexer.RPAREN) {
		pname, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		pt := ast.Unknown
		if p.match(lexer.COLON) {
			pt, err = p.parseType()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, ast.Param{Name: pname.Lexeme, Type: pt})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	retType := ast.Unknown
	if p.match(lexer.COLON) {
		var err error
		retType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDecl{Name: name.Lexeme, Params: params, ReturnType: retType, Body: body}, nil
}

// parseType parses a type annotation into an ast.SourceType. An array
// annotation's bracket may carry a literal capacity ("number[5]", a fixed
// array) or be empty ("number[]", a dynamic array).
func (p *Parser) parseType() (ast.SourceType, error) {
	var base ast.SourceType
	switch {
	case p.check(lexer.LBRACE):
		var err error
		base, err = p.parseObjectType()
		if err != nil {
			return ast.Unknown, err
		}
	case p.check(lexer.IDENT):
		name := p.advance().Lexeme
		switch name {
		case "number":
			base = ast.SourceType{Kind: ast.SKNumber}
		case "string":
			base = ast.SourceType{Kind: ast.SKString}
		case "boolean":
			base = ast.SourceType{Kind: ast.SKBoolean}
		default:
			base = ast.Unknown
		}
	default:
		tok := p.advance()
		return ast.Unknown, p.fmtError(tok, "expected a type, got %s (%q)", tok.Type, tok.Lexeme)
	}

	for p.check(lexer.LBRACKET) {
		p.advance()
		capacity := 0
		known := false
		if p.check(lexer.NUMBER) {
			tok := p.advance()
			n, err := strconv.Atoi(tok.Lexeme)
			if err != nil {
				return ast.Unknown, p.fmtError(tok, "invalid array capacity %q", tok.Lexeme)
			}
			capacity = n
			known = true
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return ast.Unknown, err
		}
		elem := base
		base = ast.SourceType{Kind: ast.SKArray, Elem: &elem, Capacity: capacity, CapacityKnown: known}
	}
	return base, nil
}

func (p *Parser) parseObjectType() (ast.SourceType, error) {
	p.advance() // "{"
	st := ast.SourceType{Kind: ast.SKObject}
	for !p.check(lexer.RBRACE) {
		fname, err := p.expect(lexer.IDENT)
		if err != nil {
			return ast.Unknown, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return ast.Unknown, err
		}
		ft, err := p.parseType()
		if err != nil {
			return ast.Unknown, err
		}
		st.Fields = append(st.Fields, ast.SourceField{Name: fname.Lexeme, Type: ft})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return ast.Unknown, err
	}
	return st, nil
}
