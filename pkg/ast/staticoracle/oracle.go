// Package staticoracle provides a minimal, local TypeOracle implementation
// that infers types by walking declared annotations and literal
// initializers. It exists so the CLI and the test suite can drive the
// transpiler without wiring up a real external type checker; it is not a
// substitute for one and gives up (returns SKUnknown) on anything that
// needs real structural unification.
package staticoracle

import (
	"github.com/repetere/ts2c/pkg/ast"
)

// StaticOracle infers types from a single forward pass over a Program.
// Call Infer once before using it as an ast.TypeOracle.
type StaticOracle struct {
	identTypes map[string]ast.SourceType
	funcSigs   map[string]ast.Signature
}

// New creates an empty StaticOracle.
func New() *StaticOracle {
	return &StaticOracle{
		identTypes: make(map[string]ast.SourceType),
		funcSigs:   make(map[string]ast.Signature),
	}
}

// Infer walks the whole compilation unit, recording the inferred type of
// every declared name. Safe to call more than once; later calls overwrite
// earlier inferences for the same names.
func (o *StaticOracle) Infer(unit *ast.Program) {
	for _, n := range unit.Body {
		o.inferStmt(n)
	}
}

func (o *StaticOracle) inferStmt(n ast.Node) {
	switch s := n.(type) {
	case *ast.FuncDecl:
		sig := ast.Signature{Return: s.ReturnType}
		for _, p := range s.Params {
			sig.Params = append(sig.Params, p.Type)
			o.identTypes[p.Name] = p.Type
		}
		o.funcSigs[s.Name] = sig
		if s.Body != nil {
			o.inferStmt(s.Body)
		}
	case *ast.Block:
		for _, stmt := range s.Stmts {
			o.inferStmt(stmt)
		}
	case *ast.VarDecl:
		t := s.Declared
		if t.Kind == ast.SKUnknown && s.Init != nil {
			t = o.literalType(s.Init)
		}
		o.identTypes[s.Name] = t
	case *ast.If:
		o.inferStmt(s.Then)
		if s.Else != nil {
			o.inferStmt(s.Else)
		}
	case *ast.While:
		o.inferStmt(s.Body)
	case *ast.DoWhile:
		o.inferStmt(s.Body)
	case *ast.For:
		for _, init := range s.Inits {
			o.inferStmt(init)
		}
		o.inferStmt(s.Body)
	case *ast.ForOf:
		elemType := ast.Unknown
		if arrType := o.TypeOf(s.Iterand); arrType.Kind == ast.SKArray && arrType.Elem != nil {
			elemType = *arrType.Elem
		}
		o.identTypes[s.VarName] = elemType
		o.inferStmt(s.Body)
	case *ast.ForIn:
		o.inferStmt(s.Body)
	}
}

// literalType infers a type directly from a literal expression, without
// consulting identTypes (used for initializers of the form `let x = ...`).
func (o *StaticOracle) literalType(n ast.Node) ast.SourceType {
	switch e := n.(type) {
	case *ast.NumberLit:
		return ast.SourceType{Kind: ast.SKNumber}
	case *ast.BoolLit:
		return ast.SourceType{Kind: ast.SKBoolean}
	case *ast.StringLit:
		return ast.SourceType{Kind: ast.SKString}
	case *ast.NullLit:
		return ast.Unknown
	case *ast.ArrayLit:
		elem := ast.Unknown
		if len(e.Elements) > 0 {
			elem = o.literalType(e.Elements[0])
		}
		return ast.SourceType{
			Kind:          ast.SKArray,
			Elem:          &elem,
			Capacity:      len(e.Elements),
			CapacityKnown: true,
		}
	case *ast.ObjectLit:
		st := ast.SourceType{Kind: ast.SKObject}
		for _, f := range e.Fields {
			st.Fields = append(st.Fields, ast.SourceField{
				Name: f.Key,
				Type: o.literalType(f.Value),
			})
		}
		return st
	case *ast.Ident:
		if t, ok := o.identTypes[e.Name]; ok {
			return t
		}
		return ast.Unknown
	case *ast.CallExpr:
		if callee, ok := e.Callee.(*ast.Ident); ok {
			if sig, ok := o.funcSigs[callee.Name]; ok {
				return sig.Return
			}
		}
		return ast.Unknown
	case *ast.BinaryExpr:
		switch e.Op {
		case "<", "<=", ">", ">=", "==", "===":
			return ast.SourceType{Kind: ast.SKBoolean}
		case "+", "-", "*", "/":
			left := o.literalType(e.Left)
			if left.Kind == ast.SKString {
				return left
			}
			return ast.SourceType{Kind: ast.SKNumber}
		case "=":
			return o.literalType(e.Right)
		}
		return ast.Unknown
	case *ast.PrefixUnary:
		if e.Op == "!" {
			return ast.SourceType{Kind: ast.SKBoolean}
		}
		return ast.Unknown
	case *ast.PostfixUnary:
		return o.literalType(e.Operand)
	case *ast.MemberExpr:
		return o.PropertyType(e.Object, e.Property)
	case *ast.IndexExpr:
		objType := o.literalType(e.Object)
		if objType.Kind == ast.SKArray && objType.Elem != nil {
			return *objType.Elem
		}
		return ast.Unknown
	}
	return ast.Unknown
}

// TypeOf implements ast.TypeOracle.
func (o *StaticOracle) TypeOf(n ast.Node) ast.SourceType {
	if ident, ok := n.(*ast.Ident); ok {
		if t, ok := o.identTypes[ident.Name]; ok {
			return t
		}
		return ast.Unknown
	}
	return o.literalType(n)
}

// SignatureOf implements ast.TypeOracle.
func (o *StaticOracle) SignatureOf(f *ast.FuncDecl) ast.Signature {
	if sig, ok := o.funcSigs[f.Name]; ok {
		return sig
	}
	sig := ast.Signature{Return: f.ReturnType}
	for _, p := range f.Params {
		sig.Params = append(sig.Params, p.Type)
	}
	return sig
}

// PropertyType implements ast.TypeOracle.
func (o *StaticOracle) PropertyType(object ast.Node, property string) ast.SourceType {
	objType := o.TypeOf(object)
	if objType.Kind == ast.SKObject {
		for _, f := range objType.Fields {
			if f.Name == property {
				return f.Type
			}
		}
	}
	if objType.Kind == ast.SKArray && property == "length" {
		return ast.SourceType{Kind: ast.SKNumber}
	}
	return ast.Unknown
}
