// Package ast defines the Go-side node shapes the transpiler walks.
//
// The AST itself is supplied by an external provider (the parser/type
// checker for the source language is out of scope for this module); this
// package only fixes the concrete Go types the rest of the module depends
// on so that TypeHelper, MemoryManager, and the Transpiler can walk a
// single, closed node set with an exhaustive switch.
package ast

// Node is the closed set of AST node kinds this module understands. The
// unexported method keeps the set closed to this package: the Transpiler's
// switch over node kinds therefore only needs one catch-all default arm
// to stay exhaustive, matching how unsupported constructs are reported.
type Node interface {
	astNode()
}

// Program is one compilation unit: a flat list of top-level declarations
// and statements. Flat because the source subset has no modules.
type Program struct {
	Body []Node
}

func (*Program) astNode() {}

// Param is a function parameter with its declared (possibly unknown) type.
type Param struct {
	Name string
	Type SourceType
}

// FuncDecl is a named top-level function. Nested function declarations and
// closures are not part of the supported subset.
type FuncDecl struct {
	Name       string
	Params     []Param
	ReturnType SourceType
	Body       *Block
}

func (*FuncDecl) astNode() {}

// VarDecl binds a name to an optional initializer. Declared is the
// source-level type annotation if present; Declared.Kind == SKUnknown
// means "infer from Init".
type VarDecl struct {
	Name     string
	Declared SourceType
	Init     Node // nil if no initializer
}

func (*VarDecl) astNode() {}

// Block is a brace-delimited sequence of statements.
type Block struct {
	Stmts []Node
}

func (*Block) astNode() {}

// If is a conditional with an optional else branch.
type If struct {
	Cond Node
	Then Node
	Else Node // nil if no else branch
}

func (*If) astNode() {}

// While is a pre-test loop.
type While struct {
	Cond Node
	Body Node
}

func (*While) astNode() {}

// DoWhile is a post-test loop.
type DoWhile struct {
	Cond Node
	Body Node
}

func (*DoWhile) astNode() {}

// For is a classic three-clause loop. Inits holds every loop-local
// declaration bound in the initializer clause (the source may bind more
// than one; C89 allows only one declaration in the for-header, which is
// the Transpiler's problem to solve, not this package's).
type For struct {
	Inits []*VarDecl
	Cond  Node // nil if omitted
	Post  Node // nil if omitted
	Body  Node
}

func (*For) astNode() {}

// ForOf iterates the elements of an array-typed identifier.
type ForOf struct {
	VarName string
	Iterand Node
	Body    Node
}

func (*ForOf) astNode() {}

// ForIn is parsed but never supported; it always produces an error.
type ForIn struct {
	VarName string
	Iterand Node
	Body    Node
}

func (*ForIn) astNode() {}

// Return optionally carries a value.
type Return struct {
	Value Node // nil for a bare "return;"
}

func (*Return) astNode() {}

// ExprStmt wraps a single expression used as a statement.
type ExprStmt struct {
	Expr Node
}

func (*ExprStmt) astNode() {}

// Ident is a bare identifier reference.
type Ident struct {
	Name string
}

func (*Ident) astNode() {}

// NumberLit is a numeric literal; the source language has a single
// numeric type that maps to int16_t.
type NumberLit struct {
	Value int64
}

func (*NumberLit) astNode() {}

// StringLit is a string literal. Quote records the source quoting style
// ('\” or '"') so the Transpiler can normalize it to a double-quoted C
// string literal.
type StringLit struct {
	Value string
	Quote byte
}

func (*StringLit) astNode() {}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

func (*BoolLit) astNode() {}

// NullLit is the source language's null/undefined literal.
type NullLit struct{}

func (*NullLit) astNode() {}

// ObjectField is one key/value pair of an object literal, in source order.
type ObjectField struct {
	Key   string
	Value Node
}

// ObjectLit is a structurally-typed object literal.
type ObjectLit struct {
	Fields []ObjectField
}

func (*ObjectLit) astNode() {}

// ArrayLit is an array literal.
type ArrayLit struct {
	Elements []Node
}

func (*ArrayLit) astNode() {}

// CallExpr is a function or method call; Callee is usually an *Ident or
// *MemberExpr (for the `obj.method(...)` built-ins).
type CallExpr struct {
	Callee Node
	Args   []Node
}

func (*CallExpr) astNode() {}

// MemberExpr is `Object.Property` (dotted property access).
type MemberExpr struct {
	Object   Node
	Property string
}

func (*MemberExpr) astNode() {}

// IndexExpr is `Object[Index]` (bracketed element access).
type IndexExpr struct {
	Object Node
	Index  Node
}

func (*IndexExpr) astNode() {}

// BinaryExpr covers both the arithmetic/comparison operator table and
// assignment ("=" is a binary operator in the source grammar).
type BinaryExpr struct {
	Op    string
	Left  Node
	Right Node
}

func (*BinaryExpr) astNode() {}

// PrefixUnary is a prefix unary operator, e.g. "!x".
type PrefixUnary struct {
	Op      string
	Operand Node
}

func (*PrefixUnary) astNode() {}

// PostfixUnary is a postfix unary operator, e.g. "x++".
type PostfixUnary struct {
	Op      string
	Operand Node
}

func (*PostfixUnary) astNode() {}
