package transpiler

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/emitter"
	"github.com/repetere/ts2c/pkg/types"
)

// transpileExpr renders n as a C expression. allowAssign gates whether a
// top-level "=" on n itself is accepted: it is only true at the handful
// of call sites where an assignment is idiomatic (a for-loop's post
// clause); everywhere else, including every recursive call this function
// makes into its own operands, an assignment is nested inside a larger
// expression and is rejected.
func (t *Transpiler) transpileExpr(n ast.Node, allowAssign bool) string {
	switch e := n.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return e.Name
	case *ast.NumberLit:
		return fmt.Sprintf("%d", e.Value)
	case *ast.StringLit:
		return normalizeStringLiteral(e.Value)
	case *ast.BoolLit:
		t.e.EmitPredefinedHeader(emitter.HeaderBool)
		if e.Value {
			return "TRUE"
		}
		return "FALSE"
	case *ast.NullLit:
		return "NULL"
	case *ast.ObjectLit, *ast.ArrayLit:
		t.errs.add("a literal may only appear as a declaration's initializer or the right-hand side of an assignment")
		return "0"
	case *ast.CallExpr:
		return t.transpileCall(e)
	case *ast.MemberExpr:
		return t.transpileMember(e)
	case *ast.IndexExpr:
		return t.transpileIndex(e)
	case *ast.BinaryExpr:
		return t.transpileBinary(e, allowAssign)
	case *ast.PrefixUnary:
		return t.transpilePrefix(e)
	case *ast.PostfixUnary:
		operand := t.transpileExpr(e.Operand, false)
		return operand + e.Op
	default:
		t.errs.add("unsupported expression construct %T", n)
		return "0"
	}
}

func normalizeStringLiteral(s string) string {
	return `"` + escapeCString(s) + `"`
}

// escapeCString escapes the characters C string-literal syntax can't carry
// raw: backslash and double-quote (which would otherwise terminate or
// corrupt the literal), and newline/tab (which the lexer has already
// decoded into literal control characters that can't appear inside a
// physical C string at all).
func escapeCString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// transpileMember lowers `.length` on an array to either its known
// capacity or its runtime size field, and any other dotted access to a
// struct field dereference.
func (t *Transpiler) transpileMember(e *ast.MemberExpr) string {
	obj := t.transpileExpr(e.Object, false)
	if e.Property == "length" {
		ct := t.exprCType(e.Object)
		if ct.Kind == types.CArray {
			if ct.Dynamic {
				return obj + ".size"
			}
			return fmt.Sprintf("%d", ct.Capacity)
		}
	}
	return obj + "->" + e.Property
}

// transpileIndex lowers `obj[key]`. A string-literal key against any
// receiver is a dynamic-language field access and expands to `obj->key`
// directly, ahead of the array check: `obj["x"]` and `obj.x` mean the same
// thing in the source language. A numeric key against an array-typed
// receiver indexes it. Anything else falls back to the runtime coercion
// helper, since the receiver's layout isn't known at transpile time.
func (t *Transpiler) transpileIndex(e *ast.IndexExpr) string {
	obj := t.transpileExpr(e.Object, false)
	if lit, ok := e.Index.(*ast.StringLit); ok {
		return obj + "->" + lit.Value
	}
	idx := t.transpileExpr(e.Index, false)
	ct := t.exprCType(e.Object)
	if ct.Kind == types.CArray {
		if ct.Dynamic {
			return fmt.Sprintf("%s.data[%s]", obj, idx)
		}
		return fmt.Sprintf("%s[%s]", obj, idx)
	}
	t.e.EmitPredefinedHeader(emitter.HeaderJsEq)
	return fmt.Sprintf("js_get(%s, %s)", obj, idx)
}

func (t *Transpiler) transpileBinary(e *ast.BinaryExpr, allowAssign bool) string {
	if e.Op == "=" {
		if !allowAssign {
			t.errs.add("assignments inside expressions are not supported")
			return "0"
		}
		return t.transpileAssignExpr(e)
	}

	left := t.transpileExpr(e.Left, false)
	right := t.transpileExpr(e.Right, false)
	leftCT := t.exprCType(e.Left)

	switch e.Op {
	case "==", "===":
		if leftCT.Kind == types.CCharPtr {
			t.e.EmitPredefinedHeader(emitter.HeaderString)
			return fmt.Sprintf("(strcmp(%s, %s) == 0)", left, right)
		}
		if leftCT.Kind != types.CInt16 {
			t.e.EmitPredefinedHeader(emitter.HeaderJsEq)
			return fmt.Sprintf("js_eq(%s, %s)", left, right)
		}
		return fmt.Sprintf("(%s == %s)", left, right)
	case "!=", "!==":
		if leftCT.Kind == types.CCharPtr {
			t.e.EmitPredefinedHeader(emitter.HeaderString)
			return fmt.Sprintf("(strcmp(%s, %s) != 0)", left, right)
		}
		if leftCT.Kind != types.CInt16 {
			t.e.EmitPredefinedHeader(emitter.HeaderJsEq)
			return fmt.Sprintf("(!js_eq(%s, %s))", left, right)
		}
		return fmt.Sprintf("(%s != %s)", left, right)
	case "&&":
		return fmt.Sprintf("(%s && %s)", left, right)
	case "||":
		return fmt.Sprintf("(%s || %s)", left, right)
	case "+", "-", "*", "/", "%", "<", ">", "<=", ">=":
		return fmt.Sprintf("(%s %s %s)", left, e.Op, right)
	default:
		t.errs.add("unsupported operator %q", e.Op)
		return "0"
	}
}

// transpileAssignExpr handles "=" at one of the rare positions where an
// assignment expression (rather than an assignment statement) is
// expected, such as a for-loop's post clause. A literal right-hand side
// can't be expanded into a single expression there, so it is rejected;
// transpileExprStmt's assignment handling is the only path that may use
// one.
func (t *Transpiler) transpileAssignExpr(e *ast.BinaryExpr) string {
	switch e.Right.(type) {
	case *ast.ObjectLit, *ast.ArrayLit:
		t.errs.add("a literal assignment must be its own statement, not part of a larger expression")
		return "0"
	}
	lhs := t.transpileExpr(e.Left, false)
	rhs := t.transpileExpr(e.Right, false)
	return fmt.Sprintf("(%s = %s)", lhs, rhs)
}

// transpilePrefix expands "!" against a string operand to the empty- or
// null-string test the source language's truthiness rules require,
// since a char* has no boolean conversion of its own in C.
func (t *Transpiler) transpilePrefix(e *ast.PrefixUnary) string {
	operand := t.transpileExpr(e.Operand, false)
	switch e.Op {
	case "!":
		ct := t.exprCType(e.Operand)
		if ct.Kind == types.CCharPtr {
			return fmt.Sprintf("(%s == NULL || %s[0] == '\\0')", operand, operand)
		}
		return fmt.Sprintf("(!%s)", operand)
	case "-":
		return fmt.Sprintf("(-%s)", operand)
	case "++", "--":
		return fmt.Sprintf("(%s%s)", e.Op, operand)
	default:
		t.errs.add("unsupported operator %q", e.Op)
		return "0"
	}
}
