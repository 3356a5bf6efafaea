package transpiler

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/emitter"
	"github.com/repetere/ts2c/pkg/types"
)

// printfBuilder assembles the output of one console.log call: a run of
// printf calls interleaved, when an argument is a runtime-sized array, with
// a small loop that prints its elements one at a time. The format string
// for each printf is fully static, so a dynamic array's unknown length
// never has to appear inside a format specifier.
type printfBuilder struct {
	t       *Transpiler
	fmtBuf  strings.Builder
	fmtArgs []string
	stmts   []string
}

func (p *printfBuilder) flush() {
	if p.fmtBuf.Len() == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("printf(\"")
	sb.WriteString(p.fmtBuf.String())
	sb.WriteString("\"")
	for _, a := range p.fmtArgs {
		sb.WriteString(", ")
		sb.WriteString(a)
	}
	sb.WriteString(");\n")
	p.stmts = append(p.stmts, sb.String())
	p.fmtBuf.Reset()
	p.fmtArgs = nil
}

// process flattens string-concatenation chains so that literal fragments
// land directly in the format string and only the dynamic pieces become
// printf arguments.
func (p *printfBuilder) process(n ast.Node) {
	if bin, ok := n.(*ast.BinaryExpr); ok && bin.Op == "+" {
		p.process(bin.Left)
		p.process(bin.Right)
		return
	}
	if lit, ok := n.(*ast.StringLit); ok {
		p.fmtBuf.WriteString(escapeFormatLiteral(lit.Value))
		return
	}
	ct := p.t.exprCType(n)
	cExpr := p.t.transpileExpr(n, false)
	p.render(cExpr, ct)
}

// render appends the format fragment (and, for scalars, the matching
// printf argument) for one already-transpiled C expression of type ct.
// Fixed-size arrays and structs are unrolled at transpile time, since
// their shape is static; a dynamic array's length is not, so it is
// rendered with an actual C loop instead of being unrolled into the
// format string.
func (p *printfBuilder) render(cExpr string, ct types.CType) {
	switch ct.Kind {
	case types.CInt16:
		p.fmtBuf.WriteString("%d")
		p.fmtArgs = append(p.fmtArgs, cExpr)
	case types.CBool:
		p.fmtBuf.WriteString("%d")
		p.fmtArgs = append(p.fmtArgs, cExpr)
	case types.CCharPtr:
		p.fmtBuf.WriteString("%s")
		p.fmtArgs = append(p.fmtArgs, cExpr)
	case types.CVoidPtr, types.CPointer:
		p.fmtBuf.WriteString("%p")
		p.fmtArgs = append(p.fmtArgs, cExpr)
	case types.CStruct:
		p.fmtBuf.WriteString("{ ")
		for i, f := range ct.Fields {
			if i > 0 {
				p.fmtBuf.WriteString(", ")
			}
			p.fmtBuf.WriteString(f.Name)
			p.fmtBuf.WriteString(": ")
			p.render(fmt.Sprintf("%s->%s", cExpr, f.Name), f.Type)
		}
		p.fmtBuf.WriteString(" }")
	case types.CArray:
		if !ct.Dynamic {
			p.fmtBuf.WriteString("[")
			for i := 0; i < ct.Capacity; i++ {
				if i > 0 {
					p.fmtBuf.WriteString(", ")
				}
				elem := types.CType{Kind: types.CVoidPtr}
				if ct.Elem != nil {
					elem = *ct.Elem
				}
				p.render(fmt.Sprintf("%s[%d]", cExpr, i), elem)
			}
			p.fmtBuf.WriteString("]")
			return
		}
		p.renderDynamicArray(cExpr, ct)
	default:
		p.fmtBuf.WriteString("%p")
		p.fmtArgs = append(p.fmtArgs, cExpr)
	}
}

// renderDynamicArray prints "[" followed by each element separated by
// ", " followed by "]", via an actual for loop, since the element count
// is only known at runtime.
func (p *printfBuilder) renderDynamicArray(cExpr string, ct types.CType) {
	p.flush()
	p.stmts = append(p.stmts, "printf(\"[\");\n")
	idx := p.t.th.AddNewIteratorVariable(nil)
	p.t.declareVarType(idx, types.CType{Kind: types.CInt16})
	p.stmts = append(p.stmts, fmt.Sprintf("for (%s = 0; %s < %s.size; %s++) {\n", idx, idx, cExpr, idx))
	p.stmts = append(p.stmts, fmt.Sprintf("  if (%s > 0) printf(\", \");\n", idx))

	inner := &printfBuilder{t: p.t}
	elem := types.CType{Kind: types.CVoidPtr}
	if ct.Elem != nil {
		elem = *ct.Elem
	}
	inner.render(fmt.Sprintf("%s.data[%s]", cExpr, idx), elem)
	inner.flush()
	for _, s := range inner.stmts {
		p.stmts = append(p.stmts, "  "+s)
	}

	p.stmts = append(p.stmts, "}\n")
	p.stmts = append(p.stmts, "printf(\"]\");\n")
}

// escapeFormatLiteral prepares a literal string fragment for embedding
// directly into a printf format string: first the same C-string escaping
// normalizeStringLiteral applies to a value-position string literal (the
// lexer has already decoded escapes, so Value may contain a raw `"`, `\`,
// or newline that would otherwise produce uncompilable C), then doubling
// "%" so printf doesn't interpret it as a conversion specifier.
func escapeFormatLiteral(s string) string {
	return strings.ReplaceAll(escapeCString(s), "%", "%%")
}

// buildConsoleLog returns the C statements that implement one
// console.log(...) call: the arguments are concatenated in order (the
// way a `+` chain of string literals and dynamic expressions would be),
// and the result is followed by a trailing newline.
func (t *Transpiler) buildConsoleLog(args []ast.Node) []string {
	t.e.EmitPredefinedHeader(emitter.HeaderStdio)
	p := &printfBuilder{t: t}
	for _, a := range args {
		p.process(a)
	}
	p.fmtBuf.WriteString("\\n")
	p.flush()
	return p.stmts
}
