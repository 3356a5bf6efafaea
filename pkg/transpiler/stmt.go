package transpiler

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/emitter"
	"github.com/repetere/ts2c/pkg/types"
)

// maxPhysicalCapacity is the initial physical capacity a dynamic array's
// backing store is allocated with for a given logical size: double it,
// but never below room for 4 elements, so a handful of early pushes
// don't immediately trigger a realloc.
func maxPhysicalCapacity(logical int) int {
	phys := logical * 2
	if phys < 4 {
		phys = 4
	}
	return phys
}

// arrayCreateLine renders the ARRAY_CREATE call that allocates a dynamic
// array's backing store, pulling in the macro header it depends on.
func (t *Transpiler) arrayCreateLine(targetExpr string, physCap, logicalCap int) string {
	t.e.EmitPredefinedHeader(emitter.HeaderArray)
	return fmt.Sprintf("ARRAY_CREATE(%s, %d, %d);\n", targetExpr, physCap, logicalCap)
}

func (t *Transpiler) transpileStmt(n ast.Node) {
	switch s := n.(type) {
	case *ast.Block:
		for _, stmt := range s.Stmts {
			t.transpileStmt(stmt)
		}
	case *ast.VarDecl:
		t.transpileVarDecl(s)
	case *ast.If:
		t.transpileIf(s)
	case *ast.While:
		cond := t.transpileExpr(s.Cond, false)
		t.e.Emit(fmt.Sprintf("while (%s) {\n", cond))
		t.e.IncreaseIndent()
		t.transpileStmt(s.Body)
		t.e.DecreaseIndent()
		t.e.Emit("}\n")
	case *ast.DoWhile:
		t.e.Emit("do {\n")
		t.e.IncreaseIndent()
		t.transpileStmt(s.Body)
		t.e.DecreaseIndent()
		cond := t.transpileExpr(s.Cond, false)
		t.e.Emit(fmt.Sprintf("} while (%s);\n", cond))
	case *ast.For:
		t.transpileFor(s)
	case *ast.ForOf:
		t.transpileForOf(s)
	case *ast.ForIn:
		t.errs.add("for-in loops are not supported: the source subset has no way to enumerate an object's keys in C")
	case *ast.Return:
		t.transpileReturn(s)
	case *ast.ExprStmt:
		t.transpileExprStmt(s)
	case nil:
	default:
		t.errs.add("unsupported statement construct %T", n)
	}
}

func (t *Transpiler) transpileIf(s *ast.If) {
	cond := t.transpileExpr(s.Cond, false)
	t.e.Emit(fmt.Sprintf("if (%s) {\n", cond))
	t.e.IncreaseIndent()
	t.transpileStmt(s.Then)
	t.e.DecreaseIndent()
	if s.Else == nil {
		t.e.Emit("}\n")
		return
	}
	t.e.Emit("} else {\n")
	t.e.IncreaseIndent()
	t.transpileStmt(s.Else)
	t.e.DecreaseIndent()
	t.e.Emit("}\n")
}

func (t *Transpiler) transpileVarDecl(s *ast.VarDecl) {
	vi, ok := t.th.GetVariableInfo(t.currentScopeName(), s.Name)
	if !ok {
		t.errs.add("internal: %q was never registered by the type pass", s.Name)
		return
	}
	t.declareVarType(s.Name, vi.Type)
	if s.Init == nil {
		if vi.Type.Kind == types.CArray && vi.Type.Dynamic {
			t.e.Emit(t.arrayCreateLine(s.Name, maxPhysicalCapacity(vi.Type.Capacity), 0))
		}
		return
	}
	for _, line := range t.transpileAssignLines(s.Name, vi.Type, s.Init) {
		t.e.Emit(line)
	}
	if vi.Type.RequiresAllocation() {
		t.mm.InsertGlobalPointerIfNecessary(s, t.currentScopeName(), s.Name, t.e)
	}
}

// transpileExprStmt special-cases the expression-statement shapes that
// need more than one C statement to express: console.log (a run of
// printf calls), and both forms of assignment (push may need a growth
// check, and an object/array literal RHS needs field-by-field stores).
func (t *Transpiler) transpileExprStmt(s *ast.ExprStmt) {
	switch inner := s.Expr.(type) {
	case *ast.CallExpr:
		if isConsoleLog(inner) {
			for _, line := range t.buildConsoleLog(inner.Args) {
				t.e.Emit(line)
			}
			return
		}
		if isPush(inner) {
			for _, line := range t.buildPush(inner) {
				t.e.Emit(line)
			}
			return
		}
		t.e.Emit(t.transpileExpr(inner, false) + ";\n")
	case *ast.BinaryExpr:
		if inner.Op != "=" {
			t.e.Emit(t.transpileExpr(inner, false) + ";\n")
			return
		}
		target, ct, ok := t.assignTarget(inner.Left)
		if !ok {
			t.errs.add("unsupported assignment target")
			return
		}
		for _, line := range t.transpileAssignLines(target, ct, inner.Right) {
			t.e.Emit(line)
		}
	default:
		t.e.Emit(t.transpileExpr(inner, false) + ";\n")
	}
}

func (t *Transpiler) transpileReturn(s *ast.Return) {
	if s.Value == nil {
		t.mm.InsertDestructorsIfNecessary(t.scope, t.e)
		t.e.Emit("return;\n")
		return
	}
	switch s.Value.(type) {
	case *ast.ObjectLit, *ast.ArrayLit:
		tmp := t.newTemp()
		ct := t.exprCType(s.Value)
		t.declareVarType(tmp, ct)
		for _, line := range t.transpileAssignLines(tmp, ct, s.Value) {
			t.e.Emit(line)
		}
		t.mm.InsertDestructorsIfNecessary(t.scope, t.e)
		t.e.Emit(fmt.Sprintf("return %s;\n", tmp))
	default:
		expr := t.transpileExpr(s.Value, false)
		t.mm.InsertDestructorsIfNecessary(t.scope, t.e)
		t.e.Emit(fmt.Sprintf("return %s;\n", expr))
	}
}

// transpileFor hoists the loop's declarations ahead of the header, since
// C89 allows only an expression (not a declaration) in a for-statement's
// init clause. Every init but the last is always a standalone declaration
// plus assignment ahead of the loop. The last is folded back into the
// header unless it requires heap allocation: its assignment is emitted
// normally, its text is captured and trimmed of the trailing statement
// terminator, and the emitted copy is rewound so it appears only once, in
// the header. A last init that does require heap allocation is hoisted
// like the rest and the header's init clause is left empty.
func (t *Transpiler) transpileFor(s *ast.For) {
	initClause := ""
	n := len(s.Inits)

	for i, vd := range s.Inits {
		vi, ok := t.th.GetVariableInfo(t.currentScopeName(), vd.Name)
		if !ok {
			continue
		}
		t.declareVarType(vd.Name, vi.Type)

		_, isObj := vd.Init.(*ast.ObjectLit)
		_, isArr := vd.Init.(*ast.ArrayLit)
		foldable := i == n-1 && !isObj && !isArr && !vi.Type.RequiresAllocation()

		if foldable {
			target := t.e.DefaultTarget()
			before := t.e.CurrentText(target)
			if vd.Init != nil {
				for _, line := range t.transpileAssignLines(vd.Name, vi.Type, vd.Init) {
					t.e.Emit(line)
				}
			}
			after := t.e.CurrentText(target)
			written := strings.TrimPrefix(after, before)
			t.e.SetText(target, before)
			initClause = strings.TrimSuffix(written, ";\n")
			continue
		}

		if vd.Init != nil {
			for _, line := range t.transpileAssignLines(vd.Name, vi.Type, vd.Init) {
				t.e.Emit(line)
			}
		}
	}

	cond := ""
	if s.Cond != nil {
		cond = t.transpileExpr(s.Cond, false)
	}
	post := ""
	if s.Post != nil {
		post = t.transpileExpr(s.Post, true)
	}

	t.e.Emit(fmt.Sprintf("for (%s; %s; %s) {\n", initClause, cond, post))
	t.e.IncreaseIndent()
	t.transpileStmt(s.Body)
	t.e.DecreaseIndent()
	t.e.Emit("}\n")
}

// transpileForOf lowers iteration over an array value to an index-based
// for loop, since the emitted array types carry no iterator of their own.
func (t *Transpiler) transpileForOf(s *ast.ForOf) {
	arrExpr := t.transpileExpr(s.Iterand, false)
	arrCT := t.exprCType(s.Iterand)

	idx := t.th.AddNewIteratorVariable(s)
	t.declareVarType(idx, types.CType{Kind: types.CInt16})

	elemCT := types.CType{Kind: types.CVoidPtr}
	if arrCT.Elem != nil {
		elemCT = *arrCT.Elem
	}
	t.declareVarType(s.VarName, elemCT)

	sizeExpr := fmt.Sprintf("%d", arrCT.Capacity)
	elemExpr := fmt.Sprintf("%s[%s]", arrExpr, idx)
	if arrCT.Dynamic {
		sizeExpr = arrExpr + ".size"
		elemExpr = fmt.Sprintf("%s.data[%s]", arrExpr, idx)
	}

	t.e.Emit(fmt.Sprintf("for (%s = 0; %s < %s; %s++) {\n", idx, idx, sizeExpr, idx))
	t.e.IncreaseIndent()
	t.e.Emit(fmt.Sprintf("%s = %s;\n", s.VarName, elemExpr))
	t.transpileStmt(s.Body)
	t.e.DecreaseIndent()
	t.e.Emit("}\n")
}

// assignTarget resolves the C lvalue text and type for an assignment's
// left-hand side. Only plain identifiers, struct field access, and array
// indexing are valid assignment targets in the supported subset.
func (t *Transpiler) assignTarget(n ast.Node) (string, types.CType, bool) {
	switch e := n.(type) {
	case *ast.Ident:
		vi, ok := t.th.GetVariableInfo(t.currentScopeName(), e.Name)
		if !ok {
			return "", types.CType{}, false
		}
		return e.Name, vi.Type, true
	case *ast.MemberExpr:
		objExpr := t.transpileExpr(e.Object, false)
		objCT := t.exprCType(e.Object)
		if objCT.Kind != types.CStruct {
			return "", types.CType{}, false
		}
		for _, f := range objCT.Fields {
			if f.Name == e.Property {
				return objExpr + "->" + e.Property, f.Type, true
			}
		}
		return "", types.CType{}, false
	case *ast.IndexExpr:
		objExpr := t.transpileExpr(e.Object, false)
		idxExpr := t.transpileExpr(e.Index, false)
		objCT := t.exprCType(e.Object)
		elemCT := types.CType{Kind: types.CVoidPtr}
		if objCT.Elem != nil {
			elemCT = *objCT.Elem
		}
		if objCT.Dynamic {
			return fmt.Sprintf("%s.data[%s]", objExpr, idxExpr), elemCT, true
		}
		return fmt.Sprintf("%s[%s]", objExpr, idxExpr), elemCT, true
	default:
		return "", types.CType{}, false
	}
}

// transpileAssignLines returns the C statements that store init into
// targetExpr (of type ct). An object or array literal needs one statement
// per field/element (C89 has no compound literals), so it recurses;
// anything else is a single assignment, which for a struct or array value
// copies the pointer, matching the source language's reference semantics.
func (t *Transpiler) transpileAssignLines(targetExpr string, ct types.CType, init ast.Node) []string {
	switch lit := init.(type) {
	case *ast.ObjectLit:
		if ct.Kind != types.CStruct {
			t.errs.add("object literal assigned to a non-struct target")
			return nil
		}
		t.e.EmitPredefinedHeader(emitter.HeaderAssert)
		lines := []string{
			fmt.Sprintf("%s = malloc(sizeof(*%s));\n", targetExpr, targetExpr),
			fmt.Sprintf("assert(%s != NULL);\n", targetExpr),
		}
		for _, f := range lit.Fields {
			fieldCT, ok := fieldType(ct, f.Key)
			if !ok {
				t.errs.add("object literal has no declared field %q", f.Key)
				continue
			}
			lines = append(lines, t.transpileAssignLines(fmt.Sprintf("%s->%s", targetExpr, f.Key), fieldCT, f.Value)...)
		}
		return lines
	case *ast.ArrayLit:
		if ct.Kind != types.CArray {
			t.errs.add("array literal assigned to a non-array target")
			return nil
		}
		elemCT := types.CType{Kind: types.CVoidPtr}
		if ct.Elem != nil {
			elemCT = *ct.Elem
		}
		if ct.Dynamic {
			n := len(lit.Elements)
			lines := []string{t.arrayCreateLine(targetExpr, maxPhysicalCapacity(n), n)}
			for i, el := range lit.Elements {
				lines = append(lines, t.transpileAssignLines(fmt.Sprintf("%s.data[%d]", targetExpr, i), elemCT, el)...)
			}
			return lines
		}
		var lines []string
		for i, el := range lit.Elements {
			lines = append(lines, t.transpileAssignLines(fmt.Sprintf("%s[%d]", targetExpr, i), elemCT, el)...)
		}
		return lines
	default:
		return []string{fmt.Sprintf("%s = %s;\n", targetExpr, t.transpileExpr(init, false))}
	}
}

func fieldType(ct types.CType, name string) (types.CType, bool) {
	for _, f := range ct.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return types.CType{}, false
}
