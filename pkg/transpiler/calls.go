package transpiler

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/emitter"
	"github.com/repetere/ts2c/pkg/types"
)

func isConsoleLog(call *ast.CallExpr) bool {
	member, ok := call.Callee.(*ast.MemberExpr)
	if !ok || member.Property != "log" {
		return false
	}
	recv, ok := member.Object.(*ast.Ident)
	return ok && recv.Name == "console"
}

func isPush(call *ast.CallExpr) bool {
	member, ok := call.Callee.(*ast.MemberExpr)
	return ok && member.Property == "push"
}

func isPop(call *ast.CallExpr) bool {
	member, ok := call.Callee.(*ast.MemberExpr)
	return ok && member.Property == "pop"
}

// transpileCall renders a call used as an expression. console.log and
// .push() only make sense as their own statement (they may expand to
// several C statements), so transpileExprStmt intercepts those before
// this is ever reached for them; seeing either here means the source
// used one in a position this subset doesn't support.
func (t *Transpiler) transpileCall(e *ast.CallExpr) string {
	if isConsoleLog(e) {
		t.errs.add("console.log is only supported as a statement, not as part of an expression")
		return "0"
	}
	if isPush(e) {
		t.errs.add("array .push() is only supported as a statement, not as part of an expression")
		return "0"
	}
	if isPop(e) {
		return t.transpilePop(e)
	}

	callee, ok := e.Callee.(*ast.Ident)
	if !ok {
		t.errs.add("unsupported call target %T", e.Callee)
		return "0"
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = t.transpileExpr(a, false)
	}
	return fmt.Sprintf("%s(%s)", callee.Name, strings.Join(args, ", "))
}

// transpilePop renders `arr.pop()`. A dynamic array's pop is a single
// expression via the ARRAY_POP macro; a fixed array's pop reads back
// whichever slot the matching sequence of static pushes last wrote,
// using the same per-variable counter buildPush advances.
func (t *Transpiler) transpilePop(e *ast.CallExpr) string {
	member := e.Callee.(*ast.MemberExpr)
	recv, ok := member.Object.(*ast.Ident)
	if !ok {
		t.errs.add("unsupported pop call target")
		return "0"
	}
	vi, ok := t.th.GetVariableInfo(t.currentScopeName(), recv.Name)
	if !ok || vi.Type.Kind != types.CArray {
		t.errs.add("pop called on %q, which is not an array", recv.Name)
		return "0"
	}
	if vi.Type.Dynamic {
		t.e.EmitPredefinedHeader(emitter.HeaderArray)
		t.e.EmitPredefinedHeader(emitter.HeaderArrayPop)
		return fmt.Sprintf("ARRAY_POP(%s)", recv.Name)
	}
	key := t.pushIndexKey(recv.Name)
	idx := t.pushIndex[key]
	if idx > 0 {
		t.pushIndex[key] = idx - 1
	}
	return fmt.Sprintf("%s[%d]", recv.Name, idx-1)
}

// buildPush returns the statement(s) that implement `arr.push(x)`. A
// dynamic array grows through the ARRAY_PUSH macro (capacity check,
// possible realloc, store, size++) in one statement; a fixed array has
// no size field at all, so the TypeHelper's static push-count pass is
// what proved there is room, and this just writes to the next slot in
// program order.
func (t *Transpiler) buildPush(call *ast.CallExpr) []string {
	member, ok := call.Callee.(*ast.MemberExpr)
	if !ok || len(call.Args) != 1 {
		t.errs.add("unsupported push call")
		return nil
	}
	recv, ok := member.Object.(*ast.Ident)
	if !ok {
		t.errs.add("push called on an unsupported receiver")
		return nil
	}
	vi, ok := t.th.GetVariableInfo(t.currentScopeName(), recv.Name)
	if !ok || vi.Type.Kind != types.CArray {
		t.errs.add("push called on %q, which is not an array", recv.Name)
		return nil
	}

	valExpr := t.transpileExpr(call.Args[0], false)
	if vi.Type.Dynamic {
		t.e.EmitPredefinedHeader(emitter.HeaderArray)
		return []string{fmt.Sprintf("ARRAY_PUSH(%s, %s);\n", recv.Name, valExpr)}
	}

	key := t.pushIndexKey(recv.Name)
	idx := t.pushIndex[key]
	t.pushIndex[key] = idx + 1
	return []string{fmt.Sprintf("%s[%d] = %s;\n", recv.Name, idx, valExpr)}
}

// pushIndexKey scope-qualifies a fixed array's push-slot counter the same
// way the type registry qualifies its binding, so two different functions'
// same-named arrays track independent slot counters.
func (t *Transpiler) pushIndexKey(name string) string {
	return t.currentScopeName() + "\x00" + name
}
