// Package transpiler walks a Program and emits a self-contained C89
// translation unit (component D, "Transpiler" in the design documents). It
// is the only component that writes through the Emitter; TypeHelper and
// MemoryManager are consulted but never called back into mid-walk.
package transpiler

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/emitter"
	"github.com/repetere/ts2c/pkg/memory"
	"github.com/repetere/ts2c/pkg/types"
)

// Transpiler holds the per-unit state needed while walking a Program:
// the populated TypeHelper and MemoryManager from the two prior passes,
// the Emitter doing the actual writing, and a little bookkeeping of its
// own (temporaries, and the next free slot in each fixed-capacity array
// currently being pushed to).
type Transpiler struct {
	oracle ast.TypeOracle
	th     *types.TypeHelper
	mm     *memory.Manager
	e      *emitter.Emitter
	errs   *ErrorList

	scope       *memory.FuncScope
	tempCounter int
	pushIndex   map[string]int
}

// Transpile runs the full pipeline over one compilation unit: type
// reconstruction, escape analysis, then code generation. It returns the
// joined text of every unsupported construct found along the way instead
// of stopping at the first one.
func Transpile(unit *ast.Program, oracle ast.TypeOracle) (string, error) {
	th := types.NewTypeHelper(oracle)
	if err := th.FigureOutVariablesAndTypes(unit); err != nil {
		return "", err
	}

	mm := memory.NewManager(th, nil)
	mm.Preprocess(unit)

	t := &Transpiler{
		oracle:    oracle,
		th:        th,
		mm:        mm,
		e:         emitter.New(),
		errs:      &ErrorList{},
		pushIndex: make(map[string]int),
	}
	t.run(unit)

	if err := t.errs.Err(); err != nil {
		return "", err
	}
	return t.e.Finalize(), nil
}

// run emits the struct and dynamic-array typedefs, every top-level
// function, and finally a generated main() that runs the unit's
// top-level statements and releases the global root table on the way out.
func (t *Transpiler) run(unit *ast.Program) {
	for _, ct := range t.th.StructDefs() {
		t.e.Emit(t.structTypedef(ct))
	}
	for _, ct := range t.th.ArrayDefs() {
		t.e.Emit(t.arrayTypedef(ct))
	}
	t.mm.InsertGCVariablesCreationIfNecessary(memory.Global, t.e)

	var topLevel []ast.Node
	for _, n := range unit.Body {
		if fd, ok := n.(*ast.FuncDecl); ok {
			t.transpileFunc(fd)
			continue
		}
		topLevel = append(topLevel, n)
	}

	t.e.Emit("int main(void) {\n")
	t.e.BeginFunction()
	t.e.BeginFunctionBody()
	for _, n := range topLevel {
		t.transpileStmt(n)
	}
	t.mm.FinalizeGlobalTable(t.e)
	t.e.Emit("return 0;\n")
	t.e.FinalizeFunction()
}

func (t *Transpiler) structTypedef(ct types.CType) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("typedef struct %s {\n", ct.StructName))
	for _, f := range ct.Fields {
		sb.WriteString("  " + t.th.DeclareVariable(f.Type, f.Name) + ";\n")
	}
	sb.WriteString(fmt.Sprintf("} %s;\n", ct.StructName))
	return sb.String()
}

func (t *Transpiler) arrayTypedef(ct types.CType) string {
	typeName := strings.TrimSpace(t.th.GetTypeString(ct))
	elemType := "void"
	if ct.Elem != nil {
		elemType = strings.TrimSpace(t.th.GetTypeString(*ct.Elem))
	}
	return fmt.Sprintf("typedef struct {\n  %s *data;\n  int size;\n  int capacity;\n} %s;\n", elemType, typeName)
}

func (t *Transpiler) transpileFunc(f *ast.FuncDecl) {
	sig := t.oracle.SignatureOf(f)

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		pt := p.Type
		if i < len(sig.Params) && sig.Params[i].Kind != ast.SKUnknown {
			pt = sig.Params[i]
		}
		params[i] = t.th.DeclareVariable(t.th.ConvertType(pt), p.Name)
	}
	if len(params) == 0 {
		params = []string{"void"}
	}

	retStr := "void"
	if sig.Return.Kind != ast.SKUnknown {
		retStr = strings.TrimSpace(t.th.GetTypeString(t.th.ConvertType(sig.Return)))
	}

	t.e.Emit(fmt.Sprintf("%s %s(%s) {\n", retStr, f.Name, strings.Join(params, ", ")))
	t.e.BeginFunction()
	t.e.BeginFunctionBody()

	prevScope := t.scope
	t.scope = &memory.FuncScope{Name: f.Name}
	if f.Body != nil {
		for _, stmt := range f.Body.Stmts {
			t.transpileStmt(stmt)
		}
	}
	// A function's unconditional trailing pass (control falling off the
	// end without an explicit return) is the one destructor call site
	// with exactly one exit point, so it is the one that can safely use
	// the dedicated epilogue buffer instead of writing inline into the
	// body. transpileReturn's own calls stay on Emit/TargetBody: an early
	// return's destructors must run immediately before that return, not
	// deferred past whatever body text follows it.
	t.e.WithTarget(emitter.TargetEpilogue, func() {
		t.mm.InsertDestructorsIfNecessary(t.scope, t.e)
	})
	t.scope = prevScope

	t.e.FinalizeFunction()
}

func (t *Transpiler) newTemp() string {
	t.tempCounter++
	return fmt.Sprintf("_t%d", t.tempCounter)
}

// currentScopeName is the enclosing function's name for whatever is being
// transpiled right now, matching the scope key TypeHelper's registry used
// while walking the same function, or "" for top-level statements (run's
// generated main).
func (t *Transpiler) currentScopeName() string {
	if t.scope == nil {
		return ""
	}
	return t.scope.Name
}

// declareVarType emits name's declaration once, to the prologue of the
// function currently being assembled (including the generated main, for
// top-level declarations), so every local ends up declared ahead of the
// statements that use it regardless of where in the body it was written.
func (t *Transpiler) declareVarType(name string, ct types.CType) {
	t.e.EmitOnceToBeginningOfFunction(t.th.DeclareVariable(ct, name) + ";\n")
}

func (t *Transpiler) exprCType(n ast.Node) types.CType {
	if id, ok := n.(*ast.Ident); ok {
		if vi, ok := t.th.GetVariableInfo(t.currentScopeName(), id.Name); ok {
			return vi.Type
		}
	}
	if mem, ok := n.(*ast.MemberExpr); ok && mem.Property == "length" {
		return types.CType{Kind: types.CInt16}
	}
	if mem, ok := n.(*ast.MemberExpr); ok {
		return t.th.ConvertType(t.oracle.PropertyType(mem.Object, mem.Property))
	}
	return t.th.ConvertType(t.oracle.TypeOf(n))
}
