// Package memory determines, for every heap allocation the TypeHelper
// identified, its scope of release: function exit, or escape into the
// global pointer table released at program termination (component B,
// "MemoryManager" in the design documents).
package memory

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/emitter"
	"github.com/repetere/ts2c/pkg/types"
)

// FuncScope identifies the enclosing function a declaration's destructor
// belongs to. A nil *FuncScope means "top level / global".
type FuncScope struct {
	Name string
}

// Global is the scope shared by every top-level declaration.
var Global *FuncScope

// scopeKey qualifies a bare variable name with its enclosing function, so
// that two different functions' identically-named locals/params track
// independent escape/allocation bookkeeping instead of overwriting one
// another's entries. Top-level names (fn == "") are left unqualified.
func scopeKey(fn, name string) string {
	if fn == "" {
		return name
	}
	return fn + "\x00" + name
}

// FieldEscapeLookup lets callers mark a struct field as weak (borrowed,
// never owns, never frees) without pkg/memory needing to know about a
// concrete struct registry. Mirrors the source corpus's own pattern of
// injecting a narrow interface rather than an import cycle.
type FieldEscapeLookup interface {
	IsFieldWeak(structName, fieldName string) bool
}

// Manager is the MemoryManager: it classifies every allocation-bearing
// variable as function-local or escaping, and emits matching release code
// through an Emitter.
type Manager struct {
	th     *types.TypeHelper
	fields FieldEscapeLookup

	escapes map[string]bool

	// funcAllocs/globalAllocs record allocation-bearing variables in
	// declaration order, one list per function scope, for LIFO destructor
	// emission.
	funcAllocs   map[string][]string
	globalAllocs []string

	globalTable    []string
	globalTableSet map[string]bool
}

// NewManager creates a MemoryManager bound to a populated TypeHelper.
// fields may be nil if no struct fields are ever weak.
func NewManager(th *types.TypeHelper, fields FieldEscapeLookup) *Manager {
	return &Manager{
		th:             th,
		fields:         fields,
		escapes:        make(map[string]bool),
		funcAllocs:     make(map[string][]string),
		globalTableSet: make(map[string]bool),
	}
}

// Preprocess scans the AST, classifying each allocation-bearing variable
// as function-local or escaping, and records every allocation's scope for
// later destructor placement. The MemoryManager never fails: where it
// cannot prove non-escape, it conservatively marks the value as escaping.
func (m *Manager) Preprocess(unit *ast.Program) {
	directEscapes := make(map[string]bool)
	pushEdges := make(map[string][]string)  // elem -> containers it was pushed into
	fieldEdges := make(map[string][]string) // fieldVal -> struct vars it was stored into
	declScope := make(map[string]string)    // scope-qualified var -> function name ("" = global)

	for _, n := range unit.Body {
		switch s := n.(type) {
		case *ast.FuncDecl:
			for _, p := range s.Params {
				declScope[scopeKey(s.Name, p.Name)] = s.Name
			}
			m.scanScope(s.Name, s.Body.Stmts, declScope, directEscapes, pushEdges, fieldEdges)
		case *ast.VarDecl:
			declScope[scopeKey("", s.Name)] = ""
			m.recordAlloc("", s.Name)
			m.scanExprEscapes("", s, declScope, directEscapes, pushEdges, fieldEdges)
		default:
			m.scanStmtEscapes("", n, declScope, directEscapes, pushEdges, fieldEdges)
		}
	}

	// Every top-level allocation outlives all of main's statements by
	// construction, so it is always a root, not just the ones a function
	// happens to assign outward.
	for _, name := range m.globalAllocs {
		directEscapes[scopeKey("", name)] = true
	}

	escapes := make(map[string]bool, len(directEscapes))
	for k := range directEscapes {
		escapes[k] = true
	}

	changed := true
	for changed {
		changed = false
		for elem, containers := range pushEdges {
			if escapes[elem] {
				continue
			}
			for _, c := range containers {
				if escapes[c] {
					escapes[elem] = true
					changed = true
					break
				}
			}
		}
		for fieldVal, structs := range fieldEdges {
			if escapes[fieldVal] {
				continue
			}
			for _, s := range structs {
				if escapes[s] {
					escapes[fieldVal] = true
					changed = true
					break
				}
			}
		}
	}

	m.escapes = escapes
	for key, esc := range escapes {
		fn, name := splitScopeKey(key)
		m.th.SetEscapes(fn, name, esc)
	}
}

// splitScopeKey reverses scopeKey: an unqualified key belongs to the top
// level, a qualified one splits back into its owning function and the
// bare name within it.
func splitScopeKey(key string) (fn, name string) {
	if i := strings.IndexByte(key, 0); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

// scanScope walks one function body, recording allocation order and
// feeding the escape-edge tables.
func (m *Manager) scanScope(fn string, stmts []ast.Node, declScope map[string]string, directEscapes map[string]bool, pushEdges, fieldEdges map[string][]string) {
	for _, s := range stmts {
		m.scanStmtEscapes(fn, s, declScope, directEscapes, pushEdges, fieldEdges)
	}
}

func (m *Manager) recordAlloc(fn, name string) {
	vi, ok := m.th.GetVariableInfo(fn, name)
	if !ok || !vi.RequiresAllocation {
		return
	}
	if fn == "" {
		m.globalAllocs = append(m.globalAllocs, name)
	} else {
		m.funcAllocs[fn] = append(m.funcAllocs[fn], name)
	}
}

func (m *Manager) scanStmtEscapes(fn string, n ast.Node, declScope map[string]string, directEscapes map[string]bool, pushEdges, fieldEdges map[string][]string) {
	switch s := n.(type) {
	case *ast.VarDecl:
		declScope[scopeKey(fn, s.Name)] = fn
		m.recordAlloc(fn, s.Name)
		m.scanExprEscapes(fn, s.Init, declScope, directEscapes, pushEdges, fieldEdges)
		m.captureFieldEdges(fn, s.Name, s.Init, fieldEdges)
	case *ast.Block:
		for _, stmt := range s.Stmts {
			m.scanStmtEscapes(fn, stmt, declScope, directEscapes, pushEdges, fieldEdges)
		}
	case *ast.If:
		m.scanExprEscapes(fn, s.Cond, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanStmtEscapes(fn, s.Then, declScope, directEscapes, pushEdges, fieldEdges)
		if s.Else != nil {
			m.scanStmtEscapes(fn, s.Else, declScope, directEscapes, pushEdges, fieldEdges)
		}
	case *ast.While:
		m.scanExprEscapes(fn, s.Cond, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanStmtEscapes(fn, s.Body, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.DoWhile:
		m.scanExprEscapes(fn, s.Cond, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanStmtEscapes(fn, s.Body, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.For:
		for _, init := range s.Inits {
			m.scanStmtEscapes(fn, init, declScope, directEscapes, pushEdges, fieldEdges)
		}
		m.scanExprEscapes(fn, s.Cond, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanExprEscapes(fn, s.Post, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanStmtEscapes(fn, s.Body, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.ForOf:
		declScope[scopeKey(fn, s.VarName)] = fn
		m.scanStmtEscapes(fn, s.Body, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.ForIn:
		declScope[scopeKey(fn, s.VarName)] = fn
		m.scanStmtEscapes(fn, s.Body, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.Return:
		m.scanExprEscapes(fn, s.Value, declScope, directEscapes, pushEdges, fieldEdges)
		if id, ok := s.Value.(*ast.Ident); ok {
			directEscapes[scopeKey(fn, id.Name)] = true
		}
	case *ast.ExprStmt:
		m.scanExprEscapes(fn, s.Expr, declScope, directEscapes, pushEdges, fieldEdges)
	}
}

// scanExprEscapes descends into expressions, recording `x.push(y)` edges,
// `obj.field = y` struct-field edges, and "assigned into a global"
// direct escapes. It also conservatively marks any allocation-bearing
// identifier passed as a bare call argument to a non-built-in callee as
// escaping, since the callee's behavior is unknown.
func (m *Manager) scanExprEscapes(fn string, n ast.Node, declScope map[string]string, directEscapes map[string]bool, pushEdges, fieldEdges map[string][]string) {
	switch e := n.(type) {
	case nil:
		return
	case *ast.BinaryExpr:
		m.scanExprEscapes(fn, e.Left, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanExprEscapes(fn, e.Right, declScope, directEscapes, pushEdges, fieldEdges)
		if e.Op == "=" {
			if lhsIdent, ok := e.Left.(*ast.Ident); ok {
				// A bare, unqualified lookup here is deliberate: it only
				// ever matches a genuine top-level declaration, since
				// every function-scoped key carries its function-name
				// qualifier and a global's never does.
				if scope, known := declScope[lhsIdent.Name]; known && scope == "" && fn != "" {
					if rhsIdent, ok := e.Right.(*ast.Ident); ok {
						directEscapes[scopeKey(fn, rhsIdent.Name)] = true
					}
				}
			}
			if lhsMember, ok := e.Left.(*ast.MemberExpr); ok {
				if structIdent, ok := lhsMember.Object.(*ast.Ident); ok {
					if rhsIdent, ok := e.Right.(*ast.Ident); ok {
						fieldEdges[scopeKey(fn, rhsIdent.Name)] = append(fieldEdges[scopeKey(fn, rhsIdent.Name)], scopeKey(fn, structIdent.Name))
					}
				}
			}
		}
	case *ast.CallExpr:
		if member, ok := e.Callee.(*ast.MemberExpr); ok {
			if recv, ok := member.Object.(*ast.Ident); ok && member.Property == "push" && len(e.Args) == 1 {
				if argIdent, ok := e.Args[0].(*ast.Ident); ok {
					pushEdges[scopeKey(fn, argIdent.Name)] = append(pushEdges[scopeKey(fn, argIdent.Name)], scopeKey(fn, recv.Name))
					return
				}
			}
		}
		builtin := isBuiltinCallee(e.Callee)
		for _, arg := range e.Args {
			m.scanExprEscapes(fn, arg, declScope, directEscapes, pushEdges, fieldEdges)
			if !builtin {
				if argIdent, ok := arg.(*ast.Ident); ok {
					directEscapes[scopeKey(fn, argIdent.Name)] = true
				}
			}
		}
	case *ast.MemberExpr:
		m.scanExprEscapes(fn, e.Object, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.IndexExpr:
		m.scanExprEscapes(fn, e.Object, declScope, directEscapes, pushEdges, fieldEdges)
		m.scanExprEscapes(fn, e.Index, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.PrefixUnary:
		m.scanExprEscapes(fn, e.Operand, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.PostfixUnary:
		m.scanExprEscapes(fn, e.Operand, declScope, directEscapes, pushEdges, fieldEdges)
	case *ast.ArrayLit:
		for _, el := range e.Elements {
			m.scanExprEscapes(fn, el, declScope, directEscapes, pushEdges, fieldEdges)
		}
	case *ast.ObjectLit:
		for _, f := range e.Fields {
			m.scanExprEscapes(fn, f.Value, declScope, directEscapes, pushEdges, fieldEdges)
		}
	}
}

// captureFieldEdges records "this variable's declared object literal
// fields are owned by it" so a later escape of the struct variable
// propagates to the field values.
func (m *Manager) captureFieldEdges(fn, structName string, init ast.Node, fieldEdges map[string][]string) {
	lit, ok := init.(*ast.ObjectLit)
	if !ok {
		return
	}
	for _, f := range lit.Fields {
		if fIdent, ok := f.Value.(*ast.Ident); ok {
			fieldEdges[scopeKey(fn, fIdent.Name)] = append(fieldEdges[scopeKey(fn, fIdent.Name)], scopeKey(fn, structName))
		}
	}
}

func isBuiltinCallee(callee ast.Node) bool {
	member, ok := callee.(*ast.MemberExpr)
	if ok {
		return member.Property == "push" || member.Property == "pop"
	}
	if ident, ok := callee.(*ast.Ident); ok {
		return ident.Name == "console"
	}
	return false
}

// Escapes reports whether a variable was classified as escaping. fn is the
// name of its enclosing function, "" for a top-level declaration.
func (m *Manager) Escapes(fn, name string) bool {
	return m.escapes[scopeKey(fn, name)]
}

// InsertGCVariablesCreationIfNecessary declares, at the start of the
// scope's declaration region, whatever bookkeeping that scope's releases
// need: for the top level, the global pointer table that tracks every
// escapee so it can be released exactly once at program exit.
func (m *Manager) InsertGCVariablesCreationIfNecessary(scope *FuncScope, e *emitter.Emitter) {
	if scope == nil {
		e.Emit(fmt.Sprintf("static void **__gc_roots[%d];\n", capOrOne(m.escapeeCount())))
		e.Emit("static int __gc_root_count = 0;\n")
		return
	}
	// Per-function destructor bookkeeping: none is needed in this
	// design (every non-escaping allocation is known statically), but
	// the hook exists so a future scope-local pool could be wired in
	// without changing the Transpiler's call sites.
}

func capOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (m *Manager) escapeeCount() int {
	n := 0
	for _, esc := range m.escapes {
		if esc {
			n++
		}
	}
	return n
}

// InsertGlobalPointerIfNecessary registers decl's variable with the global
// pointer table, at the current emission point, if it escapes. No-op
// otherwise. Duplicate registration is prevented by construction: each
// declaration is only ever visited once by the Transpiler. The table
// stores the variable's address rather than a snapshot of its value, so a
// later reassignment of the same variable is still released correctly at
// program exit.
func (m *Manager) InsertGlobalPointerIfNecessary(decl *ast.VarDecl, fn, expr string, e *emitter.Emitter) {
	key := scopeKey(fn, decl.Name)
	if !m.escapes[key] {
		return
	}
	if m.globalTableSet[key] {
		return
	}
	m.globalTableSet[key] = true
	m.globalTable = append(m.globalTable, key)
	e.Emit(fmt.Sprintf("__gc_roots[__gc_root_count++] = (void**)&%s;\n", expr))
}

// InsertDestructorsIfNecessary emits release code for every
// non-escaping allocation whose scope is scope, in reverse allocation
// order (LIFO), immediately before a normal exit point. Called once at
// the end of a function body and once before every return statement in
// that function. scope == nil means "top level": top-level allocations
// are released by the global pointer table walk at program exit, not
// here, so this is a no-op for the global scope.
func (m *Manager) InsertDestructorsIfNecessary(scope *FuncScope, e *emitter.Emitter) {
	if scope == nil {
		return
	}
	allocs := m.funcAllocs[scope.Name]
	for i := len(allocs) - 1; i >= 0; i-- {
		name := allocs[i]
		if m.escapes[scopeKey(scope.Name, name)] {
			continue
		}
		vi, ok := m.th.GetVariableInfo(scope.Name, name)
		if !ok {
			continue
		}
		m.emitRelease(e, name, vi.Type)
	}
}

// FinalizeGlobalTable emits the program-exit walk that releases every
// escapee exactly once, in insertion order.
func (m *Manager) FinalizeGlobalTable(e *emitter.Emitter) {
	e.Emit("{\n")
	e.IncreaseIndent()
	e.Emit("int __i;\n")
	e.Emit("for (__i = 0; __i < __gc_root_count; __i++) {\n")
	e.IncreaseIndent()
	e.Emit("free(*__gc_roots[__i]);\n")
	e.DecreaseIndent()
	e.Emit("}\n")
	e.DecreaseIndent()
	e.Emit("}\n")
}

// emitRelease writes the release expression for one value of type ct
// bound to the C expression varExpr, recursing into struct fields and
// array elements that themselves require allocation ("nested frees for
// owned sub-allocations"), array data buffers last.
func (m *Manager) emitRelease(e *emitter.Emitter, varExpr string, ct types.CType) {
	switch ct.Kind {
	case types.CStruct:
		for _, f := range ct.Fields {
			if m.fields != nil && m.fields.IsFieldWeak(ct.StructName, f.Name) {
				continue
			}
			if f.Type.RequiresAllocation() {
				m.emitRelease(e, fmt.Sprintf("%s->%s", varExpr, f.Name), f.Type)
			}
		}
		e.Emit(fmt.Sprintf("free(%s);\n", varExpr))
	case types.CArray:
		if ct.Elem != nil && ct.Elem.RequiresAllocation() {
			idx := "__fi"
			sizeExpr := varExpr + ".size"
			if !ct.Dynamic {
				sizeExpr = fmt.Sprintf("%d", ct.Capacity)
			}
			e.Emit("{\n")
			e.IncreaseIndent()
			e.Emit(fmt.Sprintf("int %s;\n", idx))
			e.Emit(fmt.Sprintf("for (%s = 0; %s < %s; %s++) {\n", idx, idx, sizeExpr, idx))
			e.IncreaseIndent()
			elemExpr := fmt.Sprintf("%s.data[%s]", varExpr, idx)
			if !ct.Dynamic {
				elemExpr = fmt.Sprintf("%s[%s]", varExpr, idx)
			}
			m.emitRelease(e, elemExpr, *ct.Elem)
			e.DecreaseIndent()
			e.Emit("}\n")
			e.DecreaseIndent()
			e.Emit("}\n")
		}
		if ct.Dynamic {
			e.Emit(fmt.Sprintf("free(%s.data);\n", varExpr))
		}
	}
}
