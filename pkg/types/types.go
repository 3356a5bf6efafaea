// Package types reconstructs C-level semantic types over the input AST
// (component A of the translation pipeline, "TypeHelper" in the design
// documents) and maintains the variable registry every later pass queries.
package types

import (
	"fmt"
	"strings"

	"github.com/repetere/ts2c/pkg/ast"
)

// CKind is the closed set of C-level type shapes a source value can take.
type CKind int

const (
	CInt16 CKind = iota
	CCharPtr
	CBool
	CVoidPtr
	CStruct
	CArray
	CPointer
)

// CField is one ordered field of a CStruct.
type CField struct {
	Name string
	Type CType
}

// CType is the tagged variant described in the design notes: a primitive,
// a struct (ordered fields, emitted once as a typedef), an array (fixed or
// dynamic), or a pointer to another CType.
type CType struct {
	Kind CKind

	// CStruct only.
	StructName string
	Fields     []CField

	// CArray and CPointer share Elem as "the pointed-to/contained type".
	Elem *CType

	// CArray only.
	Capacity int
	Dynamic  bool
}

// RequiresAllocation reports whether a value of this type is heap
// allocated in the emitted C (structs always; arrays only when dynamic).
func (ct CType) RequiresAllocation() bool {
	return ct.Kind == CStruct || (ct.Kind == CArray && ct.Dynamic)
}

// VariableInfo is the immutable (except Escapes) record TypeHelper creates
// for every named binding during its pre-pass.
type VariableInfo struct {
	Name               string
	DeclSite           ast.Node
	Type               CType
	RequiresAllocation bool
	IsDynamicArray     bool
	Escapes            bool
}

// TypeHelper walks the AST once to assign every variable and expression a
// CType, and hands out stable names for generated loop counters.
//
// The registry is keyed by scope-qualified name, not the bare source
// identifier: two functions that happen to reuse a parameter or local name
// (`function f(x: number){...} function g(x: string){...}`) are distinct
// bindings and must not overwrite one another. currentScope tracks which
// function's body is being walked ("" for top level) while the registry is
// being populated; every lookup from the Transpiler/MemoryManager supplies
// the same scope it is currently emitting for.
type TypeHelper struct {
	oracle ast.TypeOracle

	currentScope string

	registry map[string]*VariableInfo
	order    []string // declaration order (scope-qualified keys), for deterministic struct emission

	structSigs map[string]string // canonical field signature -> struct name
	structDefs []CType           // CStruct CTypes, in first-seen order

	arraySeen map[string]bool // dynamic-array struct name -> seen
	arrayDefs []CType         // CArray (dynamic) CTypes, in first-seen order

	iterCounter int
	populated   bool
}

// NewTypeHelper creates a TypeHelper bound to a type oracle.
func NewTypeHelper(oracle ast.TypeOracle) *TypeHelper {
	return &TypeHelper{
		oracle:     oracle,
		registry:   make(map[string]*VariableInfo),
		structSigs: make(map[string]string),
		arraySeen:  make(map[string]bool),
	}
}

// FigureOutVariablesAndTypes populates the variable registry for the whole
// compilation unit. Idempotent: a second call on the same TypeHelper is a
// no-op.
func (h *TypeHelper) FigureOutVariablesAndTypes(unit *ast.Program) error {
	if h.populated {
		return nil
	}
	h.populated = true

	var errs []string
	for _, n := range unit.Body {
		h.walkTop(n, &errs)
	}
	h.applyPushBounds(unit.Body)
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return nil
}

func (h *TypeHelper) walkTop(n ast.Node, errs *[]string) {
	switch s := n.(type) {
	case *ast.FuncDecl:
		prevScope := h.currentScope
		h.currentScope = s.Name
		sig := h.oracle.SignatureOf(s)
		for i, p := range s.Params {
			pt := p.Type
			if i < len(sig.Params) && sig.Params[i].Kind != ast.SKUnknown {
				pt = sig.Params[i]
			}
			ct := h.ConvertType(pt)
			h.define(p.Name, s, ct)
		}
		if s.Body != nil {
			h.walkStmts(s.Body.Stmts)
			h.applyPushBounds(s.Body.Stmts)
		}
		h.currentScope = prevScope
	default:
		h.walkStmt(n)
	}
}

// pushBound tracks, for one array variable within one function scope,
// the number of statically-countable `.push(...)` calls and whether any
// push occurred inside a loop (which makes the bound unprovable).
type pushBound struct {
	count     int
	unbounded bool
}

// applyPushBounds scans one scope's statements for `name.push(x)` calls
// and raises each array variable's capacity to the larger of its current
// capacity and the provable push count, or marks it dynamic if a push
// occurs where the loop iteration count is not statically known.
func (h *TypeHelper) applyPushBounds(stmts []ast.Node) {
	bounds := make(map[string]*pushBound)
	for _, s := range stmts {
		h.scanPushes(s, false, bounds)
	}
	for name, b := range bounds {
		vi, ok := h.registry[h.scopeKey(h.currentScope, name)]
		if !ok || vi.Type.Kind != CArray {
			continue
		}
		if b.unbounded {
			vi.Type.Dynamic = true
			vi.IsDynamicArray = true
			vi.RequiresAllocation = true
			h.recordArrayDef(vi.Type)
			continue
		}
		if b.count > vi.Type.Capacity {
			vi.Type.Capacity = b.count
		}
	}
}

func (h *TypeHelper) scanPushes(n ast.Node, inLoop bool, bounds map[string]*pushBound) {
	switch s := n.(type) {
	case *ast.Block:
		for _, stmt := range s.Stmts {
			h.scanPushes(stmt, inLoop, bounds)
		}
	case *ast.If:
		h.scanPushes(s.Then, inLoop, bounds)
		if s.Else != nil {
			h.scanPushes(s.Else, inLoop, bounds)
		}
	case *ast.While:
		h.scanPushes(s.Body, true, bounds)
	case *ast.DoWhile:
		h.scanPushes(s.Body, true, bounds)
	case *ast.For:
		h.scanPushes(s.Body, true, bounds)
	case *ast.ForOf:
		h.scanPushes(s.Body, true, bounds)
	case *ast.ForIn:
		h.scanPushes(s.Body, true, bounds)
	case *ast.ExprStmt:
		h.scanPushExpr(s.Expr, inLoop, bounds)
	case *ast.VarDecl:
		if s.Init != nil {
			h.scanPushExpr(s.Init, inLoop, bounds)
		}
	case *ast.Return:
		if s.Value != nil {
			h.scanPushExpr(s.Value, inLoop, bounds)
		}
	}
}

func (h *TypeHelper) scanPushExpr(n ast.Node, inLoop bool, bounds map[string]*pushBound) {
	call, ok := n.(*ast.CallExpr)
	if !ok {
		return
	}
	member, ok := call.Callee.(*ast.MemberExpr)
	if !ok || member.Property != "push" {
		return
	}
	recv, ok := member.Object.(*ast.Ident)
	if !ok {
		return
	}
	b, ok := bounds[recv.Name]
	if !ok {
		b = &pushBound{}
		bounds[recv.Name] = b
	}
	if inLoop {
		b.unbounded = true
		return
	}
	b.count++
}

func (h *TypeHelper) walkStmts(stmts []ast.Node) {
	for _, s := range stmts {
		h.walkStmt(s)
	}
}

func (h *TypeHelper) walkStmt(n ast.Node) {
	switch s := n.(type) {
	case *ast.VarDecl:
		st := s.Declared
		if st.Kind == ast.SKUnknown && s.Init != nil {
			st = h.oracle.TypeOf(s.Init)
		}
		ct := h.ConvertType(st)
		h.define(s.Name, s, ct)
	case *ast.Block:
		h.walkStmts(s.Stmts)
	case *ast.If:
		h.walkStmt(s.Then)
		if s.Else != nil {
			h.walkStmt(s.Else)
		}
	case *ast.While:
		h.walkStmt(s.Body)
	case *ast.DoWhile:
		h.walkStmt(s.Body)
	case *ast.For:
		for _, init := range s.Inits {
			h.walkStmt(init)
		}
		h.walkStmt(s.Body)
	case *ast.ForOf:
		elemType := CType{Kind: CVoidPtr}
		if arrInfo, ok := h.GetVariableInfo(h.currentScope, identName(s.Iterand)); ok && arrInfo.Type.Kind == CArray && arrInfo.Type.Elem != nil {
			elemType = *arrInfo.Type.Elem
		}
		h.define(s.VarName, s, elemType)
		h.walkStmt(s.Body)
	case *ast.ForIn:
		h.walkStmt(s.Body)
	}
}

func identName(n ast.Node) string {
	if id, ok := n.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func (h *TypeHelper) define(name string, site ast.Node, ct CType) *VariableInfo {
	vi := &VariableInfo{
		Name:               name,
		DeclSite:           site,
		Type:               ct,
		RequiresAllocation: ct.RequiresAllocation(),
		IsDynamicArray:     ct.Kind == CArray && ct.Dynamic,
	}
	key := h.scopeKey(h.currentScope, name)
	h.registry[key] = vi
	h.order = append(h.order, key)
	if ct.Kind == CArray && ct.Dynamic {
		h.recordArrayDef(ct)
	}
	return vi
}

// scopeKey qualifies name with its enclosing function so that two
// functions reusing the same parameter or local name get distinct
// registry entries. Top-level bindings (scope == "") use the bare name
// unqualified, since there is only ever one top-level scope to collide
// within.
func (h *TypeHelper) scopeKey(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "\x00" + name
}

// recordArrayDef tracks one distinct dynamic-array element shape, keyed by
// the generated struct name, so the Emitter typedefs each exactly once.
func (h *TypeHelper) recordArrayDef(ct CType) {
	name := h.dynamicArrayTypeName(ct)
	if _, ok := h.arraySeen[name]; ok {
		return
	}
	h.arraySeen[name] = true
	h.arrayDefs = append(h.arrayDefs, ct)
}

// ArrayDefs returns every distinct dynamic-array shape encountered, in
// first-seen order, for the Emitter to typedef once each.
func (h *TypeHelper) ArrayDefs() []CType {
	return h.arrayDefs
}

// ConvertType maps a source-language type to a CType per the fixed
// mapping rules: numbers and booleans to scalar C types, strings to
// char*, arrays/objects to Array/Struct, anything else to void*.
func (h *TypeHelper) ConvertType(st ast.SourceType) CType {
	switch st.Kind {
	case ast.SKNumber:
		return CType{Kind: CInt16}
	case ast.SKBoolean:
		return CType{Kind: CBool}
	case ast.SKString:
		return CType{Kind: CCharPtr}
	case ast.SKArray:
		elemSrc := ast.Unknown
		if st.Elem != nil {
			elemSrc = *st.Elem
		}
		elem := h.ConvertType(elemSrc)
		dynamic := !st.CapacityKnown
		return CType{Kind: CArray, Elem: &elem, Capacity: st.Capacity, Dynamic: dynamic}
	case ast.SKObject:
		return h.convertStruct(st)
	default:
		return CType{Kind: CVoidPtr}
	}
}

// convertStruct canonicalises the field signature so that two
// equivalently-shaped object literals share one emitted typedef.
func (h *TypeHelper) convertStruct(st ast.SourceType) CType {
	fields := make([]CField, len(st.Fields))
	sigParts := make([]string, len(st.Fields))
	for i, f := range st.Fields {
		ft := h.ConvertType(f.Type)
		fields[i] = CField{Name: f.Name, Type: ft}
		sigParts[i] = f.Name + ":" + h.typeSignature(ft)
	}
	sig := strings.Join(sigParts, ",")

	if name, ok := h.structSigs[sig]; ok {
		for _, def := range h.structDefs {
			if def.StructName == name {
				return def
			}
		}
	}

	name := fmt.Sprintf("Struct%d", len(h.structDefs))
	ct := CType{Kind: CStruct, StructName: name, Fields: fields}
	h.structSigs[sig] = name
	h.structDefs = append(h.structDefs, ct)
	return ct
}

// typeSignature is a stable, type-only signature used for struct dedup;
// it deliberately ignores struct names so that two structurally equal
// nested structs collapse too.
func (h *TypeHelper) typeSignature(ct CType) string {
	switch ct.Kind {
	case CInt16:
		return "int16"
	case CBool:
		return "bool"
	case CCharPtr:
		return "str"
	case CVoidPtr:
		return "void*"
	case CArray:
		elemSig := "void*"
		if ct.Elem != nil {
			elemSig = h.typeSignature(*ct.Elem)
		}
		return fmt.Sprintf("array(%s,%d,%v)", elemSig, ct.Capacity, ct.Dynamic)
	case CStruct:
		parts := make([]string, len(ct.Fields))
		for i, f := range ct.Fields {
			parts[i] = f.Name + ":" + h.typeSignature(f.Type)
		}
		return "struct{" + strings.Join(parts, ",") + "}"
	default:
		return "?"
	}
}

// StructDefs returns every distinct struct shape encountered, in
// first-seen order, for the Emitter to typedef once each.
func (h *TypeHelper) StructDefs() []CType {
	return h.structDefs
}

// GetTypeString formats ct per the design rules: either "<type> "
// (caller appends the variable name) or a template containing "{var}"
// for C array declarators where the variable name is embedded in the
// type, e.g. "int16_t {var}[5]".
func (h *TypeHelper) GetTypeString(ct CType) string {
	switch ct.Kind {
	case CInt16:
		return "int16_t "
	case CBool:
		return "uint8_t "
	case CCharPtr:
		return "char *"
	case CVoidPtr:
		return "void *"
	case CStruct:
		return ct.StructName + " *"
	case CPointer:
		inner := "void"
		if ct.Elem != nil {
			inner = strings.TrimSpace(h.GetTypeString(*ct.Elem))
		}
		return inner + " *"
	case CArray:
		if ct.Dynamic {
			return h.dynamicArrayTypeName(ct) + " "
		}
		elemType := "void"
		if ct.Elem != nil {
			elemType = strings.TrimSpace(h.GetTypeString(*ct.Elem))
		}
		return fmt.Sprintf("%s {var}[%d]", elemType, ct.Capacity)
	default:
		return "void *"
	}
}

// dynamicArrayTypeName names the generated {data,size,capacity} struct
// for a dynamic array of the given element type.
func (h *TypeHelper) dynamicArrayTypeName(ct CType) string {
	elemSig := "Void"
	if ct.Elem != nil {
		elemSig = sanitizeIdent(h.typeSignature(*ct.Elem))
	}
	return "Array_" + elemSig
}

func sanitizeIdent(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// DeclareVariable substitutes name into ct's type string, handling both
// the "<type> " + name form and the "{var}" template form.
func (h *TypeHelper) DeclareVariable(ct CType, name string) string {
	ts := h.GetTypeString(ct)
	if strings.Contains(ts, "{var}") {
		return strings.ReplaceAll(ts, "{var}", name)
	}
	return ts + name
}

// GetVariableInfo looks up a previously registered variable. scope must be
// the name of the enclosing function the binding was declared in ("" for
// top level), matching whatever scope it was defined under.
func (h *TypeHelper) GetVariableInfo(scope, name string) (*VariableInfo, bool) {
	vi, ok := h.registry[h.scopeKey(scope, name)]
	return vi, ok
}

// SetEscapes promotes a variable's escape flag; the only mutation allowed
// on a VariableInfo after creation, per the lifecycle rule in the design
// notes.
func (h *TypeHelper) SetEscapes(scope, name string, escapes bool) {
	if vi, ok := h.registry[h.scopeKey(scope, name)]; ok {
		vi.Escapes = vi.Escapes || escapes
	}
}

// AllVariables returns every registered variable, in declaration order.
func (h *TypeHelper) AllVariables() []*VariableInfo {
	out := make([]*VariableInfo, 0, len(h.order))
	for _, key := range h.order {
		out = append(out, h.registry[key])
	}
	return out
}

// AddNewIteratorVariable returns a unique, stable int16_t loop counter
// name, scoped uniquely across the whole translation unit by its own
// counter, and registers it in the variable registry (under the top-level
// scope, since the name itself is already globally unique) as a plain,
// non-allocating int16_t.
func (h *TypeHelper) AddNewIteratorVariable(loop ast.Node) string {
	h.iterCounter++
	name := fmt.Sprintf("iterator_%d", h.iterCounter)
	prevScope := h.currentScope
	h.currentScope = ""
	h.define(name, loop, CType{Kind: CInt16})
	h.currentScope = prevScope
	return name
}
