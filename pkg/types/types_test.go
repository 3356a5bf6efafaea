package types

import (
	"strings"
	"testing"

	"github.com/repetere/ts2c/pkg/ast"
)

type fakeOracle struct{}

func (fakeOracle) TypeOf(n ast.Node) ast.SourceType             { return ast.Unknown }
func (fakeOracle) SignatureOf(f *ast.FuncDecl) ast.Signature    { return ast.Signature{} }
func (fakeOracle) PropertyType(o ast.Node, p string) ast.SourceType { return ast.Unknown }

func TestConvertTypeScalars(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	cases := []struct {
		st   ast.SourceType
		want CKind
	}{
		{ast.SourceType{Kind: ast.SKNumber}, CInt16},
		{ast.SourceType{Kind: ast.SKBoolean}, CBool},
		{ast.SourceType{Kind: ast.SKString}, CCharPtr},
		{ast.Unknown, CVoidPtr},
	}
	for _, c := range cases {
		got := h.ConvertType(c.st)
		if got.Kind != c.want {
			t.Errorf("ConvertType(%v) = %v, want %v", c.st, got.Kind, c.want)
		}
	}
}

func TestConvertTypeArrayDynamicVsFixed(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	elem := ast.SourceType{Kind: ast.SKNumber}

	dynamic := h.ConvertType(ast.SourceType{Kind: ast.SKArray, Elem: &elem})
	if !dynamic.Dynamic {
		t.Error("array with no known capacity should be dynamic")
	}

	fixed := h.ConvertType(ast.SourceType{Kind: ast.SKArray, Elem: &elem, Capacity: 5, CapacityKnown: true})
	if fixed.Dynamic {
		t.Error("array with a known capacity should not be dynamic")
	}
	if fixed.Capacity != 5 {
		t.Errorf("got capacity %d, want 5", fixed.Capacity)
	}
}

func TestStructDedupByShape(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	shape := ast.SourceType{Kind: ast.SKObject, Fields: []ast.SourceField{
		{Name: "x", Type: ast.SourceType{Kind: ast.SKNumber}},
		{Name: "y", Type: ast.SourceType{Kind: ast.SKNumber}},
	}}
	a := h.ConvertType(shape)
	b := h.ConvertType(shape)
	if a.StructName != b.StructName {
		t.Errorf("two equivalently-shaped object types got different struct names: %q vs %q", a.StructName, b.StructName)
	}
	if len(h.StructDefs()) != 1 {
		t.Errorf("got %d struct defs, want 1", len(h.StructDefs()))
	}
}

func TestApplyPushBoundsRaisesFixedCapacity(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	numElem := ast.SourceType{Kind: ast.SKNumber}
	// The type an empty literal initializer (`let arr = [];`) gets: a fixed
	// array of known capacity 0. An unsized `number[]` annotation is a
	// dynamic array and stays one.
	arrDecl := &ast.VarDecl{Name: "arr", Declared: ast.SourceType{Kind: ast.SKArray, Elem: &numElem, Capacity: 0, CapacityKnown: true}, Init: &ast.ArrayLit{}}
	h.walkStmt(arrDecl)

	push := func(n string) ast.Node {
		return &ast.ExprStmt{Expr: &ast.CallExpr{
			Callee: &ast.MemberExpr{Object: &ast.Ident{Name: n}, Property: "push"},
			Args:   []ast.Node{&ast.NumberLit{Value: 1}},
		}}
	}
	h.applyPushBounds([]ast.Node{arrDecl, push("arr"), push("arr"), push("arr")})

	vi, ok := h.GetVariableInfo("", "arr")
	if !ok {
		t.Fatal("arr was not registered")
	}
	if vi.Type.Dynamic {
		t.Fatal("a provably-bounded push count should not force a dynamic array")
	}
	if vi.Type.Capacity != 3 {
		t.Errorf("got capacity %d, want 3", vi.Type.Capacity)
	}
}

func TestApplyPushBoundsInLoopForcesDynamic(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	numElem := ast.SourceType{Kind: ast.SKNumber}
	arrDecl := &ast.VarDecl{Name: "arr", Declared: ast.SourceType{Kind: ast.SKArray, Elem: &numElem}, Init: &ast.ArrayLit{}}
	h.walkStmt(arrDecl)

	loop := &ast.While{
		Cond: &ast.BoolLit{Value: true},
		Body: &ast.ExprStmt{Expr: &ast.CallExpr{
			Callee: &ast.MemberExpr{Object: &ast.Ident{Name: "arr"}, Property: "push"},
			Args:   []ast.Node{&ast.NumberLit{Value: 1}},
		}},
	}
	h.applyPushBounds([]ast.Node{arrDecl, loop})

	vi, _ := h.GetVariableInfo("", "arr")
	if !vi.Type.Dynamic {
		t.Error("a push inside a loop with no statically-known iteration count should force a dynamic array")
	}
}

func TestGetTypeStringAndDeclareVariable(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})

	scalar := CType{Kind: CInt16}
	if got := h.DeclareVariable(scalar, "x"); got != "int16_t x" {
		t.Errorf("got %q", got)
	}

	elem := CType{Kind: CInt16}
	fixed := CType{Kind: CArray, Elem: &elem, Capacity: 5}
	if got := h.DeclareVariable(fixed, "arr"); got != "int16_t arr[5]" {
		t.Errorf("got %q", got)
	}
}

func TestSameParamNameAcrossFunctionsDoesNotCollide(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	f := &ast.FuncDecl{Name: "f", Params: []ast.Param{{Name: "x", Type: ast.SourceType{Kind: ast.SKNumber}}}, Body: &ast.Block{}}
	g := &ast.FuncDecl{Name: "g", Params: []ast.Param{{Name: "x", Type: ast.SourceType{Kind: ast.SKString}}}, Body: &ast.Block{}}

	if err := h.FigureOutVariablesAndTypes(&ast.Program{Body: []ast.Node{f, g}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fx, ok := h.GetVariableInfo("f", "x")
	if !ok {
		t.Fatal("f's x was not registered")
	}
	if fx.Type.Kind != CInt16 {
		t.Errorf("f's x got kind %v, want CInt16", fx.Type.Kind)
	}

	gx, ok := h.GetVariableInfo("g", "x")
	if !ok {
		t.Fatal("g's x was not registered")
	}
	if gx.Type.Kind != CCharPtr {
		t.Errorf("g's x got kind %v, want CCharPtr", gx.Type.Kind)
	}
}

func TestDynamicArrayTypeNameIsStableAcrossShape(t *testing.T) {
	h := NewTypeHelper(fakeOracle{})
	elem := CType{Kind: CCharPtr}
	ct := CType{Kind: CArray, Elem: &elem, Dynamic: true}
	name := h.dynamicArrayTypeName(ct)
	if !strings.HasPrefix(name, "Array_") {
		t.Errorf("got %q, want a name starting with Array_", name)
	}
}
