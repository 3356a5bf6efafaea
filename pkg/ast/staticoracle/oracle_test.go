package staticoracle

import (
	"testing"

	"github.com/repetere/ts2c/pkg/ast"
)

func TestInferVarDeclFromLiteral(t *testing.T) {
	decl := &ast.VarDecl{Name: "x", Init: &ast.NumberLit{Value: 1}}
	unit := &ast.Program{Body: []ast.Node{decl}}

	o := New()
	o.Infer(unit)

	got := o.TypeOf(&ast.Ident{Name: "x"})
	if got.Kind != ast.SKNumber {
		t.Errorf("got %v, want SKNumber", got.Kind)
	}
}

func TestInferVarDeclPrefersDeclaredAnnotation(t *testing.T) {
	decl := &ast.VarDecl{
		Name:     "s",
		Declared: ast.SourceType{Kind: ast.SKString},
		Init:     &ast.NumberLit{Value: 1},
	}
	unit := &ast.Program{Body: []ast.Node{decl}}

	o := New()
	o.Infer(unit)

	got := o.TypeOf(&ast.Ident{Name: "s"})
	if got.Kind != ast.SKString {
		t.Errorf("got %v, want the declared annotation SKString, not the literal's inferred type", got.Kind)
	}
}

func TestInferFuncDeclRecordsSignature(t *testing.T) {
	fn := &ast.FuncDecl{
		Name:       "add",
		Params:     []ast.Param{{Name: "a", Type: ast.SourceType{Kind: ast.SKNumber}}, {Name: "b", Type: ast.SourceType{Kind: ast.SKNumber}}},
		ReturnType: ast.SourceType{Kind: ast.SKNumber},
		Body:       &ast.Block{},
	}
	unit := &ast.Program{Body: []ast.Node{fn}}

	o := New()
	o.Infer(unit)

	sig := o.SignatureOf(fn)
	if sig.Return.Kind != ast.SKNumber {
		t.Errorf("got return kind %v, want SKNumber", sig.Return.Kind)
	}
	if len(sig.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(sig.Params))
	}

	paramType := o.TypeOf(&ast.Ident{Name: "a"})
	if paramType.Kind != ast.SKNumber {
		t.Errorf("expected a's declared param type to be recorded, got %v", paramType.Kind)
	}
}

func TestPropertyTypeLooksUpObjectField(t *testing.T) {
	objType := ast.SourceType{Kind: ast.SKObject, Fields: []ast.SourceField{
		{Name: "x", Type: ast.SourceType{Kind: ast.SKNumber}},
	}}
	decl := &ast.VarDecl{Name: "p", Declared: objType}
	unit := &ast.Program{Body: []ast.Node{decl}}

	o := New()
	o.Infer(unit)

	got := o.PropertyType(&ast.Ident{Name: "p"}, "x")
	if got.Kind != ast.SKNumber {
		t.Errorf("got %v, want SKNumber", got.Kind)
	}

	unknownField := o.PropertyType(&ast.Ident{Name: "p"}, "nope")
	if unknownField.Kind != ast.SKUnknown {
		t.Errorf("got %v for a nonexistent field, want SKUnknown", unknownField.Kind)
	}
}

func TestPropertyTypeArrayLength(t *testing.T) {
	elem := ast.SourceType{Kind: ast.SKNumber}
	arrType := ast.SourceType{Kind: ast.SKArray, Elem: &elem}
	decl := &ast.VarDecl{Name: "arr", Declared: arrType}
	unit := &ast.Program{Body: []ast.Node{decl}}

	o := New()
	o.Infer(unit)

	got := o.PropertyType(&ast.Ident{Name: "arr"}, "length")
	if got.Kind != ast.SKNumber {
		t.Errorf("got %v, want SKNumber for .length", got.Kind)
	}
}

func TestLiteralTypeArrayInfersElementFromFirstElement(t *testing.T) {
	lit := &ast.ArrayLit{Elements: []ast.Node{&ast.NumberLit{Value: 1}, &ast.NumberLit{Value: 2}}}
	decl := &ast.VarDecl{Name: "a", Init: lit}
	unit := &ast.Program{Body: []ast.Node{decl}}

	o := New()
	o.Infer(unit)

	got := o.TypeOf(&ast.Ident{Name: "a"})
	if got.Kind != ast.SKArray {
		t.Fatalf("got %v, want SKArray", got.Kind)
	}
	if got.Capacity != 2 || !got.CapacityKnown {
		t.Errorf("got capacity %d known=%v, want 2/true", got.Capacity, got.CapacityKnown)
	}
	if got.Elem == nil || got.Elem.Kind != ast.SKNumber {
		t.Errorf("got elem type %v, want SKNumber", got.Elem)
	}
}

func TestLiteralTypeBinaryComparisonIsBoolean(t *testing.T) {
	decl := &ast.VarDecl{Name: "b", Init: &ast.BinaryExpr{
		Op:    "<",
		Left:  &ast.NumberLit{Value: 1},
		Right: &ast.NumberLit{Value: 2},
	}}
	unit := &ast.Program{Body: []ast.Node{decl}}

	o := New()
	o.Infer(unit)

	got := o.TypeOf(&ast.Ident{Name: "b"})
	if got.Kind != ast.SKBoolean {
		t.Errorf("got %v, want SKBoolean", got.Kind)
	}
}

func TestLiteralTypeCallExprUsesReturnSignature(t *testing.T) {
	fn := &ast.FuncDecl{Name: "make", ReturnType: ast.SourceType{Kind: ast.SKString}, Body: &ast.Block{}}
	call := &ast.VarDecl{Name: "r", Init: &ast.CallExpr{Callee: &ast.Ident{Name: "make"}}}
	unit := &ast.Program{Body: []ast.Node{fn, call}}

	o := New()
	o.Infer(unit)

	got := o.TypeOf(&ast.Ident{Name: "r"})
	if got.Kind != ast.SKString {
		t.Errorf("got %v, want SKString from make()'s declared return type", got.Kind)
	}
}

func TestForOfAssignsElementTypeToLoopVariable(t *testing.T) {
	elem := ast.SourceType{Kind: ast.SKNumber}
	arrDecl := &ast.VarDecl{Name: "arr", Declared: ast.SourceType{Kind: ast.SKArray, Elem: &elem}}
	loop := &ast.ForOf{
		VarName: "x",
		Iterand: &ast.Ident{Name: "arr"},
		Body:    &ast.Block{},
	}
	unit := &ast.Program{Body: []ast.Node{arrDecl, loop}}

	o := New()
	o.Infer(unit)

	got := o.TypeOf(&ast.Ident{Name: "x"})
	if got.Kind != ast.SKNumber {
		t.Errorf("got %v, want the array's element type SKNumber", got.Kind)
	}
}
