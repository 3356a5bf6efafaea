package transpiler

import (
	"strings"
	"testing"

	"github.com/repetere/ts2c/pkg/ast"
	"github.com/repetere/ts2c/pkg/ast/staticoracle"
	"github.com/repetere/ts2c/pkg/parser"
	"github.com/repetere/ts2c/pkg/types"
)

func transpile(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	oracle := staticoracle.New()
	oracle.Infer(prog)
	return Transpile(prog, oracle)
}

// TestFixedArrayLengthLowersToConstant models scenario E1: a dynamically
// unbounded-looking array whose every push is statically countable gets a
// fixed C array, and .length lowers to a compile-time constant rather than
// a runtime field read.
func TestFixedArrayLengthLowersToConstant(t *testing.T) {
	out, err := transpile(t, `
		let a = [];
		a.push(1);
		a.push(2);
		a.push(3);
		console.log(a.length);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "a[3]") {
		t.Errorf("expected a fixed-size C array declaration of capacity 3, got:\n%s", out)
	}
	if !strings.Contains(out, `printf("%d\n", 3);`) {
		t.Errorf("expected .length to lower to the literal constant 3, got:\n%s", out)
	}
}

// TestDynamicArrayLiteralUsesArrayCreate covers an array forced dynamic by
// an in-loop push despite having a literal initializer: the literal's
// backing store must still be allocated through ARRAY_CREATE rather than
// the fixed-size C array form scenario E1's bounded case takes.
func TestDynamicArrayLiteralUsesArrayCreate(t *testing.T) {
	out, err := transpile(t, `
		let a = [1, 2];
		let cond = true;
		while (cond) {
			a.push(3);
			cond = false;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ARRAY_CREATE(a, 4, 2);") {
		t.Errorf("expected the literal initializer to allocate through ARRAY_CREATE, got:\n%s", out)
	}
	if !strings.Contains(out, "ARRAY_PUSH(a, 3);") {
		t.Errorf("expected the later push to use ARRAY_PUSH, got:\n%s", out)
	}
}

// TestStringEqualityLowersToStrcmp models scenario E2.
func TestStringEqualityLowersToStrcmp(t *testing.T) {
	out, err := transpile(t, `
		let s = "hi";
		if (s == "hi") {
			console.log(s);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "strcmp(s, \"hi\") == 0") {
		t.Errorf("expected strcmp-based string equality, got:\n%s", out)
	}
	if !strings.Contains(out, "#include <string.h>") {
		t.Errorf("expected string.h to be pulled in, got:\n%s", out)
	}
}

// TestStructReturnedFromFunctionEscapesToGlobalTable models scenario E3: a
// struct returned from a function must be heap-allocated, registered in
// the global root table, and never locally freed.
func TestStructReturnedFromFunctionEscapesToGlobalTable(t *testing.T) {
	out, err := transpile(t, `
		function make(): { x: number } {
			let p: { x: number } = { x: 1 };
			return p;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "malloc(sizeof(*p));") {
		t.Errorf("expected the struct literal to be heap-allocated, got:\n%s", out)
	}
	if !strings.Contains(out, "assert(p != NULL);") {
		t.Errorf("expected a NULL check to follow the malloc, got:\n%s", out)
	}
	if !strings.Contains(out, "#include <assert.h>") {
		t.Errorf("expected assert.h to be pulled in, got:\n%s", out)
	}
	if strings.Contains(out, "free(p)") {
		t.Errorf("an escaping struct must not be locally freed, got:\n%s", out)
	}
}

// TestUnknownTypeEqualityFallsBackToJsEq covers the non-string, non-int16
// branch of binary equality: two parameters the oracle couldn't resolve a
// type for lower to void* and must compare through the runtime helper
// rather than as raw pointers via "==".
func TestUnknownTypeEqualityFallsBackToJsEq(t *testing.T) {
	out, err := transpile(t, `
		function same(a, b): boolean {
			return a == b;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "js_eq(a, b)") {
		t.Errorf("expected a void* equality compare to lower to js_eq, got:\n%s", out)
	}
}

// TestBracketStringKeyLowersToArrowAccess covers the literal-key element
// access rule: obj["literal"] means the same thing as obj.literal.
func TestBracketStringKeyLowersToArrowAccess(t *testing.T) {
	out, err := transpile(t, `
		function getX(p: { x: number }): number {
			return p["x"];
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "return p->x;") {
		t.Errorf("expected a bracketed string-literal key to lower to arrow access, got:\n%s", out)
	}
}

// TestIndexOnUnknownReceiverFallsBackToJsGet covers element access on a
// receiver that isn't statically known to be an array: there is no layout
// to index into, so it falls back to the runtime coercion helper.
func TestIndexOnUnknownReceiverFallsBackToJsGet(t *testing.T) {
	out, err := transpile(t, `
		function get(obj, key: number) {
			console.log(obj[key]);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "js_get(obj, key)") {
		t.Errorf("expected a non-array index to fall back to js_get, got:\n%s", out)
	}
}

// TestLocalStructIsFreedBeforeReturn is the negative case of E3: a struct
// that never leaves its function is freed on every exit path.
func TestLocalStructIsFreedBeforeReturn(t *testing.T) {
	out, err := transpile(t, `
		function use(): void {
			let p: { x: number } = { x: 1 };
			console.log(p.x);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "free(p);") {
		t.Errorf("expected a local struct to be freed, got:\n%s", out)
	}
}

// TestEarlyReturnFreesLocalStructBeforeReturnStatement covers a function
// with two exit paths: the early return's destructor must appear inline,
// immediately before that specific return, not deferred into the epilogue
// the unconditional trailing pass uses for control falling off the end.
func TestEarlyReturnFreesLocalStructBeforeReturnStatement(t *testing.T) {
	out, err := transpile(t, `
		function use(flag: boolean): void {
			let p: { x: number } = { x: 1 };
			if (flag) {
				console.log(p.x);
				return;
			}
			console.log(p.x);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	freeIdx := strings.Index(out, "free(p);")
	returnIdx := strings.Index(out, "return;")
	if freeIdx < 0 || returnIdx < 0 {
		t.Fatalf("expected both a free(p); and an early return, got:\n%s", out)
	}
	if freeIdx > returnIdx {
		t.Errorf("expected the early return's destructor to run before the return statement, got:\n%s", out)
	}
}

// TestUnsupportedOperatorIsReported covers the whitelist added to
// transpileBinary's and transpilePrefix's default arms. The grammar this
// module parses never itself produces an operator outside the accepted
// set, so this constructs the AST node directly to exercise the
// defensive whitelist rather than relying on the parser to smuggle one
// through.
func TestUnsupportedOperatorIsReported(t *testing.T) {
	newTranspiler := func() *Transpiler {
		oracle := staticoracle.New()
		return &Transpiler{oracle: oracle, th: types.NewTypeHelper(oracle), errs: &ErrorList{}}
	}

	tr := newTranspiler()
	bin := &ast.BinaryExpr{
		Op:    "^",
		Left:  &ast.NumberLit{Value: 1},
		Right: &ast.NumberLit{Value: 2},
	}
	tr.transpileBinary(bin, false)
	if err := tr.errs.Err(); err == nil || !strings.Contains(err.Error(), "unsupported operator") {
		t.Errorf("expected an unsupported operator error from transpileBinary, got: %v", err)
	}

	tr = newTranspiler()
	pre := &ast.PrefixUnary{Op: "~", Operand: &ast.NumberLit{Value: 1}}
	tr.transpilePrefix(pre)
	if err := tr.errs.Err(); err == nil || !strings.Contains(err.Error(), "unsupported operator") {
		t.Errorf("expected an unsupported operator error from transpilePrefix, got: %v", err)
	}
}

// TestConsoleLogEscapesEmbeddedQuotesInLiteralFragment covers the
// format-string escaping fix: a string-literal fragment inside
// console.log must have its embedded double quotes (and other
// lexer-decoded escapes) escaped the same way a value-position string
// literal is, not just have its "%" doubled.
func TestConsoleLogEscapesEmbeddedQuotesInLiteralFragment(t *testing.T) {
	out, err := transpile(t, `console.log("he said \"hi\"");`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `\"hi\"`) {
		t.Errorf("expected the embedded quotes to be escaped, got:\n%s", out)
	}
	if strings.Contains(out, `"he said "hi"`) {
		t.Errorf("found an unescaped embedded quote breaking the format string, got:\n%s", out)
	}
}

// TestMultiVariableForLoopHoistsDeclarationsOutOfHeader models scenario E4:
// C89 forbids a declaration in a for-statement's init clause, so both
// counters are declared ahead of the loop and the first one's assignment
// becomes a standalone statement; only the last one's assignment is still
// folded back into the header, matching the single-variable case.
func TestMultiVariableForLoopHoistsDeclarationsOutOfHeader(t *testing.T) {
	out, err := transpile(t, `
		for (let i = 0, j = 10; i < j; i++) {
			console.log(i);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "int16_t i;") || !strings.Contains(out, "int16_t j;") {
		t.Errorf("expected both counters hoisted to declarations, got:\n%s", out)
	}
	if !strings.Contains(out, "i = 0;") {
		t.Errorf("expected the non-last init to be a standalone assignment, got:\n%s", out)
	}
	if !strings.Contains(out, "for (j = 10; (i < j); i++) {") {
		t.Errorf("expected only the last init folded into the header, got:\n%s", out)
	}
}

// TestMultiVariableForLoopHoistsAllocatingLastInit is the companion case:
// when the last induction variable's initializer requires heap allocation
// it cannot be folded into the header, so the init clause stays empty.
func TestMultiVariableForLoopHoistsAllocatingLastInit(t *testing.T) {
	out, err := transpile(t, `
		for (let i = 0, p = { x: 1 }; i < 10; i++) {
			console.log(i);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "p = malloc(sizeof(*p));") {
		t.Errorf("expected the allocating init hoisted as a statement, got:\n%s", out)
	}
	if !strings.Contains(out, "for (; (i < 10); i++) {") {
		t.Errorf("expected an empty init clause once the last init requires allocation, got:\n%s", out)
	}
}

// TestSingleVariableForLoopFoldsInitBackIntoHeader is the companion case:
// exactly one induction variable still gets a normal-looking C for-header.
func TestSingleVariableForLoopFoldsInitBackIntoHeader(t *testing.T) {
	out, err := transpile(t, `
		for (let i = 0; i < 10; i++) {
			console.log(i);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "for (i = 0; (i < 10); i++) {") {
		t.Errorf("expected the single counter's init folded into the header, got:\n%s", out)
	}
}

// TestForOfLowersToIndexedLoop models scenario E5: iteration over an array
// value becomes an index-based for loop since the emitted array types
// carry no iterator of their own.
func TestForOfLowersToIndexedLoop(t *testing.T) {
	out, err := transpile(t, `
		let arr = [1, 2, 3];
		for (let x of arr) {
			console.log(x);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "arr[") || !strings.Contains(out, "for (") {
		t.Errorf("expected an indexed for loop over arr, got:\n%s", out)
	}
}

// TestAssignmentNestedInExpressionIsRejected models scenario E6: an
// assignment is only accepted as its own statement or in the handful of
// expression positions that allow one explicitly (a for-loop's post
// clause); nested inside an arbitrary expression it is an error.
func TestAssignmentNestedInExpressionIsRejected(t *testing.T) {
	_, err := transpile(t, `
		let o = 1;
		let p = 2;
		if (o == (p = 3)) {
			console.log(o);
		}
	`)
	if err == nil {
		t.Fatal("expected an error for an assignment nested inside a larger expression")
	}
	if !strings.Contains(err.Error(), "assignments inside expressions are not supported") {
		t.Errorf("got error %q", err.Error())
	}
}

// TestAssignmentAllowedInForLoopPostClause confirms the allowAssign escape
// hatch actually works at the one place an assignment expression is
// idiomatic: the third clause of a classic for loop is already an
// assignment driving the induction variable, so a hand-written one in that
// exact position must not be rejected either.
func TestAssignmentAllowedInForLoopPostClause(t *testing.T) {
	out, err := transpile(t, `
		for (let i = 0; i < 10; i = i + 1) {
			console.log(i);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "i = (i + 1)") {
		t.Errorf("expected the post clause's assignment to appear, got:\n%s", out)
	}
}

func TestConsoleLogMultipleArgumentsConcatenate(t *testing.T) {
	out, err := transpile(t, `
		let name = "world";
		console.log("hello, ", name);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `printf("hello, %s\n", name);`) {
		t.Errorf("expected one concatenated printf call, got:\n%s", out)
	}
}

func TestFinalizeOutputAlwaysHasStdintAndStdlib(t *testing.T) {
	out, err := transpile(t, `let x: number = 1;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "#include <stdint.h>\n#include <stdlib.h>\n") {
		t.Errorf("expected the unconditional stdint/stdlib prelude first, got:\n%s", out)
	}
}
