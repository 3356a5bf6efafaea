package emitter

import (
	"strings"
	"testing"
)

func TestFinalizeAlwaysIncludesStdintAndStdlib(t *testing.T) {
	e := New()
	got := e.Finalize()
	if !strings.Contains(got, "#include <stdint.h>\n") || !strings.Contains(got, "#include <stdlib.h>\n") {
		t.Errorf("Finalize() = %q, want both stdint.h and stdlib.h unconditionally", got)
	}
}

func TestHeaderDeduplication(t *testing.T) {
	e := New()
	e.EmitPredefinedHeader(HeaderStdio)
	e.EmitPredefinedHeader(HeaderStdio)
	e.EmitPredefinedHeader(HeaderString)
	got := e.Finalize()
	if n := strings.Count(got, "#include <stdio.h>"); n != 1 {
		t.Errorf("got %d copies of stdio.h, want 1", n)
	}
	if !strings.Contains(got, "#include <string.h>") {
		t.Errorf("missing string.h: %q", got)
	}
}

func TestHeaderBoolArrayIsInlineNotRuntimeInclude(t *testing.T) {
	e := New()
	e.EmitPredefinedHeader(HeaderBool)
	e.EmitPredefinedHeader(HeaderArray)
	got := e.Finalize()
	if strings.Contains(got, "runtime.h") {
		t.Errorf("output must be self-contained, got a runtime.h include: %q", got)
	}
	if !strings.Contains(got, "#define TRUE 1") || !strings.Contains(got, "ARRAY_PUSH") {
		t.Errorf("expected inline TRUE/ARRAY_PUSH definitions, got %q", got)
	}
}

func TestEmitOnceToBeginningOfFunctionDedupsPerFunction(t *testing.T) {
	e := New()
	e.Emit("int f(void) {\n")
	e.BeginFunction()
	e.EmitOnceToBeginningOfFunction("int16_t i;\n")
	e.EmitOnceToBeginningOfFunction("int16_t i;\n")
	e.BeginFunctionBody()
	e.Emit("return 0;\n")
	e.FinalizeFunction()

	got := e.CurrentText(TargetGlobals)
	if n := strings.Count(got, "int16_t i;"); n != 1 {
		t.Errorf("got %d declarations of i, want 1, in %q", n, got)
	}

	// A second function gets its own once-set: the same declaration text
	// is legitimate again.
	e.Emit("int g(void) {\n")
	e.BeginFunction()
	e.EmitOnceToBeginningOfFunction("int16_t i;\n")
	e.BeginFunctionBody()
	e.Emit("return 0;\n")
	e.FinalizeFunction()

	got = e.CurrentText(TargetGlobals)
	if n := strings.Count(got, "int16_t i;"); n != 2 {
		t.Errorf("got %d total declarations across both functions, want 2, in %q", n, got)
	}
}

func TestFinalizeFunctionOrdersPrologueBodyEpilogue(t *testing.T) {
	e := New()
	e.Emit("int f(void) {\n")
	e.BeginFunction()
	e.EmitToBeginningOfFunction("int16_t x;\n")
	e.BeginFunctionBody()
	e.Emit("x = 1;\n")
	e.EmitToEpilogue("free(x);\n")
	e.FinalizeFunction()

	got := e.CurrentText(TargetGlobals)
	prologueIdx := strings.Index(got, "int16_t x;")
	bodyIdx := strings.Index(got, "x = 1;")
	epilogueIdx := strings.Index(got, "free(x);")
	if prologueIdx < 0 || bodyIdx < 0 || epilogueIdx < 0 {
		t.Fatalf("missing expected fragment in %q", got)
	}
	if !(prologueIdx < bodyIdx && bodyIdx < epilogueIdx) {
		t.Errorf("expected prologue < body < epilogue ordering, got %q", got)
	}
}

func TestWithTargetRestoresPreviousTarget(t *testing.T) {
	e := New()
	e.Emit("int f(void) {\n")
	e.BeginFunction()
	e.BeginFunctionBody()
	e.Emit("x = 1;\n")
	e.WithTarget(TargetEpilogue, func() {
		e.Emit("free(x);\n")
	})
	e.Emit("return x;\n")
	e.FinalizeFunction()

	got := e.CurrentText(TargetGlobals)
	bodyIdx := strings.Index(got, "x = 1;")
	epilogueIdx := strings.Index(got, "free(x);")
	returnIdx := strings.Index(got, "return x;")
	if bodyIdx < 0 || epilogueIdx < 0 || returnIdx < 0 {
		t.Fatalf("missing expected fragment in %q", got)
	}
	if !(bodyIdx < returnIdx && returnIdx < epilogueIdx) {
		t.Errorf("expected the WithTarget call to land in the epilogue, after body text emitted via the restored target, got %q", got)
	}
}

func TestSetTextRewindsCheckpoint(t *testing.T) {
	e := New()
	before := e.CurrentText(TargetGlobals)
	e.Emit("i = 0;\n")
	after := e.CurrentText(TargetGlobals)
	written := strings.TrimPrefix(after, before)
	e.SetText(TargetGlobals, before)
	if e.CurrentText(TargetGlobals) != before {
		t.Fatalf("SetText did not rewind, got %q", e.CurrentText(TargetGlobals))
	}
	if strings.TrimSuffix(written, ";\n") != "i = 0" {
		t.Errorf("got captured text %q", written)
	}
}

func TestIndentation(t *testing.T) {
	e := New()
	e.Emit("if (x) {\n")
	e.IncreaseIndent()
	e.Emit("y = 1;\n")
	e.DecreaseIndent()
	e.Emit("}\n")
	got := e.CurrentText(TargetGlobals)
	want := "if (x) {\n  y = 1;\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFinalizeIsIdempotentlyEmptyOnSecondCall(t *testing.T) {
	e := New()
	e.Emit("int x;\n")
	first := e.Finalize()
	if first == "" {
		t.Fatal("expected non-empty output on first Finalize")
	}
	second := e.Finalize()
	if second != "" {
		t.Errorf("expected a second Finalize call to return empty, got %q", second)
	}
}
