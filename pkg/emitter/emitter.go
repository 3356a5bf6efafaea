// Package emitter is a multi-target text buffer (component C, "Emitter"
// in the design documents): global declarations, a per-function prologue,
// body, and epilogue, and a deduplicated header set, flattened into one C
// translation unit by Finalize.
package emitter

import (
	"sort"
	"strings"
)

// Target names one of the Emitter's text buffers.
type Target int

const (
	TargetGlobals Target = iota
	TargetPrologue
	TargetBody
	TargetEpilogue
	TargetHeaders
)

// HeaderKey is the closed enumeration of prelude blocks EmitPredefinedHeader
// accepts: the standard includes every emitted unit might need, plus the
// small runtime macros the output is self-contained enough to define
// inline rather than pull in from an external header.
type HeaderKey int

const (
	HeaderStdio HeaderKey = iota
	HeaderString
	HeaderAssert
	HeaderBool
	HeaderArray
	HeaderArrayPop
	HeaderJsEq
)

// headerText maps every key to the literal text it contributes to the top
// of the translation unit. stdint.h and stdlib.h are not here: every unit
// declares the global root table and its release loop regardless of
// whether the source uses malloc anywhere explicitly, so Finalize always
// includes them rather than tracking them as optional. HeaderBool,
// HeaderArray, HeaderArrayPop, and HeaderJsEq are not #include lines: the
// output must stand on its own, so the boolean constants and the
// coercion/growable-array macros are defined directly in the generated
// file instead of assuming an external runtime header exists.
var headerText = map[HeaderKey]string{
	HeaderStdio:  "#include <stdio.h>\n",
	HeaderString: "#include <string.h>\n",
	HeaderAssert: "#include <assert.h>\n",
	HeaderBool:   "typedef uint8_t js_bool_t;\n#define TRUE 1\n#define FALSE 0\n",
	HeaderArray: "#define ARRAY_CREATE(arr, physcap, logcap) do { " +
		"(arr).capacity = (physcap); (arr).size = (logcap); " +
		"(arr).data = malloc(sizeof(*(arr).data) * (arr).capacity); " +
		"} while (0)\n" +
		"#define ARRAY_ENSURE_CAPACITY(arr) do { " +
		"if ((arr).size >= (arr).capacity) { " +
		"(arr).capacity = (arr).capacity ? (arr).capacity * 2 : 4; " +
		"(arr).data = realloc((arr).data, sizeof(*(arr).data) * (arr).capacity); " +
		"} } while (0)\n" +
		"#define ARRAY_PUSH(arr, val) do { ARRAY_ENSURE_CAPACITY(arr); (arr).data[(arr).size++] = (val); } while (0)\n",
	HeaderArrayPop: "#define ARRAY_POP(arr) ((arr).data[--(arr).size])\n",
	HeaderJsEq: "#define js_eq(a, b) ((a) == (b))\n" +
		"#define js_get(obj, key) ((void)(obj), (void)(key), (void *)0)\n",
}

// Emitter collects C source text across the five target buffers and
// flattens them into a single translation unit on Finalize. Not safe for
// concurrent use: each translation needs its own Emitter.
type Emitter struct {
	headersSeen map[HeaderKey]bool
	headerOrder []HeaderKey

	globals strings.Builder

	inFunction bool
	prologue   strings.Builder
	body       strings.Builder
	epilogue   strings.Builder
	current    Target

	indentLevel int
	onceSeen    map[string]bool

	atLineStart map[Target]bool

	finalized bool
}

// New creates an empty Emitter with TargetGlobals as the default target.
func New() *Emitter {
	return &Emitter{
		headersSeen: make(map[HeaderKey]bool),
		onceSeen:    make(map[string]bool),
		current:     TargetGlobals,
		atLineStart: map[Target]bool{
			TargetGlobals:  true,
			TargetPrologue: true,
			TargetBody:     true,
			TargetEpilogue: true,
		},
	}
}

func (e *Emitter) indentString() string {
	return strings.Repeat("  ", e.indentLevel)
}

func (e *Emitter) buffer(t Target) *strings.Builder {
	switch t {
	case TargetGlobals:
		return &e.globals
	case TargetPrologue:
		return &e.prologue
	case TargetBody:
		return &e.body
	case TargetEpilogue:
		return &e.epilogue
	default:
		return nil
	}
}

// writeIndented appends text to buf, prefixing the module's two-space
// indent after every newline, including the one directly preceding text
// if the buffer is currently at the start of a line.
func (e *Emitter) writeIndented(t Target, text string) {
	buf := e.buffer(t)
	if buf == nil || text == "" {
		return
	}
	indent := e.indentString()
	atStart := e.atLineStart[t]
	for i := 0; i < len(text); i++ {
		if atStart && indent != "" {
			buf.WriteString(indent)
		}
		ch := text[i]
		buf.WriteByte(ch)
		atStart = ch == '\n'
	}
	e.atLineStart[t] = atStart
}

// Emit appends text to the current target.
func (e *Emitter) Emit(text string) {
	e.writeIndented(e.current, text)
}

// EmitToBeginningOfFunction appends text to the prologue of the function
// currently being assembled, regardless of the current target.
func (e *Emitter) EmitToBeginningOfFunction(text string) {
	e.writeIndented(TargetPrologue, text)
}

// EmitOnceToBeginningOfFunction is EmitToBeginningOfFunction but
// suppresses duplicates keyed by the exact text, scoped to the function
// currently being assembled. Used for generated iterator counters so a
// unit that happens to reuse a loop shape twice doesn't double-declare.
func (e *Emitter) EmitOnceToBeginningOfFunction(text string) {
	if e.onceSeen[text] {
		return
	}
	e.onceSeen[text] = true
	e.EmitToBeginningOfFunction(text)
}

// EmitToEpilogue appends text to the epilogue of the function currently
// being assembled, regardless of the current target. The Transpiler
// routes a function's trailing destructor calls here through WithTarget
// rather than calling this directly.
func (e *Emitter) EmitToEpilogue(text string) {
	e.writeIndented(TargetEpilogue, text)
}

// EmitPredefinedHeader adds a header to the header set. Re-adding an
// already-present key is a no-op, so repeated calls from unrelated call
// sites never duplicate a line.
func (e *Emitter) EmitPredefinedHeader(key HeaderKey) {
	if e.headersSeen[key] {
		return
	}
	e.headersSeen[key] = true
	e.headerOrder = append(e.headerOrder, key)
}

// BeginFunction opens a fresh, isolated prologue/body/epilogue buffer set
// for the function about to be assembled. The function's own signature
// line must already have been written to TargetGlobals before calling
// this.
func (e *Emitter) BeginFunction() {
	e.inFunction = true
	e.prologue.Reset()
	e.body.Reset()
	e.epilogue.Reset()
	e.onceSeen = make(map[string]bool)
	e.atLineStart[TargetPrologue] = true
	e.atLineStart[TargetBody] = true
	e.atLineStart[TargetEpilogue] = true
	e.current = TargetPrologue
}

// BeginFunctionBody switches the current target to the function body;
// declarations emitted via EmitToBeginningOfFunction still land in the
// prologue regardless of this switch.
func (e *Emitter) BeginFunctionBody() {
	e.current = TargetBody
}

// FinalizeFunction concatenates the prologue, body, and epilogue of the
// function currently being assembled, appends the closing brace, and
// appends the result to TargetGlobals. Resets the per-function state so
// the Emitter is ready for the next function.
func (e *Emitter) FinalizeFunction() {
	e.writeIndented(TargetGlobals, e.prologue.String())
	e.writeIndented(TargetGlobals, e.body.String())
	e.writeIndented(TargetGlobals, e.epilogue.String())
	e.writeIndented(TargetGlobals, "}\n")
	e.inFunction = false
	e.current = TargetGlobals
}

// IncreaseIndent increases the indentation used for subsequent new lines
// by two spaces.
func (e *Emitter) IncreaseIndent() {
	e.indentLevel++
}

// DecreaseIndent decreases the indentation by two spaces; indentation
// never goes negative.
func (e *Emitter) DecreaseIndent() {
	if e.indentLevel > 0 {
		e.indentLevel--
	}
}

// DefaultTarget returns the target Emit currently writes to.
func (e *Emitter) DefaultTarget() Target {
	return e.current
}

// WithTarget runs fn with t as the current target, restoring whatever
// target was current beforehand once fn returns. Used to route a single
// call through a specific buffer without the caller having to track and
// restore e.current itself.
func (e *Emitter) WithTarget(t Target, fn func()) {
	prev := e.current
	e.current = t
	fn()
	e.current = prev
}

// CurrentText returns the full text currently buffered for t. Read-only;
// use SetText to perform the one text-rewriting operation this module
// needs (trimming a trailing ";\n" inside a for-loop header).
func (e *Emitter) CurrentText(t Target) string {
	if t == TargetHeaders {
		return e.headersString()
	}
	buf := e.buffer(t)
	if buf == nil {
		return ""
	}
	return buf.String()
}

// SetText overwrites the full contents of buffer t. The only caller in
// this module is the Transpiler's for-loop handling, which checkpoints
// the prologue/body before emitting a hoisted loop-variable declaration,
// then rewrites the captured tail with its trailing ";\n" stripped so the
// text can be reused verbatim inside a for-header.
func (e *Emitter) SetText(t Target, text string) {
	buf := e.buffer(t)
	if buf == nil {
		return
	}
	buf.Reset()
	buf.WriteString(text)
	e.atLineStart[t] = strings.HasSuffix(text, "\n") || text == ""
}

func (e *Emitter) headersString() string {
	seen := make(map[string]bool)
	var lines []string
	for _, k := range e.headerOrder {
		line := headerText[k]
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	sort.Strings(lines)
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
	}
	return sb.String()
}

// Finalize concatenates the sorted/deduped header set, the contents of
// TargetGlobals, and a trailing newline, and returns the result. Only the
// first call per Emitter produces output; any later call returns "".
func (e *Emitter) Finalize() string {
	if e.finalized {
		return ""
	}
	e.finalized = true
	var sb strings.Builder
	sb.WriteString("#include <stdint.h>\n")
	sb.WriteString("#include <stdlib.h>\n")
	sb.WriteString(e.headersString())
	sb.WriteString(e.globals.String())
	if sb.Len() == 0 || sb.String()[sb.Len()-1] != '\n' {
		sb.WriteString("\n")
	}
	return sb.String()
}
