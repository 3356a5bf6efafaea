package ast

// SourceKind is the closed set of source-language types the TypeOracle can
// report. It mirrors the source grammar's type surface, not the emitted C
// types (that mapping lives in pkg/types).
type SourceKind int

const (
	SKUnknown SourceKind = iota
	SKNumber
	SKBoolean
	SKString
	SKArray
	SKObject
)

// SourceField is one field of an SKObject type, in declaration order.
type SourceField struct {
	Name string
	Type SourceType
}

// SourceType is a tagged variant describing a source-language type as
// reported by a TypeOracle.
type SourceType struct {
	Kind SourceKind

	// SKArray only.
	Elem          *SourceType
	Capacity      int
	CapacityKnown bool

	// SKObject only, canonical declaration order.
	Fields []SourceField
}

// Unknown is the zero SourceType, used when the oracle cannot resolve a
// type (unions, unannotated parameters, anything outside the subset).
var Unknown = SourceType{Kind: SKUnknown}

// Signature is a function's source-level type, used to emit C parameter
// and return types for a FuncDecl.
type Signature struct {
	Params []SourceType
	Return SourceType
}

// TypeOracle is the minimum type-checking contract the TypeHelper needs
// from the (external, out-of-scope) type checker: resolve an identifier's
// declared type, a call target's return type, and a property's type.
type TypeOracle interface {
	// TypeOf resolves the static type of an expression node.
	TypeOf(n Node) SourceType
	// SignatureOf resolves a function declaration's parameter and return
	// types.
	SignatureOf(f *FuncDecl) Signature
	// PropertyType resolves the type of `object.property` given the
	// static type of object has already been established.
	PropertyType(object Node, property string) SourceType
}
