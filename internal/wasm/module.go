package wasm

// Expression is a transcoded instruction sequence: a function body or an
// initializer expression, re-encoded from Wasm's variable-length
// bytecode into a fixed, naturally-aligned operand layout. See
// internal/wasm/binary's transcodeExpression.
type Expression []byte

// CustomSection is a section whose id is 0: a Name followed by an
// opaque payload, passed to a CustomSectionVisitor rather than
// interpreted.
type CustomSection struct {
	Name    string
	Payload []byte
}

// ImportDescriptor is the kind-tagged payload of an Import: only the
// field matching Kind is meaningful. Func is a plain TypeIndex; Table,
// Memory and Global are pointers, nil unless Kind selects them.
type ImportDescriptor struct {
	Kind ExternKind

	Func   TypeIndex
	Table  *TableType
	Memory *MemType
	Global *GlobalType
}

// Import is a single imported entity.
type Import struct {
	Module     string
	Name       string
	Descriptor ImportDescriptor
}

// Global is a module-defined global: its type and constant initializer.
type Global struct {
	Type GlobalType
	Init Expression
}

// ExportDescriptor is the kind-tagged index an Export resolves to.
type ExportDescriptor struct {
	Kind  ExternKind
	Index uint32
}

// Export is a single named, exported entity.
type Export struct {
	Name       string
	Descriptor ExportDescriptor
}

// ElementMode classifies an ElementSegment's initialization behavior.
type ElementMode byte

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// ElementSegment is a canonical form collapsing all eight binary
// encodings of element segments (see spec.md §4.4's ElementSegment &
// DataSegment note, and original_source's decodable_impls.rs dispatch).
//
// Exactly one of Indices or Exprs is populated, matching whichever of
// the two init-vector wire encodings the segment used, so a
// function-index list stays distinct from an explicit ref.func
// constexpr list once decoded into this form.
type ElementSegment struct {
	Type RefType
	Mode ElementMode

	// Active-mode fields.
	TableIndex TableIndex
	OffsetExpr Expression

	Indices []FuncIndex
	Exprs   []Expression
}

// DataMode classifies a DataSegment's initialization behavior.
type DataMode byte

const (
	DataModeActive DataMode = iota
	DataModePassive
)

// DataSegment is a canonical form collapsing all three binary encodings
// of data segments.
type DataSegment struct {
	Mode DataMode

	MemIndex   MemIndex
	OffsetExpr Expression

	Init []byte
}

// MaxLocalsPerFunction is the maximum number of local slots a single
// function may declare, counted after expanding the group encoding
// (count x ValType) into Code.LocalTypes.
const MaxLocalsPerFunction = 2000

// Code is a function body as decoded from the code section: its
// flattened locals followed by its transcoded expression.
type Code struct {
	LocalTypes []ValType
	Body       Expression
}

// Module is the fully materialized result of decoding a Wasm binary
// module. Every field is populated exactly once by the decoder and
// never mutated afterward; Validate reads it without reordering any
// section.
type Module struct {
	Version uint32

	Custom []CustomSection

	Types     []FunctionType
	Imports   []Import
	Functions []TypeIndex // one entry per function defined (not imported) in this module
	Tables    []TableType
	Memories  []MemType
	Globals   []Global
	Exports   []Export
	Start     *FuncIndex
	Elements  []ElementSegment
	DataCount *uint32
	Code      []Code
	Data      []DataSegment
}
