// Package wasm defines the in-memory data model produced by decoding a
// Wasm binary module: value types, indices, limits, the module record
// and its per-section element types, plus the opcode and operand-kind
// tables used by the expression transcoder.
package wasm

import "fmt"

// ValType is a Wasm value type: a tagged variant over i32, i64, f32, f64,
// v128, funcref and externref, each with a fixed single-byte encoding.
//
// See https://webassembly.github.io/spec/core/binary/types.html#binary-valtype
type ValType byte

const (
	ValueTypeI32       ValType = 0x7f
	ValueTypeI64       ValType = 0x7e
	ValueTypeF32       ValType = 0x7d
	ValueTypeF64       ValType = 0x7c
	ValueTypeV128      ValType = 0x7b
	ValueTypeFuncref   ValType = 0x70
	ValueTypeExternref ValType = 0x6f
)

// Valid reports whether t is one of the fixed tagged variants.
func (t ValType) Valid() bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128, ValueTypeFuncref, ValueTypeExternref:
		return true
	}
	return false
}

func (t ValType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	}
	return fmt.Sprintf("%#x", byte(t))
}

// RefType is the subset of ValType usable as a reference type: funcref or
// externref. It shares its byte encoding with ValType.
type RefType byte

const (
	RefTypeFuncref   RefType = RefType(ValueTypeFuncref)
	RefTypeExternref RefType = RefType(ValueTypeExternref)
)

func (t RefType) Valid() bool {
	return t == RefTypeFuncref || t == RefTypeExternref
}

// AsValType widens a RefType to the corresponding ValType.
func (t RefType) AsValType() ValType { return ValType(t) }

func (t RefType) String() string { return ValType(t).String() }

// Index kinds. Every kind of index is a distinct type so that, for
// example, passing a TableIndex where a FuncIndex is expected is a
// compile error rather than a latent bug.
type (
	TypeIndex   uint32
	FuncIndex   uint32
	TableIndex  uint32
	MemIndex    uint32
	GlobalIndex uint32
	ElemIndex   uint32
	DataIndex   uint32
	LocalIndex  uint32
	LabelIndex  uint32
)

// Limits is a minimum and optional maximum, used by MemType (in pages)
// and TableType (in elements).
type Limits struct {
	Min uint32
	Max *uint32
}

// MemoryMaxPages is the hard upper bound on Wasm linear memory size, in
// 64 KiB pages.
const MemoryMaxPages = 65536

// MemType describes a memory's size limits, in 64 KiB pages.
type MemType struct {
	Limits Limits
}

// TableType describes a table's element type and size limits.
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// FunctionType is a function signature: ordered parameter and result
// value types. Encoded with a leading 0x60 tag.
type FunctionType struct {
	Params  []ValType
	Results []ValType
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", t.Params, t.Results)
}

// SectionID identifies one of the thirteen section kinds. Every
// non-custom section must appear at most once, in strictly increasing
// logical order (see LogicalRank); custom sections (id 0) may
// appear any number of times, anywhere, and are excluded from that
// ordering check entirely.
type SectionID byte

const (
	SectionIDCustom    SectionID = 0
	SectionIDType      SectionID = 1
	SectionIDImport    SectionID = 2
	SectionIDFunction  SectionID = 3
	SectionIDTable     SectionID = 4
	SectionIDMemory    SectionID = 5
	SectionIDGlobal    SectionID = 6
	SectionIDExport    SectionID = 7
	SectionIDStart     SectionID = 8
	SectionIDElement   SectionID = 9
	SectionIDCode      SectionID = 10
	SectionIDData      SectionID = 11
	SectionIDDataCount SectionID = 12
)

// sectionLogicalRank maps every non-custom SectionID to its position in
// the order sections must appear in. It equals the byte tag except that
// DataCount logically precedes both Code and Data.
var sectionLogicalRank = map[SectionID]int{
	SectionIDType:      0,
	SectionIDImport:    1,
	SectionIDFunction:  2,
	SectionIDTable:     3,
	SectionIDMemory:    4,
	SectionIDGlobal:    5,
	SectionIDExport:    6,
	SectionIDStart:     7,
	SectionIDElement:   8,
	SectionIDDataCount: 9,
	SectionIDCode:      10,
	SectionIDData:      11,
}

// LogicalRank returns id's position in section ordering. Only valid for
// non-custom section ids; callers must exclude SectionIDCustom from any
// ordering comparison before calling this.
func (id SectionID) LogicalRank() (int, bool) {
	r, ok := sectionLogicalRank[id]
	return r, ok
}

func (id SectionID) String() string {
	switch id {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	case SectionIDDataCount:
		return "data count"
	}
	return fmt.Sprintf("section(%#x)", byte(id))
}

// ExternKind classifies an import or export descriptor.
type ExternKind byte

const (
	ExternKindFunc   ExternKind = 0x00
	ExternKindTable  ExternKind = 0x01
	ExternKindMemory ExternKind = 0x02
	ExternKindGlobal ExternKind = 0x03
)

func (k ExternKind) Valid() bool {
	switch k {
	case ExternKindFunc, ExternKindTable, ExternKindMemory, ExternKindGlobal:
		return true
	}
	return false
}

func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	}
	return fmt.Sprintf("%#x", byte(k))
}
