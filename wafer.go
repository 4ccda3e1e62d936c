// Package wafer decodes and validates WebAssembly binary modules: the
// Wasm 1.0 (MVP) core specification plus the bulk-memory-operations and
// reference-types extensions, unconditionally.
//
// Decoding never executes a module; there is no interpreter or compiler
// here. DecodeFromBytes and DecodeFromStream parse a module into
// Module, and Validate performs the cross-section structural checks
// (index bounds, limits, export-name uniqueness, start-function shape,
// section parity) that a module must pass before any later stage —
// execution, analysis, re-encoding — can trust its shape.
package wafer

import (
	"io"

	"github.com/joshuaseaton/wafer/internal/wasm"
	"github.com/joshuaseaton/wafer/internal/wasm/binary"
)

// Re-exported data model. Callers never need to import internal/wasm
// directly.
type (
	Module           = wasm.Module
	FunctionType     = wasm.FunctionType
	Import           = wasm.Import
	ImportDescriptor = wasm.ImportDescriptor
	Export           = wasm.Export
	ExportDescriptor = wasm.ExportDescriptor
	Global           = wasm.Global
	ElementSegment   = wasm.ElementSegment
	DataSegment      = wasm.DataSegment
	Code             = wasm.Code
	CustomSection    = wasm.CustomSection
	Expression       = wasm.Expression
	ValType          = wasm.ValType
	RefType          = wasm.RefType
	Limits           = wasm.Limits
	MemType          = wasm.MemType
	TableType        = wasm.TableType
	GlobalType       = wasm.GlobalType
	ExternKind       = wasm.ExternKind

	TypeIndex   = wasm.TypeIndex
	FuncIndex   = wasm.FuncIndex
	TableIndex  = wasm.TableIndex
	MemIndex    = wasm.MemIndex
	GlobalIndex = wasm.GlobalIndex
	ElemIndex   = wasm.ElemIndex
	DataIndex   = wasm.DataIndex
)

// CustomSectionVisitor receives custom sections as they are encountered
// during decode. A nil visitor (the default) discards every custom
// section's payload without materializing it.
type CustomSectionVisitor = binary.CustomSectionVisitor

// ValidationReport is returned by Validate alongside a nil error, and
// records any validation step the module required but this package does
// not perform (currently, instruction and constant-expression
// type-checking).
type ValidationReport = binary.ValidationReport

// Stream is the abstract byte source DecodeFromStream reads from.
// NewByteSliceStream and NewReadSeekStream construct one over an
// in-memory buffer or a seekable reader, respectively.
type Stream = binary.Stream

// NewByteSliceStream returns a Stream backed by an in-memory byte slice.
func NewByteSliceStream(data []byte) Stream { return binary.NewByteSliceStream(data) }

// NewReadSeekStream returns a Stream backed by an io.ReadSeeker.
func NewReadSeekStream(r io.ReadSeeker) Stream { return binary.NewReadSeekStream(r) }

// DecodeFromBytes decodes a complete module from an in-memory byte
// slice. visitor may be nil.
func DecodeFromBytes(data []byte, visitor CustomSectionVisitor) (*Module, error) {
	return binary.DecodeModule(binary.NewByteSliceStream(data), visitor)
}

// DecodeFromStream decodes a complete module from an arbitrary Stream,
// which may be backed by true streaming I/O rather than a fully
// materialized buffer. visitor may be nil.
func DecodeFromStream(s Stream, visitor CustomSectionVisitor) (*Module, error) {
	return binary.DecodeModule(s, visitor)
}

// Validate performs the module validator's cross-section structural
// checks. It does not execute the module or type-check instruction
// sequences; see ValidationReport.
func Validate(m *Module) (*ValidationReport, error) {
	return binary.Validate(m)
}
