package wasm

// Opcode is a single Wasm instruction byte. 0xFC and 0xFD are prefix
// bytes: a 0xFC opcode is followed by a LEB128 BulkOpcode; a 0xFD opcode
// is followed by a LEB128 vector-instruction subopcode (the transcoder
// rejects 0xFD with binary.NotImplementedError).
type Opcode byte

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeEnd         Opcode = 0x0b
	OpcodeBr          Opcode = 0x0c
	OpcodeBrIf        Opcode = 0x0d
	OpcodeBrTable     Opcode = 0x0e
	OpcodeReturn      Opcode = 0x0f
	OpcodeCall        Opcode = 0x10
	OpcodeCallIndirect Opcode = 0x11

	OpcodeDrop   Opcode = 0x1a
	OpcodeSelect Opcode = 0x1b
	// OpcodeSelectT is the post-MVP select with explicit result types.
	OpcodeSelectT Opcode = 0x1c

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeTableGet Opcode = 0x25
	OpcodeTableSet Opcode = 0x26

	OpcodeI32Load    Opcode = 0x28
	OpcodeI64Load    Opcode = 0x29
	OpcodeF32Load    Opcode = 0x2a
	OpcodeF64Load    Opcode = 0x2b
	OpcodeI32Load8S  Opcode = 0x2c
	OpcodeI32Load8U  Opcode = 0x2d
	OpcodeI32Load16S Opcode = 0x2e
	OpcodeI32Load16U Opcode = 0x2f
	OpcodeI64Load8S  Opcode = 0x30
	OpcodeI64Load8U  Opcode = 0x31
	OpcodeI64Load16S Opcode = 0x32
	OpcodeI64Load16U Opcode = 0x33
	OpcodeI64Load32S Opcode = 0x34
	OpcodeI64Load32U Opcode = 0x35
	OpcodeI32Store   Opcode = 0x36
	OpcodeI64Store   Opcode = 0x37
	OpcodeF32Store   Opcode = 0x38
	OpcodeF64Store   Opcode = 0x39
	OpcodeI32Store8  Opcode = 0x3a
	OpcodeI32Store16 Opcode = 0x3b
	OpcodeI64Store8  Opcode = 0x3c
	OpcodeI64Store16 Opcode = 0x3d
	OpcodeI64Store32 Opcode = 0x3e

	OpcodeMemorySize Opcode = 0x3f
	OpcodeMemoryGrow Opcode = 0x40

	OpcodeI32Const Opcode = 0x41
	OpcodeI64Const Opcode = 0x42
	OpcodeF32Const Opcode = 0x43
	OpcodeF64Const Opcode = 0x44

	OpcodeRefNull   Opcode = 0xd0
	OpcodeRefIsNull Opcode = 0xd1
	OpcodeRefFunc   Opcode = 0xd2

	OpcodeBulkPrefix   Opcode = 0xfc
	OpcodeVectorPrefix Opcode = 0xfd
)

// BulkOpcode is the LEB128-u32 subopcode following OpcodeBulkPrefix. It
// spans two unrelated instruction families sharing the 0xFC prefix byte:
// the non-trapping float-to-int conversions (0-7) and the bulk
// table/memory operations (8-17).
type BulkOpcode uint32

const (
	BulkOpcodeI32TruncSatF32S BulkOpcode = 0
	BulkOpcodeI32TruncSatF32U BulkOpcode = 1
	BulkOpcodeI32TruncSatF64S BulkOpcode = 2
	BulkOpcodeI32TruncSatF64U BulkOpcode = 3
	BulkOpcodeI64TruncSatF32S BulkOpcode = 4
	BulkOpcodeI64TruncSatF32U BulkOpcode = 5
	BulkOpcodeI64TruncSatF64S BulkOpcode = 6
	BulkOpcodeI64TruncSatF64U BulkOpcode = 7
	BulkOpcodeMemoryInit      BulkOpcode = 8
	BulkOpcodeDataDrop        BulkOpcode = 9
	BulkOpcodeMemoryCopy      BulkOpcode = 10
	BulkOpcodeMemoryFill      BulkOpcode = 11
	BulkOpcodeTableInit       BulkOpcode = 12
	BulkOpcodeElemDrop        BulkOpcode = 13
	BulkOpcodeTableCopy       BulkOpcode = 14
	BulkOpcodeTableGrow       BulkOpcode = 15
	BulkOpcodeTableSize       BulkOpcode = 16
	BulkOpcodeTableFill       BulkOpcode = 17
)

// MemArg is a memory instruction's alignment hint and offset. Its wire
// decode order is align-then-offset even though this (and the upstream
// Rust) struct lists offset first; callers must preserve that decode
// order.
type MemArg struct {
	Offset uint32
	Align  uint32
}

// CallIndirectOperands are call_indirect's operands: a type index and
// the table it is dispatched through.
type CallIndirectOperands struct {
	TypeIndex  TypeIndex
	TableIndex TableIndex
}

// TableCopyOperands are table.copy's operands.
type TableCopyOperands struct {
	Dst TableIndex
	Src TableIndex
}

// TableInitOperands are table.init's operands.
type TableInitOperands struct {
	ElemIndex  ElemIndex
	TableIndex TableIndex
}

// BrTableOperands are br_table's label vector plus its default label.
type BrTableOperands struct {
	Labels  []LabelIndex
	Default LabelIndex
}

// SelectTOperands are select's explicit result-type vector.
type SelectTOperands struct {
	Types []ValType
}

// BlockTypeKind discriminates BlockType's three encodings.
type BlockTypeKind byte

const (
	BlockTypeEmpty BlockTypeKind = iota
	BlockTypeValue
	BlockTypeIndex
)

// BlockType is block/loop/if's signature: empty, a single inline result
// value type, or an index into the type section.
type BlockType struct {
	Kind      BlockTypeKind
	ValType   ValType
	TypeIndex TypeIndex
}
