package binary

import (
	"encoding/binary"
	"math"

	"github.com/joshuaseaton/wafer/internal/wasm"
)

// operandKind classifies the operand shape following an opcode, driving
// the transcoder's dispatch. It has no bearing on instruction semantics
// and never leaves this package.
type operandKind byte

const (
	operandKindNone operandKind = iota
	operandKindBlockType
	operandKindU32
	operandKindI32
	operandKindI64
	operandKindF32
	operandKindF64
	operandKindMemArg
	operandKindBrTable
	operandKindCallIndirect
	operandKindSelectT
	operandKindRefType
	operandKindOneZeroByte  // memory.size, memory.grow: one dropped reserved byte
	operandKindTwoZeroBytes // memory.copy: two dropped reserved bytes
	operandKindBulkPrefix
	operandKindVectorPrefix
)

// opcodeOperandKind is the static 256-entry opcode->operand-kind table.
// Unlisted opcodes default to operandKindNone, which is correct for
// every zero-operand instruction (unreachable, nop, drop, return, end,
// arithmetic/comparison ops, ...).
var opcodeOperandKind = [256]operandKind{
	wasm.OpcodeBlock: operandKindBlockType,
	wasm.OpcodeLoop:  operandKindBlockType,
	wasm.OpcodeIf:    operandKindBlockType,

	wasm.OpcodeBr:           operandKindU32,
	wasm.OpcodeBrIf:         operandKindU32,
	wasm.OpcodeBrTable:      operandKindBrTable,
	wasm.OpcodeCall:         operandKindU32,
	wasm.OpcodeCallIndirect: operandKindCallIndirect,

	wasm.OpcodeSelectT: operandKindSelectT,

	wasm.OpcodeLocalGet:  operandKindU32,
	wasm.OpcodeLocalSet:  operandKindU32,
	wasm.OpcodeLocalTee:  operandKindU32,
	wasm.OpcodeGlobalGet: operandKindU32,
	wasm.OpcodeGlobalSet: operandKindU32,

	wasm.OpcodeTableGet: operandKindU32,
	wasm.OpcodeTableSet: operandKindU32,

	wasm.OpcodeI32Load:    operandKindMemArg,
	wasm.OpcodeI64Load:    operandKindMemArg,
	wasm.OpcodeF32Load:    operandKindMemArg,
	wasm.OpcodeF64Load:    operandKindMemArg,
	wasm.OpcodeI32Load8S:  operandKindMemArg,
	wasm.OpcodeI32Load8U:  operandKindMemArg,
	wasm.OpcodeI32Load16S: operandKindMemArg,
	wasm.OpcodeI32Load16U: operandKindMemArg,
	wasm.OpcodeI64Load8S:  operandKindMemArg,
	wasm.OpcodeI64Load8U:  operandKindMemArg,
	wasm.OpcodeI64Load16S: operandKindMemArg,
	wasm.OpcodeI64Load16U: operandKindMemArg,
	wasm.OpcodeI64Load32S: operandKindMemArg,
	wasm.OpcodeI64Load32U: operandKindMemArg,
	wasm.OpcodeI32Store:   operandKindMemArg,
	wasm.OpcodeI64Store:   operandKindMemArg,
	wasm.OpcodeF32Store:   operandKindMemArg,
	wasm.OpcodeF64Store:   operandKindMemArg,
	wasm.OpcodeI32Store8:  operandKindMemArg,
	wasm.OpcodeI32Store16: operandKindMemArg,
	wasm.OpcodeI64Store8:  operandKindMemArg,
	wasm.OpcodeI64Store16: operandKindMemArg,
	wasm.OpcodeI64Store32: operandKindMemArg,

	wasm.OpcodeMemorySize: operandKindOneZeroByte,
	wasm.OpcodeMemoryGrow: operandKindOneZeroByte,

	wasm.OpcodeI32Const: operandKindI32,
	wasm.OpcodeI64Const: operandKindI64,
	wasm.OpcodeF32Const: operandKindF32,
	wasm.OpcodeF64Const: operandKindF64,

	wasm.OpcodeRefNull: operandKindRefType,
	wasm.OpcodeRefFunc: operandKindU32,

	wasm.OpcodeBulkPrefix:   operandKindBulkPrefix,
	wasm.OpcodeVectorPrefix: operandKindVectorPrefix,
}

// bulkOperandKind is the analogous table for BulkOpcode values 0..17: the
// non-trapping float-to-int conversions (0-7) take no operands, and the
// bulk table/memory operations (8-17) vary as annotated below.
var bulkOperandKind = map[wasm.BulkOpcode]operandKind{
	wasm.BulkOpcodeI32TruncSatF32S: operandKindNone,
	wasm.BulkOpcodeI32TruncSatF32U: operandKindNone,
	wasm.BulkOpcodeI32TruncSatF64S: operandKindNone,
	wasm.BulkOpcodeI32TruncSatF64U: operandKindNone,
	wasm.BulkOpcodeI64TruncSatF32S: operandKindNone,
	wasm.BulkOpcodeI64TruncSatF32U: operandKindNone,
	wasm.BulkOpcodeI64TruncSatF64S: operandKindNone,
	wasm.BulkOpcodeI64TruncSatF64U: operandKindNone,
	wasm.BulkOpcodeMemoryInit:      operandKindU32, // plus one dropped zero byte, handled specially
	wasm.BulkOpcodeDataDrop:        operandKindU32,
	wasm.BulkOpcodeMemoryCopy:      operandKindTwoZeroBytes,
	wasm.BulkOpcodeMemoryFill:      operandKindOneZeroByte,
	wasm.BulkOpcodeTableInit:       operandKindNone, // TableInitOperands, handled specially
	wasm.BulkOpcodeElemDrop:        operandKindU32,
	wasm.BulkOpcodeTableCopy:       operandKindNone, // TableCopyOperands, handled specially
	wasm.BulkOpcodeTableGrow:       operandKindU32,
	wasm.BulkOpcodeTableSize:       operandKindU32,
	wasm.BulkOpcodeTableFill:       operandKindU32,
}

// exprBuilder accumulates a transcoded expression: a naturally-aligned,
// little-endian, fixed-layout re-encoding of the source LEB128/byte-
// packed instruction stream. Every multi-byte operand is padded to its
// own size so that a reader can reinterpret a slice of the buffer in
// place rather than re-parsing variable-length fields.
type exprBuilder struct {
	buf []byte
}

func (b *exprBuilder) align(size int) {
	if pad := len(b.buf) % size; pad != 0 {
		b.buf = append(b.buf, make([]byte, size-pad)...)
	}
}

func (b *exprBuilder) writeByte(v byte) {
	b.buf = append(b.buf, v)
}

func (b *exprBuilder) writeU32(v uint32) {
	b.align(4)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *exprBuilder) writeU64(v uint64) {
	b.align(8)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *exprBuilder) writeF32(v float32) { b.writeU32(math.Float32bits(v)) }
func (b *exprBuilder) writeF64(v float64) { b.writeU64(math.Float64bits(v)) }

// transcodeExpression reads and re-encodes instructions until a
// top-level `end` closes the expression's own implicit block. Nested
// blocks are tracked only to recognize where that top-level `end` is;
// their contents are transcoded the same as everything else.
func transcodeExpression(d *Decoder) (wasm.Expression, error) {
	b := &exprBuilder{}
	depth := 0
	for {
		opByte, err := d.readByteRaw()
		if err != nil {
			return nil, err
		}
		op := wasm.Opcode(opByte)
		b.writeByte(opByte)

		switch op {
		case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf:
			depth++
		case wasm.OpcodeEnd:
			if depth == 0 {
				return wasm.Expression(b.buf), nil
			}
			depth--
			continue
		default:
		}

		if op == wasm.OpcodeEnd {
			continue
		}

		if err := transcodeOperand(d, b, op); err != nil {
			return nil, err
		}
	}
}

func transcodeOperand(d *Decoder, b *exprBuilder, op wasm.Opcode) error {
	switch opcodeOperandKind[op] {
	case operandKindNone:
		return nil
	case operandKindBlockType:
		bt, err := d.decodeBlockType()
		if err != nil {
			return err
		}
		b.writeByte(byte(bt.Kind))
		b.writeByte(byte(bt.ValType))
		b.writeU32(uint32(bt.TypeIndex))
		return nil
	case operandKindU32:
		v, err := d.readLEB128U32Raw()
		if err != nil {
			return err
		}
		b.writeU32(v)
		return nil
	case operandKindI32:
		v, err := d.readLEB128I32Raw()
		if err != nil {
			return err
		}
		b.writeU32(uint32(v))
		return nil
	case operandKindI64:
		v, err := d.readLEB128I64Raw()
		if err != nil {
			return err
		}
		b.writeU64(uint64(v))
		return nil
	case operandKindF32:
		var raw [4]byte
		if err := d.readExactRaw(raw[:]); err != nil {
			return err
		}
		b.writeF32(math.Float32frombits(binary.LittleEndian.Uint32(raw[:])))
		return nil
	case operandKindF64:
		var raw [8]byte
		if err := d.readExactRaw(raw[:]); err != nil {
			return err
		}
		b.writeF64(math.Float64frombits(binary.LittleEndian.Uint64(raw[:])))
		return nil
	case operandKindMemArg:
		ma, err := d.decodeMemArg()
		if err != nil {
			return err
		}
		b.writeU32(ma.Align)
		b.writeU32(ma.Offset)
		return nil
	case operandKindBrTable:
		ops, err := d.decodeBrTableOperands()
		if err != nil {
			return err
		}
		b.writeU32(uint32(len(ops.Labels)))
		for _, l := range ops.Labels {
			b.writeU32(uint32(l))
		}
		b.writeU32(uint32(ops.Default))
		return nil
	case operandKindCallIndirect:
		ops, err := d.decodeCallIndirectOperands()
		if err != nil {
			return err
		}
		b.writeU32(uint32(ops.TypeIndex))
		b.writeU32(uint32(ops.TableIndex))
		return nil
	case operandKindSelectT:
		ops, err := d.decodeSelectTOperands()
		if err != nil {
			return err
		}
		b.writeU32(uint32(len(ops.Types)))
		for _, t := range ops.Types {
			b.writeByte(byte(t))
		}
		return nil
	case operandKindRefType:
		rt, err := d.decodeRefType()
		if err != nil {
			return err
		}
		b.writeByte(byte(rt))
		return nil
	case operandKindOneZeroByte:
		if err := d.readZeroByte(); err != nil {
			return err
		}
		return nil
	case operandKindTwoZeroBytes:
		if err := d.readZeroByte(); err != nil {
			return err
		}
		if err := d.readZeroByte(); err != nil {
			return err
		}
		return nil
	case operandKindBulkPrefix:
		return transcodeBulkOp(d, b)
	case operandKindVectorPrefix:
		return &NotImplementedError{What: "vector (SIMD) instruction transcoding"}
	}
	return nil
}

// transcodeBulkOp reads the LEB128-u32 subopcode following 0xfc and
// transcodes its operands, which vary per bulk.BulkOpcode.
func transcodeBulkOp(d *Decoder, b *exprBuilder) error {
	raw, err := d.readLEB128U32Raw()
	if err != nil {
		return err
	}
	sub := wasm.BulkOpcode(raw)
	b.writeU32(raw)

	switch sub {
	case wasm.BulkOpcodeMemoryInit:
		dataIdx, err := d.readLEB128U32Raw()
		if err != nil {
			return err
		}
		b.writeU32(dataIdx)
		return d.readZeroByte()
	case wasm.BulkOpcodeTableInit:
		ops, err := d.decodeTableInitOperands()
		if err != nil {
			return err
		}
		b.writeU32(uint32(ops.ElemIndex))
		b.writeU32(uint32(ops.TableIndex))
		return nil
	case wasm.BulkOpcodeTableCopy:
		ops, err := d.decodeTableCopyOperands()
		if err != nil {
			return err
		}
		b.writeU32(uint32(ops.Dst))
		b.writeU32(uint32(ops.Src))
		return nil
	default:
		kind, ok := bulkOperandKind[sub]
		if !ok {
			return &InvalidBulkOpcodeError{Got: raw}
		}
		switch kind {
		case operandKindU32:
			v, err := d.readLEB128U32Raw()
			if err != nil {
				return err
			}
			b.writeU32(v)
			return nil
		case operandKindOneZeroByte:
			return d.readZeroByte()
		case operandKindTwoZeroBytes:
			if err := d.readZeroByte(); err != nil {
				return err
			}
			return d.readZeroByte()
		default:
			return nil
		}
	}
}
