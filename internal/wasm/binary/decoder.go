package binary

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"

	"github.com/joshuaseaton/wafer/internal/leb128"
	"github.com/joshuaseaton/wafer/internal/wasm"
)

// wasmMagic is the little-endian interpretation of the four magic bytes
// \0asm.
const wasmMagic = 0x6d736100

// maxVectorPrealloc bounds how many elements decodeVector will reserve
// capacity for up front, regardless of a vector's declared length. A
// hostile length field can still be read to completion — each element
// is still parsed one at a time off the stream, so reading stops the
// moment the stream runs out — it just cannot force an oversized
// allocation before the first read. This is the Go rendition of the
// AllocError guard spec.md's allocator-parameterized design achieves
// with an explicit capacity-reservation step.
const maxVectorPrealloc = 4096

// readChunkSize bounds a single raw-byte read allocation for the same
// reason.
const readChunkSize = 1 << 16

// Decoder holds the streaming decode state: the byte source and the
// bounded context stack used to annotate errors.
type Decoder struct {
	stream  Stream
	context contextStack
	visitor CustomSectionVisitor
}

// NewDecoder returns a Decoder reading from s. A nil visitor is treated
// as NoopCustomSectionVisitor.
func NewDecoder(s Stream, visitor CustomSectionVisitor) *Decoder {
	if visitor == nil {
		visitor = NoopCustomSectionVisitor{}
	}
	return &Decoder{stream: s, visitor: visitor}
}

// DecodeModule decodes a complete module from s. On error, the
// returned error is an *ErrorWithContext carrying the context-stack
// trace active when the failure occurred.
func DecodeModule(s Stream, visitor CustomSectionVisitor) (*wasm.Module, error) {
	d := NewDecoder(s, visitor)
	m, err := decodeModule(d)
	if err != nil {
		return nil, &ErrorWithContext{Err: err, Frames: d.context.snapshot()}
	}
	return m, nil
}

// withContext pushes a context frame for id at the stream's current
// offset, runs f, and pops the frame only on success — an error leaves
// the frame (and every frame below it) on the stack so the final error
// carries the full nesting trace.
func withContext[T any](d *Decoder, id contextID, f func() (T, error)) (T, error) {
	offset := d.stream.Offset()
	if !d.context.push(id, offset) {
		var zero T
		return zero, &ExcessiveParsingDepthError{Context: id, Offset: offset}
	}
	v, err := f()
	if err != nil {
		var zero T
		return zero, err
	}
	d.context.pop()
	return v, nil
}

func withContextErr(d *Decoder, id contextID, f func() error) error {
	_, err := withContext(d, id, func() (struct{}, error) {
		return struct{}{}, f()
	})
	return err
}

// decodeVector implements the vec<T> grammar: a u32 length L followed by
// exactly L values of T.
func decodeVector[T any](d *Decoder, id contextID, elem func() (T, error)) ([]T, error) {
	return withContext(d, id, func() ([]T, error) {
		n, err := d.readLEB128U32Raw()
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, minUint32(n, maxVectorPrealloc))
		for i := uint32(0); i < n; i++ {
			v, err := elem()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// Primitive reads.

func (d *Decoder) readByteRaw() (byte, error) {
	return d.stream.ReadByte()
}

func (d *Decoder) readExactRaw(buf []byte) error {
	return d.stream.ReadExact(buf)
}

func (d *Decoder) skipBytes(n int64) error {
	return d.stream.SkipBytes(n)
}

// readZeroByte reads a single byte that must equal 0x00: the reserved
// bytes following memory.size, memory.grow, memory.init and two of them
// after memory.copy.
func (d *Decoder) readZeroByte() error {
	b, err := d.readByteRaw()
	if err != nil {
		return err
	}
	if b != 0 {
		return &InvalidTokenError{Got: b}
	}
	return nil
}

func (d *Decoder) readLEB128U32Raw() (uint32, error) {
	v, err := leb128.DecodeUint32(d.stream)
	if err != nil {
		if errors.Is(err, leb128.ErrOverflow) {
			return 0, InvalidLEB128Error{}
		}
		return 0, err
	}
	return v, nil
}

func (d *Decoder) readLEB128I32Raw() (int32, error) {
	v, err := leb128.DecodeInt32(d.stream)
	if err != nil {
		if errors.Is(err, leb128.ErrOverflow) {
			return 0, InvalidLEB128Error{}
		}
		return 0, err
	}
	return v, nil
}

func (d *Decoder) readLEB128I64Raw() (int64, error) {
	v, err := leb128.DecodeInt64(d.stream)
	if err != nil {
		if errors.Is(err, leb128.ErrOverflow) {
			return 0, InvalidLEB128Error{}
		}
		return 0, err
	}
	return v, nil
}

// readBytesBounded reads exactly n bytes, in bounded chunks, so a
// hostile declared length cannot force one oversized allocation before
// the stream is actually found to be short.
func (d *Decoder) readBytesBounded(n uint32) ([]byte, error) {
	out := make([]byte, 0, minUint32(n, readChunkSize))
	remaining := n
	for remaining > 0 {
		chunk := remaining
		if chunk > readChunkSize {
			chunk = readChunkSize
		}
		buf := make([]byte, chunk)
		if err := d.readExactRaw(buf); err != nil {
			return nil, err
		}
		out = append(out, buf...)
		remaining -= chunk
	}
	return out, nil
}

// Grammar-entity decodes.

func (d *Decoder) decodeMagic() error {
	return withContextErr(d, ctxMagic, func() error {
		var buf [4]byte
		if err := d.readExactRaw(buf[:]); err != nil {
			return err
		}
		got := binary.LittleEndian.Uint32(buf[:])
		if got != wasmMagic {
			return &InvalidMagicError{Got: got}
		}
		return nil
	})
}

func (d *Decoder) decodeVersion() (uint32, error) {
	return withContext(d, ctxVersion, func() (uint32, error) {
		var buf [4]byte
		if err := d.readExactRaw(buf[:]); err != nil {
			return 0, err
		}
		got := binary.LittleEndian.Uint32(buf[:])
		if got != 1 {
			return 0, &UnknownVersionError{Got: got}
		}
		return got, nil
	})
}

func (d *Decoder) decodeValType() (wasm.ValType, error) {
	return withContext(d, ctxValType, func() (wasm.ValType, error) {
		b, err := d.readByteRaw()
		if err != nil {
			return 0, err
		}
		vt := wasm.ValType(b)
		if !vt.Valid() {
			return 0, &InvalidTokenError{Got: b}
		}
		return vt, nil
	})
}

func (d *Decoder) decodeRefType() (wasm.RefType, error) {
	return withContext(d, ctxRefType, func() (wasm.RefType, error) {
		b, err := d.readByteRaw()
		if err != nil {
			return 0, err
		}
		rt := wasm.RefType(b)
		if !rt.Valid() {
			return 0, &InvalidTokenError{Got: b}
		}
		return rt, nil
	})
}

func (d *Decoder) decodeLimits() (wasm.Limits, error) {
	return withContext(d, ctxLimits, func() (wasm.Limits, error) {
		flag, err := d.readByteRaw()
		if err != nil {
			return wasm.Limits{}, err
		}
		if flag != 0 && flag != 1 {
			return wasm.Limits{}, &InvalidTokenError{Got: flag}
		}
		min, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.Limits{}, err
		}
		lim := wasm.Limits{Min: min}
		if flag == 1 {
			max, err := d.readLEB128U32Raw()
			if err != nil {
				return wasm.Limits{}, err
			}
			lim.Max = &max
		}
		return lim, nil
	})
}

func (d *Decoder) decodeMemType() (wasm.MemType, error) {
	return withContext(d, ctxMemType, func() (wasm.MemType, error) {
		lim, err := d.decodeLimits()
		if err != nil {
			return wasm.MemType{}, err
		}
		return wasm.MemType{Limits: lim}, nil
	})
}

func (d *Decoder) decodeTableType() (wasm.TableType, error) {
	return withContext(d, ctxTableType, func() (wasm.TableType, error) {
		rt, err := d.decodeRefType()
		if err != nil {
			return wasm.TableType{}, err
		}
		lim, err := d.decodeLimits()
		if err != nil {
			return wasm.TableType{}, err
		}
		return wasm.TableType{ElemType: rt, Limits: lim}, nil
	})
}

func (d *Decoder) decodeGlobalType() (wasm.GlobalType, error) {
	return withContext(d, ctxGlobalType, func() (wasm.GlobalType, error) {
		vt, err := d.decodeValType()
		if err != nil {
			return wasm.GlobalType{}, err
		}
		m, err := d.readByteRaw()
		if err != nil {
			return wasm.GlobalType{}, err
		}
		if m != 0 && m != 1 {
			return wasm.GlobalType{}, &InvalidTokenError{Got: m}
		}
		return wasm.GlobalType{ValType: vt, Mutable: m == 1}, nil
	})
}

func (d *Decoder) decodeName() (string, error) {
	return withContext(d, ctxName, func() (string, error) {
		n, err := d.readLEB128U32Raw()
		if err != nil {
			return "", err
		}
		buf, err := d.readBytesBounded(n)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(buf) {
			return "", InvalidUTF8Error{}
		}
		return string(buf), nil
	})
}

func (d *Decoder) decodeFunctionType() (wasm.FunctionType, error) {
	return withContext(d, ctxFunctionType, func() (wasm.FunctionType, error) {
		tag, err := d.readByteRaw()
		if err != nil {
			return wasm.FunctionType{}, err
		}
		if tag != 0x60 {
			return wasm.FunctionType{}, &InvalidTokenError{Got: tag}
		}
		params, err := decodeVector(d, ctxValType, d.decodeValType)
		if err != nil {
			return wasm.FunctionType{}, err
		}
		results, err := decodeVector(d, ctxValType, d.decodeValType)
		if err != nil {
			return wasm.FunctionType{}, err
		}
		return wasm.FunctionType{Params: params, Results: results}, nil
	})
}

func (d *Decoder) decodeTypeSection() ([]wasm.FunctionType, error) {
	return decodeVector(d, ctxTypeSection, d.decodeFunctionType)
}

func (d *Decoder) decodeImportDescriptor() (wasm.ImportDescriptor, error) {
	return withContext(d, ctxImportDescriptor, func() (wasm.ImportDescriptor, error) {
		b, err := d.readByteRaw()
		if err != nil {
			return wasm.ImportDescriptor{}, err
		}
		kind := wasm.ExternKind(b)
		if !kind.Valid() {
			return wasm.ImportDescriptor{}, &InvalidTokenError{Got: b}
		}
		switch kind {
		case wasm.ExternKindFunc:
			idx, err := d.readLEB128U32Raw()
			if err != nil {
				return wasm.ImportDescriptor{}, err
			}
			return wasm.ImportDescriptor{Kind: kind, Func: wasm.TypeIndex(idx)}, nil
		case wasm.ExternKindTable:
			tt, err := d.decodeTableType()
			if err != nil {
				return wasm.ImportDescriptor{}, err
			}
			return wasm.ImportDescriptor{Kind: kind, Table: &tt}, nil
		case wasm.ExternKindMemory:
			mt, err := d.decodeMemType()
			if err != nil {
				return wasm.ImportDescriptor{}, err
			}
			return wasm.ImportDescriptor{Kind: kind, Memory: &mt}, nil
		default:
			gt, err := d.decodeGlobalType()
			if err != nil {
				return wasm.ImportDescriptor{}, err
			}
			return wasm.ImportDescriptor{Kind: kind, Global: &gt}, nil
		}
	})
}

func (d *Decoder) decodeImport() (wasm.Import, error) {
	return withContext(d, ctxImport, func() (wasm.Import, error) {
		mod, err := d.decodeName()
		if err != nil {
			return wasm.Import{}, err
		}
		name, err := d.decodeName()
		if err != nil {
			return wasm.Import{}, err
		}
		desc, err := d.decodeImportDescriptor()
		if err != nil {
			return wasm.Import{}, err
		}
		return wasm.Import{Module: mod, Name: name, Descriptor: desc}, nil
	})
}

func (d *Decoder) decodeImportSection() ([]wasm.Import, error) {
	return decodeVector(d, ctxImportSection, d.decodeImport)
}

func (d *Decoder) decodeFunctionSection() ([]wasm.TypeIndex, error) {
	return decodeVector(d, ctxFunctionSection, func() (wasm.TypeIndex, error) {
		v, err := d.readLEB128U32Raw()
		return wasm.TypeIndex(v), err
	})
}

func (d *Decoder) decodeTableSection() ([]wasm.TableType, error) {
	return decodeVector(d, ctxTableSection, d.decodeTableType)
}

func (d *Decoder) decodeMemorySection() ([]wasm.MemType, error) {
	return decodeVector(d, ctxMemorySection, d.decodeMemType)
}

func (d *Decoder) decodeGlobal() (wasm.Global, error) {
	return withContext(d, ctxGlobal, func() (wasm.Global, error) {
		gt, err := d.decodeGlobalType()
		if err != nil {
			return wasm.Global{}, err
		}
		expr, err := d.decodeExpression()
		if err != nil {
			return wasm.Global{}, err
		}
		return wasm.Global{Type: gt, Init: expr}, nil
	})
}

func (d *Decoder) decodeGlobalSection() ([]wasm.Global, error) {
	return decodeVector(d, ctxGlobalSection, d.decodeGlobal)
}

func (d *Decoder) decodeExportDescriptor() (wasm.ExportDescriptor, error) {
	return withContext(d, ctxExportDescriptor, func() (wasm.ExportDescriptor, error) {
		b, err := d.readByteRaw()
		if err != nil {
			return wasm.ExportDescriptor{}, err
		}
		kind := wasm.ExternKind(b)
		if !kind.Valid() {
			return wasm.ExportDescriptor{}, &InvalidTokenError{Got: b}
		}
		idx, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.ExportDescriptor{}, err
		}
		return wasm.ExportDescriptor{Kind: kind, Index: idx}, nil
	})
}

func (d *Decoder) decodeExport() (wasm.Export, error) {
	return withContext(d, ctxExport, func() (wasm.Export, error) {
		name, err := d.decodeName()
		if err != nil {
			return wasm.Export{}, err
		}
		desc, err := d.decodeExportDescriptor()
		if err != nil {
			return wasm.Export{}, err
		}
		return wasm.Export{Name: name, Descriptor: desc}, nil
	})
}

func (d *Decoder) decodeExportSection() ([]wasm.Export, error) {
	return decodeVector(d, ctxExportSection, d.decodeExport)
}

func (d *Decoder) decodeFuncIndex() (wasm.FuncIndex, error) {
	v, err := d.readLEB128U32Raw()
	return wasm.FuncIndex(v), err
}

// decodeBlockType implements block/loop/if's BlockType: a signed-LEB128
// 32-bit value. Negative values of -1..-0x40 select the empty type
// (-0x40, byte 0x40) or an inline ValType (byte = n+0x80); non-negative
// values are a type-section index.
func (d *Decoder) decodeBlockType() (wasm.BlockType, error) {
	return withContext(d, ctxBlockType, func() (wasm.BlockType, error) {
		n, err := d.readLEB128I32Raw()
		if err != nil {
			return wasm.BlockType{}, err
		}
		if n < 0 {
			b := byte(n + 0x80)
			if b == 0x40 {
				return wasm.BlockType{Kind: wasm.BlockTypeEmpty}, nil
			}
			vt := wasm.ValType(b)
			if !vt.Valid() {
				return wasm.BlockType{}, &InvalidValTypeError{Got: b}
			}
			return wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: vt}, nil
		}
		return wasm.BlockType{Kind: wasm.BlockTypeIndex, TypeIndex: wasm.TypeIndex(uint32(n))}, nil
	})
}

// decodeMemArg reads align before offset: the wire order, not the
// struct's field declaration order.
func (d *Decoder) decodeMemArg() (wasm.MemArg, error) {
	return withContext(d, ctxMemArg, func() (wasm.MemArg, error) {
		align, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.MemArg{}, err
		}
		offset, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.MemArg{}, err
		}
		return wasm.MemArg{Align: align, Offset: offset}, nil
	})
}

func (d *Decoder) decodeCallIndirectOperands() (wasm.CallIndirectOperands, error) {
	return withContext(d, ctxCallIndirect, func() (wasm.CallIndirectOperands, error) {
		ty, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.CallIndirectOperands{}, err
		}
		table, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.CallIndirectOperands{}, err
		}
		return wasm.CallIndirectOperands{TypeIndex: wasm.TypeIndex(ty), TableIndex: wasm.TableIndex(table)}, nil
	})
}

func (d *Decoder) decodeTableCopyOperands() (wasm.TableCopyOperands, error) {
	dst, err := d.readLEB128U32Raw()
	if err != nil {
		return wasm.TableCopyOperands{}, err
	}
	src, err := d.readLEB128U32Raw()
	if err != nil {
		return wasm.TableCopyOperands{}, err
	}
	return wasm.TableCopyOperands{Dst: wasm.TableIndex(dst), Src: wasm.TableIndex(src)}, nil
}

func (d *Decoder) decodeTableInitOperands() (wasm.TableInitOperands, error) {
	elem, err := d.readLEB128U32Raw()
	if err != nil {
		return wasm.TableInitOperands{}, err
	}
	table, err := d.readLEB128U32Raw()
	if err != nil {
		return wasm.TableInitOperands{}, err
	}
	return wasm.TableInitOperands{ElemIndex: wasm.ElemIndex(elem), TableIndex: wasm.TableIndex(table)}, nil
}

func (d *Decoder) decodeBrTableOperands() (wasm.BrTableOperands, error) {
	return withContext(d, ctxBrTable, func() (wasm.BrTableOperands, error) {
		labels, err := decodeVector(d, ctxVector, func() (wasm.LabelIndex, error) {
			v, err := d.readLEB128U32Raw()
			return wasm.LabelIndex(v), err
		})
		if err != nil {
			return wasm.BrTableOperands{}, err
		}
		def, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.BrTableOperands{}, err
		}
		return wasm.BrTableOperands{Labels: labels, Default: wasm.LabelIndex(def)}, nil
	})
}

func (d *Decoder) decodeSelectTOperands() (wasm.SelectTOperands, error) {
	return withContext(d, ctxSelectT, func() (wasm.SelectTOperands, error) {
		types, err := decodeVector(d, ctxVector, d.decodeValType)
		if err != nil {
			return wasm.SelectTOperands{}, err
		}
		return wasm.SelectTOperands{Types: types}, nil
	})
}

func (d *Decoder) decodeLocals() ([]wasm.ValType, error) {
	return withContext(d, ctxLocals, func() ([]wasm.ValType, error) {
		groupCount, err := d.readLEB128U32Raw()
		if err != nil {
			return nil, err
		}
		var total uint64
		out := make([]wasm.ValType, 0, minUint32(groupCount, maxVectorPrealloc))
		for i := uint32(0); i < groupCount; i++ {
			count, err := d.readLEB128U32Raw()
			if err != nil {
				return nil, err
			}
			vt, err := d.decodeValType()
			if err != nil {
				return nil, err
			}
			if vt == wasm.ValueTypeV128 || vt == wasm.ValueTypeExternref {
				return nil, &NotImplementedError{What: "v128/externref-typed locals"}
			}
			total += uint64(count)
			if total > wasm.MaxLocalsPerFunction {
				return nil, &TooManyLocalsError{Count: uint32(total)}
			}
			for j := uint32(0); j < count; j++ {
				out = append(out, vt)
			}
		}
		return out, nil
	})
}

func (d *Decoder) decodeFunction() (wasm.Code, error) {
	return withContext(d, ctxFunction, func() (wasm.Code, error) {
		size, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.Code{}, err
		}
		before := d.stream.Offset()
		locals, err := d.decodeLocals()
		if err != nil {
			return wasm.Code{}, err
		}
		body, err := d.decodeExpression()
		if err != nil {
			return wasm.Code{}, err
		}
		actual := uint32(d.stream.Offset() - before)
		if actual != size {
			return wasm.Code{}, &InvalidFunctionLengthError{Expected: size, Actual: actual}
		}
		return wasm.Code{LocalTypes: locals, Body: body}, nil
	})
}

func (d *Decoder) decodeCodeSection() ([]wasm.Code, error) {
	return decodeVector(d, ctxCodeSection, d.decodeFunction)
}

func (d *Decoder) decodeExpression() (wasm.Expression, error) {
	return withContext(d, ctxExpression, func() (wasm.Expression, error) {
		return transcodeExpression(d)
	})
}

func (d *Decoder) ensureElemKindFuncref() error {
	b, err := d.readByteRaw()
	if err != nil {
		return err
	}
	if b != 0 {
		return &InvalidTokenError{Got: b}
	}
	return nil
}

func (d *Decoder) decodeElemIndexVector() ([]wasm.FuncIndex, error) {
	return decodeVector(d, ctxVector, func() (wasm.FuncIndex, error) {
		v, err := d.readLEB128U32Raw()
		return wasm.FuncIndex(v), err
	})
}

// decodeElementSegment collapses all eight binary encodings of element
// segments into wasm.ElementSegment's canonical form.
func (d *Decoder) decodeElementSegment() (wasm.ElementSegment, error) {
	return withContext(d, ctxElementSegment, func() (wasm.ElementSegment, error) {
		flag, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.ElementSegment{}, err
		}
		if flag > 7 {
			return wasm.ElementSegment{}, &InvalidElementTokenError{Got: flag}
		}
		var seg wasm.ElementSegment
		switch flag {
		case 0:
			seg.Mode, seg.Type = wasm.ElementModeActive, wasm.RefTypeFuncref
			if seg.OffsetExpr, err = d.decodeExpression(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Indices, err = d.decodeElemIndexVector(); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 1:
			seg.Mode, seg.Type = wasm.ElementModePassive, wasm.RefTypeFuncref
			if err = d.ensureElemKindFuncref(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Indices, err = d.decodeElemIndexVector(); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 2:
			seg.Mode, seg.Type = wasm.ElementModeActive, wasm.RefTypeFuncref
			idx, err := d.readLEB128U32Raw()
			if err != nil {
				return wasm.ElementSegment{}, err
			}
			seg.TableIndex = wasm.TableIndex(idx)
			if seg.OffsetExpr, err = d.decodeExpression(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if err = d.ensureElemKindFuncref(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Indices, err = d.decodeElemIndexVector(); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 3:
			seg.Mode, seg.Type = wasm.ElementModeDeclarative, wasm.RefTypeFuncref
			if err = d.ensureElemKindFuncref(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Indices, err = d.decodeElemIndexVector(); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 4:
			seg.Mode, seg.Type = wasm.ElementModeActive, wasm.RefTypeFuncref
			if seg.OffsetExpr, err = d.decodeExpression(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Exprs, err = decodeVector(d, ctxVector, d.decodeExpression); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 5:
			seg.Mode = wasm.ElementModePassive
			if seg.Type, err = d.decodeRefType(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Exprs, err = decodeVector(d, ctxVector, d.decodeExpression); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 6:
			seg.Mode = wasm.ElementModeActive
			idx, err := d.readLEB128U32Raw()
			if err != nil {
				return wasm.ElementSegment{}, err
			}
			seg.TableIndex = wasm.TableIndex(idx)
			if seg.OffsetExpr, err = d.decodeExpression(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Type, err = d.decodeRefType(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Exprs, err = decodeVector(d, ctxVector, d.decodeExpression); err != nil {
				return wasm.ElementSegment{}, err
			}
		case 7:
			seg.Mode = wasm.ElementModeDeclarative
			if seg.Type, err = d.decodeRefType(); err != nil {
				return wasm.ElementSegment{}, err
			}
			if seg.Exprs, err = decodeVector(d, ctxVector, d.decodeExpression); err != nil {
				return wasm.ElementSegment{}, err
			}
		}
		return seg, nil
	})
}

func (d *Decoder) decodeElementSection() ([]wasm.ElementSegment, error) {
	return decodeVector(d, ctxElementSection, d.decodeElementSegment)
}

// decodeDataSegment collapses all three binary encodings of data
// segments into wasm.DataSegment's canonical form.
func (d *Decoder) decodeDataSegment() (wasm.DataSegment, error) {
	return withContext(d, ctxDataSegment, func() (wasm.DataSegment, error) {
		flag, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.DataSegment{}, err
		}
		if flag > 2 {
			return wasm.DataSegment{}, &InvalidDataTokenError{Got: flag}
		}
		var seg wasm.DataSegment
		switch flag {
		case 0:
			seg.Mode = wasm.DataModeActive
			if seg.OffsetExpr, err = d.decodeExpression(); err != nil {
				return wasm.DataSegment{}, err
			}
		case 1:
			seg.Mode = wasm.DataModePassive
		case 2:
			seg.Mode = wasm.DataModeActive
			idx, err := d.readLEB128U32Raw()
			if err != nil {
				return wasm.DataSegment{}, err
			}
			seg.MemIndex = wasm.MemIndex(idx)
			if seg.OffsetExpr, err = d.decodeExpression(); err != nil {
				return wasm.DataSegment{}, err
			}
		}
		n, err := d.readLEB128U32Raw()
		if err != nil {
			return wasm.DataSegment{}, err
		}
		if seg.Init, err = d.readBytesBounded(n); err != nil {
			return wasm.DataSegment{}, err
		}
		return seg, nil
	})
}

func (d *Decoder) decodeDataSection() ([]wasm.DataSegment, error) {
	return decodeVector(d, ctxDataSection, d.decodeDataSegment)
}

func (d *Decoder) decodeCustomSection(m *wasm.Module, length uint32) error {
	return withContextErr(d, ctxCustomSection, func() error {
		start := d.stream.Offset()
		name, err := d.decodeName()
		if err != nil {
			return err
		}
		consumed := uint32(d.stream.Offset() - start)
		if consumed > length {
			return &InvalidSectionLengthError{ID: wasm.SectionIDCustom, Expected: length, Actual: consumed}
		}
		remaining := length - consumed
		if d.visitor.ShouldVisit(name) {
			payload, err := d.readBytesBounded(remaining)
			if err != nil {
				return err
			}
			section := wasm.CustomSection{Name: name, Payload: payload}
			m.Custom = append(m.Custom, section)
			d.visitor.Visit(section)
			return nil
		}
		return d.skipBytes(int64(remaining))
	})
}

func (d *Decoder) decodeSectionBody(m *wasm.Module, id wasm.SectionID, length uint32) error {
	switch id {
	case wasm.SectionIDCustom:
		return d.decodeCustomSection(m, length)
	case wasm.SectionIDType:
		v, err := d.decodeTypeSection()
		m.Types = v
		return err
	case wasm.SectionIDImport:
		v, err := d.decodeImportSection()
		m.Imports = v
		return err
	case wasm.SectionIDFunction:
		v, err := d.decodeFunctionSection()
		m.Functions = v
		return err
	case wasm.SectionIDTable:
		v, err := d.decodeTableSection()
		m.Tables = v
		return err
	case wasm.SectionIDMemory:
		v, err := d.decodeMemorySection()
		m.Memories = v
		return err
	case wasm.SectionIDGlobal:
		v, err := d.decodeGlobalSection()
		m.Globals = v
		return err
	case wasm.SectionIDExport:
		v, err := d.decodeExportSection()
		m.Exports = v
		return err
	case wasm.SectionIDStart:
		idx, err := d.decodeFuncIndex()
		if err != nil {
			return err
		}
		m.Start = &idx
		return nil
	case wasm.SectionIDElement:
		v, err := d.decodeElementSection()
		m.Elements = v
		return err
	case wasm.SectionIDCode:
		v, err := d.decodeCodeSection()
		m.Code = v
		return err
	case wasm.SectionIDData:
		v, err := d.decodeDataSection()
		m.Data = v
		return err
	case wasm.SectionIDDataCount:
		n, err := d.readLEB128U32Raw()
		if err != nil {
			return err
		}
		m.DataCount = &n
		return nil
	}
	return nil
}

// decodeModule is the top-level section loop: read magic and version,
// then repeatedly read a section id, length, and body until the stream
// signals its natural end.
func decodeModule(d *Decoder) (*wasm.Module, error) {
	return withContext(d, ctxModule, func() (*wasm.Module, error) {
		m := &wasm.Module{}
		if err := d.decodeMagic(); err != nil {
			return nil, err
		}
		version, err := d.decodeVersion()
		if err != nil {
			return nil, err
		}
		m.Version = version

		var lastID wasm.SectionID
		haveLast := false

		for {
			idByte, err := d.readByteRaw()
			if err != nil {
				if d.stream.IsEOF(err) {
					break
				}
				return nil, err
			}
			id := wasm.SectionID(idByte)

			if id != wasm.SectionIDCustom {
				rank, ok := id.LogicalRank()
				if !ok {
					return nil, &InvalidTokenError{Got: idByte}
				}
				if haveLast {
					lastRank, _ := lastID.LogicalRank()
					switch {
					case rank < lastRank:
						return nil, &OutOfOrderSectionError{Before: lastID, After: id}
					case rank == lastRank:
						return nil, &DuplicateSectionError{ID: id}
					}
				}
				lastID, haveLast = id, true
			}

			length, err := d.readLEB128U32Raw()
			if err != nil {
				return nil, err
			}
			before := d.stream.Offset()

			if err := d.decodeSectionBody(m, id, length); err != nil {
				return nil, err
			}

			actual := uint32(d.stream.Offset() - before)
			if actual != length {
				return nil, &InvalidSectionLengthError{ID: id, Expected: length, Actual: actual}
			}
		}
		return m, nil
	})
}
