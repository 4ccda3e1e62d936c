package binary

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuaseaton/wafer/internal/wasm"
)

func transcode(t *testing.T, data []byte) wasm.Expression {
	t.Helper()
	d := newTestDecoder(data)
	expr, err := transcodeExpression(d)
	require.NoError(t, err)
	return expr
}

func TestTranscodeExpression_I32Const(t *testing.T) {
	// i32.const 42; end
	expr := transcode(t, []byte{byte(wasm.OpcodeI32Const), 42, byte(wasm.OpcodeEnd)})

	require.Equal(t, byte(wasm.OpcodeI32Const), expr[0])
	// The i32 operand is padded out to the next 4-byte boundary after the
	// one opcode byte, so it lands at offset 4, not 1.
	for _, b := range expr[1:4] {
		require.Equal(t, byte(0), b)
	}
	require.Equal(t, uint32(42), binary.LittleEndian.Uint32(expr[4:8]))
	require.Equal(t, byte(wasm.OpcodeEnd), expr[8])
	require.Len(t, expr, 9)
}

func TestTranscodeExpression_I64ConstAligns(t *testing.T) {
	// nop; i64.const 7; end -- the i64 operand must land 8-byte aligned.
	expr := transcode(t, []byte{
		byte(wasm.OpcodeNop),
		byte(wasm.OpcodeI64Const), 7,
		byte(wasm.OpcodeEnd),
	})
	// byte 0: nop. byte 1: i64.const opcode. Operand must start at offset
	// 8 (the next 8-byte boundary after offset 2), padded with zeroes.
	require.Equal(t, byte(wasm.OpcodeNop), expr[0])
	require.Equal(t, byte(wasm.OpcodeI64Const), expr[1])
	for _, b := range expr[2:8] {
		require.Equal(t, byte(0), b)
	}
	require.Equal(t, uint64(7), binary.LittleEndian.Uint64(expr[8:16]))
	require.Equal(t, byte(wasm.OpcodeEnd), expr[16])
}

func TestTranscodeExpression_NestedBlockEnd(t *testing.T) {
	// block (empty) / nop / end / end -- the outer end terminates the
	// expression; the inner one just closes the block.
	expr := transcode(t, []byte{
		byte(wasm.OpcodeBlock), 0x40,
		byte(wasm.OpcodeNop),
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeEnd),
	})
	require.Equal(t, byte(wasm.OpcodeEnd), expr[len(expr)-1])
}

func TestTranscodeExpression_MemArg(t *testing.T) {
	// i32.load align=1 offset=2; end
	expr := transcode(t, []byte{
		byte(wasm.OpcodeI32Load), 0x01, 0x02,
		byte(wasm.OpcodeEnd),
	})
	// offset 0: opcode. Align's u32 is padded out to offset 4; offset's
	// u32 follows immediately at offset 8, already aligned.
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(expr[4:8]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(expr[8:12]))
}

func TestTranscodeExpression_MemorySizeDropsReservedByte(t *testing.T) {
	expr := transcode(t, []byte{
		byte(wasm.OpcodeMemorySize), 0x00,
		byte(wasm.OpcodeEnd),
	})
	require.Equal(t, []byte{byte(wasm.OpcodeMemorySize), byte(wasm.OpcodeEnd)}, []byte(expr))
}

func TestTranscodeExpression_BulkMemoryCopy(t *testing.T) {
	expr := transcode(t, []byte{
		byte(wasm.OpcodeBulkPrefix), byte(wasm.BulkOpcodeMemoryCopy), 0x00, 0x00,
		byte(wasm.OpcodeEnd),
	})
	require.Equal(t, byte(wasm.OpcodeBulkPrefix), expr[0])
	require.Equal(t, uint32(wasm.BulkOpcodeMemoryCopy), binary.LittleEndian.Uint32(expr[4:8]))
	require.Equal(t, byte(wasm.OpcodeEnd), expr[8])
}

func TestTranscodeExpression_BulkTruncSatOpcodes(t *testing.T) {
	// The saturating float-to-int conversions (BulkOpcode 0..7) share the
	// bulk prefix with the table/memory ops but take no operands.
	for _, op := range []wasm.BulkOpcode{
		wasm.BulkOpcodeI32TruncSatF32S,
		wasm.BulkOpcodeI32TruncSatF32U,
		wasm.BulkOpcodeI32TruncSatF64S,
		wasm.BulkOpcodeI32TruncSatF64U,
		wasm.BulkOpcodeI64TruncSatF32S,
		wasm.BulkOpcodeI64TruncSatF32U,
		wasm.BulkOpcodeI64TruncSatF64S,
		wasm.BulkOpcodeI64TruncSatF64U,
	} {
		expr := transcode(t, []byte{
			byte(wasm.OpcodeBulkPrefix), byte(op),
			byte(wasm.OpcodeEnd),
		})
		require.Equal(t, byte(wasm.OpcodeBulkPrefix), expr[0])
		require.Equal(t, uint32(op), binary.LittleEndian.Uint32(expr[4:8]))
		require.Equal(t, byte(wasm.OpcodeEnd), expr[8])
		require.Len(t, expr, 9)
	}
}

func TestTranscodeExpression_VectorPrefixNotImplemented(t *testing.T) {
	d := newTestDecoder([]byte{byte(wasm.OpcodeVectorPrefix), 0x00})
	_, err := transcodeExpression(d)
	require.ErrorAs(t, err, new(*NotImplementedError))
}
