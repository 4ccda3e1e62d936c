package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuaseaton/wafer/internal/wasm"
)

func TestDecodeElementSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected wasm.ElementSegment
	}{
		{
			name: "flag 0: active, implicit table, func index vector",
			input: []byte{
				0x00,                                    // flag
				byte(wasm.OpcodeI32Const), 0x00, byte(wasm.OpcodeEnd), // offset expr
				0x01, 0x02, // vec(funcidx): [2]
			},
			expected: wasm.ElementSegment{
				Mode:    wasm.ElementModeActive,
				Type:    wasm.RefTypeFuncref,
				Indices: []wasm.FuncIndex{2},
			},
		},
		{
			name: "flag 1: passive, elemkind, func index vector",
			input: []byte{
				0x01,
				0x00,       // elemkind (funcref)
				0x01, 0x03, // vec(funcidx): [3]
			},
			expected: wasm.ElementSegment{
				Mode:    wasm.ElementModePassive,
				Type:    wasm.RefTypeFuncref,
				Indices: []wasm.FuncIndex{3},
			},
		},
		{
			name: "flag 3: declarative, elemkind, func index vector",
			input: []byte{
				0x03,
				0x00,
				0x00, // vec(funcidx): []
			},
			expected: wasm.ElementSegment{
				Mode:    wasm.ElementModeDeclarative,
				Type:    wasm.RefTypeFuncref,
				Indices: []wasm.FuncIndex{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(tt.input)
			seg, err := d.decodeElementSegment()
			require.NoError(t, err)
			require.Equal(t, tt.expected.Mode, seg.Mode)
			require.Equal(t, tt.expected.Type, seg.Type)
			require.Equal(t, tt.expected.Indices, seg.Indices)
		})
	}
}

func TestDecodeElementSegment_ExprVector(t *testing.T) {
	// flag 5: passive, explicit reftype, vec(expr) of length 1.
	input := []byte{
		0x05,
		byte(wasm.RefTypeExternref),
		0x01, byte(wasm.OpcodeRefNull), byte(wasm.RefTypeExternref), byte(wasm.OpcodeEnd),
	}
	d := newTestDecoder(input)
	seg, err := d.decodeElementSegment()
	require.NoError(t, err)
	require.Equal(t, wasm.ElementModePassive, seg.Mode)
	require.Equal(t, wasm.RefTypeExternref, seg.Type)
	require.Nil(t, seg.Indices)
	require.Len(t, seg.Exprs, 1)
}

func TestDecodeElementSegment_InvalidFlag(t *testing.T) {
	d := newTestDecoder([]byte{0x08})
	_, err := d.decodeElementSegment()
	require.ErrorAs(t, err, new(*InvalidElementTokenError))
}

func TestDecodeDataSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected wasm.DataSegment
	}{
		{
			name: "flag 0: active, implicit memory",
			input: []byte{
				0x00,
				byte(wasm.OpcodeI32Const), 0x00, byte(wasm.OpcodeEnd),
				0x02, 'h', 'i',
			},
			expected: wasm.DataSegment{Mode: wasm.DataModeActive, Init: []byte("hi")},
		},
		{
			name:  "flag 1: passive",
			input: []byte{0x01, 0x01, 'x'},
			expected: wasm.DataSegment{Mode: wasm.DataModePassive, Init: []byte("x")},
		},
		{
			name: "flag 2: active, explicit memory index",
			input: []byte{
				0x02, 0x00,
				byte(wasm.OpcodeI32Const), 0x00, byte(wasm.OpcodeEnd),
				0x01, 'y',
			},
			expected: wasm.DataSegment{Mode: wasm.DataModeActive, MemIndex: 0, Init: []byte("y")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(tt.input)
			seg, err := d.decodeDataSegment()
			require.NoError(t, err)
			require.Equal(t, tt.expected.Mode, seg.Mode)
			require.Equal(t, tt.expected.MemIndex, seg.MemIndex)
			require.Equal(t, tt.expected.Init, seg.Init)
		})
	}
}

func TestDecodeDataSegment_InvalidFlag(t *testing.T) {
	d := newTestDecoder([]byte{0x03})
	_, err := d.decodeDataSegment()
	require.ErrorAs(t, err, new(*InvalidDataTokenError))
}
