package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuaseaton/wafer/internal/wasm"
)

func newTestDecoder(data []byte) *Decoder {
	return NewDecoder(NewByteSliceStream(data), nil)
}

func TestDecodeFunctionType(t *testing.T) {
	d := newTestDecoder([]byte{0x60, 0x01, 0x7f, 0x01, 0x7e})
	ft, err := d.decodeFunctionType()
	require.NoError(t, err)
	require.Equal(t, wasm.FunctionType{
		Params:  []wasm.ValType{wasm.ValueTypeI32},
		Results: []wasm.ValType{wasm.ValueTypeI64},
	}, ft)
}

func TestDecodeFunctionType_BadTag(t *testing.T) {
	d := newTestDecoder([]byte{0x61})
	_, err := d.decodeFunctionType()
	require.ErrorAs(t, err, new(*InvalidTokenError))
}

func TestDecodeLimits(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected wasm.Limits
	}{
		{"min only", []byte{0x00, 0x02}, wasm.Limits{Min: 2}},
		{"min and max", []byte{0x01, 0x02, 0x03}, wasm.Limits{Min: 2, Max: u32ptr(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(tt.input)
			lim, err := d.decodeLimits()
			require.NoError(t, err)
			require.Equal(t, tt.expected, lim)
		})
	}
}

func TestDecodeImport(t *testing.T) {
	// module "a", name "b", func import of type 0
	input := []byte{
		0x01, 'a',
		0x01, 'b',
		0x00, 0x00,
	}
	d := newTestDecoder(input)
	imp, err := d.decodeImport()
	require.NoError(t, err)
	require.Equal(t, "a", imp.Module)
	require.Equal(t, "b", imp.Name)
	require.Equal(t, wasm.ExternKindFunc, imp.Descriptor.Kind)
	require.Equal(t, wasm.TypeIndex(0), imp.Descriptor.Func)
}

func TestDecodeName_InvalidUTF8(t *testing.T) {
	d := newTestDecoder([]byte{0x01, 0xff})
	_, err := d.decodeName()
	require.ErrorIs(t, err, InvalidUTF8Error{})
}

func TestDecodeMemArg_AlignBeforeOffset(t *testing.T) {
	// align=1, offset=2, in that wire order.
	d := newTestDecoder([]byte{0x01, 0x02})
	ma, err := d.decodeMemArg()
	require.NoError(t, err)
	require.Equal(t, wasm.MemArg{Align: 1, Offset: 2}, ma)
}

func TestDecodeBlockType(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected wasm.BlockType
	}{
		{"empty", []byte{0x40}, wasm.BlockType{Kind: wasm.BlockTypeEmpty}},
		{"value", []byte{0x7f}, wasm.BlockType{Kind: wasm.BlockTypeValue, ValType: wasm.ValueTypeI32}},
		{"index", []byte{0x05}, wasm.BlockType{Kind: wasm.BlockTypeIndex, TypeIndex: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(tt.input)
			bt, err := d.decodeBlockType()
			require.NoError(t, err)
			require.Equal(t, tt.expected, bt)
		})
	}
}

func minimalModule() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func TestDecodeModule_Minimal(t *testing.T) {
	m, err := DecodeModule(NewByteSliceStream(minimalModule()), nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1), m.Version)
	require.Empty(t, m.Types)
}

func TestDecodeModule_InvalidMagic(t *testing.T) {
	data := minimalModule()
	data[0] = 0x01
	_, err := DecodeModule(NewByteSliceStream(data), nil)
	var ctxErr *ErrorWithContext
	require.ErrorAs(t, err, &ctxErr)
	require.ErrorAs(t, err, new(*InvalidMagicError))
}

func TestDecodeModule_UnknownVersion(t *testing.T) {
	data := minimalModule()
	data[4] = 0x02
	_, err := DecodeModule(NewByteSliceStream(data), nil)
	require.ErrorAs(t, err, new(*UnknownVersionError))
}

func TestDecodeModule_TypeSection(t *testing.T) {
	data := append(minimalModule(),
		byte(wasm.SectionIDType), 0x05, // id, length
		0x01, 0x60, 0x00, 0x01, 0x7f, // 1 type: () -> (i32)
	)
	m, err := DecodeModule(NewByteSliceStream(data), nil)
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	require.Equal(t, []wasm.ValType{wasm.ValueTypeI32}, m.Types[0].Results)
}

func TestDecodeModule_OutOfOrderSections(t *testing.T) {
	data := append(minimalModule(),
		byte(wasm.SectionIDFunction), 0x01, 0x00, // function section, empty vec
		byte(wasm.SectionIDType), 0x01, 0x00, // type section, empty vec (out of order)
	)
	_, err := DecodeModule(NewByteSliceStream(data), nil)
	require.ErrorAs(t, err, new(*OutOfOrderSectionError))
}

func TestDecodeModule_DuplicateSection(t *testing.T) {
	data := append(minimalModule(),
		byte(wasm.SectionIDType), 0x01, 0x00,
		byte(wasm.SectionIDType), 0x01, 0x00,
	)
	_, err := DecodeModule(NewByteSliceStream(data), nil)
	require.ErrorAs(t, err, new(*DuplicateSectionError))
}

func TestDecodeModule_SectionLengthMismatch(t *testing.T) {
	data := append(minimalModule(),
		byte(wasm.SectionIDType), 0x09, // declares 9 bytes but body is only 5
		0x01, 0x60, 0x00, 0x01, 0x7f,
	)
	_, err := DecodeModule(NewByteSliceStream(data), nil)
	require.ErrorAs(t, err, new(*InvalidSectionLengthError))
}

func TestDecodeModule_CustomSectionsIgnoreOrdering(t *testing.T) {
	data := append(minimalModule(),
		byte(wasm.SectionIDCustom), 0x02, 0x01, 'x', // name "x", no payload
		byte(wasm.SectionIDType), 0x01, 0x00,
		byte(wasm.SectionIDCustom), 0x02, 0x01, 'y',
		byte(wasm.SectionIDFunction), 0x01, 0x00,
	)
	m, err := DecodeModule(NewByteSliceStream(data), nil)
	require.NoError(t, err)
	require.Empty(t, m.Custom) // nil visitor declines every custom section
}

type captureVisitor struct {
	names []string
}

func (v *captureVisitor) ShouldVisit(string) bool { return true }
func (v *captureVisitor) Visit(s wasm.CustomSection) {
	v.names = append(v.names, s.Name)
}

func TestDecodeModule_CustomSectionVisitor(t *testing.T) {
	data := append(minimalModule(),
		byte(wasm.SectionIDCustom), 0x04, 0x01, 'x', 'a', 'b', // name "x", payload "ab"
	)
	v := &captureVisitor{}
	m, err := DecodeModule(NewByteSliceStream(data), v)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, v.names)
	require.Len(t, m.Custom, 1)
	require.Equal(t, []byte("ab"), m.Custom[0].Payload)
}

func u32ptr(v uint32) *uint32 { return &v }
