package leb128

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeUint32(t *testing.T) {
	for _, c := range []struct {
		input    uint32
		expected []byte
	}{
		{input: 0, expected: []byte{0x00}},
		{input: 1, expected: []byte{0x01}},
		{input: 4, expected: []byte{0x04}},
		{input: 16256, expected: []byte{0x80, 0x7f}},
		{input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
		{input: 165675008, expected: []byte{0x80, 0x80, 0x80, 0x4f}},
		{input: math.MaxUint32, expected: []byte{0xff, 0xff, 0xff, 0xff, 0xf}},
	} {
		require.Equal(t, c.expected, EncodeUint32(c.input))
		v, err := DecodeUint32(bytes.NewReader(c.expected))
		require.NoError(t, err)
		require.Equal(t, c.input, v)
	}
}

func TestDecodeUint32_nonMinimal(t *testing.T) {
	v, err := DecodeUint32(bytes.NewReader([]byte{0x80, 0x00}))
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)
}

func TestDecodeUint32_errors(t *testing.T) {
	for _, c := range []struct {
		name  string
		bytes []byte
	}{
		{name: "too many bytes", bytes: []byte{0x83, 0x80, 0x80, 0x80, 0x80, 0x00}},
		{name: "unused bits set", bytes: []byte{0x82, 0x80, 0x80, 0x80, 0x70}},
		{name: "length cap exceeded", bytes: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeUint32(bytes.NewReader(c.bytes))
			require.Error(t, err)
		})
	}
}

func TestEncodeDecodeInt32(t *testing.T) {
	for _, c := range []struct {
		input    int32
		expected []byte
	}{
		{input: -165675008, expected: []byte{0x80, 0x80, 0x80, 0xb1, 0x7f}},
		{input: -624485, expected: []byte{0x9b, 0xf1, 0x59}},
		{input: -16256, expected: []byte{0x80, 0x81, 0x7f}},
		{input: -4, expected: []byte{0x7c}},
		{input: -1, expected: []byte{0x7f}},
		{input: 0, expected: []byte{0x00}},
		{input: 1, expected: []byte{0x01}},
		{input: 4, expected: []byte{0x04}},
		{input: 16256, expected: []byte{0x80, 0xff, 0x0}},
		{input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
		{input: 165675008, expected: []byte{0x80, 0x80, 0x80, 0xcf, 0x0}},
		{input: math.MaxInt32, expected: []byte{0xff, 0xff, 0xff, 0xff, 0x7}},
	} {
		require.Equal(t, c.expected, EncodeInt32(c.input))
		v, err := DecodeInt32(bytes.NewReader(c.expected))
		require.NoError(t, err)
		require.Equal(t, c.input, v)
	}
}

func TestEncodeDecodeInt64(t *testing.T) {
	for _, c := range []struct {
		input    int64
		expected []byte
	}{
		{input: -math.MaxInt32, expected: []byte{0x81, 0x80, 0x80, 0x80, 0x78}},
		{input: -1, expected: []byte{0x7f}},
		{input: 0, expected: []byte{0x00}},
		{input: math.MaxInt32, expected: []byte{0xff, 0xff, 0xff, 0xff, 0x7}},
		{input: math.MaxInt64, expected: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x0}},
		{
			input:    math.MinInt64,
			expected: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f},
		},
	} {
		require.Equal(t, c.expected, EncodeInt64(c.input))
		v, err := DecodeInt64(bytes.NewReader(c.expected))
		require.NoError(t, err)
		require.Equal(t, c.input, v)
	}
}

func TestDecodeInt32_errors(t *testing.T) {
	for _, c := range []struct {
		name  string
		bytes []byte
	}{
		{name: "unused bits inconsistent with positive value", bytes: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{name: "unused bits inconsistent with negative value", bytes: []byte{0xff, 0xff, 0xff, 0xff, 0x4f}},
		{name: "unused bits set above a clear sign bit", bytes: []byte{0x80, 0x80, 0x80, 0x80, 0x70}},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeInt32(bytes.NewReader(c.bytes))
			require.Error(t, err)
		})
	}
}

func TestDecodeUint32_PaddingByteBeyondLengthCapRejected(t *testing.T) {
	// One padding byte beyond the u32 length cap must be rejected even
	// though the value it would represent fits comfortably.
	_, err := DecodeUint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}))
	require.Error(t, err)
}
