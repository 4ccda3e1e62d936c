// Package leb128 implements the LEB128 variable-length integer encoding
// used throughout the Wasm binary format, for the three integer widths
// the format actually uses: unsigned 32-bit, signed 32-bit and signed
// 64-bit.
package leb128

import (
	"errors"
	"io"
)

const (
	contentMask      = 0x7f
	continuationMask = 0x80
	signExtendMask   = 0x40
)

// ErrOverflow is returned when a LEB128 encoding exceeds the maximum byte
// length for its target width, or when its unused high bits are
// inconsistent with the value being decoded.
var ErrOverflow = errors.New("leb128: invalid encoding")

// DecodeUint32 reads an unsigned LEB128-encoded 32-bit integer from r.
//
// The encoding need not be minimal: 0x80 0x00 decodes to 0 without error.
func DecodeUint32(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 32 {
			return 0, ErrOverflow
		}
		content := uint32(b & contentMask)
		remaining := uint(32) - shift
		if remaining < 7 && content>>remaining != 0 {
			return 0, ErrOverflow
		}
		result |= content << shift
		shift += 7
		if b&continuationMask == 0 {
			return result, nil
		}
	}
}

// DecodeInt32 reads a signed LEB128-encoded 32-bit integer from r.
func DecodeInt32(r io.ByteReader) (int32, error) {
	v, err := decodeSigned(r, 32)
	return int32(v), err
}

// DecodeInt64 reads a signed LEB128-encoded 64-bit integer from r.
func DecodeInt64(r io.ByteReader) (int64, error) {
	return decodeSigned(r, 64)
}

func decodeSigned(r io.ByteReader, width uint) (int64, error) {
	var result int64
	var shift uint
	var last byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		last = b
		if shift >= width {
			return 0, ErrOverflow
		}
		content := int64(b & contentMask)
		remaining := width - shift
		if remaining < 7 {
			// The unused high bits of the final byte must all equal the
			// sign bit of the value they extend.
			mask := byte(0xff << (remaining - 1))
			masked := b & mask & contentMask
			signed := byte(0)
			if b&signExtendMask != 0 {
				signed = mask & contentMask
			}
			if masked != signed {
				return 0, ErrOverflow
			}
		}
		result |= content << shift
		shift += 7
		if b&continuationMask == 0 {
			break
		}
	}
	if shift < width && last&signExtendMask != 0 {
		result |= ^int64(0) << shift
	}
	return result, nil
}

// EncodeUint32 returns the minimal unsigned LEB128 encoding of v.
func EncodeUint32(v uint32) []byte {
	return encodeUnsigned(uint64(v))
}

// EncodeUint64 returns the minimal unsigned LEB128 encoding of v.
func EncodeUint64(v uint64) []byte {
	return encodeUnsigned(v)
}

func encodeUnsigned(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & contentMask)
		v >>= 7
		if v != 0 {
			b |= continuationMask
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// EncodeInt32 returns the minimal signed LEB128 encoding of v.
func EncodeInt32(v int32) []byte {
	return encodeSigned(int64(v))
}

// EncodeInt64 returns the minimal signed LEB128 encoding of v.
func EncodeInt64(v int64) []byte {
	return encodeSigned(v)
}

func encodeSigned(v int64) []byte {
	var out []byte
	for {
		b := byte(v & contentMask)
		v >>= 7
		signBitSet := b&signExtendMask != 0
		done := (v == 0 && !signBitSet) || (v == -1 && signBitSet)
		if !done {
			b |= continuationMask
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
