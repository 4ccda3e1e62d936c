// Package binary implements the streaming Wasm binary-module decoder,
// its expression transcoder, and the cross-section module validator.
package binary

import (
	"errors"
	"io"
)

// Stream is an abstract sequential byte source. It decouples decoding
// from whether the input is fully memory-resident or read incrementally
// through a seekable reader.
//
// IsEOF classifies whether a failure returned by one of the read methods
// signals the natural end of the stream (permitted at a section
// boundary) rather than a mid-parse I/O failure (always malformed).
type Stream interface {
	// Offset returns the current, monotonically nondecreasing byte
	// cursor.
	Offset() int64
	// ReadByte reads and returns the next byte.
	ReadByte() (byte, error)
	// ReadExact fills buf entirely or returns an error.
	ReadExact(buf []byte) error
	// SkipBytes advances the cursor by n bytes without returning them.
	SkipBytes(n int64) error
	// IsEOF reports whether err represents the stream's natural end.
	IsEOF(err error) bool
}

type byteSliceStream struct {
	data []byte
	pos  int
}

// NewByteSliceStream returns a Stream backed by an in-memory byte slice.
// Every read failure it produces is classified as end-of-stream.
func NewByteSliceStream(data []byte) Stream {
	return &byteSliceStream{data: data}
}

func (s *byteSliceStream) Offset() int64 { return int64(s.pos) }

func (s *byteSliceStream) ReadByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

func (s *byteSliceStream) ReadExact(buf []byte) error {
	if len(buf) > len(s.data)-s.pos {
		return io.ErrUnexpectedEOF
	}
	copy(buf, s.data[s.pos:s.pos+len(buf)])
	s.pos += len(buf)
	return nil
}

func (s *byteSliceStream) SkipBytes(n int64) error {
	if n < 0 || n > int64(len(s.data)-s.pos) {
		return io.ErrUnexpectedEOF
	}
	s.pos += int(n)
	return nil
}

func (s *byteSliceStream) IsEOF(error) bool { return true }

type readSeekStream struct {
	r   io.ReadSeeker
	off int64
}

// NewReadSeekStream returns a Stream backed by an io.ReadSeeker, for
// callers that do not want to hold the whole module in memory.
func NewReadSeekStream(r io.ReadSeeker) Stream {
	return &readSeekStream{r: r}
}

func (s *readSeekStream) Offset() int64 { return s.off }

func (s *readSeekStream) ReadByte() (byte, error) {
	var b [1]byte
	n, err := io.ReadFull(s.r, b[:])
	s.off += int64(n)
	if err != nil {
		return 0, normalizeEOF(err)
	}
	return b[0], nil
}

func (s *readSeekStream) ReadExact(buf []byte) error {
	n, err := io.ReadFull(s.r, buf)
	s.off += int64(n)
	if err != nil {
		return normalizeEOF(err)
	}
	return nil
}

func (s *readSeekStream) SkipBytes(n int64) error {
	_, err := s.r.Seek(n, io.SeekCurrent)
	if err != nil {
		return err
	}
	s.off += n
	return nil
}

func (s *readSeekStream) IsEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// normalizeEOF maps io.ReadFull's io.ErrUnexpectedEOF (a short, nonzero
// read) to io.EOF too: either way, the underlying reader has nothing
// more for us, and it is the decoder's job, not the stream's, to decide
// whether encountering that boundary here is well-formed or not.
func normalizeEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
