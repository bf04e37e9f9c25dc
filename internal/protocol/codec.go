package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Decode errors
var (
	ErrTruncated = errors.New("packet truncated")
	ErrMalformed = errors.New("malformed packet")
)

// Writer builds a packet payload. All integers are written big-endian.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty payload writer
func NewWriter() *Writer {
	return &Writer{}
}

// U8 appends a single byte
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a 16-bit integer
func (w *Writer) U16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// U32 appends a 32-bit integer
func (w *Writer) U32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// U64 appends a 64-bit integer
func (w *Writer) U64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// I32 appends a signed 32-bit integer
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// I64 appends a signed 64-bit integer
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// String appends s as a null-terminated string. Anything after an embedded
// NUL is dropped, since the reader could not recover it.
func (w *Writer) String(s string) {
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		s = s[:i]
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Raw appends bytes without a length prefix
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Blob appends a u32 length followed by the bytes
func (w *Writer) Blob(b []byte) {
	w.U32(uint32(len(b)))
	w.Raw(b)
}

// Len returns the number of bytes written so far
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the payload written so far
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader is a sequential cursor over a packet payload. The first failed read
// sets a sticky error; later reads return zero values. Callers check Err once
// after decoding a whole message.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader creates a cursor over data
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.pos {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, len(r.data)-r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// U8 reads a single byte
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a 16-bit integer
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// U32 reads a 32-bit integer
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// U64 reads a 64-bit integer
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// I32 reads a signed 32-bit integer
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// I64 reads a signed 64-bit integer
func (r *Reader) I64() int64 {
	return int64(r.U64())
}

// String reads a null-terminated string
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.data[r.pos:], 0)
	if i < 0 {
		r.err = fmt.Errorf("%w: unterminated string at offset %d", ErrTruncated, r.pos)
		return ""
	}
	s := string(r.data[r.pos : r.pos+i])
	r.pos += i + 1
	return s
}

// Raw reads n bytes. The result is a copy and safe to retain.
func (r *Reader) Raw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Blob reads a u32 length followed by that many bytes
func (r *Reader) Blob() []byte {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if int64(n) > int64(r.Remaining()) {
		r.err = fmt.Errorf("%w: blob of %d bytes exceeds remaining %d", ErrTruncated, n, r.Remaining())
		return nil
	}
	return r.Raw(int(n))
}

// Count reads a u32 element count and rejects values above limit
func (r *Reader) Count(limit int) int {
	n := r.U32()
	if r.err != nil {
		return 0
	}
	if int64(n) > int64(limit) {
		r.err = fmt.Errorf("%w: count %d exceeds limit %d", ErrMalformed, n, limit)
		return 0
	}
	return int(n)
}

// Fail records err unless an earlier error is already set
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Consumed returns the number of bytes read so far
func (r *Reader) Consumed() int {
	return r.pos
}

// Err returns the first decode error, if any
func (r *Reader) Err() error {
	return r.err
}
