package protocol

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CodecSuite struct {
	suite.Suite
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) TestCursorRoundTrip() {
	w := NewWriter()
	w.U8(7)
	w.U16(0xBEEF)
	w.U32(0xDEADBEEF)
	w.I64(-42)
	w.String("Alice")
	w.Blob([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	s.Equal(uint8(7), r.U8())
	s.Equal(uint16(0xBEEF), r.U16())
	s.Equal(uint32(0xDEADBEEF), r.U32())
	s.Equal(int64(-42), r.I64())
	s.Equal("Alice", r.String())
	s.Equal([]byte{1, 2, 3}, r.Blob())
	s.NoError(r.Err())
	s.Zero(r.Remaining())
	s.Equal(w.Len(), r.Consumed())
}

func (s *CodecSuite) TestBigEndian() {
	w := NewWriter()
	w.U32(1)
	s.Equal([]byte{0, 0, 0, 1}, w.Bytes())
}

func (s *CodecSuite) TestTruncatedReadIsSticky() {
	r := NewReader([]byte{0, 1})
	s.Equal(uint32(0), r.U32())
	s.ErrorIs(r.Err(), ErrTruncated)

	// Later reads see the same error even if they would fit
	s.Equal(uint8(0), r.U8())
	s.ErrorIs(r.Err(), ErrTruncated)
	s.Zero(r.Consumed())
}

func (s *CodecSuite) TestUnterminatedString() {
	r := NewReader([]byte("abc"))
	s.Empty(r.String())
	s.ErrorIs(r.Err(), ErrTruncated)
}

func (s *CodecSuite) TestBlobLongerThanPayload() {
	w := NewWriter()
	w.U32(100)
	w.Raw([]byte{1, 2})
	r := NewReader(w.Bytes())
	s.Nil(r.Blob())
	s.ErrorIs(r.Err(), ErrTruncated)
}

func (s *CodecSuite) TestStringDropsEmbeddedNul() {
	w := NewWriter()
	w.String("ab\x00cd")
	s.Equal([]byte("ab\x00"), w.Bytes())
}

func (s *CodecSuite) TestCountLimit() {
	w := NewWriter()
	w.U32(MaxObjects + 1)
	r := NewReader(w.Bytes())
	s.Zero(r.Count(MaxObjects))
	s.ErrorIs(r.Err(), ErrMalformed)
}
