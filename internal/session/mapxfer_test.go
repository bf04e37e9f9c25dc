package session

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/parksync/internal/protocol"
)

type MapTransferSuite struct {
	suite.Suite
	world []byte
}

func TestMapTransferSuite(t *testing.T) {
	suite.Run(t, new(MapTransferSuite))
}

func (s *MapTransferSuite) SetupTest() {
	rng := rand.New(rand.NewPCG(1, 2))
	s.world = make([]byte, 0, 200_000)
	for len(s.world) < 200_000 {
		// runs of random length keep the data compressible but not trivial
		v := byte(rng.IntN(256))
		for n := 1 + rng.IntN(64); n > 0 && len(s.world) < 200_000; n-- {
			s.world = append(s.world, v)
		}
	}
}

func (s *MapTransferSuite) TestCompressionRoundTrip() {
	for _, c := range []Compression{CompressionNone, CompressionZlib, CompressionLZ4} {
		s.Run(string(c), func() {
			packed, err := EncodeSnapshot(s.world, c)
			s.Require().NoError(err)
			if c != CompressionNone {
				s.Less(len(packed), len(s.world))
			}
			world, err := DecodeSnapshot(packed)
			s.Require().NoError(err)
			s.Equal(s.world, world)
		})
	}
}

func (s *MapTransferSuite) TestZlibPayloadStartsWithTag() {
	packed, err := EncodeSnapshot(s.world, CompressionZlib)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(packed, []byte("open2_sv6_zlib\x00")))
}

func (s *MapTransferSuite) TestUntaggedPayloadIsRaw() {
	world, err := DecodeSnapshot([]byte("open2_sv6_zli"))
	s.Require().NoError(err)
	s.Equal([]byte("open2_sv6_zli"), world)
}

func (s *MapTransferSuite) TestCorruptCompressedPayload() {
	_, err := DecodeSnapshot(append([]byte(ZlibTag+"\x00"), 1, 2, 3))
	s.Error(err)
}

func (s *MapTransferSuite) TestReassembleInOrder() {
	chunks := SplitSnapshot(s.world, 65000)
	s.Len(chunks, 4)

	var r Reassembler
	for i, c := range chunks {
		done, err := r.Add(c)
		s.Require().NoError(err)
		s.Equal(i == len(chunks)-1, done)
	}
	s.Equal(s.world, r.Bytes())
}

func (s *MapTransferSuite) TestReassembleAnyOrder() {
	rng := rand.New(rand.NewPCG(3, 4))
	for trial := 0; trial < 20; trial++ {
		// arbitrary chunk sizes
		var chunks []protocol.MapChunk
		for off := 0; off < len(s.world); {
			n := min(1+rng.IntN(30000), len(s.world)-off)
			chunks = append(chunks, protocol.MapChunk{
				Total: uint32(len(s.world)), Offset: uint32(off), Data: s.world[off : off+n],
			})
			off += n
		}
		rng.Shuffle(len(chunks), func(i, j int) { chunks[i], chunks[j] = chunks[j], chunks[i] })

		var r Reassembler
		for i, c := range chunks {
			done, err := r.Add(c)
			s.Require().NoError(err)
			s.Equal(i == len(chunks)-1, done, "trial %d chunk %d", trial, i)
		}
		s.Equal(s.world, r.Bytes())
	}
}

func (s *MapTransferSuite) TestEmptySnapshot() {
	chunks := SplitSnapshot(nil, 100)
	s.Require().Len(chunks, 1)
	var r Reassembler
	done, err := r.Add(chunks[0])
	s.Require().NoError(err)
	s.True(done)
	s.Empty(r.Bytes())
}

func (s *MapTransferSuite) TestRejectsChunkPastTotal() {
	var r Reassembler
	_, err := r.Add(protocol.MapChunk{Total: 10, Offset: 8, Data: []byte{1, 2, 3}})
	s.ErrorIs(err, ErrBadChunk)
}

func (s *MapTransferSuite) TestRejectsOverlappingChunk() {
	var r Reassembler
	done, err := r.Add(protocol.MapChunk{Total: 10, Offset: 0, Data: []byte{1, 2, 3, 4, 5, 6}})
	s.Require().NoError(err)
	s.False(done)

	// 6 + 4 bytes would reach the total while bytes 8 and 9 were never sent
	done, err = r.Add(protocol.MapChunk{Total: 10, Offset: 4, Data: []byte{7, 8, 9, 10}})
	s.ErrorIs(err, ErrBadChunk)
	s.False(done)

	done, err = r.Add(protocol.MapChunk{Total: 10, Offset: 6, Data: []byte{7, 8, 9, 10}})
	s.Require().NoError(err)
	s.True(done)
	s.Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, r.Bytes())
}

func (s *MapTransferSuite) TestRejectsChangedTotal() {
	var r Reassembler
	_, err := r.Add(protocol.MapChunk{Total: 10, Offset: 0, Data: []byte{1}})
	s.Require().NoError(err)
	_, err = r.Add(protocol.MapChunk{Total: 11, Offset: 1, Data: []byte{1}})
	s.ErrorIs(err, ErrBadChunk)
}

func (s *MapTransferSuite) TestRejectsHugeTotal() {
	var r Reassembler
	_, err := r.Add(protocol.MapChunk{Total: MaxSnapshotSize + 1})
	s.ErrorIs(err, ErrSnapshotTooLarge)
}
