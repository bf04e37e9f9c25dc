package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/mcoot/parksync/internal/protocol"
)

// Snapshot header tags. A tag is followed by a NUL byte and the compressed
// world; a payload without a tag is the raw world.
const (
	ZlibTag = "open2_sv6_zlib"
	LZ4Tag  = "parksync_sv6_lz4"
)

// MaxSnapshotSize bounds the declared size of a transferred world
const MaxSnapshotSize = 256 << 20

// World transfer errors
var (
	ErrBadChunk         = errors.New("bad map chunk")
	ErrSnapshotTooLarge = errors.New("snapshot too large")
)

// EncodeSnapshot packs a world snapshot for transfer
func EncodeSnapshot(world []byte, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case CompressionNone, "":
		return world, nil
	case CompressionZlib:
		buf.WriteString(ZlibTag)
		buf.WriteByte(0)
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("zlib writer: %w", err)
		}
		if _, err := zw.Write(world); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
	case CompressionLZ4:
		buf.WriteString(LZ4Tag)
		buf.WriteByte(0)
		lw := lz4.NewWriter(&buf)
		if _, err := lw.Write(world); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := lw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot unpacks a transferred payload into the raw world
func DecodeSnapshot(payload []byte) ([]byte, error) {
	if body, ok := cutTag(payload, ZlibTag); ok {
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("zlib reader: %w", err)
		}
		defer zr.Close()
		world, err := readLimited(zr)
		if err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		return world, nil
	}
	if body, ok := cutTag(payload, LZ4Tag); ok {
		world, err := readLimited(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return world, nil
	}
	return payload, nil
}

func cutTag(payload []byte, tag string) ([]byte, bool) {
	if len(payload) <= len(tag) || string(payload[:len(tag)]) != tag || payload[len(tag)] != 0 {
		return nil, false
	}
	return payload[len(tag)+1:], true
}

func readLimited(r io.Reader) ([]byte, error) {
	world, err := io.ReadAll(io.LimitReader(r, MaxSnapshotSize+1))
	if err != nil {
		return nil, err
	}
	if len(world) > MaxSnapshotSize {
		return nil, ErrSnapshotTooLarge
	}
	return world, nil
}

// SplitSnapshot cuts a payload into MAP chunks of at most size bytes
func SplitSnapshot(payload []byte, size int) []protocol.MapChunk {
	total := uint32(len(payload))
	if len(payload) == 0 {
		return []protocol.MapChunk{{Total: 0, Offset: 0}}
	}
	chunks := make([]protocol.MapChunk, 0, (len(payload)+size-1)/size)
	for off := 0; off < len(payload); off += size {
		end := min(off+size, len(payload))
		chunks = append(chunks, protocol.MapChunk{
			Total:  total,
			Offset: uint32(off),
			Data:   payload[off:end],
		})
	}
	return chunks
}

// Reassembler collects MAP chunks into the full payload. Chunks may arrive
// in any order but must not overlap.
type Reassembler struct {
	buf      []byte
	total    int
	received int
	started  bool
	// spans holds the [start, end) ranges written so far
	spans [][2]int
}

// Add stores a chunk and reports whether the payload is complete
func (r *Reassembler) Add(c protocol.MapChunk) (bool, error) {
	total := int(c.Total)
	if total > MaxSnapshotSize {
		return false, fmt.Errorf("%w: %d bytes", ErrSnapshotTooLarge, total)
	}
	if !r.started {
		r.buf = make([]byte, total)
		r.total = total
		r.started = true
	} else if total != r.total {
		return false, fmt.Errorf("%w: total changed from %d to %d", ErrBadChunk, r.total, total)
	}

	end := int(c.Offset) + len(c.Data)
	if int(c.Offset) > total || end > total {
		return false, fmt.Errorf("%w: chunk %d+%d exceeds total %d", ErrBadChunk, c.Offset, len(c.Data), total)
	}
	start := int(c.Offset)
	if start < end {
		for _, sp := range r.spans {
			if start < sp[1] && sp[0] < end {
				return false, fmt.Errorf("%w: chunk %d+%d overlaps %d+%d", ErrBadChunk, start, len(c.Data), sp[0], sp[1]-sp[0])
			}
		}
		r.spans = append(r.spans, [2]int{start, end})
	}
	copy(r.buf[start:end], c.Data)
	r.received += len(c.Data)
	return r.received == r.total, nil
}

// Progress returns received and total byte counts
func (r *Reassembler) Progress() (received, total int) {
	return r.received, r.total
}

// Bytes returns the reassembled payload
func (r *Reassembler) Bytes() []byte {
	return r.buf
}

// Reset prepares for a new transfer
func (r *Reassembler) Reset() {
	*r = Reassembler{}
}
