package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the size of the u32 size + u32 command frame header
	HeaderSize = 8

	// MaxFrameSize bounds the declared size of a single frame, header included
	MaxFrameSize = 1 << 20

	// MaxPayloadSize is the largest payload that fits in one frame
	MaxPayloadSize = MaxFrameSize - HeaderSize
)

// Frame errors
var (
	ErrNeedMoreData   = errors.New("incomplete frame")
	ErrFrameTooLarge  = errors.New("frame size out of range")
	ErrUnknownCommand = errors.New("unknown command")
)

// Packet is one decoded frame
type Packet struct {
	Command Command
	Payload []byte
}

// NewPacket creates a packet from a command and a finished writer
func NewPacket(cmd Command, w *Writer) Packet {
	if w == nil {
		return Packet{Command: cmd}
	}
	return Packet{Command: cmd, Payload: w.Bytes()}
}

// Reader returns a cursor over the packet payload
func (p Packet) Reader() *Reader {
	return NewReader(p.Payload)
}

// EncodeFrame prefixes the packet payload with its frame header
func EncodeFrame(p Packet) ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrFrameTooLarge, len(p.Payload))
	}
	frame := make([]byte, HeaderSize, HeaderSize+len(p.Payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(HeaderSize+len(p.Payload)))
	binary.BigEndian.PutUint32(frame[4:8], uint32(p.Command))
	return append(frame, p.Payload...), nil
}

// DecodeFrame extracts the first complete frame from buf and returns it with
// the number of bytes it occupied. If buf holds only part of a frame it
// returns ErrNeedMoreData and consumes nothing. The returned payload is a copy.
func DecodeFrame(buf []byte) (Packet, int, error) {
	if len(buf) < HeaderSize {
		return Packet{}, 0, ErrNeedMoreData
	}
	size := binary.BigEndian.Uint32(buf[0:4])
	if size < HeaderSize || size > MaxFrameSize {
		return Packet{}, 0, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, size)
	}
	if uint32(len(buf)) < size {
		return Packet{}, 0, ErrNeedMoreData
	}
	cmd := Command(binary.BigEndian.Uint32(buf[4:8]))
	payload := make([]byte, size-HeaderSize)
	copy(payload, buf[HeaderSize:size])
	return Packet{Command: cmd, Payload: payload}, int(size), nil
}
