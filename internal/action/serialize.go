package action

import (
	"errors"
	"fmt"

	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
)

// Serialization errors
var (
	ErrUnknownType   = errors.New("unknown action type")
	ErrTrailingBytes = errors.New("trailing bytes after action")
)

// Serialize encodes the action header and params into a GAME_ACTION blob
func Serialize(a *Action) []byte {
	w := protocol.NewWriter()
	w.U32(a.Flags)
	w.U8(uint8(a.Player))
	w.U8(a.Callback)
	a.Params.encode(w)
	return w.Bytes()
}

// Deserialize decodes a GAME_ACTION blob of kind t
func Deserialize(t Type, blob []byte) (*Action, error) {
	params := newParams(t)
	if params == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint32(t))
	}
	r := protocol.NewReader(blob)
	a := &Action{
		Flags:    r.U32(),
		Player:   model.PlayerID(r.U8()),
		Callback: r.U8(),
		Params:   params,
	}
	params.decode(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("decode %s: %w: %d bytes", t, ErrTrailingBytes, r.Remaining())
	}
	return a, nil
}

// ToMessage wraps the action in a GAME_ACTION message stamped with tick
func ToMessage(tick uint32, a *Action) protocol.GameAction {
	return protocol.GameAction{Tick: tick, Type: uint32(a.Type()), Blob: Serialize(a)}
}

// FromMessage decodes the action carried by a GAME_ACTION message
func FromMessage(m protocol.GameAction) (*Action, error) {
	return Deserialize(Type(m.Type), m.Blob)
}
