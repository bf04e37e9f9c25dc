package action

import (
	"errors"
	"fmt"
)

// Legacy command ids carried in the ESI argument of a GAMECMD packet
const (
	LegacyDemolishRide uint32 = 8
	LegacyPlaceScenery uint32 = 25
	LegacySetPause     uint32 = 32
)

// Argument positions of a legacy command
const (
	RegEAX = iota
	RegEBX
	RegECX
	RegEDX
	RegESI
	RegEDI
	RegEBP
)

// ErrNotLegacy is returned for commands with no legacy encoding
var ErrNotLegacy = errors.New("no legacy encoding")

// Registers is the positional argument set of a GAMECMD packet
type Registers [7]uint32

// FromRegisters decodes a legacy command into a typed action. EBX carries the
// action flags in its low byte.
func FromRegisters(regs Registers) (*Action, error) {
	a := &Action{Flags: regs[RegEBX] & 0xff}
	switch regs[RegESI] {
	case LegacyPlaceScenery:
		a.Params = &PlaceScenery{
			X:        int16(regs[RegEAX]),
			Y:        int16(regs[RegECX]),
			Object:   uint16(regs[RegEDX] & 0xffff),
			Rotation: uint8(regs[RegEBX] >> 8),
			Colour:   uint8(regs[RegEBP]),
		}
	case LegacyDemolishRide:
		a.Params = &DemolishRide{RideID: uint16(regs[RegEDX] & 0xffff)}
	case LegacySetPause:
		a.Params = &SetPause{Paused: regs[RegEDX] != 0}
	default:
		return nil, fmt.Errorf("%w: legacy command %d", ErrUnknownType, regs[RegESI])
	}
	return a, nil
}

// ToRegisters encodes an action as a legacy command
func ToRegisters(a *Action) (Registers, error) {
	var regs Registers
	regs[RegEBX] = a.Flags & 0xff
	switch p := a.Params.(type) {
	case *PlaceScenery:
		regs[RegESI] = LegacyPlaceScenery
		regs[RegEAX] = uint32(uint16(p.X))
		regs[RegECX] = uint32(uint16(p.Y))
		regs[RegEDX] = uint32(p.Object)
		regs[RegEBX] |= uint32(p.Rotation) << 8
		regs[RegEBP] = uint32(p.Colour)
	case *DemolishRide:
		regs[RegESI] = LegacyDemolishRide
		regs[RegEDX] = uint32(p.RideID)
	case *SetPause:
		regs[RegESI] = LegacySetPause
		if p.Paused {
			regs[RegEDX] = 1
		}
	default:
		return Registers{}, fmt.Errorf("%w: %s", ErrNotLegacy, a.Type())
	}
	return regs, nil
}
