package action

import "github.com/mcoot/parksync/internal/protocol"

// Params is the kind-specific part of an action. The set of implementations
// is closed to this package.
type Params interface {
	Type() Type
	encode(w *protocol.Writer)
	decode(r *protocol.Reader)
}

func newParams(t Type) Params {
	switch t {
	case TypeSetPause:
		return &SetPause{}
	case TypeLoadOrQuit:
		return &LoadOrQuit{}
	case TypePlaceScenery:
		return &PlaceScenery{}
	case TypeRemoveScenery:
		return &RemoveScenery{}
	case TypeCreateRide:
		return &CreateRide{}
	case TypeDemolishRide:
		return &DemolishRide{}
	case TypeSetParkName:
		return &SetParkName{}
	case TypeSetEntranceFee:
		return &SetEntranceFee{}
	case TypeTerraform:
		return &Terraform{}
	case TypeModifyTile:
		return &ModifyTile{}
	case TypeSetScenarioOption:
		return &SetScenarioOption{}
	case TypeCheat:
		return &Cheat{}
	case TypeModifyGroup:
		return &ModifyGroup{}
	case TypeSetPlayerGroup:
		return &SetPlayerGroup{}
	case TypeKickPlayer:
		return &KickPlayer{}
	}
	return nil
}

func writeBool(w *protocol.Writer, b bool) {
	if b {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// SetPause pauses or resumes the simulation
type SetPause struct {
	Paused bool
}

func (*SetPause) Type() Type                  { return TypeSetPause }
func (p *SetPause) encode(w *protocol.Writer) { writeBool(w, p.Paused) }
func (p *SetPause) decode(r *protocol.Reader) { p.Paused = r.U8() != 0 }

// LoadOrQuitMode selects what the host is doing with the current park
type LoadOrQuitMode uint8

const (
	LoadOrQuitOpenPrompt LoadOrQuitMode = iota
	LoadOrQuitClosePrompt
)

// LoadOrQuit opens or closes the host's save prompt
type LoadOrQuit struct {
	Mode LoadOrQuitMode
}

func (*LoadOrQuit) Type() Type                  { return TypeLoadOrQuit }
func (p *LoadOrQuit) encode(w *protocol.Writer) { w.U8(uint8(p.Mode)) }
func (p *LoadOrQuit) decode(r *protocol.Reader) { p.Mode = LoadOrQuitMode(r.U8()) }

// PlaceScenery places a scenery object on a tile
type PlaceScenery struct {
	X, Y     int16
	Object   uint16
	Rotation uint8
	Colour   uint8
}

func (*PlaceScenery) Type() Type { return TypePlaceScenery }

func (p *PlaceScenery) encode(w *protocol.Writer) {
	w.U16(uint16(p.X))
	w.U16(uint16(p.Y))
	w.U16(p.Object)
	w.U8(p.Rotation)
	w.U8(p.Colour)
}

func (p *PlaceScenery) decode(r *protocol.Reader) {
	p.X = int16(r.U16())
	p.Y = int16(r.U16())
	p.Object = r.U16()
	p.Rotation = r.U8()
	p.Colour = r.U8()
}

// RemoveScenery clears a scenery object from a tile
type RemoveScenery struct {
	X, Y   int16
	Object uint16
}

func (*RemoveScenery) Type() Type { return TypeRemoveScenery }

func (p *RemoveScenery) encode(w *protocol.Writer) {
	w.U16(uint16(p.X))
	w.U16(uint16(p.Y))
	w.U16(p.Object)
}

func (p *RemoveScenery) decode(r *protocol.Reader) {
	p.X = int16(r.U16())
	p.Y = int16(r.U16())
	p.Object = r.U16()
}

// CreateRide opens a new ride
type CreateRide struct {
	RideType uint8
	Name     string
}

func (*CreateRide) Type() Type { return TypeCreateRide }

func (p *CreateRide) encode(w *protocol.Writer) {
	w.U8(p.RideType)
	w.String(p.Name)
}

func (p *CreateRide) decode(r *protocol.Reader) {
	p.RideType = r.U8()
	p.Name = r.String()
}

// DemolishRide removes a ride
type DemolishRide struct {
	RideID uint16
}

func (*DemolishRide) Type() Type                  { return TypeDemolishRide }
func (p *DemolishRide) encode(w *protocol.Writer) { w.U16(p.RideID) }
func (p *DemolishRide) decode(r *protocol.Reader) { p.RideID = r.U16() }

// SetParkName renames the park
type SetParkName struct {
	Name string
}

func (*SetParkName) Type() Type                  { return TypeSetParkName }
func (p *SetParkName) encode(w *protocol.Writer) { w.String(p.Name) }
func (p *SetParkName) decode(r *protocol.Reader) { p.Name = r.String() }

// SetEntranceFee changes the park admission price
type SetEntranceFee struct {
	Fee int64
}

func (*SetEntranceFee) Type() Type                  { return TypeSetEntranceFee }
func (p *SetEntranceFee) encode(w *protocol.Writer) { w.I64(p.Fee) }
func (p *SetEntranceFee) decode(r *protocol.Reader) { p.Fee = r.I64() }

// Terraform raises or lowers a tile
type Terraform struct {
	X, Y  int16
	Delta int8
}

func (*Terraform) Type() Type { return TypeTerraform }

func (p *Terraform) encode(w *protocol.Writer) {
	w.U16(uint16(p.X))
	w.U16(uint16(p.Y))
	w.U8(uint8(p.Delta))
}

func (p *Terraform) decode(r *protocol.Reader) {
	p.X = int16(r.U16())
	p.Y = int16(r.U16())
	p.Delta = int8(r.U8())
}

// ModifyTile sets a tile's height directly
type ModifyTile struct {
	X, Y   int16
	Height int8
}

func (*ModifyTile) Type() Type { return TypeModifyTile }

func (p *ModifyTile) encode(w *protocol.Writer) {
	w.U16(uint16(p.X))
	w.U16(uint16(p.Y))
	w.U8(uint8(p.Height))
}

func (p *ModifyTile) decode(r *protocol.Reader) {
	p.X = int16(r.U16())
	p.Y = int16(r.U16())
	p.Height = int8(r.U8())
}

// SetScenarioOption changes one scenario setting
type SetScenarioOption struct {
	Option uint8
	Value  int32
}

func (*SetScenarioOption) Type() Type { return TypeSetScenarioOption }

func (p *SetScenarioOption) encode(w *protocol.Writer) {
	w.U8(p.Option)
	w.I32(p.Value)
}

func (p *SetScenarioOption) decode(r *protocol.Reader) {
	p.Option = r.U8()
	p.Value = r.I32()
}

// CheatKind selects a cheat
type CheatKind uint8

const (
	CheatAddMoney CheatKind = iota
	CheatClearLoan
	CheatFreezeWeather
)

// Cheat applies a cheat with an optional parameter
type Cheat struct {
	Kind  CheatKind
	Param int32
}

func (*Cheat) Type() Type { return TypeCheat }

func (p *Cheat) encode(w *protocol.Writer) {
	w.U8(uint8(p.Kind))
	w.I32(p.Param)
}

func (p *Cheat) decode(r *protocol.Reader) {
	p.Kind = CheatKind(r.U8())
	p.Param = r.I32()
}

// GroupOp selects a group registry mutation
type GroupOp uint8

const (
	GroupOpAdd GroupOp = iota
	GroupOpRemove
	GroupOpRename
	GroupOpSetPermission
	GroupOpSetDefault
)

// ModifyGroup edits the group registry
type ModifyGroup struct {
	Op         GroupOp
	GroupID    uint8
	Permission uint8
	Enabled    bool
	Name       string
}

func (*ModifyGroup) Type() Type { return TypeModifyGroup }

func (p *ModifyGroup) encode(w *protocol.Writer) {
	w.U8(uint8(p.Op))
	w.U8(p.GroupID)
	w.U8(p.Permission)
	writeBool(w, p.Enabled)
	w.String(p.Name)
}

func (p *ModifyGroup) decode(r *protocol.Reader) {
	p.Op = GroupOp(r.U8())
	p.GroupID = r.U8()
	p.Permission = r.U8()
	p.Enabled = r.U8() != 0
	p.Name = r.String()
}

// SetPlayerGroup moves a player to another group
type SetPlayerGroup struct {
	PlayerID uint8
	GroupID  uint8
}

func (*SetPlayerGroup) Type() Type { return TypeSetPlayerGroup }

func (p *SetPlayerGroup) encode(w *protocol.Writer) {
	w.U8(p.PlayerID)
	w.U8(p.GroupID)
}

func (p *SetPlayerGroup) decode(r *protocol.Reader) {
	p.PlayerID = r.U8()
	p.GroupID = r.U8()
}

// KickPlayer disconnects a player
type KickPlayer struct {
	PlayerID uint8
}

func (*KickPlayer) Type() Type                  { return TypeKickPlayer }
func (p *KickPlayer) encode(w *protocol.Writer) { w.U8(p.PlayerID) }
func (p *KickPlayer) decode(r *protocol.Reader) { p.PlayerID = r.U8() }
