// Package sim is a small deterministic park simulation. It stands in for the
// real game world: every peer runs one and the session keeps them in step.
package sim

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	"lukechampine.com/blake3"

	"github.com/mcoot/parksync/internal/action"
)

// Prices and limits
const (
	StartingMoney      int64 = 10_000
	StartingLoan       int64 = 5_000
	SceneryCost        int64 = 5
	RideCost           int64 = 1_000
	DemolishRefund     int64 = 500
	TerraformCostUnit  int64 = 10
	MaxEntranceFee     int64 = 200
	MaxTileHeight            = 64
	MinTileHeight            = 0
	DefaultTileHeight        = 14
	guestArrivalPeriod       = 40
)

// DefaultObjects is the object set a new park requires
var DefaultObjects = []string{"tree.oak", "tree.pine", "bench.wood", "lamp.classic", "fence.picket"}

// Scenery is one placed object
type Scenery struct {
	X        int16  `msgpack:"x"`
	Y        int16  `msgpack:"y"`
	Object   uint16 `msgpack:"o"`
	Rotation uint8  `msgpack:"r"`
	Colour   uint8  `msgpack:"c"`
}

// Ride is one built ride
type Ride struct {
	ID         uint16 `msgpack:"id"`
	Type       uint8  `msgpack:"type"`
	Name       string `msgpack:"name"`
	Excitement uint32 `msgpack:"excitement"`
}

type tile struct {
	X      int16 `msgpack:"x"`
	Y      int16 `msgpack:"y"`
	Height int8  `msgpack:"h"`
}

// world is the serialized park state. Slices are kept sorted so that the
// encoding, and therefore the checksum, only depends on content.
type world struct {
	Tick        uint32          `msgpack:"tick"`
	Seed        uint32          `msgpack:"seed"`
	Name        string          `msgpack:"name"`
	Paused      bool            `msgpack:"paused"`
	Money       int64           `msgpack:"money"`
	Loan        int64           `msgpack:"loan"`
	EntranceFee int64           `msgpack:"fee"`
	Guests      uint32          `msgpack:"guests"`
	Weather     bool            `msgpack:"weather_frozen"`
	NextRideID  uint16          `msgpack:"next_ride"`
	Objects     []string        `msgpack:"objects"`
	Scenery     []Scenery       `msgpack:"scenery"`
	Rides       []Ride          `msgpack:"rides"`
	Tiles       []tile          `msgpack:"tiles"`
	Options     map[int32]int32 `msgpack:"options"`
}

// Park implements the simulation the session drives. It is not safe for
// concurrent use; the host loop owns it.
type Park struct {
	w world
}

// New creates a park requiring the given objects
func New(name string, seed uint32, objects []string) *Park {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	return &Park{w: world{
		Name:    name,
		Seed:    seed,
		Money:   StartingMoney,
		Loan:    StartingLoan,
		Objects: slices.Clone(objects),
		Options: make(map[int32]int32),
	}}
}

// NewEmpty creates a park with no state, ready to load a snapshot
func NewEmpty(objects []string) *Park {
	p := New("", 0, nil)
	p.w.Objects = slices.Clone(objects)
	return p
}

// CurrentTick returns the number of completed ticks
func (p *Park) CurrentTick() uint32 { return p.w.Tick }

// Seed returns the random state after the current tick
func (p *Park) Seed() uint32 { return p.w.Seed }

// Name returns the park name
func (p *Park) Name() string { return p.w.Name }

// Money returns the park's cash
func (p *Park) Money() int64 { return p.w.Money }

// Paused reports whether the park is paused
func (p *Park) Paused() bool { return p.w.Paused }

// Rides returns a copy of the built rides
func (p *Park) Rides() []Ride { return slices.Clone(p.w.Rides) }

// Scenery returns a copy of the placed scenery
func (p *Park) Scenery() []Scenery { return slices.Clone(p.w.Scenery) }

// Objects returns the object names the park requires
func (p *Park) Objects() []string { return slices.Clone(p.w.Objects) }

// HasObject reports whether the object is available locally
func (p *Park) HasObject(name string) bool {
	return slices.Contains(p.w.Objects, name)
}

// next advances the xorshift state and returns it
func (p *Park) next() uint32 {
	x := p.w.Seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	p.w.Seed = x
	return x
}

// Advance runs one tick
func (p *Park) Advance() {
	p.w.Tick++
	r := p.next()
	if p.w.Paused {
		return
	}
	if p.w.Tick%guestArrivalPeriod == 0 && len(p.w.Rides) > 0 {
		arrivals := 1 + r%uint32(len(p.w.Rides)+1)
		p.w.Guests += arrivals
		p.w.Money += int64(arrivals) * p.w.EntranceFee
	}
}

// Execute applies an action to the park
func (p *Park) Execute(a *action.Action) action.Result {
	switch params := a.Params.(type) {
	case *action.SetPause:
		p.w.Paused = params.Paused
		return action.Success(0)
	case *action.LoadOrQuit:
		return action.Success(0)
	case *action.PlaceScenery:
		return p.placeScenery(params)
	case *action.RemoveScenery:
		return p.removeScenery(params)
	case *action.CreateRide:
		return p.createRide(params)
	case *action.DemolishRide:
		return p.demolishRide(params)
	case *action.SetParkName:
		if params.Name == "" {
			return action.Failure(action.StatusInvalidParameters, "park name cannot be empty")
		}
		p.w.Name = params.Name
		return action.Success(0)
	case *action.SetEntranceFee:
		if params.Fee < 0 || params.Fee > MaxEntranceFee {
			return action.Failure(action.StatusInvalidParameters, fmt.Sprintf("entrance fee must be between 0 and %d", MaxEntranceFee))
		}
		p.w.EntranceFee = params.Fee
		return action.Success(0)
	case *action.Terraform:
		return p.terraform(params)
	case *action.ModifyTile:
		if params.Height < MinTileHeight || params.Height > MaxTileHeight {
			return action.Failure(action.StatusInvalidParameters, "tile height out of range")
		}
		p.setHeight(params.X, params.Y, params.Height)
		return action.Success(0)
	case *action.SetScenarioOption:
		p.w.Options[int32(params.Option)] = params.Value
		return action.Success(0)
	case *action.Cheat:
		return p.cheat(params)
	}
	return action.Failure(action.StatusDisallowed, fmt.Sprintf("%s is not a park action", a.Type()))
}

func (p *Park) spend(cost int64) bool {
	if cost > p.w.Money {
		return false
	}
	p.w.Money -= cost
	return true
}

func (p *Park) placeScenery(params *action.PlaceScenery) action.Result {
	if int(params.Object) >= len(p.w.Objects) {
		return action.Failure(action.StatusInvalidParameters, "unknown scenery object")
	}
	i, found := p.findScenery(params.X, params.Y, params.Object)
	if found {
		return action.Failure(action.StatusDisallowed, "scenery already placed here")
	}
	if !p.spend(SceneryCost) {
		return action.Failure(action.StatusInsufficientFunds, "not enough cash")
	}
	p.w.Scenery = slices.Insert(p.w.Scenery, i, Scenery{
		X: params.X, Y: params.Y, Object: params.Object,
		Rotation: params.Rotation, Colour: params.Colour,
	})
	return action.Success(SceneryCost)
}

func (p *Park) removeScenery(params *action.RemoveScenery) action.Result {
	i, found := p.findScenery(params.X, params.Y, params.Object)
	if !found {
		return action.Failure(action.StatusNotFound, "no such scenery")
	}
	p.w.Scenery = slices.Delete(p.w.Scenery, i, i+1)
	return action.Success(0)
}

func (p *Park) findScenery(x, y int16, object uint16) (int, bool) {
	return slices.BinarySearchFunc(p.w.Scenery, Scenery{X: x, Y: y, Object: object}, func(a, b Scenery) int {
		if a.X != b.X {
			return int(a.X) - int(b.X)
		}
		if a.Y != b.Y {
			return int(a.Y) - int(b.Y)
		}
		return int(a.Object) - int(b.Object)
	})
}

func (p *Park) createRide(params *action.CreateRide) action.Result {
	if !p.spend(RideCost) {
		return action.Failure(action.StatusInsufficientFunds, "not enough cash")
	}
	p.w.NextRideID++
	name := params.Name
	if name == "" {
		name = fmt.Sprintf("Ride %d", p.w.NextRideID)
	}
	p.w.Rides = append(p.w.Rides, Ride{
		ID:         p.w.NextRideID,
		Type:       params.RideType,
		Name:       name,
		Excitement: p.next() % 1000,
	})
	return action.Success(RideCost)
}

func (p *Park) demolishRide(params *action.DemolishRide) action.Result {
	i := slices.IndexFunc(p.w.Rides, func(r Ride) bool { return r.ID == params.RideID })
	if i < 0 {
		return action.Failure(action.StatusNotFound, "no such ride")
	}
	p.w.Rides = slices.Delete(p.w.Rides, i, i+1)
	p.w.Money += DemolishRefund
	return action.Success(-DemolishRefund)
}

func (p *Park) terraform(params *action.Terraform) action.Result {
	h := int(p.height(params.X, params.Y)) + int(params.Delta)
	if h < MinTileHeight || h > MaxTileHeight {
		return action.Failure(action.StatusInvalidParameters, "tile height out of range")
	}
	steps := int64(params.Delta)
	if steps < 0 {
		steps = -steps
	}
	cost := TerraformCostUnit * steps
	if !p.spend(cost) {
		return action.Failure(action.StatusInsufficientFunds, "not enough cash")
	}
	p.setHeight(params.X, params.Y, int8(h))
	return action.Success(cost)
}

func (p *Park) tileIndex(x, y int16) (int, bool) {
	return slices.BinarySearchFunc(p.w.Tiles, tile{X: x, Y: y}, func(a, b tile) int {
		if a.X != b.X {
			return int(a.X) - int(b.X)
		}
		return int(a.Y) - int(b.Y)
	})
}

func (p *Park) height(x, y int16) int8 {
	if i, ok := p.tileIndex(x, y); ok {
		return p.w.Tiles[i].Height
	}
	return DefaultTileHeight
}

func (p *Park) setHeight(x, y int16, h int8) {
	i, ok := p.tileIndex(x, y)
	if ok {
		p.w.Tiles[i].Height = h
		return
	}
	p.w.Tiles = slices.Insert(p.w.Tiles, i, tile{X: x, Y: y, Height: h})
}

// Height returns the height of a tile
func (p *Park) Height(x, y int16) int8 {
	return p.height(x, y)
}

func (p *Park) cheat(params *action.Cheat) action.Result {
	switch params.Kind {
	case action.CheatAddMoney:
		p.w.Money += int64(params.Param)
	case action.CheatClearLoan:
		p.w.Loan = 0
	case action.CheatFreezeWeather:
		p.w.Weather = params.Param != 0
	default:
		return action.Failure(action.StatusInvalidParameters, "unknown cheat")
	}
	return action.Success(0)
}

func (p *Park) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&p.w); err != nil {
		return nil, fmt.Errorf("encode park: %w", err)
	}
	return buf.Bytes(), nil
}

// Snapshot serializes the park
func (p *Park) Snapshot() ([]byte, error) {
	return p.encode()
}

// Load replaces the park with a snapshot
func (p *Park) Load(data []byte) error {
	var w world
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode park: %w", err)
	}
	if w.Options == nil {
		w.Options = make(map[int32]int32)
	}
	p.w = w
	return nil
}

// Checksum returns a fingerprint of the whole park state
func (p *Park) Checksum() string {
	data, err := p.encode()
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
