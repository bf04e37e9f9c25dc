package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is exchanged in AUTH and must match exactly
const Version = "parksync-0.4"

// MaxObjects bounds the entry count of OBJECTS and MAPREQUEST lists
const MaxObjects = 4096

// TickFlagChecksum marks a TICK carrying a world checksum
const TickFlagChecksum uint32 = 1 << 0

// ErrorCode classifies a SHOWERROR message
type ErrorCode uint16

const (
	ErrorCodeActionFailed ErrorCode = iota + 1
	ErrorCodePermissionDenied
	ErrorCodeRateLimited
	ErrorCodeInvalidRequest
)

// EventType identifies an EVENT message
type EventType uint16

const (
	EventPlayerJoined EventType = iota
	EventPlayerDisconnected
)

func decodeErr(cmd Command, r *Reader) error {
	if err := r.Err(); err != nil {
		return fmt.Errorf("decode %s: %w", cmd, err)
	}
	return nil
}

// TokenChallenge is the server's reply to a TOKEN request
type TokenChallenge struct {
	Challenge []byte
}

// Packet encodes the challenge
func (m TokenChallenge) Packet() Packet {
	w := NewWriter()
	w.Blob(m.Challenge)
	return NewPacket(CommandToken, w)
}

// DecodeTokenChallenge decodes a server TOKEN packet
func DecodeTokenChallenge(p Packet) (TokenChallenge, error) {
	r := p.Reader()
	m := TokenChallenge{Challenge: r.Blob()}
	return m, decodeErr(p.Command, r)
}

// AuthRequest is sent by a client after signing the challenge
type AuthRequest struct {
	Version   string
	Name      string
	Password  string
	PublicKey string
	Signature []byte
}

// Packet encodes the request
func (m AuthRequest) Packet() Packet {
	w := NewWriter()
	w.String(m.Version)
	w.String(m.Name)
	w.String(m.Password)
	w.String(m.PublicKey)
	w.Blob(m.Signature)
	return NewPacket(CommandAuth, w)
}

// DecodeAuthRequest decodes a client AUTH packet
func DecodeAuthRequest(p Packet) (AuthRequest, error) {
	r := p.Reader()
	m := AuthRequest{
		Version:   r.String(),
		Name:      r.String(),
		Password:  r.String(),
		PublicKey: r.String(),
	}
	m.Signature = r.Blob()
	return m, decodeErr(p.Command, r)
}

// AuthReply is the server's verdict on an AuthRequest
type AuthReply struct {
	Status   AuthStatus
	PlayerID uint8
	// Version is the server's version, only sent with AuthBadVersion
	Version string
}

// Packet encodes the reply
func (m AuthReply) Packet() Packet {
	w := NewWriter()
	w.U32(uint32(m.Status))
	w.U8(m.PlayerID)
	if m.Status == AuthBadVersion {
		w.String(m.Version)
	}
	return NewPacket(CommandAuth, w)
}

// DecodeAuthReply decodes a server AUTH packet
func DecodeAuthReply(p Packet) (AuthReply, error) {
	r := p.Reader()
	m := AuthReply{Status: AuthStatus(r.U32()), PlayerID: r.U8()}
	if m.Status == AuthBadVersion {
		m.Version = r.String()
	}
	return m, decodeErr(p.Command, r)
}

// MapChunk carries one slice of the world snapshot
type MapChunk struct {
	Total  uint32
	Offset uint32
	Data   []byte
}

// Packet encodes the chunk
func (m MapChunk) Packet() Packet {
	w := NewWriter()
	w.U32(m.Total)
	w.U32(m.Offset)
	w.Raw(m.Data)
	return NewPacket(CommandMap, w)
}

// DecodeMapChunk decodes a MAP packet
func DecodeMapChunk(p Packet) (MapChunk, error) {
	r := p.Reader()
	m := MapChunk{Total: r.U32(), Offset: r.U32()}
	m.Data = r.Raw(r.Remaining())
	return m, decodeErr(p.Command, r)
}

// Chat is a chat line. Clients send the raw text; the server relays the
// formatted line.
type Chat struct {
	Text string
}

// Packet encodes the chat line
func (m Chat) Packet() Packet {
	w := NewWriter()
	w.String(m.Text)
	return NewPacket(CommandChat, w)
}

// DecodeChat decodes a CHAT packet
func DecodeChat(p Packet) (Chat, error) {
	r := p.Reader()
	m := Chat{Text: r.String()}
	return m, decodeErr(p.Command, r)
}

// LegacyCommand is a GAMECMD packet carrying seven positional arguments
type LegacyCommand struct {
	Tick     uint32
	Args     [7]uint32
	PlayerID uint8
	Callback uint8
}

// Packet encodes the command. The player id is only present on packets the
// server relays.
func (m LegacyCommand) Packet(fromServer bool) Packet {
	w := NewWriter()
	w.U32(m.Tick)
	for _, a := range m.Args {
		w.U32(a)
	}
	if fromServer {
		w.U8(m.PlayerID)
	}
	w.U8(m.Callback)
	return NewPacket(CommandGameCmd, w)
}

// DecodeLegacyCommand decodes a GAMECMD packet
func DecodeLegacyCommand(p Packet, fromServer bool) (LegacyCommand, error) {
	r := p.Reader()
	m := LegacyCommand{Tick: r.U32()}
	for i := range m.Args {
		m.Args[i] = r.U32()
	}
	if fromServer {
		m.PlayerID = r.U8()
	}
	m.Callback = r.U8()
	return m, decodeErr(p.Command, r)
}

// GameAction carries one serialized action stamped with a tick
type GameAction struct {
	Tick uint32
	Type uint32
	Blob []byte
}

// Packet encodes the action
func (m GameAction) Packet() Packet {
	w := NewWriter()
	w.U32(m.Tick)
	w.U32(m.Type)
	w.Raw(m.Blob)
	return NewPacket(CommandGameAction, w)
}

// DecodeGameAction decodes a GAME_ACTION packet
func DecodeGameAction(p Packet) (GameAction, error) {
	r := p.Reader()
	m := GameAction{Tick: r.U32(), Type: r.U32()}
	m.Blob = r.Raw(r.Remaining())
	return m, decodeErr(p.Command, r)
}

// Tick is the server's per-tick fingerprint broadcast
type Tick struct {
	Tick     uint32
	Seed     uint32
	Flags    uint32
	Checksum string
}

// HasChecksum reports whether the checksum field is present
func (m Tick) HasChecksum() bool {
	return m.Flags&TickFlagChecksum != 0
}

// Packet encodes the tick
func (m Tick) Packet() Packet {
	w := NewWriter()
	w.U32(m.Tick)
	w.U32(m.Seed)
	w.U32(m.Flags)
	if m.HasChecksum() {
		w.String(m.Checksum)
	}
	return NewPacket(CommandTick, w)
}

// DecodeTick decodes a TICK packet
func DecodeTick(p Packet) (Tick, error) {
	r := p.Reader()
	m := Tick{Tick: r.U32(), Seed: r.U32(), Flags: r.U32()}
	if m.HasChecksum() {
		m.Checksum = r.String()
	}
	return m, decodeErr(p.Command, r)
}

// PlayerRecord is the replicated view of one player
type PlayerRecord struct {
	ID          uint8
	Name        string
	Group       uint8
	Flags       uint8
	Ping        uint16
	MoneySpent  int64
	CommandsRan uint32
	LastAction  uint32
}

func (m PlayerRecord) write(w *Writer) {
	w.U8(m.ID)
	w.String(m.Name)
	w.U8(m.Group)
	w.U8(m.Flags)
	w.U16(m.Ping)
	w.I64(m.MoneySpent)
	w.U32(m.CommandsRan)
	w.U32(m.LastAction)
}

func readPlayerRecord(r *Reader) PlayerRecord {
	return PlayerRecord{
		ID:          r.U8(),
		Name:        r.String(),
		Group:       r.U8(),
		Flags:       r.U8(),
		Ping:        r.U16(),
		MoneySpent:  r.I64(),
		CommandsRan: r.U32(),
		LastAction:  r.U32(),
	}
}

// Packet encodes the record as a PLAYERINFO message
func (m PlayerRecord) Packet() Packet {
	w := NewWriter()
	m.write(w)
	return NewPacket(CommandPlayerInfo, w)
}

// DecodePlayerInfo decodes a PLAYERINFO packet
func DecodePlayerInfo(p Packet) (PlayerRecord, error) {
	r := p.Reader()
	m := readPlayerRecord(r)
	return m, decodeErr(p.Command, r)
}

// PlayerList replaces the client's view of all players
type PlayerList struct {
	Players []PlayerRecord
}

// Packet encodes the list
func (m PlayerList) Packet() Packet {
	w := NewWriter()
	w.U8(uint8(len(m.Players)))
	for _, pl := range m.Players {
		pl.write(w)
	}
	return NewPacket(CommandPlayerList, w)
}

// DecodePlayerList decodes a PLAYERLIST packet
func DecodePlayerList(p Packet) (PlayerList, error) {
	r := p.Reader()
	n := int(r.U8())
	var m PlayerList
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Players = append(m.Players, readPlayerRecord(r))
	}
	return m, decodeErr(p.Command, r)
}

// PingEntry is one row of the ping table
type PingEntry struct {
	ID   uint8
	Ping uint16
}

// PingList is the server's broadcast ping table
type PingList struct {
	Entries []PingEntry
}

// Packet encodes the table
func (m PingList) Packet() Packet {
	w := NewWriter()
	w.U8(uint8(len(m.Entries)))
	for _, e := range m.Entries {
		w.U8(e.ID)
		w.U16(e.Ping)
	}
	return NewPacket(CommandPingList, w)
}

// DecodePingList decodes a PINGLIST packet
func DecodePingList(p Packet) (PingList, error) {
	r := p.Reader()
	n := int(r.U8())
	var m PingList
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Entries = append(m.Entries, PingEntry{ID: r.U8(), Ping: r.U16()})
	}
	return m, decodeErr(p.Command, r)
}

// DisconnectMessage tells a peer why it is about to be dropped
type DisconnectMessage struct {
	Reason string
}

// Packet encodes the message
func (m DisconnectMessage) Packet() Packet {
	w := NewWriter()
	w.String(m.Reason)
	return NewPacket(CommandSetDisconnectMsg, w)
}

// DecodeDisconnectMessage decodes a SETDISCONNECTMSG packet
func DecodeDisconnectMessage(p Packet) (DisconnectMessage, error) {
	r := p.Reader()
	m := DisconnectMessage{Reason: r.String()}
	return m, decodeErr(p.Command, r)
}

// GameInfo describes a server to unauthenticated peers
type GameInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"maxPlayers"`
	Password    bool   `json:"requiresPassword"`
}

// Packet encodes the info as a JSON string
func (m GameInfo) Packet() (Packet, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Packet{}, fmt.Errorf("encode game info: %w", err)
	}
	w := NewWriter()
	w.String(string(data))
	return NewPacket(CommandGameInfo, w), nil
}

// DecodeGameInfo decodes a GAMEINFO reply
func DecodeGameInfo(p Packet) (GameInfo, error) {
	r := p.Reader()
	raw := r.String()
	if err := decodeErr(p.Command, r); err != nil {
		return GameInfo{}, err
	}
	var m GameInfo
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return GameInfo{}, fmt.Errorf("decode %s: %w: %v", p.Command, ErrMalformed, err)
	}
	return m, nil
}

// ShowError asks the peer to display an error
type ShowError struct {
	Code    ErrorCode
	Message string
}

// Packet encodes the error
func (m ShowError) Packet() Packet {
	w := NewWriter()
	w.U16(uint16(m.Code))
	w.String(m.Message)
	return NewPacket(CommandShowError, w)
}

// DecodeShowError decodes a SHOWERROR packet
func DecodeShowError(p Packet) (ShowError, error) {
	r := p.Reader()
	m := ShowError{Code: ErrorCode(r.U16()), Message: r.String()}
	return m, decodeErr(p.Command, r)
}

// GroupRecord is the replicated view of one group
type GroupRecord struct {
	ID          uint8
	Name        string
	Permissions []byte
}

// GroupList replaces the client's view of all groups
type GroupList struct {
	Default uint8
	Groups  []GroupRecord
}

// Packet encodes the list
func (m GroupList) Packet() Packet {
	w := NewWriter()
	w.U8(uint8(len(m.Groups)))
	w.U8(m.Default)
	for _, g := range m.Groups {
		w.U8(g.ID)
		w.String(g.Name)
		w.U8(uint8(len(g.Permissions)))
		w.Raw(g.Permissions)
	}
	return NewPacket(CommandGroupList, w)
}

// DecodeGroupList decodes a GROUPLIST packet
func DecodeGroupList(p Packet) (GroupList, error) {
	r := p.Reader()
	n := int(r.U8())
	m := GroupList{Default: r.U8()}
	for i := 0; i < n && r.Err() == nil; i++ {
		g := GroupRecord{ID: r.U8(), Name: r.String()}
		g.Permissions = r.Raw(int(r.U8()))
		m.Groups = append(m.Groups, g)
	}
	return m, decodeErr(p.Command, r)
}

// Event reports a player joining or leaving
type Event struct {
	Type   EventType
	Name   string
	Reason string
}

// Packet encodes the event
func (m Event) Packet() Packet {
	w := NewWriter()
	w.U16(uint16(m.Type))
	w.String(m.Name)
	if m.Type == EventPlayerDisconnected {
		w.String(m.Reason)
	}
	return NewPacket(CommandEvent, w)
}

// DecodeEvent decodes an EVENT packet
func DecodeEvent(p Packet) (Event, error) {
	r := p.Reader()
	m := Event{Type: EventType(r.U16()), Name: r.String()}
	if m.Type == EventPlayerDisconnected {
		m.Reason = r.String()
	}
	return m, decodeErr(p.Command, r)
}

// ObjectList names scenery objects. The server sends its required objects in
// OBJECTS; the client answers with the ones it lacks in MAPREQUEST.
type ObjectList struct {
	Names []string
}

// Packet encodes the list under the given command
func (m ObjectList) Packet(cmd Command) Packet {
	w := NewWriter()
	w.U32(uint32(len(m.Names)))
	for _, n := range m.Names {
		w.String(n)
	}
	return NewPacket(cmd, w)
}

// DecodeObjectList decodes an OBJECTS or MAPREQUEST packet
func DecodeObjectList(p Packet) (ObjectList, error) {
	r := p.Reader()
	n := r.Count(MaxObjects)
	var m ObjectList
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Names = append(m.Names, r.String())
	}
	return m, decodeErr(p.Command, r)
}

// Empty builds a packet with no payload (PING, HEARTBEAT, TOKEN and
// GAMEINFO requests).
func Empty(cmd Command) Packet {
	return Packet{Command: cmd}
}
