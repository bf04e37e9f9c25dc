// Package session runs a lockstep multiplayer session, as the server that
// orders every action or as a client that replays the server's order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/dependencies/clock"
	"github.com/mcoot/parksync/internal/dependencies/random"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/services/advertise"
	"github.com/mcoot/parksync/internal/services/journal"
	"github.com/mcoot/parksync/internal/services/keys"
	"github.com/mcoot/parksync/internal/services/queue"
	"github.com/mcoot/parksync/internal/services/registry"
	"github.com/mcoot/parksync/internal/services/syncmon"
	"github.com/mcoot/parksync/internal/storage"
	"github.com/mcoot/parksync/internal/transport"
)

// Role is the part a session plays
type Role int

const (
	RoleNone Role = iota
	RoleServer
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	}
	return "none"
}

// Status is the session lifecycle state
type Status int32

const (
	StatusNone Status = iota
	StatusReady
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusReady:
		return "ready"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Session errors
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotConnected   = errors.New("session not connected")
	ErrHostOnly       = errors.New("action can only be issued by the host")
	ErrNoPendingAuth  = errors.New("no authentication in progress")
)

// Disconnect reasons shown to users
const (
	reasonInvalidRequest   = "Invalid request"
	reasonNoData           = "No data"
	reasonConnectionClosed = "Connection closed"
	reasonKicked           = "You have been kicked"
	reasonShutdown         = "Server shutting down"
	reasonDesync           = "Desynchronized from server"
	reasonConnectFailed    = "Unable to connect to server"
	reasonKeyFailure       = "Unable to load player key"
	reasonMapFailure       = "Unable to load map"
)

// Deps are the collaborators a session uses. Nil fields get defaults.
type Deps struct {
	// Storage persists groups and known users on a server
	Storage storage.Storage
	// Keys holds the client's keypairs
	Keys *keys.Store
	// Advertiser publishes the server listing
	Advertiser advertise.Advertiser
	Notifier   Notifier
	Clock      clock.Clock
	Random     random.Random
	Logger     *slog.Logger
}

type handlerFunc func(c *Connection, p protocol.Packet) error

// Session is one multiplayer session. Update and Advance must be called from
// a single goroutine, the host loop. Status, GameInfo, Players and Groups may
// be called from any goroutine.
type Session struct {
	cfg        Config
	sim        Simulation
	storage    storage.Storage
	keys       *keys.Store
	advertiser advertise.Advertiser
	notifier   Notifier
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger

	registry *registry.Registry
	queue    *queue.Queue
	sync     *syncmon.Monitor

	role         Role
	status       atomic.Int32
	passwordHash []byte
	handlers     map[protocol.Command]handlerFunc
	localID      model.PlayerID

	callbacks    map[uint8]func(action.Result)
	nextCallback uint8

	chatLog   *journal.Journal
	serverLog *journal.Journal

	// server
	listener      transport.Listener
	connections   []*Connection
	lastUpdate    time.Time
	lastPing      time.Time
	stopAdvertise context.CancelFunc
	advertiseDone chan struct{}

	// client
	socket        transport.Socket
	dialStatus    transport.Status
	conn          *Connection
	challenge     []byte
	serverTick    uint32
	mapLoaded     bool
	download      Reassembler
	lastHeartbeat time.Time
}

// New creates a session around a simulation. The session is idle until
// BeginServer or BeginClient; actions executed while idle apply directly.
func New(cfg Config, sim Simulation, deps Deps) (*Session, error) {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Random == nil {
		deps.Random = random.New()
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Advertiser == nil {
		deps.Advertiser = advertise.Nop{}
	}
	if deps.Keys == nil {
		deps.Keys = keys.NewStore(cfg.KeyDir)
	}

	logger := deps.Logger.With(slog.String("component", "session"))
	s := &Session{
		cfg:        cfg,
		sim:        sim,
		storage:    deps.Storage,
		keys:       deps.Keys,
		advertiser: deps.Advertiser,
		notifier:   deps.Notifier,
		clock:      deps.Clock,
		random:     deps.Random,
		logger:     logger,
		registry:   registry.New(nil, deps.Clock, deps.Logger),
		queue:      queue.New(deps.Logger),
		sync:       syncmon.New(cfg.SyncHistory, deps.Logger),
		callbacks:  make(map[uint8]func(action.Result)),
	}

	if cfg.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		s.passwordHash = hash
	}
	return s, nil
}

// Status returns the lifecycle state
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

func (s *Session) setStatus(st Status) {
	s.status.Store(int32(st))
}

// Role returns the session role
func (s *Session) Role() Role {
	return s.role
}

// LocalPlayerID returns the id of the local player
func (s *Session) LocalPlayerID() model.PlayerID {
	return s.localID
}

// Registry returns the player and group registry
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// Players returns the current players
func (s *Session) Players() []model.Player {
	return s.registry.Players()
}

// Groups returns the current group registry
func (s *Session) Groups() *model.GroupList {
	return s.registry.Groups()
}

// Desynchronized reports whether a client has diverged from its server
func (s *Session) Desynchronized() bool {
	return s.sync.Desynchronized()
}

// PendingActions returns the number of queued actions
func (s *Session) PendingActions() int {
	return s.queue.Len()
}

// GameInfo describes the session as reported to unauthenticated peers
func (s *Session) GameInfo() protocol.GameInfo {
	return protocol.GameInfo{
		Name:        s.cfg.ServerName,
		Description: s.cfg.Description,
		Version:     protocol.Version,
		Players:     s.registry.Count(),
		MaxPlayers:  s.cfg.MaxPlayers,
		Password:    s.passwordHash != nil,
	}
}

// Update pumps the network once. It never blocks.
func (s *Session) Update() {
	switch s.role {
	case RoleServer:
		s.updateServer()
	case RoleClient:
		s.updateClient()
	}
}

// Advance applies the actions due at the current tick and runs one
// simulation tick. A client only advances while the server is ahead of it;
// Advance returns false when it is waiting.
func (s *Session) Advance() bool {
	switch s.role {
	case RoleServer:
		s.advanceServer()
		return true
	case RoleClient:
		return s.advanceClient()
	}
	s.sim.Advance()
	return true
}

// Execute requests an action from the local player. On a server the action
// is queued for the current tick; on a client it is sent to the server and
// applied when the server relays it back. done, if set, runs with the
// result once the action is applied locally.
func (s *Session) Execute(a *action.Action, done func(action.Result)) error {
	switch s.role {
	case RoleServer:
		return s.executeServer(a, done)
	case RoleClient:
		return s.executeClient(a, done)
	}

	if a.Type().IsNetworkAction() {
		return ErrNotConnected
	}
	res := s.sim.Execute(a)
	if done != nil {
		done(res)
	}
	return nil
}

// SendChat sends a chat line from the local player
func (s *Session) SendChat(text string) error {
	switch s.role {
	case RoleServer:
		s.serverChat(s.localID, text)
		s.flushAll()
		return nil
	case RoleClient:
		if s.conn == nil || !s.conn.Authenticated() {
			return ErrNotConnected
		}
		if !s.registry.CanPerformAction(s.localID, model.PermissionChat) {
			return model.ErrPermissionDenied
		}
		s.conn.QueuePacket(protocol.Chat{Text: text}.Packet(), false)
		s.flushClient()
		return nil
	}
	return ErrNotConnected
}

// Close ends the session. A server tells every client it is shutting down.
func (s *Session) Close() error {
	var err error
	switch s.role {
	case RoleServer:
		err = s.closeServer()
	case RoleClient:
		s.closeClient()
	}
	s.chatLog.Close()
	s.serverLog.Close()
	s.chatLog, s.serverLog = nil, nil
	s.role = RoleNone
	s.setStatus(StatusNone)
	return err
}

func (s *Session) dispatch(c *Connection, p protocol.Packet) {
	h, ok := s.handlers[p.Command]
	if !ok {
		c.logger.Debug("ignoring unhandled command", slog.String("command", p.Command.String()))
		return
	}
	if s.role == RoleServer && p.Command.RequiresAuth() && !c.Authenticated() {
		c.logger.Warn("ignoring command from unauthenticated peer", slog.String("command", p.Command.String()))
		return
	}
	if err := h(c, p); err != nil {
		c.logger.Warn("invalid request",
			slog.String("command", p.Command.String()),
			slog.String("error", err.Error()),
		)
		if s.role == RoleServer {
			c.Disconnect(reasonInvalidRequest)
		} else {
			s.failClient(reasonInvalidRequest)
		}
	}
}

// processConnection reads and dispatches every complete packet. It returns
// false when the peer has gone away.
func (s *Session) processConnection(c *Connection) bool {
	for !c.Closing() {
		p, res := c.ReadPacket()
		switch res {
		case ReadSuccess:
			c.LastPacketTime = s.clock.Now()
			s.dispatch(c, p)
		case ReadDisconnected:
			return false
		default:
			return true
		}
	}
	return true
}

func (s *Session) registerCallback(done func(action.Result)) uint8 {
	if done == nil {
		return 0
	}
	s.nextCallback++
	if s.nextCallback == 0 {
		s.nextCallback = 1
	}
	s.callbacks[s.nextCallback] = done
	return s.nextCallback
}

func (s *Session) fireCallback(a *action.Action, res action.Result) {
	if a.Player != s.localID || a.Callback == 0 {
		return
	}
	if done, ok := s.callbacks[a.Callback]; ok {
		delete(s.callbacks, a.Callback)
		done(res)
	}
}

func (s *Session) openJournals(serverLog bool) {
	if s.cfg.LogDir == "" {
		return
	}
	var err error
	if s.chatLog, err = journal.Open(s.cfg.LogDir, "chat", s.clock); err != nil {
		s.logger.Warn("failed to open chat log", slog.String("error", err.Error()))
	}
	if !serverLog {
		return
	}
	if s.serverLog, err = journal.Open(s.cfg.LogDir, "server", s.clock); err != nil {
		s.logger.Warn("failed to open server log", slog.String("error", err.Error()))
	}
}

func (s *Session) logChat(text string) {
	if err := s.chatLog.Log(text); err != nil {
		s.logger.Warn("failed to write chat log", slog.String("error", err.Error()))
	}
}

func (s *Session) logServer(text string) {
	if err := s.serverLog.Log(text); err != nil {
		s.logger.Warn("failed to write server log", slog.String("error", err.Error()))
	}
}

func playerRecord(p model.Player) protocol.PlayerRecord {
	return protocol.PlayerRecord{
		ID:          uint8(p.ID),
		Name:        p.Name,
		Group:       uint8(p.Group),
		Flags:       uint8(p.Flags),
		Ping:        p.Ping,
		MoneySpent:  p.MoneySpent,
		CommandsRan: p.CommandsRan,
		LastAction:  p.LastAction,
	}
}

func playerFromRecord(r protocol.PlayerRecord) model.Player {
	return model.Player{
		ID:          model.PlayerID(r.ID),
		Name:        r.Name,
		Group:       model.GroupID(r.Group),
		Flags:       model.PlayerFlags(r.Flags),
		Ping:        r.Ping,
		MoneySpent:  r.MoneySpent,
		CommandsRan: r.CommandsRan,
		LastAction:  r.LastAction,
	}
}

func groupListMessage(groups *model.GroupList) protocol.GroupList {
	m := protocol.GroupList{Default: uint8(groups.Default)}
	for _, g := range groups.Groups {
		m.Groups = append(m.Groups, protocol.GroupRecord{
			ID:          uint8(g.ID),
			Name:        g.Name,
			Permissions: g.Permissions.Bytes(),
		})
	}
	return m
}

func groupListFromMessage(m protocol.GroupList) *model.GroupList {
	groups := &model.GroupList{Default: model.GroupID(m.Default)}
	for _, g := range m.Groups {
		groups.Groups = append(groups.Groups, model.Group{
			ID:          model.GroupID(g.ID),
			Name:        g.Name,
			Permissions: model.PermissionSetFromBytes(g.Permissions),
		})
	}
	return groups
}
