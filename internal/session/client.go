package session

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/services/queue"
	"github.com/mcoot/parksync/internal/services/registry"
	"github.com/mcoot/parksync/internal/services/syncmon"
	"github.com/mcoot/parksync/internal/transport"
)

// BeginClient dials a server and starts joining it
func (s *Session) BeginClient(host string, port int) error {
	if s.role != RoleNone {
		return ErrAlreadyStarted
	}
	s.logger.Info("connecting", slog.String("host", host), slog.Int("port", port))
	return s.BeginClientWithSocket(transport.Dial(host, port))
}

// BeginClientWithSocket joins a server over a socket that is connected or
// still connecting
func (s *Session) BeginClientWithSocket(sock transport.Socket) error {
	if s.role != RoleNone {
		return ErrAlreadyStarted
	}
	s.role = RoleClient
	s.registry = registry.New(nil, s.clock, s.logger)
	s.handlers = s.clientHandlers()
	s.socket = sock
	s.dialStatus = transport.StatusNone
	s.conn = nil
	s.challenge = nil
	s.localID = model.HostPlayerID
	s.serverTick = 0
	s.mapLoaded = false
	s.download.Reset()
	s.queue.Clear()
	s.sync.Reset()
	s.setStatus(StatusConnecting)
	s.openJournals(false)

	s.pollDial()
	return nil
}

func (s *Session) clientHandlers() map[protocol.Command]handlerFunc {
	return map[protocol.Command]handlerFunc{
		protocol.CommandToken:            s.handleToken,
		protocol.CommandAuth:             s.handleAuthReply,
		protocol.CommandObjects:          s.handleObjects,
		protocol.CommandMap:              s.handleMap,
		protocol.CommandTick:             s.handleTick,
		protocol.CommandGameAction:       s.handleGameAction,
		protocol.CommandGameCmd:          s.handleLegacyCommand,
		protocol.CommandPlayerList:       s.handlePlayerList,
		protocol.CommandPlayerInfo:       s.handlePlayerInfo,
		protocol.CommandGroupList:        s.handleGroupList,
		protocol.CommandPing:             s.handlePing,
		protocol.CommandPingList:         s.handlePingList,
		protocol.CommandChat:             s.handleChat,
		protocol.CommandEvent:            s.handleEvent,
		protocol.CommandShowError:        s.handleShowError,
		protocol.CommandSetDisconnectMsg: s.handleDisconnectMessage,
		protocol.CommandGameInfo:         s.handleGameInfo,
	}
}

// pollDial follows the socket through its asynchronous connect
func (s *Session) pollDial() {
	st := s.socket.Status()
	if st != s.dialStatus {
		s.dialStatus = st
		switch st {
		case transport.StatusResolving:
			s.notifier.StatusChanged("Resolving...")
		case transport.StatusConnecting:
			s.notifier.StatusChanged("Connecting...")
		case transport.StatusConnected:
			s.notifier.StatusChanged("Authenticating...")
		}
	}

	switch st {
	case transport.StatusConnected:
		now := s.clock.Now()
		s.conn = NewConnection(s.socket, now, s.logger)
		s.conn.AuthStatus = protocol.AuthRequested
		s.lastHeartbeat = now
		s.setStatus(StatusConnected)
		s.conn.QueuePacket(protocol.Empty(protocol.CommandToken), false)
		s.flushClient()
	case transport.StatusError, transport.StatusClosed:
		if err := s.socket.Err(); err != nil {
			s.logger.Warn("connect failed", slog.String("error", err.Error()))
		}
		s.failClient(reasonConnectFailed)
	}
}

func (s *Session) updateClient() {
	if s.conn == nil {
		if s.socket != nil {
			s.pollDial()
		}
		return
	}

	now := s.clock.Now()
	c := s.conn
	if !s.processConnection(c) {
		s.failClient(c.DisconnectReason(reasonConnectionClosed))
		return
	}
	if s.conn == nil {
		return
	}
	if !s.conn.Alive(now, s.cfg.NoDataTimeout) {
		s.failClient(reasonNoData)
		return
	}
	if now.Sub(s.lastHeartbeat) >= s.cfg.PingInterval {
		s.lastHeartbeat = now
		s.conn.QueuePacket(protocol.Empty(protocol.CommandHeartbeat), false)
	}
	s.flushClient()
}

func (s *Session) flushClient() {
	if s.conn == nil {
		return
	}
	c := s.conn
	if err := c.SendQueuedPackets(); err != nil {
		s.logger.Debug("send failed", slog.String("error", err.Error()))
		s.failClient(c.DisconnectReason(reasonConnectionClosed))
	}
}

// failClient ends a client session and reports reason, once
func (s *Session) failClient(reason string) {
	if s.role != RoleClient {
		return
	}
	s.logger.Warn("left server", slog.String("reason", reason))
	s.logChat(fmt.Sprintf("Disconnected: %s", reason))
	s.closeClient()
	s.chatLog.Close()
	s.chatLog = nil
	s.role = RoleNone
	s.setStatus(StatusNone)
	s.notifier.Disconnected(reason)
}

func (s *Session) closeClient() {
	switch {
	case s.conn != nil:
		_ = s.conn.SendQueuedPackets()
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("close failed", slog.String("error", err.Error()))
		}
	case s.socket != nil:
		_ = s.socket.Close()
	}
	s.conn = nil
	s.socket = nil
	s.mapLoaded = false
}

// SendPassword answers a password prompt by repeating AUTH with password
func (s *Session) SendPassword(password string) error {
	if s.role != RoleClient || s.conn == nil || s.conn.AuthStatus != protocol.AuthRequirePassword {
		return ErrNoPendingAuth
	}
	s.sendAuth(password)
	s.flushClient()
	return nil
}

// MapLoaded reports whether a client has received the world
func (s *Session) MapLoaded() bool {
	return s.mapLoaded
}

// ServerTick returns the latest tick the server has declared
func (s *Session) ServerTick() uint32 {
	return s.serverTick
}

func (s *Session) sendAuth(password string) {
	name := s.cfg.PlayerName
	pub, err := s.keys.EnsureKey(name)
	if err != nil {
		s.logger.Error("failed to load key", slog.String("error", err.Error()))
		s.failClient(reasonKeyFailure)
		return
	}
	sig, err := s.keys.Sign(name, s.challenge)
	if err != nil {
		s.logger.Error("failed to sign challenge", slog.String("error", err.Error()))
		s.failClient(reasonKeyFailure)
		return
	}
	s.conn.QueuePacket(protocol.AuthRequest{
		Version:   protocol.Version,
		Name:      name,
		Password:  password,
		PublicKey: pub,
		Signature: sig,
	}.Packet(), false)
}

func (s *Session) executeClient(a *action.Action, done func(action.Result)) error {
	if s.conn == nil || !s.conn.Authenticated() {
		return ErrNotConnected
	}
	t := a.Type()
	if t.HostOnly() {
		return ErrHostOnly
	}
	if !s.registry.CanPerformCommand(s.localID, t) {
		return model.ErrPermissionDenied
	}

	a.Player = s.localID
	a.Callback = s.registerCallback(done)
	tick := s.sim.CurrentTick()
	if s.cfg.LegacyCommands {
		if regs, err := action.ToRegisters(a); err == nil {
			s.conn.QueuePacket(protocol.LegacyCommand{Tick: tick, Args: regs, Callback: a.Callback}.Packet(false), false)
			s.flushClient()
			return nil
		}
	}
	s.conn.QueuePacket(action.ToMessage(tick, a).Packet(), false)
	s.flushClient()
	return nil
}

// advanceClient applies the actions due at the local tick and runs the
// tick, then compares the result with the server's fingerprint
func (s *Session) advanceClient() bool {
	if !s.mapLoaded || s.sim.CurrentTick() >= s.serverTick {
		return false
	}

	tick := s.sim.CurrentTick()
	s.queue.DrainDue(tick, func(e queue.Entry) {
		res := s.sim.Execute(e.Action)
		if !res.OK() {
			s.logger.Warn("relayed action failed locally",
				slog.Uint64("tick", uint64(tick)),
				slog.String("action", e.Action.Type().String()),
				slog.String("status", res.Status.String()),
			)
		}
		s.fireCallback(e.Action, res)
	})

	s.sim.Advance()

	if d := s.sync.Check(s.sim.CurrentTick(), s.sim.Seed(), s.sim.Checksum); d != nil {
		s.notifier.Desynchronized(d.Tick)
		s.logChat(fmt.Sprintf("Desynchronized from server at tick %d", d.Tick))
		if !s.cfg.StayConnectedAfterDesync {
			s.failClient(reasonDesync)
			return false
		}
	}
	return true
}

// Handlers

func (s *Session) handleToken(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeTokenChallenge(p)
	if err != nil {
		return err
	}
	s.challenge = m.Challenge
	s.sendAuth(s.cfg.Password)
	return nil
}

func (s *Session) handleAuthReply(c *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeAuthReply(p)
	if err != nil {
		return err
	}
	c.AuthStatus = m.Status
	switch m.Status {
	case protocol.AuthOK:
		s.localID = model.PlayerID(m.PlayerID)
		c.PlayerID = s.localID
		c.logger = c.logger.With(slog.Int("player_id", int(s.localID)))
		c.logger.Info("authenticated")
		s.notifier.StatusChanged("Downloading map...")
	case protocol.AuthRequirePassword:
		s.notifier.PasswordRequired()
	case protocol.AuthBadVersion:
		s.failClient(fmt.Sprintf("%s (server: %s, client: %s)", m.Status.Reason(), m.Version, protocol.Version))
	default:
		s.failClient(m.Status.Reason())
	}
	return nil
}

func (s *Session) handleObjects(c *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeObjectList(p)
	if err != nil {
		return err
	}
	var missing []string
	for _, name := range m.Names {
		if !s.sim.HasObject(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		c.logger.Info("missing objects", slog.Int("count", len(missing)))
	}
	s.download.Reset()
	c.QueuePacket(protocol.ObjectList{Names: missing}.Packet(protocol.CommandMapRequest), false)
	return nil
}

func (s *Session) handleMap(_ *Connection, p protocol.Packet) error {
	chunk, err := protocol.DecodeMapChunk(p)
	if err != nil {
		return err
	}
	done, err := s.download.Add(chunk)
	if err != nil {
		return err
	}
	received, total := s.download.Progress()
	s.notifier.MapProgress(received, total)
	if done {
		s.loadMap()
	}
	return nil
}

func (s *Session) loadMap() {
	payload := s.download.Bytes()
	s.download.Reset()
	world, err := DecodeSnapshot(payload)
	if err != nil {
		s.logger.Error("failed to unpack map", slog.String("error", err.Error()))
		s.failClient(reasonMapFailure)
		return
	}
	if err := s.sim.Load(world); err != nil {
		s.logger.Error("failed to load map", slog.String("error", err.Error()))
		s.failClient(reasonMapFailure)
		return
	}

	s.queue.Clear()
	s.sync.Reset()
	s.mapLoaded = true
	s.serverTick = max(s.serverTick, s.sim.CurrentTick())
	s.logger.Info("map loaded",
		slog.Int("bytes", len(world)),
		slog.Uint64("tick", uint64(s.sim.CurrentTick())),
	)
	s.notifier.StatusChanged("Connected")
}

func (s *Session) handleTick(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeTick(p)
	if err != nil {
		return err
	}
	s.serverTick = max(s.serverTick, m.Tick)
	s.sync.Record(syncmon.Record{Tick: m.Tick, Seed: m.Seed, Checksum: m.Checksum, HasChecksum: m.HasChecksum()})
	return nil
}

func (s *Session) handleGameAction(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeGameAction(p)
	if err != nil {
		return err
	}
	a, err := action.FromMessage(m)
	if err != nil {
		return err
	}
	s.queue.Enqueue(m.Tick, a.Player, a, false)
	return nil
}

func (s *Session) handleLegacyCommand(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeLegacyCommand(p, true)
	if err != nil {
		return err
	}
	a, err := action.FromRegisters(m.Args)
	if err != nil {
		return err
	}
	a.Player = model.PlayerID(m.PlayerID)
	a.Callback = m.Callback
	s.queue.Enqueue(m.Tick, a.Player, a, true)
	return nil
}

func (s *Session) handlePlayerList(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodePlayerList(p)
	if err != nil {
		return err
	}
	players := make([]model.Player, 0, len(m.Players))
	for _, r := range m.Players {
		players = append(players, playerFromRecord(r))
	}
	s.registry.ReplacePlayers(players)
	return nil
}

func (s *Session) handlePlayerInfo(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodePlayerInfo(p)
	if err != nil {
		return err
	}
	s.registry.UpdatePlayer(playerFromRecord(m))
	return nil
}

func (s *Session) handleGroupList(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeGroupList(p)
	if err != nil {
		return err
	}
	s.registry.SetGroups(groupListFromMessage(m))
	return nil
}

func (s *Session) handlePing(c *Connection, _ protocol.Packet) error {
	c.QueuePacket(protocol.Empty(protocol.CommandPing), false)
	return nil
}

func (s *Session) handlePingList(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodePingList(p)
	if err != nil {
		return err
	}
	for _, e := range m.Entries {
		s.registry.SetPing(model.PlayerID(e.ID), e.Ping)
	}
	return nil
}

func (s *Session) handleChat(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeChat(p)
	if err != nil {
		return err
	}
	s.logChat(m.Text)
	s.notifier.ChatMessage(m.Text)
	return nil
}

func (s *Session) handleEvent(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeEvent(p)
	if err != nil {
		return err
	}
	s.notifier.PlayerEvent(m)
	return nil
}

func (s *Session) handleShowError(_ *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeShowError(p)
	if err != nil {
		return err
	}
	s.notifier.ShowError(m.Code, m.Message)
	return nil
}

func (s *Session) handleDisconnectMessage(c *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeDisconnectMessage(p)
	if err != nil {
		return err
	}
	c.SetDisconnectReason(m.Reason)
	return nil
}

func (s *Session) handleGameInfo(c *Connection, p protocol.Packet) error {
	m, err := protocol.DecodeGameInfo(p)
	if err != nil {
		return err
	}
	c.logger.Debug("game info", slog.String("name", m.Name), slog.Int("players", m.Players))
	return nil
}
