package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/services/advertise"
	"github.com/mcoot/parksync/internal/services/keys"
	"github.com/mcoot/parksync/internal/services/queue"
	"github.com/mcoot/parksync/internal/services/registry"
	"github.com/mcoot/parksync/internal/transport"
)

const advertiseTimeout = 5 * time.Second

var errInvalidParameters = errors.New("invalid parameters")

// BeginServer listens on the configured address and starts hosting
func (s *Session) BeginServer(ctx context.Context) error {
	if s.role != RoleNone {
		return ErrAlreadyStarted
	}
	l, err := transport.Listen(s.cfg.BindAddress, s.cfg.Port)
	if err != nil {
		return fmt.Errorf("begin server: %w", err)
	}
	return s.BeginServerWithListener(ctx, l)
}

// BeginServerWithListener starts hosting on an existing listener
func (s *Session) BeginServerWithListener(ctx context.Context, l transport.Listener) error {
	if s.role != RoleNone {
		return ErrAlreadyStarted
	}
	s.setStatus(StatusReady)

	s.registry = registry.New(s.storage, s.clock, s.logger)
	if err := s.registry.LoadGroups(ctx); err != nil {
		// defaults are in place; carry on without persistence
		s.logger.Warn("using default groups", slog.String("error", err.Error()))
	}
	host := s.registry.AddHost(s.cfg.PlayerName)

	s.role = RoleServer
	s.listener = l
	s.localID = host.ID
	s.handlers = s.serverHandlers()
	s.queue.Clear()
	s.sync.Reset()
	now := s.clock.Now()
	s.lastUpdate = now
	s.lastPing = now

	s.openJournals(true)
	s.logServer(fmt.Sprintf("Server started on %s", l.Addr()))
	s.startAdvertising(ctx)

	s.setStatus(StatusConnected)
	s.logger.Info("server started",
		slog.String("addr", l.Addr()),
		slog.String("host", host.Name),
		slog.Int("max_players", s.cfg.MaxPlayers),
	)
	return nil
}

func (s *Session) serverHandlers() map[protocol.Command]handlerFunc {
	return map[protocol.Command]handlerFunc{
		protocol.CommandAuth:       s.handleAuthRequest,
		protocol.CommandToken:      s.handleTokenRequest,
		protocol.CommandMapRequest: s.handleMapRequest,
		protocol.CommandChat:       s.handleChatRequest,
		protocol.CommandGameCmd:    s.handleLegacyCommandRequest,
		protocol.CommandGameAction: s.handleGameActionRequest,
		protocol.CommandPing:       s.handlePingReply,
		protocol.CommandGameInfo:   s.handleGameInfoRequest,
		protocol.CommandHeartbeat:  func(*Connection, protocol.Packet) error { return nil },
	}
}

func (s *Session) updateServer() {
	now := s.clock.Now()
	s.registry.DecayCooldowns(now.Sub(s.lastUpdate))
	s.lastUpdate = now

	for _, c := range s.connections {
		if c.Closing() {
			continue
		}
		if !s.processConnection(c) {
			c.CloseAfterFlush(reasonConnectionClosed)
			continue
		}
		if !c.Alive(now, s.cfg.NoDataTimeout) {
			c.logger.Info("connection timed out")
			c.CloseAfterFlush(reasonNoData)
		}
	}

	if now.Sub(s.lastPing) >= s.cfg.PingInterval {
		s.lastPing = now
		s.sendPings(now)
	}

	s.flushAll()

	// one new connection per update
	if sock, ok := s.listener.Accept(); ok {
		c := NewConnection(sock, now, s.logger)
		s.connections = append(s.connections, c)
		c.logger.Info("connection accepted")
		s.logServer(fmt.Sprintf("Connection accepted from %s", c.RemoteAddr()))
	}
}

// flushAll sends queued packets and removes connections that are done
func (s *Session) flushAll() {
	var done []*Connection
	kept := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		if err := c.SendQueuedPackets(); err != nil {
			c.logger.Debug("send failed", slog.String("error", err.Error()))
			c.CloseAfterFlush(reasonConnectionClosed)
			done = append(done, c)
			continue
		}
		if c.Closing() && c.Pending() == 0 {
			done = append(done, c)
			continue
		}
		kept = append(kept, c)
	}
	s.connections = kept
	if len(done) == 0 {
		return
	}

	for _, c := range done {
		s.removeConnection(c)
	}
	// departure notices; failures surface on the next flush
	for _, c := range s.connections {
		_ = c.SendQueuedPackets()
	}
}

func (s *Session) removeConnection(c *Connection) {
	if err := c.Close(); err != nil {
		c.logger.Debug("close failed", slog.String("error", err.Error()))
	}
	reason := c.DisconnectReason(reasonConnectionClosed)
	if !c.hasPlayer {
		c.logger.Info("connection closed", slog.String("reason", reason))
		return
	}

	p, ok := s.registry.RemovePlayer(c.PlayerID)
	c.AuthStatus = protocol.AuthNone
	c.hasPlayer = false
	if !ok {
		return
	}
	c.logger.Info("player disconnected",
		slog.Int("player_id", int(p.ID)),
		slog.String("name", p.Name),
		slog.String("reason", reason),
	)
	line := fmt.Sprintf("%s has disconnected (%s)", p.Name, reason)
	s.logServer(line)
	s.broadcastChat(line)
	event := protocol.Event{Type: protocol.EventPlayerDisconnected, Name: p.Name, Reason: reason}
	s.broadcast(event.Packet())
	s.notifier.PlayerEvent(event)
	s.broadcastPlayerList()
}

func (s *Session) sendPings(now time.Time) {
	for _, c := range s.connections {
		if c.Closing() {
			continue
		}
		c.PingSentTime = now
		c.QueuePacket(protocol.Empty(protocol.CommandPing), false)
	}
	var list protocol.PingList
	for _, p := range s.registry.Players() {
		list.Entries = append(list.Entries, protocol.PingEntry{ID: uint8(p.ID), Ping: p.Ping})
	}
	s.broadcast(list.Packet())
}

func (s *Session) broadcast(p protocol.Packet) {
	for _, c := range s.connections {
		if c.Authenticated() && !c.Closing() {
			c.QueuePacket(p, false)
		}
	}
}

func (s *Session) broadcastChat(line string) {
	s.broadcast(protocol.Chat{Text: line}.Packet())
	s.logChat(line)
	s.notifier.ChatMessage(line)
}

func (s *Session) broadcastPlayerList() {
	var list protocol.PlayerList
	for _, p := range s.registry.Players() {
		list.Players = append(list.Players, playerRecord(p))
	}
	s.broadcast(list.Packet())
}

func (s *Session) broadcastGroupList() {
	s.broadcast(groupListMessage(s.registry.Groups()).Packet())
}

func (s *Session) connectionFor(id model.PlayerID) *Connection {
	for _, c := range s.connections {
		if c.Authenticated() && c.PlayerID == id {
			return c
		}
	}
	return nil
}

func (s *Session) showError(id model.PlayerID, code protocol.ErrorCode, msg string) {
	if id == s.localID {
		s.notifier.ShowError(code, msg)
		return
	}
	if c := s.connectionFor(id); c != nil {
		c.QueuePacket(protocol.ShowError{Code: code, Message: msg}.Packet(), false)
	}
}

// Handlers

func (s *Session) handleTokenRequest(c *Connection, _ protocol.Packet) error {
	if c.hasPlayer {
		return nil
	}
	c.Challenge = keys.NewChallenge(s.random)
	c.AuthStatus = protocol.AuthRequested
	c.QueuePacket(protocol.TokenChallenge{Challenge: c.Challenge}.Packet(), false)
	return nil
}

func (s *Session) handleAuthRequest(c *Connection, p protocol.Packet) error {
	if c.hasPlayer {
		return nil
	}
	req, err := protocol.DecodeAuthRequest(p)
	if err != nil {
		return err
	}

	status, player := s.authenticate(context.Background(), c, req)
	c.AuthStatus = status
	reply := protocol.AuthReply{Status: status}
	if status == protocol.AuthBadVersion {
		reply.Version = protocol.Version
	}
	if player != nil {
		reply.PlayerID = uint8(player.ID)
	}
	c.QueuePacket(reply.Packet(), false)

	logAttrs := []any{slog.String("name", req.Name), slog.String("status", status.String())}
	if status.Rejected() {
		c.logger.Info("authentication rejected", logAttrs...)
		c.CloseAfterFlush(status.Reason())
		return nil
	}
	if player == nil {
		c.logger.Info("authentication pending", logAttrs...)
		return nil
	}

	c.PlayerID = player.ID
	c.hasPlayer = true
	c.logger = c.logger.With(slog.Int("player_id", int(player.ID)))
	c.logger.Info("player authenticated", slog.String("name", player.Name), slog.Int("group", int(player.Group)))
	s.onPlayerJoined(c, player)
	return nil
}

// authenticate runs the AUTH checks in order and adds the player when all
// pass. Any rejection leaves the registry untouched.
func (s *Session) authenticate(ctx context.Context, c *Connection, req protocol.AuthRequest) (protocol.AuthStatus, *model.Player) {
	if req.Version != protocol.Version {
		return protocol.AuthBadVersion, nil
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return protocol.AuthBadName, nil
	}
	if len(c.Challenge) == 0 {
		return protocol.AuthVerificationFailure, nil
	}
	hash, err := keys.Verify(req.PublicKey, c.Challenge, req.Signature)
	if err != nil {
		c.logger.Info("signature check failed", slog.String("error", err.Error()))
		return protocol.AuthVerificationFailure, nil
	}
	if s.cfg.KnownKeysOnly && !s.registry.IsKnownKey(ctx, hash) {
		return protocol.AuthUnknownKeyDisallowed, nil
	}
	if s.registry.Count() >= s.cfg.MaxPlayers {
		return protocol.AuthFull, nil
	}
	if s.passwordHash != nil && !s.registry.GroupCan(s.registry.ResolveGroup(ctx, hash), model.PermissionPasswordlessLogin) {
		if req.Password == "" {
			return protocol.AuthRequirePassword, nil
		}
		if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)) != nil {
			return protocol.AuthBadPassword, nil
		}
	}

	player, err := s.registry.AddPlayer(ctx, name, hash)
	switch {
	case errors.Is(err, model.ErrServerFull):
		return protocol.AuthFull, nil
	case err != nil:
		return protocol.AuthBadName, nil
	}
	return protocol.AuthOK, player
}

func (s *Session) onPlayerJoined(c *Connection, player *model.Player) {
	line := fmt.Sprintf("%s has joined the game", player.Name)
	s.logServer(line)
	s.broadcastChat(line)
	event := protocol.Event{Type: protocol.EventPlayerJoined, Name: player.Name}
	s.broadcast(event.Packet())
	s.notifier.PlayerEvent(event)

	c.QueuePacket(groupListMessage(s.registry.Groups()).Packet(), false)
	s.broadcastPlayerList()
	c.QueuePacket(protocol.ObjectList{Names: s.sim.Objects()}.Packet(protocol.CommandObjects), false)
}

func (s *Session) handleMapRequest(c *Connection, p protocol.Packet) error {
	req, err := protocol.DecodeObjectList(p)
	if err != nil {
		return err
	}
	if c.mapSent {
		c.logger.Debug("ignoring repeated map request")
		return nil
	}
	c.RequestedObjects = req.Names
	if len(req.Names) > 0 {
		c.logger.Info("client is missing objects", slog.Int("count", len(req.Names)))
	}

	world, err := s.sim.Snapshot()
	if err != nil {
		c.logger.Error("failed to snapshot world", slog.String("error", err.Error()))
		c.Disconnect(reasonMapFailure)
		return nil
	}
	payload, err := EncodeSnapshot(world, s.cfg.MapCompression)
	if err != nil {
		c.logger.Error("failed to pack world", slog.String("error", err.Error()))
		c.Disconnect(reasonMapFailure)
		return nil
	}
	chunks := SplitSnapshot(payload, s.cfg.MapChunkSize)
	for _, chunk := range chunks {
		c.QueuePacket(chunk.Packet(), false)
	}
	c.mapSent = true
	c.logger.Info("sending map",
		slog.Int("world_bytes", len(world)),
		slog.Int("payload_bytes", len(payload)),
		slog.Int("chunks", len(chunks)),
		slog.Uint64("tick", uint64(s.sim.CurrentTick())),
	)
	return nil
}

func (s *Session) handleChatRequest(c *Connection, p protocol.Packet) error {
	msg, err := protocol.DecodeChat(p)
	if err != nil {
		return err
	}
	if !s.registry.CanPerformAction(c.PlayerID, model.PermissionChat) {
		c.QueuePacket(protocol.ShowError{Code: protocol.ErrorCodePermissionDenied, Message: "You are not allowed to chat"}.Packet(), false)
		return nil
	}
	if !c.AllowChat(s.clock.Now(), rate.Limit(s.cfg.ChatRate), s.cfg.ChatBurst) {
		c.QueuePacket(protocol.ShowError{Code: protocol.ErrorCodeRateLimited, Message: "You are sending messages too quickly"}.Packet(), false)
		return nil
	}
	s.serverChat(c.PlayerID, msg.Text)
	return nil
}

func (s *Session) serverChat(from model.PlayerID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	p, ok := s.registry.GetPlayer(from)
	if !ok {
		return
	}
	s.broadcastChat(fmt.Sprintf("%s: %s", p.Name, text))
}

func (s *Session) handlePingReply(c *Connection, _ protocol.Packet) error {
	if c.PingSentTime.IsZero() || !c.Authenticated() {
		return nil
	}
	ms := s.clock.Since(c.PingSentTime).Milliseconds()
	s.registry.SetPing(c.PlayerID, uint16(min(ms, 0xFFFF)))
	return nil
}

func (s *Session) handleGameInfoRequest(c *Connection, _ protocol.Packet) error {
	p, err := s.GameInfo().Packet()
	if err != nil {
		return err
	}
	c.QueuePacket(p, false)
	return nil
}

func (s *Session) handleGameActionRequest(c *Connection, p protocol.Packet) error {
	msg, err := protocol.DecodeGameAction(p)
	if err != nil {
		return err
	}
	a, err := action.FromMessage(msg)
	if err != nil {
		return err
	}
	s.acceptClientAction(c, a, false)
	return nil
}

func (s *Session) handleLegacyCommandRequest(c *Connection, p protocol.Packet) error {
	msg, err := protocol.DecodeLegacyCommand(p, false)
	if err != nil {
		return err
	}
	a, err := action.FromRegisters(msg.Args)
	if err != nil {
		return err
	}
	a.Callback = msg.Callback
	s.acceptClientAction(c, a, true)
	return nil
}

// acceptClientAction checks a client's action and queues it for the current
// tick. Refusals are reported to the client and nothing is queued.
func (s *Session) acceptClientAction(c *Connection, a *action.Action, legacy bool) {
	t := a.Type()
	log := c.logger.With(slog.String("action", t.String()))

	if t.HostOnly() {
		log.Warn("refusing host-only action from client")
		c.QueuePacket(protocol.ShowError{Code: protocol.ErrorCodePermissionDenied, Message: "Only the host can do that"}.Packet(), false)
		return
	}
	if !s.registry.CanPerformCommand(c.PlayerID, t) {
		log.Info("permission denied")
		c.QueuePacket(protocol.ShowError{Code: protocol.ErrorCodePermissionDenied, Message: "You do not have permission to do that"}.Packet(), false)
		return
	}
	if err := s.registry.CheckRateLimit(c.PlayerID, t); err != nil {
		log.Debug("rate limited")
		c.QueuePacket(protocol.ShowError{Code: protocol.ErrorCodeRateLimited, Message: "You are doing that too quickly"}.Packet(), false)
		return
	}

	a.Player = c.PlayerID
	a.Flags |= action.FlagNetworked
	s.queue.Enqueue(s.sim.CurrentTick(), c.PlayerID, a, legacy)
}

func (s *Session) executeServer(a *action.Action, done func(action.Result)) error {
	a.Player = s.localID
	a.Callback = s.registerCallback(done)
	s.queue.Enqueue(s.sim.CurrentTick(), s.localID, a, false)
	return nil
}

// advanceServer applies every queued action at the current tick, runs the
// tick and broadcasts the new tick's fingerprint
func (s *Session) advanceServer() {
	tick := s.sim.CurrentTick()
	s.queue.DrainAll(func(e queue.Entry) {
		s.applyServerEntry(tick, e)
	})

	s.sim.Advance()

	msg := protocol.Tick{Tick: s.sim.CurrentTick(), Seed: s.sim.Seed()}
	if msg.Tick%s.cfg.ChecksumInterval == 0 {
		msg.Flags |= protocol.TickFlagChecksum
		msg.Checksum = s.sim.Checksum()
	}
	s.broadcast(msg.Packet())
	s.flushAll()
}

func (s *Session) applyServerEntry(tick uint32, e queue.Entry) {
	a := e.Action
	if _, ok := s.registry.GetPlayer(e.Player); !ok {
		s.logger.Warn("dropping action from departed player",
			slog.Int("player_id", int(e.Player)),
			slog.String("action", a.Type().String()),
		)
		return
	}

	if a.Type().IsNetworkAction() {
		res := s.applyNetworkAction(a)
		if !res.OK() {
			s.showError(e.Player, protocol.ErrorCodeActionFailed, res.Message)
		}
		s.fireCallback(a, res)
		return
	}

	res := s.sim.Execute(a)
	s.fireCallback(a, res)
	if !res.OK() {
		s.logger.Debug("action failed",
			slog.Int("player_id", int(e.Player)),
			slog.String("action", a.Type().String()),
			slog.String("status", res.Status.String()),
		)
		s.showError(e.Player, protocol.ErrorCodeActionFailed, res.Message)
		return
	}

	s.registry.RecordAction(e.Player, a.Type(), res.Cost)
	s.broadcast(s.relayPacket(tick, e))
	if p, ok := s.registry.GetPlayer(e.Player); ok {
		s.broadcast(playerRecord(*p).Packet())
	}
}

func (s *Session) relayPacket(tick uint32, e queue.Entry) protocol.Packet {
	if e.Legacy {
		regs, err := action.ToRegisters(e.Action)
		if err == nil {
			return protocol.LegacyCommand{
				Tick:     tick,
				Args:     regs,
				PlayerID: uint8(e.Player),
				Callback: e.Action.Callback,
			}.Packet(true)
		}
	}
	return action.ToMessage(tick, e.Action).Packet()
}

// applyNetworkAction runs a registry-level action. Its effect reaches
// clients through GROUPLIST and PLAYERLIST rather than a relay.
func (s *Session) applyNetworkAction(a *action.Action) action.Result {
	ctx := context.Background()
	var err error
	switch params := a.Params.(type) {
	case *action.ModifyGroup:
		err = s.modifyGroup(ctx, a.Player, params)
		if err == nil || !isRegistryRefusal(err) {
			s.broadcastGroupList()
		}
	case *action.SetPlayerGroup:
		err = s.registry.SetPlayerGroup(ctx, a.Player, model.PlayerID(params.PlayerID), model.GroupID(params.GroupID))
		if err == nil || !isRegistryRefusal(err) {
			s.broadcastPlayerList()
		}
	case *action.KickPlayer:
		err = s.kick(a.Player, model.PlayerID(params.PlayerID))
	default:
		return action.Failure(action.StatusInvalidParameters, "not a network action")
	}

	if err == nil {
		return action.Success(0)
	}
	s.logger.Info("network action refused",
		slog.Int("player_id", int(a.Player)),
		slog.String("action", a.Type().String()),
		slog.String("error", err.Error()),
	)
	switch {
	case errors.Is(err, model.ErrPermissionDenied), errors.Is(err, model.ErrCannotModifyAdmin),
		errors.Is(err, model.ErrCannotKickHost), errors.Is(err, model.ErrCannotChangeHostGroup):
		return action.Failure(action.StatusDisallowed, "You do not have permission to do that")
	case errors.Is(err, model.ErrGroupNotFound), errors.Is(err, model.ErrPlayerNotFound):
		return action.Failure(action.StatusNotFound, err.Error())
	case isRegistryRefusal(err):
		return action.Failure(action.StatusInvalidParameters, err.Error())
	}
	// persistence failed after the change was made
	return action.Success(0)
}

func isRegistryRefusal(err error) bool {
	for _, target := range []error{
		model.ErrPermissionDenied, model.ErrCannotModifyAdmin, model.ErrCannotKickHost,
		model.ErrCannotChangeHostGroup, model.ErrGroupNotFound, model.ErrPlayerNotFound,
		model.ErrCannotRemoveDefault, model.ErrGroupInUse, model.ErrTooManyGroups, model.ErrInvalidName,
		errInvalidParameters,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Session) modifyGroup(ctx context.Context, requester model.PlayerID, p *action.ModifyGroup) error {
	id := model.GroupID(p.GroupID)
	switch p.Op {
	case action.GroupOpAdd:
		_, err := s.registry.AddGroup(ctx, requester, p.Name)
		return err
	case action.GroupOpRemove:
		return s.registry.RemoveGroup(ctx, requester, id)
	case action.GroupOpRename:
		return s.registry.RenameGroup(ctx, requester, id, p.Name)
	case action.GroupOpSetPermission:
		perm := model.Permission(p.Permission)
		if !perm.Valid() {
			return fmt.Errorf("%w: permission %d", errInvalidParameters, p.Permission)
		}
		return s.registry.SetGroupPermission(ctx, requester, id, perm, p.Enabled)
	case action.GroupOpSetDefault:
		return s.registry.SetDefaultGroup(ctx, requester, id)
	}
	return fmt.Errorf("%w: group operation %d", errInvalidParameters, p.Op)
}

func (s *Session) kick(requester, target model.PlayerID) error {
	if err := s.registry.CheckKick(requester, target); err != nil {
		return err
	}
	c := s.connectionFor(target)
	if c == nil {
		return model.ErrPlayerNotFound
	}
	c.logger.Info("player kicked", slog.Int("by", int(requester)))
	c.Disconnect(reasonKicked)
	return nil
}

func (s *Session) closeServer() error {
	for _, c := range s.connections {
		c.Disconnect(reasonShutdown)
	}
	s.flushAll()
	for _, c := range s.connections {
		s.removeConnection(c)
	}
	s.connections = nil
	s.stopAdvertising()
	s.logServer("Server stopped")

	var err error
	if s.listener != nil {
		err = s.listener.Close()
		s.listener = nil
	}
	s.logger.Info("server stopped")
	return err
}

// Advertising

func (s *Session) listing(id string) advertise.Listing {
	info := s.GameInfo()
	return advertise.Listing{
		ID:               id,
		Name:             info.Name,
		Description:      info.Description,
		Version:          info.Version,
		Address:          s.cfg.AdvertiseAddress,
		Players:          info.Players,
		MaxPlayers:       info.MaxPlayers,
		RequiresPassword: info.Password,
		UpdatedAt:        s.clock.Now(),
	}
}

func (s *Session) listingID() string {
	if s.cfg.AdvertiseAddress != "" {
		return s.cfg.AdvertiseAddress
	}
	return s.listener.Addr()
}

func (s *Session) startAdvertising(parent context.Context) {
	if _, ok := s.advertiser.(advertise.Nop); ok {
		return
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	s.stopAdvertise = cancel
	s.advertiseDone = make(chan struct{})
	id := s.listingID()

	go func() {
		defer close(s.advertiseDone)
		ticker := time.NewTicker(s.cfg.AdvertiseInterval)
		defer ticker.Stop()
		for {
			s.publish(ctx, id)
			select {
			case <-ctx.Done():
				wctx, wcancel := context.WithTimeout(context.Background(), advertiseTimeout)
				if err := s.advertiser.Withdraw(wctx, id); err != nil {
					s.logger.Warn("failed to withdraw listing", slog.String("error", err.Error()))
				}
				wcancel()
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Session) publish(ctx context.Context, id string) {
	pctx, cancel := context.WithTimeout(ctx, advertiseTimeout)
	defer cancel()
	if err := s.advertiser.Publish(pctx, s.listing(id)); err != nil && ctx.Err() == nil {
		s.logger.Warn("failed to publish listing", slog.String("error", err.Error()))
	}
}

func (s *Session) stopAdvertising() {
	if s.stopAdvertise == nil {
		return
	}
	s.stopAdvertise()
	<-s.advertiseDone
	s.stopAdvertise = nil
}
