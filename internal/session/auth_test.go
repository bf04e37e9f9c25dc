package session

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/services/keys"
)

type AuthSuite struct {
	sessionSuite
	keys *keys.Store
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.sessionSuite.SetupTest()
	s.keys = keys.NewStore(s.keyDir)
}

// challenge asks the server for a TOKEN and returns it
func (s *AuthSuite) challenge(peer *rawPeer) []byte {
	s.send(peer, protocol.Empty(protocol.CommandToken))
	packets, closed := s.receive(peer)
	s.Require().False(closed)
	p, ok := find(packets, protocol.CommandToken)
	s.Require().True(ok)
	m, err := protocol.DecodeTokenChallenge(p)
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(m.Challenge), keys.MinChallengeLength)
	s.Require().LessOrEqual(len(m.Challenge), keys.MaxChallengeLength)
	return m.Challenge
}

func (s *AuthSuite) signedRequest(name string, challenge []byte) protocol.AuthRequest {
	pub, err := s.keys.EnsureKey(name)
	s.Require().NoError(err)
	sig, err := s.keys.Sign(name, challenge)
	s.Require().NoError(err)
	return protocol.AuthRequest{
		Version:   protocol.Version,
		Name:      name,
		PublicKey: pub,
		Signature: sig,
	}
}

// authenticate sends req and returns the server's reply and whether the
// connection was closed afterwards
func (s *AuthSuite) authenticate(peer *rawPeer, req protocol.AuthRequest) (protocol.AuthReply, []protocol.Packet, bool) {
	s.send(peer, req.Packet())
	packets, closed := s.receive(peer)
	p, ok := find(packets, protocol.CommandAuth)
	s.Require().True(ok, "no AUTH reply")
	reply, err := protocol.DecodeAuthReply(p)
	s.Require().NoError(err)
	return reply, packets, closed
}

func (s *AuthSuite) requireRejected(req func(challenge []byte) protocol.AuthRequest, want protocol.AuthStatus) protocol.AuthReply {
	peer := s.dialRaw()
	reply, packets, closed := s.authenticate(peer, req(s.challenge(peer)))
	s.Equal(want, reply.Status)
	s.True(closed, "connection should close after %s", want)
	_, joined := find(packets, protocol.CommandObjects)
	s.False(joined)
	s.Equal(1, s.server.Registry().Count(), "only the host should be registered")
	return reply
}

func (s *AuthSuite) TestAcceptsSignedChallenge() {
	s.startServer()
	peer := s.dialRaw()

	reply, packets, closed := s.authenticate(peer, s.signedRequest("Alice", s.challenge(peer)))

	s.Equal(protocol.AuthOK, reply.Status)
	s.False(closed)
	s.NotZero(reply.PlayerID)
	s.Equal(2, s.server.Registry().Count())

	p, ok := s.server.Registry().GetPlayer(model.PlayerID(reply.PlayerID))
	s.Require().True(ok)
	s.Equal("Alice", p.Name)
	s.Equal(model.DefaultGroupID, p.Group)

	for _, cmd := range []protocol.Command{protocol.CommandGroupList, protocol.CommandPlayerList, protocol.CommandObjects} {
		_, ok := find(packets, cmd)
		s.True(ok, "expected %s after joining", cmd)
	}
	s.Contains(s.serverNotifier.chat, "Alice has joined the game")
}

func (s *AuthSuite) TestRejectsVersionMismatch() {
	s.startServer()

	reply := s.requireRejected(func(challenge []byte) protocol.AuthRequest {
		req := s.signedRequest("Alice", challenge)
		req.Version = "parksync-0.1"
		return req
	}, protocol.AuthBadVersion)

	s.Equal(protocol.Version, reply.Version)
}

func (s *AuthSuite) TestRejectsBlankName() {
	s.startServer()

	s.requireRejected(func(challenge []byte) protocol.AuthRequest {
		req := s.signedRequest("Alice", challenge)
		req.Name = "   "
		return req
	}, protocol.AuthBadName)
}

func (s *AuthSuite) TestRejectsSignatureOverWrongChallenge() {
	s.startServer()

	s.requireRejected(func(challenge []byte) protocol.AuthRequest {
		return s.signedRequest("Alice", append([]byte("x"), challenge...))
	}, protocol.AuthVerificationFailure)
}

func (s *AuthSuite) TestRejectsAuthWithoutChallenge() {
	s.startServer()
	peer := s.dialRaw()

	reply, _, closed := s.authenticate(peer, s.signedRequest("Alice", []byte("never issued")))

	s.Equal(protocol.AuthVerificationFailure, reply.Status)
	s.True(closed)
}

func (s *AuthSuite) TestRejectsMalformedPublicKey() {
	s.startServer()

	s.requireRejected(func(challenge []byte) protocol.AuthRequest {
		req := s.signedRequest("Alice", challenge)
		req.PublicKey = "not a key"
		return req
	}, protocol.AuthVerificationFailure)
}

func (s *AuthSuite) TestKnownKeysOnly() {
	s.serverCfg.KnownKeysOnly = true
	s.startServer()

	s.requireRejected(func(challenge []byte) protocol.AuthRequest {
		return s.signedRequest("Stranger", challenge)
	}, protocol.AuthUnknownKeyDisallowed)

	pub, err := s.keys.EnsureKey("Friend")
	s.Require().NoError(err)
	hash, err := keys.Fingerprint(pub)
	s.Require().NoError(err)
	user := model.UserGroupID
	s.Require().NoError(s.storage.SaveKnownUser(context.Background(), &model.KnownUser{Hash: hash, Name: "Old Friend", GroupID: &user}))

	peer := s.dialRaw()
	reply, _, closed := s.authenticate(peer, s.signedRequest("Friend", s.challenge(peer)))
	s.Require().Equal(protocol.AuthOK, reply.Status)
	s.False(closed)

	p, ok := s.server.Registry().GetPlayer(model.PlayerID(reply.PlayerID))
	s.Require().True(ok)
	s.Equal("Old Friend", p.Name)
	s.Equal(model.UserGroupID, p.Group)
}

func (s *AuthSuite) TestRejectsWhenFull() {
	s.serverCfg.MaxPlayers = 2
	s.startServer()

	peer := s.dialRaw()
	reply, _, _ := s.authenticate(peer, s.signedRequest("Alice", s.challenge(peer)))
	s.Require().Equal(protocol.AuthOK, reply.Status)

	second := s.dialRaw()
	reply, _, closed := s.authenticate(second, s.signedRequest("Bob", s.challenge(second)))
	s.Equal(protocol.AuthFull, reply.Status)
	s.True(closed)
	s.Equal(2, s.server.Registry().Count())
}

func (s *AuthSuite) TestPasswordChecks() {
	s.serverCfg.Password = "hunter2"
	s.startServer()

	peer := s.dialRaw()
	challenge := s.challenge(peer)

	reply, _, closed := s.authenticate(peer, s.signedRequest("Alice", challenge))
	s.Equal(protocol.AuthRequirePassword, reply.Status)
	s.False(closed, "a password prompt keeps the connection open")
	s.Equal(1, s.server.Registry().Count())

	req := s.signedRequest("Alice", challenge)
	req.Password = "hunter2"
	reply, _, closed = s.authenticate(peer, req)
	s.Equal(protocol.AuthOK, reply.Status)
	s.False(closed)
	s.Equal(2, s.server.Registry().Count())

	s.requireRejectedCount(func(challenge []byte) protocol.AuthRequest {
		req := s.signedRequest("Bob", challenge)
		req.Password = "wrong"
		return req
	}, protocol.AuthBadPassword, 2)
}

func (s *AuthSuite) TestPasswordlessGroupSkipsPassword() {
	s.serverCfg.Password = "hunter2"
	s.startServer()

	pub, err := s.keys.EnsureKey("Admin")
	s.Require().NoError(err)
	hash, err := keys.Fingerprint(pub)
	s.Require().NoError(err)
	admin := model.AdminGroupID
	s.Require().NoError(s.storage.SaveKnownUser(context.Background(), &model.KnownUser{Hash: hash, Name: "Admin", GroupID: &admin}))

	peer := s.dialRaw()
	reply, _, _ := s.authenticate(peer, s.signedRequest("Admin", s.challenge(peer)))
	s.Equal(protocol.AuthOK, reply.Status)
}

func (s *AuthSuite) requireRejectedCount(req func(challenge []byte) protocol.AuthRequest, want protocol.AuthStatus, count int) {
	peer := s.dialRaw()
	reply, _, closed := s.authenticate(peer, req(s.challenge(peer)))
	s.Equal(want, reply.Status)
	s.True(closed)
	s.Equal(count, s.server.Registry().Count())
}

func (s *AuthSuite) TestIgnoresCommandsBeforeAuth() {
	s.startServer()
	peer := s.dialRaw()

	s.send(peer, protocol.Chat{Text: "let me in"}.Packet())
	s.send(peer, protocol.Empty(protocol.CommandMapRequest))

	packets, closed := s.receive(peer)
	s.False(closed)
	s.Empty(packets)
	s.Empty(s.serverNotifier.chat)

	// the handshake still works afterwards
	s.challenge(peer)
}

func (s *AuthSuite) TestMalformedRequestDisconnects() {
	s.startServer()
	peer := s.dialRaw()
	s.challenge(peer)

	s.send(peer, protocol.Packet{Command: protocol.CommandAuth, Payload: []byte{0, 0, 0, 9, 'p'}})

	packets, closed := s.receive(peer)
	s.True(closed)
	p, ok := find(packets, protocol.CommandSetDisconnectMsg)
	s.Require().True(ok)
	m, err := protocol.DecodeDisconnectMessage(p)
	s.Require().NoError(err)
	s.Equal("Invalid request", m.Reason)
}

func (s *AuthSuite) TestOversizedFrameDisconnects() {
	s.startServer()
	peer := s.dialRaw()

	header := make([]byte, protocol.HeaderSize)
	binary.BigEndian.PutUint32(header[0:4], protocol.MaxFrameSize+1)
	binary.BigEndian.PutUint32(header[4:8], uint32(protocol.CommandChat))
	_, err := peer.sock.Send(header)
	s.Require().NoError(err)
	s.server.Update()

	_, closed := s.receive(peer)
	s.True(closed)
}

func (s *AuthSuite) TestGameInfoWithoutJoining() {
	s.serverCfg.Description = "A quiet park"
	s.serverCfg.Password = "hunter2"
	s.startServer()
	peer := s.dialRaw()

	s.send(peer, protocol.Empty(protocol.CommandGameInfo))

	packets, closed := s.receive(peer)
	s.False(closed)
	p, ok := find(packets, protocol.CommandGameInfo)
	s.Require().True(ok)
	info, err := protocol.DecodeGameInfo(p)
	s.Require().NoError(err)
	s.Equal("Test Server", info.Name)
	s.Equal("A quiet park", info.Description)
	s.Equal(protocol.Version, info.Version)
	s.Equal(1, info.Players)
	s.Equal(s.serverCfg.MaxPlayers, info.MaxPlayers)
	s.True(info.Password)
}

func (s *AuthSuite) TestSecondHandshakeKeepsOnePlayer() {
	s.startServer()
	peer := s.dialRaw()
	first := s.challenge(peer)
	reply, _, _ := s.authenticate(peer, s.signedRequest("Alice", first))
	s.Require().Equal(protocol.AuthOK, reply.Status)
	s.Require().Equal(2, s.server.Registry().Count())

	// a joined player gets no new challenge and cannot AUTH again
	s.send(peer, protocol.Empty(protocol.CommandToken))
	s.send(peer, s.signedRequest("Alice", first).Packet())
	packets, closed := s.receive(peer)
	s.False(closed)
	_, gotToken := find(packets, protocol.CommandToken)
	s.False(gotToken)
	_, gotAuth := find(packets, protocol.CommandAuth)
	s.False(gotAuth)
	s.Equal(2, s.server.Registry().Count())

	p, ok := s.server.Registry().GetPlayer(model.PlayerID(reply.PlayerID))
	s.Require().True(ok)
	s.Equal("Alice", p.Name)

	s.Require().NoError(peer.sock.Close())
	s.server.Update()
	s.server.Update()
	s.Equal(1, s.server.Registry().Count())
	_, ok = s.server.Registry().GetPlayer(model.PlayerID(reply.PlayerID))
	s.False(ok)
}

func (s *AuthSuite) TestMapIsSentOnce() {
	s.startServer()
	peer := s.dialRaw()
	reply, _, _ := s.authenticate(peer, s.signedRequest("Alice", s.challenge(peer)))
	s.Require().Equal(protocol.AuthOK, reply.Status)

	s.send(peer, protocol.ObjectList{}.Packet(protocol.CommandMapRequest))
	packets, closed := s.receive(peer)
	s.False(closed)
	_, gotMap := find(packets, protocol.CommandMap)
	s.True(gotMap)

	s.send(peer, protocol.ObjectList{}.Packet(protocol.CommandMapRequest))
	packets, closed = s.receive(peer)
	s.False(closed)
	_, gotMap = find(packets, protocol.CommandMap)
	s.False(gotMap)
}
