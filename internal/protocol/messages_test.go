package protocol

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MessagesSuite struct {
	suite.Suite
}

func TestMessagesSuite(t *testing.T) {
	suite.Run(t, new(MessagesSuite))
}

func (s *MessagesSuite) TestAuthReplyVersionOnlyOnBadVersion() {
	ok := AuthReply{Status: AuthOK, PlayerID: 3, Version: "ignored"}.Packet()
	s.Len(ok.Payload, 5)

	bad := AuthReply{Status: AuthBadVersion, Version: "other"}.Packet()
	got, err := DecodeAuthReply(bad)
	s.Require().NoError(err)
	s.Equal(AuthBadVersion, got.Status)
	s.Equal("other", got.Version)
}

func (s *MessagesSuite) TestAuthRequestTruncated() {
	p := AuthRequest{Version: Version, Name: "Bob", Signature: []byte{1, 2, 3}}.Packet()
	p.Payload = p.Payload[:len(p.Payload)-1]
	_, err := DecodeAuthRequest(p)
	s.ErrorIs(err, ErrTruncated)
}

func (s *MessagesSuite) TestLegacyCommandPlayerIDOnlyFromServer() {
	m := LegacyCommand{Tick: 10, Args: [7]uint32{1, 2, 3, 4, 25, 6, 7}, PlayerID: 4, Callback: 9}

	fromClient := m.Packet(false)
	s.Len(fromClient.Payload, 4+7*4+1)
	got, err := DecodeLegacyCommand(fromClient, false)
	s.Require().NoError(err)
	s.Zero(got.PlayerID)
	s.Equal(uint8(9), got.Callback)

	fromServer := m.Packet(true)
	got, err = DecodeLegacyCommand(fromServer, true)
	s.Require().NoError(err)
	s.Equal(m, got)
}

func (s *MessagesSuite) TestTickChecksumFlag() {
	plain := Tick{Tick: 5, Seed: 99, Checksum: "dropped"}.Packet()
	got, err := DecodeTick(plain)
	s.Require().NoError(err)
	s.False(got.HasChecksum())
	s.Empty(got.Checksum)

	withSum := Tick{Tick: 100, Seed: 7, Flags: TickFlagChecksum, Checksum: "abc"}.Packet()
	got, err = DecodeTick(withSum)
	s.Require().NoError(err)
	s.True(got.HasChecksum())
	s.Equal("abc", got.Checksum)
}

func (s *MessagesSuite) TestEventReasonOnlyOnDisconnect() {
	joined := Event{Type: EventPlayerJoined, Name: "Alice", Reason: "x"}.Packet()
	got, err := DecodeEvent(joined)
	s.Require().NoError(err)
	s.Empty(got.Reason)

	left := Event{Type: EventPlayerDisconnected, Name: "Alice", Reason: "no data"}.Packet()
	got, err = DecodeEvent(left)
	s.Require().NoError(err)
	s.Equal("no data", got.Reason)
}

func (s *MessagesSuite) TestObjectListCountBound() {
	w := NewWriter()
	w.U32(MaxObjects + 1)
	_, err := DecodeObjectList(Packet{Command: CommandMapRequest, Payload: w.Bytes()})
	s.ErrorIs(err, ErrMalformed)
}

func (s *MessagesSuite) TestObjectListCountLargerThanPayload() {
	w := NewWriter()
	w.U32(3)
	w.String("only-one")
	_, err := DecodeObjectList(Packet{Command: CommandObjects, Payload: w.Bytes()})
	s.ErrorIs(err, ErrTruncated)
}

func (s *MessagesSuite) TestGroupListCarriesPermissionBytes() {
	m := GroupList{Default: 1, Groups: []GroupRecord{
		{ID: 0, Name: "Admin", Permissions: []byte{0xff, 0xff, 0x7f}},
		{ID: 1, Name: "Spectator", Permissions: []byte{0x01, 0, 0}},
	}}
	got, err := DecodeGroupList(m.Packet())
	s.Require().NoError(err)
	s.Equal(m, got)
}

func (s *MessagesSuite) TestGameInfoJSON() {
	p, err := GameInfo{Name: "Park", Players: 2, MaxPlayers: 16, Version: Version}.Packet()
	s.Require().NoError(err)
	got, err := DecodeGameInfo(p)
	s.Require().NoError(err)
	s.Equal("Park", got.Name)
	s.Equal(16, got.MaxPlayers)

	w := NewWriter()
	w.String("{not json")
	_, err = DecodeGameInfo(Packet{Command: CommandGameInfo, Payload: w.Bytes()})
	s.ErrorIs(err, ErrMalformed)
}

func (s *MessagesSuite) TestAuthStatusRejected() {
	s.True(AuthBadPassword.Rejected())
	s.True(AuthFull.Rejected())
	s.False(AuthOK.Rejected())
	s.False(AuthRequirePassword.Rejected())
	s.Equal("full", AuthFull.String())
}
