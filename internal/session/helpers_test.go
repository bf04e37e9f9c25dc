package session

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/parksync/internal/dependencies/mocks"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/services/keys"
	"github.com/mcoot/parksync/internal/sim"
	"github.com/mcoot/parksync/internal/storage/memory"
	"github.com/mcoot/parksync/internal/testutil"
	"github.com/mcoot/parksync/internal/transport"
)

// recorder is a Notifier that keeps every event
type recorder struct {
	statuses         []string
	passwordRequired int
	errors           []protocol.ShowError
	chat             []string
	events           []protocol.Event
	desyncs          []uint32
	disconnects      []string
}

var _ Notifier = (*recorder)(nil)

func (r *recorder) StatusChanged(status string) {
	r.statuses = append(r.statuses, status)
}

func (r *recorder) PasswordRequired() {
	r.passwordRequired++
}

func (r *recorder) ShowError(code protocol.ErrorCode, message string) {
	r.errors = append(r.errors, protocol.ShowError{Code: code, Message: message})
}

func (r *recorder) ChatMessage(text string) {
	r.chat = append(r.chat, text)
}

func (r *recorder) PlayerEvent(e protocol.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) MapProgress(int, int) {}

func (r *recorder) Desynchronized(tick uint32) {
	r.desyncs = append(r.desyncs, tick)
}

func (r *recorder) Disconnected(reason string) {
	r.disconnects = append(r.disconnects, reason)
}

func (r *recorder) errorCodes() []protocol.ErrorCode {
	var codes []protocol.ErrorCode
	for _, e := range r.errors {
		codes = append(codes, e.Code)
	}
	return codes
}

type testClient struct {
	session  *Session
	park     *sim.Park
	notifier *recorder
}

// sessionSuite hosts a server on an in-memory listener and joins clients
// to it over pipes
type sessionSuite struct {
	suite.Suite

	clock    *mocks.MockClock
	storage  *memory.Storage
	listener *transport.MemoryListener
	keyDir   string

	serverCfg      Config
	server         *Session
	serverPark     *sim.Park
	serverNotifier *recorder
	clients        []*testClient
}

func (s *sessionSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.New()
	s.listener = transport.NewMemoryListener("server")
	s.keyDir = s.T().TempDir()
	s.clients = nil

	s.serverCfg = DefaultConfig()
	s.serverCfg.PlayerName = "Host"
	s.serverCfg.ServerName = "Test Server"
	s.server = nil
}

func (s *sessionSuite) TearDownTest() {
	for _, c := range s.clients {
		c.session.Close()
	}
	if s.server != nil {
		s.server.Close()
	}
}

func (s *sessionSuite) startServer() {
	s.serverPark = sim.New("Test Park", 7, sim.DefaultObjects)
	s.serverNotifier = &recorder{}
	srv, err := New(s.serverCfg, s.serverPark, Deps{
		Storage:  s.storage,
		Notifier: s.serverNotifier,
		Clock:    s.clock,
		Logger:   testutil.NopLogger(),
	})
	s.Require().NoError(err)
	s.Require().NoError(srv.BeginServerWithListener(context.Background(), s.listener))
	s.server = srv
}

func (s *sessionSuite) newClient(name string, configure func(*Config)) *testClient {
	cfg := DefaultConfig()
	cfg.PlayerName = name
	cfg.KeyDir = s.keyDir
	if configure != nil {
		configure(&cfg)
	}
	c := &testClient{park: sim.NewEmpty(sim.DefaultObjects), notifier: &recorder{}}
	sess, err := New(cfg, c.park, Deps{
		Keys:     keys.NewStore(cfg.KeyDir),
		Notifier: c.notifier,
		Clock:    s.clock,
		Logger:   testutil.NopLogger(),
	})
	s.Require().NoError(err)
	s.Require().NoError(sess.BeginClientWithSocket(s.listener.Dial()))
	c.session = sess
	s.clients = append(s.clients, c)
	return c
}

// join connects a client and pumps until it has loaded the world
func (s *sessionSuite) join(name string, configure func(*Config)) *testClient {
	c := s.newClient(name, configure)
	for i := 0; i < 20 && !c.session.MapLoaded(); i++ {
		s.pump()
	}
	s.Require().True(c.session.MapLoaded(), "%s did not load the map", name)
	return c
}

// pump runs one network update on every peer
func (s *sessionSuite) pump() {
	s.server.Update()
	for _, c := range s.clients {
		c.session.Update()
	}
}

// step runs one server tick and lets every client catch up
func (s *sessionSuite) step() {
	s.server.Update()
	s.server.Advance()
	for _, c := range s.clients {
		c.session.Update()
		for c.session.Role() == RoleClient && c.session.Advance() {
		}
	}
}

func (s *sessionSuite) steps(n int) {
	for i := 0; i < n; i++ {
		s.step()
	}
}

func (s *sessionSuite) requireInSync(c *testClient) {
	s.Require().Equal(s.serverPark.CurrentTick(), c.park.CurrentTick())
	s.Require().Equal(s.serverPark.Seed(), c.park.Seed())
	s.Require().Equal(s.serverPark.Checksum(), c.park.Checksum())
}

// rawPeer is a hand-driven connection to the server
type rawPeer struct {
	sock transport.Socket
	conn *Connection
}

func (s *sessionSuite) dialRaw() *rawPeer {
	sock := s.listener.Dial()
	s.server.Update()
	s.Require().Equal(transport.StatusConnected, sock.Status())
	return &rawPeer{sock: sock, conn: NewConnection(sock, s.clock.Now(), testutil.NopLogger())}
}

func (s *sessionSuite) send(peer *rawPeer, p protocol.Packet) {
	peer.conn.QueuePacket(p, false)
	s.Require().NoError(peer.conn.SendQueuedPackets())
	s.server.Update()
}

// receive returns every complete packet waiting for the peer and whether
// the server has closed the connection
func (s *sessionSuite) receive(peer *rawPeer) ([]protocol.Packet, bool) {
	var packets []protocol.Packet
	for {
		p, res := peer.conn.ReadPacket()
		switch res {
		case ReadSuccess:
			packets = append(packets, p)
		case ReadDisconnected:
			return packets, true
		default:
			return packets, false
		}
	}
}

func find(packets []protocol.Packet, cmd protocol.Command) (protocol.Packet, bool) {
	for _, p := range packets {
		if p.Command == cmd {
			return p, true
		}
	}
	return protocol.Packet{}, false
}
