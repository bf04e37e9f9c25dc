package transport

import (
	"bytes"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PipeSuite struct {
	suite.Suite
}

func TestPipeSuite(t *testing.T) {
	suite.Run(t, new(PipeSuite))
}

func (s *PipeSuite) TestSendReceive() {
	a, b := NewPipe()
	n, err := a.Send([]byte("hello"))
	s.Require().NoError(err)
	s.Equal(5, n)

	buf := make([]byte, 3)
	n, err = b.Receive(buf)
	s.Require().NoError(err)
	s.Equal("hel", string(buf[:n]))
	n, err = b.Receive(buf)
	s.Require().NoError(err)
	s.Equal("lo", string(buf[:n]))

	n, err = b.Receive(buf)
	s.NoError(err)
	s.Zero(n)
}

func (s *PipeSuite) TestCloseDeliversBufferedThenEOF() {
	a, b := NewPipe()
	_, _ = a.Send([]byte("bye"))
	s.Require().NoError(a.Close())

	buf := make([]byte, 16)
	n, err := b.Receive(buf)
	s.Require().NoError(err)
	s.Equal("bye", string(buf[:n]))

	_, err = b.Receive(buf)
	s.ErrorIs(err, io.EOF)

	_, err = b.Send([]byte("x"))
	s.ErrorIs(err, ErrClosed)
	s.Equal(StatusClosed, a.Status())
}

func (s *PipeSuite) TestListenerConnectsOnAccept() {
	l := NewMemoryListener("server")
	client := l.Dial()
	s.Equal(StatusConnecting, client.Status())

	n, err := client.Send([]byte("early"))
	s.NoError(err)
	s.Zero(n)

	server, ok := l.Accept()
	s.Require().True(ok)
	s.Equal(StatusConnected, client.Status())
	s.Equal(StatusConnected, server.Status())
	s.Equal("server", client.RemoteAddr())

	_, ok = l.Accept()
	s.False(ok)
}

func (s *PipeSuite) TestListenerCloseFailsPendingDials() {
	l := NewMemoryListener("server")
	client := l.Dial()
	s.Require().NoError(l.Close())
	s.Equal(StatusError, client.Status())
	s.ErrorIs(client.Err(), ErrClosed)

	late := l.Dial()
	s.Equal(StatusError, late.Status())
}

type TCPSuite struct {
	suite.Suite
}

func TestTCPSuite(t *testing.T) {
	suite.Run(t, new(TCPSuite))
}

func (s *TCPSuite) receiveAll(sock Socket, want int) []byte {
	var got []byte
	buf := make([]byte, 4096)
	s.Require().Eventually(func() bool {
		n, err := sock.Receive(buf)
		s.Require().NoError(err)
		got = append(got, buf[:n]...)
		return len(got) >= want
	}, 5*time.Second, time.Millisecond)
	return got
}

func (s *TCPSuite) TestLoopback() {
	l, err := Listen("127.0.0.1", 0)
	s.Require().NoError(err)
	defer l.Close()

	_, port := splitPort(s, l.Addr())
	client := Dial("127.0.0.1", port)
	defer client.Close()

	s.Require().Eventually(func() bool { return client.Status() == StatusConnected }, 5*time.Second, time.Millisecond)

	var server Socket
	s.Require().Eventually(func() bool {
		var ok bool
		server, ok = l.Accept()
		return ok
	}, 5*time.Second, time.Millisecond)
	defer server.Close()

	payload := bytes.Repeat([]byte("park"), 50000)
	sent := 0
	for sent < len(payload) {
		n, err := client.Send(payload[sent:])
		s.Require().NoError(err)
		sent += n
	}
	s.Equal(payload, s.receiveAll(server, len(payload)))
}

func (s *TCPSuite) TestCloseFlushesQueuedBytes() {
	l, err := Listen("127.0.0.1", 0)
	s.Require().NoError(err)
	defer l.Close()

	_, port := splitPort(s, l.Addr())
	client := Dial("127.0.0.1", port)
	s.Require().Eventually(func() bool { return client.Status() == StatusConnected }, 5*time.Second, time.Millisecond)

	var server Socket
	s.Require().Eventually(func() bool {
		var ok bool
		server, ok = l.Accept()
		return ok
	}, 5*time.Second, time.Millisecond)
	defer server.Close()

	_, err = server.Send([]byte("goodbye"))
	s.Require().NoError(err)
	s.Require().NoError(server.Close())

	s.Equal([]byte("goodbye"), s.receiveAll(client, 7))
	s.Require().Eventually(func() bool {
		_, err := client.Receive(make([]byte, 1))
		return err == io.EOF
	}, 5*time.Second, time.Millisecond)
}

func (s *TCPSuite) TestDialFailure() {
	client := Dial("127.0.0.1", 1)
	s.Require().Eventually(func() bool { return client.Status() == StatusError }, 5*time.Second, time.Millisecond)
	s.Error(client.Err())
}

func splitPort(s *TCPSuite, addr string) (string, int) {
	host, port, err := net.SplitHostPort(addr)
	s.Require().NoError(err)
	p, err := strconv.Atoi(port)
	s.Require().NoError(err)
	return host, p
}
