package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	readChunkSize   = 64 * 1024
	maxOutbound     = 4 * 1024 * 1024
	inboundBacklog  = 64
	acceptBacklog   = 16
	dialTimeout     = 10 * time.Second
	closeFlushLimit = 2 * time.Second
)

type tcpSocket struct {
	remote string

	mu     sync.Mutex
	status Status
	err    error
	conn   net.Conn
	out    []byte

	inbound chan []byte
	pending []byte
	readErr error // set before inbound is closed

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newTCPSocket(remote string) *tcpSocket {
	return &tcpSocket{
		remote:  remote,
		inbound: make(chan []byte, inboundBacklog),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Dial starts an asynchronous connection. The returned socket moves through
// resolving and connecting to connected or error.
func Dial(host string, port int) Socket {
	s := newTCPSocket(net.JoinHostPort(host, strconv.Itoa(port)))
	s.status = StatusResolving
	go s.dial(host, port)
	return s
}

func (s *tcpSocket) dial(host string, port int) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		s.fail(fmt.Errorf("resolve %s: %w", host, err))
		return
	}
	if len(addrs) == 0 {
		s.fail(fmt.Errorf("resolve %s: no addresses", host))
		return
	}

	s.mu.Lock()
	if s.status != StatusResolving {
		s.mu.Unlock()
		return
	}
	s.status = StatusConnecting
	s.mu.Unlock()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addrs[0], strconv.Itoa(port)))
	if err != nil {
		s.fail(fmt.Errorf("connect %s: %w", s.remote, err))
		return
	}
	s.attach(conn)
}

func (s *tcpSocket) attach(conn net.Conn) {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.status = StatusConnected
	s.mu.Unlock()

	go s.readLoop(conn)
	go s.writeLoop(conn)
}

func (s *tcpSocket) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return
	}
	s.status = StatusError
	s.err = err
}

func (s *tcpSocket) readLoop(conn net.Conn) {
	for {
		buf := make([]byte, readChunkSize)
		n, err := conn.Read(buf)
		if n > 0 {
			select {
			case s.inbound <- buf[:n]:
			case <-s.done:
				s.readErr = ErrClosed
				close(s.inbound)
				return
			}
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				err = io.EOF
			}
			s.readErr = err
			close(s.inbound)
			return
		}
	}
}

func (s *tcpSocket) writeLoop(conn net.Conn) {
	defer conn.Close()
	for {
		select {
		case <-s.wake:
		case <-s.done:
			// Flush what was queued before Close, bounded in time
			_ = conn.SetWriteDeadline(time.Now().Add(closeFlushLimit))
			s.flush(conn)
			return
		}
		if !s.flush(conn) {
			return
		}
	}
}

func (s *tcpSocket) flush(conn net.Conn) bool {
	s.mu.Lock()
	data := s.out
	s.out = nil
	s.mu.Unlock()
	if len(data) == 0 {
		return true
	}
	if _, err := conn.Write(data); err != nil {
		s.fail(fmt.Errorf("write %s: %w", s.remote, err))
		return false
	}
	return true
}

func (s *tcpSocket) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *tcpSocket) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *tcpSocket) Receive(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case chunk, ok := <-s.inbound:
			if !ok {
				return 0, s.readErr
			}
			s.pending = chunk
		default:
			if st := s.Status(); st == StatusError {
				return 0, s.Err()
			}
			return 0, nil
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *tcpSocket) Send(p []byte) (int, error) {
	s.mu.Lock()
	switch s.status {
	case StatusClosed:
		s.mu.Unlock()
		return 0, ErrClosed
	case StatusError:
		err := s.err
		s.mu.Unlock()
		return 0, err
	case StatusConnected:
	default:
		s.mu.Unlock()
		return 0, nil
	}
	n := min(len(p), maxOutbound-len(s.out))
	s.out = append(s.out, p[:n]...)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return n, nil
}

func (s *tcpSocket) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.status = StatusClosed
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

func (s *tcpSocket) RemoteAddr() string {
	return s.remote
}

type tcpListener struct {
	ln       net.Listener
	accepted chan Socket
	done     chan struct{}
}

// Listen binds a TCP listener. An empty bind address listens on all
// interfaces.
func Listen(bind string, port int) (Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen on %s:%d: %w", bind, port, err)
	}
	l := &tcpListener{
		ln:       ln,
		accepted: make(chan Socket, acceptBacklog),
		done:     make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

func (l *tcpListener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		s := newTCPSocket(conn.RemoteAddr().String())
		s.attach(conn)
		select {
		case l.accepted <- s:
		case <-l.done:
			s.Close()
			return
		}
	}
}

func (l *tcpListener) Accept() (Socket, bool) {
	select {
	case s := <-l.accepted:
		return s, true
	default:
		return nil, false
	}
}

func (l *tcpListener) Addr() string {
	return l.ln.Addr().String()
}

func (l *tcpListener) Close() error {
	select {
	case <-l.done:
		return nil
	default:
		close(l.done)
	}
	return l.ln.Close()
}
