package transport

import (
	"fmt"
	"io"
	"sync"
)

// pipeEnd is one side of an in-memory socket pair
type pipeEnd struct {
	name string
	peer *pipeEnd

	mu     sync.Mutex
	status Status
	err    error
	buf    []byte // bytes sent by the peer, not yet received
	eof    bool   // peer closed
}

// NewPipe returns two connected sockets wired to each other
func NewPipe() (Socket, Socket) {
	a, b := newPipePair("pipe-a", "pipe-b")
	a.status = StatusConnected
	b.status = StatusConnected
	return a, b
}

func newPipePair(aName, bName string) (*pipeEnd, *pipeEnd) {
	a := &pipeEnd{name: aName}
	b := &pipeEnd{name: bName}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *pipeEnd) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *pipeEnd) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pipeEnd) Receive(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		if p.eof || p.status == StatusClosed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *pipeEnd) Send(b []byte) (int, error) {
	p.mu.Lock()
	status := p.status
	p.mu.Unlock()
	switch status {
	case StatusConnected:
	case StatusClosed:
		return 0, ErrClosed
	case StatusError:
		return 0, p.Err()
	default:
		return 0, nil
	}

	p.peer.mu.Lock()
	defer p.peer.mu.Unlock()
	if p.peer.status == StatusClosed {
		return 0, ErrClosed
	}
	p.peer.buf = append(p.peer.buf, b...)
	return len(b), nil
}

func (p *pipeEnd) Close() error {
	p.mu.Lock()
	if p.status == StatusClosed {
		p.mu.Unlock()
		return nil
	}
	p.status = StatusClosed
	p.buf = nil
	p.mu.Unlock()

	p.peer.mu.Lock()
	p.peer.eof = true
	p.peer.mu.Unlock()
	return nil
}

func (p *pipeEnd) RemoteAddr() string {
	return p.peer.name
}

// MemoryListener accepts in-memory connections made with Dial
type MemoryListener struct {
	mu      sync.Mutex
	name    string
	pending []*pipeEnd
	count   int
	closed  bool
}

// Ensure MemoryListener implements Listener
var _ Listener = (*MemoryListener)(nil)

// NewMemoryListener creates a listener for in-process clients
func NewMemoryListener(name string) *MemoryListener {
	return &MemoryListener{name: name}
}

// Dial opens a connection to the listener. The client end reports
// connecting until the listener accepts it.
func (l *MemoryListener) Dial() Socket {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	client, server := newPipePair(fmt.Sprintf("client-%d", l.count), l.name)
	if l.closed {
		client.status = StatusError
		client.err = fmt.Errorf("connect %s: %w", l.name, ErrClosed)
		return client
	}
	client.status = StatusConnecting
	server.status = StatusConnecting
	l.pending = append(l.pending, server)
	return client
}

func (l *MemoryListener) Accept() (Socket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil, false
	}
	server := l.pending[0]
	l.pending = l.pending[1:]
	server.mu.Lock()
	server.status = StatusConnected
	server.mu.Unlock()
	server.peer.mu.Lock()
	if server.peer.status == StatusConnecting {
		server.peer.status = StatusConnected
	}
	server.peer.mu.Unlock()
	return server, true
}

func (l *MemoryListener) Addr() string {
	return l.name
}

func (l *MemoryListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for _, s := range l.pending {
		s.peer.mu.Lock()
		s.peer.status = StatusError
		s.peer.err = fmt.Errorf("connect %s: %w", l.name, ErrClosed)
		s.peer.mu.Unlock()
	}
	l.pending = nil
	return nil
}
