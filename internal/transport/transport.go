// Package transport provides the non-blocking stream sockets the session
// polls each frame.
package transport

import "errors"

// Status is the lifecycle state of a socket
type Status int

const (
	StatusNone Status = iota
	StatusResolving
	StatusConnecting
	StatusConnected
	StatusClosed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusResolving:
		return "resolving"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ErrClosed is returned when using a closed socket
var ErrClosed = errors.New("socket closed")

// Socket is a non-blocking byte stream
type Socket interface {
	// Status reports the connection state. Connection is asynchronous;
	// callers poll until StatusConnected or StatusError.
	Status() Status

	// Err returns the error behind StatusError
	Err() error

	// Receive copies available bytes into p. It returns 0, nil when no data
	// is waiting and io.EOF once the peer has closed and everything has been
	// read.
	Receive(p []byte) (int, error)

	// Send queues bytes for writing and returns how many were accepted,
	// which may be fewer than len(p) when the outbound buffer is full.
	Send(p []byte) (int, error)

	// Close flushes queued bytes and closes the stream
	Close() error

	// RemoteAddr describes the peer
	RemoteAddr() string
}

// Listener hands out accepted sockets without blocking
type Listener interface {
	// Accept returns the next pending socket, if any
	Accept() (Socket, bool)

	// Addr is the bound address
	Addr() string

	Close() error
}
