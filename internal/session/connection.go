package session

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/transport"
)

// ReadResult is the outcome of Connection.ReadPacket
type ReadResult int

const (
	ReadDisconnected ReadResult = iota
	ReadSuccess
	ReadNeedMoreData
	ReadNoData
)

func (r ReadResult) String() string {
	switch r {
	case ReadDisconnected:
		return "disconnected"
	case ReadSuccess:
		return "success"
	case ReadNeedMoreData:
		return "need_more_data"
	case ReadNoData:
		return "no_data"
	}
	return "unknown"
}

const readChunkSize = 64 * 1024

// Connection wraps one peer socket with its framing buffers and per-peer
// handshake state
type Connection struct {
	socket transport.Socket
	logger *slog.Logger

	inbound  []byte
	outbound [][]byte
	// sent is how much of outbound[0] the socket has accepted
	sent int

	AuthStatus protocol.AuthStatus
	PlayerID   model.PlayerID
	Challenge  []byte
	// hasPlayer is set once PlayerID names a registered player
	hasPlayer bool
	// mapSent is set once the world has been queued to this peer
	mapSent bool

	LastPacketTime   time.Time
	PingSentTime     time.Time
	RequestedObjects []string

	chat *rate.Limiter

	// closing connections are closed once their outbound queue drains
	closing          bool
	disconnectReason string
}

// NewConnection wraps a connected socket
func NewConnection(socket transport.Socket, now time.Time, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		socket:         socket,
		logger:         logger.With(slog.String("remote", socket.RemoteAddr())),
		LastPacketTime: now,
	}
}

// Authenticated reports whether the peer has passed AUTH
func (c *Connection) Authenticated() bool {
	return c.AuthStatus == protocol.AuthOK
}

// RemoteAddr returns the peer address
func (c *Connection) RemoteAddr() string {
	return c.socket.RemoteAddr()
}

// ReadPacket returns the next complete packet, reading from the socket when
// the buffered bytes do not hold one
func (c *Connection) ReadPacket() (protocol.Packet, ReadResult) {
	if p, res, done := c.decode(); done {
		return p, res
	}

	buf := make([]byte, readChunkSize)
	n, err := c.socket.Receive(buf)
	if err != nil {
		c.logger.Debug("receive failed", slog.String("error", err.Error()))
		return protocol.Packet{}, ReadDisconnected
	}
	if n == 0 {
		if len(c.inbound) == 0 {
			return protocol.Packet{}, ReadNoData
		}
		return protocol.Packet{}, ReadNeedMoreData
	}
	c.inbound = append(c.inbound, buf[:n]...)

	if p, res, done := c.decode(); done {
		return p, res
	}
	return protocol.Packet{}, ReadNeedMoreData
}

func (c *Connection) decode() (protocol.Packet, ReadResult, bool) {
	p, consumed, err := protocol.DecodeFrame(c.inbound)
	switch {
	case err == nil:
		c.inbound = c.inbound[consumed:]
		if len(c.inbound) == 0 {
			c.inbound = nil
		}
		return p, ReadSuccess, true
	case errors.Is(err, protocol.ErrNeedMoreData):
		return protocol.Packet{}, ReadNeedMoreData, false
	default:
		c.logger.Warn("dropping connection on bad frame", slog.String("error", err.Error()))
		return protocol.Packet{}, ReadDisconnected, true
	}
}

// QueuePacket frames p and adds it to the outbound queue. A front packet
// goes ahead of everything not yet started on the wire.
func (c *Connection) QueuePacket(p protocol.Packet, front bool) {
	frame, err := protocol.EncodeFrame(p)
	if err != nil {
		c.logger.Error("failed to encode packet",
			slog.String("command", p.Command.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !front || len(c.outbound) == 0 {
		c.outbound = append(c.outbound, frame)
		return
	}
	at := 0
	if c.sent > 0 {
		at = 1
	}
	c.outbound = append(c.outbound, nil)
	copy(c.outbound[at+1:], c.outbound[at:])
	c.outbound[at] = frame
}

// SendQueuedPackets writes as much of the outbound queue as the socket
// accepts without blocking
func (c *Connection) SendQueuedPackets() error {
	for len(c.outbound) > 0 {
		head := c.outbound[0]
		n, err := c.socket.Send(head[c.sent:])
		if err != nil {
			return err
		}
		c.sent += n
		if c.sent < len(head) {
			return nil
		}
		c.outbound[0] = nil
		c.outbound = c.outbound[1:]
		c.sent = 0
	}
	return nil
}

// Pending returns the number of frames not yet fully sent
func (c *Connection) Pending() int {
	return len(c.outbound)
}

// Disconnect queues a SETDISCONNECTMSG with reason and closes the
// connection once it has been sent
func (c *Connection) Disconnect(reason string) {
	if c.closing {
		return
	}
	if reason != "" {
		c.QueuePacket(protocol.DisconnectMessage{Reason: reason}.Packet(), false)
	}
	c.CloseAfterFlush(reason)
}

// CloseAfterFlush closes the connection once queued packets are sent
func (c *Connection) CloseAfterFlush(reason string) {
	if c.closing {
		return
	}
	c.closing = true
	if c.disconnectReason == "" {
		c.disconnectReason = reason
	}
}

// Closing reports whether the connection is being shut down
func (c *Connection) Closing() bool {
	return c.closing
}

// SetDisconnectReason records the reason the peer gave for dropping us
func (c *Connection) SetDisconnectReason(reason string) {
	c.disconnectReason = reason
}

// DisconnectReason returns the recorded reason, or fallback
func (c *Connection) DisconnectReason(fallback string) string {
	if c.disconnectReason != "" {
		return c.disconnectReason
	}
	return fallback
}

// Alive reports whether a packet arrived within timeout
func (c *Connection) Alive(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.LastPacketTime) < timeout
}

// AllowChat applies the per-connection chat limit
func (c *Connection) AllowChat(now time.Time, limit rate.Limit, burst int) bool {
	if c.chat == nil {
		c.chat = rate.NewLimiter(limit, burst)
	}
	return c.chat.AllowN(now, 1)
}

// Close closes the socket
func (c *Connection) Close() error {
	c.closing = true
	return c.socket.Close()
}
