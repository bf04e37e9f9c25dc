package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/transport"
)

// ErrConnectionClosed is returned when a server hangs up mid-query
var ErrConnectionClosed = errors.New("connection closed")

// FetchGameInfo asks a server for its GAMEINFO without joining. It polls the
// socket every interval until the reply arrives or ctx ends, and closes the
// socket before returning.
func FetchGameInfo(ctx context.Context, sock transport.Socket, interval time.Duration) (protocol.GameInfo, error) {
	defer sock.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var c *Connection
	for {
		switch sock.Status() {
		case transport.StatusConnected:
			if c == nil {
				c = NewConnection(sock, time.Now(), nil)
				c.QueuePacket(protocol.Empty(protocol.CommandGameInfo), false)
			}
			if err := c.SendQueuedPackets(); err != nil {
				return protocol.GameInfo{}, fmt.Errorf("send game info request: %w", err)
			}
			if info, done, err := readGameInfo(c); done {
				return info, err
			}
		case transport.StatusError:
			return protocol.GameInfo{}, fmt.Errorf("connect: %w", sock.Err())
		case transport.StatusClosed:
			return protocol.GameInfo{}, ErrConnectionClosed
		}

		select {
		case <-ctx.Done():
			return protocol.GameInfo{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func readGameInfo(c *Connection) (protocol.GameInfo, bool, error) {
	for {
		p, res := c.ReadPacket()
		switch res {
		case ReadSuccess:
			if p.Command != protocol.CommandGameInfo {
				continue
			}
			info, err := protocol.DecodeGameInfo(p)
			return info, true, err
		case ReadDisconnected:
			return protocol.GameInfo{}, true, ErrConnectionClosed
		default:
			return protocol.GameInfo{}, false, nil
		}
	}
}
