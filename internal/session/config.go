package session

import (
	"fmt"
	"strings"
	"time"
)

// Compression selects how the world snapshot is packed for transfer
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZlib Compression = "zlib"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression parses a compression name
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case CompressionNone, CompressionZlib, CompressionLZ4:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

// Config holds session settings
type Config struct {
	// Port and BindAddress are used by BeginServer
	Port        int
	BindAddress string

	// ServerName and Description are reported in GAMEINFO
	ServerName  string
	Description string

	// PlayerName is the local player's name, used as the host name on a
	// server and as the requested name and key name on a client
	PlayerName string

	MaxPlayers int

	// Password protects the server when set. On a client it is sent with
	// the first AUTH request.
	Password string

	// KnownKeysOnly rejects keys without a known-user record
	KnownKeysOnly bool

	// StayConnectedAfterDesync keeps a client connected once it has
	// diverged from the server
	StayConnectedAfterDesync bool

	// LegacyCommands makes a client send GAMECMD for the kinds that have a
	// positional encoding
	LegacyCommands bool

	PingInterval  time.Duration
	NoDataTimeout time.Duration

	// ChecksumInterval is how often, in ticks, TICK carries a world checksum
	ChecksumInterval uint32
	SyncHistory      int

	MapChunkSize   int
	MapCompression Compression

	// ChatRate is the sustained chat messages per second allowed per player
	ChatRate  float64
	ChatBurst int

	// AdvertiseAddress is the address published by the advertiser
	AdvertiseAddress  string
	AdvertiseInterval time.Duration

	// KeyDir holds client keypairs; LogDir holds chat and server logs.
	// Logging to files is disabled when LogDir is empty.
	KeyDir string
	LogDir string
}

// DefaultConfig returns the default session settings
func DefaultConfig() Config {
	return Config{
		Port:              11753,
		ServerName:        "Parksync Server",
		PlayerName:        "Player",
		MaxPlayers:        16,
		PingInterval:      3 * time.Second,
		NoDataTimeout:     7 * time.Second,
		ChecksumInterval:  100,
		SyncHistory:       100,
		MapChunkSize:      65000,
		MapCompression:    CompressionZlib,
		ChatRate:          1,
		ChatBurst:         5,
		AdvertiseInterval: 30 * time.Second,
		KeyDir:            "keys",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.NoDataTimeout <= 0 {
		c.NoDataTimeout = d.NoDataTimeout
	}
	if c.ChecksumInterval == 0 {
		c.ChecksumInterval = d.ChecksumInterval
	}
	if c.SyncHistory <= 0 {
		c.SyncHistory = d.SyncHistory
	}
	if c.MapChunkSize <= 0 {
		c.MapChunkSize = d.MapChunkSize
	}
	if c.MapCompression == "" {
		c.MapCompression = d.MapCompression
	}
	if c.ChatRate <= 0 {
		c.ChatRate = d.ChatRate
	}
	if c.ChatBurst <= 0 {
		c.ChatBurst = d.ChatBurst
	}
	if c.AdvertiseInterval <= 0 {
		c.AdvertiseInterval = d.AdvertiseInterval
	}
	if c.PlayerName == "" {
		c.PlayerName = d.PlayerName
	}
	return c
}
