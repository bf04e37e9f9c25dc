package session

import (
	"log/slog"

	"github.com/mcoot/parksync/internal/protocol"
)

// Notifier receives user-facing events from the session. Implementations
// must not call back into the session.
type Notifier interface {
	// StatusChanged reports connection progress ("Connecting...", ...)
	StatusChanged(status string)
	// PasswordRequired asks for a password to send with SendPassword
	PasswordRequired()
	// ShowError reports an error the server sent
	ShowError(code protocol.ErrorCode, message string)
	// ChatMessage delivers a chat line
	ChatMessage(text string)
	// PlayerEvent reports a player joining or leaving
	PlayerEvent(event protocol.Event)
	// MapProgress reports world transfer progress in bytes
	MapProgress(received, total int)
	// Desynchronized reports the first divergence from the server
	Desynchronized(tick uint32)
	// Disconnected reports why a client session ended
	Disconnected(reason string)
}

// NopNotifier ignores all events
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) StatusChanged(string) {}
func (NopNotifier) PasswordRequired() {}
func (NopNotifier) ShowError(protocol.ErrorCode, string) {}
func (NopNotifier) ChatMessage(string) {}
func (NopNotifier) PlayerEvent(protocol.Event) {}
func (NopNotifier) MapProgress(int, int) {}
func (NopNotifier) Desynchronized(uint32) {}
func (NopNotifier) Disconnected(string) {}

// LogNotifier writes events to a logger. The CLI uses it in place of a UI.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that logs every event
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "ui"))}
}

func (n *LogNotifier) StatusChanged(status string) {
	n.logger.Info("status", slog.String("status", status))
}

func (n *LogNotifier) PasswordRequired() {
	n.logger.Warn("server requires a password")
}

func (n *LogNotifier) ShowError(code protocol.ErrorCode, message string) {
	n.logger.Warn("server error", slog.Int("code", int(code)), slog.String("message", message))
}

func (n *LogNotifier) ChatMessage(text string) {
	n.logger.Info("chat", slog.String("text", text))
}

func (n *LogNotifier) PlayerEvent(event protocol.Event) {
	attrs := []any{slog.String("name", event.Name)}
	if event.Type == protocol.EventPlayerDisconnected {
		n.logger.Info("player left", append(attrs, slog.String("reason", event.Reason))...)
		return
	}
	n.logger.Info("player joined", attrs...)
}

func (n *LogNotifier) MapProgress(received, total int) {
	n.logger.Debug("map transfer", slog.Int("received", received), slog.Int("total", total))
}

func (n *LogNotifier) Desynchronized(tick uint32) {
	n.logger.Error("desynchronized from server", slog.Uint64("tick", uint64(tick)))
}

func (n *LogNotifier) Disconnected(reason string) {
	n.logger.Warn("disconnected", slog.String("reason", reason))
}
