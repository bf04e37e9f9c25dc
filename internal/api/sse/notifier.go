package sse

import (
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/session"
)

// Event names
const (
	EventChat   = "chat"
	EventPlayer = "player"
	EventDesync = "desync"
	EventError  = "error"
)

// ChatEvent carries one chat line
type ChatEvent struct {
	Text string `json:"text"`
}

// PlayerEvent reports a join or leave
type PlayerEvent struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// DesyncEvent reports the tick a divergence was found at
type DesyncEvent struct {
	Tick uint32 `json:"tick"`
}

// ErrorEvent is an error the session surfaced
type ErrorEvent struct {
	Code    uint16 `json:"code"`
	Message string `json:"message"`
}

// Notifier forwards session events to the hub and then to next
type Notifier struct {
	hub  *Hub
	next session.Notifier
}

var _ session.Notifier = (*Notifier)(nil)

// NewNotifier wraps next. A nil next drops everything after the hub.
func NewNotifier(hub *Hub, next session.Notifier) *Notifier {
	if next == nil {
		next = session.NopNotifier{}
	}
	return &Notifier{hub: hub, next: next}
}

func (n *Notifier) StatusChanged(status string) {
	n.next.StatusChanged(status)
}

func (n *Notifier) PasswordRequired() {
	n.next.PasswordRequired()
}

func (n *Notifier) ShowError(code protocol.ErrorCode, message string) {
	n.hub.BroadcastEvent(EventError, ErrorEvent{Code: uint16(code), Message: message})
	n.next.ShowError(code, message)
}

func (n *Notifier) ChatMessage(text string) {
	n.hub.BroadcastEvent(EventChat, ChatEvent{Text: text})
	n.next.ChatMessage(text)
}

func (n *Notifier) PlayerEvent(event protocol.Event) {
	e := PlayerEvent{Type: "joined", Name: event.Name}
	if event.Type == protocol.EventPlayerDisconnected {
		e.Type = "left"
		e.Reason = event.Reason
	}
	n.hub.BroadcastEvent(EventPlayer, e)
	n.next.PlayerEvent(event)
}

func (n *Notifier) MapProgress(received, total int) {
	n.next.MapProgress(received, total)
}

func (n *Notifier) Desynchronized(tick uint32) {
	n.hub.BroadcastEvent(EventDesync, DesyncEvent{Tick: tick})
	n.next.Desynchronized(tick)
}

func (n *Notifier) Disconnected(reason string) {
	n.next.Disconnected(reason)
}
