// Package queue orders pending actions by (tick, command index), the order
// every peer applies them in.
package queue

import (
	"container/heap"
	"log/slog"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/model"
)

// Entry is one pending action
type Entry struct {
	Tick   uint32
	Index  uint32
	Player model.PlayerID
	Action *action.Action
	// Legacy entries arrived as GAMECMD and are relayed the same way
	Legacy bool
}

func (e Entry) less(o Entry) bool {
	if e.Tick != o.Tick {
		return e.Tick < o.Tick
	}
	return e.Index < o.Index
}

type entryHeap []Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(Entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = Entry{}
	*h = old[:n-1]
	return e
}

// Queue is a sorted multiset of entries. It is owned by the session update
// loop and is not safe for concurrent use.
type Queue struct {
	entries entryHeap
	next    uint32
	logger  *slog.Logger
}

// New creates an empty queue
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger.With(slog.String("component", "queue"))}
}

// Enqueue adds an action with the next command index and returns the entry
func (q *Queue) Enqueue(tick uint32, player model.PlayerID, a *action.Action, legacy bool) Entry {
	e := Entry{Tick: tick, Index: q.next, Player: player, Action: a, Legacy: legacy}
	q.next++
	heap.Push(&q.entries, e)
	return e
}

// Insert adds an entry with a caller-chosen index
func (q *Queue) Insert(e Entry) {
	if e.Index >= q.next {
		q.next = e.Index + 1
	}
	heap.Push(&q.entries, e)
}

// Peek returns the next entry without removing it
func (q *Queue) Peek() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Len returns the number of pending entries
func (q *Queue) Len() int {
	return len(q.entries)
}

// Clear drops every pending entry
func (q *Queue) Clear() {
	q.entries = nil
}

// DrainDue applies entries stamped with the current tick. Entries from an
// earlier tick are dropped with a warning since the moment to apply them has
// passed; draining stops at the first entry from a later tick.
func (q *Queue) DrainDue(current uint32, apply func(Entry)) (applied, stale int) {
	for len(q.entries) > 0 {
		e := q.entries[0]
		if e.Tick > current {
			break
		}
		heap.Pop(&q.entries)
		if e.Tick < current {
			q.logger.Warn("discarding stale action",
				slog.Uint64("action_tick", uint64(e.Tick)),
				slog.Uint64("current_tick", uint64(current)),
				slog.String("action", e.Action.Type().String()),
				slog.Int("player_id", int(e.Player)),
			)
			stale++
			continue
		}
		apply(e)
		applied++
	}
	return applied, stale
}

// DrainAll applies every pending entry in order
func (q *Queue) DrainAll(apply func(Entry)) int {
	n := 0
	for len(q.entries) > 0 {
		e := heap.Pop(&q.entries).(Entry)
		apply(e)
		n++
	}
	return n
}
