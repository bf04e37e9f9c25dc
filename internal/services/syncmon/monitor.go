// Package syncmon compares the local simulation against the fingerprints
// the server broadcasts and latches the first divergence.
package syncmon

import (
	"log/slog"
	"sort"
)

// DefaultHistory bounds the number of pending tick records
const DefaultHistory = 100

// Record is a server-declared fingerprint for one tick
type Record struct {
	Tick        uint32
	Seed        uint32
	Checksum    string
	HasChecksum bool
}

// Divergence describes the first mismatch found
type Divergence struct {
	Tick             uint32
	ExpectedSeed     uint32
	LocalSeed        uint32
	ExpectedChecksum string
	LocalChecksum    string
}

// Monitor keeps a bounded, tick-ordered history of server records
type Monitor struct {
	limit   int
	records []Record // ascending by tick
	logger  *slog.Logger

	desynced   bool
	divergence Divergence
}

// New creates a monitor keeping at most limit records
func New(limit int, logger *slog.Logger) *Monitor {
	if limit <= 0 {
		limit = DefaultHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{limit: limit, logger: logger.With(slog.String("component", "syncmon"))}
}

// Record stores a server fingerprint, replacing any earlier record for the
// same tick and evicting the oldest once the bound is exceeded
func (m *Monitor) Record(r Record) {
	i := sort.Search(len(m.records), func(i int) bool { return m.records[i].Tick >= r.Tick })
	if i < len(m.records) && m.records[i].Tick == r.Tick {
		m.records[i] = r
		return
	}
	m.records = append(m.records, Record{})
	copy(m.records[i+1:], m.records[i:])
	m.records[i] = r

	if len(m.records) > m.limit {
		m.records = m.records[len(m.records)-m.limit:]
	}
}

// Check compares the local state after tick against the server's record for
// that tick. Records up to and including tick are consumed. The checksum
// function is only called when the record carries a checksum. It returns the
// divergence the first time one is found and nil on every later call.
func (m *Monitor) Check(tick, localSeed uint32, checksum func() string) *Divergence {
	i := sort.Search(len(m.records), func(i int) bool { return m.records[i].Tick > tick })
	var rec Record
	found := i > 0 && m.records[i-1].Tick == tick
	if found {
		rec = m.records[i-1]
	}
	m.records = m.records[i:]

	if !found || m.desynced {
		return nil
	}

	d := Divergence{Tick: tick, ExpectedSeed: rec.Seed, LocalSeed: localSeed}
	mismatch := rec.Seed != localSeed
	if !mismatch && rec.HasChecksum {
		d.ExpectedChecksum = rec.Checksum
		d.LocalChecksum = checksum()
		mismatch = d.LocalChecksum != rec.Checksum
	}
	if !mismatch {
		return nil
	}

	m.desynced = true
	m.divergence = d
	m.logger.Warn("desynchronized",
		slog.Uint64("tick", uint64(tick)),
		slog.Uint64("expected_seed", uint64(rec.Seed)),
		slog.Uint64("local_seed", uint64(localSeed)),
		slog.String("expected_checksum", d.ExpectedChecksum),
		slog.String("local_checksum", d.LocalChecksum),
	)
	return &d
}

// Desynchronized reports whether a divergence has been found
func (m *Monitor) Desynchronized() bool {
	return m.desynced
}

// Divergence returns the first mismatch, if any
func (m *Monitor) Divergence() (Divergence, bool) {
	return m.divergence, m.desynced
}

// Pending returns the number of stored records
func (m *Monitor) Pending() int {
	return len(m.records)
}

// Reset forgets all records and clears the desync flag. Used when a new
// world is loaded.
func (m *Monitor) Reset() {
	m.records = nil
	m.desynced = false
	m.divergence = Divergence{}
}
