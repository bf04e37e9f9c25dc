package syncmon

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MonitorSuite struct {
	suite.Suite
	monitor *Monitor
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	s.monitor = New(DefaultHistory, nil)
}

func noChecksum() string {
	panic("checksum should not be computed")
}

func (s *MonitorSuite) TestNoRecordMeansInSync() {
	s.Nil(s.monitor.Check(5, 123, noChecksum))
	s.False(s.monitor.Desynchronized())
}

func (s *MonitorSuite) TestMatchingSeed() {
	s.monitor.Record(Record{Tick: 5, Seed: 42})
	s.Nil(s.monitor.Check(5, 42, noChecksum))
	s.False(s.monitor.Desynchronized())
	s.Zero(s.monitor.Pending())
}

func (s *MonitorSuite) TestSeedMismatchFlagsOnce() {
	s.monitor.Record(Record{Tick: 5, Seed: 42})
	s.monitor.Record(Record{Tick: 6, Seed: 43})
	s.monitor.Record(Record{Tick: 7, Seed: 44})

	d := s.monitor.Check(5, 41, noChecksum)
	s.Require().NotNil(d)
	s.Equal(uint32(5), d.Tick)
	s.Equal(uint32(42), d.ExpectedSeed)
	s.Equal(uint32(41), d.LocalSeed)
	s.True(s.monitor.Desynchronized())

	// Later ticks neither re-flag nor clear the state
	s.Nil(s.monitor.Check(6, 43, noChecksum))
	s.Nil(s.monitor.Check(7, 0, noChecksum))
	s.True(s.monitor.Desynchronized())

	first, ok := s.monitor.Divergence()
	s.True(ok)
	s.Equal(uint32(5), first.Tick)
}

func (s *MonitorSuite) TestChecksumComparedWhenPresent() {
	s.monitor.Record(Record{Tick: 100, Seed: 1, Checksum: "abc", HasChecksum: true})
	called := 0
	d := s.monitor.Check(100, 1, func() string {
		called++
		return "abd"
	})
	s.Equal(1, called)
	s.Require().NotNil(d)
	s.Equal("abc", d.ExpectedChecksum)
	s.Equal("abd", d.LocalChecksum)
}

func (s *MonitorSuite) TestChecksumMatch() {
	s.monitor.Record(Record{Tick: 100, Seed: 1, Checksum: "abc", HasChecksum: true})
	s.Nil(s.monitor.Check(100, 1, func() string { return "abc" }))
	s.False(s.monitor.Desynchronized())
}

func (s *MonitorSuite) TestCheckConsumesOlderRecords() {
	s.monitor.Record(Record{Tick: 3, Seed: 1})
	s.monitor.Record(Record{Tick: 4, Seed: 1})
	s.monitor.Record(Record{Tick: 9, Seed: 1})

	s.Nil(s.monitor.Check(5, 1, noChecksum))
	s.Equal(1, s.monitor.Pending())
}

func (s *MonitorSuite) TestHistoryIsBounded() {
	m := New(3, nil)
	for tick := uint32(1); tick <= 5; tick++ {
		m.Record(Record{Tick: tick, Seed: tick})
	}
	s.Equal(3, m.Pending())

	// Ticks 1 and 2 were evicted, so a wrong seed there goes unnoticed
	s.Nil(m.Check(2, 999, noChecksum))
	s.NotNil(m.Check(3, 999, noChecksum))
}

func (s *MonitorSuite) TestRecordReplacesSameTick() {
	s.monitor.Record(Record{Tick: 8, Seed: 1})
	s.monitor.Record(Record{Tick: 8, Seed: 2})
	s.Equal(1, s.monitor.Pending())
	s.Nil(s.monitor.Check(8, 2, noChecksum))
}

func (s *MonitorSuite) TestReset() {
	s.monitor.Record(Record{Tick: 1, Seed: 1})
	s.NotNil(s.monitor.Check(1, 2, noChecksum))
	s.monitor.Reset()
	s.False(s.monitor.Desynchronized())
	s.Zero(s.monitor.Pending())
}
