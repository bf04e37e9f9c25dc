package queue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/testutil"
)

type QueueSuite struct {
	suite.Suite
	queue *Queue
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}

func (s *QueueSuite) SetupTest() {
	s.queue = New(nil)
}

func pause() *action.Action {
	return action.New(&action.SetPause{Paused: true})
}

func (s *QueueSuite) collect(drain func(apply func(Entry))) []Entry {
	var out []Entry
	drain(func(e Entry) { out = append(out, e) })
	return out
}

func (s *QueueSuite) TestDrainAllOrdersByTickThenIndex() {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		s.queue.Enqueue(uint32(rng.Intn(20)), 1, pause(), false)
	}

	got := s.collect(func(apply func(Entry)) { s.queue.DrainAll(apply) })
	s.Require().Len(got, 500)
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		s.LessOrEqual(prev.Tick, cur.Tick)
		if prev.Tick == cur.Tick {
			s.Less(prev.Index, cur.Index)
		}
	}
	s.Zero(s.queue.Len())
}

func (s *QueueSuite) TestEqualTicksKeepInsertionOrder() {
	first := s.queue.Enqueue(5, 1, pause(), false)
	second := s.queue.Enqueue(5, 2, pause(), false)
	third := s.queue.Enqueue(5, 3, pause(), true)

	got := s.collect(func(apply func(Entry)) { s.queue.DrainAll(apply) })
	s.Equal([]Entry{first, second, third}, got)
}

func (s *QueueSuite) TestDrainDueStopsAtFutureTick() {
	s.queue.Enqueue(10, 1, pause(), false)
	s.queue.Enqueue(11, 1, pause(), false)

	var applied []Entry
	n, stale := s.queue.DrainDue(10, func(e Entry) { applied = append(applied, e) })
	s.Equal(1, n)
	s.Zero(stale)
	s.Require().Len(applied, 1)
	s.Equal(uint32(10), applied[0].Tick)

	next, ok := s.queue.Peek()
	s.Require().True(ok)
	s.Equal(uint32(11), next.Tick)
}

func (s *QueueSuite) TestDrainDueDiscardsStale() {
	s.queue.Enqueue(3, 1, pause(), false)
	s.queue.Enqueue(4, 1, pause(), false)
	s.queue.Enqueue(7, 1, pause(), false)

	var applied []Entry
	n, stale := s.queue.DrainDue(7, func(e Entry) { applied = append(applied, e) })
	s.Equal(1, n)
	s.Equal(2, stale)
	s.Require().Len(applied, 1)
	s.Equal(uint32(7), applied[0].Tick)
	s.Zero(s.queue.Len())
}

func (s *QueueSuite) TestStaleDiscardIsLogged() {
	logger, logs := testutil.CaptureLogger()
	q := New(logger)
	q.Enqueue(3, 2, pause(), false)
	q.DrainDue(5, func(Entry) {})

	s.True(logs.Contains(`"msg":"discarding stale action"`))
	s.True(logs.Contains(`"action_tick":3`))
	s.True(logs.Contains(`"current_tick":5`))
	s.True(logs.Contains(`"player_id":2`))
}

func (s *QueueSuite) TestStaleNeverApplied() {
	s.queue.Enqueue(1, 1, pause(), false)
	called := false
	s.queue.DrainDue(2, func(Entry) { called = true })
	s.False(called)
	s.Zero(s.queue.Len())
}

func (s *QueueSuite) TestInsertAdvancesIndex() {
	s.queue.Insert(Entry{Tick: 1, Index: 41, Action: pause()})
	e := s.queue.Enqueue(1, 1, pause(), false)
	s.Equal(uint32(42), e.Index)
}

func (s *QueueSuite) TestClear() {
	s.queue.Enqueue(1, 1, pause(), false)
	s.queue.Clear()
	s.Zero(s.queue.Len())
	_, ok := s.queue.Peek()
	s.False(ok)
}
