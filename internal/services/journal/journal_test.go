package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcoot/parksync/internal/dependencies/mocks"
	"github.com/stretchr/testify/suite"
)

type JournalSuite struct {
	suite.Suite
	dir   string
	clock *mocks.MockClock
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalSuite))
}

func (s *JournalSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "logs")
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func (s *JournalSuite) TestWritesTimestampedLines() {
	j, err := Open(s.dir, "chat", s.clock)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.dir, "chat_2024-01-01_12-00-00.txt"), j.Path())

	s.Require().NoError(j.Log("Alice: hello"))
	s.clock.Advance(90 * time.Second)
	s.Require().NoError(j.Log("Bob: two\nlines"))
	s.Require().NoError(j.Close())

	data, err := os.ReadFile(j.Path())
	s.Require().NoError(err)
	s.Equal("[2024/01/01 12:00:00] Alice: hello\n[2024/01/01 12:01:30] Bob: two lines\n", string(data))
}

func (s *JournalSuite) TestOneFilePerSessionStart() {
	a, err := Open(s.dir, "server", s.clock)
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	b, err := Open(s.dir, "server", s.clock)
	s.Require().NoError(err)
	s.NotEqual(a.Path(), b.Path())
	s.NoError(a.Close())
	s.NoError(b.Close())
}

func (s *JournalSuite) TestNilJournalDiscards() {
	var j *Journal
	s.NoError(j.Log("ignored"))
	s.NoError(j.Close())
	s.Empty(j.Path())
}

func (s *JournalSuite) TestOpenFailsOnFileInPlaceOfDir() {
	blocker := filepath.Join(s.T().TempDir(), "blocker")
	s.Require().NoError(os.WriteFile(blocker, nil, 0o644))
	_, err := Open(blocker, "chat", s.clock)
	s.Error(err)
}
