package ipwindow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/testutil"
)

type IPWindowStoreSuite struct {
	suite.Suite
	store  *InMemoryIPWindowStore
	ctx    context.Context
	now    time.Time
	window time.Duration
}

func TestIPWindowStoreSuite(t *testing.T) {
	suite.Run(t, new(IPWindowStoreSuite))
}

func (s *IPWindowStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.window = 15 * time.Minute
}

func (s *IPWindowStoreSuite) admit(ip string, at time.Time) bool {
	ok, _, err := s.store.Admit(s.ctx, ip, 10, at.Add(-s.window), at)
	s.Require().NoError(err)
	return ok
}

func (s *IPWindowStoreSuite) TestBoundary() {
	for i := range 10 {
		s.True(s.admit("203.0.113.5", s.now.Add(time.Duration(i)*time.Second)), "attempt %d", i+1)
	}
	s.False(s.admit("203.0.113.5", s.now.Add(10*time.Second)), "11th attempt")
	s.True(s.admit("203.0.113.6", s.now), "other addresses are unaffected")
}

func (s *IPWindowStoreSuite) TestRejectedAttemptIsNotRecorded() {
	for i := range 10 {
		s.admit("198.51.100.1", s.now.Add(time.Duration(i)*time.Minute))
	}
	for range 5 {
		s.False(s.admit("198.51.100.1", s.now.Add(10*time.Minute)))
	}

	// The first attempt leaves the window just after 15m; had rejections
	// been recorded the address would still be full.
	s.True(s.admit("198.51.100.1", s.now.Add(15*time.Minute+time.Second)))
}

func (s *IPWindowStoreSuite) TestOldestInWindow() {
	s.admit("192.0.2.1", s.now)
	s.admit("192.0.2.1", s.now.Add(time.Minute))

	_, oldest, err := s.store.Admit(s.ctx, "192.0.2.1", 2, s.now.Add(2*time.Minute-s.window), s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(s.now, oldest)
}

func (s *IPWindowStoreSuite) TestConcurrentAdmitHonoursLimit() {
	res := testutil.RunConcurrent(50, func(int) error {
		ok, _, err := s.store.Admit(s.ctx, "203.0.113.99", 10, s.now.Add(-s.window), s.now)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeTooManyRequests, "throttled")
		}
		return nil
	})

	s.Equal(int32(10), res.Successes)
	s.Equal(int32(40), res.Throttled)
}

func (s *IPWindowStoreSuite) TestSweep() {
	s.admit("192.0.2.10", s.now.Add(-2*time.Hour))
	s.admit("192.0.2.11", s.now)

	evicted, err := s.store.Sweep(s.ctx, s.now.Add(-time.Hour))
	s.NoError(err)
	s.Equal(1, evicted)
}
