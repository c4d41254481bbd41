package limits

import (
	"ltbxd-scraper/internal/components/chrono"
	"ltbxd-scraper/internal/components/telemetry"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, cfg Config) (*Tracker, *chrono.ManualClock) {
	clock := chrono.NewManualClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewTracker(cfg, clock, telemetry.NewTestingAPI(t)), clock
}

func mustStart(t *testing.T, tracker *Tracker) func(bool) {
	finish, err := tracker.Start()
	require.NoError(t, err)
	return finish
}

func TestTermsGate(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{})
	finish, err := tracker.Start()
	require.ErrorIs(t, err, ErrTermsNotAcknowledged)
	require.Nil(t, finish)
	require.Zero(t, tracker.Stats().TotalRequests)

	tracker.Acknowledge()
	mustStart(t, tracker)(true)
	require.Equal(t, 1, tracker.Stats().TotalRequests)
}

func TestMinDelay(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{TermsAcknowledged: true})

	mustStart(t, tracker)(true)
	clock.Advance(500 * time.Millisecond)

	_, err := tracker.Start()
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, "Rate limit: Wait 2 seconds before next request", err.Error())

	clock.Advance(time.Second)
	_, err = tracker.Start()
	require.Equal(t, "Rate limit: Wait 1 seconds before next request", err.Error())

	clock.Advance(500 * time.Millisecond)
	mustStart(t, tracker)(true)
	require.Equal(t, 2, tracker.Stats().TotalRequests)
}

func TestHourlyWindow(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{
		TermsAcknowledged:  true,
		MaxRequestsPerHour: 3,
		MinDelay:           -1,
	})

	for i := 0; i < 3; i++ {
		mustStart(t, tracker)(true)
		clock.Advance(10 * time.Minute)
	}

	_, err := tracker.Start()
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, "Rate limit: 3 requests per hour", err.Error())

	stats := tracker.Stats()
	require.Equal(t, 3, stats.RequestsLastHour)
	require.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), stats.NextAllowed)

	// the first request leaves the window after an hour
	clock.Advance(30*time.Minute + time.Second)
	mustStart(t, tracker)(true)
	require.Equal(t, 3, tracker.Stats().RequestsLastHour)
}

func TestOverlappingQueriesShareTheQuota(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{
		TermsAcknowledged:  true,
		MaxRequestsPerHour: 1,
		MinDelay:           -1,
	})

	finishA, errA := tracker.Start()
	finishB, errB := tracker.Start()
	require.NoError(t, errA)
	require.ErrorIs(t, errB, ErrRateLimited)
	require.Nil(t, finishB)
	finishA(true)

	require.Equal(t, 1, tracker.Stats().RequestsLastHour)
}

func TestConcurrentStartsNeverExceedQuota(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{
		TermsAcknowledged:  true,
		MaxRequestsPerHour: 4,
		MinDelay:           -1,
	})

	var wg sync.WaitGroup
	var mutex sync.Mutex
	allowed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			finish, err := tracker.Start()
			if err != nil {
				return
			}
			mutex.Lock()
			allowed++
			mutex.Unlock()
			finish(true)
		}()
	}
	wg.Wait()

	require.Equal(t, 4, allowed)
	require.Equal(t, 4, tracker.Stats().RequestsLastHour)
}

func TestErrorRateWithOverlappingQueries(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{TermsAcknowledged: true, MinDelay: -1})

	finishA := mustStart(t, tracker)
	finishB := mustStart(t, tracker)
	finishA(false)
	require.InDelta(t, 1.0, tracker.Stats().ErrorRate, 1e-9)
	finishB(true)
	require.InDelta(t, 0.5, tracker.Stats().ErrorRate, 1e-9)
}

func TestStats(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{
		TermsAcknowledged:  true,
		MaxRequestsPerHour: 20,
		MinDelay:           -1,
	})

	for i := 1; i <= 12; i++ {
		finish := mustStart(t, tracker)
		clock.Advance(time.Duration(i) * time.Second)
		finish(i%4 != 0)
		finish(false)
	}

	stats := tracker.Stats()
	require.Equal(t, 12, stats.TotalRequests)
	require.Equal(t, 20, stats.MaxRequestsPerHour)
	// only the last 10 response times (3s through 12s) are averaged
	require.Equal(t, 7500*time.Millisecond, stats.AverageResponseTime)
	require.InDelta(t, 0.25, stats.ErrorRate, 1e-9)
	require.Equal(t, clock.Now().Add(-12*time.Second), stats.LastRequest)
}
