// Package limits throttles how often queries may hit letterboxd and keeps
// usage statistics about them.
package limits

import (
	"errors"
	"fmt"
	"ltbxd-scraper/internal/components/assert"
	"ltbxd-scraper/internal/components/chrono"
	"ltbxd-scraper/internal/components/telemetry"
	"math"
	"sync"
	"time"
)

const (
	DEFAULT_MAX_REQUESTS_PER_HOUR = 6
	DEFAULT_MIN_DELAY             = time.Second * 2
)

const (
	report_limits_check = "limits.check"
)

// number of response times the rolling average is computed over
const responseWindow = 10

var (
	ErrTermsNotAcknowledged = errors.New("Terms of use not acknowledged. See console for details.")
	ErrRateLimited          = errors.New("rate limited")
)

type rateLimitError struct {
	message string
}

func (e rateLimitError) Error() string {
	return e.message
}

func (e rateLimitError) Unwrap() error {
	return ErrRateLimited
}

type Config struct {
	// MaxRequestsPerHour defaults to 6.
	MaxRequestsPerHour int
	// MinDelay is the minimum time between the start of two queries, it
	// defaults to 2s. A negative value disables it.
	MinDelay          time.Duration
	TermsAcknowledged bool
}

type Stats struct {
	RequestsLastHour    int
	MaxRequestsPerHour  int
	TotalRequests       int
	AverageResponseTime time.Duration
	ErrorRate           float64
	LastRequest         time.Time
	NextAllowed         time.Time
}

// Tracker implements letterboxd.UsageAPI.
type Tracker struct {
	clock chrono.API
	tel   telemetry.API

	mutex         sync.Mutex
	cfg           Config
	window        []time.Time
	lastRequest   time.Time
	responseTimes []time.Duration
	total         int
	finished      int
	errorRate     float64
}

func NewTracker(cfg Config, clock chrono.API, tel telemetry.API) *Tracker {
	assert.NotNil(clock)
	assert.NotNil(tel)

	if cfg.MaxRequestsPerHour <= 0 {
		cfg.MaxRequestsPerHour = DEFAULT_MAX_REQUESTS_PER_HOUR
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = DEFAULT_MIN_DELAY
	}
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	return &Tracker{
		clock: clock,
		tel:   telemetry.NewScopedAPI("limits", tel),
		cfg:   cfg,
	}
}

// Acknowledge marks the terms of use as accepted.
func (t *Tracker) Acknowledge() {
	t.mutex.Lock()
	t.cfg.TermsAcknowledged = true
	t.mutex.Unlock()
}

// prune drops requests older than an hour, the caller must hold the mutex.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := t.window[:0]
	for _, at := range t.window {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.window = kept
}

func (t *Tracker) nextAllowed(now time.Time) time.Time {
	next := now
	if len(t.window) >= t.cfg.MaxRequestsPerHour {
		next = t.window[len(t.window)-t.cfg.MaxRequestsPerHour].Add(time.Hour)
	}
	if !t.lastRequest.IsZero() {
		delayed := t.lastRequest.Add(t.cfg.MinDelay)
		if delayed.After(next) {
			next = delayed
		}
	}
	return next
}

// check returns why a query may not start at now, the caller must hold the mutex.
func (t *Tracker) check(now time.Time) error {
	if !t.cfg.TermsAcknowledged {
		t.tel.ReportWarning(report_limits_check, ErrTermsNotAcknowledged)
		return ErrTermsNotAcknowledged
	}

	t.prune(now)

	if len(t.window) >= t.cfg.MaxRequestsPerHour {
		err := rateLimitError{
			message: fmt.Sprintf("Rate limit: %d requests per hour", t.cfg.MaxRequestsPerHour),
		}
		t.tel.ReportWarning(report_limits_check, err, len(t.window))
		return err
	}
	if !t.lastRequest.IsZero() {
		wait := t.lastRequest.Add(t.cfg.MinDelay).Sub(now)
		if wait > 0 {
			err := rateLimitError{
				message: fmt.Sprintf(
					"Rate limit: Wait %d seconds before next request",
					int(math.Ceil(wait.Seconds())),
				),
			}
			t.tel.ReportWarning(report_limits_check, err)
			return err
		}
	}
	return nil
}

// Start checks whether a query may start and, if so, records it in the same
// critical section. The returned function must be called once the query is
// done, later calls are ignored.
func (t *Tracker) Start() (func(success bool), error) {
	t.mutex.Lock()
	start := t.clock.Now()
	err := t.check(start)
	if err != nil {
		t.mutex.Unlock()
		return nil, err
	}
	t.window = append(t.window, start)
	t.lastRequest = start
	t.total++
	t.mutex.Unlock()

	var once sync.Once
	return func(success bool) {
		once.Do(func() {
			t.finish(start, success)
		})
	}, nil
}

func (t *Tracker) finish(start time.Time, success bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.responseTimes = append(t.responseTimes, t.clock.Now().Sub(start))
	if len(t.responseTimes) > responseWindow {
		t.responseTimes = t.responseTimes[len(t.responseTimes)-responseWindow:]
	}

	failed := 0.0
	if !success {
		failed = 1
	}
	t.finished++
	n := float64(t.finished)
	t.errorRate = (t.errorRate*(n-1) + failed) / n

	t.tel.ReportDebug("query finished", success, t.responseTimes[len(t.responseTimes)-1].String())
}

func (t *Tracker) Stats() Stats {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	now := t.clock.Now()
	t.prune(now)

	var average time.Duration
	if len(t.responseTimes) > 0 {
		var sum time.Duration
		for _, d := range t.responseTimes {
			sum += d
		}
		average = sum / time.Duration(len(t.responseTimes))
	}

	return Stats{
		RequestsLastHour:    len(t.window),
		MaxRequestsPerHour:  t.cfg.MaxRequestsPerHour,
		TotalRequests:       t.total,
		AverageResponseTime: average,
		ErrorRate:           t.errorRate,
		LastRequest:         t.lastRequest,
		NextAllowed:         t.nextAllowed(now),
	}
}
