package telemetry

import (
	"fmt"
	"sync"
	"testing"
)

// TestingAPI implements API by logging everything to a testing.TB, it also
// keeps the ids of every broken component and warning so tests can assert on them.
type TestingAPI struct {
	t testing.TB

	mutex    sync.Mutex
	broken   []string
	warnings []string
	counts   map[string]int64
}

func NewTestingAPI(t testing.TB) *TestingAPI {
	return &TestingAPI{t: t, counts: map[string]int64{}}
}

func (a *TestingAPI) ReportBroken(id string, params ...any) {
	a.mutex.Lock()
	a.broken = append(a.broken, id)
	a.mutex.Unlock()
	a.t.Log("BROKEN", id, fmt.Sprint(params...))
}

func (a *TestingAPI) ReportWarning(id string, params ...any) {
	a.mutex.Lock()
	a.warnings = append(a.warnings, id)
	a.mutex.Unlock()
	a.t.Log("WARN", id, fmt.Sprint(params...))
}

func (a *TestingAPI) ReportDebug(msg string, params ...any) {
	a.t.Log("DEBUG", msg, fmt.Sprint(params...))
}

func (a *TestingAPI) ReportCount(id string, count int64) {
	a.mutex.Lock()
	a.counts[id] = count
	a.mutex.Unlock()
}

// Broken returns the ids passed to ReportBroken so far.
func (a *TestingAPI) Broken() []string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]string(nil), a.broken...)
}

// Warnings returns the ids passed to ReportWarning so far.
func (a *TestingAPI) Warnings() []string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]string(nil), a.warnings...)
}

// Count returns the last count reported under id.
func (a *TestingAPI) Count(id string) int64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.counts[id]
}
