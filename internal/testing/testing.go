// package testing contains shared testing utilities
package testing

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/wavecast/wavecast/internal/session"
)

// MemoryStorage is an in-memory test double for [session.Storage].
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte

	// FailWrite makes Write return an error when set.
	FailWrite bool
}

func (m *MemoryStorage) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, session.ErrNoRecord
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryStorage) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite {
		return errors.New("write failed")
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *MemoryStorage) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data != nil
}

// Seed stores raw bytes directly, bypassing Write failure simulation.
func (m *MemoryStorage) Seed(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Clock is a controllable clock for expiry tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error

	// Requests records every request seen, in order.
	Requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, r)
	return m.response, m.err
}
