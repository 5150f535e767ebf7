// Package testutil provides fixtures for listing, cache and client tests.
package testutil

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/tree"
)

// ActiveLock is a serializable property value with two attributes and one
// text child.
type ActiveLock struct {
	Owner string
}

// WriteTree implements tree.Serializable.
func (l ActiveLock) WriteTree(w *tree.Writer) error {
	if err := w.StartElement("{DAV:}activelock"); err != nil {
		return err
	}
	if err := w.WriteAttribute("depth", "infinity"); err != nil {
		return err
	}
	if err := w.WriteAttribute("scope", "exclusive"); err != nil {
		return err
	}
	if err := w.WriteText(l.Owner); err != nil {
		return err
	}
	return w.EndElement()
}

// Collection is the resourcetype value of a collection.
type Collection struct{}

// WriteTree implements tree.Serializable.
func (Collection) WriteTree(w *tree.Writer) error {
	return w.WriteElement("{DAV:}collection", nil)
}

// NewResources builds n resources under /files/. Every tenth resource is a
// collection, every resource carries a missing quota property.
func NewResources(n int) []dav.Resource {
	out := make([]dav.Resource, n)
	for i := range out {
		var resourceType any
		if i%10 == 0 {
			resourceType = Collection{}
		}
		out[i] = dav.Resource{
			Href: fmt.Sprintf("/files/item-%04d", i),
			Propstat: map[int]map[string]any{
				200: {
					"displayname":      fmt.Sprintf("item-%04d", i),
					"getcontentlength": i * 1024,
					"resourcetype":     resourceType,
				},
				404: {
					"quota-available-bytes": nil,
				},
			},
		}
	}
	return out
}

// MockLister serves a fixed set of resources and counts enumerations.
type MockLister struct {
	mu        sync.Mutex
	resources []dav.Resource
	listCount int
	yielded   int

	// FailAt makes the sequence fail with Err after FailAt resources (0 disables).
	FailAt int
	Err    error
}

// NewMockLister creates a lister over resources.
func NewMockLister(resources []dav.Resource) *MockLister {
	return &MockLister{resources: resources}
}

// List implements dav.Lister.
func (m *MockLister) List(ctx context.Context, r *http.Request) (iter.Seq2[dav.Resource, error], error) {
	m.mu.Lock()
	m.listCount++
	m.mu.Unlock()

	return func(yield func(dav.Resource, error) bool) {
		for i, res := range m.resources {
			if m.FailAt > 0 && i == m.FailAt {
				yield(dav.Resource{}, m.Err)
				return
			}
			m.mu.Lock()
			m.yielded++
			m.mu.Unlock()
			if !yield(res, nil) {
				return
			}
		}
	}, nil
}

// ListCount returns how many times List was called.
func (m *MockLister) ListCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCount
}

// Yielded returns how many resources were produced across all enumerations.
func (m *MockLister) Yielded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.yielded
}

// Reset clears the counters.
func (m *MockLister) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCount = 0
	m.yielded = 0
}

// FakeClock is a settable clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock frozen at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialTokens hands out predictable 32-character tokens.
type SequentialTokens struct {
	mu sync.Mutex
	n  int
}

// Token implements cache.TokenSource.
func (s *SequentialTokens) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("token%027d", s.n), nil
}
