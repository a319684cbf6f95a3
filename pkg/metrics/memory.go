package metrics

import (
	"sort"
	"sync"
	"time"
)

// Counts is a per-predicate snapshot.
type Counts struct {
	Predicate string        `json:"predicate"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Total     time.Duration `json:"total_duration_ns"`
}

// InMemoryMetrics keeps counters in process memory. It is safe
// for concurrent use.
type InMemoryMetrics struct {
	mu     sync.Mutex
	counts map[string]*Counts
	misses map[string]int
}

// NewInMemoryMetrics creates an empty InMemoryMetrics.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counts: make(map[string]*Counts),
		misses: make(map[string]int),
	}
}

func (m *InMemoryMetrics) RecordEvaluation(
	predicate string, passed bool, duration time.Duration,
) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counts[predicate]
	if !ok {
		c = &Counts{Predicate: predicate}
		m.counts[predicate] = c
	}
	if passed {
		c.Passed++
	} else {
		c.Failed++
	}
	c.Total += duration
}

func (m *InMemoryMetrics) RecordMiss(predicate string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses[predicate]++
}

// Evaluations returns the number of evaluations recorded for a
// predicate.
func (m *InMemoryMetrics) Evaluations(predicate string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counts[predicate]
	if !ok {
		return 0
	}
	return c.Passed + c.Failed
}

// Misses returns how often an unknown name was requested.
func (m *InMemoryMetrics) Misses(predicate string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misses[predicate]
}

// Snapshot returns per-predicate counts sorted by name.
func (m *InMemoryMetrics) Snapshot() []Counts {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Counts, 0, len(m.counts))
	for _, c := range m.counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Predicate < out[j].Predicate
	})
	return out
}
