package monitor

import (
	"sort"
	"sync"
	"time"

	"digital.vasic.predicates/pkg/predicate"
)

// DefaultEventLimit is the number of recent events kept in
// memory when no limit is given.
const DefaultEventLimit = 1024

// EventCollector captures evaluation events and aggregate
// statistics. It implements predicate.Observer.
type EventCollector struct {
	mu       sync.RWMutex
	events   []Event
	limit    int
	handlers []func(Event)
	stats    CollectorStats
	counts   map[string]*PredicateStats
}

// CollectorStats holds aggregate statistics.
type CollectorStats struct {
	Total      int              `json:"total"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	Misses     int              `json:"misses"`
	StartTime  time.Time        `json:"start_time"`
	Uptime     string           `json:"uptime"`
	Predicates []PredicateStats `json:"predicates"`
}

// PredicateStats counts outcomes for one predicate name.
type PredicateStats struct {
	Name   string `json:"name"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
	Misses int    `json:"misses"`
}

var _ predicate.Observer = (*EventCollector)(nil)

// NewEventCollector creates a collector that retains at most
// limit recent events. A limit of zero or less means
// DefaultEventLimit.
func NewEventCollector(limit int) *EventCollector {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	return &EventCollector{
		events: make([]Event, 0, 64),
		limit:  limit,
		stats:  CollectorStats{StartTime: time.Now()},
		counts: make(map[string]*PredicateStats),
	}
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Observe records an evaluation result.
func (c *EventCollector) Observe(r predicate.Result) {
	c.Emit(EventFromResult(r))
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	if len(c.events) == c.limit {
		copy(c.events, c.events[1:])
		c.events = c.events[:len(c.events)-1]
	}
	c.events = append(c.events, event)

	ps, ok := c.counts[event.Predicate]
	if !ok {
		ps = &PredicateStats{Name: event.Predicate}
		c.counts[event.Predicate] = ps
	}
	c.stats.Total++
	switch {
	case event.Type == EventMiss:
		c.stats.Misses++
		ps.Misses++
	case event.Passed:
		c.stats.Passed++
		ps.Passed++
	default:
		c.stats.Failed++
		ps.Failed++
	}
	handlers := make([]func(Event), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Events returns a copy of the retained events, oldest first.
func (c *EventCollector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Event, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics with
// per-predicate counts sorted by name.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Uptime = time.Since(s.StartTime).Round(time.Millisecond).String()
	s.Predicates = make([]PredicateStats, 0, len(c.counts))
	for _, ps := range c.counts {
		s.Predicates = append(s.Predicates, *ps)
	}
	sort.Slice(s.Predicates, func(i, j int) bool {
		return s.Predicates[i].Name < s.Predicates[j].Name
	})
	return s
}

// Reset clears all collected events and statistics. Handlers
// stay registered.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
	c.counts = make(map[string]*PredicateStats)
}
