// v1
// internal/metrics/metrics.go

// Package metrics keeps in-process counters for the fleet and renders a
// plain-text exposition for the /metrics endpoint.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

type counter struct {
	mu    sync.Mutex
	value uint64
}

func (c *counter) Inc() {
	c.mu.Lock()
	c.value++
	c.mu.Unlock()
}

func (c *counter) snapshot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type counterVec struct {
	mu     sync.RWMutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (c *counterVec) Inc(label string) {
	c.mu.Lock()
	c.values[label]++
	c.mu.Unlock()
}

func (c *counterVec) snapshot() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Registry holds the fleet-wide counters. The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	RecordsAppended *counter
	MissionsStarted *counter
	WasteItems      *counter
	PublishFailures *counter
	MissionsByRiver *counterVec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		RecordsAppended: &counter{},
		MissionsStarted: &counter{},
		WasteItems:      &counter{},
		PublishFailures: &counter{},
		MissionsByRiver: newCounterVec(),
	}
}

// WriteText renders all counters, one metric per line, labels sorted so
// the output is stable.
func (r *Registry) WriteText(w io.Writer) {
	fmt.Fprintf(w, "aquafleet_records_appended_total %d\n", r.RecordsAppended.snapshot())
	fmt.Fprintf(w, "aquafleet_missions_started_total %d\n", r.MissionsStarted.snapshot())
	fmt.Fprintf(w, "aquafleet_waste_items_total %d\n", r.WasteItems.snapshot())
	fmt.Fprintf(w, "aquafleet_publish_failures_total %d\n", r.PublishFailures.snapshot())

	byRiver := r.MissionsByRiver.snapshot()
	keys := make([]string, 0, len(byRiver))
	for k := range byRiver {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "aquafleet_missions_started_total{river=%q} %d\n", k, byRiver[k])
	}
}
