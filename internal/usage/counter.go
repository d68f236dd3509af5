// Package usage records every generative call for observability. It is not
// essential to pipeline correctness; losing a sample is acceptable, losing a
// video is not.
package usage

import (
	"log/slog"
	"sync"
	"time"
)

// Kind labels what a generative call produced.
const (
	KindText  = "text"
	KindImage = "image"
	KindVideo = "video"
)

// Stat aggregates calls of one (kind, model) pair.
type Stat struct {
	Kind         string        `json:"kind"`
	Model        string        `json:"model"`
	Calls        int64         `json:"calls"`
	Failures     int64         `json:"failures"`
	TotalLatency time.Duration `json:"totalLatencyNs"`
}

// Counter accumulates generative-call statistics in process memory.
type Counter struct {
	mu    sync.Mutex
	stats map[string]*Stat
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{stats: make(map[string]*Stat)}
}

// Record notes one generative call.
func (c *Counter) Record(kind, model string, ok bool, elapsed time.Duration) {
	c.mu.Lock()
	key := kind + "/" + model
	stat, exists := c.stats[key]
	if !exists {
		stat = &Stat{Kind: kind, Model: model}
		c.stats[key] = stat
	}
	stat.Calls++
	if !ok {
		stat.Failures++
	}
	stat.TotalLatency += elapsed
	c.mu.Unlock()

	slog.Info("generative call",
		"kind", kind, "model", model, "ok", ok,
		"elapsed_ms", elapsed.Milliseconds())
}

// Totals returns a snapshot of all aggregates.
func (c *Counter) Totals() []Stat {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Stat, 0, len(c.stats))
	for _, stat := range c.stats {
		out = append(out, *stat)
	}
	return out
}
