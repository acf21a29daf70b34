package query

import (
	"context"
	"sync"

	"github.com/floatchat/floatchat/internal/infra/eventbus"
)

// Outcome is the event payload published per answered question.
type Outcome struct {
	Pipeline   string `json:"pipeline"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
}

// PipelineStats are the running tallies for one execution path.
type PipelineStats struct {
	Total     int64 `json:"total"`
	Failed    int64 `json:"failed"`
	TotalMS   int64 `json:"total_ms"`
	SlowestMS int64 `json:"slowest_ms"`
}

// StatsSnapshot is the collector's read-only view for the stats endpoint.
type StatsSnapshot struct {
	Queries   int64                    `json:"queries"`
	Failures  int64                    `json:"failures"`
	Pipelines map[string]PipelineStats `json:"pipelines"`
}

// Collector subscribes to pipeline outcome events and keeps tallies.
type Collector struct {
	mu        sync.Mutex
	queries   int64
	failures  int64
	pipelines map[string]PipelineStats
}

// NewCollector starts a Collector consuming from the bus until ctx ends.
func NewCollector(ctx context.Context, bus *eventbus.Bus) *Collector {
	c := &Collector{pipelines: make(map[string]PipelineStats)}
	events := bus.Subscribe(eventbus.TopicPipelineResult)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				if outcome, ok := evt.Payload.(Outcome); ok {
					c.record(outcome)
				}
			}
		}
	}()
	return c
}

func (c *Collector) record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries++
	if !o.Success {
		c.failures++
	}
	p := c.pipelines[o.Pipeline]
	p.Total++
	if !o.Success {
		p.Failed++
	}
	p.TotalMS += o.DurationMS
	if o.DurationMS > p.SlowestMS {
		p.SlowestMS = o.DurationMS
	}
	c.pipelines[o.Pipeline] = p
}

// Snapshot returns a copy of the current tallies.
func (c *Collector) Snapshot() StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := StatsSnapshot{
		Queries:   c.queries,
		Failures:  c.failures,
		Pipelines: make(map[string]PipelineStats, len(c.pipelines)),
	}
	for k, v := range c.pipelines {
		out.Pipelines[k] = v
	}
	return out
}
