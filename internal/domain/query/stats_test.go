package query

import (
	"context"
	"testing"
	"time"

	"github.com/floatchat/floatchat/internal/infra/eventbus"
)

func TestCollectorTallies(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()
	c := NewCollector(ctx, bus)

	bus.Publish(eventbus.TopicPipelineResult, Outcome{Pipeline: "sql", Success: true, DurationMS: 120})
	bus.Publish(eventbus.TopicPipelineResult, Outcome{Pipeline: "sql", Success: false, DurationMS: 40})
	bus.Publish(eventbus.TopicPipelineResult, Outcome{Pipeline: "tool", Success: true, DurationMS: 300})

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := c.Snapshot()
		if snap.Queries == 3 {
			if snap.Failures != 1 {
				t.Errorf("failures = %d, want 1", snap.Failures)
			}
			sql := snap.Pipelines["sql"]
			if sql.Total != 2 || sql.Failed != 1 || sql.TotalMS != 160 || sql.SlowestMS != 120 {
				t.Errorf("sql stats = %+v", sql)
			}
			if tool := snap.Pipelines["tool"]; tool.Total != 1 || tool.SlowestMS != 300 {
				t.Errorf("tool stats = %+v", tool)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("collector saw %d events, want 3", snap.Queries)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorIgnoresForeignPayloads(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()
	c := NewCollector(ctx, bus)

	bus.Publish(eventbus.TopicPipelineResult, "not an outcome")
	bus.Publish(eventbus.TopicPipelineResult, Outcome{Pipeline: "sql", Success: true})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if snap := c.Snapshot(); snap.Queries == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("queries = %d, want 1", c.Snapshot().Queries)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
