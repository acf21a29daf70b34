package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	bus := New()
	ch := bus.Subscribe(TopicPipelineResult)

	bus.Publish(TopicPipelineResult, "ok")

	select {
	case evt := <-ch:
		if evt.Topic != TopicPipelineResult {
			t.Errorf("topic = %q, want %q", evt.Topic, TopicPipelineResult)
		}
		if evt.Payload != "ok" {
			t.Errorf("payload = %v, want %q", evt.Payload, "ok")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	ch1 := bus.Subscribe("stats")
	ch2 := bus.Subscribe("stats")

	bus.Publish("stats", 42)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d: payload = %v, want 42", i, evt.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	// Must not block or panic.
	bus.Publish("nobody-listening", "hello")
}

func TestPublishFullBufferDrops(t *testing.T) {
	t.Parallel()

	bus := New()
	ch := bus.Subscribe("flood")

	// Fill the buffer without a consumer, then publish one more.
	for i := 0; i < defaultBufferSize+10; i++ {
		bus.Publish("flood", i)
	}

	// Drain: we should get exactly defaultBufferSize events.
	got := 0
	for {
		select {
		case <-ch:
			got++
		default:
			if got != defaultBufferSize {
				t.Errorf("delivered %d events, want %d", got, defaultBufferSize)
			}
			return
		}
	}
}

func TestTopicIsolation(t *testing.T) {
	t.Parallel()

	bus := New()
	chA := bus.Subscribe("a")
	bus.Subscribe("b")

	bus.Publish("b", "for-b")

	select {
	case evt := <-chA:
		t.Errorf("subscriber on %q received event for %q: %v", "a", "b", evt.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}
