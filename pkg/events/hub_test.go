package events

import "testing"

func TestPublishDeliversToSubscribers(t *testing.T) {
	h := NewHub()
	a, b := h.Subscribe(), h.Subscribe()

	h.Publish(TaskProgress, TaskProgressEvent{Task: "Evaluation", Percent: 40})

	for _, ch := range []chan Event{a, b} {
		ev := <-ch
		if ev.Name != TaskProgress {
			t.Fatalf("name = %q", ev.Name)
		}
		p, err := DecodeAs[TaskProgressEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if p.Percent != 40 || p.Task != "Evaluation" {
			t.Fatalf("payload = %+v", p)
		}
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < 100; i++ {
		h.Publish(TaskProgress, TaskProgressEvent{Percent: i})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected a full buffer, got %d/%d", len(ch), cap(ch))
	}
	if got, want := h.Dropped(), uint64(100-cap(ch)); got != want {
		t.Fatalf("dropped = %d, want %d", got, want)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
}

func TestNilHubDrops(t *testing.T) {
	var h *Hub
	h.Publish(TaskState, TaskStateEvent{})
}

func TestDecodeEmpty(t *testing.T) {
	v, err := DecodeAs[TaskStateEvent](Event{Name: TaskState})
	if err != nil || v != (TaskStateEvent{}) {
		t.Fatalf("got %+v, %v", v, err)
	}
}
