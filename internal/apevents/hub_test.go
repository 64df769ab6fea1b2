package apevents

import "testing"

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe(1, EventProbe)

	h.Publish(Event{Type: EventProbe})
	h.Publish(Event{Type: EventDeauth}) // not subscribed, must not arrive

	select {
	case e := <-ch:
		if e.Type != EventProbe {
			t.Fatalf("got %v, want EventProbe", e.Type)
		}
	default:
		t.Fatal("expected a buffered probe event")
	}

	select {
	case e := <-ch:
		t.Fatalf("unexpected second event %v", e.Type)
	default:
	}
}

func TestHubPublishDropsOnFullBuffer(t *testing.T) {
	h := NewHub()
	_ = h.Subscribe(1, EventProbe)
	h.Publish(Event{Type: EventProbe})
	h.Publish(Event{Type: EventProbe})

	_, dropped := h.Stats()
	if dropped == 0 {
		t.Fatal("expected a dropped event when the buffer is full")
	}
}
