package event

import (
	"testing"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()

	called := false
	id := bus.Subscribe(TypeCaptureStarted, func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_PublishRoutesByType(t *testing.T) {
	bus := NewBus()

	var saved []string
	bus.Subscribe(TypeCaptureSaved, func(e Event) {
		saved = append(saved, e.(CaptureSavedEvent).Path)
	})
	copied := 0
	bus.Subscribe(TypeCaptureCopied, func(e Event) {
		copied++
	})

	bus.Publish(NewCaptureSavedEvent("/tmp/a.png"))
	bus.Publish(NewCaptureSavedEvent("/tmp/b.png"))

	if len(saved) != 2 || saved[1] != "/tmp/b.png" {
		t.Errorf("unexpected saved paths %v", saved)
	}
	if copied != 0 {
		t.Errorf("copied handler should not fire, got %d", copied)
	}
}

func TestBus_WildcardAfterSpecific(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeSessionEnd, func(e Event) { order = append(order, "specific") })

	bus.Publish(NewSessionEndEvent("s1", "cancelled"))

	if len(order) != 2 || order[0] != "specific" || order[1] != "all" {
		t.Errorf("unexpected dispatch order %v", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe(TypeCaptureError, func(e Event) { count++ })
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should report false")
	}

	bus.Publish(NewCaptureErrorEvent("boom"))
	if count != 0 {
		t.Errorf("handler called %d times after unsubscribe", count)
	}
}

func TestBus_PanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	reached := false
	bus.Subscribe(TypeCaptureStarted, func(e Event) { panic("handler bug") })
	bus.Subscribe(TypeCaptureStarted, func(e Event) { reached = true })

	bus.Publish(NewCaptureStartedEvent(0))

	if !reached {
		t.Error("second handler should still run after a panic")
	}
}

func TestBus_Channel(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Channel(2)
	bus.Publish(NewSessionStartEvent("s1"))
	bus.Publish(NewImageDataEvent("data:image/png;base64,AAAA", "s1"))
	// Buffer is full; this one is dropped rather than blocking.
	bus.Publish(NewSessionEndEvent("s1", "saved"))

	first := <-ch
	if first.EventType() != TypeSessionStart {
		t.Errorf("first event = %s", first.EventType())
	}
	second := <-ch
	img, ok := second.(ImageDataEvent)
	if !ok || img.SessionID != "s1" {
		t.Errorf("unexpected second event %#v", second)
	}

	cancel()
	cancel()
	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("expected no subscriptions, got %d", bus.SubscriptionCount())
	}
}
