package authbus

import (
	"testing"
)

func TestEmitFanOutInOrder(t *testing.T) {
	b := New(nil)
	var got []int
	b.Subscribe(func(Event) { got = append(got, 1) })
	b.Subscribe(func(Event) { got = append(got, 2) })
	b.Subscribe(func(Event) { got = append(got, 3) })

	b.Emit(KindLogout, nil)

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("want [1 2 3], got %v", got)
	}
}

func TestEmitWithoutSubscribers(t *testing.T) {
	b := New(nil)
	b.Emit(KindLogout, nil) // must not panic
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := New(nil)
	var after bool
	b.Subscribe(func(Event) { panic("boom") })
	b.Subscribe(func(Event) { after = true })

	b.Emit(KindLogout, nil)

	if !after {
		t.Fatal("handler after the panicking one did not run")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	var calls int
	unsub := b.Subscribe(func(Event) { calls++ })

	b.Emit(KindLogout, nil)
	unsub()
	b.Emit(KindLogout, nil)

	if calls != 1 {
		t.Fatalf("want 1 call, got %d", calls)
	}
}

func TestUnsubscribeDuringEmitKeepsSnapshot(t *testing.T) {
	b := New(nil)
	var secondRan bool
	var unsubSecond func()
	b.Subscribe(func(Event) { unsubSecond() })
	unsubSecond = b.Subscribe(func(Event) { secondRan = true })

	b.Emit(KindLogout, nil)

	if !secondRan {
		t.Fatal("handler unsubscribed mid-emit must still receive the in-flight event")
	}

	secondRan = false
	b.Emit(KindLogout, nil)
	if secondRan {
		t.Fatal("unsubscribed handler received a later event")
	}
}

func TestEventPayloadDelivered(t *testing.T) {
	b := New(nil)
	var got Event
	b.Subscribe(func(ev Event) { got = ev })

	b.Emit(KindLogout, "why")

	if got.Kind != KindLogout || got.Payload != "why" {
		t.Fatalf("unexpected event %+v", got)
	}
}
