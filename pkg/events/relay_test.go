package events

import (
	"testing"

	"github.com/entrhq/veil/pkg/profile"
)

func TestPublishWithoutObserverDrops(t *testing.T) {
	r := NewRelay()

	delivered := r.Publish(ProfileClosed{ProfileID: "p1"})
	if delivered {
		t.Error("event without an observer must be dropped, not delivered")
	}
}

func TestPublishDeliversExactlyOnce(t *testing.T) {
	r := NewRelay()

	var got []ProfileClosed
	r.Subscribe(func(ev ProfileClosed) { got = append(got, ev) })

	ev := ProfileClosed{
		ProfileID: "p1",
		Cookies:   []profile.Cookie{{Name: "sid", Domain: "example.com"}},
	}
	if !r.Publish(ev) {
		t.Fatal("expected delivery with observer registered")
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(got))
	}
	if got[0].ProfileID != "p1" || len(got[0].Cookies) != 1 {
		t.Errorf("payload mangled: %+v", got[0])
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	r := NewRelay()

	var order []string
	r.Subscribe(func(ev ProfileClosed) { order = append(order, ev.ProfileID) })

	r.Publish(ProfileClosed{ProfileID: "a"})
	r.Publish(ProfileClosed{ProfileID: "b"})
	r.Publish(ProfileClosed{ProfileID: "a"})

	want := []string{"a", "b", "a"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order %v, want %v", order, want)
		}
	}
}

func TestSubscribeReplacesObserver(t *testing.T) {
	r := NewRelay()

	first, second := 0, 0
	r.Subscribe(func(ProfileClosed) { first++ })
	r.Subscribe(func(ProfileClosed) { second++ })

	r.Publish(ProfileClosed{ProfileID: "p1"})
	if first != 0 || second != 1 {
		t.Errorf("expected only the current observer to fire: first=%d second=%d", first, second)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRelay()

	count := 0
	r.Subscribe(func(ProfileClosed) { count++ })
	r.Unsubscribe()

	if r.Publish(ProfileClosed{ProfileID: "p1"}) {
		t.Error("publish after unsubscribe should report dropped")
	}
	if count != 0 {
		t.Errorf("observer fired after unsubscribe: %d", count)
	}
}
