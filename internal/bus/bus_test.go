package bus

import (
	"log/slog"
	"testing"
)

func TestEmitDispatchesInSubscriptionOrder(t *testing.T) {
	b := New(slog.Default())

	var got []string
	b.On("x", func(any) { got = append(got, "first") })
	b.On("x", func(any) { got = append(got, "second") })
	b.On("y", func(any) { got = append(got, "other") })

	b.Emit("x", nil)

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("dispatch order = %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New(nil)

	calls := 0
	off := b.On("x", func(any) { calls++ })
	b.Emit("x", nil)
	off()
	off() // double unsubscribe is safe
	b.Emit("x", nil)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	b := New(nil)

	survived := false
	b.On("x", func(any) { panic("boom") })
	b.On("x", func(any) { survived = true })

	b.Emit("x", nil)

	if !survived {
		t.Fatal("panic in one handler must not stop dispatch")
	}
}

func TestPayloadDelivered(t *testing.T) {
	b := New(nil)

	var got any
	b.On("x", func(p any) { got = p })
	b.Emit("x", 42)

	if got != 42 {
		t.Fatalf("payload = %v, want 42", got)
	}
}

func TestEmitWithNoSubscribers(t *testing.T) {
	b := New(nil)
	b.Emit("nobody", "ignored") // must not panic
}
