package browser

import (
	"context"
	"log/slog"
	"testing"

	"github.com/hazyhaar/domedit/internal/dom"
)

func newBareSurface() *Surface {
	ctx, cancel := context.WithCancel(context.Background())
	return &Surface{
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan dom.Event, 4),
	}
}

func TestDispatch_MapsBindingPayloads(t *testing.T) {
	tests := []struct {
		payload string
		want    dom.EventKind
	}{
		{`{"kind":"hover","tag":"el_a","node_name":"span"}`, dom.EventHover},
		{`{"kind":"pick","tag":"el_a","selector":"span#el_a"}`, dom.EventPick},
		{`{"kind":"scroll"}`, dom.EventScroll},
		{`{"kind":"resize"}`, dom.EventResize},
		{`{"kind":"mutation"}`, dom.EventMutation},
	}

	s := newBareSurface()
	for _, tt := range tests {
		s.dispatch(tt.payload)
		select {
		case ev := <-s.events:
			if ev.Kind != tt.want {
				t.Errorf("payload %s: kind = %v, want %v", tt.payload, ev.Kind, tt.want)
			}
		default:
			t.Errorf("payload %s: no event forwarded", tt.payload)
		}
	}
}

func TestDispatch_DropsUnknownAndMalformed(t *testing.T) {
	s := newBareSurface()
	s.dispatch(`{"kind":"navigate"}`)
	s.dispatch(`not json`)
	select {
	case ev := <-s.events:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestDispatch_DropsWhenChannelFull(t *testing.T) {
	s := newBareSurface()
	for i := 0; i < cap(s.events)+3; i++ {
		s.dispatch(`{"kind":"scroll"}`)
	}
	if n := len(s.events); n != cap(s.events) {
		t.Fatalf("buffered = %d, want %d", n, cap(s.events))
	}
}

// Close must leave the events channel open: the binding listener is the
// sole sender and owner, and a callback in flight during Close would
// otherwise send on a closed channel and panic the process.
func TestClose_LeavesEventsChannelToSender(t *testing.T) {
	s := newBareSurface()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s.dispatch(`{"kind":"scroll"}`)

	select {
	case ev, ok := <-s.events:
		if !ok {
			t.Fatal("events channel closed by Close; only the listener may close it")
		}
		if ev.Kind != dom.EventScroll {
			t.Fatalf("kind = %v, want scroll", ev.Kind)
		}
	default:
		t.Fatal("event dropped after Close")
	}

	select {
	case <-s.ctx.Done():
	default:
		t.Fatal("Close must cancel the surface context")
	}
}
