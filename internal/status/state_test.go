package status

import (
	"testing"
	"time"

	"github.com/matheus3301/inbox/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Connecting, Live},
		{Connecting, Degraded},
		{Connecting, Disconnected},
		{Live, Degraded},
		{Live, Disconnected},
		{Degraded, Connecting},
		{Degraded, Disconnected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Live); err == nil {
		t.Error("Transition(DISCONNECTED -> LIVE) should fail")
	}

	walkTo(t, m, Live)
	if err := m.Transition(Connecting); err == nil {
		t.Error("Transition(LIVE -> CONNECTING) should fail; a drop goes through DEGRADED")
	}
	if m.Current() != Live {
		t.Errorf("state = %s, want LIVE (should not have changed)", m.Current())
	}
}

func TestSameStateIsNoop(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Disconnected); err != nil {
		t.Fatalf("Transition(DISCONNECTED -> DISCONNECTED) error = %v", err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	before := m.Since()
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindConnState {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindConnState)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %v -> %v, want DISCONNECTED -> CONNECTING", change.From, change.To)
	}
	if m.Since().Before(before) {
		t.Error("Since() should advance on transition")
	}
}

// TestExhaustedRetriesThenResync walks the path taken when every reconnect
// attempt fails and a later poll restarts the dial loop.
func TestExhaustedRetriesThenResync(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Connecting, Degraded, Connecting, Degraded, Disconnected, Connecting, Live}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Live {
		t.Errorf("final state = %s, want LIVE", m.Current())
	}
}

func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		Live:         {Connecting, Live},
		Degraded:     {Connecting, Degraded},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
