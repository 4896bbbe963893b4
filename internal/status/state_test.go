package status

import (
	"testing"
	"time"

	"github.com/matheus3301/rolechat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestLifecycle(t *testing.T) {
	m := NewMachine(nil)
	for _, s := range []State{Loading, Ready, Stopping, Stopped} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if err := m.Transition(Booting); err == nil {
		t.Error("STOPPED should be terminal")
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail; loading comes first")
	}
	if m.Current() != Booting {
		t.Errorf("state = %s, want BOOTING (unchanged)", m.Current())
	}
}

func TestLoadFailureCanShutDown(t *testing.T) {
	m := NewMachine(nil)
	_ = m.Transition(Loading)
	if err := m.Transition(Error); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(Stopping); err != nil {
		t.Fatalf("ERROR -> STOPPING: %v", err)
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("daemon.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Loading); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(Change)
		if !ok {
			t.Fatalf("payload type = %T, want Change", evt.Payload)
		}
		if change.From != Booting || change.To != Loading {
			t.Errorf("change = %v -> %v, want BOOTING -> LOADING", change.From, change.To)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
}
