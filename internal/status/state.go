package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/rolechat/internal/bus"
)

// State represents a daemon runtime state.
type State string

const (
	Booting  State = "BOOTING"
	Loading  State = "LOADING"
	Ready    State = "READY"
	Stopping State = "STOPPING"
	Stopped  State = "STOPPED"
	Error    State = "ERROR"
)

var validTransitions = map[State][]State{
	Booting:  {Loading, Error},
	Loading:  {Ready, Error},
	Ready:    {Stopping, Error},
	Stopping: {Stopped, Error},
	Stopped:  {},
	Error:    {Stopping, Booting},
}

// Machine tracks the daemon runtime state and rejects illegal jumps.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine creates a machine in the Booting state. b may be nil.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Booting, since: time.Now(), bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition moves to the given state or returns an error if the move is
// not allowed from the current one.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	if !slices.Contains(validTransitions[m.current], to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	change := Change{From: m.current, To: to}
	m.current = to
	m.since = time.Now()
	m.mu.Unlock()

	m.bus.Emit(bus.StatusChanged, change)
	return nil
}

// Change is the payload of daemon.status_changed events.
type Change struct {
	From State
	To   State
}
