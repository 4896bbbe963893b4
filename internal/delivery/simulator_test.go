package delivery

import (
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/role"
	"go.uber.org/zap"
)

type countingMarker struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (c *countingMarker) MarkRead(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[int64]int)
	}
	c.calls[id]++
	return true
}

func (c *countingMarker) count(id int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduleFiresOnce(t *testing.T) {
	m := &countingMarker{}
	s := NewSimulator(m, 10*time.Millisecond, zap.NewNop())

	s.Schedule(7)
	waitFor(t, func() bool { return m.count(7) == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := m.count(7); got != 1 {
		t.Errorf("MarkRead(7) called %d times, want 1", got)
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", s.Pending())
	}
}

func TestCancelPreventsFire(t *testing.T) {
	m := &countingMarker{}
	s := NewSimulator(m, 20*time.Millisecond, zap.NewNop())

	s.Schedule(1)
	s.Cancel(1)
	s.Cancel(1)
	time.Sleep(60 * time.Millisecond)
	if got := m.count(1); got != 0 {
		t.Errorf("cancelled timer fired %d times", got)
	}
}

func TestRescheduleReplaces(t *testing.T) {
	m := &countingMarker{}
	s := NewSimulator(m, 15*time.Millisecond, zap.NewNop())

	s.Schedule(3)
	s.Schedule(3)
	waitFor(t, func() bool { return m.count(3) >= 1 })
	time.Sleep(40 * time.Millisecond)
	if got := m.count(3); got != 1 {
		t.Errorf("MarkRead(3) called %d times, want 1", got)
	}
}

func TestStopCancelsAll(t *testing.T) {
	m := &countingMarker{}
	s := NewSimulator(m, 20*time.Millisecond, zap.NewNop())

	s.Schedule(1)
	s.Schedule(2)
	s.Stop()
	s.Schedule(3)
	time.Sleep(60 * time.Millisecond)
	for _, id := range []int64{1, 2, 3} {
		if got := m.count(id); got != 0 {
			t.Errorf("MarkRead(%d) called after Stop", id)
		}
	}
}

// TestReceiptTargetsOnlyItsMessage checks that a receipt is keyed by id:
// a message appended after the timer was armed stays unread.
func TestReceiptTargetsOnlyItsMessage(t *testing.T) {
	log := message.NewLog(nil)
	s := NewSimulator(log, 30*time.Millisecond, zap.NewNop())

	sender := message.Sender{Name: "Admin User", Role: role.Admin}
	first := log.Append("first", 1, 3, sender, nil)
	s.Schedule(first.ID)
	second := log.Append("second", 1, 3, sender, nil)

	waitFor(t, func() bool {
		m, _ := log.Get(first.ID)
		return m.Read
	})
	m, _ := log.Get(second.ID)
	if m.Read {
		t.Error("later message was marked read by an earlier timer")
	}
}

func TestFireOnDeletedMessageIsNoop(t *testing.T) {
	log := message.NewLog(nil)
	s := NewSimulator(log, 10*time.Millisecond, zap.NewNop())

	m := log.Append("gone", 1, 3, message.Sender{Role: role.Admin}, nil)
	s.Schedule(m.ID)
	log.Delete(m.ID)

	time.Sleep(40 * time.Millisecond)
	if log.Len() != 0 {
		t.Errorf("len = %d, want 0", log.Len())
	}
}
