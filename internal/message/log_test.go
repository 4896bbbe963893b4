package message

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/rolechat/internal/bus"
	"github.com/matheus3301/rolechat/internal/role"
	"golang.org/x/sync/errgroup"
)

type recordingScheduler struct {
	mu        sync.Mutex
	scheduled []int64
	cancelled []int64
}

func (r *recordingScheduler) Schedule(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, id)
}

func (r *recordingScheduler) Cancel(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, id)
}

var admin = Sender{Name: "Admin User", Role: role.Admin}

func TestAppendAssignsIDsAndDefaults(t *testing.T) {
	l := NewLog(nil)
	m1 := l.Append("hello", 1, 3, admin, nil)
	m2 := l.Append("again", 1, 3, admin, nil)

	if m1.ID != 1 || m2.ID != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", m1.ID, m2.ID)
	}
	if m1.Read {
		t.Error("new message should be unread")
	}
	if m1.SenderName != "Admin User" || m1.SenderRole != role.Admin {
		t.Errorf("sender = %q/%s", m1.SenderName, m1.SenderRole)
	}
	if m1.Timestamp.IsZero() || m1.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want non-zero UTC", m1.Timestamp)
	}
	if l.Len() != 2 {
		t.Errorf("len = %d, want 2", l.Len())
	}
}

func TestAppendSchedulesReadReceipt(t *testing.T) {
	l := NewLog(nil)
	sched := &recordingScheduler{}
	l.SetScheduler(sched)

	m := l.Append("hi", 1, 2, admin, nil)
	if len(sched.scheduled) != 1 || sched.scheduled[0] != m.ID {
		t.Errorf("scheduled = %v, want [%d]", sched.scheduled, m.ID)
	}

	l.Delete(m.ID)
	if len(sched.cancelled) != 1 || sched.cancelled[0] != m.ID {
		t.Errorf("cancelled = %v, want [%d]", sched.cancelled, m.ID)
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Minute)}
	i := 0
	l := NewLog(nil, WithClock(func() time.Time {
		ts := clock[i]
		i++
		return ts
	}))

	first := l.Append("a", 1, 2, admin, nil)
	second := l.Append("b", 1, 2, admin, nil)
	if second.Timestamp.Before(first.Timestamp) {
		t.Errorf("second timestamp %v precedes first %v", second.Timestamp, first.Timestamp)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	l := NewLog(nil)
	m := l.Append("hi", 1, 2, admin, nil)

	if !l.MarkRead(m.ID) {
		t.Error("first MarkRead should report a change")
	}
	before := l.All()
	if l.MarkRead(m.ID) {
		t.Error("second MarkRead should report no change")
	}
	after := l.All()
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("state changed on second MarkRead: %+v -> %+v", before, after)
	}
	if l.MarkRead(999) {
		t.Error("MarkRead on absent id should report no change")
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	l := NewLog(nil)
	l.Append("a", 1, 2, admin, nil)
	l.Append("b", 2, 1, admin, nil)

	if l.Delete(42) {
		t.Error("Delete(42) should report nothing removed")
	}
	if got := len(l.All()); got != 2 {
		t.Errorf("len(All) = %d, want 2", got)
	}
}

func TestDeleteKeepsOrder(t *testing.T) {
	l := NewLog(nil)
	a := l.Append("a", 1, 2, admin, nil)
	b := l.Append("b", 1, 2, admin, nil)
	c := l.Append("c", 1, 2, admin, nil)

	if !l.Delete(b.ID) {
		t.Fatal("Delete should remove b")
	}
	all := l.All()
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != c.ID {
		t.Errorf("remaining = %+v, want [a c]", all)
	}
	if _, ok := l.Get(b.ID); ok {
		t.Error("Get should not find deleted message")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	l := NewLog(nil)
	m := l.Append("a", 1, 2, admin, nil)

	snap := l.All()
	snap[0].Read = true
	got, _ := l.Get(m.ID)
	if got.Read {
		t.Error("mutating a snapshot leaked into the log")
	}
}

func TestMarkReadWhere(t *testing.T) {
	l := NewLog(nil)
	l.Append("a", 1, 3, admin, nil)
	l.Append("b", 2, 3, admin, nil)
	l.Append("c", 1, 3, admin, nil)

	n := l.MarkReadWhere(func(m *Message) bool { return m.SenderID == 1 && m.ReceiverID == 3 })
	if n != 2 {
		t.Errorf("changed = %d, want 2", n)
	}
	unread := l.Count(func(m *Message) bool { return !m.Read })
	if unread != 1 {
		t.Errorf("unread = %d, want 1", unread)
	}
}

func TestReplaceContinuesSequence(t *testing.T) {
	l := NewLog(nil)
	now := time.Now()
	l.Replace(Seed(now))

	m := l.Append("next", 1, 2, admin, nil)
	if m.ID != 4 {
		t.Errorf("id after seed = %d, want 4", m.ID)
	}
	if l.Len() != 4 {
		t.Errorf("len = %d, want 4", l.Len())
	}
}

func TestVersionTracksMutations(t *testing.T) {
	l := NewLog(nil)
	v0 := l.Version()
	m := l.Append("a", 1, 2, admin, nil)
	v1 := l.Version()
	l.MarkRead(m.ID)
	v2 := l.Version()
	l.MarkRead(m.ID)
	l.Delete(999)

	if !(v0 < v1 && v1 < v2) {
		t.Errorf("versions %d %d %d should increase", v0, v1, v2)
	}
	if l.Version() != v2 {
		t.Error("no-op mutations should not bump the version")
	}
}

func TestEventsPublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	l := NewLog(b)
	m := l.Append("a", 1, 2, admin, nil)
	l.MarkRead(m.ID)
	l.MarkRead(m.ID)
	l.Delete(m.ID)

	want := []string{bus.MessageAppended, bus.MessageRead, bus.MessageDeleted}
	for _, kind := range want {
		select {
		case evt := <-ch:
			if evt.Kind != kind {
				t.Errorf("kind = %q, want %q", evt.Kind, kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", kind)
		}
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected extra event %q", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConcurrentAppendsGetUniqueIDs(t *testing.T) {
	l := NewLog(nil)
	var g errgroup.Group
	for sender := int64(1); sender <= 8; sender++ {
		g.Go(func() error {
			for range 50 {
				l.Append("x", sender, 100, admin, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	seen := make(map[int64]bool)
	lastBySender := make(map[int64]int64)
	for _, m := range l.All() {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
		if m.ID < lastBySender[m.SenderID] {
			t.Fatalf("sender %d ids out of order", m.SenderID)
		}
		lastBySender[m.SenderID] = m.ID
	}
	if len(seen) != 400 {
		t.Errorf("got %d messages, want 400", len(seen))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msgs := Seed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	msgs = append(msgs, Message{
		ID: 4, SenderID: 1, ReceiverID: 3, SenderName: "Admin User", SenderRole: role.Admin,
		Text: "offer", Timestamp: time.Date(2026, 3, 1, 9, 5, 0, 123, time.UTC),
		Product: &Product{ID: "p1", Name: "Plan", Price: 19.99, Description: "monthly"},
	})

	var first bytes.Buffer
	if err := Encode(&first, msgs); err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	var second bytes.Buffer
	if err := Encode(&second, decoded); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Errorf("round trip changed encoding:\n%s\n---\n%s", first.String(), second.String())
	}
	if decoded[3].Product == nil || decoded[3].Product.Price != 19.99 {
		t.Errorf("product lost: %+v", decoded[3].Product)
	}
}

func TestEncodeNilWritesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("got %q, want []", got)
	}
}
