package message

import (
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/rolechat/internal/bus"
)

// Scheduler receives read-receipt work for newly appended messages.
type Scheduler interface {
	Schedule(id int64)
	Cancel(id int64)
}

// Log is the in-memory message store. Mutations are serialized; readers
// always receive copies.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	lastID   int64
	lastTS   time.Time
	version  uint64

	sched Scheduler
	bus   *bus.Bus
	now   func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog creates an empty log. b may be nil.
func NewLog(b *bus.Bus, opts ...Option) *Log {
	l := &Log{bus: b, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetScheduler attaches the read-receipt scheduler. Messages appended
// before this call are not scheduled.
func (l *Log) SetScheduler(s Scheduler) {
	l.mu.Lock()
	l.sched = s
	l.mu.Unlock()
}

// Append creates a message with the next id and the current time. It does
// no authorization; callers check the role policy first.
func (l *Log) Append(text string, senderID, receiverID int64, from Sender, product *Product) Message {
	l.mu.Lock()
	ts := l.now().UTC()
	// Keep timestamps non-decreasing so append order and history order agree.
	if ts.Before(l.lastTS) {
		ts = l.lastTS
	}
	l.lastTS = ts
	l.lastID++
	m := Message{
		ID:         l.lastID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		SenderName: from.Name,
		SenderRole: from.Role,
		Text:       text,
		Timestamp:  ts,
		Product:    product,
	}
	l.messages = append(l.messages, m)
	l.version++
	sched := l.sched
	l.mu.Unlock()

	if sched != nil {
		sched.Schedule(m.ID)
	}
	l.bus.Emit(bus.MessageAppended, m)
	return m
}

// ResumeReceipts hands every unread message to the scheduler, so receipts
// pending when the log was last saved still fire after a reload. It returns
// how many were scheduled.
func (l *Log) ResumeReceipts() int {
	l.mu.RLock()
	sched := l.sched
	var ids []int64
	if sched != nil {
		for _, m := range l.messages {
			if !m.Read {
				ids = append(ids, m.ID)
			}
		}
	}
	l.mu.RUnlock()

	for _, id := range ids {
		sched.Schedule(id)
	}
	return len(ids)
}

// MarkRead sets the read flag on id. It reports whether the flag changed;
// absent or already-read messages are left alone.
func (l *Log) MarkRead(id int64) bool {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 || l.messages[i].Read {
		l.mu.Unlock()
		return false
	}
	l.messages[i].Read = true
	l.version++
	m := l.messages[i]
	l.mu.Unlock()

	l.bus.Emit(bus.MessageRead, m)
	return true
}

// MarkReadWhere marks every unread message matching pred and returns how
// many changed.
func (l *Log) MarkReadWhere(pred func(*Message) bool) int {
	l.mu.Lock()
	var changed []Message
	for i := range l.messages {
		m := &l.messages[i]
		if !m.Read && pred(m) {
			m.Read = true
			changed = append(changed, *m)
		}
	}
	if len(changed) > 0 {
		l.version++
	}
	l.mu.Unlock()

	for _, m := range changed {
		l.bus.Emit(bus.MessageRead, m)
	}
	return len(changed)
}

// Delete removes id from the log and cancels its pending read receipt.
// It reports whether anything was removed.
func (l *Log) Delete(id int64) bool {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	m := l.messages[i]
	l.messages = slices.Delete(l.messages, i, i+1)
	l.version++
	sched := l.sched
	l.mu.Unlock()

	if sched != nil {
		sched.Cancel(id)
	}
	l.bus.Emit(bus.MessageDeleted, m)
	return true
}

// Get returns a copy of message id.
func (l *Log) Get(id int64) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexOf(id)
	if i < 0 {
		return Message{}, false
	}
	return l.messages[i], true
}

// All returns a point-in-time copy of the log in insertion order.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.messages)
}

// Select returns copies of the messages matching pred, in insertion order.
func (l *Log) Select(pred func(*Message) bool) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Message
	for i := range l.messages {
		if pred(&l.messages[i]) {
			out = append(out, l.messages[i])
		}
	}
	return out
}

// Count returns how many messages match pred.
func (l *Log) Count(pred func(*Message) bool) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for i := range l.messages {
		if pred(&l.messages[i]) {
			n++
		}
	}
	return n
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Version increases on every mutation.
func (l *Log) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Replace swaps the log contents for msgs, typically on startup. The id
// sequence and timestamp floor continue from the highest loaded values.
// No read receipts are scheduled for loaded messages.
func (l *Log) Replace(msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = slices.Clone(msgs)
	l.lastID = 0
	l.lastTS = time.Time{}
	for _, m := range msgs {
		l.lastID = max(l.lastID, m.ID)
		if m.Timestamp.After(l.lastTS) {
			l.lastTS = m.Timestamp
		}
	}
	l.version++
}

func (l *Log) indexOf(id int64) int {
	return slices.IndexFunc(l.messages, func(m Message) bool { return m.ID == id })
}
