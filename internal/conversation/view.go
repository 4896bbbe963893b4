package conversation

import (
	"slices"

	"github.com/matheus3301/rolechat/internal/message"
)

// Source is the read side of the message store.
type Source interface {
	Select(pred func(*message.Message) bool) []message.Message
	Count(pred func(*message.Message) bool) int
}

// View derives per-user state from the message log. Nothing is cached:
// every call reads the current store contents.
type View struct {
	src Source
}

// New creates a view over src.
func New(src Source) *View {
	return &View{src: src}
}

// History returns the conversation between a and b, oldest first.
// Equal timestamps fall back to id order.
func (v *View) History(a, b int64) []message.Message {
	msgs := v.src.Select(func(m *message.Message) bool { return m.Between(a, b) })
	slices.SortStableFunc(msgs, message.Compare)
	return msgs
}

// UnreadCount returns how many messages addressed to userID are unread.
func (v *View) UnreadCount(userID int64) int {
	return v.src.Count(func(m *message.Message) bool {
		return m.ReceiverID == userID && !m.Read
	})
}

// UnreadFrom returns how many messages from peerID to readerID are unread.
func (v *View) UnreadFrom(readerID, peerID int64) int {
	return v.src.Count(func(m *message.Message) bool {
		return m.ReceiverID == readerID && m.SenderID == peerID && !m.Read
	})
}

// Summary describes one conversation from a single user's point of view.
type Summary struct {
	PeerID   int64           `json:"peerId"`
	Last     message.Message `json:"last"`
	Messages int             `json:"messages"`
	Unread   int             `json:"unread"`
}

// Conversations lists every peer userID has exchanged messages with,
// most recently active first.
func (v *View) Conversations(userID int64) []Summary {
	msgs := v.src.Select(func(m *message.Message) bool { return m.Involves(userID) })

	byPeer := make(map[int64]*Summary)
	for _, m := range msgs {
		peer := m.Peer(userID)
		s, ok := byPeer[peer]
		if !ok {
			s = &Summary{PeerID: peer, Last: m}
			byPeer[peer] = s
		}
		s.Messages++
		if m.ReceiverID == userID && !m.Read {
			s.Unread++
		}
		if message.Compare(m, s.Last) > 0 {
			s.Last = m
		}
	}

	out := make([]Summary, 0, len(byPeer))
	for _, s := range byPeer {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		return message.Compare(b.Last, a.Last)
	})
	return out
}
