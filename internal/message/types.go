package message

import (
	"time"

	"github.com/matheus3301/rolechat/internal/role"
)

// Message is one entry in the log. Everything except Read is fixed at
// creation; Read only ever moves from false to true.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	SenderName string    `json:"senderName"`
	SenderRole role.Role `json:"senderRole"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
	Product    *Product  `json:"product"`
}

// Between reports whether m belongs to the conversation of a and b,
// in either direction.
func (m *Message) Between(a, b int64) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Involves reports whether userID sent or received m.
func (m *Message) Involves(userID int64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Peer returns the other participant of m as seen from userID.
func (m *Message) Peer(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Product is an offer attached to a message. Price is not validated here.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
}

// Sender carries the sender details denormalized onto each message.
type Sender struct {
	Name string
	Role role.Role
}

// Compare orders messages by timestamp, then by id.
func Compare(a, b Message) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
