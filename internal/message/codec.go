package message

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/rolechat/internal/role"
)

// Encode writes msgs to w as a JSON array in the given order.
func Encode(w io.Writer, msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	return nil
}

// Decode reads a JSON array of messages from r.
func Decode(r io.Reader) ([]Message, error) {
	var msgs []Message
	if err := json.NewDecoder(r).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// Seed returns the demo conversation used when no stored log exists.
// User ids match directory.Seed.
func Seed(now time.Time) []Message {
	now = now.UTC()
	return []Message{
		{
			ID: 1, SenderID: 1, ReceiverID: 2,
			SenderName: "Admin User", SenderRole: role.Admin,
			Text:      "Welcome to the chat system! I'm the admin.",
			Timestamp: now.Add(-3600 * time.Second),
			Read:      true,
		},
		{
			ID: 2, SenderID: 2, ReceiverID: 1,
			SenderName: "Staff Member", SenderRole: role.Staff,
			Text:      "Thank you! I'm excited to be part of the team.",
			Timestamp: now.Add(-3500 * time.Second),
			Read:      true,
		},
		{
			ID: 3, SenderID: 1, ReceiverID: 3,
			SenderName: "Admin User", SenderRole: role.Admin,
			Text:      "Hello Agent! How can I help you today?",
			Timestamp: now.Add(-3000 * time.Second),
			Read:      true,
		},
	}
}
