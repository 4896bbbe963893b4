package rpc

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/rolechat/internal/chat"
	"github.com/matheus3301/rolechat/internal/message"
)

type SendRequest = chat.SendRequest

type HistoryRequest struct {
	ViewerID int64 `json:"viewerId"`
	A        int64 `json:"a"`
	B        int64 `json:"b"`
}

type HistoryResponse struct {
	Messages []message.Message `json:"messages"`
}

type UnreadRequest struct {
	UserID int64 `json:"userId"`
	// FromID narrows the count to one peer when non-zero.
	FromID int64 `json:"fromId,omitempty"`
}

type UnreadResponse struct {
	Count int `json:"count"`
}

type MessageRef struct {
	ActorID   int64 `json:"actorId"`
	MessageID int64 `json:"messageId"`
}

type Empty struct{}

type ListUsersRequest struct {
	ViewerID int64  `json:"viewerId"`
	Query    string `json:"query"`
	Role     string `json:"role"`
}

type ListUsersResponse struct {
	Users []chat.Contact `json:"users"`
}

type PresenceRequest struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

type StatusResponse struct {
	Workspace string    `json:"workspace"`
	State     string    `json:"state"`
	Since     time.Time `json:"since"`
	Messages  int       `json:"messages"`
	Users     int       `json:"users"`
	Pending   int       `json:"pendingReceipts"`
}

type WatchRequest struct {
	// Prefix filters event kinds, e.g. "message." or "user.". Empty means all.
	Prefix string `json:"prefix"`
}

// EventEnvelope is one bus event as streamed by Watch.
type EventEnvelope struct {
	ID         string          `json:"id"`
	Workspace  string          `json:"workspace"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
