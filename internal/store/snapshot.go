package store

import (
	"context"

	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
)

// Snapshot is the persisted state of a workspace, both sequences in
// insertion order.
type Snapshot struct {
	Users    []directory.User
	Messages []message.Message
}

// Persister loads and saves whole snapshots. Load reports ok=false when
// nothing has ever been saved, so the caller can seed demo data.
type Persister interface {
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	Save(ctx context.Context, snap Snapshot) error
}

// SeedSnapshot is the demo state used on first start.
func SeedSnapshot(msgs []message.Message) Snapshot {
	return Snapshot{Users: directory.Seed(), Messages: msgs}
}
