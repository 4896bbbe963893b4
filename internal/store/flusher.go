package store

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
	"go.uber.org/zap"
)

// DefaultFlushInterval is how often a dirty workspace is written out.
const DefaultFlushInterval = 2 * time.Second

// Flusher periodically saves the message log and user directory when
// either has changed since the last save.
type Flusher struct {
	persister Persister
	log       *message.Log
	dir       *directory.Directory
	interval  time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	savedLog uint64
	savedDir uint64
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewFlusher creates a flusher. It does nothing until Start.
func NewFlusher(p Persister, log *message.Log, dir *directory.Directory, interval time.Duration, logger *zap.Logger) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Flusher{
		persister: p,
		log:       log,
		dir:       dir,
		interval:  interval,
		logger:    logger,
	}
}

// Restore loads the persisted snapshot into the log and directory, or
// seeds demo data and saves it when nothing was stored yet. Unread messages
// get their read receipts scheduled again.
func (f *Flusher) Restore(ctx context.Context, now time.Time) (seeded bool, err error) {
	snap, ok, err := f.persister.Load(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		snap = SeedSnapshot(message.Seed(now))
		seeded = true
	}
	f.dir.Replace(snap.Users)
	f.log.Replace(snap.Messages)
	if n := f.log.ResumeReceipts(); n > 0 {
		f.logger.Info("resumed pending read receipts", zap.Int("count", n))
	}

	if seeded {
		return true, f.Flush(ctx)
	}
	f.mu.Lock()
	f.savedLog, f.savedDir = f.log.Version(), f.dir.Version()
	f.mu.Unlock()
	return false, nil
}

// Start begins the periodic flush loop.
func (f *Flusher) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})
	go f.loop(ctx)
}

// Stop ends the loop and performs a final flush.
func (f *Flusher) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
		<-f.done
	}
	return f.Flush(ctx)
}

func (f *Flusher) loop(ctx context.Context) {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Flush(ctx); err != nil && ctx.Err() == nil {
				f.logger.Error("failed to flush snapshot", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Flush saves a snapshot if anything changed since the last save.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	logVer, dirVer := f.log.Version(), f.dir.Version()
	if logVer == f.savedLog && dirVer == f.savedDir {
		return nil
	}
	snap := Snapshot{Users: f.dir.List(), Messages: f.log.All()}
	if err := f.persister.Save(ctx, snap); err != nil {
		return err
	}
	f.savedLog, f.savedDir = logVer, dirVer
	f.logger.Debug("snapshot saved", zap.Int("messages", len(snap.Messages)), zap.Int("users", len(snap.Users)))
	return nil
}
