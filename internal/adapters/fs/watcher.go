package fs

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/custodian/internal/domain"
	"github.com/bft-labs/custodian/internal/ports"
)

// Watcher reports record changes written to a Store directory by any process.
type Watcher struct {
	store  *Store
	logger ports.Logger
}

// NewWatcher creates a Watcher over the files of store.
func NewWatcher(store *Store, logger ports.Logger) *Watcher {
	return &Watcher{store: store, logger: logger}
}

// Run delivers each decoded record to fn whenever its file is written.
// It blocks until ctx is canceled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context, fn func(domain.StateRecord)) error {
	if err := os.MkdirAll(w.store.Dir(), 0o700); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.Dir(), err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.store.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.Dir(), err)
	}
	w.logger.Info("watching records", ports.String("dir", w.store.Dir()))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			addr, ok := addressFromPath(event.Name)
			if !ok {
				continue
			}
			rec, ok := w.decode(ctx, addr)
			if !ok {
				continue
			}
			fn(rec)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("record watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) decode(ctx context.Context, addr domain.Address) (domain.StateRecord, bool) {
	data, err := w.store.Read(ctx, addr)
	if err != nil {
		w.logger.Debug("skipping unreadable record", ports.Address("address", addr), ports.Err(err))
		return domain.StateRecord{}, false
	}
	if domain.IsZeroed(data) {
		return domain.StateRecord{}, false
	}
	rec, err := domain.DecodeRecord(addr, data)
	if err != nil {
		w.logger.Warn("skipping corrupt record", ports.Address("address", addr), ports.Err(err))
		return domain.StateRecord{}, false
	}
	return rec, true
}
