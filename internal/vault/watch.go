package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the vault file and locks the active session when the
// on-disk blob is no longer the one this process wrote. The session model
// assumes a single writer; the watcher enforces that assumption instead of
// letting an externally replaced file diverge from the in-memory document.
//
// Events caused by the store's own tmp→rename writes are recognized by
// checksum and ignored. A short debounce collapses the create/rename burst
// a single atomic replace produces.
func Watch(ctx context.Context, store *Store, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(store.Path())); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("file", store.Path()))

	var checkTimer *time.Timer
	var checkCh <-chan time.Time
	scheduleCheck := func() {
		if checkTimer == nil {
			checkTimer = time.NewTimer(200 * time.Millisecond)
			checkCh = checkTimer.C
		} else {
			checkTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if checkTimer != nil {
				checkTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-checkCh:
			verifyVaultFile(store, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != store.Path() {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleCheck()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// verifyVaultFile compares the on-disk blob against the store's last own
// write and locks the session on mismatch.
func verifyVaultFile(store *Store, logger *slog.Logger) {
	if !store.Status().Unlocked {
		return
	}
	blob, err := os.ReadFile(store.Path())
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("watcher: vault file removed, locking session")
			store.Lock()
		}
		return
	}
	if store.IsOwnWrite(hexSum(blob)) {
		return
	}
	logger.Warn("watcher: vault file changed externally, locking session")
	store.Lock()
}
