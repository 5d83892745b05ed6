package vault

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrisjgf/portfolio/internal/models"
)

func startWatcher(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if err := Watch(ctx, s, logger); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give fsnotify a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
}

func waitLocked(t *testing.T, s *Store) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !s.Status().Unlocked {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("store still unlocked after external mutation")
}

func TestWatcherLocksOnExternalReplace(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Setup("pass1234"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	startWatcher(t, s)

	// Replace the vault file with bytes this store never wrote.
	if err := os.WriteFile(s.Path(), []byte("tampered"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	waitLocked(t, s)
}

func TestWatcherLocksOnRemoval(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Setup("pass1234"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	startWatcher(t, s)

	if err := os.Remove(s.Path()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	waitLocked(t, s)
}

func TestWatcherIgnoresOwnWrites(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Setup("pass1234"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	startWatcher(t, s)

	doc := models.NewDocument()
	doc.Holdings = append(doc.Holdings, testHolding("own"))
	if err := s.Write(doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Long enough for the debounce to fire and the check to run.
	time.Sleep(600 * time.Millisecond)
	if !s.Status().Unlocked {
		t.Fatal("watcher locked the session on the store's own write")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Setup("pass1234"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	startWatcher(t, s)

	other := filepath.Join(filepath.Dir(s.Path()), "scratch.txt")
	if err := os.WriteFile(other, []byte("noise"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	time.Sleep(600 * time.Millisecond)
	if !s.Status().Unlocked {
		t.Fatal("watcher locked the session for an unrelated file")
	}
}
