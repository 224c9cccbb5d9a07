package stats

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "badger"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func TestCounters(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	s.IncrementScanned(99)
	s.IncrementScanned(99)
	s.IncrementScanned(99)
	s.IncrementRelayed(99)

	if got, want := s.ScannedOn(99, now), int64(3); got != want {
		t.Fatalf("ScannedOn() = %d, want %d", got, want)
	}
	if got, want := s.RelayedOn(99, now), int64(1); got != want {
		t.Fatalf("RelayedOn() = %d, want %d", got, want)
	}
}

func TestCountersIsolatedByChat(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	s.IncrementRelayed(1)

	if got := s.RelayedOn(2, now); got != 0 {
		t.Fatalf("RelayedOn(2) = %d, want 0", got)
	}
}

func TestMissingDayReadsZero(t *testing.T) {
	s := openTestStore(t)

	s.IncrementScanned(7)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if got := s.ScannedOn(7, yesterday); got != 0 {
		t.Fatalf("ScannedOn() = %d, want 0", got)
	}
}

func TestCountersSurviveReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	now := time.Now().UTC()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.IncrementRelayed(5)
	s.IncrementRelayed(5)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	if got, want := s.RelayedOn(5, now), int64(2); got != want {
		t.Fatalf("RelayedOn() after reopen = %d, want %d", got, want)
	}
}
