package store

import (
	"path/filepath"
	"testing"
)

func TestInstanceLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	first := NewInstanceLock(path)
	acquired, err := first.TryLock()
	if err != nil {
		t.Fatalf("TryLock (first): %v", err)
	}
	if !acquired {
		t.Fatal("expected first lock attempt to succeed")
	}
	defer first.Unlock()

	second := NewInstanceLock(path)
	acquired, err = second.TryLock()
	if err != nil {
		t.Fatalf("TryLock (second): %v", err)
	}
	if acquired {
		t.Error("expected second lock attempt to fail while the first is held")
	}
}

func TestInstanceLockUnlockReleasesForNextHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	first := NewInstanceLock(path)
	if _, err := first.TryLock(); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if first.IsLocked() {
		t.Error("expected IsLocked() to be false after Unlock")
	}

	second := NewInstanceLock(path)
	acquired, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock (second): %v", err)
	}
	if !acquired {
		t.Error("expected second holder to acquire the lock after release")
	}
	second.Unlock()
}
