package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRecordsHolder(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "work")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	h, err := ReadHolder(dir)
	if err != nil {
		t.Fatalf("ReadHolder() error = %v", err)
	}
	if h.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", h.PID, os.Getpid())
	}
	if h.Profile != "work" {
		t.Errorf("Profile = %q, want %q", h.Profile, "work")
	}
	if h.Since.IsZero() {
		t.Error("Since is zero")
	}
}

func TestAcquireTwiceFails(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "main")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer l.Release()

	_, err = Acquire(dir, "main")
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("second Acquire() error = %v, want *HeldError", err)
	}
	if held.Holder.PID != os.Getpid() {
		t.Errorf("Holder.PID = %d, want %d", held.Holder.PID, os.Getpid())
	}
	if held.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", held.Path)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	l2, err := Acquire(dir, "main")
	if err != nil {
		t.Fatalf("re-Acquire() error = %v", err)
	}
	_ = l2.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}
