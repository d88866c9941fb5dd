// Package lock keeps a single interactive client per profile.
package lock

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file created inside a profile directory.
const FileName = "client.lock"

// HeldError is returned when another process already runs the profile.
type HeldError struct {
	Holder Holder
	Path   string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("profile %q is in use by PID %d (%s)", e.Holder.Profile, e.Holder.PID, e.Path)
}

// Holder describes the process recorded in a lock file.
type Holder struct {
	PID     int
	Profile string
	Since   time.Time
}

// Lock is an acquired profile lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the exclusive lock of the profile directory dir.
func Acquire(dir, profile string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder, _ := ReadHolder(dir)
		_ = f.Close()
		return nil, &HeldError{Holder: holder, Path: path}
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\nprofile=%s\nsince=%s\n",
		os.Getpid(), profile, time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: path}, nil
}

// ReadHolder reads the lock file of dir without taking the lock.
func ReadHolder(dir string) (Holder, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var h Holder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "profile":
			h.Profile = value
		case "since":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h, sc.Err()
}

// Release drops the lock. Safe to call on a nil receiver and more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}
