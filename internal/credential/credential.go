// Package credential holds the bearer token the backend and live channel use.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Provider supplies the current credential and signals when it stops being valid.
type Provider interface {
	Token() (string, bool)
	OnInvalidated(fn func())
	Invalidate()
}

// Memory is an in-memory Provider.
type Memory struct {
	mu    sync.Mutex
	token string
	subs  []func()
}

// NewMemory returns a provider holding token.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

// Token returns the credential and whether one is present.
func (m *Memory) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

// Set replaces the credential.
func (m *Memory) Set(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

// OnInvalidated registers fn to run after each invalidation.
func (m *Memory) OnInvalidated(fn func()) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// Invalidate drops the credential and notifies subscribers.
// Invalidating an already empty credential is a no-op.
func (m *Memory) Invalidate() {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return
	}
	m.token = ""
	subs := append([]func(){}, m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// FileStore is a Provider backed by a token file in the profile directory.
// Invalidation removes the file so the next start requires a new login.
type FileStore struct {
	*Memory
	path string
}

// OpenFile loads the token stored at path. A missing file yields an empty credential.
func OpenFile(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	return &FileStore{
		Memory: NewMemory(strings.TrimSpace(string(data))),
		path:   path,
	}, nil
}

// Save persists token and makes it current.
func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(f.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	f.Set(token)
	return nil
}

// Clear removes the stored token without notifying subscribers.
func (f *FileStore) Clear() error {
	f.Set("")
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Invalidate removes the token file and notifies subscribers.
func (f *FileStore) Invalidate() {
	_ = os.Remove(f.path)
	f.Memory.Invalidate()
}
