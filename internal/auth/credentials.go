// Package auth provides API credential selection for the remote video
// generation service. The key is selectable at runtime so a rejected
// credential can be replaced without rebuilding the client stack.
package auth

import (
	"errors"
	"sync"
)

// ErrNoCredential is returned when no API key has been selected yet.
var ErrNoCredential = errors.New("auth: no API key selected")

// Provider supplies the API key used for remote calls. Implementations
// must be safe for concurrent use: the key is read on every request so a
// reselection takes effect immediately.
type Provider interface {
	// APIKey returns the currently selected key.
	// Returns ErrNoCredential when none is selected.
	APIKey() (string, error)

	// Available reports whether a key is currently selected.
	Available() bool
}

// Selectable is a Provider whose key can be selected and replaced at
// runtime. It is typically seeded from configuration and updated through
// the credentials endpoint.
type Selectable struct {
	mu  sync.RWMutex
	key string
}

// NewSelectable creates a Selectable provider. An empty initial key means
// no credential is selected yet.
func NewSelectable(initial string) *Selectable {
	return &Selectable{key: initial}
}

// APIKey returns the selected key or ErrNoCredential.
func (s *Selectable) APIKey() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == "" {
		return "", ErrNoCredential
	}
	return s.key, nil
}

// Available reports whether a key is selected.
func (s *Selectable) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != ""
}

// Select replaces the current key.
func (s *Selectable) Select(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
}

// Clear removes the current key, typically after the service rejected it.
func (s *Selectable) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
}

// Compile-time check that Selectable implements Provider.
var _ Provider = (*Selectable)(nil)
