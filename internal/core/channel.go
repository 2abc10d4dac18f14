package core

import (
	"errors"
	"sync"
)

var (
	activeMu sync.Mutex
	active   *Hub
)

// Initialize installs h as the process-wide notification channel.
// Two live hubs would split connections across disjoint registries, so a second
// call without Teardown fails with ErrAlreadyInitialized.
func Initialize(h *Hub) error {
	if h == nil {
		return errors.New("initialize notification channel: nil hub")
	}
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return ErrAlreadyInitialized
	}
	active = h
	return nil
}

// Active returns the installed hub or ErrUninitialized.
func Active() (*Hub, error) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active == nil {
		return nil, ErrUninitialized
	}
	return active, nil
}

// Teardown removes the installed hub.
func Teardown() {
	activeMu.Lock()
	active = nil
	activeMu.Unlock()
}
