// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package keylock provides per-key read/write locks that are created on first
// use and released when no goroutine holds or waits on them.
package keylock

import "sync"

type entry struct {
	rw   sync.RWMutex
	refs int
}

// Map hands out one RWMutex per key. The zero value is not usable; call New.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock takes the exclusive lock for key and returns its unlock function.
func (m *Map) Lock(key string) func() {
	e := m.acquire(key)
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		m.release(key, e)
	}
}

// RLock takes the shared lock for key and returns its unlock function.
func (m *Map) RLock(key string) func() {
	e := m.acquire(key)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		m.release(key, e)
	}
}

// Len reports how many keys currently have a live lock.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *Map) acquire(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *Map) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}
