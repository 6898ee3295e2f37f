// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("poll-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 100, counter)
	require.Equal(t, 0, m.Len(), "locks should be released once idle")
}

func TestReadersShareAndWriterExcludes(t *testing.T) {
	m := New()

	unlockA := m.RLock("poll-1")
	unlockB := m.RLock("poll-1")

	acquired := make(chan struct{})
	go func() {
		unlock := m.Lock("poll-1")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired lock while readers held it")
	default:
	}

	unlockA()
	unlockB()
	<-acquired
	require.Equal(t, 0, m.Len())
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	m := New()
	unlock := m.Lock("a")
	defer unlock()

	done := make(chan struct{})
	go func() {
		m.Lock("b")()
		close(done)
	}()
	<-done
}
