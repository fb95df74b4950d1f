package service

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLocked signals a concurrent mutation is already in flight for this ID.
var ErrLocked = errors.New("session locked")

// gate is a tiny 1-token semaphore with TryLock semantics (non-blocking fast-fail).
type gate struct{ ch chan struct{} }

func newGate() *gate {
	g := &gate{ch: make(chan struct{}, 1)}
	g.ch <- struct{}{} // token present => unlocked
	return g
}
func (g *gate) Lock() { <-g.ch }
func (g *gate) TryLock() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}
func (g *gate) Unlock() {
	select {
	case g.ch <- struct{}{}:
	default:
		panic("unlock of unlocked gate")
	}
}

// gates maps IDs to gates. The same ID always maps to the same gate.
type gates struct{ m sync.Map } // map[string]*gate

// lock acquires the per-ID gate (blocking). Always returns a valid unlock func.
func (gs *gates) lock(id string) func() {
	v, _ := gs.m.LoadOrStore(id, newGate())
	g := v.(*gate)
	g.Lock()
	return g.Unlock
}

// tryLock attempts to acquire the per-ID gate without blocking.
func (gs *gates) tryLock(id string) (func(), error) {
	v, _ := gs.m.LoadOrStore(id, newGate())
	g := v.(*gate)
	if !g.TryLock() {
		return func() {}, fmt.Errorf("id %s: %w", id, ErrLocked)
	}
	return g.Unlock, nil
}

func (gs *gates) forget(id string) {
	gs.m.Delete(id)
}
