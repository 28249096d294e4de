package v8

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// engineLock guards the process-wide engine instance. The underlying mutex
// is not recursive; reentrant acquisition on the same goroutine is layered
// on top so that nested dispatch from within a native callback (host calls
// script calls host calls script) does not deadlock the owner.
type engineLock struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

// Lock acquire the engine for the calling goroutine, reentrantly
func (lock *engineLock) Lock() {
	id := goid()
	if lock.owner.Load() == id {
		lock.depth++
		return
	}

	lock.mu.Lock()
	lock.owner.Store(id)
	lock.depth = 1
}

// Unlock release one acquisition; the engine is freed when the outermost
// acquisition unlocks
func (lock *engineLock) Unlock() {
	if lock.owner.Load() != goid() {
		panic("engine lock released by a goroutine that does not own it")
	}

	lock.depth--
	if lock.depth == 0 {
		lock.owner.Store(0)
		lock.mu.Unlock()
	}
}

// HeldByCaller report whether the calling goroutine owns the engine
func (lock *engineLock) HeldByCaller() bool {
	return lock.owner.Load() == goid()
}

// Depth the current acquisition depth; only meaningful for the owner
func (lock *engineLock) Depth() int {
	if !lock.HeldByCaller() {
		return 0
	}
	return lock.depth
}

var goidPrefix = []byte("goroutine ")

// goid the current goroutine id, parsed from the stack header
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	frame := bytes.TrimPrefix(buf[:n], goidPrefix)
	end := bytes.IndexByte(frame, ' ')
	if end < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(frame[:end]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
