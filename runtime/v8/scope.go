package v8

// A scopeFrame records one nested engine entry. Frames live on the engine's
// stack and are only touched while the engine lock is held, so the stack
// needs no lock of its own.
type scopeFrame struct {
	runtime *Runtime
	lite    bool
}

// enter acquire the engine reentrantly and make rt the current runtime.
// Exits must be strictly paired with entries; callers defer the returned
// function immediately.
func (engine *Engine) enter(rt *Runtime) func() {
	engine.lock.Lock()
	engine.stack = append(engine.stack, scopeFrame{runtime: rt})
	return engine.exit
}

// enterLite reuse an entry already held by the calling goroutine. Used by
// the secondary-runtime hook which re-enters the engine from a point where
// the lock is already owned; no checkpoint runs on exit.
func (engine *Engine) enterLite(rt *Runtime) func() {
	engine.lock.Lock()
	engine.stack = append(engine.stack, scopeFrame{runtime: rt, lite: true})
	return engine.exit
}

// enterNoRuntime an entry with no current runtime, for engine-wide work
// that touches no script context
func (engine *Engine) enterNoRuntime() func() {
	engine.lock.Lock()
	engine.stack = append(engine.stack, scopeFrame{lite: true})
	return engine.exit
}

// exit pop the innermost frame. The microtask checkpoint runs exactly once
// per outermost full entry, and never while another checkpoint is active.
func (engine *Engine) exit() {

	top := engine.stack[len(engine.stack)-1]
	engine.stack = engine.stack[:len(engine.stack)-1]

	if !top.lite && len(engine.stack) == 0 && top.runtime != nil && top.runtime.context != nil {
		if engine.inCheckpoint.CompareAndSwap(0, 1) {
			top.runtime.context.PerformMicrotaskCheckpoint()
			engine.inCheckpoint.Store(0)
		}
	}

	engine.lock.Unlock()
}

// CurrentRuntime the runtime of the innermost frame carrying one, or nil.
// Only meaningful on the goroutine holding the engine; callbacks invoked by
// the engine from inside a scope use it as the outermost-boundary fallback
// where no runtime parameter can be threaded through.
func (engine *Engine) CurrentRuntime() *Runtime {
	if !engine.lock.HeldByCaller() {
		return nil
	}
	for i := len(engine.stack) - 1; i >= 0; i-- {
		if engine.stack[i].runtime != nil {
			return engine.stack[i].runtime
		}
	}
	return nil
}

// HoldsLock report whether the calling goroutine already owns the engine.
// The secondary-runtime subsystem queries this before choosing between
// enter and enterLite.
func (engine *Engine) HoldsLock() bool {
	return engine.lock.HeldByCaller()
}
