// Package refs manages opaque function references crossing the host/guest
// boundary: guest-visible callables wrapping a host-side identifier, with
// garbage-collection-driven cleanup split into an enqueue-only detection
// phase and a drain phase running at a host-driven safe point.
package refs

import (
	"fmt"
	"sync"

	"github.com/yaoapp/kun/log"
	"github.com/gridworks/scripting/host"
	"github.com/gridworks/scripting/runtime/v8/bridge"
	"rogchap.com/v8go"
)

// Entry one live cross-boundary reference: the owned identifier and the
// persisted guest-visible wrapper
type Entry struct {
	token      uint64
	identifier string
	fn         *v8go.Value
	handler    host.CallRefHandler
}

// Identifier the owned host-side identifier
func (entry *Entry) Identifier() string {
	return entry.identifier
}

// Registry the process-wide reference table plus the deferred-release queue
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*Entry
	next    uint64

	queueMu sync.Mutex
	queue   []*Entry
}

// NewRegistry create an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: map[uint64]*Entry{}}
}

// MakeReference build an entry owning the identifier bytes and expose a new
// guest-visible callable wrapping the invocation trampoline. On wrapper
// creation failure the entry is discarded immediately and nothing is
// returned; no finalization watch is attached in that case.
//
// The returned token must be handed to the guest-side finalization watcher
// (the bootstrap script's FinalizationRegistry) so that collection of the
// wrapper reaches EnqueueRelease.
func (registry *Registry) MakeReference(ctx *v8go.Context, handler host.CallRefHandler, identifier []byte) (*v8go.Value, uint64, error) {

	entry := &Entry{
		identifier: string(identifier),
		handler:    handler,
	}

	tmpl := v8go.NewFunctionTemplate(ctx.Isolate(), registry.trampoline(entry))

	fn := tmpl.GetFunction(ctx)
	if fn == nil {
		// the engine refused the wrapper; drop the entry on the floor
		return nil, 0, fmt.Errorf("could not instantiate the function reference wrapper")
	}

	registry.mu.Lock()
	registry.next++
	entry.token = registry.next
	entry.fn = fn.Value
	registry.entries[entry.token] = entry
	registry.mu.Unlock()

	return fn.Value, entry.token, nil
}

// trampoline the guest-invoked body of a reference wrapper: forward the
// identifier and the binary payload to the host call-ref interface and hand
// the raw result back as a buffer.
func (registry *Registry) trampoline(entry *Entry) v8go.FunctionCallback {
	return func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		ctx := info.Context()
		args := info.Args()

		payload := []byte{}
		if len(args) > 0 {
			var err error
			payload, err = bridge.GoBytes(args[0])
			if err != nil {
				return bridge.JsException(ctx, err)
			}
		}

		result, err := entry.handler.Invoke(entry.identifier, payload)
		if err != nil {
			return bridge.JsException(ctx, err.Error())
		}

		buffer, err := bridge.JsUint8Array(ctx, result)
		if err != nil {
			return bridge.JsException(ctx, err)
		}

		return buffer
	}
}

// EnqueueRelease the detection phase. Called when the engine reports the
// guest-visible wrapper unreachable; the engine may hold internal locks
// here, so no release work happens: the persisted handle is reset and the
// entry moves to the deferred queue.
func (registry *Registry) EnqueueRelease(token uint64) {

	registry.mu.Lock()
	entry, has := registry.entries[token]
	if has {
		delete(registry.entries, token)
		entry.fn = nil
	}
	registry.mu.Unlock()

	if !has {
		return
	}

	registry.queueMu.Lock()
	registry.queue = append(registry.queue, entry)
	registry.queueMu.Unlock()
}

// DrainDeferredReleases the release phase. Must run at a safe point outside
// any engine entry: pops and frees every queued entry, releasing the owned
// identifier. Returns the number of entries released.
func (registry *Registry) DrainDeferredReleases() int {

	registry.queueMu.Lock()
	queue := registry.queue
	registry.queue = nil
	registry.queueMu.Unlock()

	for _, entry := range queue {
		log.Trace("[refs] releasing function reference %s", entry.identifier)
		entry.identifier = ""
		entry.handler = nil
	}

	return len(queue)
}

// Live the number of live (not yet queued) entries
func (registry *Registry) Live() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.entries)
}

// Pending the number of entries awaiting a drain
func (registry *Registry) Pending() int {
	registry.queueMu.Lock()
	defer registry.queueMu.Unlock()
	return len(registry.queue)
}
