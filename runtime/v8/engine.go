package v8

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yaoapp/kun/log"
	"github.com/gridworks/scripting/application"
	"github.com/gridworks/scripting/runtime/v8/refs"
	"rogchap.com/v8go"
)

// Engine the process-wide scripting engine: one isolate shared by every
// runtime, guarded by a single reentrant lock. Constructed once by Start and
// torn down only by Stop at process exit, never mid-run.
type Engine struct {
	iso     *v8go.Isolate
	option  *Option
	refs    *refs.Registry
	sources application.Application

	lock  engineLock
	stack []scopeFrame

	// counts active microtask checkpoints; a checkpoint must never start
	// another one (the engine may collect garbage inside the first)
	inCheckpoint atomic.Int32

	boot time.Time
}

var engine *Engine
var engineMu sync.Mutex

// Start boot the shared engine
func Start(option *Option) error {
	engineMu.Lock()
	defer engineMu.Unlock()

	if engine != nil {
		return fmt.Errorf("[V8] the engine is already running")
	}

	if option == nil {
		option = &Option{}
	}
	option.Validate()

	var sources application.Application
	if application.App != nil {
		cache, err := application.NewCache(application.App, option.SourceCacheSize)
		if err != nil {
			return err
		}
		sources = cache
	}

	log.Info("[V8] Start the scripting engine")
	engine = &Engine{
		iso:     v8go.NewIsolate(),
		option:  option,
		refs:    refs.NewRegistry(),
		sources: sources,
		boot:    time.Now(),
	}

	return nil
}

// Stop tear the engine down. Runtimes must be destroyed first. The engine
// pointer is cleared before the engine lock is taken: new dispatches fail
// fast, engine queries stay responsive while the stopper waits, and the
// isolate is disposed only once the last scope has drained.
func Stop() {
	engineMu.Lock()
	stopping := engine
	engine = nil
	engineMu.Unlock()

	if stopping == nil {
		return
	}

	stopping.lock.Lock()
	stopping.iso.Dispose()
	stopping.lock.Unlock()

	log.Info("[V8] Stop the scripting engine")
}

// Running report whether the engine has been started
func Running() bool {
	engineMu.Lock()
	defer engineMu.Unlock()
	return engine != nil
}

func current() (*Engine, error) {
	engineMu.Lock()
	defer engineMu.Unlock()
	if engine == nil {
		return nil, fmt.Errorf("[V8] the engine is not running, call Start first")
	}
	return engine, nil
}

// Refs the process-wide function reference registry
func (engine *Engine) Refs() *refs.Registry {
	return engine.refs
}

// TickCount monotonic milliseconds since the engine booted
func (engine *Engine) TickCount() int64 {
	return time.Since(engine.boot).Milliseconds()
}

// HeapHealthy check the isolate heap against the option thresholds
func (engine *Engine) HeapHealthy() bool {

	stat := engine.iso.GetHeapStatistics()
	if stat.TotalHeapSize > engine.option.HeapSizeRelease {
		return false
	}

	if stat.TotalAvailableSize < engine.option.HeapAvailableSize {
		return false
	}

	return true
}

// DrainDeferredReleases the host driver's per-tick hook: frees every
// function reference queued for release since the last drain. Must be called
// outside any scope the caller holds.
func DrainDeferredReleases() int {
	engine, err := current()
	if err != nil {
		return 0
	}
	return engine.refs.DrainDeferredReleases()
}
