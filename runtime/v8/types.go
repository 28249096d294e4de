package v8

import (
	"github.com/gridworks/scripting/host"
	"github.com/gridworks/scripting/runtime/v8/bridge"
	"rogchap.com/v8go"
)

// Option engine option
type Option struct {
	HeapSizeLimit     uint64   `json:"heapSizeLimit,omitempty" yaml:"heapSizeLimit,omitempty"`         // the isolate heap size limit should be smaller than 1.5G, and the default value is 1518338048 (1.5G)
	HeapSizeRelease   uint64   `json:"heapSizeRelease,omitempty" yaml:"heapSizeRelease,omitempty"`     // the engine is reported unhealthy when reaching this value, and the default value is 52428800 (50M)
	HeapAvailableSize uint64   `json:"heapAvailableSize,omitempty" yaml:"heapAvailableSize,omitempty"` // the engine is reported unhealthy when the available size is smaller than this value, and the default value is 524288000 (500M)
	PlatformScripts   []string `json:"platformScripts,omitempty" yaml:"platformScripts,omitempty"`     // the fixed ordered list of platform scripts loaded after the engine-bridge script
	SourceCacheSize   int      `json:"sourceCacheSize,omitempty" yaml:"sourceCacheSize,omitempty"`     // the LRU source cache size, the default value is 64
}

// Routine kinds. Each runtime carries a table of one-time-settable guest
// callables, one per kind.
const (
	routineTick = iota
	routineEvent
	routineCallRef
	routineDuplicateRef
	routineDeleteRef
	routineStackTrace
	routineRejection
	routineCount
)

// Runtime states
const (
	// StatusCreated the runtime exists but has no execution context yet
	StatusCreated uint8 = iota

	// StatusReady Create succeeded; dispatch operations are live
	StatusReady

	// StatusDestroyed terminal; the dispatch surface must not be called
	StatusDestroyed
)

// Runtime one engine execution context bound to one loaded script unit
type Runtime struct {
	Name       string
	instanceID int32
	path       string
	parent     interface{}

	handler host.CallRefHandler
	natives *host.Natives
	sink    host.TraceSink

	context  *v8go.Context
	routines [routineCount]*v8go.Function
	arena    bridge.Arena
	status   uint8

	// last boundary hints submitted by the guest, consumed by stack walks
	boundaryStart []byte
	boundaryEnd   []byte

	// teardown hook for the optional secondary-runtime subsystem,
	// invoked inside the single environment entry Destroy performs
	secondaryTeardown func()
}
