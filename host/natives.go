package host

import (
	"fmt"
	"sync"
)

// ArgKind the native argument slot kinds
type ArgKind int

// Argument slot kinds. A script value maps to exactly one slot, except
// vector arrays which expand to one Float32 slot per component.
const (
	ArgInt64 ArgKind = iota
	ArgFloat64
	ArgFloat32
	ArgBool
	ArgString
	ArgBuffer
	ArgMetaPointer
	ArgInt32
)

// ResultKind the native result kinds
type ResultKind int

// Result kinds a native function may emit.
const (
	ResBool ResultKind = iota
	ResInt32
	ResInt64
	ResFloat
	ResVector3
	ResCString
	ResLString
	ResObject
)

// MetaField opaque pointer tokens handed to the guest and pushed back as
// typed pointer arguments.
type MetaField int

// The metafield catalog.
const (
	PointerValueInteger MetaField = iota
	PointerValueFloat
	PointerValueVector
	ReturnResultAnyway
	ResultAsInteger
	ResultAsLong
	ResultAsFloat
	ResultAsString
	ResultAsVector
	ResultAsObject
	MetaFieldMax
)

// Argument one typed native argument slot
type Argument struct {
	Kind  ArgKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Bytes []byte
	Meta  MetaField
}

// Result one typed native result
type Result struct {
	Kind  ResultKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Null  bool // ResCString only: a null C string
	Vec   [3]float32
	Bytes []byte // ResObject: the serialized object payload
}

// Call a single native invocation: the function identifier, the argument
// slots pushed by the marshaler, and the results emitted by the native.
type Call struct {
	Hash    uint64
	Args    []Argument
	Results []Result
}

// NewCall create a call for the given native identifier
func NewCall(hash uint64) *Call {
	return &Call{Hash: hash}
}

// PushInt64 append a 64-bit integer slot
func (c *Call) PushInt64(v int64) {
	c.Args = append(c.Args, Argument{Kind: ArgInt64, Int: v})
}

// PushFloat64 append a 64-bit float slot
func (c *Call) PushFloat64(v float64) {
	c.Args = append(c.Args, Argument{Kind: ArgFloat64, Float: v})
}

// PushFloat32 append a 32-bit float slot (vector components)
func (c *Call) PushFloat32(v float32) {
	c.Args = append(c.Args, Argument{Kind: ArgFloat32, Float: float64(v)})
}

// PushBool append a boolean slot
func (c *Call) PushBool(v bool) {
	c.Args = append(c.Args, Argument{Kind: ArgBool, Bool: v})
}

// PushString append a string slot. The string must be arena-owned; it is
// only valid for the duration of this call.
func (c *Call) PushString(v string) {
	c.Args = append(c.Args, Argument{Kind: ArgString, Str: v})
}

// PushBuffer append a buffer slot referencing the payload for the duration
// of the call
func (c *Call) PushBuffer(v []byte) {
	c.Args = append(c.Args, Argument{Kind: ArgBuffer, Bytes: v})
}

// PushMeta append an opaque metafield pointer slot
func (c *Call) PushMeta(v MetaField) {
	c.Args = append(c.Args, Argument{Kind: ArgMetaPointer, Meta: v})
}

// PushInt32 append a 32-bit integer slot
func (c *Call) PushInt32(v int32) {
	c.Args = append(c.Args, Argument{Kind: ArgInt32, Int: int64(v)})
}

// ReturnBool emit a boolean result
func (c *Call) ReturnBool(v bool) {
	c.Results = append(c.Results, Result{Kind: ResBool, Bool: v})
}

// ReturnInt32 emit a 32-bit integer result
func (c *Call) ReturnInt32(v int32) {
	c.Results = append(c.Results, Result{Kind: ResInt32, Int: int64(v)})
}

// ReturnInt64 emit a 64-bit integer result
func (c *Call) ReturnInt64(v int64) {
	c.Results = append(c.Results, Result{Kind: ResInt64, Int: v})
}

// ReturnFloat emit a float result
func (c *Call) ReturnFloat(v float32) {
	c.Results = append(c.Results, Result{Kind: ResFloat, Float: float64(v)})
}

// ReturnVector3 emit a 3-component vector result
func (c *Call) ReturnVector3(x, y, z float32) {
	c.Results = append(c.Results, Result{Kind: ResVector3, Vec: [3]float32{x, y, z}})
}

// ReturnCString emit a C-string result; null yields a null script value
func (c *Call) ReturnCString(v string, null bool) {
	c.Results = append(c.Results, Result{Kind: ResCString, Str: v, Null: null})
}

// ReturnLString emit a length-prefixed string result
func (c *Call) ReturnLString(v string) {
	c.Results = append(c.Results, Result{Kind: ResLString, Str: v})
}

// ReturnObject emit a serialized object payload result
func (c *Call) ReturnObject(payload []byte) {
	c.Results = append(c.Results, Result{Kind: ResObject, Bytes: payload})
}

// NativeFunc a host native. It reads the argument slots and emits zero or
// more results on the call.
type NativeFunc func(call *Call) error

// Natives the native function catalog keyed by 64-bit identifier
type Natives struct {
	mu    sync.RWMutex
	funcs map[uint64]NativeFunc
}

// NewNatives create an empty catalog
func NewNatives() *Natives {
	return &Natives{funcs: map[uint64]NativeFunc{}}
}

// Register add a native. Re-registering an identifier replaces it.
func (n *Natives) Register(hash uint64, fn NativeFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.funcs[hash] = fn
}

// Invoke run the native for the call's identifier
func (n *Natives) Invoke(call *Call) error {
	n.mu.RLock()
	fn, has := n.funcs[call.Hash]
	n.mu.RUnlock()
	if !has {
		return fmt.Errorf("native 0x%x does not exist", call.Hash)
	}
	return fn(call)
}
