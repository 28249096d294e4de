package v8

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/gridworks/scripting/host"
)

type frameCollector struct {
	frames [][]byte
	limit  int
}

func (c *frameCollector) SubmitStackFrame(frame []byte) bool {
	c.frames = append(c.frames, frame)
	return c.limit == 0 || len(c.frames) < c.limit
}

func TestTick(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setTickFunction(function(now){ globalThis.lastTick = now; });")

	assert.Equal(t, host.StatusOK, rt.Tick())
	assert.Equal(t, "number", eval(t, rt, "typeof globalThis.lastTick"))
}

func TestTickWithoutRoutine(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	assert.Equal(t, host.StatusOK, rt.Tick())
}

func TestTickException(t *testing.T) {
	rt, _, _, sink := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setTickFunction(function(){ throw new Error('tick broke'); });")

	assert.Equal(t, host.StatusReported, rt.Tick())
	assert.Contains(t, sink.last(), fmt.Sprintf("Error calling system tick function in resource %s", rt.Name))
	assert.Contains(t, sink.last(), "tick broke")
	assert.Contains(t, sink.last(), "stack:")
}

func TestRoutineFirstRegistrationWins(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, `
		globalThis.first = 0;
		globalThis.second = 0;
		Grid.setTickFunction(function(){ globalThis.first++; });
		Grid.setTickFunction(function(){ globalThis.second++; });
	`)

	assert.Equal(t, host.StatusOK, rt.Tick())
	assert.Equal(t, "1", eval(t, rt, "globalThis.first"))
	assert.Equal(t, "0", eval(t, rt, "globalThis.second"))
}

func TestDeliverEvent(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, `
		Grid.setEventFunction(function(name, payload, source){
			globalThis.evName = name;
			globalThis.evPayload = Array.from(payload).join(',');
			globalThis.evSource = source;
		});
	`)

	status := rt.DeliverEvent("playerJoined", []byte{1, 2, 3}, "net:42")
	assert.Equal(t, host.StatusOK, status)
	assert.Equal(t, "playerJoined", eval(t, rt, "globalThis.evName"))
	assert.Equal(t, "1,2,3", eval(t, rt, "globalThis.evPayload"))
	assert.Equal(t, "net:42", eval(t, rt, "globalThis.evSource"))
}

func TestInvokeRef(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, `
		Grid.setCallRefFunction(function(ref, args){
			globalThis.refIndex = ref;
			return new Uint8Array([ref, args.length]);
		});
	`)

	result, status := rt.InvokeRef(5, []byte{1, 2})
	assert.Equal(t, host.StatusOK, status)
	assert.Equal(t, []byte{5, 2}, result)
}

func TestInvokeRefException(t *testing.T) {
	rt, _, _, sink := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setCallRefFunction(function(){ throw new Error('ref broke'); });")

	result, status := rt.InvokeRef(1, []byte{})
	assert.Equal(t, host.StatusReported, status)
	assert.Equal(t, []byte{}, result)
	assert.Contains(t, sink.last(), "ref broke")
}

func TestInvokeRefNoResult(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setCallRefFunction(function(){ });")

	result, status := rt.InvokeRef(1, []byte{9})
	assert.Equal(t, host.StatusOK, status)
	assert.Equal(t, []byte{}, result)
}

func TestDuplicateRef(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setDuplicateRefFunction(function(ref){ return 7; });")

	index, status := rt.DuplicateRef(3)
	assert.Equal(t, host.StatusOK, status)
	assert.Equal(t, int32(7), index)
}

func TestDuplicateRefException(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setDuplicateRefFunction(function(){ throw new Error('nope'); });")

	index, status := rt.DuplicateRef(3)
	assert.Equal(t, host.StatusReported, status)
	assert.Equal(t, int32(-1), index)
}

func TestDuplicateRefNonInteger(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setDuplicateRefFunction(function(){ return 'seven'; });")

	index, status := rt.DuplicateRef(3)
	assert.Equal(t, host.StatusOK, status)
	assert.Equal(t, int32(-1), index)
}

func TestRemoveRef(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, `
		globalThis.removed = [];
		Grid.setDeleteRefFunction(function(ref){ globalThis.removed.push(ref); });
	`)

	assert.Equal(t, host.StatusOK, rt.RemoveRef(11))
	assert.Equal(t, host.StatusOK, rt.RemoveRef(12))
	assert.Equal(t, "11,12", eval(t, rt, "globalThis.removed.join(',')"))
}

func TestWalkStack(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	// the routine echoes the start boundary, which carries a packed frame
	// list in this test
	run(t, rt, "Grid.setStackTraceFunction(function(start, end){ return start; });")

	frames, err := msgpack.Marshal([]interface{}{
		map[string]interface{}{"name": "outer", "line": 10},
		map[string]interface{}{"name": "inner", "line": 25},
	})
	assert.Nil(t, err)

	visitor := &frameCollector{}
	status := rt.WalkStack(frames, []byte{}, visitor)
	assert.Equal(t, host.StatusOK, status)
	assert.Len(t, visitor.frames, 2)

	var frame map[string]interface{}
	assert.Nil(t, msgpack.Unmarshal(visitor.frames[0], &frame))
	assert.Equal(t, "outer", frame["name"])
}

func TestWalkStackVisitorStops(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setStackTraceFunction(function(start, end){ return start; });")

	frames, err := msgpack.Marshal([]interface{}{
		map[string]interface{}{"name": "one"},
		map[string]interface{}{"name": "two"},
		map[string]interface{}{"name": "three"},
	})
	assert.Nil(t, err)

	visitor := &frameCollector{limit: 1}
	assert.Equal(t, host.StatusOK, rt.WalkStack(frames, []byte{}, visitor))
	assert.Len(t, visitor.frames, 1)
}

func TestWalkStackMalformedPayload(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "Grid.setStackTraceFunction(function(){ return new Uint8Array([0xc1]); });")

	// decoding errors abort the walk silently
	visitor := &frameCollector{}
	assert.Equal(t, host.StatusOK, rt.WalkStack([]byte{}, []byte{}, visitor))
	assert.Len(t, visitor.frames, 0)
}

func TestWalkStackGuestBoundaries(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	frames, err := msgpack.Marshal([]interface{}{map[string]interface{}{"name": "guest"}})
	assert.Nil(t, err)

	run(t, rt, "Grid.setStackTraceFunction(function(start, end){ return start; });")

	// the guest submits boundary hints; a nil hint falls back to them
	engine, err2 := current()
	assert.Nil(t, err2)
	exit := engine.enter(rt)
	rt.boundaryStart = frames
	exit()

	visitor := &frameCollector{}
	assert.Equal(t, host.StatusOK, rt.WalkStack(nil, []byte{}, visitor))
	assert.Len(t, visitor.frames, 1)
}

func TestWalkStackResultReadInsideScope(t *testing.T) {
	rt, _, natives, _ := newRuntime(t)
	defer rt.Destroy()

	engine, err := current()
	assert.Nil(t, err)

	heldDuringRead := false
	natives.Register(0x77, func(call *host.Call) error {
		heldDuringRead = engine.HoldsLock()
		return nil
	})

	// reading the routine result runs the guest toString, which calls back
	// into the host; the engine must still be held at that point
	run(t, rt, `
		Grid.setStackTraceFunction(function(start, end){
			return { toString: function(){ Grid.invokeNative('0x77'); return ''; } };
		});
	`)

	visitor := &frameCollector{}
	assert.Equal(t, host.StatusOK, rt.WalkStack([]byte{}, []byte{}, visitor))
	assert.True(t, heldDuringRead)
	assert.Len(t, visitor.frames, 0)
}

func TestEmitWarning(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, "globalThis.console = { warn: function(m){ globalThis.lastWarn = m; } };")

	assert.Equal(t, host.StatusOK, rt.EmitWarning("script:unit", "something odd\n"))
	assert.Equal(t, "[script:unit] something odd", eval(t, rt, "globalThis.lastWarn"))
}

func TestEmitWarningNoSink(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	// no console in the context: the warning is dropped, never an error
	assert.Equal(t, host.StatusOK, rt.EmitWarning("script:unit", "dropped"))
}

func TestDeliverUnhandledRejection(t *testing.T) {
	rt, _, _, _ := newRuntime(t)
	defer rt.Destroy()

	run(t, rt, `
		Grid.setUnhandledPromiseRejectionFunction(function(err){
			globalThis.rejection = err.message;
		});
	`)

	assert.Equal(t, host.StatusOK, rt.DeliverUnhandledRejection("promise left hanging"))
	assert.Equal(t, "promise left hanging", eval(t, rt, "globalThis.rejection"))
}

func TestDispatchBeforeReady(t *testing.T) {
	prepare(t)

	rt := New("not-created", "resources/not-created", nil, &testHandler{}, host.NewNatives(), nil)
	assert.Equal(t, host.StatusOK, rt.Tick())

	result, status := rt.InvokeRef(1, []byte{})
	assert.Equal(t, host.StatusOK, status)
	assert.Equal(t, []byte{}, result)
}
