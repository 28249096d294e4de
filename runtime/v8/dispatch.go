package v8

import (
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/yaoapp/kun/log"
	"github.com/gridworks/scripting/host"
	"github.com/gridworks/scripting/runtime/v8/bridge"
	"rogchap.com/v8go"
)

// dispatch run one routine inside a scope. Script-level exceptions are
// reported to the trace sink and never propagate; structural failures come
// back as StatusFailed. collect extracts Go-owned data from the result and
// runs before the scope exits: reading a result can execute guest code (a
// toString), which must never happen with the engine released.
func (rt *Runtime) dispatch(action string, slot int, build func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error), collect func(value *v8go.Value)) host.Status {

	if rt.status != StatusReady {
		return host.StatusOK
	}

	fn := rt.routines[slot]
	if fn == nil {
		return host.StatusOK
	}

	engine, err := current()
	if err != nil {
		log.Error("[V8] %s: %s", action, err.Error())
		return host.StatusFailed
	}

	exit := engine.enter(rt)
	defer exit()

	args, err := build(engine, rt.context)
	if err != nil {
		log.Error("[V8] %s: %s", action, err.Error())
		return host.StatusFailed
	}

	value, err := fn.Call(v8go.Undefined(engine.iso), args...)
	if err != nil {
		rt.reportException(action, err)
		return host.StatusReported
	}

	if collect != nil && value != nil {
		collect(value)
	}

	return host.StatusOK
}

// Tick invoke the tick routine with the current monotonic millisecond
// timestamp
func (rt *Runtime) Tick() host.Status {
	return rt.dispatch("tick", routineTick, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {
		now, err := v8go.NewValue(engine.iso, float64(engine.TickCount()))
		if err != nil {
			return nil, err
		}
		return []v8go.Valuer{now}, nil
	}, nil)
}

// DeliverEvent invoke the event routine with a copy of the payload as a
// binary view
func (rt *Runtime) DeliverEvent(name string, payload []byte, source string) host.Status {
	return rt.dispatch("event", routineEvent, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {

		jsName, err := v8go.NewValue(engine.iso, name)
		if err != nil {
			return nil, err
		}

		jsPayload, err := bridge.JsUint8Array(ctx, payload)
		if err != nil {
			return nil, err
		}

		jsSource, err := v8go.NewValue(engine.iso, source)
		if err != nil {
			return nil, err
		}

		return []v8go.Valuer{jsName, jsPayload, jsSource}, nil
	}, nil)
}

// InvokeRef invoke the call-ref routine. A script exception is reported and
// yields an empty result, not a failure; callers must treat "no result" as a
// valid outcome.
func (rt *Runtime) InvokeRef(refIndex int32, args []byte) ([]byte, host.Status) {

	result := []byte{}
	status := rt.dispatch("callRef", routineCallRef, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {

		jsRef, err := v8go.NewValue(engine.iso, refIndex)
		if err != nil {
			return nil, err
		}

		jsArgs, err := bridge.JsUint8Array(ctx, args)
		if err != nil {
			return nil, err
		}

		return []v8go.Valuer{jsRef, jsArgs}, nil
	}, func(value *v8go.Value) {

		if value.IsNull() || value.IsUndefined() {
			return
		}

		if value.IsUint8Array() || value.IsArrayBufferView() {
			if payload, err := bridge.GoBytes(value); err == nil {
				result = payload
			}
			return
		}

		if value.IsString() {
			result = []byte(value.String())
		}
	})

	return result, status
}

// DuplicateRef invoke the duplicate-ref routine. Returns -1 on script
// exception or when the routine returns a non-integer.
func (rt *Runtime) DuplicateRef(refIndex int32) (int32, host.Status) {

	newRef := int32(-1)
	status := rt.dispatch("duplicateRef", routineDuplicateRef, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {
		jsRef, err := v8go.NewValue(engine.iso, refIndex)
		if err != nil {
			return nil, err
		}
		return []v8go.Valuer{jsRef}, nil
	}, func(value *v8go.Value) {
		if !value.IsNumber() {
			return
		}
		f := value.Number()
		if i := int64(f); float64(i) == f {
			newRef = int32(i)
		}
	})

	return newRef, status
}

// RemoveRef invoke the delete-ref routine; errors are reported, never
// propagated
func (rt *Runtime) RemoveRef(refIndex int32) host.Status {
	return rt.dispatch("deleteRef", routineDeleteRef, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {
		jsRef, err := v8go.NewValue(engine.iso, refIndex)
		if err != nil {
			return nil, err
		}
		return []v8go.Valuer{jsRef}, nil
	}, nil)
}

// WalkStack invoke the stack-trace routine with two opaque boundary hints
// and feed each decoded frame of the returned frame list to the visitor.
// Decoding errors abort the walk silently; partial results are acceptable.
// Nil hints fall back to the boundaries last submitted by the guest.
func (rt *Runtime) WalkStack(boundaryStart []byte, boundaryEnd []byte, visitor host.StackWalkVisitor) host.Status {

	if boundaryStart == nil {
		boundaryStart = rt.boundaryStart
	}
	if boundaryEnd == nil {
		boundaryEnd = rt.boundaryEnd
	}

	var payload []byte
	status := rt.dispatch("stackTrace", routineStackTrace, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {

		jsStart, err := bridge.JsUint8Array(ctx, boundaryStart)
		if err != nil {
			return nil, err
		}

		jsEnd, err := bridge.JsUint8Array(ctx, boundaryEnd)
		if err != nil {
			return nil, err
		}

		return []v8go.Valuer{jsStart, jsEnd}, nil
	}, func(value *v8go.Value) {

		if value.IsNull() || value.IsUndefined() {
			return
		}

		if data, err := bridge.GoBytes(value); err == nil {
			payload = data
		}
	})

	if status != host.StatusOK || payload == nil {
		return status
	}

	var frames []msgpack.RawMessage
	if err := msgpack.Unmarshal(payload, &frames); err != nil {
		return status
	}

	for _, frame := range frames {
		if !visitor.SubmitStackFrame(frame) {
			break
		}
	}

	return status
}

// EmitWarning look up the guest-side console.warn sink by name at call time
// and hand it the channel-prefixed message; an absent sink drops the warning
func (rt *Runtime) EmitWarning(channel string, message string) host.Status {

	if rt.status != StatusReady {
		return host.StatusOK
	}

	engine, err := current()
	if err != nil {
		return host.StatusFailed
	}

	exit := engine.enter(rt)
	defer exit()

	warn, recv := rt.lookupWarnSink()
	if warn == nil {
		return host.StatusOK
	}

	text := fmt.Sprintf("[%s] %s", channel, strings.TrimRight(message, "\n"))
	jsText, err := v8go.NewValue(engine.iso, text)
	if err != nil {
		return host.StatusFailed
	}

	if _, err := warn.Call(recv, jsText); err != nil {
		rt.reportException("emitWarning", err)
		return host.StatusReported
	}

	return host.StatusOK
}

// DeliverUnhandledRejection invoke the unhandled-rejection routine with an
// error value carrying the rejection message
func (rt *Runtime) DeliverUnhandledRejection(message string) host.Status {
	return rt.dispatch("unhandledRejection", routineRejection, func(engine *Engine, ctx *v8go.Context) ([]v8go.Valuer, error) {
		return []v8go.Valuer{bridge.JsError(ctx, message)}, nil
	}, nil)
}

// lookupWarnSink find console.warn in the guest, not cached: the guest may
// replace console at any time
func (rt *Runtime) lookupWarnSink() (*v8go.Function, *v8go.Value) {

	console, err := rt.context.Global().Get("console")
	if err != nil || console == nil || !console.IsObject() {
		return nil, nil
	}

	consoleObj, err := console.AsObject()
	if err != nil {
		return nil, nil
	}

	warnValue, err := consoleObj.Get("warn")
	if err != nil || warnValue == nil || !warnValue.IsFunction() {
		return nil, nil
	}

	warn, err := warnValue.AsFunction()
	if err != nil {
		return nil, nil
	}

	return warn, console
}
