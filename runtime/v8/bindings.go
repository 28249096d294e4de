package v8

import (
	"strings"

	"github.com/gridworks/scripting/host"
	"github.com/gridworks/scripting/runtime/v8/bridge"
	"rogchap.com/v8go"
)

// globalName the guest-facing registration/bridge object
const globalName = "Grid"

// bindGlobals install the Grid global into the runtime context. The caller
// holds a scope.
func (rt *Runtime) bindGlobals(engine *Engine, ctx *v8go.Context) error {

	iso := engine.iso
	tmpl := v8go.NewObjectTemplate(iso)

	tmpl.Set("trace", rt.traceFn(iso))
	tmpl.Set("getTickCount", rt.getTickCount(iso, engine))
	tmpl.Set("getResourcePath", rt.getResourcePath(iso))

	tmpl.Set("setTickFunction", rt.routineSetter(iso, routineTick))
	tmpl.Set("setEventFunction", rt.routineSetter(iso, routineEvent))
	tmpl.Set("setCallRefFunction", rt.routineSetter(iso, routineCallRef))
	tmpl.Set("setDuplicateRefFunction", rt.routineSetter(iso, routineDuplicateRef))
	tmpl.Set("setDeleteRefFunction", rt.routineSetter(iso, routineDeleteRef))
	tmpl.Set("setStackTraceFunction", rt.routineSetter(iso, routineStackTrace))
	tmpl.Set("setUnhandledPromiseRejectionFunction", rt.routineSetter(iso, routineRejection))

	tmpl.Set("makeFunctionReference", rt.makeFunctionReference(iso, engine))
	tmpl.Set("queueRefRelease", rt.queueRefRelease(iso, engine))
	tmpl.Set("canonicalizeRef", rt.canonicalizeRefFn(iso))

	tmpl.Set("invokeNative", rt.invokeNative(iso))
	tmpl.Set("invokeNativeByHash", rt.invokeNativeByHash(iso))

	tmpl.Set("submitBoundaryStart", rt.submitBoundary(iso, true))
	tmpl.Set("submitBoundaryEnd", rt.submitBoundary(iso, false))

	tmpl.Set("read", rt.readFile(iso, engine, false))
	tmpl.Set("readbuffer", rt.readFile(iso, engine, true))

	tmpl.Set("pointerValueInt", rt.metaGetter(iso, host.PointerValueInteger))
	tmpl.Set("pointerValueFloat", rt.metaGetter(iso, host.PointerValueFloat))
	tmpl.Set("pointerValueVector", rt.metaGetter(iso, host.PointerValueVector))
	tmpl.Set("returnResultAnyway", rt.metaGetter(iso, host.ReturnResultAnyway))
	tmpl.Set("resultAsInteger", rt.metaGetter(iso, host.ResultAsInteger))
	tmpl.Set("resultAsLong", rt.metaGetter(iso, host.ResultAsLong))
	tmpl.Set("resultAsFloat", rt.metaGetter(iso, host.ResultAsFloat))
	tmpl.Set("resultAsString", rt.metaGetter(iso, host.ResultAsString))
	tmpl.Set("resultAsVector", rt.metaGetter(iso, host.ResultAsVector))
	tmpl.Set("resultAsObject", rt.metaGetter(iso, host.ResultAsObject))

	instance, err := tmpl.NewInstance(ctx)
	if err != nil {
		return err
	}

	return ctx.Global().Set(globalName, instance)
}

// traceFn explicit trace call from the guest; arguments are concatenated
func (rt *Runtime) traceFn(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		parts := []string{}
		for _, arg := range info.Args() {
			parts = append(parts, arg.String())
		}
		rt.trace("%s", strings.Join(parts, ""))
		return v8go.Undefined(iso)
	})
}

func (rt *Runtime) getTickCount(iso *v8go.Isolate, engine *Engine) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		value, err := v8go.NewValue(iso, float64(engine.TickCount()))
		if err != nil {
			return v8go.Undefined(iso)
		}
		return value
	})
}

func (rt *Runtime) getResourcePath(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		value, err := v8go.NewValue(iso, rt.path)
		if err != nil {
			return v8go.Undefined(iso)
		}
		return value
	})
}

// routineSetter a one-shot registration entry. The first registration wins;
// later attempts are silent no-ops against double-initialization scripts.
func (rt *Runtime) routineSetter(iso *v8go.Isolate, slot int) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		if rt.routines[slot] != nil {
			return v8go.Undefined(iso)
		}

		args := info.Args()
		if len(args) < 1 || !args[0].IsFunction() {
			return bridge.JsException(info.Context(), "routine registration expects a function")
		}

		fn, err := args[0].AsFunction()
		if err != nil {
			return bridge.JsException(info.Context(), err)
		}

		rt.routines[slot] = fn
		return v8go.Undefined(iso)
	})
}

// makeFunctionReference expose a host-invokable identifier as a guest
// callable. Wrapper-creation failure discards the entry silently and yields
// undefined; a created wrapper is registered with the finalization watcher
// before being handed back.
func (rt *Runtime) makeFunctionReference(iso *v8go.Isolate, engine *Engine) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		ctx := info.Context()
		args := info.Args()
		if len(args) < 1 {
			return bridge.JsException(ctx, "makeFunctionReference expects an identifier")
		}

		identifier := []byte{}
		if args[0].IsUint8Array() || args[0].IsArrayBufferView() {
			payload, err := bridge.GoBytes(args[0])
			if err != nil {
				return bridge.JsException(ctx, err)
			}
			identifier = payload
		} else {
			identifier = []byte(args[0].String())
		}

		fn, token, err := engine.refs.MakeReference(ctx, rt.handler, identifier)
		if err != nil {
			return v8go.Undefined(iso)
		}

		tokenValue, err := v8go.NewValue(iso, float64(token))
		if err != nil {
			return fn
		}

		watched, err := ctx.Global().MethodCall("__gw_watchRef", fn, tokenValue)
		if err != nil {
			return fn
		}

		return watched
	})
}

// queueRefRelease the enqueue-only half of reference cleanup, called by the
// finalization watcher. No release work happens here.
func (rt *Runtime) queueRefRelease(iso *v8go.Isolate, engine *Engine) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		args := info.Args()
		if len(args) >= 1 && args[0].IsNumber() {
			engine.refs.EnqueueRelease(uint64(args[0].Number()))
		}
		return v8go.Undefined(iso)
	})
}

// canonicalizeRefFn turn a runtime-local ref index into a routable
// identifier, via the host when it canonicalizes, a local form otherwise
func (rt *Runtime) canonicalizeRefFn(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		ctx := info.Context()
		args := info.Args()
		if len(args) < 1 || !args[0].IsNumber() {
			return bridge.JsException(ctx, "canonicalizeRef expects a ref index")
		}

		identifier, err := rt.CanonicalizeRef(args[0].Int32())
		if err != nil {
			return bridge.JsException(ctx, err)
		}

		value, err := v8go.NewValue(iso, identifier)
		if err != nil {
			return bridge.JsException(ctx, err)
		}
		return value
	})
}

// submitBoundary record a stack boundary hint for the next walk
func (rt *Runtime) submitBoundary(iso *v8go.Isolate, start bool) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		args := info.Args()
		if len(args) < 1 {
			return v8go.Undefined(iso)
		}

		payload, err := bridge.GoBytes(args[0])
		if err != nil {
			return bridge.JsException(info.Context(), err)
		}

		if start {
			rt.boundaryStart = payload
		} else {
			rt.boundaryEnd = payload
		}
		return v8go.Undefined(iso)
	})
}

// readFile read a file through the engine's source provider, as a string or
// a buffer
func (rt *Runtime) readFile(iso *v8go.Isolate, engine *Engine, buffer bool) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		ctx := info.Context()
		args := info.Args()
		if len(args) < 1 || !args[0].IsString() {
			return bridge.JsException(ctx, "read expects a file name")
		}

		if engine.sources == nil {
			return bridge.JsException(ctx, "no application loaded")
		}

		data, err := engine.sources.Read(args[0].String())
		if err != nil {
			return bridge.JsException(ctx, err)
		}

		if buffer {
			value, err := bridge.JsUint8Array(ctx, data)
			if err != nil {
				return bridge.JsException(ctx, err)
			}
			return value
		}

		value, err := v8go.NewValue(iso, string(data))
		if err != nil {
			return bridge.JsException(ctx, err)
		}
		return value
	})
}

func (rt *Runtime) metaGetter(iso *v8go.Isolate, field host.MetaField) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		token, err := bridge.MetaToken(info.Context(), field)
		if err != nil {
			return bridge.JsException(info.Context(), err)
		}
		return token
	})
}
