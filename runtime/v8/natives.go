package v8

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gridworks/scripting/host"
	"github.com/gridworks/scripting/runtime/v8/bridge"
	"rogchap.com/v8go"
)

// invokeNative the string-hash entry: the first argument is the native
// identifier in hex, the rest are marshaled into argument slots
func (rt *Runtime) invokeNative(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		ctx := info.Context()
		args := info.Args()
		if len(args) < 1 || !args[0].IsString() {
			return bridge.JsException(ctx, "invokeNative expects a native identifier")
		}

		hashstr := strings.TrimPrefix(args[0].String(), "0x")
		hash, err := strconv.ParseUint(hashstr, 16, 64)
		if err != nil {
			return bridge.JsException(ctx, fmt.Sprintf("invalid native identifier %s", args[0].String()))
		}

		return rt.callNative(ctx, hash, args[1:])
	})
}

// invokeNativeByHash the split-hash entry: the identifier travels as two
// 32-bit halves, high then low
func (rt *Runtime) invokeNativeByHash(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {

		ctx := info.Context()
		args := info.Args()
		if len(args) < 2 || !args[0].IsNumber() || !args[1].IsNumber() {
			return bridge.JsException(ctx, "invokeNativeByHash expects two identifier halves")
		}

		hash := uint64(args[0].Uint32())<<32 | uint64(args[1].Uint32())
		return rt.callNative(ctx, hash, args[2:])
	})
}

// callNative marshal the arguments, run the native, and assemble the
// results. Marshaling and native failures surface as thrown script errors.
func (rt *Runtime) callNative(ctx *v8go.Context, hash uint64, args []*v8go.Value) *v8go.Value {

	if rt.natives == nil {
		return bridge.JsException(ctx, "no native catalog installed")
	}

	call := host.NewCall(hash)
	rt.arena.BeginCall()

	for _, arg := range args {
		if err := bridge.PushArgument(call, &rt.arena, arg); err != nil {
			return bridge.JsException(ctx, err)
		}
	}

	if err := rt.natives.Invoke(call); err != nil {
		return bridge.JsException(ctx, err)
	}

	result, err := bridge.CollectResults(ctx, call.Results)
	if err != nil {
		return bridge.JsException(ctx, err)
	}

	return result
}

// CanonicalizeRef turn a runtime-local ref index into a globally routable
// identifier. Falls back to a local form when the host's call-ref handler
// does not canonicalize.
func (rt *Runtime) CanonicalizeRef(refIndex int32) (string, error) {
	if canon, ok := rt.handler.(host.RefCanonicalizer); ok {
		return canon.CanonicalizeRef(refIndex, rt.instanceID)
	}
	return fmt.Sprintf("ref:%d:%d", refIndex, rt.instanceID), nil
}
