package bridge

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/gridworks/scripting/host"
	"github.com/vmihailenco/msgpack/v5"
	"rogchap.com/v8go"
)

// ProcessResult convert one native result into a script value by result
// kind. Object payload decoding is best-effort: a malformed payload yields
// null, never an error.
func ProcessResult(ctx *v8go.Context, result host.Result) (*v8go.Value, error) {

	iso := ctx.Isolate()

	switch result.Kind {

	case host.ResBool:
		return v8go.NewValue(iso, result.Bool)

	case host.ResInt32:
		return v8go.NewValue(iso, int32(result.Int))

	case host.ResInt64:
		// widened to a number, precision loss beyond 2^53 accepted
		return v8go.NewValue(iso, float64(result.Int))

	case host.ResFloat:
		return v8go.NewValue(iso, result.Float)

	case host.ResVector3:
		return jsVector(ctx, result.Vec)

	case host.ResCString:
		if result.Null {
			return v8go.Null(iso), nil
		}
		return v8go.NewValue(iso, result.Str)

	case host.ResLString:
		return v8go.NewValue(iso, result.Str)

	case host.ResObject:
		return jsObjectPayload(ctx, result.Bytes)
	}

	return nil, fmt.Errorf("invalid result kind %d", result.Kind)
}

// CollectResults apply the multi-result convention: zero results yields
// undefined, one is returned directly, two or more are collected in order
// into an array (the first moves into slot 0 once a second arrives).
func CollectResults(ctx *v8go.Context, results []host.Result) (*v8go.Value, error) {

	returnValue := v8go.Undefined(ctx.Isolate())

	var array *v8go.Object

	for i, result := range results {
		value, err := ProcessResult(ctx, result)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			returnValue = value
			continue
		}

		if i == 1 {
			arrayValue, err := v8go.JSONParse(ctx, "[]")
			if err != nil {
				return nil, err
			}
			array, err = arrayValue.AsObject()
			if err != nil {
				return nil, err
			}
			if err := array.SetIdx(0, returnValue); err != nil {
				return nil, err
			}
			returnValue = arrayValue
		}

		if err := array.SetIdx(uint32(i), value); err != nil {
			return nil, err
		}
	}

	return returnValue, nil
}

func jsVector(ctx *v8go.Context, vec [3]float32) (*v8go.Value, error) {
	data, err := jsoniter.Marshal([3]float64{float64(vec[0]), float64(vec[1]), float64(vec[2])})
	if err != nil {
		return nil, err
	}
	return v8go.JSONParse(ctx, string(data))
}

// jsObjectPayload reinterpret a packed object payload as a generic JSON
// tree and parse that tree into a script value
func jsObjectPayload(ctx *v8go.Context, payload []byte) (*v8go.Value, error) {

	var tree interface{}
	if err := msgpack.Unmarshal(payload, &tree); err != nil {
		return v8go.Null(ctx.Isolate()), nil
	}

	data, err := jsoniter.Marshal(tree)
	if err != nil {
		return v8go.Null(ctx.Isolate()), nil
	}

	value, err := v8go.JSONParse(ctx, string(data))
	if err != nil {
		return v8go.Null(ctx.Isolate()), nil
	}

	return value, nil
}
