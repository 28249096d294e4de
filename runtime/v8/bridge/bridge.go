package bridge

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"rogchap.com/v8go"
)

// Undefined the undefined value marker
type Undefined byte

// JsValue cast a golang value to a JavaScript value
//
// *  ---------------------------------------------------
// *  | Golang                  | JavaScript            |
// *  ---------------------------------------------------
// *  | nil                     | null                  |
// *  | bool                    | boolean               |
// *  | int, int8...int32       | number(int)           |
// *  | uint, uint8...uint32    | number(int)           |
// *  | float32, float64        | number(float)         |
// *  | int64, uint64, *big.Int | bigint                |
// *  | string                  | string                |
// *  | []byte                  | object(Uint8Array)    |
// *  | map, slice, struct      | object (via JSON)     |
// *  ---------------------------------------------------
func JsValue(ctx *v8go.Context, value interface{}) (*v8go.Value, error) {

	switch v := value.(type) {

	case string, int32, uint32, int64, uint64, bool, *big.Int, float64:
		return v8go.NewValue(ctx.Isolate(), v)

	case int:
		return v8go.NewValue(ctx.Isolate(), int32(v))

	case int8:
		return v8go.NewValue(ctx.Isolate(), int32(v))

	case int16:
		return v8go.NewValue(ctx.Isolate(), int32(v))

	case uint:
		return v8go.NewValue(ctx.Isolate(), int32(v))

	case uint8:
		return v8go.NewValue(ctx.Isolate(), int32(v))

	case uint16:
		return v8go.NewValue(ctx.Isolate(), int32(v))

	case float32:
		return v8go.NewValue(ctx.Isolate(), float64(v))

	case []byte:
		return JsUint8Array(ctx, v)

	default:
		return jsValueParse(ctx, v)
	}
}

// JsUint8Array cast a byte payload to a JavaScript Uint8Array. v8go cannot
// construct typed arrays directly, so the bytes travel as a hex string
// through the engine-bridge helper installed by the bootstrap script.
func JsUint8Array(ctx *v8go.Context, payload []byte) (*v8go.Value, error) {

	hexstr := hex.EncodeToString(payload)
	jsString, err := v8go.NewValue(ctx.Isolate(), hexstr)
	if err != nil {
		return nil, err
	}

	jsValue, err := ctx.Global().MethodCall("__gw_hexToBytes", jsString)
	if err != nil {
		return nil, err
	}

	return jsValue, nil
}

// GoBytes cast a JavaScript Uint8Array (or any array-buffer view) to bytes.
// Uint8Array.toString() joins the byte values with commas.
func GoBytes(value *v8go.Value) ([]byte, error) {
	res := []byte{}
	str := value.String()
	if str == "" {
		return res, nil
	}

	codes := strings.Split(str, ",")
	for _, code := range codes {
		c, err := strconv.Atoi(code)
		if err != nil {
			return nil, err
		}
		res = append(res, byte(c))
	}
	return res, nil
}

// GoValue cast a JavaScript value to a golang value
//
// *  ---------------------------------------------------
// *  | JavaScript            | Golang                  |
// *  ---------------------------------------------------
// *  | null                  | nil                     |
// *  | undefined             | bridge.Undefined        |
// *  | boolean               | bool                    |
// *  | number(int)           | int                     |
// *  | number(float)         | float64                 |
// *  | bigint                | int64                   |
// *  | string                | string                  |
// *  | object(Uint8Array)    | []byte                  |
// *  | object, array         | map / []interface{}     |
// *  ---------------------------------------------------
func GoValue(value *v8go.Value) (interface{}, error) {

	if value.IsNull() {
		return nil, nil
	}

	if value.IsUndefined() {
		return Undefined(0x00), nil
	}

	if value.IsString() {
		return value.String(), nil
	}

	if value.IsBoolean() {
		return value.Boolean(), nil
	}

	if value.IsNumber() {
		f := value.Number()
		if i := int64(f); float64(i) == f {
			return int(i), nil
		}
		return f, nil
	}

	if value.IsBigInt() {
		return value.BigInt().Int64(), nil
	}

	if value.IsUint8Array() {
		return GoBytes(value)
	}

	var goValue interface{}
	return goValueParse(value, goValue)
}

// JsException throw a script-level error carrying the message
func JsException(ctx *v8go.Context, message interface{}) *v8go.Value {
	msg := ""
	switch v := message.(type) {
	case string:
		msg = v
	case error:
		msg = v.Error()
	default:
		data, _ := jsoniter.Marshal(v)
		msg = string(data)
	}
	return ctx.Isolate().ThrowException(JsError(ctx, msg))
}

// JsError build a JavaScript error object without throwing it
func JsError(ctx *v8go.Context, message string) *v8go.Value {
	global := ctx.Global()
	errorObj, _ := global.Get("Error")
	if errorObj != nil && errorObj.IsFunction() {
		fn, _ := errorObj.AsFunction()
		m, _ := v8go.NewValue(ctx.Isolate(), message)
		v, err := fn.Call(v8go.Undefined(ctx.Isolate()), m)
		if err == nil {
			return v
		}
	}

	tmpl := v8go.NewObjectTemplate(ctx.Isolate())
	inst, _ := tmpl.NewInstance(ctx)
	inst.Set("message", message)
	return inst.Value
}

func jsValueParse(ctx *v8go.Context, value interface{}) (*v8go.Value, error) {

	data, err := jsoniter.Marshal(value)
	if err != nil {
		return nil, err
	}

	jsValue, err := v8go.JSONParse(ctx, string(data))
	if err != nil {
		return nil, err
	}

	return jsValue, nil
}

func goValueParse(value *v8go.Value, v interface{}) (interface{}, error) {

	data, err := value.MarshalJSON()
	if err != nil {
		return nil, err
	}

	ptr := &v
	err = jsoniter.Unmarshal(data, ptr)
	if err != nil {
		return nil, err
	}

	return *ptr, nil
}
