package bridge

import (
	"fmt"

	"github.com/gridworks/scripting/host"
	"rogchap.com/v8go"
)

// metaKey the reserved field carrying a metafield token on guest objects
const metaKey = "__meta"

// dataKey the reserved field of the "opaque handle disguised as an object"
// convention
const dataKey = "__data"

// MetaToken build the guest-visible token object for a metafield
func MetaToken(ctx *v8go.Context, field host.MetaField) (*v8go.Value, error) {
	tmpl := v8go.NewObjectTemplate(ctx.Isolate())
	inst, err := tmpl.NewInstance(ctx)
	if err != nil {
		return nil, err
	}
	if err := inst.Set(metaKey, int32(field)); err != nil {
		return nil, err
	}
	return inst.Value, nil
}

// PushArgument classify one script value and append exactly one native
// argument slot (vector arrays append one float slot per component). The
// classification order is fixed: number, boolean, string, null/undefined,
// metafield token, vector array, buffer view, __data object, reject.
func PushArgument(call *host.Call, arena *Arena, value *v8go.Value) error {

	if value.IsNumber() {
		f := value.Number()
		if i := int64(f); float64(i) == f {
			call.PushInt64(i)
			return nil
		}
		call.PushFloat64(f)
		return nil
	}

	if value.IsBoolean() {
		call.PushBool(value.Boolean())
		return nil
	}

	if value.IsString() {
		call.PushString(arena.Assign(value.String()))
		return nil
	}

	// null/undefined: add '0'
	if value.IsNull() || value.IsUndefined() {
		call.PushInt64(0)
		return nil
	}

	if field, ok := metaField(value); ok {
		call.PushMeta(field)
		return nil
	}

	// placeholder vectors
	if value.IsArray() {
		return pushVector(call, value)
	}

	if value.IsUint8Array() || value.IsArrayBufferView() {
		payload, err := GoBytes(value)
		if err != nil {
			return err
		}
		call.PushBuffer(payload)
		return nil
	}

	if value.IsObject() {
		return pushDataObject(call, value)
	}

	return fmt.Errorf("invalid V8 value: %s", value.String())
}

func pushVector(call *host.Call, value *v8go.Value) error {

	obj, err := value.AsObject()
	if err != nil {
		return err
	}

	lengthValue, err := obj.Get("length")
	if err != nil {
		return err
	}

	length := int(lengthValue.Uint32())
	if length < 2 || length > 4 {
		return fmt.Errorf("arrays should be vectors (wrong number of values)")
	}

	for i := 0; i < length; i++ {
		item, err := obj.GetIdx(uint32(i))
		if err != nil || item == nil || !item.IsNumber() {
			return fmt.Errorf("invalid vector array value")
		}
		call.PushFloat32(float32(item.Number()))
	}

	return nil
}

func pushDataObject(call *host.Call, value *v8go.Value) error {

	obj, err := value.AsObject()
	if err != nil {
		return err
	}

	data, err := obj.Get(dataKey)
	if err != nil || data == nil || !data.IsNumber() {
		return fmt.Errorf("__data field does not contain a number")
	}

	call.PushInt32(data.Int32())
	return nil
}

func metaField(value *v8go.Value) (host.MetaField, bool) {

	if !value.IsObject() || value.IsArray() {
		return 0, false
	}

	obj, err := value.AsObject()
	if err != nil {
		return 0, false
	}

	if !obj.Has(metaKey) {
		return 0, false
	}

	meta, err := obj.Get(metaKey)
	if err != nil || !meta.IsNumber() {
		return 0, false
	}

	field := host.MetaField(meta.Int32())
	if field < 0 || field >= host.MetaFieldMax {
		return 0, false
	}

	return field, true
}
