package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/gridworks/scripting/host"
	"rogchap.com/v8go"
)

func pushOne(t *testing.T, ctx *v8go.Context, script string) (*host.Call, error) {
	value, err := ctx.RunScript(script, "arg.js")
	if err != nil {
		t.Fatal(err)
	}

	call := host.NewCall(0x1)
	arena := &Arena{}
	arena.BeginCall()
	return call, PushArgument(call, arena, value)
}

func TestPushArgumentInteger(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "42")
	assert.Nil(t, err)
	assert.Len(t, call.Args, 1)
	assert.Equal(t, host.ArgInt64, call.Args[0].Kind)
	assert.Equal(t, int64(42), call.Args[0].Int)

	// negative integers keep their exact representation
	call, err = pushOne(t, ctx, "-7")
	assert.Nil(t, err)
	assert.Equal(t, host.ArgInt64, call.Args[0].Kind)
	assert.Equal(t, int64(-7), call.Args[0].Int)
}

func TestPushArgumentFloat(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "0.618")
	assert.Nil(t, err)
	assert.Equal(t, host.ArgFloat64, call.Args[0].Kind)
	assert.Equal(t, 0.618, call.Args[0].Float)
}

func TestPushArgumentBool(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "true")
	assert.Nil(t, err)
	assert.Equal(t, host.ArgBool, call.Args[0].Kind)
	assert.True(t, call.Args[0].Bool)
}

func TestPushArgumentString(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "'hello'")
	assert.Nil(t, err)
	assert.Equal(t, host.ArgString, call.Args[0].Kind)
	assert.Equal(t, "hello", call.Args[0].Str)
}

func TestPushArgumentNullUndefined(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	for _, script := range []string{"null", "undefined"} {
		call, err := pushOne(t, ctx, script)
		assert.Nil(t, err)
		assert.Equal(t, host.ArgInt64, call.Args[0].Kind)
		assert.Equal(t, int64(0), call.Args[0].Int)
	}
}

func TestPushArgumentVector(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "[1.5, 2.5, 3.5]")
	assert.Nil(t, err)
	assert.Len(t, call.Args, 3)
	for i, expect := range []float64{1.5, 2.5, 3.5} {
		assert.Equal(t, host.ArgFloat32, call.Args[i].Kind)
		assert.Equal(t, expect, call.Args[i].Float)
	}

	// 2- and 4-component vectors are accepted too
	call, err = pushOne(t, ctx, "[1, 2]")
	assert.Nil(t, err)
	assert.Len(t, call.Args, 2)

	call, err = pushOne(t, ctx, "[1, 2, 3, 4]")
	assert.Nil(t, err)
	assert.Len(t, call.Args, 4)
}

func TestPushArgumentVectorWrongLength(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	for _, script := range []string{"[1]", "[1,2,3,4,5]", "[]"} {
		_, err := pushOne(t, ctx, script)
		assert.NotNil(t, err, script)
		assert.Contains(t, err.Error(), "wrong number of values")
	}
}

func TestPushArgumentVectorBadElement(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	_, err := pushOne(t, ctx, "[1, 'two', 3]")
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "invalid vector array value")
}

func TestPushArgumentBuffer(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "new Uint8Array([1, 2, 255])")
	assert.Nil(t, err)
	assert.Equal(t, host.ArgBuffer, call.Args[0].Kind)
	assert.Equal(t, []byte{1, 2, 255}, call.Args[0].Bytes)
}

func TestPushArgumentDataObject(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	call, err := pushOne(t, ctx, "({__data: 7})")
	assert.Nil(t, err)
	assert.Equal(t, host.ArgInt32, call.Args[0].Kind)
	assert.Equal(t, int64(7), call.Args[0].Int)
}

func TestPushArgumentDataObjectBadField(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	for _, script := range []string{"({__data: 'x'})", "({foo: 1})"} {
		_, err := pushOne(t, ctx, script)
		assert.NotNil(t, err, script)
		assert.Contains(t, err.Error(), "__data field does not contain a number")
	}
}

func TestPushArgumentMetaToken(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	token, err := MetaToken(ctx, host.ResultAsString)
	assert.Nil(t, err)

	call := host.NewCall(0x1)
	arena := &Arena{}
	arena.BeginCall()

	err = PushArgument(call, arena, token)
	assert.Nil(t, err)
	assert.Equal(t, host.ArgMetaPointer, call.Args[0].Kind)
	assert.Equal(t, host.ResultAsString, call.Args[0].Meta)
}

func TestPushArgumentStringUsesArena(t *testing.T) {
	ctx := prepare(t)
	defer teardown(ctx)

	value, err := ctx.RunScript("'transient'", "arg.js")
	assert.Nil(t, err)

	call := host.NewCall(0x1)
	arena := &Arena{}
	arena.BeginCall()

	assert.Nil(t, PushArgument(call, arena, value))
	assert.Equal(t, 1, arena.Live())
}
