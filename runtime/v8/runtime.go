package v8

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/yaoapp/kun/log"
	"github.com/gridworks/scripting/host"
	"rogchap.com/v8go"
)

var importRe = regexp.MustCompile(`import\s+.*;`)

var nextInstanceID atomic.Int32

// New create a runtime for one script unit. parent is the opaque handle to
// the owning host object; a nil sink drops every trace line.
func New(name string, path string, parent interface{}, handler host.CallRefHandler, natives *host.Natives, sink host.TraceSink) *Runtime {

	if sink == nil {
		sink = host.NullSink{}
	}

	return &Runtime{
		Name:       name,
		instanceID: nextInstanceID.Add(1),
		path:       path,
		parent:     parent,
		handler:    handler,
		natives:    natives,
		sink:       sink,
		status:     StatusCreated,
	}
}

// InstanceID the process-unique id of this runtime
func (rt *Runtime) InstanceID() int32 {
	return rt.instanceID
}

// Parent the opaque handle to the owning host object
func (rt *Runtime) Parent() interface{} {
	return rt.parent
}

// Path the resource path of this runtime's script unit
func (rt *Runtime) Path() string {
	return rt.path
}

// SetSecondaryTeardown install the teardown hook of the secondary-runtime
// subsystem; Destroy runs it inside its single environment entry.
func (rt *Runtime) SetSecondaryTeardown(fn func()) {
	rt.secondaryTeardown = fn
}

// Create establish the execution context: install the Grid global, run the
// engine-bridge script, then the fixed ordered platform script list. Any
// load failure aborts creation.
func (rt *Runtime) Create() error {

	engine, err := current()
	if err != nil {
		return err
	}

	if rt.status != StatusCreated {
		return fmt.Errorf("[V8] runtime %s has already been created", rt.Name)
	}

	// a full frame: the exit checkpoint runs the microtasks the bootstrap
	// and platform scripts queued. An aborted create nils the context, which
	// skips the checkpoint.
	exit := engine.enter(rt)
	defer exit()

	ctx := v8go.NewContext(engine.iso)
	rt.context = ctx

	abort := func(err error) error {
		ctx.Close()
		rt.context = nil
		return err
	}

	if err := rt.bindGlobals(engine, ctx); err != nil {
		return abort(err)
	}

	if err := rt.runScript(engine, bootstrapScript, "bootstrap.js"); err != nil {
		return abort(err)
	}

	for _, name := range engine.option.PlatformScripts {
		if err := rt.loadFrom(engine, name); err != nil {
			return abort(err)
		}
	}

	log.Info("[V8] runtime %s created", rt.Name)
	rt.status = StatusReady
	return nil
}

// LoadFile load a user script into the runtime. TypeScript sources are
// transformed before execution.
func (rt *Runtime) LoadFile(name string) error {

	engine, err := current()
	if err != nil {
		return err
	}

	if rt.status != StatusReady {
		return fmt.Errorf("[V8] runtime %s is not ready", rt.Name)
	}

	exit := engine.enter(rt)
	defer exit()

	return rt.loadFrom(engine, name)
}

// Destroy clear the routine table, enter the environment once for the
// secondary-runtime teardown, and release the persisted context. Terminal.
func (rt *Runtime) Destroy() error {

	if rt.status == StatusDestroyed {
		return nil
	}

	engine, err := current()
	if err != nil {
		return err
	}

	for i := range rt.routines {
		rt.routines[i] = nil
	}

	if rt.context != nil {
		exit := engine.enter(rt)
		if rt.secondaryTeardown != nil {
			rt.secondaryTeardown()
			rt.secondaryTeardown = nil
		}
		exit()

		// the context is gone before the frame exits, so no checkpoint
		// runs against it
		release := engine.enter(rt)
		rt.context.Close()
		rt.context = nil
		release()
	}

	log.Info("[V8] runtime %s destroyed", rt.Name)
	rt.status = StatusDestroyed
	return nil
}

// loadFrom read a script through the engine's source provider and run it.
// The caller holds a scope.
func (rt *Runtime) loadFrom(engine *Engine, name string) error {

	if engine.sources == nil {
		return fmt.Errorf("[V8] no application loaded, cannot read %s", name)
	}

	source, err := engine.sources.Read(name)
	if err != nil {
		return fmt.Errorf("Error loading script %s in resource %s: %s", name, rt.Name, err.Error())
	}

	if strings.HasSuffix(name, ".ts") {
		source, err = TransformTS(source)
		if err != nil {
			return fmt.Errorf("Error loading script %s in resource %s: %s", name, rt.Name, err.Error())
		}
	}

	return rt.runScript(engine, string(source), name)
}

// runScript execute a source in the runtime context; a script-level
// exception is traced and returned. The caller holds a scope.
func (rt *Runtime) runScript(engine *Engine, source string, origin string) error {

	if _, err := rt.context.RunScript(source, origin); err != nil {
		message, stack := exceptionParts(err)
		rt.trace("Error loading script %s in resource %s: %s\nstack:\n%s\n", origin, rt.Name, message, stack)
		return fmt.Errorf("Error loading script %s in resource %s: %s", origin, rt.Name, message)
	}

	return nil
}

// TransformTS transform a typescript source
func TransformTS(source []byte) ([]byte, error) {

	jsCode := importRe.ReplaceAllString(string(source), "")
	result := api.Transform(jsCode, api.TransformOptions{
		Loader: api.LoaderTS,
		Target: api.ESNext,
	})

	if len(result.Errors) > 0 {
		errors := []string{}
		for _, err := range result.Errors {
			errors = append(errors, err.Text)
		}
		return nil, fmt.Errorf("transform ts code error: %v", strings.Join(errors, "\n"))
	}

	return result.Code, nil
}
