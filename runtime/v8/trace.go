package v8

import (
	"fmt"

	"github.com/yaoapp/kun/log"
	"rogchap.com/v8go"
)

// trace format a line and hand it to the runtime's trace sink
func (rt *Runtime) trace(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	log.Trace("[V8] [script:%s] %s", rt.Name, message)
	rt.sink.ScriptTrace(rt.Name, message)
}

// reportException format a caught script-level exception with its stack
// trace and send it to the trace sink. Never propagates.
func (rt *Runtime) reportException(action string, err error) {
	message, stack := exceptionParts(err)
	rt.trace("Error calling system %s function in resource %s: %s\nstack:\n%s\n", action, rt.Name, message, stack)
}

// exceptionParts split a script error into its message and stack trace
func exceptionParts(err error) (string, string) {
	if jserr, ok := err.(*v8go.JSError); ok {
		return jserr.Message, jserr.StackTrace
	}
	return err.Error(), ""
}
