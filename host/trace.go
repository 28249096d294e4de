package host

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// TraceSink receives formatted script trace lines. Every caught script
// exception and explicit trace call goes through it.
type TraceSink interface {
	ScriptTrace(resource string, message string)
}

// ConsoleSink writes trace lines to a terminal, tinting error-looking lines
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink create a console sink. A nil writer means stderr.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleSink{out: out}
}

// ScriptTrace write one trace line prefixed with the resource channel
func (sink *ConsoleSink) ScriptTrace(resource string, message string) {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	prefix := color.CyanString("[script:%s]", resource)
	if strings.HasPrefix(message, "Error") {
		prefix = color.RedString("[script:%s]", resource)
	}

	message = strings.TrimRight(message, "\n")
	fmt.Fprintf(sink.out, "%s %s\n", prefix, message)
}

// NullSink drops every trace line
type NullSink struct{}

// ScriptTrace drop the line
func (NullSink) ScriptTrace(resource string, message string) {}
