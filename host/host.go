package host

// CallRefHandler is the host side of the function-reference bridge. The
// runtime hands it the identifier bytes of a reference together with the raw
// argument payload; the host owns the payload encoding on both sides.
type CallRefHandler interface {
	Invoke(identifier string, args []byte) ([]byte, error)
}

// RefCanonicalizer turns a runtime-local reference index into a globally
// routable identifier. Hosts that do not route references across runtimes can
// skip implementing it; the runtime falls back to a local form.
type RefCanonicalizer interface {
	CanonicalizeRef(refIndex int32, instanceID int32) (string, error)
}

// StackWalkVisitor receives one encoded stack frame per call during a stack
// walk. Returning false stops the walk.
type StackWalkVisitor interface {
	SubmitStackFrame(frame []byte) bool
}

// Status is the tri-state outcome of a dispatch operation.
type Status int

const (
	// StatusOK the operation completed without a script-level exception
	StatusOK Status = iota

	// StatusReported a script-level exception was caught and sent to the
	// trace sink; the host driver should carry on
	StatusReported

	// StatusFailed a structural failure; the accompanying error is set
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusReported:
		return "reported"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}
