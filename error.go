package bridge

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge failure by the domain it originated from.
type Kind string

const (
	// KindMCP covers handshake, listing, and invocation failures reported by
	// the remote MCP client layer, including timeouts.
	KindMCP Kind = "mcp"
	// KindAgent covers failures originating from the agent framework itself,
	// such as agent construction or tool registration.
	KindAgent Kind = "agent"
	// KindToolExecution covers failures of a single tool invocation attempt.
	KindToolExecution Kind = "tool_execution"
	// KindInit covers misconfiguration discovered during setup: duplicate
	// client ids, malformed schemas, or zero usable tools after adaptation.
	KindInit Kind = "init"
	// KindSerialization covers malformed JSON at a boundary crossing.
	KindSerialization Kind = "serialization"
	// KindOther is the catch-all for failures not classified above.
	KindOther Kind = "other"
)

func (k Kind) String() string { return string(k) }

// Error is the unified error type shared by every component of the bridge.
// External collaborators (the MCP client layer, the agent framework, the JSON
// codec) are each mapped into exactly one Kind at the call site where their
// failure surfaces, so callers never have to inspect concrete foreign types.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// NewError builds a bridge error of the given kind. The cause may be nil.
func NewError(kind Kind, msg string, cause error) *Error {
	if kind == "" {
		kind = KindOther
	}
	return &Error{kind: kind, msg: msg, cause: cause}
}

// Errorf builds a bridge error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return NewError(kind, fmt.Sprintf(format, args...), nil)
}

// Kind reports the failure domain of the error.
func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Error() string {
	prefix := ""
	switch e.kind {
	case KindMCP:
		prefix = "mcp client error"
	case KindAgent:
		prefix = "agent framework error"
	case KindToolExecution:
		prefix = "tool execution error"
	case KindInit:
		prefix = "initialization error"
	case KindSerialization:
		prefix = "serialization error"
	default:
		prefix = "bridge error"
	}
	if e.cause != nil && e.msg != "" {
		return fmt.Sprintf("%s: %s: %v", prefix, e.msg, e.cause)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.msg)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches two bridge errors by kind, so errors.Is(err, &Error{kind: KindInit})
// style sentinels work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind
}

// KindOf extracts the Kind from an error produced by this package. Errors from
// elsewhere report KindOther, keeping classification decisions at the
// conversion boundary rather than scattered through callers.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.kind
	}
	return KindOther
}

// mcpErr wraps a failure from the MCP client layer, passing its message
// through verbatim.
func mcpErr(msg string, cause error) *Error {
	return NewError(KindMCP, msg, cause)
}

// agentErr wraps a failure from the agent framework.
func agentErr(msg string, cause error) *Error {
	return NewError(KindAgent, msg, cause)
}
