package domain

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

const stackHeader = "Caught exception @Host-IP:"

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// CaptureStack renders err and its call stack prefixed with the host identifier.
// The deepest pkg/errors stack in the chain is used; a cause without one gets
// the stack of the capture site. A nil error yields "".
func CaptureStack(err error, host string) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(stackHeader)
	b.WriteString(strings.TrimSpace(host))
	b.WriteString("\n")
	b.WriteString(err.Error())
	b.WriteString("\n")

	for _, frame := range stackOf(err) {
		fmt.Fprintf(&b, "%n (%s:%d)\n", frame, frame, frame)
	}

	return b.String()
}

func stackOf(err error) pkgerrors.StackTrace {
	var deepest stackTracer
	for current := err; current != nil; current = errors.Unwrap(current) {
		if tracer, ok := current.(stackTracer); ok {
			deepest = tracer
		}
	}
	if deepest != nil {
		return deepest.StackTrace()
	}

	if tracer, ok := pkgerrors.WithStack(err).(stackTracer); ok {
		return tracer.StackTrace()
	}
	return nil
}
