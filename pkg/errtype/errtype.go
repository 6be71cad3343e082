// Package errtype is hsab's error taxonomy (spec C13): a Go error
// hierarchy distinct from, but convertible at exactly one point (`try`)
// into, the stack-visible Error Value (pkg/value.ErrorValue).
//
// Grounded on the teacher's pkg/commands/errors.go: WrapError for
// stack-traced top-level wrapping via go-errors, and ComplexError (an
// xerrors.Frame-carrying error with a numeric code) generalized from
// Docker's single MustStopContainer code to hsab's EvalError kinds.
package errtype

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Kind enumerates C13's error taxonomy.
type Kind string

const (
	KindStackUnderflow   Kind = "StackUnderflow"
	KindTypeError        Kind = "TypeError"
	KindExecError        Kind = "ExecError"
	KindIoError          Kind = "IoError"
	KindBreakOutsideLoop Kind = "BreakOutsideLoop"
	// KindBreakLoop is the internal loop-break control signal; it must
	// never escape to a caller as a user-visible error (spec C13).
	KindBreakLoop Kind = "BreakLoop"
)

// EvalError is the control-flow error type threaded through the evaluator.
// It aborts to the nearest `try` or out of the current line (spec §7).
type EvalError struct {
	Kind     Kind
	Op       string
	Expected string
	Got      string
	Message  string
	Wrapped  error
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case KindStackUnderflow:
		return fmt.Sprintf("stack underflow in %s", e.Op)
	case KindTypeError:
		return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Got)
	case KindExecError:
		return fmt.Sprintf("exec error: %s", e.Message)
	case KindIoError:
		if e.Wrapped != nil {
			return fmt.Sprintf("io error: %s", e.Wrapped.Error())
		}
		return fmt.Sprintf("io error: %s", e.Message)
	case KindBreakOutsideLoop:
		return "break outside any loop"
	case KindBreakLoop:
		return "internal: break signal escaped its loop"
	default:
		return e.Message
	}
}

func (e *EvalError) Unwrap() error { return e.Wrapped }

func StackUnderflow(op string) *EvalError {
	return &EvalError{Kind: KindStackUnderflow, Op: op}
}

func TypeMismatch(expected, got string) *EvalError {
	return &EvalError{Kind: KindTypeError, Expected: expected, Got: got}
}

func Exec(msg string) *EvalError {
	return &EvalError{Kind: KindExecError, Message: msg}
}

func Io(err error) *EvalError {
	return &EvalError{Kind: KindIoError, Wrapped: err}
}

var ErrBreakOutsideLoop = &EvalError{Kind: KindBreakOutsideLoop}

// ErrBreak is the sentinel loop-break control signal (spec: "Break is a
// control signal, not an error"). It is handled by times/while/until and
// must never reach a `try` boundary or the evaluator's outermost handler.
var ErrBreak = &EvalError{Kind: KindBreakLoop}

// WrapError wraps err for a stack-traced top-level report. Mirrors the
// teacher's WrapError, including its guard against go-errors' quirk of not
// returning nil for a nil input.
func WrapError(err error) error {
	if err == nil {
		return err
	}
	return goerrors.Wrap(err, 0)
}

// ComplexError carries a numeric exit code alongside a message, the same
// shape as spec's Error{kind,message,code?}. Adapted near-verbatim from
// the teacher's ComplexError/xerrors.Frame pattern.
type ComplexError struct {
	Message string
	Code    int
	frame   xerrors.Frame
}

func NewComplexError(message string, code int) ComplexError {
	return ComplexError{Message: message, Code: code, frame: xerrors.Caller(1)}
}

func (ce ComplexError) FormatError(p xerrors.Printer) error {
	p.Printf("%d %s", ce.Code, ce.Message)
	ce.frame.Format(p)
	return nil
}

func (ce ComplexError) Format(f fmt.State, c rune) {
	xerrors.FormatError(ce, f, c)
}

func (ce ComplexError) Error() string {
	return fmt.Sprint(ce)
}

// HasErrorCode reports whether err is a ComplexError with the given code.
func HasErrorCode(err error, code int) bool {
	var originalErr ComplexError
	if xerrors.As(err, &originalErr) {
		return originalErr.Code == code
	}
	return false
}
