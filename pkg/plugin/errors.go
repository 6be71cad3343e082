// Plugin error taxonomy (spec §4.11): a parallel namespace to pkg/errtype,
// kept separate because plugin failures are never fatal to the evaluator —
// they surface to stderr and a non-zero exit code for the offending
// command, never as a propagated EvalError.
package plugin

import "fmt"

type ErrorKind string

const (
	KindCompilation        ErrorKind = "Compilation"
	KindInstantiation      ErrorKind = "Instantiation"
	KindMissingDependency  ErrorKind = "MissingDependency"
	KindVersionMismatch    ErrorKind = "VersionMismatch"
	KindCircularDependency ErrorKind = "CircularDependency"
	KindNotFound           ErrorKind = "NotFound"
	KindCommandNotFound    ErrorKind = "CommandNotFound"
	KindCallFailed         ErrorKind = "CallFailed"
	KindHotReload          ErrorKind = "HotReload"
	KindManifest           ErrorKind = "Manifest"
)

// Error is a plugin-system failure, carrying enough of the offending
// request's shape for a VersionMismatch to report plugin/required/found
// without a separate type per kind.
type Error struct {
	Kind     ErrorKind
	Message  string
	Plugin   string
	Required string
	Found    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindVersionMismatch:
		return fmt.Sprintf("plugin %q requires %q, found %q", e.Plugin, e.Required, e.Found)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func newErr(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}
